// Package twitch integrates with the Twitch API.
//
// Awaiter establishes the EventSub websocket connection and completes the
// session_welcome handshake. Client wraps a helix client for broadcaster
// lookup and websocket subscription registration.
package twitch
