package twitch

import (
	"errors"
	"fmt"
)

// ErrHandshakeTimeout is returned when no session_welcome frame arrives
// within the handshake ceiling.
var ErrHandshakeTimeout = errors.New("timed out waiting for session_welcome")

// ErrBroadcasterNotFound is returned when a user lookup succeeds but matches
// no account.
var ErrBroadcasterNotFound = errors.New("broadcaster not found")

// UpstreamError reports a non-success response from the Twitch API.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// RegistrationError reports a rejected EventSub subscription registration,
// carrying the server's response text.
type RegistrationError struct {
	StatusCode int
	Body       string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("failed to register subscription (status %d): %s", e.StatusCode, e.Body)
}
