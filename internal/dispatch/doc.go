// Package dispatch consumes frames from the EventSub websocket connection,
// filters redemption notifications, and hands them to a bounded worker pool
// so a slow handler never delays frame reads.
package dispatch
