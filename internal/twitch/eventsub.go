package twitch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// DefaultEventSubURL is the production EventSub websocket endpoint.
const DefaultEventSubURL = "wss://eventsub.wss.twitch.tv/ws"

// welcomeTimeout is the hard ceiling for receiving the session_welcome frame.
const welcomeTimeout = 10 * time.Second

// Awaiter dials the EventSub websocket endpoint and waits for the
// session_welcome frame that assigns the session id.
type Awaiter struct {
	url     string
	dialer  *websocket.Dialer
	clock   clockwork.Clock
	timeout time.Duration
}

// NewAwaiter creates an Awaiter for the given endpoint URL.
func NewAwaiter(url string, clock clockwork.Clock) *Awaiter {
	return &Awaiter{
		url:     url,
		dialer:  websocket.DefaultDialer,
		clock:   clock,
		timeout: welcomeTimeout,
	}
}

// Connect opens the websocket connection and waits for the welcome frame.
// On success the returned connection is open and ready for the event loop.
// Returns ErrHandshakeTimeout if no qualifying frame arrives in time.
func (a *Awaiter) Connect(ctx context.Context) (*websocket.Conn, string, error) {
	conn, _, err := a.dialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to dial eventsub endpoint %s: %w", a.url, err)
	}
	slog.Info("Connected to EventSub websocket endpoint", "url", a.url)

	sessionID, err := a.awaitWelcome(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, "", err
	}

	return conn, sessionID, nil
}

type welcomeResult struct {
	sessionID string
	err       error
}

// awaitWelcome consumes frames until one qualifies as the session_welcome.
// Non-welcome frames inside the window are ignored. The reader goroutine
// stops at the welcome frame, so frame ownership passes cleanly to the
// caller; on timeout or cancellation the caller closes the connection,
// which unblocks it.
func (a *Awaiter) awaitWelcome(ctx context.Context, conn *websocket.Conn) (string, error) {
	resultCh := make(chan welcomeResult, 1)

	go func() {
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				resultCh <- welcomeResult{err: err}
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			if sessionID, ok := ExtractSessionID(string(data)); ok {
				resultCh <- welcomeResult{sessionID: sessionID}
				return
			}
		}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("read failed during handshake: %w", res.err)
		}
		return res.sessionID, nil
	case <-a.clock.After(a.timeout):
		return "", ErrHandshakeTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
