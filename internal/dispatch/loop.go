package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/markussekhon/twitch-soundbot/internal/metrics"
)

// RedemptionEvent is one viewer reward redemption, extracted from a
// notification frame. Passed to handlers by value.
type RedemptionEvent struct {
	UserName    string
	RewardTitle string
}

const (
	defaultUserName    = "unknown user"
	defaultRewardTitle = "unknown reward"
)

// FrameReader is the read side of a websocket connection.
// *websocket.Conn satisfies it.
type FrameReader interface {
	ReadMessage() (messageType int, p []byte, err error)
}

// notificationFrame mirrors the payload of an EventSub notification frame.
type notificationFrame struct {
	Payload struct {
		Subscription struct {
			Type string `json:"type"`
		} `json:"subscription"`
		Event struct {
			UserName string `json:"user_name"`
			Reward   struct {
				Title string `json:"title"`
			} `json:"reward"`
		} `json:"event"`
	} `json:"payload"`
}

// Loop owns the websocket connection once the subscription is registered and
// dispatches matching redemption events to the pool.
type Loop struct {
	eventType string
	pool      *Pool
}

// NewLoop creates a Loop that dispatches frames of the given subscription
// type to pool.
func NewLoop(eventType string, pool *Pool) *Loop {
	return &Loop{eventType: eventType, pool: pool}
}

// Run reads frames in arrival order until the connection ends. A clean
// closure returns nil; read errors and malformed frames are fatal and end
// the session. There is no internal retry or reconnect.
func (l *Loop) Run(conn FrameReader) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}

		if msgType != websocket.TextMessage {
			metrics.FramesRead.WithLabelValues("non_text").Inc()
			continue
		}
		metrics.FramesRead.WithLabelValues("text").Inc()

		var frame notificationFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return fmt.Errorf("failed to parse frame: %w", err)
		}

		if frame.Payload.Subscription.Type != l.eventType {
			continue
		}

		ev := RedemptionEvent{
			UserName:    frame.Payload.Event.UserName,
			RewardTitle: frame.Payload.Event.Reward.Title,
		}
		if ev.UserName == "" {
			ev.UserName = defaultUserName
		}
		if ev.RewardTitle == "" {
			ev.RewardTitle = defaultRewardTitle
		}

		l.pool.Dispatch(ev)
	}
}
