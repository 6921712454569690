package twitch

import "encoding/json"

const messageTypeWelcome = "session_welcome"

// envelope is the outer structure of every EventSub websocket frame.
type envelope struct {
	Metadata struct {
		MessageType string `json:"message_type"`
	} `json:"metadata"`
	Payload json.RawMessage `json:"payload"`
}

type welcomePayload struct {
	Session struct {
		ID string `json:"id"`
	} `json:"session"`
}

// ExtractSessionID parses text as an EventSub frame and, if it is a
// session_welcome carrying a non-empty session id, returns that id.
// Malformed or non-welcome frames return ok=false, never an error.
func ExtractSessionID(text string) (string, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return "", false
	}
	if env.Metadata.MessageType != messageTypeWelcome {
		return "", false
	}

	var payload welcomePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return "", false
	}
	if payload.Session.ID == "" {
		return "", false
	}
	return payload.Session.ID, true
}
