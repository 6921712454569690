package twitch

import (
	"fmt"
	"net/http"

	"github.com/nicklaw5/helix/v2"
)

// RedemptionEventType is the EventSub subscription type for channel-points
// custom reward redemptions.
const RedemptionEventType = "channel.channel_points_custom_reward_redemption.add"

// Client wraps a helix client authenticated with a user access token.
type Client struct {
	client *helix.Client
}

// ClientOptions configures a Client. APIBaseURL overrides the helix API base
// URL (for testing).
type ClientOptions struct {
	ClientID        string
	UserAccessToken string
	APIBaseURL      string
}

func NewClient(opts ClientOptions) (*Client, error) {
	client, err := helix.NewClient(&helix.Options{
		ClientID:        opts.ClientID,
		UserAccessToken: opts.UserAccessToken,
		APIBaseURL:      opts.APIBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}
	return &Client{client: client}, nil
}

// ResolveBroadcasterID looks up the numeric broadcaster id for a login name.
// Single attempt, no retry. Returns ErrBroadcasterNotFound when the lookup
// succeeds but matches no account.
func (c *Client) ResolveBroadcasterID(login string) (string, error) {
	resp, err := c.client.GetUsers(&helix.UsersParams{
		Logins: []string{login},
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch broadcaster id: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		return "", &UpstreamError{
			Operation:  "user lookup",
			StatusCode: resp.StatusCode,
			Message:    helixErrorText(resp.ResponseCommon),
		}
	}

	if len(resp.Data.Users) == 0 || resp.Data.Users[0].ID == "" {
		return "", ErrBroadcasterNotFound
	}

	return resp.Data.Users[0].ID, nil
}

// RegisterRedemptionSubscription creates a websocket-transport EventSub
// subscription binding redemption events to the given session. Exactly one
// request is sent; any non-success response is a *RegistrationError carrying
// the server's response text.
func (c *Client) RegisterRedemptionSubscription(broadcasterID, sessionID string) error {
	resp, err := c.client.CreateEventSubSubscription(&helix.EventSubSubscription{
		Type:    RedemptionEventType,
		Version: "1",
		Condition: helix.EventSubCondition{
			BroadcasterUserID: broadcasterID,
		},
		Transport: helix.EventSubTransport{
			Method:    "websocket",
			SessionID: sessionID,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create eventsub subscription: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		return &RegistrationError{
			StatusCode: resp.StatusCode,
			Body:       helixErrorText(resp.ResponseCommon),
		}
	}

	return nil
}

// isSuccess reports whether code is in the 2xx range. Twitch documents 202
// for subscription creation, but any success status counts as accepted.
func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

func helixErrorText(rc helix.ResponseCommon) string {
	if rc.ErrorMessage != "" {
		return rc.ErrorMessage
	}
	return rc.Error
}
