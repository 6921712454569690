// Package auth acquires and refreshes the Twitch user token, persisting it
// as JSON in the user config directory between runs.
package auth

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultOAuthBaseURL = "https://id.twitch.tv/oauth2"
	redemptionScope     = "channel:read:redemptions"

	appDirName    = "twitch-soundbot"
	tokenFileName = "token.json"

	httpTimeout = 10 * time.Second
)

// StoredToken is the on-disk token representation.
type StoredToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenRefreshError reports a failed refresh. Revoked is set when the
// authorization server rejected the refresh token outright, meaning a new
// interactive authorization is needed.
type TokenRefreshError struct {
	Revoked bool
	Err     error
}

func (e *TokenRefreshError) Error() string {
	if e.Revoked {
		return fmt.Sprintf("token revoked: %v", e.Err)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// DefaultTokenPath returns the location of the persisted token file.
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(dir, appDirName, tokenFileName), nil
}

// Manager obtains a valid user access token: refreshing the stored one when
// possible, falling back to the interactive authorization-code flow.
type Manager struct {
	clientID     string
	clientSecret string
	redirectURI  string
	tokenPath    string

	oauthBaseURL string // configurable for testing
	httpClient   *http.Client
	in           io.Reader
	out          io.Writer
	newState     func() string
}

func NewManager(clientID, clientSecret, redirectURI, tokenPath string) *Manager {
	return &Manager{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		tokenPath:    tokenPath,
		oauthBaseURL: defaultOAuthBaseURL,
		httpClient:   &http.Client{Timeout: httpTimeout},
		in:           os.Stdin,
		out:          os.Stdout,
		newState:     uuid.NewString,
	}
}

// EnsureToken returns a valid access token. A stored token is refreshed and
// persisted; if none exists, or the stored one was revoked, the interactive
// authorization flow runs instead.
func (m *Manager) EnsureToken(ctx context.Context) (string, error) {
	stored, err := readToken(m.tokenPath)
	if err == nil {
		refreshed, refreshErr := m.refreshToken(ctx, stored.RefreshToken)
		if refreshErr == nil {
			if err := writeToken(m.tokenPath, refreshed); err != nil {
				return "", err
			}
			return refreshed.AccessToken, nil
		}

		var tre *TokenRefreshError
		if !errors.As(refreshErr, &tre) || !tre.Revoked {
			return "", refreshErr
		}
		slog.Warn("Stored token was revoked, starting interactive authorization")
	}

	token, err := m.authorize(ctx)
	if err != nil {
		return "", err
	}
	if err := writeToken(m.tokenPath, token); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// authorize runs the authorization-code flow: the user opens the printed URL,
// logs in, and pastes the redirect URL back.
func (m *Manager) authorize(ctx context.Context) (StoredToken, error) {
	state := m.newState()

	params := url.Values{}
	params.Set("client_id", m.clientID)
	params.Set("redirect_uri", m.redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", redemptionScope)
	params.Set("state", state)
	params.Set("force_verify", "true")

	fmt.Fprintf(m.out, "Open this URL in your browser and log in:\n\n%s/authorize?%s\n\n", m.oauthBaseURL, params.Encode())
	fmt.Fprintln(m.out, "After logging in, paste the full URL you were redirected to:")

	line, err := bufio.NewReader(m.in).ReadString('\n')
	if err != nil && line == "" {
		return StoredToken{}, fmt.Errorf("failed to read redirect URL: %w", err)
	}

	code, err := parseAuthRedirect(strings.TrimSpace(line), state)
	if err != nil {
		return StoredToken{}, err
	}

	return m.exchangeCode(ctx, code)
}

// parseAuthRedirect extracts the authorization code from the redirect URL the
// user pasted, verifying the CSRF state matches.
func parseAuthRedirect(raw, wantState string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}

	query := u.Query()
	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect URL is missing the code parameter")
	}
	if query.Get("state") != wantState {
		return "", fmt.Errorf("redirect URL state does not match, possible CSRF")
	}

	return code, nil
}

func (m *Manager) exchangeCode(ctx context.Context, code string) (StoredToken, error) {
	data := url.Values{}
	data.Set("client_id", m.clientID)
	data.Set("client_secret", m.clientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", m.redirectURI)

	token, err := m.tokenRequest(ctx, data)
	if err != nil {
		return StoredToken{}, fmt.Errorf("code exchange failed: %w", err)
	}
	return token, nil
}

func (m *Manager) refreshToken(ctx context.Context, refreshToken string) (StoredToken, error) {
	data := url.Values{}
	data.Set("client_id", m.clientID)
	data.Set("client_secret", m.clientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	return m.tokenRequest(ctx, data)
}

func (m *Manager) tokenRequest(ctx context.Context, data url.Values) (StoredToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.oauthBaseURL+"/token", strings.NewReader(data.Encode()))
	if err != nil {
		return StoredToken{}, &TokenRefreshError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return StoredToken{}, &TokenRefreshError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return StoredToken{}, &TokenRefreshError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		// 400/401 means the grant itself was rejected
		revoked := resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized
		return StoredToken{}, &TokenRefreshError{
			Revoked: revoked,
			Err:     fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var result StoredToken
	if err := json.Unmarshal(body, &result); err != nil {
		return StoredToken{}, &TokenRefreshError{Err: err}
	}
	if result.AccessToken == "" {
		return StoredToken{}, &TokenRefreshError{Err: fmt.Errorf("token endpoint returned no access token")}
	}

	return result, nil
}

func readToken(path string) (StoredToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StoredToken{}, err
	}

	var token StoredToken
	if err := json.Unmarshal(data, &token); err != nil {
		return StoredToken{}, fmt.Errorf("failed to parse stored token: %w", err)
	}
	return token, nil
}

func writeToken(path string, token StoredToken) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}
