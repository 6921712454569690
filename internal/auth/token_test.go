package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, oauthURL string) *Manager {
	t.Helper()
	m := NewManager("test-client", "test-secret", "http://localhost/", filepath.Join(t.TempDir(), "token.json"))
	if oauthURL != "" {
		m.oauthBaseURL = oauthURL
	}
	return m
}

func writeStoredToken(t *testing.T, m *Manager, token StoredToken) {
	t.Helper()
	require.NoError(t, writeToken(m.tokenPath, token))
}

func TestTokenRefreshError_Messages(t *testing.T) {
	err := &TokenRefreshError{Revoked: true, Err: assert.AnError}
	assert.Contains(t, err.Error(), "token revoked:")

	err = &TokenRefreshError{Err: assert.AnError}
	assert.Contains(t, err.Error(), "token refresh failed:")
}

func TestStoredToken_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	want := StoredToken{AccessToken: "access-1", RefreshToken: "refresh-1"}

	require.NoError(t, writeToken(path, want))

	got, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEnsureToken_RefreshesStoredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))
		assert.Equal(t, "test-client", r.Form.Get("client_id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","expires_in":14400}`))
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	writeStoredToken(t, m, StoredToken{AccessToken: "old-access", RefreshToken: "old-refresh"})

	access, err := m.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-access", access)

	// The rotated token pair must be persisted.
	stored, err := readToken(m.tokenPath)
	require.NoError(t, err)
	assert.Equal(t, StoredToken{AccessToken: "new-access", RefreshToken: "new-refresh"}, stored)
}

func TestEnsureToken_TransientRefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	writeStoredToken(t, m, StoredToken{AccessToken: "a", RefreshToken: "r"})

	_, err := m.EnsureToken(context.Background())
	require.Error(t, err)

	var tre *TokenRefreshError
	require.ErrorAs(t, err, &tre)
	assert.False(t, tre.Revoked)
	assert.Contains(t, err.Error(), "500")
}

func TestEnsureToken_RevokedFallsBackToAuthorize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.Form.Get("grant_type") {
		case "refresh_token":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":401,"message":"Invalid refresh token"}`))
		case "authorization_code":
			assert.Equal(t, "auth-code-1", r.Form.Get("code"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"fresh-access","refresh_token":"fresh-refresh"}`))
		default:
			t.Errorf("unexpected grant_type %q", r.Form.Get("grant_type"))
		}
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	m.newState = func() string { return "fixed-state" }
	m.in = strings.NewReader("http://localhost/?code=auth-code-1&state=fixed-state\n")
	m.out = &strings.Builder{}
	writeStoredToken(t, m, StoredToken{AccessToken: "a", RefreshToken: "revoked"})

	access, err := m.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", access)
}

func TestEnsureToken_NoStoredTokenRunsAuthorize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh-access","refresh_token":"fresh-refresh"}`))
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	m.newState = func() string { return "fixed-state" }
	m.in = strings.NewReader("http://localhost/?code=auth-code-1&state=fixed-state\n")
	out := &strings.Builder{}
	m.out = out

	access, err := m.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", access)
	assert.Contains(t, out.String(), "/authorize?")
	assert.Contains(t, out.String(), "state=fixed-state")

	stored, err := readToken(m.tokenPath)
	require.NoError(t, err)
	assert.Equal(t, "fresh-refresh", stored.RefreshToken)
}

func TestParseAuthRedirect(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		state    string
		wantCode string
		wantErr  string
	}{
		{
			name:     "valid",
			raw:      "http://localhost/?code=abc&state=s1",
			state:    "s1",
			wantCode: "abc",
		},
		{
			name:    "missing code",
			raw:     "http://localhost/?state=s1",
			state:   "s1",
			wantErr: "missing the code",
		},
		{
			name:    "state mismatch",
			raw:     "http://localhost/?code=abc&state=other",
			state:   "s1",
			wantErr: "state does not match",
		},
		{
			name:    "missing state",
			raw:     "http://localhost/?code=abc",
			state:   "s1",
			wantErr: "state does not match",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := parseAuthRedirect(tt.raw, tt.state)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
