package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gorilla/sessions"
	"github.com/pinggolf/breadplan/internal/config"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Manager handles operator login to the planning dashboard and refresh of
// the resulting OAuth token.
type Manager struct {
	config   *config.Config
	sessions sessions.Store
	oauth    *oauth2.Config
	logger   zerolog.Logger
}

// NewManager creates a new auth manager.
func NewManager(cfg *config.Config, store sessions.Store, logger zerolog.Logger) *Manager {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.OAuthAuthEndpoint,
			TokenURL: cfg.OAuthTokenEndpoint,
		},
		RedirectURL: cfg.OAuthRedirectURI,
		Scopes:      []string{cfg.OAuthScopes},
	}

	return &Manager{
		config:   cfg,
		sessions: store,
		oauth:    oauthConfig,
		logger:   logger,
	}
}

// GetAuthorizationURL generates the OAuth authorization URL, along with the
// CSRF state the caller must stash and compare on callback.
func (m *Manager) GetAuthorizationURL() (url, state string, err error) {
	state, err = generateRandomState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline), state, nil
}

// ExchangeCodeForTokens exchanges an authorization code for access and refresh tokens.
func (m *Manager) ExchangeCodeForTokens(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return token, nil
}

// RefreshTokenIfNeeded checks if the session's token needs refreshing and
// refreshes it if necessary. Returns (true, nil) if refreshed, (false, nil)
// if still valid, (false, error) on failure.
func (m *Manager) RefreshTokenIfNeeded(ctx context.Context, session *sessions.Session) (bool, error) {
	expiryUnix, ok := session.Values["token_expiry"].(int64)
	if !ok {
		return false, fmt.Errorf("invalid token expiry in session")
	}

	expiry := time.Unix(expiryUnix, 0)
	timeUntilExpiry := time.Until(expiry)

	if timeUntilExpiry > m.config.TokenRefreshBuffer {
		return false, nil
	}

	refreshToken, ok := session.Values["refresh_token"].(string)
	if !ok || refreshToken == "" {
		return false, fmt.Errorf("no refresh token available")
	}

	m.logger.Info().
		Dur("expires_in", timeUntilExpiry).
		Msg("refreshing operator session token")

	tokenSource := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	newToken, err := tokenSource.Token()
	if err != nil {
		return false, fmt.Errorf("failed to refresh token: %w", err)
	}

	session.Values["access_token"] = newToken.AccessToken
	if newToken.RefreshToken != "" {
		session.Values["refresh_token"] = newToken.RefreshToken
	}
	session.Values["token_expiry"] = newToken.Expiry.Unix()

	m.logger.Info().Time("new_expiry", newToken.Expiry).Msg("operator session token refreshed")

	return true, nil
}

// GetAccessToken retrieves the access token from the session.
func (m *Manager) GetAccessToken(session *sessions.Session) (string, error) {
	token, ok := session.Values["access_token"].(string)
	if !ok || token == "" {
		return "", fmt.Errorf("no access token in session")
	}
	return token, nil
}

// generateRandomState generates a cryptographically random state string
// for CSRF protection on the OAuth authorization request.
func generateRandomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
