package api

import (
	"encoding/json"
	"net/http"
)

// LoginResponse carries the OAuth authorization URL the frontend redirects
// the operator to.
type LoginResponse struct {
	AuthURL string `json:"authUrl"`
}

// AuthStatusResponse reports the current session's authentication state.
type AuthStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
	UserName      string `json:"userName,omitempty"`
}

// handleLogin initiates the OAuth login flow.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	authURL, state, err := s.authManager.GetAuthorizationURL()
	if err != nil {
		http.Error(w, "Failed to generate authorization URL", http.StatusInternalServerError)
		return
	}

	session, _ := s.sessionStore.Get(r, "breadplan-session")
	session.Values["oauth_state"] = state
	if err := session.Save(r, w); err != nil {
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{AuthURL: authURL})
}

// handleAuthCallback handles the OAuth callback, exchanging the
// authorization code for tokens and establishing the operator session.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessionStore.Get(r, "breadplan-session")

	expectedState, _ := session.Values["oauth_state"].(string)
	if expectedState == "" || r.URL.Query().Get("state") != expectedState {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	tokens, err := s.authManager.ExchangeCodeForTokens(r.Context(), code)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to exchange oauth code")
		http.Error(w, "Failed to exchange authorization code", http.StatusInternalServerError)
		return
	}

	session.Values["authenticated"] = true
	session.Values["access_token"] = tokens.AccessToken
	session.Values["refresh_token"] = tokens.RefreshToken
	session.Values["token_expiry"] = tokens.Expiry.Unix()
	delete(session.Values, "oauth_state")

	if err := session.Save(r, w); err != nil {
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, s.config.FrontendURL, http.StatusFound)
}

// handleLogout clears the operator's session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessionStore.Get(r, "breadplan-session")

	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1

	if err := session.Save(r, w); err != nil {
		http.Error(w, "Failed to clear session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "logged out"})
}

// handleAuthStatus returns the current authentication status.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessionStore.Get(r, "breadplan-session")

	authenticated, _ := session.Values["authenticated"].(bool)
	if !authenticated {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AuthStatusResponse{Authenticated: false})
		return
	}

	userID, _ := session.Values["user_id"].(string)
	userName, _ := session.Values["user_name"].(string)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthStatusResponse{
		Authenticated: true,
		UserID:        userID,
		UserName:      userName,
	})
}
