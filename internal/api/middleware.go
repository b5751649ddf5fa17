package api

import "net/http"

// adminMiddleware restricts a route to sessions flagged as an operator
// with administrative privileges.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := s.sessionStore.Get(r, "breadplan-session")

		isAdmin, _ := session.Values["is_admin"].(bool)
		if !isAdmin {
			http.Error(w, "Forbidden: administrator role required", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
