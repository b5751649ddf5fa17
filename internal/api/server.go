package api

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/pinggolf/breadplan/internal/auth"
	"github.com/pinggolf/breadplan/internal/config"
	"github.com/pinggolf/breadplan/internal/db"
	"github.com/pinggolf/breadplan/internal/queue"
	"github.com/pinggolf/breadplan/internal/services"
)

// Server is the planning dashboard's HTTP API: solve job submission and
// status, audit log queries, and operator login.
type Server struct {
	config       *config.Config
	db           *db.Queries
	router       *mux.Router
	sessionStore sessions.Store
	authManager  *auth.Manager
	natsManager  *queue.Manager
	auditService *services.AuditService
	rateLimiter  *services.RateLimiterService
	logger       zerolog.Logger
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config, queries *db.Queries, natsManager *queue.Manager, database *sql.DB, logger zerolog.Logger) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}

	authManager := auth.NewManager(cfg, sessionStore, logger)
	auditService := services.NewAuditService(queries)
	rateLimiter := services.NewRateLimiterService(cfg.SolveRequestsPerSecond, cfg.SolveBurstSize)

	s := &Server{
		config:       cfg,
		db:           queries,
		router:       mux.NewRouter(),
		sessionStore: sessionStore,
		authManager:  authManager,
		natsManager:  natsManager,
		auditService: auditService,
		rateLimiter:  rateLimiter,
		logger:       logger,
	}

	s.setupRoutes()
	return s
}

// Router returns the configured HTTP router with CORS.
func (s *Server) Router() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{s.config.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: s.config.CORSAllowCredentials,
		MaxAge:           300,
	})

	return c.Handler(s.router)
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	authRouter := api.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/login", s.handleLogin).Methods("POST")
	authRouter.HandleFunc("/callback", s.handleAuthCallback).Methods("GET")
	authRouter.HandleFunc("/logout", s.handleLogout).Methods("POST")
	authRouter.HandleFunc("/status", s.handleAuthStatus).Methods("GET")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(s.authMiddleware)

	protected.HandleFunc("/solve-jobs", s.handleSubmitSolveJob).Methods("POST")
	protected.HandleFunc("/solve-jobs", s.handleListSolveJobs).Methods("GET")
	protected.HandleFunc("/solve-jobs/{jobId}", s.handleGetSolveJob).Methods("GET")
	protected.HandleFunc("/solve-jobs/{jobId}/cancel", s.handleCancelSolveJob).Methods("POST")
	protected.HandleFunc("/solve-jobs/{jobId}/progress", s.handleSolveJobProgress).Methods("GET")

	protected.HandleFunc("/audit-log", s.handleListAuditLogs).Methods("GET")
}

// authMiddleware checks that the request carries an authenticated session.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := s.sessionStore.Get(r, "breadplan-session")

		authenticated, ok := session.Values["authenticated"].(bool)
		if !ok || !authenticated {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		refreshed, err := s.authManager.RefreshTokenIfNeeded(r.Context(), session)
		if err != nil {
			http.Error(w, "Authentication expired", http.StatusUnauthorized)
			return
		}

		if refreshed {
			if err := session.Save(r, w); err != nil {
				s.logger.Warn().Err(err).Msg("failed to save session after token refresh")
			}
		}

		next.ServeHTTP(w, r)
	})
}

// principalFromRequest identifies the submitting operator for rate limiting
// and job attribution, falling back to the client address when no session
// user is set (e.g. a service-account caller).
func (s *Server) principalFromRequest(r *http.Request) string {
	session, _ := s.sessionStore.Get(r, "breadplan-session")
	if userID, ok := session.Values["user_id"].(string); ok && userID != "" {
		return userID
	}
	return r.RemoteAddr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
