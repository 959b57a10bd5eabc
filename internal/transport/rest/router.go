package rest

import (
	"brandwatch/internal/config"
	"brandwatch/internal/logging"
	"brandwatch/internal/transport/rest/handler"
	"brandwatch/internal/transport/rest/middleware"
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

// Auth is what the router needs from the operator auth service
type Auth interface {
	handler.Authenticator
	middleware.TokenValidator
}

// Control is the orchestrator surface exposed over HTTP
type Control interface {
	handler.PostSubmitter
	handler.VerifyEnqueuer
	handler.ResponsePublisher
}

// Container holds all dependencies for the router
type Container struct {
	Auth      Auth
	Control   Control
	Threats   handler.ThreatReader
	Responses handler.ResponseReader
	Events    http.HandlerFunc
	Metrics   http.Handler
	Health    func(ctx context.Context) error
	Logger    logging.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.Auth)
	postHandler := handler.NewPostHandler(c.Control, c.Logger)
	threatHandler := handler.NewThreatHandler(c.Threats, c.Control)
	responseHandler := handler.NewResponseHandler(c.Responses, c.Control)

	authMW := middleware.NewAuthMiddleware(c.Auth)

	r.Use(corsMiddleware)
	r.Use(middleware.RequestLogger(c.Logger))

	r.HandleFunc("/health", healthHandler(c.Health)).Methods("GET")
	if c.Metrics != nil {
		r.Handle("/metrics", c.Metrics).Methods("GET")
	}

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// token travels in the query string for websocket clients
	if c.Events != nil {
		v1.HandleFunc("/ws/events", c.Events).Methods("GET")
	}

	// Operator routes
	op := v1.NewRoute().Subrouter()
	op.Use(authMW.RequireOperator)

	op.HandleFunc("/posts", postHandler.Submit).Methods("POST", "OPTIONS")
	op.HandleFunc("/threats/{id}", threatHandler.Get).Methods("GET", "OPTIONS")
	op.HandleFunc("/threats/{id}/verify", threatHandler.Verify).Methods("POST", "OPTIONS")
	op.HandleFunc("/responses/{id}", responseHandler.Get).Methods("GET", "OPTIONS")
	op.HandleFunc("/responses/{id}/publish", responseHandler.Publish).Methods("POST", "OPTIONS")

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := config.GetEnv("CORS_ALLOWED_ORIGINS", "*")
	allowedMethods := config.GetEnv("CORS_ALLOWED_METHODS", "GET, POST, OPTIONS")
	allowedHeaders := config.GetEnv("CORS_ALLOWED_HEADERS", "Content-Type, Authorization")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

