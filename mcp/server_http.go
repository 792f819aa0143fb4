package mcp

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/campaign-scout/internal/api"
)

// HTTPOptions configures the HTTP front-end.
type HTTPOptions struct {
	Addr           string
	APIKey         string
	AllowedOrigins []string
}

// NewHTTPHandler routes /healthz, /mcp and the /crawl endpoints. Everything
// except /healthz requires the bearer token when apiKey is set.
func NewHTTPHandler(deps Deps, apiKey string, allowedOrigins []string) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Mcp-Session-Id"},
		ExposedHeaders:   []string{"Mcp-Session-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		if apiKey != "" {
			r.Use(func(next http.Handler) http.Handler { return bearerAuth(apiKey, next) })
		}
		r.Handle("/mcp", server.NewStreamableHTTPServer(newServer(deps), server.WithStateLess(true)))
		r.Mount("/crawl", api.NewHandler(deps.Scanner, deps.DefaultSession, logger).Routes())
	})

	return r
}

// ServeHTTP starts the MCP and crawl endpoints over HTTP.
func ServeHTTP(deps Deps, opts HTTPOptions) error {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// No WriteTimeout: a full scan and its event stream outlive any fixed bound.
	srv := &http.Server{
		Addr:        opts.Addr,
		Handler:     NewHTTPHandler(deps, opts.APIKey, opts.AllowedOrigins),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	logger.Info("campaign scout HTTP server listening", "addr", opts.Addr, "auth", opts.APIKey != "")
	return srv.ListenAndServe()
}

func bearerAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="scout"`)
			http.Error(w, `{"error":"missing Authorization header"}`, http.StatusUnauthorized)
			return
		}
		token, found := strings.CutPrefix(auth, "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="scout", error="invalid_token"`)
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
