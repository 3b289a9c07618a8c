package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/vaultgram/vaultgram-server/api"
	"github.com/vaultgram/vaultgram-server/internal/config"
	"github.com/vaultgram/vaultgram-server/internal/log"
	"github.com/vaultgram/vaultgram-server/internal/model"
)

// Server is the ops HTTP surface: health, echo and the token-protected
// admin routes. It carries no relay logic.
type Server struct {
	router *chi.Mux
	public chi.Router
	admin  chi.Router
	server *http.Server
}

func New(config *config.Config, logger *slog.Logger) *Server {
	middleware.DefaultLogger = middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.NewLogAdapter(logger)})
	router := chi.NewRouter()
	router.Use(middlewareErrorRecoverer(logger))
	router.Use(middleware.Logger)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.URLFormat)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.RedirectSlashes)
	router.Use(middleware.Timeout(config.API.Timeout))
	router.Use(middleware.Heartbeat("/ping"))

	// Public API group
	public := router.Group(func(r chi.Router) {
		r.Use(middleware.NoCache)

		r.HandleFunc("/echo", echoRoute)
	})

	// Admin API group, disabled without a configured secret.
	var admin chi.Router
	if config.API.Secret != "" {
		admin = router.Group(func(r chi.Router) {
			r.Use(middlewareAuthorization(config.API.Secret))
			r.Use(middleware.NoCache)
		})
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.API.Host, config.API.Port),
		Handler:      router,
		WriteTimeout: config.API.WriteTimeout,
		ReadTimeout:  config.API.ReadTimeout,
		IdleTimeout:  config.API.IdleTimeout,
		ErrorLog:     log.NewLogAdapter(logger),
	}

	return &Server{
		router: router,
		public: public,
		admin:  admin,
		server: server,
	}
}

// AddHealthCheck adds a health check endpoint to the server.
// The statusFunc function should return a map of status information.
func (srv *Server) AddHealthCheck(statusFunc func() (bool, map[string]string)) {
	const bytesInMb = 1024 * 1024

	startedAt := time.Now()

	srv.public.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		ok, status := statusFunc()

		var memStats runtime.MemStats

		runtime.ReadMemStats(&memStats)

		data := map[string]any{
			"status": status,
			"uptime": time.Since(startedAt).String(),
			// Allocated memory / Reserved program memory
			"memory":     fmt.Sprintf("%v Mb / %v Mb", memStats.Alloc/bytesInMb, memStats.Sys/bytesInMb),
			"cpu":        runtime.NumCPU(),
			"goroutines": runtime.NumGoroutine(),
		}

		if ok {
			api.NewResponse().SetData(data).Ok(w)
		} else {
			api.NewResponse().SetError("status_error", "One or more services are not healthy", data).InternalServerError(w)
		}
	})
}

// AddPendingOrders exposes the reconciler's work list on the admin group.
// No-op when the admin group is disabled.
func (srv *Server) AddPendingOrders(ordersFunc func(ctx context.Context) ([]model.Order, error)) {
	if srv.admin == nil {
		return
	}

	srv.admin.Get("/admin/orders", func(w http.ResponseWriter, r *http.Request) {
		orders, err := ordersFunc(r.Context())
		if err != nil {
			api.NewResponse().SetError("storage_error", err.Error()).InternalServerError(w)

			return
		}

		api.NewResponse().SetData(map[string]any{
			"count":  len(orders),
			"orders": orders,
		}).Ok(w)
	})
}

// echo route for testing purposes
func echoRoute(w http.ResponseWriter, r *http.Request) {
	var data map[string]any

	if r.ContentLength != 0 && strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := render.Decode(r, &data); err != nil {
			api.NewResponse().SetError("bad_request", err.Error()).BadRequest(w)

			return
		}
	}

	api.NewResponse().SetData(struct {
		URL     string         `json:"url"`
		Remote  string         `json:"remote"`
		Method  string         `json:"method"`
		Headers http.Header    `json:"headers"`
		Body    map[string]any `json:"body"`
	}{
		URL:     r.URL.String(),
		Remote:  r.RemoteAddr,
		Method:  r.Method,
		Headers: r.Header,
		Body:    data,
	}).Ok(w)
}

// Status returns the server status.
func (srv *Server) Status() (string, error) {
	return "ok", nil
}

// ListenAndServe starts the server and listens for incoming requests.
func (srv *Server) ListenAndServe() error {
	return srv.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server without interrupting any active connections.
func (srv *Server) Shutdown(ctx context.Context) error {
	return srv.server.Shutdown(ctx)
}

// Close closes the server immediately.
func (srv *Server) Close() error {
	return srv.server.Close()
}

// middlewareAuthorization checks the Authorization header for a Bearer token.
func middlewareAuthorization(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")

			if authHeader == "" {
				api.NewResponse().SetError("unauthorized", "Authorization header is required").Unauthorized(w)

				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader { // Not a Bearer token
				api.NewResponse().SetError("unauthorized", "Bearer token is required").Unauthorized(w)

				return
			}

			if token != secret {
				api.NewResponse().SetError("unauthorized", "Invalid Bearer token").Unauthorized(w)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// middlewareErrorRecoverer recovers from handler panics and returns an error response.
func middlewareErrorRecoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if e, ok := err.(error); ok {
						if errors.Is(e, http.ErrAbortHandler) {
							// we don't recover http.ErrAbortHandler so the response
							// to the client is aborted, this should not be logged
							panic(err)
						}
					}

					if r.Header.Get("Connection") == "Upgrade" {
						return
					}

					logger.ErrorContext(context.Background(), "Recovered from panic", slog.String("error", fmt.Sprintf("%v", err)))

					api.NewResponse().SetError("internal_server_error",
						"Internal Server Error",
						map[string]any{
							"error": fmt.Sprintf("%v", err),
							"stack": string(debug.Stack()),
						},
					).InternalServerError(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
