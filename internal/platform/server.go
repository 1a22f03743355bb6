package platform

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerConfig holds HTTP server tunables.
type HTTPServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	EnableTLS    bool   // whether to use HTTPS
	CertFile     string // path to TLS certificate
	KeyFile      string // path to TLS private key
	SessionKey   string // cookie store authentication key
}

const sessionName = "autopilot"

// SessionMiddleware assigns or loads the session id and sets it in the
// request context.
func SessionMiddleware(store sessions.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := store.Get(r, sessionName)
			id, ok := sess.Values["id"].(string)
			if !ok || id == "" {
				id = uuid.NewString()
				sess.Values["id"] = id
				sess.Options = &sessions.Options{
					Path:     "/",
					MaxAge:   60 * 60 * 24 * 7, // 1 week
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				}
				_ = sess.Save(r, w)
			}
			ctx := context.WithValue(r.Context(), sessionCtxKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRouter builds the HTTP API over svc.
func NewRouter(svc *Services, cfg HTTPServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(SessionMiddleware(sessions.NewCookieStore([]byte(cfg.SessionKey))))
	r.Use(chiLogger)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/health", Health)

	r.Route("/api/layouts", func(r chi.Router) {
		r.Get("/", ListLayouts(svc.Layout))
		r.Post("/", SaveLayout(svc.Layout))
		r.Get("/{id}", GetLayout(svc.Layout))
		r.Patch("/{id}", PatchLayout(svc.Layout))
		r.Delete("/{id}", DeleteLayout(svc.Layout))
		r.Get("/{id}/preview", PreviewLayout(svc.Layout))
	})

	r.Get("/ui/layouts", LayoutStream(svc))
	return r
}

// RunHTTPServer starts an HTTP server and returns a channel that will receive
// an error when the server exits (gracefully or not).
func RunHTTPServer(ctx context.Context, svc *Services, cfg HTTPServerConfig) <-chan error {
	errCh := make(chan error, 1)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(svc, cfg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		// wait for context cancellation then shutdown
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errCh <- err
			return
		}
		errCh <- ctx.Err()
	}()

	go func() {
		slog.Info("http server listening", "addr", srv.Addr, "tls", cfg.EnableTLS)
		var err error
		if cfg.EnableTLS {
			err = srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	return errCh
}

// chiLogger is a lightweight slog adapter for chi middleware.
func chiLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(t0)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, routePattern, fmt.Sprint(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, routePattern).Observe(duration.Seconds())
		slog.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"route", routePattern,
			"status", status,
			"duration", duration,
			"request_id", middleware.GetReqID(r.Context()),
			"session", SessionID(r),
		)
	})
}

type sessionCtxKey struct{}

// SessionID returns the session ID from the request context.
func SessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionCtxKey{}).(string)
	return id
}
