package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-recurring-orders/internal/authz"
)

type PrincipalResolver interface {
	Resolve(ctx context.Context, authorization string) (*authz.Principal, error)
}

// Registrar mounts a group of API routes.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the API router. Routes added by handlers run behind the
// bearer token middleware; /healthz and /metrics do not.
func NewRouter(resolver PrincipalResolver, log *zap.Logger, handlers ...Registrar) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	api := r.With(authenticate(resolver, log))
	for _, h := range handlers {
		h.Register(api)
	}
	return r
}

// authenticate attaches the bearer token's principal to the request context.
// Requests without a token continue anonymously.
func authenticate(resolver PrincipalResolver, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				log.Info("rejected access token", zap.Error(err), zap.String("request_id", middleware.GetReqID(r.Context())))
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid access token"})
				return
			}
			next.ServeHTTP(w, r.WithContext(authz.WithPrincipal(r.Context(), p)))
		})
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
