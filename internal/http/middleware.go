package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// AgentContextKey holds the authenticated *domain.Agent.
var AgentContextKey = &contextKey{"Agent"}

type contextKey struct {
	name string
}

// AgentAuthenticator resolves a device token to an active agent.
type AgentAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Agent, error)
}

// DeviceTokenAuth checks "Authorization: Bearer <device token>" and puts the
// agent into the request context.
func DeviceTokenAuth(auth AgentAuthenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, Fail("missing device token"))
				return
			}
			agent, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, logger, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), AgentContextKey, agent)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func agentFrom(r *http.Request) *domain.Agent {
	agent, _ := r.Context().Value(AgentContextKey).(*domain.Agent)
	return agent
}

// AdminToken guards operator routes with X-Admin-Token. An empty configured
// token disables the admin API.
func AdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Admin-Token")
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, Fail("admin token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger writes one zap line per request.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("HTTP request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
