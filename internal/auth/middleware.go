package auth

import (
	"context"
	"net/http"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/models"
)

type contextKey struct{}

// UserSyncer mirrors an authenticated principal into local storage.
type UserSyncer interface {
	Sync(ctx context.Context, id, email, name string) (*models.User, error)
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFrom returns the principal stored by the middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// Middleware authenticates every request. Requests without a valid bearer
// token get a 401 and never reach next. Every authenticated principal is
// passed to users.Sync, which must be idempotent.
func Middleware(a *Auth, users UserSyncer, logger log.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.PrincipalFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				logger.WithError(err).Debug("rejecting unauthenticated request")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if users != nil {
				if _, err := users.Sync(r.Context(), p.ID, p.Email, p.Name); err != nil {
					logger.WithError(err).WithField("user_id", p.ID).Error("user sync failed")
					writeError(w, http.StatusInternalServerError, "internal server error")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *p)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	body, _ := sonic.Marshal(map[string]string{"error": msg})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
