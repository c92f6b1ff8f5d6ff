package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/server/services"
)

type identityKey struct{}

type contextSetter interface {
	SetContext(context.Context)
}

// guard rejects requests without a live bearer token with 401 before any
// handler runs, and stores the resolved identity in the request context.
func (r *Router) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		token, err := bearerToken(req.Header.Get(common.AuthorizationHeaderName))
		if err != nil {
			r.log.Warn(req.Context(), "authorization header invalid", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, msgUnauthenticated)
			return
		}

		id, err := r.users.Authenticate(req.Context(), token)
		if err != nil {
			if errors.Is(err, common.ErrorUnauthorized) {
				r.log.Warn(req.Context(), "token validation failed", "error", err, "path", req.URL.Path)
				writeError(w, http.StatusUnauthorized, msgUnauthenticated)
				return
			}
			r.writeServiceError(w, req, err)
			return
		}

		ctx := context.WithValue(req.Context(), identityKey{}, id)
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// identityFromContext returns the identity stored by guard.
func identityFromContext(ctx context.Context) (*services.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*services.Identity)
	return id, ok && id != nil
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", common.ErrMissingToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], common.BearerScheme) {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}
