package session

import (
	"context"
	"net/http"
	"strings"

	dErrors "atelier/pkg/domain-errors"
	"atelier/pkg/platform/httputil"
)

type contextKeySession struct{}

// FromContext retrieves the verified session from the request context.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKeySession{}).(Session)
	return s, ok
}

// Guard rejects requests without a valid bearer session token and injects the
// verified session into the request context.
func Guard(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session token is required"))
				return
			}

			sess, err := svc.Verify(token)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), contextKeySession{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
