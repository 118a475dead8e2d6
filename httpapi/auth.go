package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/yplabs-ltd/codepush-server/access"
	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/store"
)

type contextKey int

const accountIDKey contextKey = iota

// authMiddleware resolves the bearer access key to an accountId and stores
// it on the request context (spec §4.8, §6 "Authentication").
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, apierrors.New(apierrors.KindUnauthorized, "missing bearer token"))
			return
		}

		var accountID string
		err := s.db.Exec(func(q store.Querier) error {
			var err error
			accountID, err = access.AuthenticateAccessKey(r.Context(), q, token)
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), accountIDKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(h, prefix) {
		return strings.TrimPrefix(h, prefix)
	}
	return ""
}

func accountIDFromContext(r *http.Request) string {
	v, _ := r.Context().Value(accountIDKey).(string)
	return v
}
