package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/assessment"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

// UserLookup loads accounts by id.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (assessment.User, error)
}

// AttachUser replaces the identity from the token with the stored account,
// so role, approval and subject changes apply without a new login. Tokens
// of deleted accounts are rejected. Must run after JWTMiddleware.
func AttachUser(users UserLookup, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claimed, ok := ActorFromContext(ctx)
			if !ok {
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}
			u, err := users.GetUser(ctx, claimed.ID)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithActor(ctx, assessment.ActorOf(u))))
			case exam.KindOf(err) == exam.KindNotFound:
				http.Error(w, "account no longer exists", http.StatusUnauthorized)
			default:
				log.Error("load user", zap.String("user_id", claimed.ID), zap.Error(err))
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		})
	}
}
