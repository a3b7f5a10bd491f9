package auth

import (
	"context"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/assessment"
)

type ctxKey string

const ctxKeyActor ctxKey = "actor"

// ActorFromContext returns the authenticated caller, if any.
func ActorFromContext(ctx context.Context) (assessment.Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(assessment.Actor)
	return a, ok && a.ID != ""
}
