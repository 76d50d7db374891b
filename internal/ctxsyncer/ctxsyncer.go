package ctxsyncer

import (
	"context"
	"net/http"

	"github.com/usuwarium/usuwarium/internal/syncer"
)

// context registration

var syncerKey int

func WithSyncer(ctx context.Context, s *syncer.Syncer) context.Context {
	return context.WithValue(ctx, &syncerKey, s)
}

func GetSyncer(ctx context.Context) *syncer.Syncer {
	if v := ctx.Value(&syncerKey); v != nil {
		return v.(*syncer.Syncer)
	}

	return nil
}

// middleware

func Register(s *syncer.Syncer) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithSyncer(r.Context(), s)))
	}
}
