package ctxstore

import (
	"context"
	"net/http"

	"github.com/usuwarium/usuwarium/internal/store"
)

// context registration

var storeKey int

func WithStore(ctx context.Context, s *store.Store) context.Context {
	return context.WithValue(ctx, &storeKey, s)
}

func GetStore(ctx context.Context) *store.Store {
	if v := ctx.Value(&storeKey); v != nil {
		return v.(*store.Store)
	}

	return nil
}

// middleware

func Register(s *store.Store) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithStore(r.Context(), s)))
	}
}
