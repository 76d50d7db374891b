package handlers

import (
	"net/http"

	"github.com/usuwarium/usuwarium/internal/catalog"
	"github.com/usuwarium/usuwarium/internal/ctxstore"
	"github.com/usuwarium/usuwarium/internal/httputil"
)

func Artists(rw http.ResponseWriter, r *http.Request) {
	artists, err := catalog.New(ctxstore.GetStore(r.Context())).Artists(r.Context())
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, map[string]interface{}{"artists": artists})
}

func Titles(rw http.ResponseWriter, r *http.Request) {
	titles, err := catalog.New(ctxstore.GetStore(r.Context())).Titles(r.Context(), r.URL.Query().Get("artist"))
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, map[string]interface{}{"titles": titles})
}
