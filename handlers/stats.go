package handlers

import (
	"net/http"

	"github.com/monoculum/formam"

	"github.com/usuwarium/usuwarium/internal/catalog"
	"github.com/usuwarium/usuwarium/internal/ctxstore"
	"github.com/usuwarium/usuwarium/internal/httputil"
)

func Stats(rw http.ResponseWriter, r *http.Request) {
	var input catalog.StatsQuery
	if err := formam.Decode(r.URL.Query(), &input); err != nil {
		httputil.BadRequest(rw, "could not decode query parameters: "+err.Error())
		return
	}

	stats, err := catalog.New(ctxstore.GetStore(r.Context())).SongStats(r.Context(), input)
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, stats)
}
