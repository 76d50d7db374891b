package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/monoculum/formam"

	"github.com/usuwarium/usuwarium/internal/catalog"
	"github.com/usuwarium/usuwarium/internal/ctxstore"
	"github.com/usuwarium/usuwarium/internal/httputil"
	"github.com/usuwarium/usuwarium/internal/search"
	"github.com/usuwarium/usuwarium/internal/store"
)

func Videos(rw http.ResponseWriter, r *http.Request) {
	var input catalog.VideoQuery
	if err := formam.Decode(r.URL.Query(), &input); err != nil {
		httputil.BadRequest(rw, "could not decode query parameters: "+err.Error())
		return
	}

	page, err := catalog.New(ctxstore.GetStore(r.Context())).QueryVideos(r.Context(), input)
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, page)
}

func Video(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	s := ctxstore.GetStore(r.Context())

	video, err := s.VideoByVideoID(r.Context(), vars["id"])
	if err == store.ErrNotFound {
		httputil.NotFound(rw, r)
		return
	} else if err != nil {
		panic(err)
	}

	songs, err := s.SongsByVideoID(r.Context(), video.VideoID)
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, map[string]interface{}{
		"video": video,
		"songs": songs,
	})
}

func VideoSongs(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	songs, err := ctxstore.GetStore(r.Context()).SongsByVideoID(r.Context(), vars["id"])
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, map[string]interface{}{"songs": songs})
}

type quickFilterInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func QuickFilters(rw http.ResponseWriter, r *http.Request) {
	filters := make([]quickFilterInfo, 0, len(search.QuickFilters))
	for _, f := range search.QuickFilters {
		filters = append(filters, quickFilterInfo{Key: f.Key, Label: f.Label})
	}

	httputil.WriteJSON(rw, http.StatusOK, map[string]interface{}{"filters": filters})
}
