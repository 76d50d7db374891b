package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/monoculum/formam"

	"github.com/usuwarium/usuwarium/internal/ctxstore"
	"github.com/usuwarium/usuwarium/internal/httputil"
	"github.com/usuwarium/usuwarium/internal/store"
)

func Playlists(rw http.ResponseWriter, r *http.Request) {
	playlists, err := ctxstore.GetStore(r.Context()).Playlists(r.Context())
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, map[string]interface{}{"playlists": playlists})
}

func PlaylistCreate(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		panic(err)
	}

	var input struct {
		Name string `formam:"name"`
	}

	if err := formam.Decode(r.PostForm, &input); err != nil {
		httputil.BadRequest(rw, "could not decode form: "+err.Error())
		return
	}

	if input.Name == "" {
		httputil.BadRequest(rw, "name is required")
		return
	}

	playlist, err := ctxstore.GetStore(r.Context()).CreatePlaylist(r.Context(), input.Name)
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusCreated, playlist)
}

func Playlist(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	s := ctxstore.GetStore(r.Context())

	playlist, err := s.PlaylistByID(r.Context(), vars["id"])
	if err == store.ErrNotFound {
		httputil.NotFound(rw, r)
		return
	} else if err != nil {
		panic(err)
	}

	items, err := s.PlaylistItems(r.Context(), playlist.PlaylistID)
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, map[string]interface{}{
		"playlist": playlist,
		"items":    items,
	})
}

func PlaylistRename(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := r.ParseForm(); err != nil {
		panic(err)
	}

	var input struct {
		Name string `formam:"name"`
	}

	if err := formam.Decode(r.PostForm, &input); err != nil {
		httputil.BadRequest(rw, "could not decode form: "+err.Error())
		return
	}

	if input.Name == "" {
		httputil.BadRequest(rw, "name is required")
		return
	}

	playlist, err := ctxstore.GetStore(r.Context()).RenamePlaylist(r.Context(), vars["id"], input.Name)
	if err == store.ErrNotFound {
		httputil.NotFound(rw, r)
		return
	} else if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, playlist)
}

func PlaylistDelete(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := ctxstore.GetStore(r.Context()).DeletePlaylist(r.Context(), vars["id"]); err == store.ErrNotFound {
		httputil.NotFound(rw, r)
		return
	} else if err != nil {
		panic(err)
	}

	rw.WriteHeader(http.StatusNoContent)
}

func PlaylistSetItems(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := r.ParseForm(); err != nil {
		panic(err)
	}

	var input struct {
		SongIDs []string `formam:"song_ids"`
	}

	if err := formam.Decode(r.PostForm, &input); err != nil {
		httputil.BadRequest(rw, "could not decode form: "+err.Error())
		return
	}

	s := ctxstore.GetStore(r.Context())

	if err := s.SetPlaylistItems(r.Context(), vars["id"], input.SongIDs); err == store.ErrNotFound {
		httputil.NotFound(rw, r)
		return
	} else if err != nil {
		panic(err)
	}

	items, err := s.PlaylistItems(r.Context(), vars["id"])
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, map[string]interface{}{"items": items})
}
