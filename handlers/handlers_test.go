package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usuwarium/usuwarium/internal/ctxclock"
	"github.com/usuwarium/usuwarium/internal/ctxstore"
	"github.com/usuwarium/usuwarium/internal/store"
	"github.com/usuwarium/usuwarium/models"
)

func testRouter(t *testing.T) (*mux.Router, *store.Store) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// a pooled :memory: database is a different database per connection
	db.SetMaxOpenConns(1)

	s := store.New(db)

	ctx := ctxclock.WithClock(context.Background(), ctxclock.NewRealClock())
	require.NoError(t, s.Migrate(ctx))

	m := mux.NewRouter()

	m.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rctx := r.Context()
			rctx = ctxclock.WithClock(rctx, ctxclock.NewRealClock())
			rctx = ctxstore.WithStore(rctx, s)
			next.ServeHTTP(rw, r.WithContext(rctx))
		})
	})

	m.Methods(http.MethodGet).Path("/api/videos").HandlerFunc(Videos)
	m.Methods(http.MethodGet).Path("/api/videos/{id}").HandlerFunc(Video)
	m.Methods(http.MethodGet).Path("/api/filters").HandlerFunc(QuickFilters)
	m.Methods(http.MethodGet).Path("/api/playlists").HandlerFunc(Playlists)
	m.Methods(http.MethodPost).Path("/api/playlists").HandlerFunc(PlaylistCreate)
	m.Methods(http.MethodGet).Path("/api/playlists/{id}").HandlerFunc(Playlist)
	m.Methods(http.MethodDelete).Path("/api/playlists/{id}").HandlerFunc(PlaylistDelete)

	return m, s
}

func doRequest(m *mux.Router, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	res := httptest.NewRecorder()
	m.ServeHTTP(res, req)

	return res
}

func TestVideosEndpoint(t *testing.T) {
	a := assert.New(t)

	m, s := testRouter(t)

	ctx := ctxclock.WithClock(context.Background(), ctxclock.NewRealClock())

	require.NoError(t, s.ReplaceVideos(ctx, []models.Video{
		{VideoID: "v1", Title: "morning chat", LikeCount: 5, PublishedAt: "2024-01-01T00:00:00Z", Available: true},
		{VideoID: "v2", Title: "song stream", LikeCount: 10, PublishedAt: "2024-02-01T00:00:00Z", Available: true},
	}))

	res := doRequest(m, http.MethodGet, "/api/videos?sort=like_count&order=desc", nil)
	a.Equal(http.StatusOK, res.Code)

	var page struct {
		Videos     []models.Video `json:"videos"`
		TotalCount int            `json:"total_count"`
		Page       int            `json:"page"`
	}
	a.NoError(json.Unmarshal(res.Body.Bytes(), &page))

	a.Equal(2, page.TotalCount)
	a.Equal(1, page.Page)
	if a.Len(page.Videos, 2) {
		a.Equal("v2", page.Videos[0].VideoID)
		a.Equal("v1", page.Videos[1].VideoID)
	}
}

func TestVideosEndpointBadQuery(t *testing.T) {
	a := assert.New(t)

	m, _ := testRouter(t)

	res := doRequest(m, http.MethodGet, "/api/videos?page=abc", nil)
	a.Equal(http.StatusBadRequest, res.Code)
}

func TestVideoEndpointNotFound(t *testing.T) {
	a := assert.New(t)

	m, _ := testRouter(t)

	res := doRequest(m, http.MethodGet, "/api/videos/nope", nil)
	a.Equal(http.StatusNotFound, res.Code)
}

func TestQuickFiltersEndpoint(t *testing.T) {
	a := assert.New(t)

	m, _ := testRouter(t)

	res := doRequest(m, http.MethodGet, "/api/filters", nil)
	a.Equal(http.StatusOK, res.Code)

	var body struct {
		Filters []struct {
			Key   string `json:"key"`
			Label string `json:"label"`
		} `json:"filters"`
	}
	a.NoError(json.Unmarshal(res.Body.Bytes(), &body))
	a.NotEmpty(body.Filters)
}

func TestPlaylistLifecycle(t *testing.T) {
	a := assert.New(t)

	m, _ := testRouter(t)

	res := doRequest(m, http.MethodPost, "/api/playlists", url.Values{"name": {"favourites"}})
	a.Equal(http.StatusCreated, res.Code)

	var playlist models.Playlist
	a.NoError(json.Unmarshal(res.Body.Bytes(), &playlist))
	a.NotEmpty(playlist.PlaylistID)
	a.Equal("favourites", playlist.Name)

	res = doRequest(m, http.MethodGet, "/api/playlists/"+playlist.PlaylistID, nil)
	a.Equal(http.StatusOK, res.Code)

	res = doRequest(m, http.MethodDelete, "/api/playlists/"+playlist.PlaylistID, nil)
	a.Equal(http.StatusNoContent, res.Code)

	res = doRequest(m, http.MethodGet, "/api/playlists/"+playlist.PlaylistID, nil)
	a.Equal(http.StatusNotFound, res.Code)
}

func TestPlaylistCreateRequiresName(t *testing.T) {
	a := assert.New(t)

	m, _ := testRouter(t)

	res := doRequest(m, http.MethodPost, "/api/playlists", url.Values{})
	a.Equal(http.StatusBadRequest, res.Code)
}
