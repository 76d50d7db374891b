package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usuwarium/usuwarium/internal/ctxclock"
	"github.com/usuwarium/usuwarium/models"
)

func testStore(t *testing.T) (context.Context, *Store) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// a pooled :memory: database is a different database per connection
	db.SetMaxOpenConns(1)

	s := New(db)

	ctx := ctxclock.WithClock(context.Background(), ctxclock.NewRealClock())

	require.NoError(t, s.Migrate(ctx))

	return ctx, s
}

func TestReplaceVideos(t *testing.T) {
	a := assert.New(t)

	ctx, s := testStore(t)

	first := []models.Video{
		{VideoID: "v1", Title: "one", Tags: []string{"歌枠"}, Available: true},
		{VideoID: "v2", Title: "two", Available: false},
	}

	a.NoError(s.ReplaceVideos(ctx, first))

	n, err := s.VideoCount(ctx)
	a.NoError(err)
	a.Equal(2, n)

	second := []models.Video{
		{VideoID: "v3", Title: "three", Available: true},
	}

	a.NoError(s.ReplaceVideos(ctx, second))

	n, err = s.VideoCount(ctx)
	a.NoError(err)
	a.Equal(1, n)

	videos, err := s.Videos(ctx)
	a.NoError(err)
	a.Len(videos, 1)
	a.Equal("v3", videos[0].VideoID)
}

func TestReplaceVideosIdempotent(t *testing.T) {
	a := assert.New(t)

	ctx, s := testStore(t)

	videos := []models.Video{
		{VideoID: "v1", Title: "one", Tags: []string{"a", "b"}},
	}

	a.NoError(s.ReplaceVideos(ctx, videos))
	a.NoError(s.ReplaceVideos(ctx, videos))

	got, err := s.Videos(ctx)
	a.NoError(err)
	a.Len(got, 1)
	a.Equal([]string{"a", "b"}, []string(got[0].Tags))
}

func TestLastFetch(t *testing.T) {
	a := assert.New(t)

	ctx, s := testStore(t)

	_, ok, err := s.LastFetch(ctx)
	a.NoError(err)
	a.False(ok)

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	a.NoError(s.SetLastFetch(ctx, at))

	got, ok, err := s.LastFetch(ctx)
	a.NoError(err)
	a.True(ok)
	a.Equal(at.UnixMilli(), got.UnixMilli())

	later := at.Add(time.Hour)

	a.NoError(s.SetLastFetch(ctx, later))

	got, ok, err = s.LastFetch(ctx)
	a.NoError(err)
	a.True(ok)
	a.Equal(later.UnixMilli(), got.UnixMilli())
}

func TestSongsByVideoID(t *testing.T) {
	a := assert.New(t)

	ctx, s := testStore(t)

	a.NoError(s.ReplaceSongs(ctx, []models.Song{
		{SongID: "s1", VideoID: "v1", Title: "b", Artist: "x", StartTime: 100, Edited: true},
		{SongID: "s2", VideoID: "v1", Title: "a", Artist: "x", StartTime: 10, Edited: true},
		{SongID: "s3", VideoID: "v1", Title: "c", Artist: "x", StartTime: 50, Edited: false},
		{SongID: "s4", VideoID: "v2", Title: "d", Artist: "x", StartTime: 0, Edited: true},
	}))

	songs, err := s.SongsByVideoID(ctx, "v1")
	a.NoError(err)
	a.Len(songs, 2)
	a.Equal("s2", songs[0].SongID)
	a.Equal("s1", songs[1].SongID)
}

func TestVideoByVideoID(t *testing.T) {
	a := assert.New(t)

	ctx, s := testStore(t)

	a.NoError(s.ReplaceVideos(ctx, []models.Video{{VideoID: "v1", Title: "one"}}))

	video, err := s.VideoByVideoID(ctx, "v1")
	a.NoError(err)
	a.Equal("one", video.Title)

	_, err = s.VideoByVideoID(ctx, "missing")
	a.ErrorIs(err, ErrNotFound)
}

func TestPlaylists(t *testing.T) {
	a := assert.New(t)

	ctx, s := testStore(t)

	playlist, err := s.CreatePlaylist(ctx, "favourites")
	a.NoError(err)
	a.NotEmpty(playlist.PlaylistID)
	a.Equal("favourites", playlist.Name)

	a.NoError(s.SetPlaylistItems(ctx, playlist.PlaylistID, []string{"s2", "s1", "s3"}))

	items, err := s.PlaylistItems(ctx, playlist.PlaylistID)
	a.NoError(err)
	a.Len(items, 3)
	a.Equal("s2", items[0].SongID)
	a.Equal(0, items[0].Position)
	a.Equal("s3", items[2].SongID)

	renamed, err := s.RenamePlaylist(ctx, playlist.PlaylistID, "best of")
	a.NoError(err)
	a.Equal("best of", renamed.Name)

	_, err = s.RenamePlaylist(ctx, "missing", "nope")
	a.ErrorIs(err, ErrNotFound)

	a.NoError(s.DeletePlaylist(ctx, playlist.PlaylistID))
	a.ErrorIs(s.DeletePlaylist(ctx, playlist.PlaylistID), ErrNotFound)

	items, err = s.PlaylistItems(ctx, playlist.PlaylistID)
	a.NoError(err)
	a.Empty(items)
}
