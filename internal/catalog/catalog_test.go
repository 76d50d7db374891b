package catalog

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usuwarium/usuwarium/internal/ctxclock"
	"github.com/usuwarium/usuwarium/internal/store"
	"github.com/usuwarium/usuwarium/models"
)

func testCatalog(t *testing.T) (context.Context, *Catalog, *store.Store) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetMaxOpenConns(1)

	s := store.New(db)

	ctx := ctxclock.WithClock(context.Background(), ctxclock.NewRealClock())

	require.NoError(t, s.Migrate(ctx))

	return ctx, New(s), s
}

func seedVideos(t *testing.T, ctx context.Context, s *store.Store) {
	require.NoError(t, s.ReplaceVideos(ctx, []models.Video{
		{VideoID: "v1", Title: "【歌枠】朝うた", PublishedAt: "2024-01-01T00:00:00Z", Tags: []string{"歌枠"}, ViewCount: 500, LikeCount: 50},
		{VideoID: "v2", Title: "新曲MV", PublishedAt: "2024-03-01T00:00:00Z", Tags: []string{"MV", "オリジナル曲"}, ViewCount: 9000, LikeCount: 900},
		{VideoID: "v3", Title: "踊ってみた", PublishedAt: "2024-02-01T00:00:00Z", Tags: []string{"MV", "踊ってみた"}, ViewCount: 3000, LikeCount: 300},
		{VideoID: "v4", Title: "【歌枠】夜うた", PublishedAt: "2024-04-01T00:00:00Z", Tags: []string{"歌枠", "雑談"}, ViewCount: 700, LikeCount: 70},
	}))
}

func TestQueryVideosSheetOrder(t *testing.T) {
	a := assert.New(t)

	ctx, c, s := testCatalog(t)
	seedVideos(t, ctx, s)

	page, err := c.QueryVideos(ctx, VideoQuery{})
	a.NoError(err)
	a.Equal(4, page.TotalCount)
	a.Equal("v1", page.Videos[0].VideoID)
	a.Equal("v4", page.Videos[3].VideoID)
}

func TestQueryVideosSort(t *testing.T) {
	a := assert.New(t)

	ctx, c, s := testCatalog(t)
	seedVideos(t, ctx, s)

	page, err := c.QueryVideos(ctx, VideoQuery{SortBy: "published_at"})
	a.NoError(err)
	a.Equal("v4", page.Videos[0].VideoID)
	a.Equal("v1", page.Videos[3].VideoID)

	page, err = c.QueryVideos(ctx, VideoQuery{SortBy: "view_count", SortOrder: "asc"})
	a.NoError(err)
	a.Equal("v1", page.Videos[0].VideoID)
	a.Equal("v2", page.Videos[3].VideoID)

	page, err = c.QueryVideos(ctx, VideoQuery{SortBy: "like_count", SortOrder: "desc"})
	a.NoError(err)
	a.Equal("v2", page.Videos[0].VideoID)
}

func TestQueryVideosPagination(t *testing.T) {
	a := assert.New(t)

	ctx, c, s := testCatalog(t)
	seedVideos(t, ctx, s)

	page, err := c.QueryVideos(ctx, VideoQuery{SortBy: "published_at", Page: 2, PerPage: 3})
	a.NoError(err)
	a.Equal(4, page.TotalCount)
	a.Len(page.Videos, 1)
	a.Equal("v1", page.Videos[0].VideoID)

	// beyond the last page
	page, err = c.QueryVideos(ctx, VideoQuery{Page: 10, PerPage: 3})
	a.NoError(err)
	a.Equal(4, page.TotalCount)
	a.Empty(page.Videos)
}

func TestQueryVideosFilterAndSearch(t *testing.T) {
	a := assert.New(t)

	ctx, c, s := testCatalog(t)
	seedVideos(t, ctx, s)

	page, err := c.QueryVideos(ctx, VideoQuery{Filter: "mv"})
	a.NoError(err)
	a.Equal(1, page.TotalCount)
	a.Equal("v2", page.Videos[0].VideoID)

	page, err = c.QueryVideos(ctx, VideoQuery{Search: "歌枠 -雑談"})
	a.NoError(err)
	a.Equal(1, page.TotalCount)
	a.Equal("v1", page.Videos[0].VideoID)

	// total reflects the filtered set, not the page
	page, err = c.QueryVideos(ctx, VideoQuery{Search: "歌枠", PerPage: 1})
	a.NoError(err)
	a.Equal(2, page.TotalCount)
	a.Len(page.Videos, 1)
}

func seedSongs(t *testing.T, ctx context.Context, s *store.Store) {
	require.NoError(t, s.ReplaceSongs(ctx, []models.Song{
		{SongID: "s1", VideoID: "v1", VideoTitle: "【歌枠】朝うた", VideoPublishedAt: "2024-01-01T00:00:00Z", Title: "アイドル", Artist: "YOASOBI", StartTime: 300, Edited: true},
		{SongID: "s2", VideoID: "v1", VideoTitle: "【歌枠】朝うた", VideoPublishedAt: "2024-01-01T00:00:00Z", Title: "夜に駆ける", Artist: "YOASOBI", StartTime: 100, Edited: true},
		{SongID: "s3", VideoID: "v4", VideoTitle: "【歌枠】夜うた", VideoPublishedAt: "2024-04-01T00:00:00Z", Title: "残酷な天使のテーゼ", Artist: "高橋洋子", StartTime: 50, Edited: true},
		{SongID: "s4", VideoID: "v4", VideoTitle: "【歌枠】夜うた", VideoPublishedAt: "2024-04-01T00:00:00Z", Title: "未編集のうた", Artist: "誰か", StartTime: 500, Edited: false},
	}))
}

func TestQuerySongsEditedOnly(t *testing.T) {
	a := assert.New(t)

	ctx, c, s := testCatalog(t)
	seedSongs(t, ctx, s)

	list, err := c.QuerySongs(ctx, SongQuery{})
	a.NoError(err)
	a.Equal(3, list.TotalCount)
	for _, song := range list.Songs {
		a.True(song.Edited)
	}
}

func TestQuerySongsPublishedAtTieBreak(t *testing.T) {
	a := assert.New(t)

	ctx, c, s := testCatalog(t)
	seedSongs(t, ctx, s)

	list, err := c.QuerySongs(ctx, SongQuery{SortBy: "published_at", SortOrder: "asc"})
	a.NoError(err)
	a.Equal([]string{"s2", "s1", "s3"}, songIDs(list.Songs))

	// same-video songs stay in performance order even when descending
	list, err = c.QuerySongs(ctx, SongQuery{SortBy: "published_at", SortOrder: "desc"})
	a.NoError(err)
	a.Equal([]string{"s3", "s2", "s1"}, songIDs(list.Songs))
}

func TestQuerySongsArtistAndTitle(t *testing.T) {
	a := assert.New(t)

	ctx, c, s := testCatalog(t)
	seedSongs(t, ctx, s)

	list, err := c.QuerySongs(ctx, SongQuery{Artist: "YOASOBI"})
	a.NoError(err)
	a.Equal(2, list.TotalCount)

	list, err = c.QuerySongs(ctx, SongQuery{Artist: "YOASOBI", Title: "アイドル"})
	a.NoError(err)
	a.Equal(1, list.TotalCount)
	a.Equal("s1", list.Songs[0].SongID)

	list, err = c.QuerySongs(ctx, SongQuery{Search: "夜"})
	a.NoError(err)
	a.Equal(2, list.TotalCount)
}

func TestArtistsAndTitles(t *testing.T) {
	a := assert.New(t)

	ctx, c, s := testCatalog(t)
	seedSongs(t, ctx, s)

	artists, err := c.Artists(ctx)
	a.NoError(err)
	a.Len(artists, 2)
	a.Contains(artists, "YOASOBI")
	a.Contains(artists, "高橋洋子")

	titles, err := c.Titles(ctx, "YOASOBI")
	a.NoError(err)
	a.Len(titles, 2)
	a.Contains(titles, "アイドル")
	a.Contains(titles, "夜に駆ける")

	titles, err = c.Titles(ctx, "")
	a.NoError(err)
	a.Len(titles, 3)
}

func TestSongStats(t *testing.T) {
	a := assert.New(t)

	ctx, c, s := testCatalog(t)

	require.NoError(t, s.ReplaceSongs(ctx, []models.Song{
		{SongID: "s1", VideoPublishedAt: "2024-01-10T00:00:00Z", Title: "アイドル", Artist: "YOASOBI", Edited: true},
		{SongID: "s2", VideoPublishedAt: "2024-02-10T00:00:00Z", Title: "アイドル", Artist: "YOASOBI", Edited: true},
		{SongID: "s3", VideoPublishedAt: "2024-06-10T00:00:00Z", Title: "アイドル", Artist: "YOASOBI", Edited: true},
		{SongID: "s4", VideoPublishedAt: "2024-02-20T00:00:00Z", Title: "群青", Artist: "YOASOBI", Edited: true},
		{SongID: "s5", VideoPublishedAt: "2024-02-25T00:00:00Z", Title: "テーゼ", Artist: "高橋洋子", Edited: true},
		{SongID: "s6", VideoPublishedAt: "2024-02-25T00:00:00Z", Title: "下書き", Artist: "誰か", Edited: false},
	}))

	stats, err := c.SongStats(ctx, StatsQuery{})
	a.NoError(err)
	a.Equal(5, stats.TotalSongs)
	a.Equal(SongCount{Artist: "YOASOBI", Title: "アイドル", Count: 3}, stats.Songs[0])
	a.Equal(ArtistCount{Artist: "YOASOBI", Count: 4}, stats.Artists[0])

	stats, err = c.SongStats(ctx, StatsQuery{StartYear: 2024, StartMonth: 2, EndYear: 2024, EndMonth: 2})
	a.NoError(err)
	a.Equal(3, stats.TotalSongs)

	stats, err = c.SongStats(ctx, StatsQuery{Title: "群青"})
	a.NoError(err)
	a.Equal(1, stats.TotalSongs)
	a.Equal("群青", stats.Songs[0].Title)
}

func songIDs(songs []models.Song) []string {
	ids := make([]string, len(songs))
	for i := range songs {
		ids[i] = songs[i].SongID
	}
	return ids
}
