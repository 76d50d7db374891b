package sheetfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/usuwarium/usuwarium/internal/ctxhttpclient"
)

const videosCSV = `video_id,channel_id,title,published_at,tags,duration,view_count,like_count,processed_at,singing,available,completed
v1,c1,歌枠テスト,2024-01-01T00:00:00Z,"[""歌枠"",""雑談""]",3600,1000,100,2024-01-02T00:00:00Z,true,TRUE,true
v2,c1,雑談,2024-01-03T00:00:00Z,"雑談, ゲーム実況",1800,,abc,,false,false,true
v3,c1,短い行`

const songsCSV = `song_id,video_id,video_title,video_published_at,title,artist,start_time,end_time,tags,edited
s1,v1,歌枠テスト,2024-01-01T00:00:00Z,アイドル,YOASOBI,10,250,"[""カバー""]",true
s2,v1,歌枠テスト,2024-01-01T00:00:00Z,,Opening,0,10,,false
s3,v1,歌枠テスト,2024-01-01T00:00:00Z,,Closing,3590,3600,,false
s4,v1,歌枠テスト,2024-01-01T00:00:00Z,未判定,,260,300,,false
s5,v1,歌枠テスト,2024-01-01T00:00:00Z,夜に駆ける,YOASOBI,300,500,,TRUE`

func testFeed(t *testing.T) (context.Context, *Feed, func()) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pub-id/pub", func(rw http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("gid") {
		case "100":
			rw.Write([]byte(videosCSV))
		case "200":
			rw.Write([]byte(songsCSV))
		case "300":
			rw.Write(nil)
		default:
			http.Error(rw, "no such sheet", http.StatusNotFound)
		}
	})

	server := httptest.NewServer(mux)

	ctx := ctxhttpclient.WithHTTPClient(context.Background(), server.Client())

	return ctx, New(server.URL, "pub-id", "100", "200"), server.Close
}

func TestFetchVideos(t *testing.T) {
	a := assert.New(t)

	ctx, feed, cleanup := testFeed(t)
	defer cleanup()

	videos, err := feed.FetchVideos(ctx)
	a.NoError(err)
	a.Len(videos, 3)

	a.Equal("v1", videos[0].VideoID)
	a.Equal([]string{"歌枠", "雑談"}, []string(videos[0].Tags))
	a.Equal(3600, videos[0].Duration)
	a.True(videos[0].Singing)
	a.True(videos[0].Available)

	a.Equal([]string{"雑談", "ゲーム実況"}, []string(videos[1].Tags))
	a.Equal(0, videos[1].ViewCount)
	a.Equal(0, videos[1].LikeCount)
	a.False(videos[1].Available)

	a.Equal("v3", videos[2].VideoID)
	a.Equal("", videos[2].Title)
	a.Equal(0, videos[2].Duration)
}

func TestFetchSongs(t *testing.T) {
	a := assert.New(t)

	ctx, feed, cleanup := testFeed(t)
	defer cleanup()

	songs, err := feed.FetchSongs(ctx)
	a.NoError(err)

	// opening, closing, and artist-less rows are dropped
	a.Len(songs, 2)
	a.Equal("s1", songs[0].SongID)
	a.True(songs[0].Edited)
	a.Equal("s5", songs[1].SongID)
	a.True(songs[1].Edited)
	a.Equal(300, songs[1].StartTime)
}

func TestFetchEmptySheet(t *testing.T) {
	a := assert.New(t)

	ctx, feed, cleanup := testFeed(t)
	defer cleanup()

	feed.VideosGID = "300"

	videos, err := feed.FetchVideos(ctx)
	a.NoError(err)
	a.Empty(videos)
}

func TestFetchStatusError(t *testing.T) {
	a := assert.New(t)

	ctx, feed, cleanup := testFeed(t)
	defer cleanup()

	feed.SongsGID = "999"

	_, err := feed.FetchSongs(ctx)
	a.Error(err)

	var fetchError *FetchError
	a.ErrorAs(err, &fetchError)
	a.Equal("songs", fetchError.Sheet)
	a.Equal(http.StatusNotFound, fetchError.StatusCode)
}

func TestParseTags(t *testing.T) {
	for input, expected := range map[string][]string{
		`["a","b"]`: {"a", "b"},
		"a, b":      {"a", "b"},
		"a":         {"a"},
		"[]":        {},
		"":          nil,
	} {
		assert.Equal(t, expected, parseTags(input), "input %q", input)
	}
}
