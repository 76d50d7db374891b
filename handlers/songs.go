package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/monoculum/formam"

	"github.com/usuwarium/usuwarium/internal/catalog"
	"github.com/usuwarium/usuwarium/internal/ctxstore"
	"github.com/usuwarium/usuwarium/internal/httputil"
)

func Songs(rw http.ResponseWriter, r *http.Request) {
	var input catalog.SongQuery
	if err := formam.Decode(r.URL.Query(), &input); err != nil {
		httputil.BadRequest(rw, "could not decode query parameters: "+err.Error())
		return
	}

	list, err := catalog.New(ctxstore.GetStore(r.Context())).QuerySongs(r.Context(), input)
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, list)
}

// SongsExport streams the current edited songs as CSV, in the same column
// layout as the source sheet.
func SongsExport(rw http.ResponseWriter, r *http.Request) {
	var input catalog.SongQuery
	if err := formam.Decode(r.URL.Query(), &input); err != nil {
		httputil.BadRequest(rw, "could not decode query parameters: "+err.Error())
		return
	}

	list, err := catalog.New(ctxstore.GetStore(r.Context())).QuerySongs(r.Context(), input)
	if err != nil {
		panic(err)
	}

	rw.Header().Set("content-type", "text/csv; charset=utf-8")
	rw.Header().Set("content-disposition", `attachment; filename="songs.csv"`)

	w := csv.NewWriter(rw)

	if err := w.Write([]string{"song_id", "video_id", "video_title", "video_published_at", "title", "artist", "start_time", "end_time"}); err != nil {
		panic(err)
	}

	for _, song := range list.Songs {
		record := []string{
			song.SongID,
			song.VideoID,
			song.VideoTitle,
			song.VideoPublishedAt,
			song.Title,
			song.Artist,
			strconv.Itoa(song.StartTime),
			strconv.Itoa(song.EndTime),
		}

		if err := w.Write(record); err != nil {
			panic(err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		panic(err)
	}
}
