package sheetfeed

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/usuwarium/usuwarium/internal/ctxhttpclient"
	"github.com/usuwarium/usuwarium/internal/stringutil"
	"github.com/usuwarium/usuwarium/models"
)

const DefaultBaseURL = "https://docs.google.com/spreadsheets/d/e"

// Feed reads video and song rows from a published spreadsheet. Each sheet is
// exported as CSV with a header row; rows are keyed by header name so column
// order doesn't matter.
type Feed struct {
	BaseURL   string
	PublicID  string
	VideosGID string
	SongsGID  string
}

func New(baseURL, publicID, videosGID, songsGID string) *Feed {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Feed{
		BaseURL:   baseURL,
		PublicID:  publicID,
		VideosGID: videosGID,
		SongsGID:  songsGID,
	}
}

// FetchError carries which sheet failed and, for HTTP-level failures, the
// status code the export endpoint returned.
type FetchError struct {
	Sheet      string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sheetfeed: could not fetch %s sheet from %s: %s", e.Sheet, e.URL, e.Err.Error())
	}

	return fmt.Sprintf("sheetfeed: could not fetch %s sheet from %s: unexpected status %d", e.Sheet, e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (f *Feed) sheetURL(gid string) string {
	return fmt.Sprintf("%s/%s/pub?output=csv&gid=%s", strings.TrimSuffix(f.BaseURL, "/"), f.PublicID, gid)
}

func (f *Feed) FetchVideos(ctx context.Context) ([]models.Video, error) {
	rows, err := f.fetchRows(ctx, "videos", f.VideosGID)
	if err != nil {
		return nil, fmt.Errorf("sheetfeed.Feed.FetchVideos: %w", err)
	}

	videos := make([]models.Video, 0, len(rows))
	for _, row := range rows {
		videos = append(videos, videoFromRow(row))
	}

	return videos, nil
}

func (f *Feed) FetchSongs(ctx context.Context) ([]models.Song, error) {
	rows, err := f.fetchRows(ctx, "songs", f.SongsGID)
	if err != nil {
		return nil, fmt.Errorf("sheetfeed.Feed.FetchSongs: %w", err)
	}

	songs := make([]models.Song, 0, len(rows))
	for _, row := range rows {
		// Opening and Closing are stream segments, not songs; rows
		// without an artist are extraction noise. Neither is useful to
		// anything downstream, so they're dropped before storage.
		switch row["artist"] {
		case "", "Opening", "Closing":
			continue
		}

		songs = append(songs, songFromRow(row))
	}

	return songs, nil
}

func (f *Feed) fetchRows(ctx context.Context, sheet, gid string) ([]map[string]string, error) {
	url := f.sheetURL(gid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Sheet: sheet, URL: url, Err: err}
	}

	res, err := ctxhttpclient.GetHTTPClient(ctx).Do(req)
	if err != nil {
		return nil, &FetchError{Sheet: sheet, URL: url, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &FetchError{Sheet: sheet, URL: url, StatusCode: res.StatusCode}
	}

	r := csv.NewReader(res.Body)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	} else if err != nil {
		return nil, &FetchError{Sheet: sheet, URL: url, Err: err}
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, &FetchError{Sheet: sheet, URL: url, Err: err}
		}

		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func videoFromRow(row map[string]string) models.Video {
	return models.Video{
		VideoID:     row["video_id"],
		ChannelID:   row["channel_id"],
		Title:       row["title"],
		PublishedAt: row["published_at"],
		Tags:        parseTags(row["tags"]),
		Duration:    parseCount(row["duration"]),
		ViewCount:   parseCount(row["view_count"]),
		LikeCount:   parseCount(row["like_count"]),
		ProcessedAt: row["processed_at"],
		Singing:     stringutil.LooksTrue(row["singing"]),
		Available:   stringutil.LooksTrue(row["available"]),
		Completed:   stringutil.LooksTrue(row["completed"]),
	}
}

func songFromRow(row map[string]string) models.Song {
	return models.Song{
		SongID:           row["song_id"],
		VideoID:          row["video_id"],
		VideoTitle:       row["video_title"],
		VideoPublishedAt: row["video_published_at"],
		Title:            row["title"],
		Artist:           row["artist"],
		StartTime:        parseCount(row["start_time"]),
		EndTime:          parseCount(row["end_time"]),
		Tags:             parseTags(row["tags"]),
		Edited:           stringutil.LooksTrue(row["edited"]),
	}
}

// parseTags accepts either a JSON array of strings or a comma-separated
// list; the sheets have carried both formats over time.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}

	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err == nil {
		return tags
	}

	for _, t := range strings.Split(s, ",") {
		tags = append(tags, strings.TrimSpace(t))
	}

	return tags
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}

	return n
}
