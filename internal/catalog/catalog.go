package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"fknsrs.biz/p/sorm/qsorm"
	sb "fknsrs.biz/p/sqlbuilder"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/usuwarium/usuwarium/internal/search"
	"github.com/usuwarium/usuwarium/internal/store"
	"github.com/usuwarium/usuwarium/models"
)

const DefaultPerPage = 24

// Catalog answers read queries over the cached sheet data. Scalar sorts are
// pushed down to sqlite; text filtering and locale-aware sorts happen in
// memory because sqlite has no Japanese collation.
type Catalog struct {
	store *store.Store
}

func New(s *store.Store) *Catalog {
	return &Catalog{store: s}
}

type VideoQuery struct {
	Search    string `formam:"q"`
	Filter    string `formam:"filter"`
	SortBy    string `formam:"sort"`
	SortOrder string `formam:"order"`
	Page      int    `formam:"page"`
	PerPage   int    `formam:"per_page"`
}

type VideoPage struct {
	Videos     []models.Video `json:"videos"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
}

// QueryVideos filters, sorts, and paginates the video cache. TotalCount is
// the match count before pagination so clients can render page controls.
func (c *Catalog) QueryVideos(ctx context.Context, q VideoQuery) (*VideoPage, error) {
	var order []sb.AsOrderingTerm

	switch q.SortBy {
	case "published_at", "like_count", "view_count":
		col := models.VideoTable.C(q.SortBy)
		if q.SortOrder == "asc" {
			order = []sb.AsOrderingTerm{sb.OrderAsc(col)}
		} else {
			order = []sb.AsOrderingTerm{sb.OrderDesc(col)}
		}
	default:
		// sheet order
		order = []sb.AsOrderingTerm{sb.OrderAsc(models.VideoTable.C("ID"))}
	}

	var videos []models.Video
	if err := qsorm.FindWhere(ctx, c.store.DB(), &videos, nil, order, nil); err != nil {
		return nil, fmt.Errorf("catalog.Catalog.QueryVideos: %w", err)
	}

	if q.Filter != "" {
		filtered := make([]models.Video, 0, len(videos))
		for i := range videos {
			if search.MatchesQuickFilter(&videos[i], q.Filter) {
				filtered = append(filtered, videos[i])
			}
		}
		videos = filtered
	}

	videos = search.Apply(videos, search.Parse(q.Search))

	total := len(videos)

	page := q.Page
	if page < 1 {
		page = 1
	}

	perPage := q.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	start := (page - 1) * perPage
	if start > total {
		start = total
	}

	end := start + perPage
	if end > total {
		end = total
	}

	return &VideoPage{
		Videos:     videos[start:end],
		TotalCount: total,
		Page:       page,
		PerPage:    perPage,
	}, nil
}

type SongQuery struct {
	Search    string `formam:"q"`
	Artist    string `formam:"artist"`
	Title     string `formam:"title"`
	SortBy    string `formam:"sort"`
	SortOrder string `formam:"order"`
}

type SongList struct {
	Songs      []models.Song `json:"songs"`
	TotalCount int           `json:"total_count"`
}

// QuerySongs returns edited songs matching the query. Artist and title are
// exact matches; artist and title sorts use Japanese collation. Sorting by
// published date breaks ties by performance order within the video, which
// stays ascending even when the date sort is descending.
func (c *Catalog) QuerySongs(ctx context.Context, q SongQuery) (*SongList, error) {
	songs, err := c.store.EditedSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog.Catalog.QuerySongs: %w", err)
	}

	if q.Artist != "" {
		songs = filterSongs(songs, func(s *models.Song) bool { return s.Artist == q.Artist })
	}
	if q.Title != "" {
		songs = filterSongs(songs, func(s *models.Song) bool { return s.Title == q.Title })
	}

	songs = search.Apply(songs, search.Parse(q.Search))

	col := collate.New(language.Japanese)
	desc := q.SortOrder == "desc"

	sort.SliceStable(songs, func(i, j int) bool {
		a, b := &songs[i], &songs[j]

		var cmp int
		switch q.SortBy {
		case "artist":
			cmp = col.CompareString(a.Artist, b.Artist)
		case "title":
			cmp = col.CompareString(a.Title, b.Title)
		default:
			cmp = strings.Compare(a.VideoPublishedAt, b.VideoPublishedAt)
			if cmp == 0 {
				return a.StartTime < b.StartTime
			}
		}

		if desc {
			return cmp > 0
		}

		return cmp < 0
	})

	return &SongList{Songs: songs, TotalCount: len(songs)}, nil
}

func filterSongs(songs []models.Song, keep func(s *models.Song) bool) []models.Song {
	out := make([]models.Song, 0, len(songs))
	for i := range songs {
		if keep(&songs[i]) {
			out = append(out, songs[i])
		}
	}

	return out
}

// Artists lists the distinct artists of edited songs, locale-sorted.
func (c *Catalog) Artists(ctx context.Context) ([]string, error) {
	songs, err := c.store.EditedSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog.Catalog.Artists: %w", err)
	}

	seen := make(map[string]bool)
	var artists []string
	for i := range songs {
		if songs[i].Artist == "" || seen[songs[i].Artist] {
			continue
		}

		seen[songs[i].Artist] = true
		artists = append(artists, songs[i].Artist)
	}

	collate.New(language.Japanese).SortStrings(artists)

	return artists, nil
}

// Titles lists the distinct titles of edited songs, optionally limited to
// one artist, locale-sorted.
func (c *Catalog) Titles(ctx context.Context, artist string) ([]string, error) {
	songs, err := c.store.EditedSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog.Catalog.Titles: %w", err)
	}

	seen := make(map[string]bool)
	var titles []string
	for i := range songs {
		if artist != "" && songs[i].Artist != artist {
			continue
		}
		if songs[i].Title == "" || seen[songs[i].Title] {
			continue
		}

		seen[songs[i].Title] = true
		titles = append(titles, songs[i].Title)
	}

	collate.New(language.Japanese).SortStrings(titles)

	return titles, nil
}

type StatsQuery struct {
	Title      string `formam:"title"`
	StartYear  int    `formam:"start_year"`
	StartMonth int    `formam:"start_month"`
	EndYear    int    `formam:"end_year"`
	EndMonth   int    `formam:"end_month"`
}

type SongCount struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Count  int    `json:"count"`
}

type ArtistCount struct {
	Artist string `json:"artist"`
	Count  int    `json:"count"`
}

type Stats struct {
	Songs      []SongCount   `json:"songs"`
	Artists    []ArtistCount `json:"artists"`
	TotalSongs int           `json:"total_songs"`
}

// SongStats aggregates performance counts per song and per artist over
// edited songs, optionally limited to a title and a year-month range.
func (c *Catalog) SongStats(ctx context.Context, q StatsQuery) (*Stats, error) {
	songs, err := c.store.EditedSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog.Catalog.SongStats: %w", err)
	}

	if q.Title != "" {
		songs = filterSongs(songs, func(s *models.Song) bool { return s.Title == q.Title })
	}

	if q.StartYear != 0 && q.EndYear != 0 {
		startMonth := q.StartMonth
		if startMonth == 0 {
			startMonth = 1
		}
		endMonth := q.EndMonth
		if endMonth == 0 {
			endMonth = 12
		}

		start := q.StartYear*100 + startMonth
		end := q.EndYear*100 + endMonth

		songs = filterSongs(songs, func(s *models.Song) bool {
			t, err := time.Parse(time.RFC3339, s.VideoPublishedAt)
			if err != nil {
				return false
			}

			current := t.Year()*100 + int(t.Month())

			return current >= start && current <= end
		})
	}

	songCounts := make(map[[2]string]int)
	artistCounts := make(map[string]int)

	for i := range songs {
		artist := songs[i].Artist
		if artist == "" {
			artist = "Unknown"
		}

		songCounts[[2]string{artist, songs[i].Title}]++
		artistCounts[artist]++
	}

	stats := &Stats{TotalSongs: len(songs)}

	for key, count := range songCounts {
		stats.Songs = append(stats.Songs, SongCount{Artist: key[0], Title: key[1], Count: count})
	}
	for artist, count := range artistCounts {
		stats.Artists = append(stats.Artists, ArtistCount{Artist: artist, Count: count})
	}

	col := collate.New(language.Japanese)

	sort.SliceStable(stats.Songs, func(i, j int) bool {
		if stats.Songs[i].Count != stats.Songs[j].Count {
			return stats.Songs[i].Count > stats.Songs[j].Count
		}
		if stats.Songs[i].Artist != stats.Songs[j].Artist {
			return col.CompareString(stats.Songs[i].Artist, stats.Songs[j].Artist) < 0
		}
		return col.CompareString(stats.Songs[i].Title, stats.Songs[j].Title) < 0
	})

	sort.SliceStable(stats.Artists, func(i, j int) bool {
		if stats.Artists[i].Count != stats.Artists[j].Count {
			return stats.Artists[i].Count > stats.Artists[j].Count
		}
		return col.CompareString(stats.Artists[i].Artist, stats.Artists[j].Artist) < 0
	})

	return stats, nil
}
