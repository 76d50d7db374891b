package search

import (
	"strings"

	"github.com/usuwarium/usuwarium/models"
)

// Query is a parsed free-text search. Tokens are matched as
// case-insensitive substrings: every include has to hit at least one field,
// and no exclude may hit any field.
type Query struct {
	Includes []string
	Excludes []string
}

// Parse splits a search string on whitespace. A leading "-" marks a token
// as an exclusion; a bare "-" is dropped.
func Parse(s string) Query {
	var q Query

	for _, token := range strings.Fields(s) {
		if strings.HasPrefix(token, "-") {
			token = token[1:]
			if token == "" {
				continue
			}

			q.Excludes = append(q.Excludes, strings.ToLower(token))

			continue
		}

		q.Includes = append(q.Includes, strings.ToLower(token))
	}

	return q
}

func (q Query) Empty() bool {
	return len(q.Includes) == 0 && len(q.Excludes) == 0
}

func (q Query) Matches(fields []string) bool {
	lowered := make([]string, len(fields))
	for i, f := range fields {
		lowered[i] = strings.ToLower(f)
	}

	for _, token := range q.Includes {
		if !anyContains(lowered, token) {
			return false
		}
	}

	for _, token := range q.Excludes {
		if anyContains(lowered, token) {
			return false
		}
	}

	return true
}

func anyContains(fields []string, token string) bool {
	for _, f := range fields {
		if strings.Contains(f, token) {
			return true
		}
	}

	return false
}

type Searchable interface {
	SearchFields() []string
}

// Apply filters items down to those matching the query. An empty query
// returns the input unchanged.
func Apply[T Searchable](items []T, q Query) []T {
	if q.Empty() {
		return items
	}

	matched := make([]T, 0, len(items))
	for _, item := range items {
		if q.Matches(item.SearchFields()) {
			matched = append(matched, item)
		}
	}

	return matched
}

// quick filters

type QuickFilter struct {
	Key       string
	Label     string
	Predicate func(v *models.Video) bool
}

var QuickFilters = []QuickFilter{
	{
		Key:   "singingStream",
		Label: "歌枠",
		Predicate: func(v *models.Video) bool {
			return strings.Contains(v.Title, "歌枠")
		},
	},
	{
		Key:   "mv",
		Label: "MV",
		Predicate: func(v *models.Video) bool {
			return hasAnyTag(v, "MV", "オリジナル曲", "カバー動画") && !hasAnyTag(v, "踊ってみた")
		},
	},
	{
		Key:   "originalSong",
		Label: "オリジナル曲",
		Predicate: func(v *models.Video) bool {
			return hasAnyTag(v, "オリジナル曲")
		},
	},
	{
		Key:   "coverSong",
		Label: "カバー動画",
		Predicate: func(v *models.Video) bool {
			return hasAnyTag(v, "カバー動画")
		},
	},
	{
		Key:   "shorts",
		Label: "#shorts",
		Predicate: func(v *models.Video) bool {
			return hasAnyTag(v, "#shorts", "縦型配信") || strings.Contains(v.Title, "#shorts")
		},
	},
	{
		Key:   "dance",
		Label: "#踊ってみた",
		Predicate: func(v *models.Video) bool {
			return hasAnyTag(v, "踊ってみた")
		},
	},
	{
		Key:   "gameplay",
		Label: "ゲーム実況",
		Predicate: func(v *models.Video) bool {
			return hasAnyTag(v, "ゲーム実況")
		},
	},
}

// MatchesQuickFilter reports whether the video passes the named quick
// filter. Unknown filter keys match nothing.
func MatchesQuickFilter(v *models.Video, key string) bool {
	for _, f := range QuickFilters {
		if f.Key == key {
			return f.Predicate(v)
		}
	}

	return false
}

func hasAnyTag(v *models.Video, tags ...string) bool {
	for _, t := range v.Tags {
		for _, want := range tags {
			if t == want {
				return true
			}
		}
	}

	return false
}
