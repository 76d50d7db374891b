package models

import (
	"github.com/usuwarium/usuwarium/internal/sqlbuilderutil"
	"github.com/usuwarium/usuwarium/internal/sqltypes"
)

var (
	SongTable *sqlbuilderutil.Table
)

func init() {
	SongTable = sqlbuilderutil.MustMakeTable(Song{})
}

// Song is one sung performance inside a video. VideoTitle and
// VideoPublishedAt are denormalised from the parent video so song listings
// can sort without a join. Only rows with Edited set are user-facing; the
// rest are provisional extraction candidates.
type Song struct {
	ID               int `sql:",table:songs"`
	SongID           string
	VideoID          string
	VideoTitle       string
	VideoPublishedAt string
	Title            string
	Artist           string
	StartTime        int
	EndTime          int
	Tags             sqltypes.JSONStringSlice
	Edited           bool
}

func (s Song) SearchFields() []string {
	return []string{s.Title, s.Artist, s.VideoTitle}
}
