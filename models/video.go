package models

import (
	"github.com/usuwarium/usuwarium/internal/sqlbuilderutil"
	"github.com/usuwarium/usuwarium/internal/sqltypes"
)

var (
	VideoTable *sqlbuilderutil.Table
)

func init() {
	VideoTable = sqlbuilderutil.MustMakeTable(Video{})
}

// Video is one row of the published videos sheet after normalisation. Rows
// are replaced wholesale on every successful synchronisation and never
// patched individually.
type Video struct {
	ID          int `sql:",table:videos"`
	VideoID     string
	ChannelID   string
	Title       string
	PublishedAt string
	Tags        sqltypes.JSONStringSlice
	Duration    int
	ViewCount   int
	LikeCount   int
	ProcessedAt string
	Singing     bool
	Available   bool
	Completed   bool
}

// SearchFields lists the text fields free-text search tokens are matched
// against.
func (v Video) SearchFields() []string {
	return append([]string{v.Title}, v.Tags...)
}
