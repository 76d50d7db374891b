package models

import (
	"database/sql"
	"time"

	"github.com/usuwarium/usuwarium/internal/sqlbuilderutil"
	"github.com/usuwarium/usuwarium/internal/sqltypes"
)

var (
	PlaylistTable     *sqlbuilderutil.Table
	PlaylistItemTable *sqlbuilderutil.Table
)

func init() {
	PlaylistTable = sqlbuilderutil.MustMakeTable(Playlist{})
	PlaylistItemTable = sqlbuilderutil.MustMakeTable(PlaylistItem{})
}

// Playlist is a user-curated list of songs. Unlike videos and songs,
// playlists are owned by this server and survive synchronisation.
type Playlist struct {
	ID         int `sql:",table:playlists"`
	PlaylistID string
	Name       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (p *Playlist) OverrideScan(names []string, scanners []sql.Scanner) error {
	for i, name := range names {
		switch name {
		case "CreatedAt":
			scanners[i] = &sqltypes.TimeScanner{Value: &p.CreatedAt}
		case "UpdatedAt":
			scanners[i] = &sqltypes.TimeScanner{Value: &p.UpdatedAt}
		}
	}

	return nil
}

type PlaylistItem struct {
	ID         int `sql:",table:playlist_items"`
	PlaylistID string
	SongID     string
	Position   int
}
