package models

import (
	"github.com/usuwarium/usuwarium/internal/sqlbuilderutil"
)

var (
	SyncMetaTable *sqlbuilderutil.Table
)

func init() {
	SyncMetaTable = sqlbuilderutil.MustMakeTable(SyncMeta{})
}

// SyncMetaLastFetch is the key of the single row recording the last
// successful full replace, as epoch milliseconds.
const SyncMetaLastFetch = "lastFetch"

type SyncMeta struct {
	ID        int `sql:",table:sync_meta"`
	Key       string
	Timestamp int64
}
