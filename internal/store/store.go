package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fknsrs.biz/p/sorm"
	"github.com/google/uuid"

	"github.com/usuwarium/usuwarium/internal/ctxclock"
	"github.com/usuwarium/usuwarium/models"
)

func init() {
	sorm.SetParameterPrefix("?")
}

var (
	ErrNotFound = fmt.Errorf("store: not found")
)

// Store is the local cache of the published sheet data, plus the
// locally-owned playlists. Sheet-derived tables are only ever written by
// wholesale replacement; they are never patched row by row.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

var schema = []string{
	`create table if not exists videos (
		id integer primary key autoincrement,
		video_id text not null,
		channel_id text not null,
		title text not null,
		published_at text not null,
		tags text not null default '[]',
		duration integer not null default 0,
		view_count integer not null default 0,
		like_count integer not null default 0,
		processed_at text not null default '',
		singing boolean not null default false,
		available boolean not null default false,
		completed boolean not null default false
	)`,
	`create index if not exists videos_video_id on videos (video_id)`,
	`create index if not exists videos_published_at on videos (published_at)`,
	`create index if not exists videos_like_count on videos (like_count)`,
	`create index if not exists videos_view_count on videos (view_count)`,
	`create table if not exists songs (
		id integer primary key autoincrement,
		song_id text not null,
		video_id text not null,
		video_title text not null,
		video_published_at text not null,
		title text not null,
		artist text not null,
		start_time integer not null default 0,
		end_time integer not null default 0,
		tags text not null default '[]',
		edited boolean not null default false
	)`,
	`create index if not exists songs_video_id on songs (video_id)`,
	`create index if not exists songs_edited on songs (edited)`,
	`create index if not exists songs_video_published_at on songs (video_published_at)`,
	`create index if not exists songs_artist on songs (artist)`,
	`create index if not exists songs_title on songs (title)`,
	`create index if not exists songs_start_time on songs (start_time)`,
	`create table if not exists sync_meta (
		id integer primary key autoincrement,
		key text not null unique,
		timestamp integer not null
	)`,
	`create table if not exists playlists (
		id integer primary key autoincrement,
		playlist_id text not null unique,
		name text not null,
		created_at text not null,
		updated_at text not null
	)`,
	`create table if not exists playlist_items (
		id integer primary key autoincrement,
		playlist_id text not null,
		song_id text not null,
		position integer not null
	)`,
	`create index if not exists playlist_items_playlist_id on playlist_items (playlist_id)`,
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store.Store.Migrate: %w", err)
		}
	}

	return nil
}

type TxFunc func(ctx context.Context, tx *sql.Tx) error

func (s *Store) UsingTx(ctx context.Context, fn TxFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit()
}

// ReplaceVideos clears the videos table and writes the given rows in their
// place, all inside one transaction so readers never see a partial set.
func (s *Store) ReplaceVideos(ctx context.Context, videos []models.Video) error {
	err := s.UsingTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "delete from videos"); err != nil {
			return err
		}

		for i := range videos {
			videos[i].ID = 0
			if err := sorm.CreateRecord(ctx, tx, &videos[i]); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("store.Store.ReplaceVideos: %w", err)
	}

	return nil
}

func (s *Store) ReplaceSongs(ctx context.Context, songs []models.Song) error {
	err := s.UsingTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "delete from songs"); err != nil {
			return err
		}

		for i := range songs {
			songs[i].ID = 0
			if err := sorm.CreateRecord(ctx, tx, &songs[i]); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("store.Store.ReplaceSongs: %w", err)
	}

	return nil
}

func (s *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "select count(1) from "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("store.Store.count: could not count %s: %w", table, err)
	}

	return n, nil
}

func (s *Store) VideoCount(ctx context.Context) (int, error) {
	return s.count(ctx, "videos")
}

func (s *Store) SongCount(ctx context.Context) (int, error) {
	return s.count(ctx, "songs")
}

// LastFetch returns the time of the last successful synchronisation, or
// false if no synchronisation has ever completed.
func (s *Store) LastFetch(ctx context.Context) (time.Time, bool, error) {
	var meta models.SyncMeta
	if err := sorm.FindFirstWhere(ctx, s.db, &meta, "where key = ?", models.SyncMetaLastFetch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}

		return time.Time{}, false, fmt.Errorf("store.Store.LastFetch: %w", err)
	}

	return time.UnixMilli(meta.Timestamp), true, nil
}

func (s *Store) SetLastFetch(ctx context.Context, t time.Time) error {
	err := s.UsingTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var meta models.SyncMeta
		if err := sorm.FindFirstWhere(ctx, tx, &meta, "where key = ?", models.SyncMetaLastFetch); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}

			meta.Key = models.SyncMetaLastFetch
			meta.Timestamp = t.UnixMilli()

			return sorm.CreateRecord(ctx, tx, &meta)
		}

		meta.Timestamp = t.UnixMilli()

		return sorm.SaveRecord(ctx, tx, &meta)
	})
	if err != nil {
		return fmt.Errorf("store.Store.SetLastFetch: %w", err)
	}

	return nil
}

func (s *Store) Videos(ctx context.Context) ([]models.Video, error) {
	var videos []models.Video
	if err := sorm.FindWhere(ctx, s.db, &videos, "order by id asc"); err != nil {
		return nil, fmt.Errorf("store.Store.Videos: %w", err)
	}

	return videos, nil
}

func (s *Store) VideoByVideoID(ctx context.Context, videoID string) (*models.Video, error) {
	var video models.Video
	if err := sorm.FindFirstWhere(ctx, s.db, &video, "where video_id = ?", videoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("store.Store.VideoByVideoID: %w", err)
	}

	return &video, nil
}

func (s *Store) EditedSongs(ctx context.Context) ([]models.Song, error) {
	var songs []models.Song
	if err := sorm.FindWhere(ctx, s.db, &songs, "where edited = ? order by id asc", true); err != nil {
		return nil, fmt.Errorf("store.Store.EditedSongs: %w", err)
	}

	return songs, nil
}

func (s *Store) SongsByVideoID(ctx context.Context, videoID string) ([]models.Song, error) {
	var songs []models.Song
	if err := sorm.FindWhere(ctx, s.db, &songs, "where video_id = ? and edited = ? order by start_time asc", videoID, true); err != nil {
		return nil, fmt.Errorf("store.Store.SongsByVideoID: %w", err)
	}

	return songs, nil
}

func (s *Store) SongBySongID(ctx context.Context, songID string) (*models.Song, error) {
	var song models.Song
	if err := sorm.FindFirstWhere(ctx, s.db, &song, "where song_id = ?", songID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("store.Store.SongBySongID: %w", err)
	}

	return &song, nil
}

// playlists

func (s *Store) CreatePlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	now, err := ctxclock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.Store.CreatePlaylist: %w", err)
	}

	playlist := models.Playlist{
		PlaylistID: uuid.New().String(),
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.UsingTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return sorm.CreateRecord(ctx, tx, &playlist)
	})
	if err != nil {
		return nil, fmt.Errorf("store.Store.CreatePlaylist: %w", err)
	}

	return &playlist, nil
}

func (s *Store) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	if err := sorm.FindWhere(ctx, s.db, &playlists, "order by created_at asc"); err != nil {
		return nil, fmt.Errorf("store.Store.Playlists: %w", err)
	}

	return playlists, nil
}

func (s *Store) PlaylistByID(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := sorm.FindFirstWhere(ctx, s.db, &playlist, "where playlist_id = ?", playlistID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("store.Store.PlaylistByID: %w", err)
	}

	return &playlist, nil
}

func (s *Store) RenamePlaylist(ctx context.Context, playlistID, name string) (*models.Playlist, error) {
	now, err := ctxclock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.Store.RenamePlaylist: %w", err)
	}

	var playlist models.Playlist

	err = s.UsingTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := sorm.FindFirstWhere(ctx, tx, &playlist, "where playlist_id = ?", playlistID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}

			return err
		}

		playlist.Name = name
		playlist.UpdatedAt = now

		return sorm.SaveRecord(ctx, tx, &playlist)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("store.Store.RenamePlaylist: %w", err)
	}

	return &playlist, nil
}

func (s *Store) DeletePlaylist(ctx context.Context, playlistID string) error {
	err := s.UsingTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "delete from playlists where playlist_id = ?", playlistID)
		if err != nil {
			return err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}

		_, err = tx.ExecContext(ctx, "delete from playlist_items where playlist_id = ?", playlistID)

		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}

		return fmt.Errorf("store.Store.DeletePlaylist: %w", err)
	}

	return nil
}

// SetPlaylistItems replaces the contents of a playlist with the given song
// ids, preserving their order.
func (s *Store) SetPlaylistItems(ctx context.Context, playlistID string, songIDs []string) error {
	now, err := ctxclock.Now(ctx)
	if err != nil {
		return fmt.Errorf("store.Store.SetPlaylistItems: %w", err)
	}

	err = s.UsingTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var playlist models.Playlist
		if err := sorm.FindFirstWhere(ctx, tx, &playlist, "where playlist_id = ?", playlistID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}

			return err
		}

		if _, err := tx.ExecContext(ctx, "delete from playlist_items where playlist_id = ?", playlistID); err != nil {
			return err
		}

		for i, songID := range songIDs {
			item := models.PlaylistItem{
				PlaylistID: playlistID,
				SongID:     songID,
				Position:   i,
			}

			if err := sorm.CreateRecord(ctx, tx, &item); err != nil {
				return err
			}
		}

		playlist.UpdatedAt = now

		return sorm.SaveRecord(ctx, tx, &playlist)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}

		return fmt.Errorf("store.Store.SetPlaylistItems: %w", err)
	}

	return nil
}

func (s *Store) PlaylistItems(ctx context.Context, playlistID string) ([]models.PlaylistItem, error) {
	var items []models.PlaylistItem
	if err := sorm.FindWhere(ctx, s.db, &items, "where playlist_id = ? order by position asc", playlistID); err != nil {
		return nil, fmt.Errorf("store.Store.PlaylistItems: %w", err)
	}

	return items, nil
}
