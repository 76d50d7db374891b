package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/usuwarium/usuwarium/internal/catchpanic"
	"github.com/usuwarium/usuwarium/internal/ctxclock"
	"github.com/usuwarium/usuwarium/internal/ctxlogger"
	"github.com/usuwarium/usuwarium/internal/store"
	"github.com/usuwarium/usuwarium/models"
)

const DefaultInterval = time.Hour

type Status string

const (
	StatusIdle     Status = "idle"
	StatusFetching Status = "fetching"
	StatusReady    Status = "ready"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// User-facing messages; the technical cause only goes to the log.
const (
	MessageFetchFailed       = "データの取得に失敗しました"
	MessageServingCachedData = "データ取得に失敗しましたが、キャッシュされたデータを表示しています"
)

type Source interface {
	FetchVideos(ctx context.Context) ([]models.Video, error)
	FetchSongs(ctx context.Context) ([]models.Song, error)
}

// DegradedError reports a failed synchronisation where the existing cache
// was left in place. Its message is safe to show to users; the cause is
// available via Unwrap.
type DegradedError struct {
	Cause error
}

func (e *DegradedError) Error() string { return MessageServingCachedData }

func (e *DegradedError) Unwrap() error { return e.Cause }

type State struct {
	Status    Status     `json:"status"`
	Message   string     `json:"message,omitempty"`
	LastFetch *time.Time `json:"last_fetch,omitempty"`
}

// Syncer keeps the local cache in step with the remote sheets. However many
// callers ask at once, at most one synchronisation runs at a time, and they
// all share its outcome.
type Syncer struct {
	store    *store.Store
	source   Source
	interval time.Duration

	group   singleflight.Group
	trigger chan struct{}

	mu      sync.Mutex
	status  Status
	message string
}

func New(s *store.Store, source Source, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Syncer{
		store:    s,
		source:   source,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		status:   StatusIdle,
	}
}

func (s *Syncer) setStatus(status Status, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
	s.message = message
}

func (s *Syncer) State(ctx context.Context) (*State, error) {
	s.mu.Lock()
	state := &State{Status: s.status, Message: s.message}
	s.mu.Unlock()

	last, ok, err := s.store.LastFetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("syncer.Syncer.State: %w", err)
	}
	if ok {
		state.LastFetch = &last
	}

	return state, nil
}

// Refresh synchronises the cache if it is stale, or unconditionally when
// force is set. Concurrent callers share a single in-flight fetch.
func (s *Syncer) Refresh(ctx context.Context, force bool) error {
	if !force {
		stale, err := s.stale(ctx)
		if err != nil {
			return err
		}
		if !stale {
			return nil
		}
	}

	_, err, _ := s.group.Do("sync", func() (interface{}, error) {
		return nil, s.performSync(ctx)
	})

	return err
}

// stale reports whether a synchronisation is due. An empty cache for either
// entity kind is always stale, no matter how recent lastFetch is; the
// empty-sheet policy advances lastFetch without filling the table, and that
// must not delay the next attempt.
func (s *Syncer) stale(ctx context.Context) (bool, error) {
	videoCount, err := s.store.VideoCount(ctx)
	if err != nil {
		return false, fmt.Errorf("syncer.Syncer.stale: %w", err)
	}

	songCount, err := s.store.SongCount(ctx)
	if err != nil {
		return false, fmt.Errorf("syncer.Syncer.stale: %w", err)
	}

	if videoCount == 0 || songCount == 0 {
		return true, nil
	}

	last, ok, err := s.store.LastFetch(ctx)
	if err != nil {
		return false, fmt.Errorf("syncer.Syncer.stale: %w", err)
	}
	if !ok {
		return true, nil
	}

	now, err := ctxclock.Now(ctx)
	if err != nil {
		return false, fmt.Errorf("syncer.Syncer.stale: %w", err)
	}

	return now.Sub(last) > s.interval, nil
}

func (s *Syncer) performSync(ctx context.Context) error {
	l := ctxlogger.GetLogger(ctx)

	s.setStatus(StatusFetching, "")

	if err := s.replaceAll(ctx, l); err != nil {
		videoCount, countErr := s.store.VideoCount(ctx)
		if countErr != nil {
			s.setStatus(StatusFailed, MessageFetchFailed)
			return countErr
		}

		songCount, countErr := s.store.SongCount(ctx)
		if countErr != nil {
			s.setStatus(StatusFailed, MessageFetchFailed)
			return countErr
		}

		if videoCount > 0 || songCount > 0 {
			l.WithError(err).Warning("synchronisation failed; keeping cached data")
			s.setStatus(StatusDegraded, MessageServingCachedData)
			return &DegradedError{Cause: err}
		}

		l.WithError(err).Error("synchronisation failed with an empty cache")
		s.setStatus(StatusFailed, MessageFetchFailed)
		return err
	}

	s.setStatus(StatusReady, "")

	return nil
}

// replaceAll writes videos strictly before songs, so songs never reference
// a newer video set than the one in the cache. A sheet that comes back
// empty is treated as suspect: its table is left alone.
func (s *Syncer) replaceAll(ctx context.Context, l logrus.FieldLogger) error {
	videos, err := s.source.FetchVideos(ctx)
	if err != nil {
		return err
	}

	if len(videos) == 0 {
		l.Warning("videos sheet returned no rows; keeping existing videos")
	} else {
		if err := s.store.ReplaceVideos(ctx, videos); err != nil {
			return err
		}
	}

	songs, err := s.source.FetchSongs(ctx)
	if err != nil {
		return err
	}

	if len(songs) == 0 {
		l.Warning("songs sheet returned no rows; keeping existing songs")
	} else {
		if err := s.store.ReplaceSongs(ctx, songs); err != nil {
			return err
		}
	}

	now, err := ctxclock.Now(ctx)
	if err != nil {
		return err
	}

	return s.store.SetLastFetch(ctx, now)
}

// TriggerRefresh asks the background loop to run a refresh soon. It never
// blocks; a pending trigger is enough.
func (s *Syncer) TriggerRefresh() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes immediately, then on every interval tick or trigger, until
// the context is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	l := ctxlogger.GetLogger(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := catchpanic.Do(func() error { return s.Refresh(ctx, false) }); err != nil {
			l.WithError(err).Warning("background refresh failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-s.trigger:
		}
	}
}
