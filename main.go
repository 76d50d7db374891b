package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"fknsrs.biz/p/sorm"
	"github.com/gorilla/mux"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/tdewolff/minify"
	mjson "github.com/tdewolff/minify/json"
	"github.com/urfave/negroni/v2"
	"go.etcd.io/bbolt"

	"github.com/usuwarium/usuwarium/handlers"
	"github.com/usuwarium/usuwarium/internal/config"
	"github.com/usuwarium/usuwarium/internal/configreader"
	"github.com/usuwarium/usuwarium/internal/ctxclock"
	"github.com/usuwarium/usuwarium/internal/ctxconfig"
	"github.com/usuwarium/usuwarium/internal/ctxhttpclient"
	"github.com/usuwarium/usuwarium/internal/ctxlogger"
	"github.com/usuwarium/usuwarium/internal/ctxstore"
	"github.com/usuwarium/usuwarium/internal/ctxsyncer"
	"github.com/usuwarium/usuwarium/internal/httpcache"
	"github.com/usuwarium/usuwarium/internal/logrusstackhook"
	"github.com/usuwarium/usuwarium/internal/sheetfeed"
	"github.com/usuwarium/usuwarium/internal/sqlitelogger"
	"github.com/usuwarium/usuwarium/internal/store"
	"github.com/usuwarium/usuwarium/internal/syncer"
	"github.com/usuwarium/usuwarium/internal/timeutil"
	"github.com/usuwarium/usuwarium/models"
)

var cfg = config.Config{
	LogLevel:             logrus.InfoLevel,
	LogDebugLevels:       config.LevelList{logrus.DebugLevel, logrus.TraceLevel},
	LogQueries:           config.LogQueries{Enabled: true, SlowerThan: time.Millisecond * 100},
	LogSORM:              false,
	ApplicationAddr:      ":8080",
	ApplicationDatabase:  "database.db",
	ApplicationCachePath: "cache.db",
	ApplicationMinify:    true,
	SheetBaseURL:         sheetfeed.DefaultBaseURL,
	RefreshInterval:      timeutil.Duration(time.Hour),
}

func init() {
	for _, configPath := range []string{"config.toml", "config.yaml", "config.yml"} {
		if st, err := os.Stat(configPath); err == nil && st != nil && !st.IsDir() {
			cfg.Config = configPath
		}
	}
}

type simpleQueryLogger struct {
	logger *logrus.Logger
}

func (s *simpleQueryLogger) LogQuery(query string, args []interface{}) {
	fields := logrus.Fields{
		"db.query":      query,
		"db.args.count": len(args),
	}

	for i, e := range args {
		fields[fmt.Sprintf("db.args.%d", i)] = e
	}

	s.logger.WithFields(fields).Info("sorm query start")
}

func (s *simpleQueryLogger) LogQueryAfter(query string, args []interface{}, duration time.Duration, err error) {
	fields := logrus.Fields{
		"db.query":      query,
		"db.duration":   duration,
		"db.error":      err,
		"db.args.count": len(args),
	}

	for i, e := range args {
		fields[fmt.Sprintf("db.args.%d", i)] = e
	}

	s.logger.WithFields(fields).Info("sorm query finish")
}

func main() {
	ctx := context.Background()

	if err := configreader.Read(os.Args[0], os.Args[1:], os.Environ(), &cfg); err != nil {
		panic(err)
	}

	ctx = ctxconfig.WithConfig(ctx, cfg)
	ctx = ctxclock.WithClock(ctx, ctxclock.NewRealClock())

	logger := logrus.New()

	logger.SetLevel(cfg.LogLevel)
	if len(cfg.LogDebugLevels) > 0 {
		logger.AddHook(logrusstackhook.New(cfg.LogDebugLevels, nil))
	}

	logger.WithFields(logrus.Fields{
		"config.config":                 cfg.Config,
		"config.log_level":              cfg.LogLevel,
		"config.log_debug_levels":       cfg.LogDebugLevels,
		"config.log_queries":            cfg.LogQueries,
		"config.log_sorm":               cfg.LogSORM,
		"config.application_addr":       cfg.ApplicationAddr,
		"config.application_database":   cfg.ApplicationDatabase,
		"config.application_cache_path": cfg.ApplicationCachePath,
		"config.application_minify":     cfg.ApplicationMinify,
		"config.sheet_base_url":         cfg.SheetBaseURL,
		"config.sheet_public_id":        cfg.SheetPublicID,
		"config.videos_sheet_gid":       cfg.VideosSheetGID,
		"config.songs_sheet_gid":        cfg.SongsSheetGID,
		"config.refresh_interval":       time.Duration(cfg.RefreshInterval),
	}).Info("program starting")

	if cfg.LogSORM {
		sorm.SetQueryLogger(&simpleQueryLogger{logger})
	}

	ctx = ctxlogger.WithLogger(ctx, logger)

	dbDriver := "sqlite3"

	if !cfg.LogQueries.IsZero() {
		dbDriver = "sqlite3:logged"

		sql.Register(dbDriver, sqlitelogger.New(
			&sqlite3.SQLiteDriver{},
			&sqlitelogger.BasicFilter{
				LogSlowerThan: cfg.LogQueries.SlowerThan,
				IgnorePackageStackFrames: []string{
					// standard library
					"database/sql",
					"net/http",
					"runtime",
					// libraries
					"github.com/gorilla/mux",
					"github.com/shogo82148/go-sql-proxy",
					"github.com/urfave/negroni/v2",
					// middleware
					"github.com/usuwarium/usuwarium/internal/ctxclock",
					"github.com/usuwarium/usuwarium/internal/ctxlogger",
					"github.com/usuwarium/usuwarium/internal/ctxstore",
					"github.com/usuwarium/usuwarium/internal/ctxsyncer",
					"github.com/usuwarium/usuwarium/internal/sqlitelogger",
					// main
					"main",
				},
			},
		))
	}

	db, err := sql.Open(dbDriver, cfg.ApplicationDatabase)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	st := store.New(db)

	if err := st.Migrate(ctx); err != nil {
		panic(err)
	}

	ctx = ctxstore.WithStore(ctx, st)

	cacheDB, err := bbolt.Open(cfg.ApplicationCachePath, 0600, nil)
	if err != nil {
		panic(err)
	}
	defer cacheDB.Close()

	ctx = ctxhttpclient.WithHTTPClient(ctx, &http.Client{
		Transport: httpcache.NewTransport(nil, httpcache.NewBBoltStorage(cacheDB), 0),
	})

	feed := sheetfeed.New(cfg.SheetBaseURL, cfg.SheetPublicID, cfg.VideosSheetGID, cfg.SongsSheetGID)

	// sheet fetches bypass the cache; freshness is the syncer's job
	sy := syncer.New(st, &uncachedSource{feed: feed}, time.Duration(cfg.RefreshInterval))

	ctx = ctxsyncer.WithSyncer(ctx, sy)

	workers := []worker{
		{
			name: "application",
			run: func(ctx context.Context) error {
				return runApplicationWorker(ctx, cfg.ApplicationAddr)
			},
		},
		{
			name: "sync",
			run: func(ctx context.Context) error {
				return sy.Run(ctx)
			},
		},
	}

	if err := runAllWorkers(ctx, workers); err != nil {
		panic(err)
	}
}

// uncachedSource fetches sheet data with a plain HTTP client so the bbolt
// response cache never masks a refresh.
type uncachedSource struct {
	feed *sheetfeed.Feed
}

func (s *uncachedSource) FetchVideos(ctx context.Context) ([]models.Video, error) {
	return s.feed.FetchVideos(ctxhttpclient.WithHTTPClient(ctx, http.DefaultClient))
}

func (s *uncachedSource) FetchSongs(ctx context.Context) ([]models.Song, error) {
	return s.feed.FetchSongs(ctxhttpclient.WithHTTPClient(ctx, http.DefaultClient))
}

type worker struct {
	name string
	run  func(ctx context.Context) error
}

func runAllWorkers(ctx context.Context, workers []worker) error {
	done := make(chan error, len(workers))
	cancellers := make([]context.CancelCauseFunc, len(workers))

	var rw sync.RWMutex

	for id, w := range workers {
		go func(id int, w worker) {
			for {
				l := ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
					"worker.id":   id + 1,
					"worker.name": w.name,
				})

				ctx, cancel := context.WithCancelCause(ctxlogger.WithLogger(ctx, l))

				rw.Lock()
				cancellers[id] = cancel
				rw.Unlock()

				if err := w.run(ctx); err != nil {
					l.WithError(err).Error("worker failed")

					rw.RLock()
					for _, fn := range cancellers {
						if fn == nil {
							continue
						}

						fn(fmt.Errorf("worker %d (%s) failed: %w", id+1, w.name, err))
					}
					rw.RUnlock()
				} else {
					l.Info("worker restarted")
				}

				time.Sleep(time.Second)
			}
		}(id, w)
	}

	var errs []error
	for err := range done {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func runApplicationWorker(ctx context.Context, addr string) error {
	l := ctxlogger.GetLogger(ctx)

	l.WithFields(logrus.Fields{
		"args.addr": addr,
	}).Info("running application worker")

	m := mux.NewRouter()

	m.Methods(http.MethodGet).Path("/api/videos").HandlerFunc(handlers.Videos)
	m.Methods(http.MethodGet).Path("/api/videos/{id}").HandlerFunc(handlers.Video)
	m.Methods(http.MethodGet).Path("/api/videos/{id}/songs").HandlerFunc(handlers.VideoSongs)
	m.Methods(http.MethodGet).Path("/api/filters").HandlerFunc(handlers.QuickFilters)
	m.Methods(http.MethodGet).Path("/api/songs").HandlerFunc(handlers.Songs)
	m.Methods(http.MethodGet).Path("/api/songs/export.csv").HandlerFunc(handlers.SongsExport)
	m.Methods(http.MethodGet).Path("/api/artists").HandlerFunc(handlers.Artists)
	m.Methods(http.MethodGet).Path("/api/titles").HandlerFunc(handlers.Titles)
	m.Methods(http.MethodGet).Path("/api/stats").HandlerFunc(handlers.Stats)
	m.Methods(http.MethodGet).Path("/api/playlists").HandlerFunc(handlers.Playlists)
	m.Methods(http.MethodPost).Path("/api/playlists").HandlerFunc(handlers.PlaylistCreate)
	m.Methods(http.MethodGet).Path("/api/playlists/{id}").HandlerFunc(handlers.Playlist)
	m.Methods(http.MethodPost).Path("/api/playlists/{id}").HandlerFunc(handlers.PlaylistRename)
	m.Methods(http.MethodDelete).Path("/api/playlists/{id}").HandlerFunc(handlers.PlaylistDelete)
	m.Methods(http.MethodPost).Path("/api/playlists/{id}/items").HandlerFunc(handlers.PlaylistSetItems)
	m.Methods(http.MethodGet).Path("/api/sync").HandlerFunc(handlers.SyncStatus)
	m.Methods(http.MethodPost).Path("/api/sync/refresh").HandlerFunc(handlers.SyncRefresh)
	m.Methods(http.MethodGet).Path("/api/sync/updates").HandlerFunc(handlers.SyncSSE)
	m.Methods(http.MethodGet).Path("/thumbnails/{id}").HandlerFunc(handlers.Thumbnail)

	min := minify.New()
	min.Add("application/json", mjson.DefaultMinifier)

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseFunc(ctxlogger.Register(l))
	n.UseFunc(ctxclock.Register(ctxclock.GetClock(ctx)))
	n.UseFunc(ctxconfig.Register(ctxconfig.GetConfig(ctx)))
	n.UseFunc(ctxstore.Register(ctxstore.GetStore(ctx)))
	n.UseFunc(ctxsyncer.Register(ctxsyncer.GetSyncer(ctx)))
	n.UseFunc(ctxhttpclient.Register(ctxhttpclient.GetHTTPClient(ctx)))
	n.UseFunc(ctxlogger.Log())

	if cfg.ApplicationMinify {
		n.UseFunc(func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
			if strings.ToLower(r.Header.Get("connection")) != "upgrade" {
				mw := min.ResponseWriter(rw, r)
				defer mw.Close()
				rw = mw
			}

			next(rw, r)
		})
	}

	n.UseHandler(m)

	s := &http.Server{
		Addr:        addr,
		Handler:     n,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		l.Info("starting server")
		errs <- s.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		return s.Shutdown(ctx)
	}
}
