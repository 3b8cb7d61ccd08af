package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
	"github.com/hazyhaar/placestd/pkg/standardize"
	"github.com/redis/go-redis/v9"
)

// loader builds standardizers from the configured gazetteer backend. The
// database handle and the Redis client are opened once and shared across
// reloads; the dataset directory and the standardizer config are read again
// on every load.
type loader struct {
	cfg    config
	logger *slog.Logger
	// logDiagnostics logs every resolver diagnostic at info level.
	logDiagnostics bool

	once    sync.Once
	db      *sql.DB
	redis   *redis.Client
	cache   gazetteer.Cache
	openErr error

	// epoch and loads name the cache generation of each load. The epoch
	// keeps generations of earlier processes apart in a shared Redis.
	epoch int64
	loads atomic.Uint64
}

func newLoader(cfg config, logger *slog.Logger) *loader {
	return &loader{cfg: cfg, logger: logger, epoch: time.Now().UnixNano()}
}

func (l *loader) open() error {
	l.once.Do(func() {
		if l.cfg.DB.DSN != "" {
			if l.db, l.openErr = gazetteer.OpenDB(l.cfg.DB.Driver, l.cfg.DB.DSN); l.openErr != nil {
				return
			}
		}
		if l.redis = gazetteer.OpenRedisFromEnv(); l.redis != nil {
			l.cache = gazetteer.NewRedisCache(l.redis, "placestd:", l.cfg.Cache.TTL)
			l.logger.Info("index cache: redis", "addr", l.redis.Options().Addr)
		} else if l.cfg.Cache.Size > 0 && l.cfg.DB.DSN != "" {
			// An in-memory dataset gains nothing from an in-memory cache.
			if l.cache, l.openErr = gazetteer.NewLRU(l.cfg.Cache.Size, l.cfg.Cache.TTL); l.openErr == nil {
				l.logger.Info("index cache: lru", "size", l.cfg.Cache.Size)
			}
		}
	})
	return l.openErr
}

// index returns the configured index and its description.
func (l *loader) index(ctx context.Context) (gazetteer.Index, standardize.Info, error) {
	if err := l.open(); err != nil {
		return nil, standardize.Info{}, err
	}

	var (
		idx  gazetteer.Index
		info standardize.Info
	)
	if l.db != nil {
		if err := l.db.PingContext(ctx); err != nil {
			return nil, info, fmt.Errorf("ping %s: %w", l.cfg.DB.Driver, err)
		}
		idx = gazetteer.NewSQLIndex(l.db, l.cfg.DB.Driver)
		info = standardize.Info{DatasetID: l.cfg.DB.Driver, Backend: "sql"}
	} else {
		ds, err := gazetteer.LoadDataset(l.cfg.DatasetDir)
		if err != nil {
			return nil, info, err
		}
		idx = ds.Index
		words, places := ds.Index.Stats()
		info = standardize.Info{
			DatasetID: ds.Manifest.ID,
			Version:   ds.Manifest.Version,
			Backend:   "memory",
			Words:     words,
			Places:    places,
		}
	}
	if l.cache != nil {
		// A reload may change the gazetteer behind the same cache.
		gen := fmt.Sprintf("%s@%s/%x.%d", info.DatasetID, info.Version, l.epoch, l.loads.Add(1))
		idx = gazetteer.NewCachedIndex(idx, l.cache, gen, l.logger)
		info.Backend += "+cache"
	}
	return idx, info, nil
}

// load implements standardize.Loader.
func (l *loader) load(ctx context.Context) (*standardize.Standardizer, standardize.Info, error) {
	idx, info, err := l.index(ctx)
	if err != nil {
		return nil, info, err
	}

	var stdCfg *standardize.Config
	if l.cfg.Standardizer != "" {
		if stdCfg, err = standardize.LoadConfig(l.cfg.Standardizer); err != nil {
			return nil, info, err
		}
	}
	opts := []standardize.Option{standardize.WithLogger(l.logger)}
	if l.logDiagnostics {
		opts = append(opts, standardize.WithErrorHandler(standardize.LogHandler{Logger: l.logger.With("component", "diagnostics")}))
	}
	s, err := standardize.New(idx, stdCfg, opts...)
	if err != nil {
		return nil, info, err
	}
	info.LoadedAt = time.Now()
	l.logger.Info("gazetteer ready",
		"dataset", info.DatasetID, "version", info.Version, "backend", info.Backend,
		"words", info.Words, "places", info.Places)
	return s, info, nil
}

func (l *loader) Close() error {
	var errs []error
	if l.db != nil {
		errs = append(errs, l.db.Close())
	}
	if l.redis != nil {
		errs = append(errs, l.redis.Close())
	}
	return errors.Join(errs...)
}
