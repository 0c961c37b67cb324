package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/cloudseek/cloudseek/internal/absolute"
	"github.com/cloudseek/cloudseek/internal/aliases"
	"github.com/cloudseek/cloudseek/internal/cache"
	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/logger"
	"github.com/cloudseek/cloudseek/internal/metadata"
	"github.com/cloudseek/cloudseek/internal/metadata/jikan"
	"github.com/cloudseek/cloudseek/internal/metadata/tmdb"
	"github.com/cloudseek/cloudseek/internal/metrics"
	"github.com/cloudseek/cloudseek/internal/parser"
	"github.com/cloudseek/cloudseek/internal/provider"
	"github.com/cloudseek/cloudseek/internal/provider/snapshot"
	"github.com/cloudseek/cloudseek/internal/retry"
	"github.com/cloudseek/cloudseek/internal/search"
	"github.com/cloudseek/cloudseek/internal/watcher"
)

// app holds the wired services shared by serve and search.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	cache     *cache.Cache
	metrics   *metrics.Metrics
	parser    *parser.Parser
	providers *provider.Registry
	snapshots []*snapshot.Provider
	aliases   *aliases.Store
	search    *search.Coordinator
}

func newApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	c, err := cache.New(cache.Config{
		MaxSize:       cfg.Cache.MaxSize,
		DefaultTTL:    cfg.Cache.DefaultTTL,
		SweepInterval: cfg.Cache.SweepInterval,
	}, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	a := &app{
		cfg:       cfg,
		log:       log,
		cache:     c,
		metrics:   metrics.New(),
		parser:    parser.New(c),
		providers: provider.NewRegistry(),
		aliases:   aliases.NewStore(cfg.Aliases.Path, log.Logger),
	}
	if err := a.metrics.RegisterCache(c); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to register cache metrics: %w", err)
	}

	if err := a.registerProviders(); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := a.aliases.Load(); err != nil {
		_ = c.Close()
		return nil, err
	}

	a.search = search.NewCoordinator(search.Deps{
		Providers: a.providers,
		Metadata:  a.metadataChain(),
		Aliases:   a.aliases,
		Parser:    a.parser,
		Absolute:  absolute.New(c, log.Logger),
		Metrics:   a.metrics,
	}, search.ConfigFromSearch(cfg.Search), log.Logger)

	return a, nil
}

func (a *app) registerProviders() error {
	for _, pc := range a.cfg.Providers {
		kind, err := provider.ParseKind(pc.Kind)
		if err != nil {
			return err
		}
		snap, err := snapshot.New(snapshot.Options{
			Kind:          kind,
			Path:          pc.Snapshot,
			StreamBaseURL: pc.StreamBaseURL,
			DisableBulk:   pc.DisableBulk,
		}, a.log.Logger)
		if err != nil {
			return fmt.Errorf("failed to load %s snapshot: %w", kind, err)
		}
		a.snapshots = append(a.snapshots, snap)
		a.providers.Register(provider.NewRateLimited(snap, pc.RequestsPerSecond, pc.Burst))
	}
	if len(a.snapshots) == 0 {
		a.log.Warn().Msg("No providers configured, every search will fail validation")
	}
	return nil
}

// metadataChain builds cache -> breaker -> sources. It returns nil when no
// source is available so queries skip metadata entirely.
func (a *app) metadataChain() metadata.Provider {
	mc := a.cfg.Metadata
	retryCfg := retry.Config{
		InitialDelay: mc.Retry.InitialDelay,
		MaxDelay:     mc.Retry.MaxDelay,
		MaxAttempts:  mc.Retry.MaxAttempts,
		Multiplier:   mc.Retry.Multiplier,
	}
	if retryCfg.MaxAttempts <= 0 {
		retryCfg = retry.DefaultConfig()
	}

	composite := &metadata.Composite{}
	if t := tmdb.NewClient(mc.TMDB, retryCfg, a.log.Logger); t.IsConfigured() {
		composite.Episodes = t
		composite.Titles = t
	} else {
		a.log.Warn().Msg("TMDB API key not configured, absolute episodes and alternate titles disabled")
	}
	if mc.Jikan.Enabled {
		composite.Anime = jikan.NewClient(mc.Jikan, retryCfg, a.log.Logger)
	}
	if composite.Episodes == nil && composite.Anime == nil {
		return nil
	}

	breaker := metadata.NewBreaker(composite, metadata.BreakerConfig{
		MaxRequests:      mc.Breaker.MaxRequests,
		Interval:         mc.Breaker.Interval,
		Timeout:          mc.Breaker.Timeout,
		FailureThreshold: mc.Breaker.FailureThreshold,
	}, a.metrics, a.log.Logger)

	return metadata.NewCached(breaker, a.cache, metadata.TTL{
		Absolute: mc.TTL.Absolute,
		Titles:   mc.TTL.Titles,
		Anime:    mc.TTL.Anime,
		Negative: mc.TTL.Negative,
	})
}

// watch starts hot reload of the alias file and provider snapshots.
func (a *app) watch() (*watcher.Service, error) {
	svc, err := watcher.NewService(watcher.DefaultConfig(), a.log.Logger)
	if err != nil {
		return nil, err
	}
	if a.aliases.Path() != "" {
		if err := svc.Register(a.aliases.Path(), a.aliases.Load); err != nil {
			return nil, errors.Join(err, svc.Stop())
		}
	}
	for _, snap := range a.snapshots {
		if err := svc.Register(snap.Path(), snap.Reload); err != nil {
			return nil, errors.Join(err, svc.Stop())
		}
	}
	svc.Start()
	return svc, nil
}

func (a *app) Close() error {
	return a.cache.Close()
}

// queryTimeout bounds a CLI search slightly above the coordinator's own deadline.
func (a *app) queryTimeout() time.Duration {
	return a.cfg.Search.QueryTimeout + 5*time.Second
}
