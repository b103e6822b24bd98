package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/newsdecades/newsdecades/internal/config"
	"github.com/newsdecades/newsdecades/internal/core/extract"
	"github.com/newsdecades/newsdecades/internal/core/store"
	"github.com/newsdecades/newsdecades/internal/core/timeline"
)

// serviceDeps holds what buildService opened so the caller can release it.
type serviceDeps struct {
	Service *timeline.Service
	Store   *store.Store
}

// Close releases the cache store, if one was opened.
func (d *serviceDeps) Close() error {
	if d == nil || d.Store == nil {
		return nil
	}
	return d.Store.Close()
}

// buildService wires a timeline service from cfg. noCache forces the cache
// off regardless of cache.backend.
func buildService(ctx context.Context, cfg *config.Config, logger timeline.Logger, noCache bool) (*serviceDeps, error) {
	extractor, err := extract.New(cfg.Upstream.Extractor)
	if err != nil {
		return nil, err
	}

	fetcher := &timeline.HTTPFetcher{
		URLTemplate:  cfg.Upstream.URLTemplate,
		UserAgent:    cfg.Upstream.UserAgent,
		Timeout:      cfg.Upstream.Timeout,
		MaxBodyBytes: cfg.Upstream.MaxBodyBytes,
	}

	deps := &serviceDeps{}
	var cache timeline.Cache

	backend := strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	if noCache {
		backend = config.CacheBackendNone
	}
	switch backend {
	case config.CacheBackendNone:
	case "", config.CacheBackendMemory:
		cache = timeline.NewMemoryCache(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	case config.CacheBackendStore:
		db, err := openStore(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		deps.Store = db
		cache = db
	default:
		return nil, fmt.Errorf("invalid cache backend %q", cfg.Cache.Backend)
	}

	deps.Service = timeline.NewService(fetcher, cache, extractor, timeline.Options{
		Debug:    cfg.Debug.Enabled,
		CacheTTL: cfg.Cache.TTL,
		Logger:   logger,
	})
	return deps, nil
}
