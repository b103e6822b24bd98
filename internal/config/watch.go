package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// watchDebounce coalesces the burst of events one save produces.
const watchDebounce = 100 * time.Millisecond

var reloadMu sync.Mutex

// Reload re-reads the config file used by v and decodes the result. A
// missing file keeps the defaults and environment layers. Concurrent
// reloads (SIGHUP and the file watcher) are serialized.
func Reload(ctx context.Context, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	reloadMu.Lock()
	defer reloadMu.Unlock()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reload %s: %w", v.ConfigFileUsed(), err)
		}
	}
	return Load(ctx, v)
}

// Watch reloads the config file used by v whenever it changes and calls
// onChange with the new Config. It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file, so saves that
// replace the file (write a temp file, rename it over the original) keep
// triggering reloads. A failed reload is reported to onError and the
// previous config stays in effect.
func Watch(ctx context.Context, v *viper.Viper, onChange func(*Config), onError func(error)) error {
	if v == nil {
		v = viper.GetViper()
	}
	if v.ConfigFileUsed() == "" {
		return errors.New("no config file in use")
	}
	path, err := filepath.Abs(v.ConfigFileUsed())
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	path = filepath.Clean(path)
	if onError == nil {
		onError = func(error) {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close() // nolint:errcheck // best-effort cleanup on watcher shutdown

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !touches(event, path) {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			cfg, err := Reload(ctx, v)
			if err != nil {
				onError(err)
				continue
			}
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onError(err)
		}
	}
}

// touches reports whether event may have changed the contents at path. A
// rename or removal of path itself is ignored; the replacement arrives as a
// Create.
func touches(event fsnotify.Event, path string) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || filepath.Clean(name) != path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
