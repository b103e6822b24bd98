package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsdecades/newsdecades/internal/appid"
	"github.com/newsdecades/newsdecades/internal/core/timeline"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)

	identity, err := appid.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, BindEnv(v, identity))
	return v
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		cfg, err := Load(ctx, newViper(t))
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify server defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		// Verify upstream defaults
		assert.Equal(t, timeline.DefaultURLTemplate, cfg.Upstream.URLTemplate)
		assert.Equal(t, 10*time.Second, cfg.Upstream.Timeout)
		assert.Equal(t, "pattern", cfg.Upstream.Extractor)
		assert.EqualValues(t, 4<<20, cfg.Upstream.MaxBodyBytes)

		// Verify cache defaults
		assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
		assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
		assert.Equal(t, 1024, cfg.Cache.MaxEntries)

		// Verify store defaults
		assert.Equal(t, "sqlite", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir("newsdecades"), "newsdecades.db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)

		// Verify logging defaults
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, "warn", cfg.EffectiveLogLevel())

		// Verify metrics, health and debug defaults
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.True(t, cfg.Health.Enabled)
		assert.False(t, cfg.Debug.Enabled)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"cache": map[string]any{
				"ttl": "1h",
			},
		}

		cfg, err := Load(ctx, newViper(t), overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, time.Hour, cfg.Cache.TTL)
		assert.Equal(t, 9090, cfg.Metrics.Port)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("NEWSDECADES_PORT", "3000")
		t.Setenv("NEWSDECADES_LOG_LEVEL", "error")
		t.Setenv("NEWSDECADES_METRICS_ENABLED", "false")
		t.Setenv("NEWSDECADES_CACHE_BACKEND", "none")
		t.Setenv("NEWSDECADES_UPSTREAM_USER_AGENT", "test-agent")

		cfg, err := Load(ctx, newViper(t))
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "error", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, CacheBackendNone, cfg.Cache.Backend)
		assert.Equal(t, "test-agent", cfg.Upstream.UserAgent)
	})

	t.Run("DebugForcesDebugLevel", func(t *testing.T) {
		t.Setenv("NEWSDECADES_DEBUG_MODE", "true")

		cfg, err := Load(ctx, newViper(t))
		require.NoError(t, err)
		assert.True(t, cfg.Debug.Enabled)
		assert.Equal(t, "debug", cfg.EffectiveLogLevel())
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		t.Setenv("NEWSDECADES_PORT", "4000")

		overrides := map[string]any{
			"server": map[string]any{
				"port": 5000,
			},
		}

		cfg, err := Load(ctx, newViper(t), overrides)
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cache:\n  backend: store\nupstream:\n  extractor: html\n"), 0o600))

		v := newViper(t)
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())

		cfg, err := Load(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, CacheBackendStore, cfg.Cache.Backend)
		assert.Equal(t, "html", cfg.Upstream.Extractor)
	})

	t.Run("InvalidCacheBackend", func(t *testing.T) {
		_, err := Load(ctx, newViper(t), map[string]any{"cache": map[string]any{"backend": "redis"}})
		require.Error(t, err)
	})

	t.Run("TemplateWithoutPlaceholder", func(t *testing.T) {
		_, err := Load(ctx, newViper(t), map[string]any{"upstream": map[string]any{"url_template": "http://example.com"}})
		require.Error(t, err)
	})
}

func TestGetConfig(t *testing.T) {
	cfg, err := Load(context.Background(), newViper(t))
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
	assert.Equal(t, cfg.Cache.Backend, retrieved.Cache.Backend)
}

func TestEnvSpecs(t *testing.T) {
	specs := getEnvSpecs("NEWSDECADES_")
	require.NotEmpty(t, specs)

	seen := make(map[string]bool)
	for _, spec := range specs {
		assert.False(t, seen[spec.Name], "duplicate env var %s", spec.Name)
		seen[spec.Name] = true
	}
	assert.True(t, seen["NEWSDECADES_PORT"])
	assert.True(t, seen["NEWSDECADES_CACHE_TTL"])

	// A short name equal to a section would shadow the section under
	// AutomaticEnv.
	for section := range newViper(t).AllSettings() {
		assert.False(t, seen["NEWSDECADES_"+strings.ToUpper(section)], "env var shadows section %q", section)
	}
}

func TestEnvSectionNamesDoNotShadowKeys(t *testing.T) {
	t.Setenv("NEWSDECADES_DEBUG_MODE", "true")
	t.Setenv("NEWSDECADES_CACHE_BACKEND", "none")
	t.Setenv("NEWSDECADES_CACHE_TTL", "2h")

	cfg, err := Load(context.Background(), newViper(t))
	require.NoError(t, err)
	assert.True(t, cfg.Debug.Enabled)
	assert.Equal(t, CacheBackendNone, cfg.Cache.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  ttl: 1h\n"), 0o600))

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, v, func(cfg *Config) { changes <- cfg }, nil)
	}()

	// Keep writing until the watcher has registered and delivered a reload.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case cfg := <-changes:
			// A reload can observe the truncated file before the write lands.
			if cfg.Cache.TTL != 2*time.Hour {
				continue
			}
			cancel()
			require.NoError(t, <-done)
			return
		case <-ticker.C:
			require.NoError(t, os.WriteFile(path, []byte("cache:\n  ttl: 2h\n"), 0o600))
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}
}

// startWatch runs Watch on a viper reading path and returns the reload
// channel. The watcher stops with the test.
func startWatch(t *testing.T, path string) <-chan *Config {
	t.Helper()
	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, v, func(cfg *Config) { changes <- cfg }, nil)
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return changes
}

// awaitTTL repeats save until a reload reports want.
func awaitTTL(t *testing.T, changes <-chan *Config, want time.Duration, save func()) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case cfg := <-changes:
			if cfg.Cache.TTL == want {
				return
			}
		case <-ticker.C:
			save()
		case <-deadline:
			t.Fatalf("timed out waiting for reload with cache ttl %s", want)
		}
	}
}

func TestWatchReloadsAfterAtomicSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  ttl: 1h\n"), 0o600))
	changes := startWatch(t, path)

	awaitTTL(t, changes, 3*time.Hour, func() {
		tmp := filepath.Join(dir, ".config.yaml.tmp")
		require.NoError(t, os.WriteFile(tmp, []byte("cache:\n  ttl: 3h\n"), 0o600))
		require.NoError(t, os.Rename(tmp, path))
	})

	// The replaced file is still watched.
	awaitTTL(t, changes, 4*time.Hour, func() {
		require.NoError(t, os.WriteFile(path, []byte("cache:\n  ttl: 4h\n"), 0o600))
	})
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  ttl: 1h\n"), 0o600))
	changes := startWatch(t, path)

	// Let the watcher register before touching the directory.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600))

	select {
	case cfg := <-changes:
		t.Fatalf("unexpected reload: %+v", cfg.Cache)
	case <-time.After(3 * watchDebounce):
	}
}

func TestReloadIsSerialized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  ttl: 5h\n"), 0o600))
	v := newViper(t)
	v.SetConfigFile(path)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg, err := Reload(context.Background(), v)
			assert.NoError(t, err)
			if cfg != nil {
				assert.Equal(t, 5*time.Hour, cfg.Cache.TTL)
			}
		}()
	}
	wg.Wait()
}

func TestWatchRequiresConfigFile(t *testing.T) {
	err := Watch(context.Background(), newViper(t), func(*Config) {}, nil)
	require.Error(t, err)
}
