// Package config provides centralized configuration management for newsdecades.
// Values are layered by viper (defaults, config file, environment, flags) and
// decoded into the typed Config with mapstructure.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/newsdecades/newsdecades/internal/appid"
	"github.com/newsdecades/newsdecades/internal/core/timeline"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec maps an environment variable to a config key.
type EnvVarSpec struct {
	Name string
	Key  string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Upstream defaults
	v.SetDefault("upstream.url_template", timeline.DefaultURLTemplate)
	v.SetDefault("upstream.timeout", "10s")
	v.SetDefault("upstream.user_agent", "newsdecades")
	v.SetDefault("upstream.max_body_bytes", 4<<20)
	v.SetDefault("upstream.extractor", "pattern")

	// Cache defaults
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.max_entries", 1024)

	// Store defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.profile", "structured")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Health check defaults
	v.SetDefault("health.enabled", true)

	// Debug defaults
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)
}

// BindEnv binds the short environment names from getEnvSpecs and enables
// PREFIX_SECTION_KEY lookups for every other key.
func BindEnv(v *viper.Viper, identity *appid.Identity) error {
	prefix := identity.Prefix()
	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, spec := range getEnvSpecs(prefix) {
		long := prefix + strings.ToUpper(strings.ReplaceAll(spec.Key, ".", "_"))
		if err := v.BindEnv(spec.Key, spec.Name, long); err != nil {
			return fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}
	return nil
}

// getEnvSpecs returns the short environment names, e.g. NEWSDECADES_PORT.
// A short name must never equal PREFIX_<SECTION>: AutomaticEnv would read it
// as a value for the whole section and hide every key beneath it.
func getEnvSpecs(prefix string) []EnvVarSpec {
	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Key: "server.host"},
		{Name: prefix + "PORT", Key: "server.port"},
		{Name: prefix + "READ_TIMEOUT", Key: "server.read_timeout"},
		{Name: prefix + "WRITE_TIMEOUT", Key: "server.write_timeout"},
		{Name: prefix + "IDLE_TIMEOUT", Key: "server.idle_timeout"},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Key: "server.shutdown_timeout"},

		// Upstream config
		{Name: prefix + "UPSTREAM_URL", Key: "upstream.url_template"},
		{Name: prefix + "UPSTREAM_TIMEOUT", Key: "upstream.timeout"},
		{Name: prefix + "EXTRACTOR", Key: "upstream.extractor"},

		// Cache config
		{Name: prefix + "CACHE_BACKEND", Key: "cache.backend"},
		{Name: prefix + "CACHE_TTL", Key: "cache.ttl"},

		// Logging config
		{Name: prefix + "LOG_LEVEL", Key: "logging.level"},
		{Name: prefix + "LOG_PROFILE", Key: "logging.profile"},

		// Store config
		{Name: prefix + "DB_DRIVER", Key: "store.driver"},
		{Name: prefix + "DB_PATH", Key: "store.path"},
		{Name: prefix + "DB_URL", Key: "store.url"},
		{Name: prefix + "DB_AUTH_TOKEN", Key: "store.auth_token"},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Key: "metrics.enabled"},
		{Name: prefix + "METRICS_PORT", Key: "metrics.port"},

		// Health config
		{Name: prefix + "HEALTH_ENABLED", Key: "health.enabled"},

		// Debug config
		{Name: prefix + "DEBUG_MODE", Key: "debug.enabled"},
		{Name: prefix + "DEBUG_PPROF_ENABLED", Key: "debug.pprof_enabled"},
	}
}

// Load decodes the settings held by v into a Config and stores it as the
// current configuration. Runtime overrides win over every other layer.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, v *viper.Viper, runtimeOverrides ...map[string]any) (*Config, error) {
	_ = ctx
	if v == nil {
		v = viper.GetViper()
	}

	for _, overrides := range runtimeOverrides {
		for key, value := range flatten("", overrides) {
			v.Set(key, value)
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Cache.Backend)) {
	case "", CacheBackendNone, CacheBackendMemory, CacheBackendStore:
	default:
		return fmt.Errorf("invalid cache backend %q (want none, memory, or store)", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("invalid cache ttl %s", c.Cache.TTL)
	}
	if c.Upstream.URLTemplate != "" && !strings.Contains(c.Upstream.URLTemplate, "%s") {
		return fmt.Errorf("upstream url template must contain %%s: %s", c.Upstream.URLTemplate)
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func flatten(prefix string, values map[string]any) map[string]any {
	out := make(map[string]any)
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := values[key].(map[string]any); ok {
			for k, v := range flatten(full, nested) {
				out[k] = v
			}
			continue
		}
		out[full] = values[key]
	}
	return out
}

func appName() string {
	identity, err := appid.Get(context.Background())
	if err != nil || strings.TrimSpace(identity.ConfigName) == "" {
		return "newsdecades"
	}
	return identity.ConfigName
}

// DefaultConfigDir returns the XDG-compliant config directory for the app.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(appName())
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := DefaultConfigDir()
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the cache database file.
func DefaultStorePath() string {
	name := appName()
	dataDir := gfconfig.GetAppDataDir(name)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + name + ".db"
	}
	return filepath.Join(dataDir, name+".db")
}
