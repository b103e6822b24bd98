// Package appid holds the application identity used for CLI help, config
// discovery, environment prefixes, and telemetry namespaces.
package appid

import (
	"context"
	"os"
	"strings"
)

// EnvBinaryName overrides the binary name reported by Get.
const EnvBinaryName = "NEWSDECADES_BINARY_NAME"

// Identity describes the application.
type Identity struct {
	BinaryName  string
	ConfigName  string
	EnvPrefix   string
	Description string
	Vendor      string
}

var defaultIdentity = Identity{
	BinaryName:  "newsdecades",
	ConfigName:  "newsdecades",
	EnvPrefix:   "NEWSDECADES_",
	Description: "Decade-level frequency timelines from the news archive",
	Vendor:      "newsdecades",
}

// Get returns the application identity. The context is accepted for parity
// with loaders that resolve identity from disk.
func Get(ctx context.Context) (*Identity, error) {
	_ = ctx
	identity := defaultIdentity
	if name := strings.TrimSpace(os.Getenv(EnvBinaryName)); name != "" {
		identity.BinaryName = name
	}
	return &identity, nil
}

// TelemetryNamespace returns the metric namespace for the application.
func (i *Identity) TelemetryNamespace() string {
	if i == nil {
		return defaultIdentity.Vendor
	}
	name := i.BinaryName
	if name == "" {
		name = defaultIdentity.BinaryName
	}
	return strings.ReplaceAll(name, "-", "_")
}

// Prefix returns the environment prefix with a trailing underscore.
func (i *Identity) Prefix() string {
	prefix := defaultIdentity.EnvPrefix
	if i != nil && i.EnvPrefix != "" {
		prefix = i.EnvPrefix
	}
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix
}
