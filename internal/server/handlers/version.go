package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"

	"github.com/newsdecades/newsdecades/internal/appid"
)

// ServiceInfo describes how the timeline service is wired.
type ServiceInfo struct {
	Extractor    string `json:"extractor,omitempty"`
	CacheBackend string `json:"cache_backend,omitempty"`
	CacheTTL     string `json:"cache_ttl,omitempty"`
}

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	Name         string      `json:"name"`
	Build        appid.Build `json:"build"`
	Service      ServiceInfo `json:"service"`
	Dependencies DepInfo     `json:"dependencies"`
	Runtime      RuntimeInfo `json:"runtime"`
}

// DepInfo lists framework versions.
type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

// RuntimeInfo describes the Go runtime.
type RuntimeInfo struct {
	GoVersion     string `json:"go_version"`
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// VersionHandler reports build, wiring, and runtime details.
type VersionHandler struct {
	name    string
	service ServiceInfo
}

// NewVersionHandler creates a handler for identity. A nil identity reports
// the default binary name.
func NewVersionHandler(identity *appid.Identity, service ServiceInfo) *VersionHandler {
	if identity == nil {
		identity, _ = appid.Get(context.Background())
	}
	return &VersionHandler{name: identity.BinaryName, service: service}
}

func (h *VersionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	versions := crucible.GetVersion()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(VersionResponse{
		Name:    h.name,
		Build:   appid.CurrentBuild(),
		Service: h.service,
		Dependencies: DepInfo{
			Gofulmen: versions.Gofulmen,
			Crucible: versions.Crucible,
		},
		Runtime: RuntimeInfo{
			GoVersion:     runtime.Version(),
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	})
}
