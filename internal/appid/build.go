package appid

import "sync"

// Build identifies the running binary. main sets it from linker flags.
type Build struct {
	Version string `json:"version"`
	Commit  string `json:"git_commit"`
	Date    string `json:"build_date"`
}

var (
	buildMu sync.RWMutex
	build   = Build{Version: "dev", Commit: "unknown", Date: "unknown"}
)

// SetBuild records the build metadata. Empty fields keep their defaults.
func SetBuild(b Build) {
	buildMu.Lock()
	defer buildMu.Unlock()
	if b.Version != "" {
		build.Version = b.Version
	}
	if b.Commit != "" {
		build.Commit = b.Commit
	}
	if b.Date != "" {
		build.Date = b.Date
	}
}

// CurrentBuild returns the build metadata.
func CurrentBuild() Build {
	buildMu.RLock()
	defer buildMu.RUnlock()
	return build
}
