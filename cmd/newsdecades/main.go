package main

import (
	"github.com/newsdecades/newsdecades/internal/appid"
	"github.com/newsdecades/newsdecades/internal/cmd"
)

// Build metadata, set via ldflags:
// go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2026-10-19"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	appid.SetBuild(appid.Build{Version: version, Commit: commit, Date: buildDate})

	if err := cmd.Execute(); err != nil {
		cmd.ExitForError("Command execution failed", err)
	}
}
