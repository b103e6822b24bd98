//go:build cgo

package store

import (
	_ "github.com/tursodatabase/go-libsql" // libsql driver (requires cgo).
)
