//go:build cgo_sqlite

// Package sqliteexternal registers the CGO SQLite driver
// (mattn/go-sqlite3) for the core/sqlite collaborator. It is an
// optional dependency for deployments that already carry CGO.
//
// Build with: CGO_ENABLED=1 go build -tags cgo_sqlite
package sqliteexternal

import (
	_ "github.com/mattn/go-sqlite3" // CGO SQLite driver
)

// Driver identity picked up by core/sqlite when the cgo_sqlite tag is
// set.
const (
	// DriverName is the registered database/sql driver name.
	DriverName = "sqlite3"

	// DriverType identifies this as the CGO implementation.
	DriverType = "cgo"

	// DriverPackage is the import path of the underlying driver.
	DriverPackage = "github.com/mattn/go-sqlite3"
)
