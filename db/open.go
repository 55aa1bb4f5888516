// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names registered by the imported drivers
const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// Open connects to a SQL store and verifies the connection.
// dbType is "postgres" or "sqlite".
func Open(dbType, url string) (*sql.DB, error) {
	var driver string
	switch dbType {
	case "postgres":
		driver = driverPostgres
	case "sqlite":
		driver = driverSQLite
		if err := ensureDir(url); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported SQL database type %q", dbType)
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == driverSQLite {
		// SQLite allows a single writer; one connection serializes writes
		// instead of surfacing SQLITE_BUSY to callers.
		conn.SetMaxOpenConns(1)
		for _, stmt := range sqlitePragmas {
			if _, err := conn.Exec(stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
			}
		}
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

// ensureDir creates the parent directory of a plain SQLite file path.
func ensureDir(url string) error {
	if url == ":memory:" || strings.HasPrefix(url, "file:") {
		return nil
	}
	dir := filepath.Dir(url)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}
