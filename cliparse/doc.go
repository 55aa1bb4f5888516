// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 5000)
  - DatabaseURL: store connection string (required)
  - DatabaseType: sqlite, postgres or mongo (default: sqlite)
  - AllowedOrigin: origin accepted for CORS and WebSocket upgrades
    (default: http://localhost:3000, "*" allows any)

# CLI Flags

	-p       Server port
	-d       Database URL
	-t       Database type
	-origin  Allowed origin

# Environment Variables

Flags fall back to environment variables:

	PORT          → -p
	DATABASE_URL  → -d
	DATABASE_TYPE → -t
	FRONTEND_URL  → -origin

A .env file in the working directory is read before flags are parsed.
Variables already present in the environment win over the file, and
CLI flags take precedence over both.
*/
package cliparse
