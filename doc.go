// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the classpoll server.

classpoll runs live classroom polls: a teacher starts a timed
multiple-choice question, each student votes once before the deadline, and
everyone connected sees the tallies change as votes arrive.

# Starting the Server

The server reads environment variables (or a .env file) and CLI flags:

	DATABASE_URL=classpoll.db go run .

Or with flags:

	go run . -p 5000 -t postgres -d "postgres://..."

# Configuration

Required settings:

  - DATABASE_URL (-d): store connection string (file path for sqlite)

Optional settings:

  - PORT (-p): Server port (default: 5000)
  - DATABASE_TYPE (-t): sqlite, postgres or mongo (default: sqlite)
  - FRONTEND_URL (-origin): allowed browser origin (default:
    http://localhost:3000, "*" allows any)

# Architecture

  - poll: poll lifecycle, vote rules and deadline timers
  - hub: websocket endpoint and event dispatch
  - store, store/mongostore: SQL and MongoDB persistence
  - handlers, router, middleware: REST API
  - clock, ids, models: shared building blocks
  - db: connections and schema
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
