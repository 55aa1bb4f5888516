// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens SQL connections and creates the schema.

# Connecting

Open picks the driver from the configured database type:

	conn, err := db.Open("sqlite", "./data/classpoll.db")
	conn, err := db.Open("postgres", "postgres://...")

PostgreSQL uses lib/pq; SQLite uses the cgo-free modernc.org/sqlite driver
with foreign keys enabled and a single open connection.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - poll: question, duration, start/end instants, status
  - poll_option: ordered options with vote tallies
  - vote: one row per (poll_id, participant_id)
  - participant: student identities, deactivated instead of deleted

# Relationships

	poll 1──* poll_option
	poll 1──* vote

# Constraints

  - poll(status) has a partial unique index over status = 'active', so the
    store itself rejects a second active poll
  - vote has primary key (poll_id, participant_id), which makes
    INSERT ... ON CONFLICT DO NOTHING the authoritative duplicate check
  - poll_option.votes is never negative
*/
package db
