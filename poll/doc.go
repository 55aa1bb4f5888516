// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package poll implements the lifecycle of a classroom poll.

A poll moves from active to ended exactly once, either because the teacher
ends it or because its deadline passes. Deadlines are enforced two ways:

  - Lazily: any read or vote that finds an active poll past its end time
    ends it before answering.
  - Actively: the Coordinator keeps a timer per active poll and ends the
    poll when it fires, then calls the OnExpire callback so connected
    clients can be told.

The Coordinator never locks around store calls. Double votes are stopped by
the vote ledger's unique key and tallies are updated with an atomic
increment, so any number of concurrent SubmitVote calls stay consistent.

Errors returned by this package wrap one of the sentinels in errors.go;
use Code to map an error to the short code sent to clients.

Roster wraps the participant registry with id issuing and name validation.
*/
package poll
