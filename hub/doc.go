// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package hub is the realtime side of the service: a websocket endpoint that
turns client events into poll operations and broadcasts the results.

Every frame in either direction is an Envelope:

	{"event": "poll:vote", "data": {"pollId": "...", "optionIndex": 1}}

Each inbound event has a fixed payload type that is decoded and validated
before anything else happens. A rejected event produces a unicast "error"
frame carrying a message and a code from the poll package; the connection
stays open.

A connection starts with an empty Session. "teacher:join" or "student:join"
sets its role once; a student session is also bound to a participant id,
which a reconnecting client presents again to resume.

Events from one connection are handled in order. Broadcasts go through the
Run loop, which owns the set of connected clients.
*/
package hub
