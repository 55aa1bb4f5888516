// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the classpoll REST API.

# Handler Types

Each handler is a struct holding the service it fronts:

  - PollHandler: create, read and end polls through the poll.Coordinator
  - ParticipantHandler: list students through the poll.Roster

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(coord, hub)
	participantHandler := handlers.NewParticipantHandler(roster)

PollHandler takes a Notifier (normally the websocket hub) so polls created
or ended over REST reach live clients too. It may be nil.

# Poll Endpoints

	POST /api/polls          → CreatePoll (409 while another poll is running)
	GET  /api/polls/active   → GetActivePoll
	GET  /api/polls/history  → GetPollHistory
	GET  /api/polls/{id}     → GetPoll
	POST /api/polls/{id}/end → EndPoll (idempotent)

Voting is not exposed over REST; students vote through the websocket hub.

# Errors

Poll errors map to HTTP statuses with StatusFor:

	validation                              → 400
	not_found                               → 404
	poll_ended, expired, already_voted,
	conflict                                → 409
	unauthorized                            → 403
	anything else                           → 500 (details logged, not returned)
*/
package handlers
