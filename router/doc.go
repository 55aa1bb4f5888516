// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the classpoll API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(coord, roster, hub)

# Endpoints

Health:

	GET /health

Polls:

	POST /api/polls            - Create poll (409 while another is running)
	GET  /api/polls/active     - Active poll and seconds remaining
	GET  /api/polls/history    - All polls, newest first
	GET  /api/polls/{id}       - One poll and seconds remaining
	POST /api/polls/{id}/end   - End a poll

Participants:

	GET /api/participants - Students currently in the session

Live events:

	GET /ws - Websocket upgrade, see package hub

Polls created or ended over REST are also broadcast to websocket clients.
*/
package router
