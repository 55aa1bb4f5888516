// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/classpoll/handlers"
	"github.com/danielhkuo/classpoll/hub"
	"github.com/danielhkuo/classpoll/middleware"
	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/poll"
)

func NewRouter(coord *poll.Coordinator, roster *poll.Roster, h *hub.Hub) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(coord, h)
	participantHandler := handlers.NewParticipantHandler(roster)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.JSONResponse(w, http.StatusOK, models.HealthResponse{
			Status:  "ok",
			Message: "Server is running",
		})
	})

	// Polls
	mux.HandleFunc("POST /api/polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("GET /api/polls/active", middleware.WithLogging(pollHandler.GetActivePoll))
	mux.HandleFunc("GET /api/polls/history", middleware.WithLogging(pollHandler.GetPollHistory))
	mux.HandleFunc("GET /api/polls/{id}", middleware.WithLogging(pollHandler.GetPoll))
	mux.HandleFunc("POST /api/polls/{id}/end", middleware.WithLogging(pollHandler.EndPoll))

	// Participants
	mux.HandleFunc("GET /api/participants", middleware.WithLogging(participantHandler.ListParticipants))

	// Live events; the hub logs connections itself
	mux.HandleFunc("GET /ws", h.ServeWS)

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("classpoll API v1"))
	})

	return mux
}
