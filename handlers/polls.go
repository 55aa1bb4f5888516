// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/classpoll/hub"
	"github.com/danielhkuo/classpoll/middleware"
	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/poll"
)

// Notifier receives poll changes made over REST so live clients see them.
type Notifier interface {
	Broadcast(event string, data any)
}

type PollHandler struct {
	coord    *poll.Coordinator
	notifier Notifier
}

// NewPollHandler creates a PollHandler. notifier may be nil.
func NewPollHandler(coord *poll.Coordinator, notifier Notifier) *PollHandler {
	return &PollHandler{coord: coord, notifier: notifier}
}

func (h *PollHandler) notify(event string, data any) {
	if h.notifier != nil {
		h.notifier.Broadcast(event, data)
	}
}

// CreatePoll handles POST /api/polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	can, err := h.coord.CanCreateNewPoll(r.Context())
	if err != nil {
		writeError(w, err, "Failed to create poll")
		return
	}
	if !can {
		middleware.ErrorResponse(w, http.StatusConflict, "A poll is already active")
		return
	}

	p, err := h.coord.CreatePoll(r.Context(), req.Question, req.Options, req.Duration)
	if err != nil {
		writeError(w, err, "Failed to create poll")
		return
	}

	h.notify(hub.EventPollCreated, models.PollWithRemaining{Poll: p, RemainingTime: p.Duration})
	middleware.JSONResponse(w, http.StatusCreated, p)
}

// GetActivePoll handles GET /api/polls/active
func (h *PollHandler) GetActivePoll(w http.ResponseWriter, r *http.Request) {
	p, remaining, err := h.coord.ActiveState(r.Context())
	if err != nil {
		writeError(w, err, "Failed to fetch active poll")
		return
	}
	if p == nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "No active poll")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollWithRemaining{Poll: p, RemainingTime: remaining})
}

// GetPollHistory handles GET /api/polls/history
func (h *PollHandler) GetPollHistory(w http.ResponseWriter, r *http.Request) {
	polls, err := h.coord.History(r.Context())
	if err != nil {
		writeError(w, err, "Failed to fetch poll history")
		return
	}
	if polls == nil {
		polls = []*models.Poll{}
	}

	middleware.JSONResponse(w, http.StatusOK, polls)
}

// GetPoll handles GET /api/polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll id is required")
		return
	}

	p, remaining, err := h.coord.State(r.Context(), pollID)
	if err != nil {
		writeError(w, err, "Failed to fetch poll")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollWithRemaining{Poll: p, RemainingTime: remaining})
}

// EndPoll handles POST /api/polls/{id}/end
func (h *PollHandler) EndPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll id is required")
		return
	}

	p, err := h.coord.EndPoll(r.Context(), pollID)
	if err != nil {
		writeError(w, err, "Failed to end poll")
		return
	}

	slog.Info("poll ended over REST", "poll_id", pollID, "client_ip", middleware.GetClientIP(r))
	h.notify(hub.EventPollEnded, hub.PollEndedPayload{Poll: p})
	middleware.JSONResponse(w, http.StatusOK, p)
}
