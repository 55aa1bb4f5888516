// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/classpoll/middleware"
	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/poll"
)

type ParticipantHandler struct {
	roster *poll.Roster
}

func NewParticipantHandler(roster *poll.Roster) *ParticipantHandler {
	return &ParticipantHandler{roster: roster}
}

// ListParticipants handles GET /api/participants
func (h *ParticipantHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	ps, err := h.roster.List(r.Context())
	if err != nil {
		writeError(w, err, "Failed to fetch participants")
		return
	}
	if ps == nil {
		ps = []*models.Participant{}
	}

	middleware.JSONResponse(w, http.StatusOK, ps)
}
