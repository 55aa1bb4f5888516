// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/poll"
	"github.com/danielhkuo/classpoll/testutil"
)

func TestListParticipants(t *testing.T) {
	d := setupPollHandler(t)
	handler := NewParticipantHandler(poll.NewRoster(d.store, d.clock))

	w := httptest.NewRecorder()
	handler.ListParticipants(w, httptest.NewRequest("GET", "/api/participants", nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var empty []models.Participant
	testutil.AssertJSON(t, w, &empty)
	if len(empty) != 0 {
		t.Fatalf("expected no participants, got %d", len(empty))
	}

	alice := testutil.CreateTestParticipant(t, d.store, "Alice")
	bob := testutil.CreateTestParticipant(t, d.store, "Bob")
	if err := d.store.DeactivateParticipant(t.Context(), bob.ID); err != nil {
		t.Fatal(err)
	}

	w = httptest.NewRecorder()
	handler.ListParticipants(w, httptest.NewRequest("GET", "/api/participants", nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var ps []models.Participant
	testutil.AssertJSON(t, w, &ps)
	if len(ps) != 1 || ps[0].ID != alice.ID || ps[0].Name != "Alice" {
		t.Errorf("expected only Alice, got %+v", ps)
	}
}
