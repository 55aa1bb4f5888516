// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/classpoll/db"
	"github.com/danielhkuo/classpoll/ids"
	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/store"
)

// SetupTestDB creates a fresh SQLite database with the full schema in a
// per-test temp directory.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open("sqlite", filepath.Join(t.TempDir(), "classpoll_test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// SetupTestStore wraps SetupTestDB in a SQLStore.
func SetupTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	return store.NewSQLStore(SetupTestDB(t))
}

// CreateTestPoll inserts a poll directly through the store, bypassing the
// coordinator. status should be "active" or "ended".
func CreateTestPoll(t *testing.T, s store.PollStore, start time.Time, duration int, status string, options ...string) *models.Poll {
	t.Helper()

	if len(options) == 0 {
		options = []string{"Yes", "No"}
	}

	pollID, _ := ids.NewPollID()
	p := &models.Poll{
		ID:        pollID,
		Question:  "Test Poll",
		Duration:  duration,
		StartTime: start,
		EndTime:   start.Add(time.Duration(duration) * time.Second),
		Status:    status,
		CreatedAt: start,
		UpdatedAt: start,
	}
	for _, text := range options {
		p.Options = append(p.Options, models.Option{Text: text})
	}

	if err := s.CreatePoll(context.Background(), p); err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}
	return p
}

// CreateTestParticipant registers an active participant and returns it.
func CreateTestParticipant(t *testing.T, s store.ParticipantRegistry, name string) *models.Participant {
	t.Helper()

	id, _ := ids.NewParticipantID()
	p := &models.Participant{
		ID:       id,
		Name:     name,
		JoinedAt: time.Now().UTC(),
		IsActive: true,
	}
	if err := s.RegisterParticipant(context.Background(), p); err != nil {
		t.Fatalf("Failed to create test participant: %v", err)
	}
	return p
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
