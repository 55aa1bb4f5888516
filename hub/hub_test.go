// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/classpoll/clock"
	"github.com/danielhkuo/classpoll/ids"
	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/poll"
	"github.com/danielhkuo/classpoll/testutil"
	"github.com/gorilla/websocket"
)

var hubStart = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	hub    *Hub
	roster *poll.Roster
	clock  *clock.Fake
	server *httptest.Server
}

func setupHub(t *testing.T) *testEnv {
	t.Helper()

	s := testutil.SetupTestStore(t)
	clk := clock.NewFake(hubStart)
	coord := poll.NewCoordinator(s, s, clk, poll.WithoutExpiryTimers())
	roster := poll.NewRoster(s, clk)
	h := New(coord, roster, clk, AllowAnyOrigin)
	go h.Run()

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		h.Shutdown()
		coord.Close()
	})

	return &testEnv{hub: h, roster: roster, clock: clk, server: srv}
}

type testConn struct {
	t    *testing.T
	conn *websocket.Conn
}

// dial connects and waits until the hub has registered the connection, so
// the caller sees every broadcast made afterwards.
func (e *testEnv) dial(t *testing.T) *testConn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	tc := &testConn{t: t, conn: conn}
	tc.send(EventStateRequest, nil)
	tc.expect(EventStateResponse)
	return tc
}

func (tc *testConn) send(event string, data any) {
	tc.t.Helper()

	env := Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			tc.t.Fatal(err)
		}
		env.Data = raw
	}
	if err := tc.conn.WriteJSON(env); err != nil {
		tc.t.Fatalf("write %s: %v", event, err)
	}
}

// expect reads frames until one carries event and decodes its data into
// out. Frames for other events are skipped.
func (tc *testConn) expect(event string, out ...any) Envelope {
	tc.t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = tc.conn.SetReadDeadline(deadline)
		var env Envelope
		if err := tc.conn.ReadJSON(&env); err != nil {
			tc.t.Fatalf("waiting for %s: %v", event, err)
		}
		if env.Event != event {
			continue
		}
		if len(out) > 0 {
			if err := json.Unmarshal(env.Data, out[0]); err != nil {
				tc.t.Fatalf("decode %s: %v", event, err)
			}
		}
		return env
	}
}

func (tc *testConn) expectError(code string) ErrorPayload {
	tc.t.Helper()

	var e ErrorPayload
	tc.expect(EventError, &e)
	if e.Code != code {
		tc.t.Fatalf("expected error code %s, got %s (%s)", code, e.Code, e.Message)
	}
	return e
}

func joinTeacher(t *testing.T, e *testEnv) *testConn {
	t.Helper()
	tc := e.dial(t)
	tc.send(EventTeacherJoin, nil)
	return tc
}

func joinStudent(t *testing.T, e *testEnv, name string) (*testConn, string) {
	t.Helper()
	tc := e.dial(t)
	tc.send(EventStudentJoin, StudentJoinPayload{Name: name})

	var reg StudentPayload
	tc.expect(EventStudentRegistered, &reg)
	return tc, reg.StudentID
}

func createPoll(t *testing.T, teacher *testConn) *models.Poll {
	t.Helper()
	teacher.send(EventPollCreate, CreatePollPayload{
		Question: "Is water wet?",
		Options:  []string{"Yes", "No"},
		Duration: 30,
	})

	var created models.PollWithRemaining
	teacher.expect(EventPollCreated, &created)
	return created.Poll
}

func TestHub_StudentJoinRegistersAndBroadcasts(t *testing.T) {
	e := setupHub(t)
	teacher := joinTeacher(t, e)

	student := e.dial(t)
	student.send(EventStudentJoin, StudentJoinPayload{Name: "Ada"})

	var reg StudentPayload
	student.expect(EventStudentRegistered, &reg)
	if reg.Name != "Ada" || !ids.ValidParticipantID(reg.StudentID) {
		t.Errorf("unexpected registration %+v", reg)
	}

	var joined StudentPayload
	teacher.expect(EventStudentJoined, &joined)
	if joined != reg {
		t.Errorf("teacher saw %+v, want %+v", joined, reg)
	}
}

func TestHub_CreateVoteFlow(t *testing.T) {
	e := setupHub(t)
	teacher := joinTeacher(t, e)
	student, _ := joinStudent(t, e, "Ada")

	p := createPoll(t, teacher)
	if p.Status != models.StatusActive {
		t.Fatalf("expected active poll, got %s", p.Status)
	}

	var seen models.PollWithRemaining
	student.expect(EventPollCreated, &seen)
	if seen.Poll.ID != p.ID || seen.RemainingTime != 30 {
		t.Errorf("student saw poll %s with %ds, want %s with 30s", seen.Poll.ID, seen.RemainingTime, p.ID)
	}

	student.send(EventPollVote, VotePayload{PollID: p.ID, OptionIndex: intPtr(1)})
	student.expect(EventVoteSuccess)

	var updated models.PollWithRemaining
	teacher.expect(EventPollUpdated, &updated)
	if updated.Poll.Options[1].Votes != 1 || updated.Poll.TotalVotes() != 1 {
		t.Errorf("unexpected tallies %+v", updated.Poll.Options)
	}

	student.send(EventPollVote, VotePayload{PollID: p.ID, OptionIndex: intPtr(0)})
	student.expectError(poll.CodeAlreadyVoted)

	teacher.send(EventPollEnd, EndPollPayload{PollID: p.ID})
	var ended PollEndedPayload
	student.expect(EventPollEnded, &ended)
	if ended.Poll.Status != models.StatusEnded {
		t.Errorf("expected ended poll, got %s", ended.Poll.Status)
	}
}

func TestHub_RoleChecks(t *testing.T) {
	e := setupHub(t)
	student, id := joinStudent(t, e, "Ada")

	student.send(EventPollCreate, CreatePollPayload{Question: "Q?", Options: []string{"A", "B"}, Duration: 10})
	student.expectError(poll.CodeUnauthorized)

	student.send(EventPollEnd, EndPollPayload{PollID: "whatever"})
	student.expectError(poll.CodeUnauthorized)

	student.send(EventStudentRemove, RemoveStudentPayload{StudentID: id})
	student.expectError(poll.CodeUnauthorized)

	student.send(EventTeacherJoin, nil)
	student.expectError(poll.CodeUnauthorized)

	// The connection survives every rejection
	var state StateResponse
	student.send(EventStateRequest, nil)
	student.expect(EventStateResponse, &state)
	if state.Role != models.RoleStudent {
		t.Errorf("expected student role, got %q", state.Role)
	}

	anon := e.dial(t)
	anon.send(EventPollVote, VotePayload{PollID: "p", OptionIndex: intPtr(0)})
	anon.expectError(poll.CodeUnauthorized)
}

func TestHub_RejectsBadFrames(t *testing.T) {
	e := setupHub(t)
	c := e.dial(t)

	if err := c.conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	c.expectError(poll.CodeValidation)

	c.send("poll:launch", map[string]string{"x": "y"})
	e1 := c.expectError(poll.CodeValidation)
	if !strings.Contains(e1.Message, "poll:launch") {
		t.Errorf("expected unknown event named in message, got %q", e1.Message)
	}

	teacher := joinTeacher(t, e)
	teacher.send(EventPollCreate, CreatePollPayload{Question: "", Options: []string{"A", "B"}, Duration: 10})
	teacher.expectError(poll.CodeValidation)
	teacher.send(EventPollCreate, CreatePollPayload{Question: "Q?", Options: []string{"A", "B"}, Duration: 90})
	teacher.expectError(poll.CodeValidation)
}

func TestHub_VoteErrors(t *testing.T) {
	e := setupHub(t)
	teacher := joinTeacher(t, e)
	student, _ := joinStudent(t, e, "Ada")
	p := createPoll(t, teacher)

	student.send(EventPollVote, VotePayload{PollID: "missing", OptionIndex: intPtr(0)})
	student.expectError(poll.CodeNotFound)

	student.send(EventPollVote, VotePayload{PollID: p.ID, OptionIndex: intPtr(7)})
	student.expectError(poll.CodeValidation)

	student.send(EventPollVote, map[string]string{"pollId": p.ID})
	student.expectError(poll.CodeValidation)

	e.clock.Advance(31 * time.Second)
	student.send(EventPollVote, VotePayload{PollID: p.ID, OptionIndex: intPtr(0)})
	student.expectError(poll.CodeExpired)
}

func TestHub_ReconnectResumesIdentity(t *testing.T) {
	e := setupHub(t)
	teacher := joinTeacher(t, e)
	first, id := joinStudent(t, e, "Ada")
	p := createPoll(t, teacher)

	first.send(EventPollVote, VotePayload{PollID: p.ID, OptionIndex: intPtr(0)})
	first.expect(EventVoteSuccess)
	first.conn.Close()

	again := e.dial(t)
	again.send(EventStudentJoin, StudentJoinPayload{StudentID: id})

	var active models.PollWithRemaining
	again.expect(EventPollActive, &active)
	if active.Poll.ID != p.ID {
		t.Errorf("expected active poll %s, got %s", p.ID, active.Poll.ID)
	}

	var state StateResponse
	again.send(EventStateRequest, nil)
	again.expect(EventStateResponse, &state)
	if state.Poll == nil || state.Poll.ID != p.ID {
		t.Fatalf("expected state for poll %s, got %+v", p.ID, state.Poll)
	}
	if state.HasVoted == nil || !*state.HasVoted {
		t.Errorf("expected hasVoted=true after reconnect, got %v", state.HasVoted)
	}

	again.send(EventPollVote, VotePayload{PollID: p.ID, OptionIndex: intPtr(1)})
	again.expectError(poll.CodeAlreadyVoted)

	bad := e.dial(t)
	bad.send(EventStudentJoin, StudentJoinPayload{StudentID: "6f1c2c1e-8d7b-4a51-9d55-2c9f7e0d4b11"})
	bad.expectError(poll.CodeNotFound)
}

func TestHub_StateWithoutPoll(t *testing.T) {
	e := setupHub(t)
	teacher := joinTeacher(t, e)

	var state StateResponse
	teacher.send(EventStateRequest, nil)
	env := teacher.expect(EventStateResponse, &state)

	if state.Poll != nil || state.Role != models.RoleTeacher || state.HasVoted != nil {
		t.Errorf("unexpected state %+v", state)
	}
	if !strings.Contains(string(env.Data), `"poll":null`) {
		t.Errorf("expected explicit null poll, got %s", env.Data)
	}
}

func TestHub_StudentRemove(t *testing.T) {
	e := setupHub(t)
	teacher := joinTeacher(t, e)
	student, id := joinStudent(t, e, "Ada")

	teacher.send(EventStudentRemove, RemoveStudentPayload{StudentID: id})

	var removed StudentRemovedPayload
	student.expect(EventStudentRemoved, &removed)
	if removed.StudentID != id {
		t.Errorf("removed %s, want %s", removed.StudentID, id)
	}

	// Removed ids no longer resolve on reconnect
	again := e.dial(t)
	again.send(EventStudentJoin, StudentJoinPayload{StudentID: id})
	again.expectError(poll.CodeNotFound)
}

func TestHub_RemovedStudentCannotVote(t *testing.T) {
	e := setupHub(t)
	teacher := joinTeacher(t, e)
	student, id := joinStudent(t, e, "Ada")
	p := createPoll(t, teacher)

	teacher.send(EventStudentRemove, RemoveStudentPayload{StudentID: id})
	student.expect(EventStudentRemoved)

	// The connection stays open, but the vote is refused and not counted
	student.send(EventPollVote, VotePayload{PollID: p.ID, OptionIndex: intPtr(0)})
	student.expectError(poll.CodeNotFound)

	var state StateResponse
	teacher.send(EventStateRequest, nil)
	teacher.expect(EventStateResponse, &state)
	if state.Poll == nil || state.Poll.TotalVotes() != 0 {
		t.Errorf("expected no votes after removal, got %+v", state.Poll)
	}
}

func TestHub_BoundStudentCannotRegisterAgain(t *testing.T) {
	e := setupHub(t)
	student, id := joinStudent(t, e, "Ada")

	student.send(EventStudentJoin, StudentJoinPayload{Name: "Grace"})
	student.expectError(poll.CodeUnauthorized)

	// Re-announcing the same id is fine
	student.send(EventStudentJoin, StudentJoinPayload{StudentID: id})
	student.expect(EventStudentJoined)

	participants, err := e.roster.List(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(participants) != 1 || participants[0].ID != id {
		t.Errorf("expected only %s registered, got %+v", id, participants)
	}
}

func TestHub_Chat(t *testing.T) {
	e := setupHub(t)
	teacher := joinTeacher(t, e)
	student, _ := joinStudent(t, e, "Ada")

	student.send(EventChatSend, ChatPayload{Sender: "Ada", Message: " hello "})

	var msg ChatMessage
	teacher.expect(EventChatMessage, &msg)
	if msg.Sender != "Ada" || msg.Message != "hello" || msg.IsTeacher {
		t.Errorf("unexpected chat message %+v", msg)
	}
	if !msg.Timestamp.Equal(hubStart) {
		t.Errorf("Timestamp = %v, want %v", msg.Timestamp, hubStart)
	}

	student.send(EventChatSend, ChatPayload{Sender: "Ada", Message: ""})
	student.expectError(poll.CodeValidation)
}

func TestHub_BroadcastsLazyExpiry(t *testing.T) {
	e := setupHub(t)
	teacher := joinTeacher(t, e)
	student, _ := joinStudent(t, e, "Ada")
	p := createPoll(t, teacher)

	e.clock.Advance(31 * time.Second)
	student.send(EventStateRequest, nil)

	var ended PollEndedPayload
	teacher.expect(EventPollEnded, &ended)
	if ended.Poll.ID != p.ID || ended.Poll.Status != models.StatusEnded {
		t.Errorf("unexpected ended poll %+v", ended.Poll)
	}
}

func TestHub_ClientCount(t *testing.T) {
	e := setupHub(t)
	c := e.dial(t)
	e.dial(t)
	waitForClients(t, e.hub, 2)

	c.conn.Close()
	waitForClients(t, e.hub, 1)
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for h.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", want, h.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func intPtr(i int) *int { return &i }
