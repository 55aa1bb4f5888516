// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/poll"
)

// eventTimeout bounds the store work done for one inbound event.
const eventTimeout = 10 * time.Second

// dispatch decodes one frame and runs its handler. Any failure is reported
// to the sender only.
func (h *Hub) dispatch(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		h.fail(c, "", fmt.Errorf("%w: malformed event", poll.ErrValidation))
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, eventTimeout)
	defer cancel()

	var err error
	switch env.Event {
	case EventStudentJoin:
		err = h.studentJoin(ctx, c, env.Data)
	case EventTeacherJoin:
		err = h.teacherJoin(c, env.Data)
	case EventPollCreate:
		err = h.pollCreate(ctx, c, env.Data)
	case EventPollVote:
		err = h.pollVote(ctx, c, env.Data)
	case EventPollEnd:
		err = h.pollEnd(ctx, c, env.Data)
	case EventStateRequest:
		err = h.stateRequest(ctx, c, env.Data)
	case EventStudentRemove:
		err = h.studentRemove(ctx, c, env.Data)
	case EventChatSend:
		err = h.chatSend(c, env.Data)
	default:
		err = fmt.Errorf("%w: unknown event %q", poll.ErrValidation, env.Event)
	}

	if err != nil {
		h.fail(c, env.Event, err)
	}
}

func (h *Hub) fail(c *Client, event string, err error) {
	code := poll.Code(err)
	message := err.Error()
	if code == poll.CodeInternal {
		slog.Error("event failed", "event", event, "remote", c.remote, "error", err)
		message = "internal server error"
	} else {
		slog.Debug("event rejected", "event", event, "remote", c.remote, "code", code, "error", err)
	}
	h.unicast(c, EventError, ErrorPayload{Message: message, Code: code})
}

func requireTeacher(c *Client) error {
	if !c.session.IsTeacher() {
		return fmt.Errorf("%w: teacher role required", poll.ErrUnauthorized)
	}
	return nil
}

func (h *Hub) studentJoin(ctx context.Context, c *Client, data json.RawMessage) error {
	var req StudentJoinPayload
	if err := decodePayload(data, &req); err != nil {
		return err
	}
	if err := c.session.CanJoinAsStudent(); err != nil {
		return err
	}
	if bound := c.session.StudentID(); bound != "" && req.StudentID != bound {
		return fmt.Errorf("%w: connection already bound to another student", poll.ErrUnauthorized)
	}

	var (
		participant *models.Participant
		err         error
		isNew       bool
	)
	if req.StudentID != "" {
		participant, err = h.roster.Resolve(ctx, req.StudentID)
	} else {
		participant, err = h.roster.Register(ctx, req.Name)
		isNew = true
	}
	if err != nil {
		return err
	}

	next, err := c.session.AsStudent(participant.ID)
	if err != nil {
		return err
	}
	c.session = next

	student := StudentPayload{StudentID: participant.ID, Name: participant.Name}
	if isNew {
		h.unicast(c, EventStudentRegistered, student)
	}
	h.Broadcast(EventStudentJoined, student)

	active, remaining, err := h.coord.ActiveState(ctx)
	if err != nil {
		return err
	}
	if active != nil && active.Status == models.StatusActive {
		h.unicast(c, EventPollActive, models.PollWithRemaining{Poll: active, RemainingTime: remaining})
	}
	return nil
}

func (h *Hub) teacherJoin(c *Client, data json.RawMessage) error {
	if err := decodePayload(data, &emptyPayload{}); err != nil {
		return err
	}
	next, err := c.session.AsTeacher()
	if err != nil {
		return err
	}
	c.session = next
	slog.Info("teacher joined", "remote", c.remote)
	return nil
}

func (h *Hub) pollCreate(ctx context.Context, c *Client, data json.RawMessage) error {
	if err := requireTeacher(c); err != nil {
		return err
	}
	var req CreatePollPayload
	if err := decodePayload(data, &req); err != nil {
		return err
	}

	created, err := h.coord.CreatePoll(ctx, req.Question, req.Options, req.Duration)
	if err != nil {
		return err
	}
	remaining, err := h.coord.RemainingTime(ctx, created.ID)
	if err != nil {
		return err
	}

	h.Broadcast(EventPollCreated, models.PollWithRemaining{Poll: created, RemainingTime: remaining})
	return nil
}

func (h *Hub) pollVote(ctx context.Context, c *Client, data json.RawMessage) error {
	studentID := c.session.StudentID()
	if studentID == "" {
		return fmt.Errorf("%w: student not registered", poll.ErrUnauthorized)
	}
	var req VotePayload
	if err := decodePayload(data, &req); err != nil {
		return err
	}

	// Removed students keep their connection but lose their vote.
	if _, err := h.roster.Resolve(ctx, studentID); err != nil {
		return err
	}

	updated, err := h.coord.SubmitVote(ctx, req.PollID, studentID, *req.OptionIndex)
	if err != nil {
		return err
	}
	remaining, err := h.coord.RemainingTime(ctx, updated.ID)
	if err != nil {
		return err
	}

	h.Broadcast(EventPollUpdated, models.PollWithRemaining{Poll: updated, RemainingTime: remaining})
	h.unicast(c, EventVoteSuccess, MessagePayload{Message: "Vote submitted successfully"})
	return nil
}

func (h *Hub) pollEnd(ctx context.Context, c *Client, data json.RawMessage) error {
	if err := requireTeacher(c); err != nil {
		return err
	}
	var req EndPollPayload
	if err := decodePayload(data, &req); err != nil {
		return err
	}

	ended, err := h.coord.EndPoll(ctx, req.PollID)
	if err != nil {
		return err
	}

	h.Broadcast(EventPollEnded, PollEndedPayload{Poll: ended})
	return nil
}

func (h *Hub) stateRequest(ctx context.Context, c *Client, data json.RawMessage) error {
	if err := decodePayload(data, &emptyPayload{}); err != nil {
		return err
	}

	active, remaining, err := h.coord.ActiveState(ctx)
	if err != nil {
		return err
	}

	resp := StateResponse{
		Poll:          active,
		RemainingTime: remaining,
		Role:          c.session.Role(),
	}
	if active != nil && c.session.StudentID() != "" {
		voted, err := h.coord.HasVoted(ctx, active.ID, c.session.StudentID())
		if err != nil {
			return err
		}
		resp.HasVoted = &voted
	}

	h.unicast(c, EventStateResponse, resp)
	return nil
}

func (h *Hub) studentRemove(ctx context.Context, c *Client, data json.RawMessage) error {
	if err := requireTeacher(c); err != nil {
		return err
	}
	var req RemoveStudentPayload
	if err := decodePayload(data, &req); err != nil {
		return err
	}

	if err := h.roster.Remove(ctx, req.StudentID); err != nil {
		return err
	}

	h.Broadcast(EventStudentRemoved, StudentRemovedPayload{StudentID: req.StudentID})
	return nil
}

func (h *Hub) chatSend(c *Client, data json.RawMessage) error {
	var req ChatPayload
	if err := decodePayload(data, &req); err != nil {
		return err
	}

	h.Broadcast(EventChatMessage, ChatMessage{
		Sender:    req.Sender,
		Message:   req.Message,
		IsTeacher: req.IsTeacher,
		Timestamp: h.clock.Now().UTC(),
	})
	return nil
}
