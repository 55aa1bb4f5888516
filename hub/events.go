// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/poll"
)

// Inbound events
const (
	EventStudentJoin   = "student:join"
	EventTeacherJoin   = "teacher:join"
	EventPollCreate    = "poll:create"
	EventPollVote      = "poll:vote"
	EventPollEnd       = "poll:end"
	EventStateRequest  = "state:request"
	EventStudentRemove = "student:remove"
	EventChatSend      = "chat:send"
)

// Outbound events
const (
	EventStudentRegistered = "student:registered"
	EventStudentJoined     = "student:joined"
	EventPollActive        = "poll:active"
	EventPollCreated       = "poll:created"
	EventPollUpdated       = "poll:updated"
	EventVoteSuccess       = "vote:success"
	EventPollEnded         = "poll:ended"
	EventStateResponse     = "state:response"
	EventStudentRemoved    = "student:removed"
	EventChatMessage       = "chat:message"
	EventError             = "error"
)

const maxChatLength = 1000

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads

type StudentJoinPayload struct {
	Name      string `json:"name"`
	StudentID string `json:"studentId,omitempty"`
}

func (p *StudentJoinPayload) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.StudentID = strings.TrimSpace(p.StudentID)
	if p.StudentID == "" && p.Name == "" {
		return fmt.Errorf("%w: name is required", poll.ErrValidation)
	}
	return nil
}

type CreatePollPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Duration int      `json:"duration"`
}

// Field rules live in the coordinator.
func (p *CreatePollPayload) validate() error { return nil }

type VotePayload struct {
	PollID      string `json:"pollId"`
	OptionIndex *int   `json:"optionIndex"`
}

func (p *VotePayload) validate() error {
	if p.PollID == "" {
		return fmt.Errorf("%w: pollId is required", poll.ErrValidation)
	}
	if p.OptionIndex == nil {
		return fmt.Errorf("%w: optionIndex is required", poll.ErrValidation)
	}
	return nil
}

type EndPollPayload struct {
	PollID string `json:"pollId"`
}

func (p *EndPollPayload) validate() error {
	if p.PollID == "" {
		return fmt.Errorf("%w: pollId is required", poll.ErrValidation)
	}
	return nil
}

type RemoveStudentPayload struct {
	StudentID string `json:"studentId"`
}

func (p *RemoveStudentPayload) validate() error {
	if p.StudentID == "" {
		return fmt.Errorf("%w: studentId is required", poll.ErrValidation)
	}
	return nil
}

type ChatPayload struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	IsTeacher bool   `json:"isTeacher"`
}

func (p *ChatPayload) validate() error {
	p.Sender = strings.TrimSpace(p.Sender)
	p.Message = strings.TrimSpace(p.Message)
	if p.Sender == "" {
		return fmt.Errorf("%w: sender is required", poll.ErrValidation)
	}
	if p.Message == "" {
		return fmt.Errorf("%w: message is required", poll.ErrValidation)
	}
	if len(p.Message) > maxChatLength {
		return fmt.Errorf("%w: message must be at most %d characters", poll.ErrValidation, maxChatLength)
	}
	return nil
}

type emptyPayload struct{}

func (*emptyPayload) validate() error { return nil }

// Outbound payloads

type StudentPayload struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
}

type PollEndedPayload struct {
	Poll *models.Poll `json:"poll"`
}

type MessagePayload struct {
	Message string `json:"message"`
}

type StateResponse struct {
	Poll          *models.Poll `json:"poll"`
	RemainingTime int          `json:"remainingTime"`
	Role          string       `json:"role"`
	HasVoted      *bool        `json:"hasVoted,omitempty"`
}

type StudentRemovedPayload struct {
	StudentID string `json:"studentId"`
}

type ChatMessage struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	IsTeacher bool      `json:"isTeacher"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type payload interface {
	validate() error
}

// decodePayload unmarshals data into p and validates it. Missing data is
// treated as an empty object.
func decodePayload(data json.RawMessage, p payload) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		if err := json.Unmarshal(data, p); err != nil {
			return fmt.Errorf("%w: malformed payload", poll.ErrValidation)
		}
	}
	return p.validate()
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
