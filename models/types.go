package models

import "time"

// Poll status constants
const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

// Duration bounds in seconds
const (
	MinDuration = 1
	MaxDuration = 60
	MinOptions  = 2
)

// Session roles
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Request types

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Duration int      `json:"duration"`
}

// Response types

type PollWithRemaining struct {
	Poll          *Poll `json:"poll"`
	RemainingTime int   `json:"remainingTime"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Domain types

type Option struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

type Poll struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Options   []Option  `json:"options"`
	Duration  int       `json:"duration"` // seconds
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TotalVotes sums the tallies of every option.
func (p *Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}

type Vote struct {
	PollID        string    `json:"pollId"`
	ParticipantID string    `json:"studentId"`
	OptionIndex   int       `json:"optionIndex"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Participant struct {
	ID       string    `json:"studentId"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
	IsActive bool      `json:"isActive"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
