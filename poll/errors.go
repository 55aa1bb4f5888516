// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package poll

import "errors"

var (
	ErrValidation   = errors.New("invalid request")
	ErrNotFound     = errors.New("not found")
	ErrPollEnded    = errors.New("poll has ended")
	ErrAlreadyVoted = errors.New("student has already voted")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("another poll was created at the same time")
)

// ErrExpired is returned when a vote arrives after the deadline. It also
// matches ErrPollEnded, since an expired poll is an ended poll.
var ErrExpired error = expiredError{}

type expiredError struct{}

func (expiredError) Error() string { return "poll time has expired" }

func (expiredError) Is(target error) bool { return target == ErrPollEnded }

// Error codes sent to clients
const (
	CodeValidation   = "validation"
	CodeNotFound     = "not_found"
	CodePollEnded    = "poll_ended"
	CodeExpired      = "expired"
	CodeAlreadyVoted = "already_voted"
	CodeUnauthorized = "unauthorized"
	CodeConflict     = "conflict"
	CodeInternal     = "internal"
)

// Code classifies err. Anything outside the domain taxonomy is an
// infrastructure failure and reported as CodeInternal.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrExpired):
		return CodeExpired
	case errors.Is(err, ErrPollEnded):
		return CodePollEnded
	case errors.Is(err, ErrAlreadyVoted):
		return CodeAlreadyVoted
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodeInternal
	}
}
