// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types shared by the
store, the poll coordinator, the REST handlers and the live hub.

# Domain Types

  - Poll: question, ordered options with tallies, timing and status
  - Option: option text and vote count
  - Vote: one participant's choice on one poll
  - Participant: a student identity kept across reconnects

# Request and Response Types

  - CreatePollRequest: question, options, duration
  - PollWithRemaining: poll plus remainingTime in seconds
  - HealthResponse: status, message
  - ErrorResponse: error, message

# Constants

Status values:

	StatusActive = "active"
	StatusEnded  = "ended"

Limits:

	MinDuration = 1
	MaxDuration = 60
	MinOptions  = 2

Roles:

	RoleTeacher = "teacher"
	RoleStudent = "student"
*/
package models
