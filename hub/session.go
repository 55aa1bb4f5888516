// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"fmt"

	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/poll"
)

// Session is the identity of one connection. It is a value: changes return a
// new Session, and the role and student id can each be set only once.
type Session struct {
	role      string
	studentID string
}

func (s Session) Role() string      { return s.role }
func (s Session) StudentID() string { return s.studentID }
func (s Session) IsTeacher() bool   { return s.role == models.RoleTeacher }

// AsTeacher returns s with the teacher role.
func (s Session) AsTeacher() (Session, error) {
	switch s.role {
	case "", models.RoleTeacher:
		s.role = models.RoleTeacher
		return s, nil
	default:
		return s, fmt.Errorf("%w: connection already joined as %s", poll.ErrUnauthorized, s.role)
	}
}

// CanJoinAsStudent reports whether AsStudent could succeed for some id.
func (s Session) CanJoinAsStudent() error {
	if s.role == models.RoleTeacher {
		return fmt.Errorf("%w: connection already joined as teacher", poll.ErrUnauthorized)
	}
	return nil
}

// AsStudent returns s with the student role bound to id. Re-binding the same
// id is allowed; binding a different one is not.
func (s Session) AsStudent(id string) (Session, error) {
	if err := s.CanJoinAsStudent(); err != nil {
		return s, err
	}
	if s.studentID != "" && s.studentID != id {
		return s, fmt.Errorf("%w: connection already bound to another student", poll.ErrUnauthorized)
	}
	s.role = models.RoleStudent
	s.studentID = id
	return s, nil
}
