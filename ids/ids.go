// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package ids generates identifiers for polls and participants.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// PollIDBytes is the entropy of a poll id (32 hex characters).
const PollIDBytes = 16

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewPollID returns a fresh poll identifier.
func NewPollID() (string, error) {
	return GenerateID(PollIDBytes)
}

// NewParticipantID returns a random UUIDv4 string. Clients keep it and
// present it again after reconnecting.
func NewParticipantID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate participant ID: %w", err)
	}
	return id.String(), nil
}

// ValidParticipantID reports whether s has the shape of an issued participant id.
func ValidParticipantID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
