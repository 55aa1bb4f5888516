// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/classpoll/middleware"
	"github.com/danielhkuo/classpoll/poll"
)

// StatusFor maps a poll error code to an HTTP status.
func StatusFor(code string) int {
	switch code {
	case poll.CodeValidation:
		return http.StatusBadRequest
	case poll.CodeNotFound:
		return http.StatusNotFound
	case poll.CodePollEnded, poll.CodeExpired, poll.CodeAlreadyVoted, poll.CodeConflict:
		return http.StatusConflict
	case poll.CodeUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error. Infrastructure failures are logged
// and reported with the generic fallback message.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status := StatusFor(poll.Code(err))
	if status == http.StatusInternalServerError {
		slog.Error(fallback, "error", err)
		middleware.ErrorResponse(w, status, fallback)
		return
	}
	middleware.ErrorResponse(w, status, err.Error())
}
