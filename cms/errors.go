package cms

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrFetchFailed is the only error the safe wrappers return. The original
// cause is logged, never returned.
var ErrFetchFailed = errors.New("failed to fetch data from Cosmic")

// ErrMissingConfig is returned by New when a required setting is empty.
var ErrMissingConfig = errors.New("cms: missing required configuration")

// StatusError is a non-2xx answer from the Cosmic API.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cosmic: status %d", e.Status)
	}
	return fmt.Sprintf("cosmic: status %d: %s", e.Status, e.Message)
}

// StatusCode exposes the HTTP status to IsNotFound.
func (e *StatusError) StatusCode() int { return e.Status }

func newStatusError(code int, body []byte) *StatusError {
	var payload struct {
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = payload.Message
	} else {
		msg = strings.ToValidUTF8(strings.TrimSpace(string(body)), "")
		if r := []rune(msg); len(r) > 200 {
			msg = string(r[:200])
		}
	}
	return &StatusError{Status: code, Message: msg}
}

// IsNotFound reports whether err carries a 404 status code. Any error in the
// chain with a StatusCode() int method is inspected.
func IsNotFound(err error) bool {
	var sc interface{ StatusCode() int }
	return errors.As(err, &sc) && sc.StatusCode() == http.StatusNotFound
}

// Outcome classifies a finished query.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "failure"
	}
}

// Classify maps a query error onto the three outcomes callers see.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case IsNotFound(err):
		return OutcomeNotFound
	default:
		return OutcomeFailure
	}
}
