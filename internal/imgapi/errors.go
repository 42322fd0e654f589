package imgapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TimeoutError reports a call that exceeded its budget before a response
// was received.
type TimeoutError struct {
	Kind    Kind
	Budget  time.Duration
	Elapsed time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request timed out after %s (budget %s)",
		e.Kind, e.Elapsed.Round(time.Millisecond), e.Budget)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// NetworkError reports a call where no response reached the client.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports a response with an error status.
type ServerError struct {
	Status int
	Body   string
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api returned status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api returned status %d", e.Status)
}

// IsClientError reports whether the status is in the 4xx range.
func (e *ServerError) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// ValidationError reports a local precondition failure; nothing was sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsTimeout reports whether err is, or wraps, a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsNetwork reports whether err is, or wraps, a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AsServerError unwraps err into a ServerError when possible.
func AsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsCanceled reports whether err stems from the caller cancelling the call.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// UserMessage renders err as a short message suitable for the status line.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return fmt.Sprintf("%s request timed out after %s", te.Kind, te.Budget)
	}
	if se, ok := AsServerError(err); ok {
		if se.IsClientError() {
			if se.Detail != "" {
				return se.Detail
			}
			return fmt.Sprintf("request rejected (%d %s)", se.Status, http.StatusText(se.Status))
		}
		return fmt.Sprintf("server error (%d), try again shortly", se.Status)
	}
	if IsNetwork(err) {
		return "server unreachable"
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return err.Error()
}

func newServerError(status int, body []byte) *ServerError {
	trimmed := strings.TrimSpace(string(body))
	return &ServerError{
		Status: status,
		Body:   trimmed,
		Detail: extractDetail(body),
	}
}

// extractDetail pulls a readable message out of FastAPI-style error bodies.
func extractDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return strings.TrimSpace(s)
		}
		// 422 responses carry a list of field errors.
		var fields []struct {
			Loc []any  `json:"loc"`
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &fields); err == nil && len(fields) > 0 {
			msgs := make([]string, 0, len(fields))
			for _, f := range fields {
				msgs = append(msgs, f.Msg)
			}
			return strings.Join(msgs, "; ")
		}
	}
	return strings.TrimSpace(payload.Message)
}
