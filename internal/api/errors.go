package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport wraps failures where no HTTP response was received.
	ErrTransport = errors.New("api: transport failure")
	// ErrAuthPending is a 403 on login: the account awaits approval.
	ErrAuthPending = errors.New("api: account pending approval")
	// ErrAuthInvalid covers every other login failure.
	ErrAuthInvalid = errors.New("api: invalid credentials")
)

const (
	pendingCopy = "Your account is pending approval by the Administrator. Please check back later."
	invalidCopy = "Invalid email or password."
)

// ServerError is a non-2xx response. Detail and Message are copied from the
// JSON body when present; Fallback is the transport-level description.
type ServerError struct {
	Status   int
	Detail   string
	Message  string
	Fallback string
}

func (e *ServerError) Error() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Message != "":
		return e.Message
	default:
		return e.Fallback
	}
}

// ErrorMessage returns the single human-readable line shown for err:
// structured detail, then generic message, then the transport text.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrAuthPending):
		return pendingCopy
	case errors.Is(err, ErrAuthInvalid):
		return invalidCopy
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.Error()
	}
	return err.Error()
}

// newServerError inspects a failure body. FastAPI reports validation errors
// as a list of {"msg": ...} objects under detail.
func newServerError(status int, statusText string, body []byte) *ServerError {
	se := &ServerError{
		Status:   status,
		Fallback: fmt.Sprintf("request failed with status code %d", status),
	}
	if statusText != "" {
		se.Fallback = fmt.Sprintf("request failed: %s", statusText)
	}
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return se
	}
	se.Detail = flattenMessage(payload.Detail)
	se.Message = flattenMessage(payload.Message)
	return se
}

func flattenMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		var parts []string
		for _, it := range items {
			if m := strings.TrimSpace(it.Msg); m != "" {
				parts = append(parts, m)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
