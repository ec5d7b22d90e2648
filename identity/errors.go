package identity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// APIError is a non-2xx response from the identity service.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("identity service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("identity service returned status %d: %s", e.StatusCode, e.Detail)
}

// DetailOf returns the service provided detail carried by err, or "" when
// err is not an APIError or the service gave no message.
func DetailOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

// errorBody mirrors the conventional {"detail": ...} error payload. Detail is
// either a string or, for request validation failures, a list of objects
// carrying a "msg" field.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func parseDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(eb.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
