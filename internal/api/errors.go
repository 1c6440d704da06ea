package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookcraft-cli/internal/validate"
)

var (
	ErrUnauthorized = errors.New("unauthorized: login required")
	ErrNotFound     = errors.New("not found")
)

// Error is a non-success envelope without field errors.
type Error struct {
	Status   int
	Messages []string

	notFound bool
}

func (e *Error) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Status == 0 {
		return "api: " + msg
	}
	return fmt.Sprintf("api: %d: %s", e.Status, msg)
}

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.notFound
}

// ValidationError carries the server's field-keyed messages.
type ValidationError struct {
	Status   int
	Fields   validate.FieldErrors
	Messages []string
}

func (e *ValidationError) Error() string {
	return e.Fields.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Fields
}

// parseMessages accepts a string, a list of strings, or an object of
// field -> string | []string.
func parseMessages(raw json.RawMessage) ([]string, validate.FieldErrors) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return []string{s}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return []string{string(raw)}, nil
	}
	fields := validate.FieldErrors{}
	for k, v := range obj {
		var one string
		if err := json.Unmarshal(v, &one); err == nil {
			fields.Add(k, one)
			continue
		}
		var many []string
		if err := json.Unmarshal(v, &many); err == nil {
			for _, m := range many {
				fields.Add(k, m)
			}
			continue
		}
		fields.Add(k, string(v))
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return nil, fields
}
