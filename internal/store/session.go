package store

import (
	"errors"
	"os"
	"strings"

	"bookcraft-cli/internal/model"
)

const maxRecentChapters = 10

// Session is the persisted login plus small bits of client state that should
// survive between invocations.
type Session struct {
	Token string      `json:"token,omitempty"`
	User  *model.User `json:"user,omitempty"`

	// Attempt is the quiz attempt held by `bookcraft quiz`.
	Attempt *HeldAttempt `json:"attempt,omitempty"`

	// RecentChapters lists recently edited chapter ids, newest first.
	RecentChapters []string `json:"recentChapters,omitempty"`
}

type HeldAttempt struct {
	WidgetID   string           `json:"widgetId"`
	WidgetType model.WidgetType `json:"widgetType,omitempty"`
	AttemptID  string           `json:"attemptId"`
}

func SessionPath() (string, error) {
	return inConfigDir("session.json")
}

// LoadSession returns an empty session when none is stored or the file is
// unreadable as JSON.
func LoadSession() (*Session, error) {
	path, err := SessionPath()
	if err != nil {
		return nil, err
	}
	var s Session
	if err := readJSON(path, &s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Session{}, nil
		}
		var pe *os.PathError
		if errors.As(err, &pe) {
			return nil, err
		}
		return &Session{}, nil
	}
	return &s, nil
}

// SaveSession writes the session readable by the owner only.
func SaveSession(s *Session) error {
	if s == nil {
		return errors.New("nil session")
	}
	path, err := SessionPath()
	if err != nil {
		return err
	}
	return writeJSON(path, "session.json.*.tmp", s, 0o600)
}

// ClearSession removes the stored session.
func ClearSession() error {
	path, err := SessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// TouchChapter moves id to the front of RecentChapters.
func (s *Session) TouchChapter(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	out := []string{id}
	for _, c := range s.RecentChapters {
		if c != id && len(out) < maxRecentChapters {
			out = append(out, c)
		}
	}
	s.RecentChapters = out
}
