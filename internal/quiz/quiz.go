// Package quiz drives the start, answer, complete lifecycle of an interactive
// question widget. The attempt id is held client-side and never reused across
// widgets.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bookcraft-cli/internal/logger"
	"bookcraft-cli/internal/model"
)

var (
	ErrNoAttempt       = errors.New("no attempt in progress")
	ErrAttemptMismatch = errors.New("attempt belongs to a different widget")
	ErrCompleted       = errors.New("attempt already completed")
)

type Phase string

const (
	PhaseNone      Phase = "none"
	PhaseStarted   Phase = "started"
	PhaseAnswered  Phase = "answered"
	PhaseCompleted Phase = "completed"
)

type Remote interface {
	StartAttempt(ctx context.Context, widgetID string) (*model.Attempt, error)
	SubmitAnswer(ctx context.Context, attemptID string, answer any) (*model.AnswerResult, error)
	CompleteAttempt(ctx context.Context, attemptID string) (*model.AttemptResult, error)
}

// State is a snapshot of the tracker.
type State struct {
	Phase     Phase                `json:"phase"`
	WidgetID  string               `json:"widgetId,omitempty"`
	AttemptID string               `json:"attemptId,omitempty"`
	Answers   int                  `json:"answers"`
	Last      *model.AnswerResult  `json:"last,omitempty"`
	Result    *model.AttemptResult `json:"result,omitempty"`
}

type Tracker struct {
	remote Remote
	log    *logger.Logger

	mu    sync.Mutex
	state State
}

func NewTracker(remote Remote, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{
		remote: remote,
		log:    log.With("component", "quiz"),
		state:  State{Phase: PhaseNone},
	}
}

// Resume seeds the tracker with an attempt started elsewhere (e.g. a
// previous CLI invocation).
func (t *Tracker) Resume(widgetID, attemptID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	widgetID, attemptID = strings.TrimSpace(widgetID), strings.TrimSpace(attemptID)
	if widgetID == "" || attemptID == "" {
		t.state = State{Phase: PhaseNone}
		return
	}
	t.state = State{Phase: PhaseStarted, WidgetID: widgetID, AttemptID: attemptID}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Reset forgets any held attempt.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = State{Phase: PhaseNone}
}

// Start begins a fresh attempt for widgetID. An attempt held for another
// widget is discarded before the request is sent.
func (t *Tracker) Start(ctx context.Context, widgetID string) (*model.Attempt, error) {
	widgetID = strings.TrimSpace(widgetID)
	if widgetID == "" {
		return nil, errors.New("missing widget id")
	}

	t.mu.Lock()
	if t.state.WidgetID != "" && t.state.WidgetID != widgetID {
		t.log.Debug("discarding stale attempt", "widget", t.state.WidgetID, "attempt", t.state.AttemptID)
		t.state = State{Phase: PhaseNone}
	}
	t.mu.Unlock()

	a, err := t.remote.StartAttempt(ctx, widgetID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.ID) == "" {
		return nil, errors.New("server returned an attempt without id")
	}

	t.mu.Lock()
	t.state = State{Phase: PhaseStarted, WidgetID: widgetID, AttemptID: a.ID}
	t.mu.Unlock()
	return a, nil
}

// Answer submits answer for widgetID, starting an attempt first if none is
// active for that widget.
func (t *Tracker) Answer(ctx context.Context, widgetID string, answer Answer) (*model.AnswerResult, error) {
	widgetID = strings.TrimSpace(widgetID)
	if answer == nil {
		return nil, errors.New("missing answer")
	}
	if err := answer.Validate(); err != nil {
		return nil, err
	}

	attemptID := t.activeAttempt(widgetID)
	if attemptID == "" {
		a, err := t.Start(ctx, widgetID)
		if err != nil {
			return nil, fmt.Errorf("start attempt: %w", err)
		}
		attemptID = a.ID
	}

	res, err := t.remote.SubmitAnswer(ctx, attemptID, answer)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.state.AttemptID == attemptID {
		t.state.Phase = PhaseAnswered
		t.state.Answers++
		r := *res
		t.state.Last = &r
	}
	t.mu.Unlock()
	return res, nil
}

// Complete finishes the attempt held for widgetID.
func (t *Tracker) Complete(ctx context.Context, widgetID string) (*model.AttemptResult, error) {
	widgetID = strings.TrimSpace(widgetID)

	t.mu.Lock()
	st := t.state
	t.mu.Unlock()

	switch {
	case st.AttemptID == "":
		return nil, ErrNoAttempt
	case st.WidgetID != widgetID:
		return nil, fmt.Errorf("%w: held for %s, completing %s", ErrAttemptMismatch, st.WidgetID, widgetID)
	case st.Phase == PhaseCompleted:
		return nil, ErrCompleted
	}

	res, err := t.remote.CompleteAttempt(ctx, st.AttemptID)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.state.AttemptID == st.AttemptID {
		t.state.Phase = PhaseCompleted
		r := *res
		t.state.Result = &r
	}
	t.mu.Unlock()
	return res, nil
}

func (t *Tracker) activeAttempt(widgetID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.WidgetID != widgetID || t.state.Phase == PhaseCompleted {
		return ""
	}
	return t.state.AttemptID
}
