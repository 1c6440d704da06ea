package quiz

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"bookcraft-cli/internal/model"
)

type call struct {
	op string
	id string
}

type fakeRemote struct {
	calls []call
	n     int
	fail  bool
}

func (f *fakeRemote) StartAttempt(ctx context.Context, widgetID string) (*model.Attempt, error) {
	f.calls = append(f.calls, call{"start", widgetID})
	if f.fail {
		return nil, errors.New("down")
	}
	f.n++
	return &model.Attempt{ID: fmt.Sprintf("att-%d", f.n), WidgetID: widgetID}, nil
}

func (f *fakeRemote) SubmitAnswer(ctx context.Context, attemptID string, answer any) (*model.AnswerResult, error) {
	f.calls = append(f.calls, call{"answer", attemptID})
	return &model.AnswerResult{Correct: true, Score: 1}, nil
}

func (f *fakeRemote) CompleteAttempt(ctx context.Context, attemptID string) (*model.AttemptResult, error) {
	f.calls = append(f.calls, call{"complete", attemptID})
	return &model.AttemptResult{AttemptID: attemptID, Score: 1, MaxScore: 1, Completed: true}, nil
}

func TestAnswer_LazilyStartsAttempt(t *testing.T) {
	r := &fakeRemote{}
	tr := NewTracker(r, nil)

	if _, err := tr.Answer(context.Background(), "w1", ChoiceAnswer{OptionIDs: []string{"o1"}}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(r.calls) != 2 || r.calls[0] != (call{"start", "w1"}) || r.calls[1] != (call{"answer", "att-1"}) {
		t.Fatalf("expected start then answer, got %+v", r.calls)
	}
	st := tr.State()
	if st.Phase != PhaseAnswered || st.Answers != 1 || st.AttemptID != "att-1" {
		t.Fatalf("unexpected state %+v", st)
	}

	// A second answer reuses the attempt.
	if _, err := tr.Answer(context.Background(), "w1", ChoiceAnswer{OptionIDs: []string{"o2"}}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(r.calls) != 3 || r.calls[2].id != "att-1" {
		t.Fatalf("expected reuse of att-1, got %+v", r.calls)
	}
}

func TestStart_DiscardsOtherWidgetsAttempt(t *testing.T) {
	r := &fakeRemote{}
	tr := NewTracker(r, nil)
	if _, err := tr.Start(context.Background(), "wA"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	r.fail = true
	if _, err := tr.Start(context.Background(), "wB"); err == nil {
		t.Fatalf("expected start failure")
	}
	// A's id must be gone even though B never started.
	if st := tr.State(); st.AttemptID != "" || st.Phase != PhaseNone {
		t.Fatalf("expected stale attempt discarded, got %+v", st)
	}
}

func TestAnswer_OnOtherWidgetStartsNewAttempt(t *testing.T) {
	r := &fakeRemote{}
	tr := NewTracker(r, nil)
	_, _ = tr.Answer(context.Background(), "wA", WordsAnswer{Words: []string{"cat"}})
	_, _ = tr.Answer(context.Background(), "wB", WordsAnswer{Words: []string{"dog"}})

	last := r.calls[len(r.calls)-1]
	if last != (call{"answer", "att-2"}) {
		t.Fatalf("expected answer against fresh attempt, got %+v", r.calls)
	}
}

func TestComplete_Errors(t *testing.T) {
	r := &fakeRemote{}
	tr := NewTracker(r, nil)

	if _, err := tr.Complete(context.Background(), "w1"); !errors.Is(err, ErrNoAttempt) {
		t.Fatalf("expected ErrNoAttempt, got %v", err)
	}
	if _, err := tr.Start(context.Background(), "w1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := tr.Complete(context.Background(), "w2"); !errors.Is(err, ErrAttemptMismatch) {
		t.Fatalf("expected ErrAttemptMismatch, got %v", err)
	}

	res, err := tr.Complete(context.Background(), "w1")
	if err != nil || !res.Completed {
		t.Fatalf("Complete: %v %+v", err, res)
	}
	if tr.State().Phase != PhaseCompleted {
		t.Fatalf("expected completed phase")
	}
	if _, err := tr.Complete(context.Background(), "w1"); !errors.Is(err, ErrCompleted) {
		t.Fatalf("expected ErrCompleted, got %v", err)
	}
}

func TestAnswer_AfterCompleteStartsFresh(t *testing.T) {
	r := &fakeRemote{}
	tr := NewTracker(r, nil)
	tr.Resume("w1", "att-old")
	if _, err := tr.Complete(context.Background(), "w1"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := tr.Answer(context.Background(), "w1", TextAnswer{Values: []string{"x"}}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if st := tr.State(); st.AttemptID != "att-1" {
		t.Fatalf("expected new attempt after completion, got %+v", st)
	}
}

func TestAnswer_InvalidAnswerSendsNothing(t *testing.T) {
	r := &fakeRemote{}
	tr := NewTracker(r, nil)
	if _, err := tr.Answer(context.Background(), "w1", ChoiceAnswer{}); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(r.calls) != 0 {
		t.Fatalf("expected no remote calls, got %+v", r.calls)
	}
}

func TestParseAnswer(t *testing.T) {
	a, err := ParseAnswer(model.WidgetMatching, "cat=meow, dog=woof")
	if err != nil {
		t.Fatalf("ParseAnswer: %v", err)
	}
	p := a.(PairsAnswer)
	if p.Pairs["cat"] != "meow" || p.Pairs["dog"] != "woof" {
		t.Fatalf("unexpected pairs %+v", p)
	}

	a, err = ParseAnswer(model.WidgetFillBlank, "mitochondria||cell")
	if err != nil {
		t.Fatalf("ParseAnswer: %v", err)
	}
	if v := a.(TextAnswer).Values; len(v) != 3 || v[1] != "" {
		t.Fatalf("expected blank position kept, got %q", v)
	}

	a, err = ParseAnswer(model.WidgetMultipleChoice, `{"optionIds":["o1","o2"]}`)
	if err != nil || len(a.(ChoiceAnswer).OptionIDs) != 2 {
		t.Fatalf("unexpected json parse: %v %+v", err, a)
	}

	if _, err := ParseAnswer(model.WidgetSingleChoice, "o1,o2"); err == nil {
		t.Fatalf("expected single choice to reject two options")
	}
	if _, err := ParseAnswer(model.WidgetText, "x"); err == nil {
		t.Fatalf("expected non-quiz widget to be rejected")
	}
	if _, err := ParseAnswer(model.WidgetMatching, "nopair"); err == nil {
		t.Fatalf("expected malformed pair to be rejected")
	}
}
