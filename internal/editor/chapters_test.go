package editor

import (
	"context"
	"errors"
	"testing"

	"bookcraft-cli/internal/model"
)

type fakeChapters struct {
	chapters []model.Chapter
	fail     bool
	persists int
}

func (f *fakeChapters) ListChapters(ctx context.Context, sectionID string) ([]model.Chapter, error) {
	return append([]model.Chapter{}, f.chapters...), nil
}

func (f *fakeChapters) ReorderChapters(ctx context.Context, sectionID string, order []model.OrderEntry) error {
	f.persists++
	if f.fail {
		return errors.New("nope")
	}
	return nil
}

func TestChapterList_SwapAndRevert(t *testing.T) {
	r := &fakeChapters{chapters: []model.Chapter{
		{ID: "c2", Order: 2},
		{ID: "c1", Order: 1},
		{ID: "c3", Order: 3},
	}}
	l := NewChapterList(r, nil)
	if err := l.Load(context.Background(), "s1"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := l.Swap(context.Background(), "c1", "c3"); err != nil {
		t.Fatalf("Swap: %v", err)
	}
	got := l.Chapters()
	if got[0].ID != "c3" || got[2].ID != "c1" || got[0].Order != 1 {
		t.Fatalf("unexpected order after swap: %+v", got)
	}

	r.fail = true
	if err := l.Swap(context.Background(), "c3", "c2"); err == nil {
		t.Fatalf("expected failure")
	}
	again := l.Chapters()
	for i := range got {
		if got[i].ID != again[i].ID || got[i].Order != again[i].Order {
			t.Fatalf("expected revert to previous order, got %+v", again)
		}
	}
	if r.persists != 2 {
		t.Fatalf("expected two persist attempts, got %d", r.persists)
	}
}
