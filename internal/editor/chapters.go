package editor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bookcraft-cli/internal/logger"
	"bookcraft-cli/internal/model"
)

type ChapterRemote interface {
	ListChapters(ctx context.Context, sectionID string) ([]model.Chapter, error)
	ReorderChapters(ctx context.Context, sectionID string, order []model.OrderEntry) error
}

// ChapterList is the ordered chapter list of one section, reordered with the
// same swap-then-persist-then-revert discipline as blocks.
type ChapterList struct {
	remote ChapterRemote
	log    *logger.Logger

	mu        sync.Mutex
	sectionID string
	chapters  []model.Chapter
}

func NewChapterList(remote ChapterRemote, log *logger.Logger) *ChapterList {
	if log == nil {
		log = logger.Nop()
	}
	return &ChapterList{remote: remote, log: log.With("component", "chapters")}
}

func (l *ChapterList) Load(ctx context.Context, sectionID string) error {
	chs, err := l.remote.ListChapters(ctx, sectionID)
	if err != nil {
		l.log.Warn("load chapters failed", "section", sectionID, "error", err)
		return err
	}
	sort.SliceStable(chs, func(i, j int) bool { return chs[i].Order < chs[j].Order })

	l.mu.Lock()
	l.sectionID = sectionID
	l.chapters = chs
	l.mu.Unlock()
	return nil
}

func (l *ChapterList) Chapters() []model.Chapter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Chapter{}, l.chapters...)
}

func (l *ChapterList) Swap(ctx context.Context, firstID, secondID string) error {
	if firstID == secondID {
		return nil
	}
	l.mu.Lock()
	sectionID := l.sectionID
	if err := l.swapLocked(firstID, secondID); err != nil {
		l.mu.Unlock()
		return err
	}
	order := make([]model.OrderEntry, 0, len(l.chapters))
	for _, c := range l.chapters {
		order = append(order, model.OrderEntry{ID: c.ID, Order: c.Order})
	}
	l.mu.Unlock()

	if err := l.remote.ReorderChapters(ctx, sectionID, order); err != nil {
		l.log.Warn("persist chapter order failed; reverting", "section", sectionID, "error", err)
		l.mu.Lock()
		if l.sectionID == sectionID {
			_ = l.swapLocked(secondID, firstID)
		}
		l.mu.Unlock()
		return err
	}
	return nil
}

func (l *ChapterList) swapLocked(firstID, secondID string) error {
	i, j := -1, -1
	for k := range l.chapters {
		switch l.chapters[k].ID {
		case firstID:
			i = k
		case secondID:
			j = k
		}
	}
	if i < 0 || j < 0 {
		return fmt.Errorf("chapter not found in section: %s / %s", firstID, secondID)
	}
	l.chapters[i], l.chapters[j] = l.chapters[j], l.chapters[i]
	l.chapters[i].Order, l.chapters[j].Order = l.chapters[j].Order, l.chapters[i].Order
	return nil
}
