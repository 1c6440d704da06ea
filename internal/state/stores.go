package state

import (
	"time"

	"github.com/google/uuid"
)

// Selection is the user's current position in the book tree.
type Selection struct {
	BookID    string `json:"bookId,omitempty"`
	SectionID string `json:"sectionId,omitempty"`
	ChapterID string `json:"chapterId,omitempty"`
	BlockID   string `json:"blockId,omitempty"`
	WidgetID  string `json:"widgetId,omitempty"`
}

type SelectionAction struct {
	Kind SelectKind
	ID   string
}

type SelectKind int

const (
	SelectBook SelectKind = iota
	SelectSection
	SelectChapter
	SelectBlock
	SelectWidget
	ClearSelection
)

// ReduceSelection clears everything below the level being selected.
func ReduceSelection(s Selection, a SelectionAction) Selection {
	switch a.Kind {
	case SelectBook:
		if s.BookID == a.ID {
			return s
		}
		return Selection{BookID: a.ID}
	case SelectSection:
		if s.SectionID == a.ID {
			return s
		}
		return Selection{BookID: s.BookID, SectionID: a.ID}
	case SelectChapter:
		if s.ChapterID == a.ID {
			return s
		}
		return Selection{BookID: s.BookID, SectionID: s.SectionID, ChapterID: a.ID}
	case SelectBlock:
		if s.BlockID == a.ID {
			return s
		}
		s.BlockID = a.ID
		s.WidgetID = ""
		return s
	case SelectWidget:
		s.WidgetID = a.ID
		return s
	case ClearSelection:
		return Selection{}
	}
	return s
}

func NewSelection() *Store[Selection, SelectionAction] {
	return NewStore(Selection{}, ReduceSelection)
}

type ModalKind string

const (
	ModalNone          ModalKind = ""
	ModalConfirmDelete ModalKind = "confirm_delete"
	ModalNewBlock      ModalKind = "new_block"
	ModalNewWidget     ModalKind = "new_widget"
	ModalEditStyle     ModalKind = "edit_style"
	ModalHelp          ModalKind = "help"
)

// Modal is the single open dialog, if any.
type Modal struct {
	Kind    ModalKind `json:"kind"`
	Payload string    `json:"payload,omitempty"`
}

func (m Modal) Open() bool { return m.Kind != ModalNone }

// ModalAction opens Kind with Payload, or closes the modal when Kind is empty.
type ModalAction struct {
	Kind    ModalKind
	Payload string
}

func ReduceModal(_ Modal, a ModalAction) Modal {
	if a.Kind == ModalNone {
		return Modal{}
	}
	return Modal{Kind: a.Kind, Payload: a.Payload}
}

func NewModal() *Store[Modal, ModalAction] {
	return NewStore(Modal{}, ReduceModal)
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// MaxAlerts bounds the alert queue; the oldest alert is dropped first.
const MaxAlerts = 5

type Alert struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type AlertAction struct {
	Push    *Alert
	Dismiss string
	Clear   bool
}

func ReduceAlerts(s []Alert, a AlertAction) []Alert {
	switch {
	case a.Clear:
		return nil
	case a.Push != nil:
		next := make([]Alert, 0, len(s)+1)
		next = append(next, s...)
		next = append(next, *a.Push)
		if len(next) > MaxAlerts {
			next = next[len(next)-MaxAlerts:]
		}
		return next
	case a.Dismiss != "":
		next := make([]Alert, 0, len(s))
		for _, al := range s {
			if al.ID != a.Dismiss {
				next = append(next, al)
			}
		}
		return next
	}
	return s
}

type Alerts struct {
	*Store[[]Alert, AlertAction]
	now func() time.Time
}

func NewAlerts() *Alerts {
	return &Alerts{Store: NewStore[[]Alert](nil, ReduceAlerts), now: time.Now}
}

// Push queues a message and returns its id.
func (a *Alerts) Push(level Level, msg string) string {
	al := Alert{ID: uuid.NewString(), Level: level, Message: msg, At: a.now()}
	a.Dispatch(AlertAction{Push: &al})
	return al.ID
}

func (a *Alerts) Dismiss(id string) {
	a.Dispatch(AlertAction{Dismiss: id})
}

// Latest returns the newest alert, if any.
func (a *Alerts) Latest() (Alert, bool) {
	s := a.Get()
	if len(s) == 0 {
		return Alert{}, false
	}
	return s[len(s)-1], true
}
