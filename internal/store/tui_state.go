package store

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
)

const tuiStateFileName = "tui_state.json"

// maxChapterViews bounds how many chapters remember their cursor.
const maxChapterViews = 50

// TUIState restores the editor cursor when a chapter is reopened.
// Missing or unreadable state is treated as empty.
type TUIState struct {
	Version int `json:"version"`

	// Chapters maps chapter id to the last cursor position in it.
	Chapters map[string]ChapterView `json:"chapters,omitempty"`
	// Order lists chapter ids in Chapters, most recently saved first.
	Order []string `json:"order,omitempty"`
}

type ChapterView struct {
	BlockID  string `json:"blockId,omitempty"`
	WidgetID string `json:"widgetId,omitempty"`
}

func TUIStatePath() (string, error) {
	return inConfigDir(tuiStateFileName)
}

func LoadTUIState() (*TUIState, error) {
	path, err := TUIStatePath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &TUIState{Version: 1}, nil
		}
		return nil, err
	}
	var st TUIState
	if err := json.Unmarshal(b, &st); err != nil {
		return &TUIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func SaveTUIState(st *TUIState) error {
	if st == nil {
		return nil
	}
	path, err := TUIStatePath()
	if err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return writeJSON(path, ".tui_state-*.json", st, 0o644)
}

// View returns the saved cursor for chapterID.
func (st *TUIState) View(chapterID string) (ChapterView, bool) {
	if st == nil || st.Chapters == nil {
		return ChapterView{}, false
	}
	v, ok := st.Chapters[strings.TrimSpace(chapterID)]
	return v, ok
}

// Remember records the cursor for chapterID, evicting the least recently
// saved chapter once maxChapterViews is exceeded.
func (st *TUIState) Remember(chapterID string, v ChapterView) {
	chapterID = strings.TrimSpace(chapterID)
	if chapterID == "" {
		return
	}
	if st.Chapters == nil {
		st.Chapters = map[string]ChapterView{}
	}
	st.Chapters[chapterID] = v

	order := make([]string, 0, len(st.Order)+1)
	order = append(order, chapterID)
	for _, id := range st.Order {
		if id != chapterID {
			order = append(order, id)
		}
	}
	for len(order) > maxChapterViews {
		delete(st.Chapters, order[len(order)-1])
		order = order[:len(order)-1]
	}
	st.Order = order
}
