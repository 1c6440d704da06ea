package model

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleEditor  Role = "editor"
)

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	SchoolID string `json:"schoolId,omitempty"`
	Blocked  bool   `json:"blocked"`
}

type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	SchoolID    string    `json:"schoolId,omitempty"`
	Sections    []Section `json:"sections,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Section struct {
	ID       string    `json:"id"`
	BookID   string    `json:"bookId"`
	Title    string    `json:"title"`
	Order    int       `json:"order"`
	Chapters []Chapter `json:"chapters,omitempty"`
}

type Chapter struct {
	ID        string  `json:"id"`
	SectionID string  `json:"sectionId"`
	Title     string  `json:"title"`
	Order     int     `json:"order"`
	Blocks    []Block `json:"blocks,omitempty"`
}

// OrderEntry is one element of a persisted ordering (blocks, chapters, sections).
type OrderEntry struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

type Block struct {
	ID        string     `json:"id"`
	ChapterID string     `json:"chapterId"`
	Layout    LayoutType `json:"layout"`
	Order     int        `json:"order"`
	Style     BlockStyle `json:"style"`
	Widgets   []Widget   `json:"widgets"`
}

// BlockStyle is opaque to the server; the client only round-trips it.
type BlockStyle struct {
	Background string `json:"background,omitempty"`
	Padding    string `json:"padding,omitempty"`
	Align      string `json:"align,omitempty"`
	Border     string `json:"border,omitempty"`
}

type Widget struct {
	ID      string          `json:"id"`
	BlockID string          `json:"blockId"`
	Type    WidgetType      `json:"type"`
	Row     int             `json:"row"`
	Column  int             `json:"column"`
	Data    json.RawMessage `json:"data"`
}

type Question struct {
	ID       string   `json:"id"`
	WidgetID string   `json:"widgetId"`
	Text     string   `json:"text"`
	Order    int      `json:"order"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Options  []Option `json:"options,omitempty"`
}

type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
	ImageURL   string `json:"imageUrl,omitempty"`
	Order      int    `json:"order"`
}

type Attempt struct {
	ID          string     `json:"id"`
	WidgetID    string     `json:"widgetId"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type AnswerResult struct {
	Correct  bool    `json:"correct"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback,omitempty"`
}

type AttemptResult struct {
	AttemptID string  `json:"attemptId"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"maxScore"`
	Completed bool    `json:"completed"`
}

type SchoolMember struct {
	UserID   string    `json:"userId"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type ActivationKey struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	BookID    string     `json:"bookId"`
	SchoolID  string     `json:"schoolId,omitempty"`
	MaxUses   int        `json:"maxUses"`
	Uses      int        `json:"uses"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Revoked   bool       `json:"revoked"`
}

type Settings map[string]any

type Stats struct {
	Users      int `json:"users"`
	Books      int `json:"books"`
	Schools    int `json:"schools"`
	ActiveKeys int `json:"activeKeys"`
	Attempts   int `json:"attempts"`
}
