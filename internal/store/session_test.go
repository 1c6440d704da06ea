package store

import (
	"os"
	"runtime"
	"testing"
)

func TestSession_SaveLoadClear(t *testing.T) {
	t.Setenv("BOOKCRAFT_CONFIG_DIR", t.TempDir())

	s, err := LoadSession()
	if err != nil {
		t.Fatalf("LoadSession (missing): %v", err)
	}
	if s.Token != "" {
		t.Fatalf("expected empty session")
	}

	s.Token = "tok"
	s.Attempt = &HeldAttempt{WidgetID: "w1", AttemptID: "a1"}
	if err := SaveSession(s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	path, _ := SessionPath()
	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if fi.Mode().Perm() != 0o600 {
			t.Fatalf("expected 0600 session file, got %v", fi.Mode().Perm())
		}
	}

	got, err := LoadSession()
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got.Token != "tok" || got.Attempt == nil || got.Attempt.AttemptID != "a1" {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := ClearSession(); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if err := ClearSession(); err != nil {
		t.Fatalf("ClearSession twice: %v", err)
	}
	got, _ = LoadSession()
	if got.Token != "" {
		t.Fatalf("expected token cleared")
	}
}

func TestSession_CorruptFileIsTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BOOKCRAFT_CONFIG_DIR", dir)
	path, _ := SessionPath()
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSession()
	if err != nil || s.Token != "" {
		t.Fatalf("expected empty session for corrupt file, got %+v %v", s, err)
	}
}

func TestSession_TouchChapter(t *testing.T) {
	s := &Session{}
	for _, id := range []string{"a", "b", "c", "a"} {
		s.TouchChapter(id)
	}
	if len(s.RecentChapters) != 3 || s.RecentChapters[0] != "a" || s.RecentChapters[1] != "c" {
		t.Fatalf("unexpected recents %v", s.RecentChapters)
	}
	for i := 0; i < 20; i++ {
		s.TouchChapter(string(rune('d' + i)))
	}
	if len(s.RecentChapters) != maxRecentChapters {
		t.Fatalf("expected recents capped, got %d", len(s.RecentChapters))
	}
}
