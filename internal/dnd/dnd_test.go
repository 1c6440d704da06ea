package dnd

import (
	"errors"
	"reflect"
	"testing"
)

func TestPointer_ClickBelowThresholdIsNotADrag(t *testing.T) {
	s := NewSensor()
	s.PointerDown("a", 100, 100)
	if s.PointerMove(105, 103) {
		t.Fatalf("expected no drag below 8px")
	}
	if _, ok := s.PointerUp("b"); ok {
		t.Fatalf("expected click to yield no swap")
	}
}

func TestPointer_DragPastThresholdSwaps(t *testing.T) {
	s := NewSensor()
	s.PointerDown("a", 0, 0)
	if !s.PointerMove(0, 8) {
		t.Fatalf("expected drag at exactly 8px")
	}
	ov := s.Overlay()
	if !ov.Active || ov.ID != "a" || ov.Position.Y != 8 {
		t.Fatalf("unexpected overlay: %+v", ov)
	}
	sw, ok := s.PointerUp("c")
	if !ok || sw != (Swap{From: "a", To: "c"}) {
		t.Fatalf("unexpected swap %+v ok=%v", sw, ok)
	}
	if s.Overlay().Active {
		t.Fatalf("expected overlay cleared after drop")
	}
}

func TestPointer_DropOnSelfIsNoop(t *testing.T) {
	s := NewSensor()
	s.PointerDown("a", 0, 0)
	s.PointerMove(20, 0)
	if _, ok := s.PointerUp("a"); ok {
		t.Fatalf("expected no swap when dropping on source")
	}
}

func TestPointer_CancelDropsGesture(t *testing.T) {
	s := NewSensor()
	s.PointerDown("a", 0, 0)
	s.PointerMove(20, 0)
	s.Cancel()
	if _, ok := s.PointerUp("b"); ok {
		t.Fatalf("expected cancelled drag to yield nothing")
	}
}

func TestKeyboard_PickOverDrop(t *testing.T) {
	s := NewSensor()
	if !s.Pick("b2") {
		t.Fatalf("expected pick")
	}
	if !s.Overlay().Keyboard {
		t.Fatalf("expected keyboard overlay")
	}
	s.Over("b5")
	if s.Target() != "b5" {
		t.Fatalf("expected target b5, got %q", s.Target())
	}
	sw, ok := s.Drop()
	if !ok || sw.From != "b2" || sw.To != "b5" {
		t.Fatalf("unexpected swap %+v ok=%v", sw, ok)
	}
	if _, ok := s.Drop(); ok {
		t.Fatalf("expected second drop to be a no-op")
	}
}

func TestApplySwap(t *testing.T) {
	got, err := ApplySwap([]string{"a", "b", "c", "d"}, "a", "c")
	if err != nil {
		t.Fatalf("ApplySwap: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"c", "b", "a", "d"}) {
		t.Fatalf("unexpected result %v", got)
	}
	if _, err := ApplySwap([]string{"a"}, "a", "z"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMove_SplicesAndClamps(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	if got := Move(ids, 0, 2); !reflect.DeepEqual(got, []string{"b", "c", "a", "d"}) {
		t.Fatalf("unexpected move result %v", got)
	}
	if got := Move(ids, 3, -1); !reflect.DeepEqual(got, []string{"d", "a", "b", "c"}) {
		t.Fatalf("unexpected clamped move %v", got)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c", "d"}) {
		t.Fatalf("input mutated: %v", ids)
	}
}
