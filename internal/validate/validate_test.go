package validate

import (
	"errors"
	"strings"
	"testing"
)

type memberInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=teacher student editor"`
}

type keyInput struct {
	Code string `json:"code" validate:"required,keycode"`
}

func TestStruct_UsesJSONFieldNames(t *testing.T) {
	err := Struct(memberInput{Email: "nope", Role: ""})
	var fe FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %T (%v)", err, err)
	}
	if len(fe["email"]) != 1 {
		t.Fatalf("expected one email message, got %v", fe)
	}
	if got := fe["role"]; len(got) != 1 || got[0] != "this field is required" {
		t.Fatalf("expected required message for role, got %v", got)
	}
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(memberInput{Email: "a@b.io", Role: "teacher"}); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}

func TestKeyCodeTag(t *testing.T) {
	if err := Struct(keyInput{Code: "ABCD-1234-EF56"}); err != nil {
		t.Fatalf("expected valid code, got %v", err)
	}
	err := Struct(keyInput{Code: "abcd"})
	if err == nil || !strings.Contains(err.Error(), "XXXX-XXXX-XXXX") {
		t.Fatalf("expected keycode message, got %v", err)
	}
}

func TestVar(t *testing.T) {
	if err := Var("count", 0, "min=1"); err == nil {
		t.Fatalf("expected error for count=0")
	}
	if err := Var("count", 3, "min=1,max=500"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
