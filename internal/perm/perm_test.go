package perm

import (
	"errors"
	"testing"

	"bookcraft-cli/internal/model"
)

func TestAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role model.Role
		path string
		want bool
	}{
		{model.RoleAdmin, "admin users list", true},
		{model.RoleTeacher, "admin stats", false},
		{model.RoleTeacher, "keys generate", true},
		{model.RoleStudent, "keys generate", false},
		{model.RoleStudent, "keys activate", true},
		{model.RoleStudent, "members list", false},
		{model.RoleStudent, "blocks list", true},
		{model.RoleStudent, "blocks swap", false},
		{model.RoleEditor, "blocks swap", true},
		{model.RoleStudent, "quiz start", true},
		{model.RoleStudent, "books list", true},
		{model.RoleStudent, "books create", false},
		{model.RoleStudent, "edit", false},
		{model.RoleStudent, "  Questions   LIST ", true},
		{"", "admin stats", true},
		{"superuser", "admin stats", true},
		{"STUDENT", "admin stats", false},
	}
	for _, tt := range tests {
		if got := Allowed(tt.role, tt.path); got != tt.want {
			t.Errorf("Allowed(%q, %q) = %v, want %v", tt.role, tt.path, got, tt.want)
		}
	}
}

func TestCheckReturnsDeniedError(t *testing.T) {
	err := Check(model.RoleStudent, "members add")
	var de *DeniedError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeniedError, got %v", err)
	}
	if de.Path != "members add" || de.Error() != "student accounts cannot run `bookcraft members add`" {
		t.Fatalf("unexpected error: %+v (%s)", de, de.Error())
	}
	if Check(model.RoleAdmin, "members add") != nil {
		t.Fatalf("admin should be allowed")
	}
}
