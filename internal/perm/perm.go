// Package perm decides which roles may run which commands.
//
// The server enforces the same rules; checking locally only saves a round
// trip and gives a clearer message. An unknown role is allowed through.
package perm

import (
	"fmt"
	"sort"
	"strings"

	"bookcraft-cli/internal/model"
)

type rule struct {
	prefix string
	roles  []model.Role
}

// rules are matched by the longest command-path prefix. A nil roles list
// means any signed-in role.
var rules = []rule{
	{prefix: "admin", roles: []model.Role{model.RoleAdmin}},
	{prefix: "keys", roles: []model.Role{model.RoleAdmin, model.RoleTeacher}},
	{prefix: "keys activate"},
	{prefix: "members", roles: []model.Role{model.RoleAdmin, model.RoleTeacher}},
	{prefix: "books create", roles: authors},
	{prefix: "books update", roles: authors},
	{prefix: "books delete", roles: authors},
	{prefix: "sections", roles: authors},
	{prefix: "sections list"},
	{prefix: "chapters create", roles: authors},
	{prefix: "chapters rename", roles: authors},
	{prefix: "chapters delete", roles: authors},
	{prefix: "chapters swap", roles: authors},
	{prefix: "blocks", roles: authors},
	{prefix: "blocks list"},
	{prefix: "widgets add", roles: authors},
	{prefix: "widgets update", roles: authors},
	{prefix: "widgets delete", roles: authors},
	{prefix: "questions", roles: authors},
	{prefix: "questions list"},
	{prefix: "options", roles: authors},
	{prefix: "edit", roles: authors},
}

var authors = []model.Role{model.RoleAdmin, model.RoleTeacher, model.RoleEditor}

func init() {
	sort.SliceStable(rules, func(i, j int) bool { return len(rules[i].prefix) > len(rules[j].prefix) })
}

// Allowed reports whether role may run the command at path (e.g. "keys generate").
func Allowed(role model.Role, path string) bool {
	role = model.Role(strings.ToLower(strings.TrimSpace(string(role))))
	if !known(role) {
		return true
	}
	r, ok := match(path)
	if !ok || r.roles == nil {
		return true
	}
	for _, want := range r.roles {
		if want == role {
			return true
		}
	}
	return false
}

// Check is Allowed as an error.
func Check(role model.Role, path string) error {
	if Allowed(role, path) {
		return nil
	}
	return &DeniedError{Role: role, Path: normalize(path)}
}

type DeniedError struct {
	Role model.Role
	Path string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s accounts cannot run `bookcraft %s`", e.Role, e.Path)
}

func match(path string) (rule, bool) {
	path = normalize(path)
	for _, r := range rules {
		if path == r.prefix || strings.HasPrefix(path, r.prefix+" ") {
			return r, true
		}
	}
	return rule{}, false
}

func normalize(path string) string {
	return strings.ToLower(strings.Join(strings.Fields(path), " "))
}

func known(role model.Role) bool {
	switch role {
	case model.RoleAdmin, model.RoleTeacher, model.RoleStudent, model.RoleEditor:
		return true
	}
	return false
}
