package cli

import (
	"errors"
	"fmt"
)

var errLoginRequired = errors.New("login required; run `bookcraft login`")

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

type wrongTypeError struct {
	widgetID string
	got      string
	want     string
}

func (e wrongTypeError) Error() string {
	return fmt.Sprintf("widget %s is a %s widget, not %s", e.widgetID, e.got, e.want)
}

func errWrongType(widgetID, got, want string) error {
	return wrongTypeError{widgetID: widgetID, got: got, want: want}
}
