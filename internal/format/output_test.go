package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type sample struct {
	ID    string          `json:"id"`
	Order int             `json:"order"`
	Data  json.RawMessage `json:"data"`
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sample{ID: "b1", Order: 2, Data: json.RawMessage(`{"x":1}`)}, "json", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"id":"b1","order":2,"data":{"x":1}}` {
		t.Fatalf("unexpected json %s", got)
	}
}

func TestWrite_YAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"data": sample{ID: "b1", Order: 2, Data: json.RawMessage(`{"x":1}`)}}, "yaml", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"data:", "  id: b1", "  order: 2", "    x: 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in yaml output:\n%s", want, out)
		}
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, 1, "edn", false); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
