package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectChapterArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"bookcraft"},
			want: []string{"bookcraft"},
		},
		{
			name: "direct chapter id first token",
			in:   []string{"bookcraft", "ch-42"},
			want: []string{"bookcraft", "edit", "ch-42"},
		},
		{
			name: "uuid chapter id",
			in:   []string{"bookcraft", "6f1c2b1e-8d4a-4b7e-9a51-3c0f8e2d7a10"},
			want: []string{"bookcraft", "edit", "6f1c2b1e-8d4a-4b7e-9a51-3c0f8e2d7a10"},
		},
		{
			name: "direct chapter id after value flag",
			in:   []string{"bookcraft", "--api", "http://localhost:9000", "ch-42"},
			want: []string{"bookcraft", "--api", "http://localhost:9000", "edit", "ch-42"},
		},
		{
			name: "direct chapter id after equals flag",
			in:   []string{"bookcraft", "--format=yaml", "ch-42"},
			want: []string{"bookcraft", "--format=yaml", "edit", "ch-42"},
		},
		{
			name: "direct chapter id after bool flags",
			in:   []string{"bookcraft", "--offline", "--no-cache", "ch-42"},
			want: []string{"bookcraft", "--offline", "--no-cache", "edit", "ch-42"},
		},
		{
			name: "direct chapter id after double dash",
			in:   []string{"bookcraft", "--token", "abc", "--", "ch-42"},
			want: []string{"bookcraft", "--token", "abc", "--", "edit", "ch-42"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"bookcraft", "blocks", "list", "ch-42"},
			want: []string{"bookcraft", "blocks", "list", "ch-42"},
		},
		{
			name: "bare prefix not rewritten",
			in:   []string{"bookcraft", "ch-"},
			want: []string{"bookcraft", "ch-"},
		},
		{
			name: "unknown command not rewritten",
			in:   []string{"bookcraft", "wat"},
			want: []string{"bookcraft", "wat"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectChapterArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectChapterArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
