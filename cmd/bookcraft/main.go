package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bookcraft-cli/internal/cli"

	"github.com/google/uuid"
)

func isChapterID(s string) bool {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "ch-") {
		return len(s) > len("ch-")
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func rewriteDirectChapterArgs(argv []string) []string {
	// Convenience: `bookcraft <chapter-id>` works like `bookcraft edit <chapter-id>`.
	//
	// Cobra treats the first non-flag token as a subcommand, so we rewrite argv before parsing.
	// Persistent flags may come first (e.g. `bookcraft --api ... <chapter-id>`), so we look for
	// the first positional token, not just argv[1].
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--api":       true,
		"--token":     true,
		"--format":    true,
		"--log-level": true,
	}
	boolFlags := map[string]bool{
		"--pretty":   true,
		"--offline":  true,
		"--no-cache": true,
	}

	insert := func(i int) []string {
		out := make([]string, 0, len(argv)+1)
		out = append(out, argv[:i]...)
		out = append(out, "edit")
		out = append(out, argv[i:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isChapterID(argv[i+1]) {
				return insert(i + 1)
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}

		if isChapterID(a) {
			return insert(i)
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteDirectChapterArgs(os.Args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
