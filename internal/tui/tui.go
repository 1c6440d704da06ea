package tui

import (
	"context"
	"errors"

	"bookcraft-cli/internal/state"

	tea "github.com/charmbracelet/bubbletea"
)

// Run opens the full-screen chapter editor until the user quits or ctx ends.
// The caller owns cfg.Session and cfg.Presence and closes them afterwards.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Session == nil {
		return errors.New("tui: no editing session")
	}
	applyProfile(cfg.Profile)
	applyColorProfilePreference()
	applyThemePreference()

	m := newAppModel(cfg)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// Send blocks until the program reads the message, so subscribers never
	// call it from the goroutine that is dispatching.
	unsubscribe := m.alerts.Subscribe(func([]state.Alert) {
		go p.Send(alertsMsg{})
	})
	defer unsubscribe()

	if cfg.Presence != nil {
		chapterID := cfg.Session.ChapterID()
		if err := cfg.Presence.Join(chapterID); err != nil {
			m.log.Warn("presence join failed", "chapter", chapterID, "error", err)
		}
		go func() {
			for {
				select {
				case ch, ok := <-cfg.Presence.Changes():
					if !ok {
						return
					}
					if ch.ChapterID == chapterID {
						p.Send(presenceMsg(ch))
					}
				case <-cfg.Presence.Done():
					m.alerts.Push(state.LevelWarning, "Presence disconnected")
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
