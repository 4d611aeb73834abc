package app

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mqttscope/mqttscope/internal/broker"
	"github.com/mqttscope/mqttscope/internal/connection"
	"github.com/mqttscope/mqttscope/internal/profile"
	"github.com/mqttscope/mqttscope/internal/ui"
)

// Config describes user-provided application options.
type Config struct {
	ProfilePath  string
	Width        int
	Height       int
	TickInterval time.Duration
}

// Run bootstraps and executes the Bubble Tea program.
func Run(cfg Config) error {
	path := cfg.ProfilePath
	if path == "" {
		resolved, err := profile.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolve profile path: %w", err)
		}
		path = resolved
	}
	store, err := profile.Load(path)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	manager := connection.NewManager(connection.BrokerDialer(&broker.Dialer{}))
	defer func() {
		for _, id := range manager.IDs() {
			manager.Stop(id)
		}
	}()

	model := ui.NewModel(store, manager, cfg.Width, cfg.Height, cfg.TickInterval)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
