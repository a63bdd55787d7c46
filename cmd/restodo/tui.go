package main

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/restodo/internal/collection"
	"github.com/sandeepkv93/restodo/internal/scheduler"
	"github.com/sandeepkv93/restodo/internal/update"
)

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	a, cleanup, err := bootstrap(cmd, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	engine := scheduler.NewEngine(a.cfg.SchedulerBuffer)
	engine.Start()
	defer engine.Stop()

	var notifier update.DesktopNotifier = update.NoopDesktopNotifier{}
	if a.cfg.DesktopNotifications {
		notifier = update.ExecDesktopNotifier{}
	}

	m := update.NewModel(update.Deps{
		Collection:           collection.New(a.client, collection.WithLogger(a.logger.Named("collection"))),
		Translator:           a.tr,
		Scheduler:            engine,
		Notifier:             notifier,
		Logger:               a.logger.Named("tui"),
		PrefsPath:            a.cfg.PrefsPath,
		DesktopNotifications: a.cfg.DesktopNotifications,
	})

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
