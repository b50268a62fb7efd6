package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/brancharchitect/phylomovie/internal/config"
	"github.com/brancharchitect/phylomovie/internal/movie"
	"github.com/brancharchitect/phylomovie/internal/scheduler"
	"github.com/brancharchitect/phylomovie/internal/store"
	"github.com/brancharchitect/phylomovie/internal/timeline"
	"github.com/brancharchitect/phylomovie/internal/tui/viewer"
)

func newPlayCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "play <payload.json>",
		Short: "Open the interactive viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) {
				return fmt.Errorf("play needs a terminal; use 'info' for scripted output")
			}

			payload, err := movie.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("loading payload: %w", err)
			}

			st := store.New(
				store.WithPersister(config.NewColorStore("")),
				store.WithTimelineUnit(timelineUnit(cfg)),
			)
			st.Initialize(payload)
			if cfg.AnimationSpeed > 0 {
				st.SetAnimationSpeed(cfg.AnimationSpeed, scheduler.NewWall().Now())
			}

			model := viewer.New(st, cfg, scheduler.NewWall())
			prog := tea.NewProgram(model, tea.WithAltScreen())

			var watcher *fsnotify.Watcher
			if watch {
				watcher, err = watchPayload(args[0], prog)
				if err != nil {
					return err
				}
				defer watcher.Close()
			}

			_, err = prog.Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "reload the payload when the file changes")
	return cmd
}

// timelineUnit converts the configured step width, defaulting when the
// config is absent.
func timelineUnit(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.UnitSeconds <= 0 {
		return timeline.Unit
	}
	return time.Duration(cfg.UnitSeconds * float64(time.Second))
}

// watchPayload reloads the payload on every write to its file and pushes
// it into the running program. Reload failures only log; the viewer
// keeps the last good payload.
func watchPayload(path string, prog *tea.Program) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("starting watcher: %w", err)
	}
	// Watch the directory: editors often replace the file, which drops a
	// watch set on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}
	abs, _ := filepath.Abs(path)

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				evAbs, _ := filepath.Abs(ev.Name)
				if evAbs != abs || !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
					continue
				}
				payload, err := movie.LoadFile(path)
				if err != nil {
					slog.Warn("reload failed", "path", path, "error", err)
					continue
				}
				prog.Send(viewer.ReloadMsg{Payload: payload})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("watcher error", "error", err)
			}
		}
	}()
	return watcher, nil
}
