package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const watchDebounce = 250 * time.Millisecond

var watchOpts renderOptions

func init() {
	addRenderFlags(watchCmd, &watchOpts)
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <exercise.yaml>",
	Short: "Re-renders an exercise whenever it changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return watch(ctx, args[0], watchOpts, watchDebounce)
	},
}

func rerender(path string, opts renderOptions) {
	written, err := renderFile(path, opts)
	if err != nil {
		slog.Error("Render failed", "file", path, "error", err)
		return
	}
	slog.Info("Rendered", "file", path, "outputs", len(written))
}

// watch renders path once and again after every burst of changes until ctx is done.
// The directory is watched rather than the file so editors that replace files on
// save keep triggering.
func watch(ctx context.Context, path string, opts renderOptions, delay time.Duration) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve exercise path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	rerender(absPath, opts)
	debounced := debounce.New(delay)
	target := filepath.Base(absPath)

	// mu serializes renders with shutdown: once stopped is set no render starts, and
	// taking mu waits out one already running.
	var mu sync.Mutex
	stopped := false
	defer func() {
		debounced(func() {})
		mu.Lock()
		stopped = true
		mu.Unlock()
	}()
	render := func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped || ctx.Err() != nil {
			return
		}
		rerender(absPath, opts)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				slog.Debug("Exercise changed", "file", event.Name, "op", event.Op.String())
				debounced(render)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", "error", err)
		}
	}
}
