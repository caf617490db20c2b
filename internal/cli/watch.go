package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/schemagen/compiler/load"
)

func newWatchCommand() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the packages whenever a declaration file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			w := &watcher{
				cfg:      GetConfig(ctx),
				log:      GetLogger(ctx).Named("watch"),
				out:      cmd.ErrOrStderr(),
				debounce: debounce,
			}
			return w.run(ctx)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "Quiet period before regenerating")
	return cmd
}

// watcher regenerates the target directory on changes of the schema
// directory. Bursts of events within the debounce period trigger one run.
type watcher struct {
	cfg      *Config
	log      *zap.Logger
	out      io.Writer
	debounce time.Duration
	// done is called after every regeneration, if set.
	done func(error)
}

func (w *watcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()
	if err := fw.Add(w.cfg.Schema); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Schema, err)
	}
	w.log.Info("watching", zap.String("schema", w.cfg.Schema), zap.String("target", w.cfg.Target))
	w.regenerate(ctx)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !load.Supported(event.Name) {
				continue
			}
			w.log.Debug("file changed", zap.String("file", event.Name), zap.Stringer("op", event.Op))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.regenerate(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", zap.Error(err))
		}
	}
}

// regenerate compiles and generates once. Failures are logged and the
// watch goes on.
func (w *watcher) regenerate(ctx context.Context) {
	start := time.Now()
	err := w.generate(ctx)
	if err != nil {
		w.log.Error("regeneration failed", zap.Error(err))
	} else {
		w.log.Info("regenerated", zap.Duration("took", time.Since(start)))
	}
	if w.done != nil {
		w.done(err)
	}
}

func (w *watcher) generate(ctx context.Context) error {
	g, err := compile(w.cfg, w.log)
	if err != nil {
		return err
	}
	diagErr := writeDiagnostics(w.out, g)
	if err := generate(ctx, g); err != nil {
		return err
	}
	return diagErr
}
