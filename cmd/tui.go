package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/matheuskafuri/highlights/internal/config"
	"github.com/matheuskafuri/highlights/internal/events"
	"github.com/matheuskafuri/highlights/internal/highlights"
	"github.com/matheuskafuri/highlights/internal/history"
	"github.com/matheuskafuri/highlights/internal/logging"
	"github.com/matheuskafuri/highlights/internal/tui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// env bundles the state shared by every command. The manager publishes on
// bus.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	logFile io.Closer
	store   *history.Store
	bus     *events.Bus
	manager *history.Manager
}

// setup loads config and opens the history store. tune, when non-nil, may
// override the manager options derived from config.
func setup(cmd *cobra.Command, tune func(*history.ManagerOpts)) (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, logFile, err := logging.New(config.LogPath(), cfg.SlogLevel())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "  [warn] logging disabled: %v\n", err)
	}
	slog.SetDefault(log)
	cmd.SetContext(logging.Into(cmd.Context(), log))

	store, err := history.Open(config.DataPath())
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening history: %w", err)
	}

	bus := events.New(events.WithErrorHandler(func(ctx context.Context, name string, err error) {
		logging.From(ctx).Error("event listener failed", "event", name, "err", err)
	}))

	opts := history.ManagerOpts{
		Limit:        cfg.Limit(),
		MinVisits:    cfg.Highlights.MinVisits,
		Window:       cfg.Window(),
		ExcludeHosts: cfg.Highlights.ExcludeHosts,
		Weights:      cfg.ScoreWeights(),
		Logger:       log,
	}
	if tune != nil {
		tune(&opts)
	}

	return &env{
		cfg:     cfg,
		log:     log,
		logFile: logFile,
		store:   store,
		bus:     bus,
		manager: history.NewManager(store, bus, opts),
	}, nil
}

// Close waits for in-flight fetches before closing the store.
func (r *env) Close() {
	r.manager.Close()
	if err := r.bus.Close(); err != nil {
		r.log.Warn("closing event bus", "err", err)
	}
	if err := r.store.Close(); err != nil {
		r.log.Warn("closing history", "err", err)
	}
	r.logFile.Close()
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("the highlights screen needs a terminal (TTY); try `highlights list`")
	}

	rt, err := setup(cmd, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Drop visits past retention before showing anything
	if _, err := rt.manager.Prune(cmd.Context(), rt.cfg.RetentionDuration()); err != nil {
		rt.log.Warn("auto-prune failed", "err", err)
	}

	c, err := highlights.New(rt.manager, rt.bus)
	if err != nil {
		return fmt.Errorf("starting highlights: %w", err)
	}
	defer c.Close()

	started := time.Now()
	err = tui.Run(tui.RunOpts{Cache: c, Remover: rt.manager, Logger: rt.log})
	rt.log.Info("tui closed", "duration", time.Since(started).Round(time.Second), "fetches", c.FetchCount())
	return err
}
