package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"monitoroff/config"
	"monitoroff/internal/clock"
	"monitoroff/internal/flow"
	"monitoroff/internal/ui/console"
	"monitoroff/internal/ui/web"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// webLinger keeps the page up briefly so it can show the final state
const webLinger = 3 * time.Second

var runCmd = cobra.Command{
	Use:   "run",
	Short: "Show the power-off prompt (default command)",
	Args:  cobra.NoArgs,
	RunE:  runPrompt,
}

func runPrompt(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := a.settingsStore()

	var recorder flow.Recorder
	history, err := a.openHistory()
	if err != nil {
		a.logger.Warn("run history disabled", "error", err)
	} else if history != nil {
		defer history.Close()
		recorder = history
	}

	session := flow.New(store.Current(), store, a.powerController(), recorder, clock.RealClock{}, flow.Options{
		Countdown:  a.cfg.Flow.Countdown,
		GraceDelay: a.cfg.Flow.Grace,
		WakeKey:    a.cfg.WakeKey(),
	}, a.logger)
	defer session.Close()

	a.logger.Info("prompt started", "ui", a.cfg.UI.Mode, "settings", store.Path())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return session.Run(ctx) })
	switch a.cfg.UI.Mode {
	case config.UIModeWeb:
		server := web.NewServer(session, a.cfg.UI.Addr, a.logger)
		g.Go(func() error { return server.Serve(ctx, webLinger) })
	default:
		c := console.New(session, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger)
		g.Go(func() error { return c.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
