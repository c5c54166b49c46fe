package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"trade-clicker/internal/driver"
	"trade-clicker/internal/engine"
	"trade-clicker/internal/layout"
	"trade-clicker/internal/order"
	"trade-clicker/internal/state"
	"trade-clicker/pkg/logger"
)

// dry_run_demo walks the position state machine through a typical session
// with the logging driver. Nothing is clicked and the state file lives in a
// temp directory.
//
// Usage:
//   go run ./scripts/dry_run_demo
//
// It will:
//   1) buy, buy again (no-op), sell (close then open), sell again (no-op).
//   2) clear twice (close, then nothing to close).
//   3) restart from the state file and show the restored position.

func main() {
	log := logger.New("info", true, nil)
	log.Info().Msg("=== DRY-RUN demo starting ===")

	dir, err := os.MkdirTemp("", "clicker-demo")
	if err != nil {
		log.Fatal().Err(err).Msg("temp dir")
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "position_state.txt")

	l := layout.Default()
	l.Timing.Settle = 100 * time.Millisecond
	l.Timing.SwitchGap = 200 * time.Millisecond

	newHandler := func() *engine.Handler {
		exec := order.NewExecutor(driver.NewDryRun(log), log)
		return engine.NewHandler(engine.HandlerConfig{
			Store:   state.NewFileStore(path, log),
			Runner:  exec,
			Layouts: layout.Static(l),
			Logger:  log,
		})
	}

	ctx := context.Background()
	h := newHandler()
	for _, sig := range []engine.Signal{
		engine.SignalBuy, engine.SignalBuy, engine.SignalSell, engine.SignalSell,
		engine.SignalClear, engine.SignalClear,
	} {
		res, err := h.Handle(ctx, engine.Request{Signal: sig, Source: engine.SourceConsole})
		if err != nil {
			log.Error().Err(err).Msg("signal failed")
			continue
		}
		log.Info().
			Str("signal", string(sig)).
			Str("from", string(res.Previous)).
			Str("to", string(res.Current)).
			Strs("legs", res.Legs).
			Msg("[SCENARIO] step")
	}

	if _, err := h.Handle(ctx, engine.Request{Signal: engine.SignalSell}); err != nil {
		log.Fatal().Err(err).Msg("open before restart")
	}
	p, err := newHandler().Position(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("restore")
	}
	log.Info().Str("position", string(p)).Msg("[RESTART] restored from state file")
	log.Info().Msg("=== DRY-RUN demo done ===")
}
