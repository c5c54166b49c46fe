package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"trade-clicker/internal/driver/robot"
	"trade-clicker/internal/layout"
	"trade-clicker/internal/order"
	"trade-clicker/pkg/logger"
)

// click_check performs a single open plan against the real screen so the
// button coordinates in layout.yaml can be verified by eye.
//
// Usage:
//   go run ./scripts/click_check -side buy -layout layout.yaml
//   go run ./scripts/click_check -where   # print the cursor position every second
//
// It clicks for real: keep the trading platform in demo mode.

func main() {
	side := flag.String("side", "buy", "buy or sell")
	path := flag.String("layout", "layout.yaml", "screen layout file")
	smooth := flag.Bool("smooth", false, "move the pointer visibly")
	where := flag.Bool("where", false, "print the cursor position instead of clicking")
	flag.Parse()

	log := logger.New("debug", true, nil)
	drv := robot.New(*smooth)

	if *where {
		for {
			x, y := robot.CursorPosition()
			fmt.Printf("cursor at (%d, %d)\n", x, y)
			time.Sleep(time.Second)
		}
	}

	l, err := layout.Load(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("load layout")
	}
	plan, err := order.Planner{Layout: l}.Open(order.Side(*side))
	if err != nil {
		log.Fatal().Err(err).Msg("build plan")
	}

	log.Info().Str("plan", plan.Name).Msg("starting in 3s, focus the trading window")
	time.Sleep(3 * time.Second)

	exec := order.NewExecutor(drv, log)
	exec.MoveTime = func() time.Duration { return l.Timing.Move }
	if _, err := exec.Run(context.Background(), plan); err != nil {
		log.Error().Err(err).Msg("click check failed")
		os.Exit(1)
	}
	log.Info().Msg("click check done")
}
