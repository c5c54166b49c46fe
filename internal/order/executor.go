package order

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"trade-clicker/internal/driver"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the production Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StepError reports which step of which plan failed.
type StepError struct {
	Plan  string
	Index int
	Step  Step
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("plan %s step %d (%s): %v", e.Plan, e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Executor runs plans against a driver. It is not safe for concurrent use;
// the dispatcher guarantees a single caller.
type Executor struct {
	Driver driver.Driver
	Sleep  Sleeper
	// MoveTime is passed as a pause after each move so the pointer settles.
	MoveTime func() time.Duration
	// Observe receives the duration of every completed plan (metrics).
	Observe func(plan string, d time.Duration)

	log zerolog.Logger
}

func NewExecutor(d driver.Driver, log zerolog.Logger) *Executor {
	return &Executor{
		Driver: d,
		Sleep:  ContextSleep,
		log:    log.With().Str("component", "executor").Logger(),
	}
}

// Run executes every step in order and returns the number of completed steps.
// Cancellation is checked between steps; a half-clicked UI is not rolled back.
func (e *Executor) Run(ctx context.Context, plan Plan) (int, error) {
	sleep := e.Sleep
	if sleep == nil {
		sleep = ContextSleep
	}
	start := time.Now()

	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return i, &StepError{Plan: plan.Name, Index: i, Step: step, Err: err}
		}

		var err error
		switch step.Kind {
		case StepMove:
			err = e.Driver.Move(step.Point.X, step.Point.Y)
			if err == nil && e.MoveTime != nil {
				err = sleep(ctx, e.MoveTime())
			}
		case StepClick:
			err = e.Driver.Click()
		case StepPress:
			err = e.Driver.Press(step.Key)
		case StepPause:
			err = sleep(ctx, step.Delay)
		default:
			err = fmt.Errorf("unknown step kind %q", step.Kind)
		}
		if err != nil {
			e.log.Error().Err(err).Str("plan", plan.Name).Int("step", i).Str("action", step.String()).Msg("step failed")
			return i, &StepError{Plan: plan.Name, Index: i, Step: step, Err: err}
		}
		e.log.Debug().Str("plan", plan.Name).Int("step", i).Str("action", step.String()).Msg("step done")
	}

	elapsed := time.Since(start)
	if e.Observe != nil {
		e.Observe(plan.Name, elapsed)
	}
	e.log.Info().Str("plan", plan.Name).Int("steps", len(plan.Steps)).Dur("elapsed", elapsed).Msg("plan completed")
	return len(plan.Steps), nil
}
