package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trade-clicker/internal/events"
	"trade-clicker/internal/layout"
	"trade-clicker/internal/order"
	"trade-clicker/internal/state"
	"trade-clicker/pkg/db"
)

var (
	ErrUnknownSignal = errors.New("unknown signal")
	ErrExecution     = errors.New("click sequence failed")
)

// Journal records processed requests.
type Journal interface {
	InsertJournal(ctx context.Context, e db.JournalEntry) error
}

// Runner executes a click plan and returns the number of completed steps.
type Runner interface {
	Run(ctx context.Context, plan order.Plan) (int, error)
}

// Handler is the position state machine. It is not safe for concurrent use;
// run it behind a Dispatcher.
type Handler struct {
	store   state.Store
	runner  Runner
	layouts *layout.Provider
	bus     *events.Bus
	journal Journal
	log     zerolog.Logger
}

// HandlerConfig wires the handler's collaborators. Bus and Journal are optional.
type HandlerConfig struct {
	Store   state.Store
	Runner  Runner
	Layouts *layout.Provider
	Bus     *events.Bus
	Journal Journal
	Logger  zerolog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		store:   cfg.Store,
		runner:  cfg.Runner,
		layouts: cfg.Layouts,
		bus:     cfg.Bus,
		journal: cfg.Journal,
		log:     cfg.Logger.With().Str("component", "handler").Logger(),
	}
}

// Handle reads the stored position, clicks the legs the transition needs, and
// saves the position after each leg that landed. On a failed leg the position
// of the last completed leg stays persisted and the error wraps ErrExecution.
func (h *Handler) Handle(ctx context.Context, req Request) (Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now()
	}
	if _, err := ParseSignal(string(req.Signal)); err != nil {
		return Result{RequestID: req.ID, Signal: req.Signal}, err
	}

	h.publish(events.EventSignalReceived, req, "", "", nil)

	current, err := h.store.Load(ctx)
	if err != nil {
		return Result{RequestID: req.ID, Signal: req.Signal}, fmt.Errorf("load position: %w", err)
	}

	t := Decide(current, req.Signal)
	res := Result{
		RequestID: req.ID,
		Signal:    req.Signal,
		Previous:  current,
		Current:   current,
	}
	log := h.log.With().
		Str("id", req.ID).
		Str("source", string(req.Source)).
		Str("signal", string(req.Signal)).
		Str("position", string(current)).
		Logger()

	if t.Noop() {
		log.Info().Msg("position already matches signal, nothing to click")
		h.record(ctx, req, res, db.StatusNoop, nil)
		h.publish(events.EventSignalNoop, req, current, current, nil)
		return res, nil
	}

	planner := order.Planner{Layout: h.layouts.Current()}
	for i, leg := range t.Legs {
		var plan order.Plan
		if leg.Kind == LegOpen {
			plan, err = planner.Open(leg.Side)
			if err != nil {
				return res, err
			}
		} else {
			plan = planner.Close()
		}
		if i > 0 {
			// Let the platform finish the previous leg before the next ticket.
			plan = plan.Delayed(planner.Layout.Timing.SwitchGap)
		}

		n, runErr := h.runner.Run(ctx, plan)
		res.Steps += n
		if runErr != nil {
			err := fmt.Errorf("%w: %s: %v", ErrExecution, leg, runErr)
			log.Error().Err(runErr).Str("leg", leg.String()).Str("persisted", string(res.Current)).Msg("signal aborted")
			h.record(ctx, req, res, db.StatusFailed, err)
			h.publish(events.EventSignalFailed, req, current, res.Current, err)
			return res, err
		}
		res.Legs = append(res.Legs, leg.String())

		if err := h.store.Save(ctx, leg.After); err != nil {
			// The click landed but could not be persisted; the next signal
			// will start from a stale state, so surface this loudly.
			err = fmt.Errorf("save position %s: %w", leg.After, err)
			log.Error().Err(err).Str("leg", leg.String()).Msg("position not persisted")
			h.record(ctx, req, res, db.StatusFailed, err)
			h.publish(events.EventSignalFailed, req, current, res.Current, err)
			return res, err
		}
		res.Current = leg.After
	}

	res.Changed = res.Current != res.Previous
	log.Info().Strs("legs", res.Legs).Str("new_position", string(res.Current)).Msg("signal executed")
	h.record(ctx, req, res, db.StatusExecuted, nil)
	h.publish(events.EventPositionChanged, req, current, res.Current, nil)
	return res, nil
}

// Position returns the stored position.
func (h *Handler) Position(ctx context.Context) (state.Position, error) {
	return h.store.Load(ctx)
}

func (h *Handler) record(ctx context.Context, req Request, res Result, status string, err error) {
	if h.journal == nil {
		return
	}
	e := db.JournalEntry{
		ID:        req.ID,
		Source:    string(req.Source),
		Signal:    string(req.Signal),
		Price:     req.Price,
		Previous:  string(res.Previous),
		Current:   string(res.Current),
		Status:    status,
		Steps:     res.Steps,
		CreatedAt: req.ReceivedAt.UTC(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	// Journal writes must not be skipped because the request context ended.
	if jerr := h.journal.InsertJournal(context.WithoutCancel(ctx), e); jerr != nil {
		h.log.Warn().Err(jerr).Str("id", req.ID).Msg("journal write failed")
	}
}

func (h *Handler) publish(t events.Event, req Request, prev, cur state.Position, err error) {
	if h.bus == nil {
		return
	}
	ev := events.SignalEvent{
		Type:      t,
		ID:        req.ID,
		Source:    string(req.Source),
		Signal:    string(req.Signal),
		Previous:  string(prev),
		Current:   string(cur),
		Timestamp: time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	h.bus.Publish(ev)
}
