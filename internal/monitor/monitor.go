package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trade-clicker/internal/events"
)

// Monitor watches signal events, keeps counters, and emits alerts on failures
// and position changes.
type Monitor struct {
	Bus     *events.Bus
	Metrics *SystemMetrics
	Sinks   []AlertSink
	Log     zerolog.Logger

	// AlertTimeout bounds each sink delivery; zero means 10s.
	AlertTimeout time.Duration
}

// Start subscribes to the bus and returns immediately. The returned channel is
// closed once the loop has exited.
func (m *Monitor) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if m.Bus == nil {
		m.Log.Warn().Msg("monitor not fully configured; skipping")
		close(done)
		return done
	}
	stream, unsub := m.Bus.Subscribe(256,
		events.EventSignalReceived,
		events.EventPositionChanged,
		events.EventSignalNoop,
		events.EventSignalFailed,
	)
	go func() {
		defer close(done)
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-stream:
				if !ok {
					return
				}
				m.handle(ctx, ev)
			}
		}
	}()
	return done
}

func (m *Monitor) handle(ctx context.Context, ev events.SignalEvent) {
	if m.Metrics != nil {
		switch ev.Type {
		case events.EventSignalReceived:
			m.Metrics.IncrementReceived()
		case events.EventPositionChanged:
			m.Metrics.IncrementExecuted()
		case events.EventSignalNoop:
			m.Metrics.IncrementNoop()
		case events.EventSignalFailed:
			m.Metrics.IncrementFailed()
		}
	}

	if ev.Type != events.EventSignalFailed && ev.Type != events.EventPositionChanged {
		return
	}
	subject, body := formatAlert(ev)
	timeout := m.AlertTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	for _, sink := range m.Sinks {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		if err := sink.Send(sctx, subject, body); err != nil {
			m.Log.Error().Err(err).Str("event", string(ev.Type)).Msg("alert delivery failed")
		}
		cancel()
	}
}

func formatAlert(ev events.SignalEvent) (string, string) {
	var subject string
	if ev.Type == events.EventSignalFailed {
		subject = fmt.Sprintf("%s signal failed", ev.Signal)
	} else {
		subject = fmt.Sprintf("position %s -> %s", ev.Previous, ev.Current)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "time:     %s\n", ev.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "id:       %s\n", ev.ID)
	fmt.Fprintf(&b, "source:   %s\n", ev.Source)
	fmt.Fprintf(&b, "signal:   %s\n", ev.Signal)
	fmt.Fprintf(&b, "position: %s -> %s\n", ev.Previous, ev.Current)
	if ev.Error != "" {
		fmt.Fprintf(&b, "error:    %s\n", ev.Error)
	}
	return subject, b.String()
}
