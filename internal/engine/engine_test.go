package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trade-clicker/internal/driver"
	"trade-clicker/internal/events"
	"trade-clicker/internal/layout"
	"trade-clicker/internal/order"
	"trade-clicker/internal/state"
	"trade-clicker/pkg/db"
)

// memStore records every save.
type memStore struct {
	mu    sync.Mutex
	pos   state.Position
	saves []state.Position
}

func (m *memStore) Load(context.Context) (state.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos == "" {
		return state.None, nil
	}
	return m.pos, nil
}

func (m *memStore) Save(_ context.Context, p state.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = p
	m.saves = append(m.saves, p)
	return nil
}

type memJournal struct {
	mu      sync.Mutex
	entries []db.JournalEntry
}

func (j *memJournal) InsertJournal(_ context.Context, e db.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

type fixture struct {
	store   *memStore
	rec     *driver.Recorder
	exec    *order.Executor
	journal *memJournal
	bus     *events.Bus
	h       *Handler
}

func newFixture(start state.Position) *fixture {
	f := &fixture{
		store:   &memStore{pos: start},
		rec:     driver.NewRecorder(),
		journal: &memJournal{},
		bus:     events.NewBus(),
	}
	f.exec = order.NewExecutor(f.rec, zerolog.Nop())
	f.exec.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	f.h = NewHandler(HandlerConfig{
		Store:   f.store,
		Runner:  f.exec,
		Layouts: layout.Static(layout.Default()),
		Bus:     f.bus,
		Journal: f.journal,
		Logger:  zerolog.Nop(),
	})
	return f
}

func clicks(rec *driver.Recorder) []string {
	var out []string
	for _, a := range rec.Actions() {
		out = append(out, a.String())
	}
	return out
}

func TestTransitionTable(t *testing.T) {
	const (
		buyBtn   = "move(1081,861)"
		sellBtn  = "move(1254,855)"
		closeBtn = "move(1168,859)"
		send     = "move(933,602)"
	)
	tests := []struct {
		from   state.Position
		sig    Signal
		to     state.Position
		legs   []string
		clicks []string
	}{
		{state.None, SignalBuy, state.Buy, []string{"open_buy"}, []string{buyBtn, "click", send, "click"}},
		{state.None, SignalSell, state.Sell, []string{"open_sell"}, []string{sellBtn, "click", send, "click"}},
		{state.None, SignalClear, state.None, nil, nil},
		{state.Buy, SignalBuy, state.Buy, nil, nil},
		{state.Buy, SignalSell, state.Sell, []string{"close", "open_sell"}, []string{closeBtn, "click", send, "click", sellBtn, "click", send, "click"}},
		{state.Buy, SignalClear, state.None, []string{"close"}, []string{closeBtn, "click", send, "click"}},
		{state.Sell, SignalBuy, state.Buy, []string{"close", "open_buy"}, []string{closeBtn, "click", send, "click", buyBtn, "click", send, "click"}},
		{state.Sell, SignalSell, state.Sell, nil, nil},
		{state.Sell, SignalClear, state.None, []string{"close"}, []string{closeBtn, "click", send, "click"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.sig), func(t *testing.T) {
			f := newFixture(tt.from)
			res, err := f.h.Handle(context.Background(), Request{Signal: tt.sig, Source: SourceConsole})
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if res.Previous != tt.from || res.Current != tt.to {
				t.Fatalf("%s -> %s, expected %s -> %s", res.Previous, res.Current, tt.from, tt.to)
			}
			if res.Changed != (tt.from != tt.to) {
				t.Fatalf("changed=%v", res.Changed)
			}
			if !equal(res.Legs, tt.legs) {
				t.Fatalf("legs=%v, expected %v", res.Legs, tt.legs)
			}
			if got := clicks(f.rec); !equal(got, tt.clicks) {
				t.Fatalf("clicks=%v, expected %v", got, tt.clicks)
			}
			if len(tt.legs) == 0 && len(f.store.saves) != 0 {
				t.Fatalf("no-op saved %v", f.store.saves)
			}
			if len(tt.legs) > 0 && f.store.pos != tt.to {
				t.Fatalf("stored %s, expected %s", f.store.pos, tt.to)
			}
		})
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSwitchSavesAfterEachLeg(t *testing.T) {
	f := newFixture(state.Buy)
	if _, err := f.h.Handle(context.Background(), Request{Signal: SignalSell}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	want := []state.Position{state.None, state.Sell}
	if len(f.store.saves) != 2 || f.store.saves[0] != want[0] || f.store.saves[1] != want[1] {
		t.Fatalf("saves=%v, expected %v", f.store.saves, want)
	}
}

func TestSwitchWaitsBetweenLegs(t *testing.T) {
	f := newFixture(state.Sell)
	var waits []time.Duration
	f.exec.Sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	if _, err := f.h.Handle(context.Background(), Request{Signal: SignalBuy}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	want := []time.Duration{1500 * time.Millisecond, 2 * time.Second, 1500 * time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("waits=%v, expected %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Fatalf("waits=%v, expected %v", waits, want)
		}
	}
}

func TestRepeatedSignalIsIdempotent(t *testing.T) {
	f := newFixture(state.None)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := f.h.Handle(ctx, Request{Signal: SignalBuy}); err != nil {
			t.Fatalf("Handle #%d: %v", i, err)
		}
	}
	if n := len(f.rec.Actions()); n != 4 {
		t.Fatalf("expected a single open (4 actions), got %d", n)
	}
	if len(f.journal.entries) != 3 {
		t.Fatalf("journal=%d entries", len(f.journal.entries))
	}
	statuses := []string{f.journal.entries[0].Status, f.journal.entries[1].Status, f.journal.entries[2].Status}
	if !equal(statuses, []string{db.StatusExecuted, db.StatusNoop, db.StatusNoop}) {
		t.Fatalf("statuses=%v", statuses)
	}
}

func TestBuyBuySellSellScenario(t *testing.T) {
	f := newFixture(state.None)
	ctx := context.Background()
	var stored []state.Position
	for _, sig := range []Signal{SignalBuy, SignalBuy, SignalSell, SignalSell} {
		if _, err := f.h.Handle(ctx, Request{Signal: sig}); err != nil {
			t.Fatalf("Handle %s: %v", sig, err)
		}
		p, _ := f.store.Load(ctx)
		stored = append(stored, p)
	}
	want := []state.Position{state.Buy, state.Buy, state.Sell, state.Sell}
	for i := range want {
		if stored[i] != want[i] {
			t.Fatalf("stored=%v, expected %v", stored, want)
		}
	}
	// one open, then close plus open: three submits of four actions
	if n := len(f.rec.Actions()); n != 12 {
		t.Fatalf("actions=%d, expected 12", n)
	}
}

func TestFailedOpenAfterCloseLeavesNone(t *testing.T) {
	f := newFixture(state.Buy)
	f.rec.FailOn = 5 // first move of the open leg
	sub, unsub := f.bus.Subscribe(4, events.EventSignalFailed)
	defer unsub()

	res, err := f.h.Handle(context.Background(), Request{Signal: SignalSell, Source: SourceHTTP})
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("expected ErrExecution, got %v", err)
	}
	if f.store.pos != state.None || res.Current != state.None {
		t.Fatalf("stored=%s result=%s, expected none", f.store.pos, res.Current)
	}
	if !equal(res.Legs, []string{"close"}) {
		t.Fatalf("legs=%v", res.Legs)
	}
	last := f.journal.entries[len(f.journal.entries)-1]
	if last.Status != db.StatusFailed || last.Error == "" || last.Current != "none" {
		t.Fatalf("journal entry %+v", last)
	}
	select {
	case ev := <-sub:
		if ev.Current != "none" || ev.Error == "" {
			t.Fatalf("event %+v", ev)
		}
	default:
		t.Fatalf("no failure event published")
	}
}

func TestFailedFirstLegKeepsPosition(t *testing.T) {
	f := newFixture(state.None)
	f.rec.FailOn = 1
	if _, err := f.h.Handle(context.Background(), Request{Signal: SignalBuy}); err == nil {
		t.Fatalf("expected error")
	}
	if len(f.store.saves) != 0 {
		t.Fatalf("saved %v after failed open", f.store.saves)
	}
}

func TestHandleRejectsUnknownSignal(t *testing.T) {
	f := newFixture(state.None)
	_, err := f.h.Handle(context.Background(), Request{Signal: "hold"})
	if !errors.Is(err, ErrUnknownSignal) {
		t.Fatalf("expected ErrUnknownSignal, got %v", err)
	}
	if len(f.rec.Actions()) != 0 || len(f.journal.entries) != 0 {
		t.Fatalf("unknown signal had side effects")
	}
}

func TestParseSignalIsCaseSensitive(t *testing.T) {
	for _, s := range []string{"buy", "sell", "clear"} {
		if _, err := ParseSignal(s); err != nil {
			t.Fatalf("ParseSignal(%q): %v", s, err)
		}
	}
	for _, s := range []string{"BUY", " sell", "", "close"} {
		if _, err := ParseSignal(s); !errors.Is(err, ErrUnknownSignal) {
			t.Fatalf("ParseSignal(%q) accepted", s)
		}
	}
}

func TestHandlerWithFileStorePersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position_state.txt")
	build := func() *Handler {
		exec := order.NewExecutor(driver.NewRecorder(), zerolog.Nop())
		exec.Sleep = func(context.Context, time.Duration) error { return nil }
		return NewHandler(HandlerConfig{
			Store:   state.NewFileStore(path, zerolog.Nop()),
			Runner:  exec,
			Layouts: layout.Static(layout.Default()),
			Logger:  zerolog.Nop(),
		})
	}
	ctx := context.Background()
	if _, err := build().Handle(ctx, Request{Signal: SignalSell}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	res, err := build().Handle(ctx, Request{Signal: SignalSell})
	if err != nil {
		t.Fatalf("Handle after restart: %v", err)
	}
	if res.Previous != state.Sell || res.Changed {
		t.Fatalf("restart lost position: %+v", res)
	}
}

func TestDispatcherSerializesSubmits(t *testing.T) {
	f := newFixture(state.None)
	d := NewDispatcher(f.h, 64, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		sig := SignalBuy
		if i%2 == 1 {
			sig = SignalSell
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Submit(ctx, Request{Signal: sig, Source: SourceHTTP}); err != nil {
				t.Errorf("Submit: %v", err)
			}
		}()
	}
	wg.Wait()

	// Each journal entry must start where the previous one ended.
	prev := "none"
	for i, e := range f.journal.entries {
		if e.Previous != prev {
			t.Fatalf("entry %d starts at %s, previous ended at %s", i, e.Previous, prev)
		}
		prev = e.Current
	}
	if len(f.journal.entries) != 20 {
		t.Fatalf("journal=%d entries", len(f.journal.entries))
	}
	p, _ := d.Position(ctx)
	if string(p) != prev {
		t.Fatalf("position %s, journal ends at %s", p, prev)
	}
}

type blockingProc struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingProc) Handle(_ context.Context, req Request) (Result, error) {
	b.started <- struct{}{}
	<-b.release
	return Result{RequestID: req.ID, Signal: req.Signal}, nil
}

func (b *blockingProc) Position(context.Context) (state.Position, error) { return state.None, nil }

func TestDispatcherQueueFull(t *testing.T) {
	proc := &blockingProc{started: make(chan struct{}, 2), release: make(chan struct{})}
	d := NewDispatcher(proc, 1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	results := make(chan error, 2)
	submit := func(sig Signal) {
		_, err := d.Submit(ctx, Request{Signal: sig})
		results <- err
	}
	go submit(SignalBuy)
	<-proc.started // worker is busy with the first job

	go submit(SignalSell)
	deadline := time.Now().Add(2 * time.Second)
	for len(d.ch) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("second job never queued")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := d.Submit(ctx, Request{Signal: SignalClear}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	close(proc.release)
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			t.Fatalf("queued submit: %v", err)
		}
	}
}

func TestDispatcherClosed(t *testing.T) {
	f := newFixture(state.None)
	d := NewDispatcher(f.h, 4, zerolog.Nop())
	d.Start(context.Background())
	d.Close()
	<-d.Done()
	if _, err := d.Submit(context.Background(), Request{Signal: SignalBuy}); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("expected ErrDispatcherClosed, got %v", err)
	}
}

func TestDispatcherExitsWhenClosedThenCanceled(t *testing.T) {
	for i := 0; i < 100; i++ {
		f := newFixture(state.None)
		d := NewDispatcher(f.h, 4, zerolog.Nop())
		ctx, cancel := context.WithCancel(context.Background())
		d.Close()
		cancel()
		d.Start(ctx)
		select {
		case <-d.Done():
		case <-time.After(time.Second):
			t.Fatalf("worker did not exit on run %d", i)
		}
	}
}

func TestDispatcherRejectsQueuedOnCancel(t *testing.T) {
	proc := &blockingProc{started: make(chan struct{}, 1), release: make(chan struct{})}
	d := NewDispatcher(proc, 4, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	first := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background(), Request{Signal: SignalBuy})
		first <- err
	}()
	<-proc.started

	queued := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background(), Request{Signal: SignalSell})
		queued <- err
	}()
	deadline := time.Now().Add(2 * time.Second)
	for len(d.ch) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("second job never queued")
		}
		time.Sleep(5 * time.Millisecond)
	}

	d.Close()
	cancel()
	close(proc.release)

	if err := <-first; err != nil {
		t.Fatalf("running job: %v", err)
	}
	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not exit after close and cancel")
	}
	// The worker may pick the buffered job or the cancellation first; either
	// way the caller gets an answer.
	select {
	case err := <-queued:
		if err != nil && !errors.Is(err, ErrDispatcherClosed) {
			t.Fatalf("queued job: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("queued submit never returned")
	}
}

func TestDispatcherValidatesBeforeQueueing(t *testing.T) {
	f := newFixture(state.None)
	d := NewDispatcher(f.h, 4, zerolog.Nop())
	if _, err := d.Submit(context.Background(), Request{Signal: "BUY"}); !errors.Is(err, ErrUnknownSignal) {
		t.Fatalf("expected ErrUnknownSignal, got %v", err)
	}
}
