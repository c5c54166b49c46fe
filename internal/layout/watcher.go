package layout

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Provider serves the active layout and swaps it when the file changes.
type Provider struct {
	mu      sync.RWMutex
	current Layout
	path    string
	log     zerolog.Logger
	onSwap  func(Layout)
}

// NewProvider loads path once; the initial load must succeed.
func NewProvider(path string, log zerolog.Logger) (*Provider, error) {
	l, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Provider{
		current: l,
		path:    path,
		log:     log.With().Str("component", "layout").Logger(),
	}, nil
}

// Static wraps a fixed layout (tests, scripts).
func Static(l Layout) *Provider {
	return &Provider{current: l, log: zerolog.Nop()}
}

// Current returns the active layout.
func (p *Provider) Current() Layout {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// OnSwap registers a callback invoked after each successful reload.
func (p *Provider) OnSwap(fn func(Layout)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onSwap = fn
}

// Reload re-reads the file. On error the previous layout stays active.
func (p *Provider) Reload() error {
	l, err := Load(p.path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.current = l
	fn := p.onSwap
	p.mu.Unlock()

	if fn != nil {
		fn(l)
	}
	return nil
}

// Watch reloads the layout on write/create events until ctx is done. The
// directory is watched so editors that replace the file are picked up.
func (p *Provider) Watch(ctx context.Context) error {
	if p.path == "" {
		return fmt.Errorf("layout watch: no file path")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("layout watch: %w", err)
	}
	if err := w.Add(filepath.Dir(p.path)); err != nil {
		w.Close()
		return fmt.Errorf("layout watch %s: %w", p.path, err)
	}

	target := filepath.Clean(p.path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if err := p.Reload(); err != nil {
					p.log.Warn().Err(err).Msg("layout reload failed, keeping previous layout")
					continue
				}
				l := p.Current()
				p.log.Info().
					Interface("buttons", l.Buttons).
					Dur("settle", l.Timing.Settle).
					Msg("layout reloaded")
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				p.log.Warn().Err(err).Msg("layout watcher error")
			}
		}
	}()
	return nil
}
