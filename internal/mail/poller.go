package mail

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trade-clicker/internal/engine"
)

// Submitter accepts a signal request and blocks until it has been handled.
type Submitter interface {
	Submit(ctx context.Context, req engine.Request) (engine.Result, error)
}

var subjectSignal = regexp.MustCompile(`(?i)\b(buy|sell|clear)\b`)

// ParseSubject returns the first whole-word buy, sell or clear in subject.
func ParseSubject(subject string) (engine.Signal, bool) {
	m := subjectSignal.FindStringSubmatch(subject)
	if m == nil {
		return "", false
	}
	return engine.Signal(strings.ToLower(m[1])), true
}

// Poller checks the mailbox on an interval and submits one request per
// signal mail.
type Poller struct {
	dial     Dialer
	sub      Submitter
	interval time.Duration
	allowed  map[string]struct{}
	log      zerolog.Logger
}

// NewPoller builds a poller. An empty allow list accepts any sender.
func NewPoller(dial Dialer, sub Submitter, interval time.Duration, allowed []string, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	p := &Poller{
		dial:     dial,
		sub:      sub,
		interval: interval,
		log:      log.With().Str("component", "mail").Logger(),
	}
	if len(allowed) > 0 {
		p.allowed = make(map[string]struct{}, len(allowed))
		for _, a := range allowed {
			p.allowed[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
		}
	}
	return p
}

// Run polls immediately and then on every tick until ctx is canceled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			p.log.Error().Err(err).Msg("mail poll failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PollOnce opens a session, handles unseen mail in UID order, and archives
// what it handled. Mail without a signal is archived too. A signal the engine
// never got to (shutdown, busy queue) stops the pass and it and every later
// message stay unseen for the next poll, so signal order is kept.
// It returns the number of signals submitted.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	mb, err := p.dial(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := mb.Close(); err != nil {
			p.log.Debug().Err(err).Msg("mailbox logout")
		}
	}()

	msgs, err := mb.Unseen(ctx)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		p.log.Debug().Msg("no new emails")
		return 0, nil
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].UID < msgs[j].UID })

	submitted := 0
	uids := make([]uint32, 0, len(msgs))
	for _, m := range msgs {
		if ctx.Err() != nil {
			break
		}
		log := p.log.With().Uint32("uid", m.UID).Strs("from", m.From).Str("subject", m.Subject).Logger()

		if !p.senderAllowed(m.From) {
			log.Warn().Msg("sender not allowed, ignoring mail")
			uids = append(uids, m.UID)
			continue
		}
		sig, ok := ParseSubject(m.Subject)
		if !ok {
			log.Info().Msg("no signal in subject")
			uids = append(uids, m.UID)
			continue
		}
		res, err := p.sub.Submit(ctx, engine.Request{Signal: sig, Source: engine.SourceMail})
		if err != nil && !errors.Is(err, engine.ErrExecution) {
			log.Warn().Err(err).Str("signal", string(sig)).Msg("mail signal not handled, leaving it unseen")
			break
		}
		uids = append(uids, m.UID)
		if err != nil {
			log.Error().Err(err).Str("signal", string(sig)).Msg("mail signal failed")
			continue
		}
		submitted++
		log.Info().Str("signal", string(sig)).Str("position", string(res.Current)).Msg("mail signal handled")
	}

	if err := mb.Archive(context.WithoutCancel(ctx), uids); err != nil {
		return submitted, err
	}
	return submitted, nil
}

func (p *Poller) senderAllowed(from []string) bool {
	if p.allowed == nil {
		return true
	}
	for _, f := range from {
		if _, ok := p.allowed[strings.ToLower(f)]; ok {
			return true
		}
	}
	return false
}
