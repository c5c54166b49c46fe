// Package mail turns unread signal mails into requests.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Message is the part of a mail the poller looks at.
type Message struct {
	UID     uint32
	From    []string
	Subject string
}

// Mailbox is an open, selected mailbox session.
type Mailbox interface {
	// Unseen returns messages without the \Seen flag.
	Unseen(ctx context.Context) ([]Message, error)
	// Archive moves messages out of the watched mailbox.
	Archive(ctx context.Context, uids []uint32) error
	Close() error
}

// Dialer opens a new Mailbox session.
type Dialer func(ctx context.Context) (Mailbox, error)

// IMAPConfig describes the account to poll.
type IMAPConfig struct {
	Addr      string // host:port, implicit TLS
	User      string
	Password  string
	Mailbox   string
	Processed string        // destination of handled mail
	Timeout   time.Duration // per command
}

// IMAPDialer returns a Dialer backed by go-imap.
func IMAPDialer(cfg IMAPConfig) Dialer {
	return func(ctx context.Context) (Mailbox, error) {
		return DialIMAP(ctx, cfg)
	}
}

// IMAPMailbox is a logged in, selected IMAP session.
type IMAPMailbox struct {
	c         *client.Client
	processed string
}

// DialIMAP connects over TLS, logs in, and selects cfg.Mailbox.
func DialIMAP(ctx context.Context, cfg IMAPConfig) (*IMAPMailbox, error) {
	if cfg.User == "" || cfg.Password == "" {
		return nil, errors.New("imap credentials are required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := client.DialTLS(cfg.Addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Addr, err)
	}
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}
	if err := c.Login(cfg.User, cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("login %s: %w", cfg.User, err)
	}
	mbox := cfg.Mailbox
	if mbox == "" {
		mbox = "INBOX"
	}
	if _, err := c.Select(mbox, false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("select %s: %w", mbox, err)
	}
	processed := cfg.Processed
	if processed == "" {
		processed = "Processed"
	}
	return &IMAPMailbox{c: c, processed: processed}, nil
}

func (m *IMAPMailbox) Unseen(ctx context.Context) ([]Message, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := m.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	ch := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- m.c.UidFetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}, ch)
	}()

	out := make([]Message, 0, len(uids))
	for msg := range ch {
		if msg.Envelope == nil {
			continue
		}
		out = append(out, Message{
			UID:     msg.Uid,
			From:    addresses(msg.Envelope.From),
			Subject: msg.Envelope.Subject,
		})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch envelopes: %w", err)
	}
	return out, nil
}

// Archive copies to the processed mailbox, then flags and expunges the
// originals; on Gmail this is how a label move is done.
func (m *IMAPMailbox) Archive(ctx context.Context, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	if err := m.c.UidCopy(seqset, m.processed); err != nil {
		return fmt.Errorf("copy to %s: %w", m.processed, err)
	}
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := m.c.UidStore(seqset, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return fmt.Errorf("flag deleted: %w", err)
	}
	if err := m.c.Expunge(nil); err != nil {
		return fmt.Errorf("expunge: %w", err)
	}
	return nil
}

func (m *IMAPMailbox) Close() error {
	return m.c.Logout()
}

func addresses(list []*imap.Address) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		if a == nil || a.MailboxName == "" {
			continue
		}
		out = append(out, strings.ToLower(a.MailboxName+"@"+a.HostName))
	}
	return out
}
