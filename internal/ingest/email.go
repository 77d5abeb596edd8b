package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/michaelgiba/covered/internal/config"
	"github.com/michaelgiba/covered/internal/services"
)

// RawItem is one downloaded inbox message before curation.
type RawItem struct {
	ID        string
	Subject   string
	Body      string
	Sender    string
	Timestamp string
}

// Mailbox downloads recent raw items from an external inbox.
type Mailbox interface {
	FetchRecent(ctx context.Context) ([]RawItem, error)
}

// IMAPMailbox downloads messages over IMAP.
type IMAPMailbox struct {
	cfg config.Email
}

// NewIMAPMailbox builds a mailbox client from configuration.
func NewIMAPMailbox(cfg config.Email) *IMAPMailbox {
	return &IMAPMailbox{cfg: cfg}
}

// FetchRecent connects, downloads the newest messages up to the configured
// limit, and disconnects. Each call is a fresh session.
func (m *IMAPMailbox) FetchRecent(ctx context.Context) ([]RawItem, error) {
	addr := m.cfg.Host
	if !strings.Contains(addr, ":") {
		addr += ":993"
	}

	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "dial imap", addr, err)
	}
	defer client.Close()

	if err := client.Login(m.cfg.Address, m.cfg.Password).Wait(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "imap login", m.cfg.Address, err)
	}

	mailbox := m.cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	selected, err := client.Select(mailbox, nil).Wait()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "select mailbox", mailbox, err)
	}
	if selected.NumMessages == 0 {
		return nil, nil
	}

	limit := uint32(m.cfg.FetchLimit)
	if limit == 0 {
		limit = 10
	}
	from := uint32(1)
	if selected.NumMessages > limit {
		from = selected.NumMessages - limit + 1
	}
	var seqSet imap.SeqSet
	seqSet.AddRange(from, selected.NumMessages)

	bodySection := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierText}
	fetchOptions := &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	messages, err := client.Fetch(seqSet, fetchOptions).Collect()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "fetch messages", mailbox, err)
	}

	items := make([]RawItem, 0, len(messages))
	for _, msg := range messages {
		if msg.Envelope == nil {
			continue
		}
		item := RawItem{
			ID:      fmt.Sprintf("%d", msg.UID),
			Subject: msg.Envelope.Subject,
			Body:    bodyText(msg, bodySection),
		}
		if len(msg.Envelope.From) > 0 {
			item.Sender = msg.Envelope.From[0].Addr()
		}
		if !msg.Envelope.Date.IsZero() {
			item.Timestamp = msg.Envelope.Date.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}

	// Messages are already in hand; a failed logout is not worth surfacing.
	_ = client.Logout().Wait()
	return items, nil
}

func bodyText(msg *imapclient.FetchMessageBuffer, section *imap.FetchItemBodySection) string {
	body := msg.FindBodySection(section)
	if len(body) == 0 {
		return "No content"
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "No content"
	}
	return text
}
