package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/inbox-calendar/internal/adapter"
	"github.com/nhle/inbox-calendar/internal/model"
)

// fetchLimit caps how many unread messages a single poll fetches.
const fetchLimit = 100

// IMAPMailbox implements Mailbox against an IMAP server. Message ids
// are the INBOX UIDs rendered as strings; the UIDVALIDITY caveats of
// IMAP are accepted as part of the "opaque id per mailbox" contract.
type IMAPMailbox struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// NewIMAPMailbox creates an IMAP mailbox adapter. The connection is
// established per operation, matching the short-lived session pattern
// most providers prefer for pollers.
func NewIMAPMailbox(host, port, username, password string, useTLS bool) *IMAPMailbox {
	return &IMAPMailbox{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      useTLS,
	}
}

// connect establishes a connection, authenticates, and selects INBOX.
// The caller is responsible for calling Logout on the returned client.
func (m *IMAPMailbox) connect(_ context.Context) (*imapclient.Client, error) {
	addr := m.host + ":" + m.port

	var client *imapclient.Client
	var err error

	if m.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, &adapter.TransientError{
			Op:  "imap connect " + addr,
			Err: err,
		}
	}

	if err := client.Login(m.username, m.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &adapter.AuthError{
			Op: "imap login",
			Message: fmt.Sprintf(
				"authentication failed for %s: %v", m.username, err,
			),
		}
	}

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &adapter.TransientError{
			Op:  "imap select INBOX",
			Err: err,
		}
	}

	return client, nil
}

// ListUnread searches INBOX for messages without the \Seen flag and
// returns them with their plain-text bodies extracted.
func (m *IMAPMailbox) ListUnread(ctx context.Context) ([]model.Message, error) {
	client, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, &adapter.TransientError{Op: "imap search unseen", Err: err}
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if len(uids) > fetchLimit {
		uids = uids[len(uids)-fetchLimit:]
	}

	uidSet := imap.UIDSetNum(uids...)

	// Peek keeps the fetch from setting \Seen as a side effect.
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var messages []model.Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		messages = append(messages, messageFromBuffer(buf, bodySection))
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, &adapter.TransientError{Op: "imap fetch", Err: err}
	}

	return messages, nil
}

// MarkRead adds the \Seen flag to a message.
func (m *IMAPMailbox) MarkRead(ctx context.Context, messageID string) error {
	return m.storeFlag(ctx, messageID, imap.FlagSeen)
}

// AddLabel applies a label to a message as an IMAP keyword flag.
func (m *IMAPMailbox) AddLabel(ctx context.Context, messageID, label string) error {
	if label == "" {
		return nil
	}
	return m.storeFlag(ctx, messageID, imap.Flag(label))
}

func (m *IMAPMailbox) storeFlag(
	ctx context.Context, messageID string, flag imap.Flag,
) error {
	uid, err := parseUID(messageID)
	if err != nil {
		return err
	}

	client, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	uidSet := imap.UIDSetNum(imap.UID(uid))

	storeCmd := client.Store(uidSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{flag},
	}, nil)

	if err := storeCmd.Close(); err != nil {
		return &adapter.TransientError{
			Op:  fmt.Sprintf("imap store %s on %s", flag, messageID),
			Err: err,
		}
	}
	return nil
}

// messageFromBuffer maps a fetched IMAP message to the core Message
// model, extracting the best available plain-text body.
func messageFromBuffer(
	buf *imapclient.FetchMessageBuffer,
	bodySection *imap.FetchItemBodySection,
) model.Message {
	msg := model.Message{
		ID: strconv.FormatUint(uint64(buf.UID), 10),
	}

	if buf.Envelope != nil {
		msg.Subject = buf.Envelope.Subject
		msg.ReceivedAt = buf.Envelope.Date
		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				msg.Sender = from.Name
			} else {
				msg.Sender = from.Addr()
			}
		}
	}

	if raw := buf.FindBodySection(bodySection); raw != nil {
		msg.Body = extractTextBody(raw)
	}

	return msg
}

// parseUID converts a message id string back to an IMAP UID. A
// malformed id is a permanent error: retrying will not fix it.
func parseUID(messageID string) (uint32, error) {
	uid, err := strconv.ParseUint(messageID, 10, 32)
	if err != nil {
		return 0, &adapter.PermanentError{
			Op:  "parse message id",
			Err: fmt.Errorf("invalid message id %q: %w", messageID, err),
		}
	}
	return uint32(uid), nil
}

// extractTextBody parses a raw RFC 2822 message and returns the
// text/plain body, falling back to stripped HTML, falling back to the
// raw bytes.
func extractTextBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	defer mr.Close()

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html"):
			htmlBody = string(body)
		}
	}

	if textBody != "" {
		return textBody
	}
	return stripHTML(htmlBody)
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// stripHTML removes tags and collapses whitespace for HTML-only
// messages.
func stripHTML(html string) string {
	text := htmlTagRe.ReplaceAllString(html, " ")
	text = strings.NewReplacer(
		"&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">",
		"&quot;", `"`, "&#39;", "'",
	).Replace(text)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
