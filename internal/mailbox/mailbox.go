// Package mailbox defines the mailbox collaborator boundary and its
// IMAP implementation. The core only ever sees the Mailbox interface;
// all protocol detail stays here.
package mailbox

import (
	"context"

	"github.com/nhle/inbox-calendar/internal/model"
)

// Mailbox is the contract the lifecycle coordinator polls against.
// Implementations must be idempotent under retry: marking an already
// read message read, or re-applying a label, is not an error.
type Mailbox interface {
	// ListUnread returns the currently unread messages.
	ListUnread(ctx context.Context) ([]model.Message, error)

	// MarkRead marks a message as read.
	MarkRead(ctx context.Context, messageID string) error

	// AddLabel applies a label (IMAP keyword) to a message.
	AddLabel(ctx context.Context, messageID, label string) error
}
