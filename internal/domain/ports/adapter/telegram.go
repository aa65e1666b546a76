package adapter

import (
	"context"
	"time"
)

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// Invoice describes a platform-currency checkout the bot asks Telegram to
// open. Payload round-trips through the platform and comes back on the
// success callback.
type Invoice struct {
	Title       string
	Description string
	Payload     string
	Label       string
	StarsAmount int64
}

// Notifier is the outbound messaging surface. Failures are non-fatal to
// every caller; batch operations log and continue per recipient.
type Notifier interface {
	SendMessage(ctx context.Context, tgID int64, text string) error
	SendButtons(ctx context.Context, tgID int64, text string, rows [][]InlineButton) error
	// SendPhoto / SendDocument relay an existing platform file by id.
	SendPhoto(ctx context.Context, tgID int64, fileID, caption string) error
	SendDocument(ctx context.Context, tgID int64, fileID, caption string) error
	SendInvoice(ctx context.Context, tgID int64, inv Invoice) error
}

// GroupGate controls membership of the gated group.
type GroupGate interface {
	// CreateInviteLink issues a single-use invite that expires at the given time.
	CreateInviteLink(ctx context.Context, name string, expireAt time.Time) (string, error)
	// RemoveMember kicks the user; the bool reports whether removal succeeded.
	RemoveMember(ctx context.Context, tgID int64) (bool, error)
	IsMember(ctx context.Context, tgID int64) (bool, error)
}
