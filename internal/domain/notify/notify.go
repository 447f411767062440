// internal/domain/notify/notify.go
package notify

import "context"

// Email is one outbound message for the email transport.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// EmailSender delivers a single email. Per-recipient failures are
// reported to the caller, which decides whether they are fatal; batch
// senders tally a final sent count instead of aborting.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

// Push is one outbound push notification batch.
type Push struct {
	PlayerIDs []string
	Title     string
	Message   string
	Data      map[string]string
}

// PushSender dispatches a push notification. Failures are logged by
// callers, never retried by this core.
type PushSender interface {
	Send(ctx context.Context, push Push) error
}
