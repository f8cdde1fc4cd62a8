// Package notify delivers booking notifications to students.  The
// consumer hands it fully rendered messages; implementations only
// decide the transport.
package notify

import "context"

// Message is a rendered notification ready for delivery.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Body    string
}

// Notifier sends a message to a single recipient.  Implementations
// must be safe for concurrent use; failures are reported to the
// caller, never retried here.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
