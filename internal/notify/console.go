package notify

import (
	"context"
	"log"
)

// ConsoleNotifier logs messages instead of sending them.  Used in dev
// and whenever no SendGrid key is configured.
type ConsoleNotifier struct{}

func NewConsoleNotifier() *ConsoleNotifier { return &ConsoleNotifier{} }

func (n *ConsoleNotifier) Send(_ context.Context, msg Message) error {
	log.Printf("notify: to=%s <%s> subject=%q body=%q", msg.ToName, msg.ToEmail, msg.Subject, msg.Body)
	return nil
}
