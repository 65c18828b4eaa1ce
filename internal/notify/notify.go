// Package notify delivers outgoing messages (email today) to families and
// staff. Services depend on the Notifier interface only.
package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("message has no recipients")

// Message is one notification. Template, when set, is rendered into
// Subject and Body before delivery.
type Message struct {
	ID            string                 `json:"id"`
	To            []string               `json:"to"`
	Cc            []string               `json:"cc,omitempty"`
	Subject       string                 `json:"subject"`
	Body          string                 `json:"body"`
	Template      string                 `json:"template,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
	ReferenceType string                 `json:"reference_type,omitempty"`
	ReferenceID   int                    `json:"reference_id,omitempty"`
	Attempts      int                    `json:"attempts"`
}

// Notifier sends a message or reports why it could not.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Prepare assigns an ID, drops blank recipients and renders the template.
func Prepare(msg Message) (Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.To = compact(msg.To)
	msg.Cc = compact(msg.Cc)
	if len(msg.To) == 0 {
		return msg, ErrNoRecipients
	}
	if msg.Template != "" && msg.Body == "" {
		subject, body, err := Render(msg.Template, msg.Data)
		if err != nil {
			return msg, err
		}
		if msg.Subject == "" {
			msg.Subject = subject
		}
		msg.Body = body
	}
	return msg, nil
}

func compact(addrs []string) []string {
	seen := make(map[string]bool, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" || seen[strings.ToLower(a)] {
			continue
		}
		seen[strings.ToLower(a)] = true
		out = append(out, a)
	}
	return out
}
