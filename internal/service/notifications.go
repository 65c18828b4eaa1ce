package service

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/rs/zerolog"
)

type communicationWriter interface {
	Create(ctx context.Context, c *model.CommunicationLog) error
}

// Notifications sends messages through the configured notifier and keeps
// a communication log of each one. Delivery failures never fail the
// business operation that triggered them.
type Notifications struct {
	notifier notify.Notifier
	logs     communicationWriter
	clock    Clock
	log      zerolog.Logger
}

// NewNotifications creates a Notifications.
func NewNotifications(notifier notify.Notifier, logs communicationWriter, clock Clock, log zerolog.Logger) *Notifications {
	return &Notifications{
		notifier: notifier,
		logs:     logs,
		clock:    clock,
		log:      log.With().Str("component", "notifications").Logger(),
	}
}

// Send delivers msg and records it. Errors are logged at warn and dropped.
func (n *Notifications) Send(ctx context.Context, msg notify.Message) {
	msg, err := notify.Prepare(msg)
	if err != nil {
		n.log.Warn().Err(err).Str("template", msg.Template).Msg("Notification skipped")
		return
	}

	entry := &model.CommunicationLog{
		Subject:       msg.Subject,
		Message:       msg.Body,
		Channel:       model.ChannelEmail,
		Recipients:    append(append([]string{}, msg.To...), msg.Cc...),
		ReferenceType: msg.ReferenceType,
		Status:        model.CommSent,
	}
	if msg.ReferenceID != 0 {
		entry.ReferenceID = intPtr(msg.ReferenceID)
	}

	if err := n.notifier.Send(ctx, msg); err != nil {
		n.log.Warn().Err(err).Str("message_id", msg.ID).Strs("to", msg.To).Msg("Notification failed")
		entry.Status = model.CommFailed
		entry.ErrorMessage = err.Error()
	} else {
		entry.SentAt = timePtr(n.clock())
	}

	if n.logs == nil {
		return
	}
	if err := n.logs.Create(ctx, entry); err != nil {
		n.log.Warn().Err(err).Str("message_id", msg.ID).Msg("Communication log not recorded")
	}
}

type approverLookup interface {
	EmailsWithPermission(ctx context.Context, code string) ([]string, error)
}

// Approvers resolves who must approve a workflow step: staff users holding
// the permission plus the configured approver addresses.
type Approvers struct {
	admins approverLookup
	static []string
}

// NewApprovers creates an Approvers. admins may be nil.
func NewApprovers(admins approverLookup, static []string) *Approvers {
	return &Approvers{admins: admins, static: static}
}

// For returns the approver addresses for perm, with extra appended.
// Lookup failures fall back to the configured addresses.
func (a *Approvers) For(ctx context.Context, perm model.Permission, extra ...string) []string {
	out := append([]string{}, a.static...)
	if a.admins != nil {
		if emails, err := a.admins.EmailsWithPermission(ctx, string(perm)); err == nil {
			out = append(out, emails...)
		}
	}
	for _, e := range extra {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
