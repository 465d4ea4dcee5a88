// Package notify delivers opportunity alerts to Telegram and Discord. A
// Notifier filters by event type and holds back delivery during quiet hours.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// Sender is one notification channel.
type Sender interface {
	// Send delivers a Markdown message with a bold title.
	Send(ctx context.Context, title, message string) error
	// Name identifies the sender in logs, e.g. "telegram".
	Name() string
}

// QuietHours is a daily local-time window with no alerts. A window whose
// start is after its end wraps past midnight (22 to 7).
type QuietHours struct {
	Enabled   bool
	StartHour int
	EndHour   int
	Location  *time.Location
}

// Active reports whether t falls inside the window.
func (q QuietHours) Active(t time.Time) bool {
	if !q.Enabled || q.StartHour == q.EndHour {
		return false
	}
	if q.Location != nil {
		t = t.In(q.Location)
	}
	h := t.Hour()
	if q.StartHour < q.EndHour {
		return h >= q.StartHour && h < q.EndHour
	}
	return h >= q.StartHour || h < q.EndHour
}

// Notifier dispatches to every Sender. Notify only forwards allowed event
// types; an empty allow list lets everything through.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	quiet   QuietHours
	format  Formatter
	logger  *slog.Logger
	now     func() time.Time
}

// NewNotifier creates a Notifier.
func NewNotifier(senders []Sender, events []string, quiet QuietHours, format Formatter, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		quiet:   quiet,
		format:  format,
		logger:  logger.With(slog.String("component", "notifier")),
		now:     time.Now,
	}
}

// Alert formats and sends one opportunity.
func (n *Notifier) Alert(ctx context.Context, a domain.Alert) error {
	title, body := n.format.Alert(a)
	return n.Notify(ctx, string(a.Opportunity.Kind), title, body)
}

// CycleFailed reports a failed cycle.
func (n *Notifier) CycleFailed(ctx context.Context, r domain.CycleReport) error {
	title, body := n.format.CycleFailed(r)
	return n.Notify(ctx, EventCycleFailed, title, body)
}

// Notify sends title/message for event unless it is filtered out or quiet
// hours are active.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	if n.quiet.Active(n.now()) {
		n.logger.InfoContext(ctx, "quiet hours, alert held back",
			slog.String("event", event),
			slog.String("title", title),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// dispatch sends to every sender; one failing sender does not stop the
// rest and all failures are returned together.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
