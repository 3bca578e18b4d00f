package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edgard/remindbot/internal/schedule"
)

// Notification kinds passed to a Phraser.
const (
	KindPastDue  = "past_due"
	KindUpcoming = "upcoming"
)

// Phraser rewrites a drafted notification. Implementations must keep the
// task name and date intact.
type Phraser interface {
	PhraseReminder(ctx context.Context, kind, title, draft string) (string, error)
}

// Templates are the fmt formats of the two notification kinds.
type Templates struct {
	PastDueFmt  string // one %s: title
	UpcomingFmt string // two %s: title, due date
	DateLayout  string
}

// Composer builds notification texts from templates, optionally passing
// them through a Phraser.
type Composer struct {
	templates Templates
	phraser   Phraser
	logger    *slog.Logger
}

// NewComposer creates a Composer. phraser may be nil.
func NewComposer(templates Templates, phraser Phraser, logger *slog.Logger) *Composer {
	if templates.DateLayout == "" {
		templates.DateLayout = schedule.DisplayLayout
	}
	return &Composer{
		templates: templates,
		phraser:   phraser,
		logger:    logger.With("component", "composer"),
	}
}

// PastDue returns the text announcing that a task is due.
func (c *Composer) PastDue(ctx context.Context, title string) string {
	draft := fmt.Sprintf(c.templates.PastDueFmt, title)
	return c.phrase(ctx, KindPastDue, title, draft)
}

// Upcoming returns the text of a reminder for a task due on due.
func (c *Composer) Upcoming(ctx context.Context, title string, due schedule.Date) string {
	draft := fmt.Sprintf(c.templates.UpcomingFmt, title, due.Format(c.templates.DateLayout))
	return c.phrase(ctx, KindUpcoming, title, draft)
}

func (c *Composer) phrase(ctx context.Context, kind, title, draft string) string {
	if c.phraser == nil {
		return draft
	}

	text, err := c.phraser.PhraseReminder(ctx, kind, title, draft)
	if err != nil {
		c.logger.WarnContext(ctx, "Falling back to template text", "kind", kind, "error", err)
		return draft
	}
	if text = strings.TrimSpace(text); text == "" || !strings.Contains(text, title) {
		c.logger.DebugContext(ctx, "Phrased text dropped the task name, using template", "kind", kind)
		return draft
	}
	return text
}
