package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/planner-bot/internal/models"
)

// TimeLayout is how event and reminder times are shown to users.
const TimeLayout = "2006-01-02 15:04"

// StatusMark returns the emoji used for an invite status.
func StatusMark(status models.RSVPStatus) string {
	switch status {
	case models.RSVPAccepted:
		return "✅"
	case models.RSVPDeclined:
		return "❌"
	default:
		return "⏳"
	}
}

// StatusLabel describes an invite status in words.
func StatusLabel(status models.RSVPStatus) string {
	switch status {
	case models.RSVPAccepted:
		return "✅ going"
	case models.RSVPDeclined:
		return "❌ not going"
	default:
		return "⏳ no answer yet"
	}
}

// Format renders an event card. Invites are listed in invitation order.
func Format(e models.Event, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 Event #%d\n", e.ID)
	fmt.Fprintf(&b, "When: %s\n", e.FireAt.In(loc).Format(TimeLayout))
	fmt.Fprintf(&b, "What: %s\n\n", e.Title)
	b.WriteString("Participants:\n")

	if len(e.Invites) == 0 {
		b.WriteString("No invitees")
		return b.String()
	}
	for i, inv := range e.Invites {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s @%s", StatusMark(inv.Status), inv.Handle)
	}
	return b.String()
}
