package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xaenox/planner-bot/internal/models"
)

func TestFormat(t *testing.T) {
	e := models.Event{
		ID:     3,
		Title:  "team dinner",
		FireAt: time.Date(2025, 12, 10, 19, 30, 0, 0, time.UTC),
		Invites: []models.Invite{
			{Handle: "zoe", Status: models.RSVPAccepted},
			{Handle: "adam", Status: models.RSVPDeclined},
			{Handle: "mia", Status: models.RSVPPending},
		},
	}

	want := "📅 Event #3\n" +
		"When: 2025-12-10 19:30\n" +
		"What: team dinner\n\n" +
		"Participants:\n" +
		"✅ @zoe\n❌ @adam\n⏳ @mia"

	got := Format(e, time.UTC)
	assert.Equal(t, want, got)
	assert.Equal(t, got, Format(e, time.UTC))
}

func TestFormat_NoInvitees(t *testing.T) {
	e := models.Event{ID: 1, Title: "solo", FireAt: time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)}

	assert.Contains(t, Format(e, time.UTC), "Participants:\nNo invitees")
}

func TestFormat_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	e := models.Event{ID: 1, FireAt: time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)}

	assert.Contains(t, Format(e, loc), "When: 2025-01-02 13:00")
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "✅ going", StatusLabel(models.RSVPAccepted))
	assert.Equal(t, "❌ not going", StatusLabel(models.RSVPDeclined))
	assert.Equal(t, "⏳ no answer yet", StatusLabel(models.RSVPPending))
}
