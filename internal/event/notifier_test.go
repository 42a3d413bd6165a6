package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/planner-bot/internal/identity"
	"github.com/xaenox/planner-bot/internal/models"
	"github.com/xaenox/planner-bot/internal/scheduler"
	"github.com/xaenox/planner-bot/internal/storage"
	"github.com/xaenox/planner-bot/internal/testutil"
	"go.uber.org/zap"
)

const chatID = int64(-1001)

type notifierFixture struct {
	store    *Store
	notifier *Notifier
	sched    *scheduler.Scheduler
	clock    *testutil.FakeClock
	sink     *testutil.RecordingSink
	resolver *identity.Resolver
	journal  *storage.MemoryJournal
}

func newNotifierFixture(t *testing.T) *notifierFixture {
	t.Helper()
	clock := testutil.NewFakeClock(t0)
	sched := scheduler.New(clock, zap.NewNop())
	resolver := identity.NewResolver()
	sink := testutil.NewRecordingSink()
	journal := storage.NewMemoryJournal()
	store := NewStore(sched, resolver)
	notifier := NewNotifier(store, sink, zap.NewNop(), NotifierOptions{
		Journal:  journal,
		Location: time.UTC,
	})
	return &notifierFixture{
		store:    store,
		notifier: notifier,
		sched:    sched,
		clock:    clock,
		sink:     sink,
		resolver: resolver,
		journal:  journal,
	}
}

func TestSchedule_BroadcastAndPersonalForAcceptedResolved(t *testing.T) {
	f := newNotifierFixture(t)
	f.resolver.Register(100, "alice", "Alice")

	e := f.store.Create(chatID, 1, t0.Add(time.Hour), "retro", []string{"alice", "bob"})
	_, err := f.store.ResolveInvites(e.ID)
	require.NoError(t, err)
	_, err = f.store.UpdateRSVP(e.ID, "alice", 100, models.RSVPAccepted)
	require.NoError(t, err)
	require.NoError(t, f.notifier.Schedule(e.ID))

	f.clock.Advance(59 * time.Minute)
	assert.Empty(t, f.sink.Sent())

	f.clock.Advance(time.Minute)
	broadcast := f.sink.SentTo(chatID)
	require.Len(t, broadcast, 1)
	assert.Contains(t, broadcast[0].Text, "It's time for the event!")
	assert.Contains(t, broadcast[0].Text, "What: retro")

	personal := f.sink.SentTo(100)
	require.Len(t, personal, 1)
	assert.Contains(t, personal[0].Text, "Event reminder")
	assert.Len(t, f.sink.Sent(), 2)

	got, err := f.store.Get(e.ID)
	require.NoError(t, err)
	assert.True(t, got.Fired)

	f.clock.Advance(24 * time.Hour)
	assert.Len(t, f.sink.Sent(), 2)
}

func TestSchedule_ResolvedButNotAcceptedGetsNoPersonal(t *testing.T) {
	for _, status := range []models.RSVPStatus{models.RSVPPending, models.RSVPDeclined} {
		t.Run(string(status), func(t *testing.T) {
			f := newNotifierFixture(t)
			f.resolver.Register(100, "alice", "")

			e := f.store.Create(chatID, 1, t0.Add(time.Hour), "retro", []string{"alice", "bob"})
			_, err := f.store.ResolveInvites(e.ID)
			require.NoError(t, err)
			if status == models.RSVPDeclined {
				_, err = f.store.UpdateRSVP(e.ID, "alice", 100, status)
				require.NoError(t, err)
			}
			require.NoError(t, f.notifier.Schedule(e.ID))

			f.clock.Advance(time.Hour)
			assert.Len(t, f.sink.SentTo(chatID), 1)
			assert.Empty(t, f.sink.SentTo(100))
			assert.Len(t, f.sink.Sent(), 1)
		})
	}
}

func TestSchedule_CreatorExcludedFromPersonalPass(t *testing.T) {
	f := newNotifierFixture(t)

	e := f.store.Create(chatID, 1, t0.Add(time.Hour), "retro", []string{"creator"})
	_, err := f.store.UpdateRSVP(e.ID, "creator", 1, models.RSVPAccepted)
	require.NoError(t, err)
	require.NoError(t, f.notifier.Schedule(e.ID))

	f.clock.Advance(time.Hour)
	assert.Len(t, f.sink.SentTo(chatID), 1)
	assert.Empty(t, f.sink.SentTo(1))
}

func TestSchedule_TwiceLeavesOneLiveTimer(t *testing.T) {
	f := newNotifierFixture(t)
	e := f.store.Create(chatID, 1, t0.Add(time.Hour), "retro", nil)

	require.NoError(t, f.notifier.Schedule(e.ID))
	require.NoError(t, f.notifier.Schedule(e.ID))

	assert.Equal(t, 1, f.sched.Pending())
	assert.Equal(t, 1, f.clock.Waiting())
	assert.True(t, f.notifier.Armed(e.ID))

	f.clock.Advance(2 * time.Hour)
	assert.Len(t, f.sink.SentTo(chatID), 1)
}

func TestSchedule_EditEarlierKeepsRSVP(t *testing.T) {
	f := newNotifierFixture(t)
	f.resolver.Register(100, "alice", "")

	e := f.store.Create(chatID, 1, t0.Add(time.Hour), "retro", []string{"alice"})
	_, err := f.store.UpdateRSVP(e.ID, "alice", 100, models.RSVPAccepted)
	require.NoError(t, err)
	require.NoError(t, f.notifier.Schedule(e.ID))

	edited, err := f.store.Edit(e.ID, 1, t0.Add(55*time.Minute), "")
	require.NoError(t, err)
	require.NoError(t, f.notifier.Schedule(e.ID))
	assert.Equal(t, models.RSVPAccepted, edited.Invites[0].Status)
	assert.Equal(t, 1, f.sched.Pending())

	f.clock.Advance(55 * time.Minute)
	assert.Len(t, f.sink.SentTo(chatID), 1)
	assert.Len(t, f.sink.SentTo(100), 1)

	f.clock.Advance(5 * time.Minute)
	assert.Len(t, f.sink.Sent(), 2)

	got, err := f.store.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RSVPAccepted, got.Invites[0].Status)
}

func TestEdit_OldTimerCannotFireBeforeReschedule(t *testing.T) {
	f := newNotifierFixture(t)

	e := f.store.Create(chatID, 1, t0.Add(time.Hour), "retro", nil)
	require.NoError(t, f.notifier.Schedule(e.ID))

	_, err := f.store.Edit(e.ID, 1, t0.Add(2*time.Hour), "")
	require.NoError(t, err)
	assert.False(t, f.notifier.Armed(e.ID))
	assert.Equal(t, 0, f.sched.Pending())

	// the original start time passes before the notification is re-armed
	f.clock.Advance(time.Hour)
	assert.Empty(t, f.sink.Sent())

	got, err := f.store.Get(e.ID)
	require.NoError(t, err)
	assert.False(t, got.Fired)

	require.NoError(t, f.notifier.Schedule(e.ID))
	f.clock.Advance(time.Hour)

	sent := f.sink.SentTo(chatID)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "When: 2025-12-01 11:00")
}

func TestSchedule_FireUsesCurrentState(t *testing.T) {
	f := newNotifierFixture(t)

	e := f.store.Create(chatID, 1, t0.Add(time.Hour), "old title", nil)
	require.NoError(t, f.notifier.Schedule(e.ID))

	_, err := f.store.UpdateRSVP(e.ID, "late_joiner", 300, models.RSVPAccepted)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	assert.Contains(t, f.sink.SentTo(chatID)[0].Text, "@late_joiner")
	assert.Len(t, f.sink.SentTo(300), 1)
}

func TestSchedule_DeleteArmedEventNeverNotifies(t *testing.T) {
	f := newNotifierFixture(t)

	e := f.store.Create(chatID, 1, t0.Add(time.Hour), "retro", nil)
	require.NoError(t, f.notifier.Schedule(e.ID))

	_, err := f.store.Delete(e.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.sched.Pending())

	f.clock.Advance(2 * time.Hour)
	assert.Empty(t, f.sink.Sent())
}

func TestSchedule_WithinGraceCancelsPrevious(t *testing.T) {
	f := newNotifierFixture(t)

	e := f.store.Create(chatID, 1, t0.Add(time.Hour), "retro", nil)
	require.NoError(t, f.notifier.Schedule(e.ID))

	_, err := f.store.Edit(e.ID, 1, t0.Add(100*time.Millisecond), "")
	require.NoError(t, err)
	err = f.notifier.Schedule(e.ID)
	assert.ErrorIs(t, err, models.ErrTooLate)
	assert.False(t, f.notifier.Armed(e.ID))

	f.clock.Advance(2 * time.Hour)
	assert.Empty(t, f.sink.Sent())

	got, err := f.store.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(100*time.Millisecond), got.FireAt)
}

func TestSchedule_UnknownEvent(t *testing.T) {
	f := newNotifierFixture(t)

	assert.ErrorIs(t, f.notifier.Schedule(42), models.ErrNotFound)
}

func TestCancel_KeepsEvent(t *testing.T) {
	f := newNotifierFixture(t)

	e := f.store.Create(chatID, 1, t0.Add(time.Hour), "retro", nil)
	require.NoError(t, f.notifier.Schedule(e.ID))
	f.notifier.Cancel(e.ID)
	f.notifier.Cancel(e.ID)

	f.clock.Advance(2 * time.Hour)
	assert.Empty(t, f.sink.Sent())
	_, err := f.store.Get(e.ID)
	assert.NoError(t, err)
}

func TestFire_DeliveryFailureDoesNotStopOthers(t *testing.T) {
	f := newNotifierFixture(t)
	f.sink.FailFor(chatID, errors.New("chat not found"))

	e := f.store.Create(chatID, 1, t0.Add(time.Hour), "retro", []string{"alice"})
	_, err := f.store.UpdateRSVP(e.ID, "alice", 100, models.RSVPAccepted)
	require.NoError(t, err)
	require.NoError(t, f.notifier.Schedule(e.ID))

	f.clock.Advance(time.Hour)
	assert.Len(t, f.sink.SentTo(100), 1)

	got, err := f.store.Get(e.ID)
	require.NoError(t, err)
	assert.True(t, got.Fired)

	journaled, err := f.journal.RecentDeliveries(context.Background(), chatID, 10)
	require.NoError(t, err)
	require.Len(t, journaled, 1)
	assert.Equal(t, models.DeliveryEventBroadcast, journaled[0].Kind)
	assert.True(t, journaled[0].Failed())

	personal, err := f.journal.RecentDeliveries(context.Background(), 100, 10)
	require.NoError(t, err)
	require.Len(t, personal, 1)
	assert.Equal(t, models.DeliveryEventPersonal, personal[0].Kind)
}
