package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/planner-bot/internal/identity"
	"github.com/xaenox/planner-bot/internal/models"
	"github.com/xaenox/planner-bot/internal/scheduler"
	"github.com/xaenox/planner-bot/internal/testutil"
	"go.uber.org/zap"
)

var t0 = time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)

func newStore() (*Store, *identity.Resolver) {
	sched := scheduler.New(testutil.NewFakeClock(t0), zap.NewNop())
	resolver := identity.NewResolver()
	return NewStore(sched, resolver), resolver
}

func TestCreate_InvitesPendingAndDeduplicated(t *testing.T) {
	s, _ := newStore()

	e := s.Create(10, 1, t0.Add(time.Hour), " sync ", []string{"@Alice", "bob", "alice", "", "@"})

	assert.Equal(t, int64(1), e.ID)
	assert.Equal(t, "sync", e.Title)
	require.Len(t, e.Invites, 2)
	assert.Equal(t, models.Invite{Handle: "Alice", Status: models.RSVPPending}, e.Invites[0])
	assert.Equal(t, models.Invite{Handle: "bob", Status: models.RSVPPending}, e.Invites[1])
	assert.False(t, e.Fired)

	second := s.Create(10, 1, t0.Add(time.Hour), "other", nil)
	assert.Equal(t, int64(2), second.ID)
	assert.Empty(t, second.Invites)
}

func TestCreate_ReturnsCopy(t *testing.T) {
	s, _ := newStore()

	e := s.Create(10, 1, t0.Add(time.Hour), "sync", []string{"alice"})
	e.Invites[0].Status = models.RSVPAccepted

	stored, err := s.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RSVPPending, stored.Invites[0].Status)
}

func TestUpdateRSVP_Transitions(t *testing.T) {
	s, _ := newStore()
	e := s.Create(10, 1, t0.Add(time.Hour), "sync", []string{"alice"})

	steps := []models.RSVPStatus{
		models.RSVPAccepted,
		models.RSVPDeclined,
		models.RSVPAccepted,
	}
	for _, status := range steps {
		got, err := s.UpdateRSVP(e.ID, "alice", 100, status)
		require.NoError(t, err)
		require.Len(t, got.Invites, 1)
		assert.Equal(t, status, got.Invites[0].Status)
		assert.Equal(t, int64(100), got.Invites[0].UserID)
	}

	fresh := s.Create(10, 1, t0.Add(time.Hour), "other", []string{"bob"})
	got, err := s.UpdateRSVP(fresh.ID, "bob", 200, models.RSVPDeclined)
	require.NoError(t, err)
	assert.Equal(t, models.RSVPDeclined, got.Invites[0].Status)
}

func TestUpdateRSVP_RejectsInvalidStatus(t *testing.T) {
	s, _ := newStore()
	e := s.Create(10, 1, t0.Add(time.Hour), "sync", []string{"alice"})

	for _, status := range []models.RSVPStatus{models.RSVPPending, "maybe", ""} {
		_, err := s.UpdateRSVP(e.ID, "alice", 100, status)
		assert.ErrorIs(t, err, models.ErrInvalidStatus)
	}

	got, err := s.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RSVPPending, got.Invites[0].Status)
	assert.Zero(t, got.Invites[0].UserID)
}

func TestUpdateRSVP_Idempotent(t *testing.T) {
	s, _ := newStore()
	e := s.Create(10, 1, t0.Add(time.Hour), "sync", []string{"alice"})

	first, err := s.UpdateRSVP(e.ID, "carol", 300, models.RSVPAccepted)
	require.NoError(t, err)
	second, err := s.UpdateRSVP(e.ID, "carol", 300, models.RSVPAccepted)
	require.NoError(t, err)

	assert.Len(t, second.Invites, len(first.Invites))
	assert.Equal(t, first.Invites, second.Invites)
}

func TestUpdateRSVP_UserIDTakesPrecedence(t *testing.T) {
	s, _ := newStore()
	e := s.Create(10, 1, t0.Add(time.Hour), "sync", []string{"alice"})

	_, err := s.UpdateRSVP(e.ID, "alice", 100, models.RSVPAccepted)
	require.NoError(t, err)

	got, err := s.UpdateRSVP(e.ID, "ALICE", 100, models.RSVPDeclined)
	require.NoError(t, err)
	require.Len(t, got.Invites, 1)
	assert.Equal(t, models.RSVPDeclined, got.Invites[0].Status)

	// Handle changed since, the numeric identity still finds the invite.
	got, err = s.UpdateRSVP(e.ID, "alice_renamed", 100, models.RSVPAccepted)
	require.NoError(t, err)
	require.Len(t, got.Invites, 1)
	assert.Equal(t, "alice", got.Invites[0].Handle)
	assert.Equal(t, models.RSVPAccepted, got.Invites[0].Status)
}

func TestUpdateRSVP_UninvitedResponderJoins(t *testing.T) {
	s, _ := newStore()
	e := s.Create(10, 1, t0.Add(time.Hour), "sync", []string{"alice"})

	got, err := s.UpdateRSVP(e.ID, "@dave", 400, models.RSVPAccepted)
	require.NoError(t, err)
	require.Len(t, got.Invites, 2)
	assert.Equal(t, models.Invite{Handle: "dave", UserID: 400, Status: models.RSVPAccepted}, got.Invites[1])
}

func TestUpdateRSVP_NoHandleNoMatch(t *testing.T) {
	s, _ := newStore()
	e := s.Create(10, 1, t0.Add(time.Hour), "sync", []string{"alice"})

	_, err := s.UpdateRSVP(e.ID, "", 500, models.RSVPAccepted)
	assert.ErrorIs(t, err, models.ErrNotInvited)

	got, err := s.Get(e.ID)
	require.NoError(t, err)
	assert.Len(t, got.Invites, 1)
}

func TestUpdateRSVP_ResolvedIdentityNeverRewritten(t *testing.T) {
	s, _ := newStore()
	e := s.Create(10, 1, t0.Add(time.Hour), "sync", []string{"alice"})

	_, err := s.UpdateRSVP(e.ID, "alice", 100, models.RSVPAccepted)
	require.NoError(t, err)

	_, err = s.UpdateRSVP(e.ID, "alice", 999, models.RSVPDeclined)
	assert.ErrorIs(t, err, models.ErrNotInvited)

	got, err := s.Get(e.ID)
	require.NoError(t, err)
	require.Len(t, got.Invites, 1)
	assert.Equal(t, int64(100), got.Invites[0].UserID)
	assert.Equal(t, models.RSVPAccepted, got.Invites[0].Status)
}

func TestUpdateRSVP_UnknownEvent(t *testing.T) {
	s, _ := newStore()

	_, err := s.UpdateRSVP(77, "alice", 1, models.RSVPAccepted)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestResolveInvites(t *testing.T) {
	s, resolver := newStore()
	resolver.Register(100, "Alice", "Alice")
	e := s.Create(10, 1, t0.Add(time.Hour), "sync", []string{"alice", "bob"})

	got, err := s.ResolveInvites(e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Invites[0].UserID)
	assert.Zero(t, got.Invites[1].UserID)

	// Bob shows up later; a second pass picks him up. Alice re-registering
	// under another id must not rewrite her invite.
	resolver.Register(200, "bob", "")
	resolver.Register(101, "alice", "")
	got, err = s.ResolveInvites(e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Invites[0].UserID)
	assert.Equal(t, int64(200), got.Invites[1].UserID)
}

func TestEdit_CreatorOnly(t *testing.T) {
	s, _ := newStore()
	e := s.Create(10, 1, t0.Add(time.Hour), "sync", []string{"alice"})
	_, err := s.UpdateRSVP(e.ID, "alice", 100, models.RSVPAccepted)
	require.NoError(t, err)

	_, err = s.Edit(e.ID, 2, t0.Add(2*time.Hour), "hijack")
	assert.ErrorIs(t, err, models.ErrForbidden)

	got, err := s.Edit(e.ID, 1, t0.Add(2*time.Hour), "")
	require.NoError(t, err)
	assert.Equal(t, "sync", got.Title)
	assert.Equal(t, t0.Add(2*time.Hour), got.FireAt)
	assert.Equal(t, models.RSVPAccepted, got.Invites[0].Status)

	_, err = s.Edit(99, 1, t0, "x")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteBy(t *testing.T) {
	s, _ := newStore()
	e := s.Create(10, 1, t0.Add(time.Hour), "sync", nil)

	_, err := s.DeleteBy(e.ID, 2)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = s.Get(e.ID)
	require.NoError(t, err)

	deleted, err := s.DeleteBy(e.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, e.ID, deleted.ID)
	assert.Empty(t, s.ListForChat(10))

	_, err = s.DeleteBy(e.ID, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSetCreatorMessage(t *testing.T) {
	s, _ := newStore()
	e := s.Create(10, 1, t0.Add(time.Hour), "sync", nil)

	require.NoError(t, s.SetCreatorMessage(e.ID, 555))
	got, err := s.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, 555, got.CreatorMessageID)

	assert.ErrorIs(t, s.SetCreatorMessage(99, 1), models.ErrNotFound)
}

func TestListForIdentity(t *testing.T) {
	s, _ := newStore()
	own := s.Create(10, 1, t0.Add(time.Hour), "mine, nobody invited", nil)
	invited := s.Create(20, 2, t0.Add(2*time.Hour), "invited", []string{"Alice"})
	s.Create(30, 3, t0.Add(time.Hour), "not mine", []string{"bob"})

	got := s.ListForIdentity(1, "alice")
	require.Len(t, got, 2)
	assert.Equal(t, own.ID, got[0].ID)
	assert.Equal(t, invited.ID, got[1].ID)

	assert.Empty(t, s.ListForIdentity(4, "carol"))
	assert.Empty(t, s.ListForIdentity(4, ""))
}

func TestListForIdentity_MatchesResolvedUserAfterHandleChange(t *testing.T) {
	s, _ := newStore()
	e := s.Create(10, 1, t0.Add(time.Hour), "sync", []string{"alice"})
	_, err := s.UpdateRSVP(e.ID, "alice", 100, models.RSVPAccepted)
	require.NoError(t, err)

	got := s.ListForIdentity(100, "alice_new")
	require.Len(t, got, 1)
	assert.Equal(t, e.ID, got[0].ID)
}

func TestActive_ExcludesPastSortedByTime(t *testing.T) {
	s, _ := newStore()
	s.Create(10, 1, t0.Add(-time.Hour), "past", nil)
	later := s.Create(10, 1, t0.Add(3*time.Hour), "later", nil)
	sooner := s.Create(10, 1, t0.Add(time.Hour), "sooner", nil)

	got := s.Active(1, "", t0)
	require.Len(t, got, 2)
	assert.Equal(t, sooner.ID, got[0].ID)
	assert.Equal(t, later.ID, got[1].ID)

	assert.Len(t, s.ListForChat(10), 3)
}
