package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Options{Root: t.TempDir(), LockDeadline: time.Second, StaleLockThreshold: 50 * time.Millisecond})
	require.NoError(t, err)
	return s
}

func TestReadMissingFileYieldsEmptyState(t *testing.T) {
	s := newTestStore(t)
	st := s.Read()
	assert.Equal(t, CurrentVersion, st.Version)
	assert.Empty(t, st.Sessions)
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	s := newTestStore(t)

	want := Empty()
	want.Sessions["s-default"] = Session{
		SessionID:  "s-default",
		Kind:       SessionKindManaged,
		Policy:     PolicyPersistent,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
		LastSeenAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.Write(want))

	got := s.Read()
	assert.Equal(t, want.Sessions["s-default"].SessionID, got.Sessions["s-default"].SessionID)
	assert.Equal(t, CurrentVersion, got.Version)
}

func TestWriteIsAtomicNoTempFilesLeftBehind(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write(Empty()))

	entries, err := filepath.Glob(filepath.Join(s.root, "state.*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = filepath.Glob(filepath.Join(s.root, "state.lock"))
	require.NoError(t, err)
	assert.Empty(t, entries, "lock file must be unlinked after Write returns")
}

func TestUpdateMutatesAndPersists(t *testing.T) {
	s := newTestStore(t)

	id, err := Update(s, func(st *SurfwrightState) string {
		id := AllocateSessionID(st, "s")
		st.Sessions[id] = Session{SessionID: id, Kind: SessionKindManaged, CreatedAt: time.Now().UTC(), LastSeenAt: time.Now().UTC()}
		return id
	})
	require.NoError(t, err)
	assert.Equal(t, "s-1", id)

	st := s.Read()
	assert.Contains(t, st.Sessions, "s-1")
	assert.Equal(t, 2, st.NextSessionOrdinal)
}

func TestAllocateIDsAreMonotonicAndCollisionFree(t *testing.T) {
	st := Empty()
	st.Captures["c-1"] = NetworkCapture{CaptureID: "c-1"}
	st.Captures["c-3"] = NetworkCapture{CaptureID: "c-3"}
	st.NextCaptureOrdinal = 1

	id := AllocateCaptureID(&st)
	assert.Equal(t, "c-4", id, "must skip both in-use ids 1 and 3")
	assert.Equal(t, 5, st.NextCaptureOrdinal)
}

func TestNormalizeDropsMismatchedKeys(t *testing.T) {
	st := Empty()
	st.Targets["t-wrong"] = Target{TargetID: "t-real", SessionID: "s-1"}

	got := normalize(st)
	assert.Empty(t, got.Targets)
}

func TestReconcileEvictsOrphanTargets(t *testing.T) {
	st := Empty()
	st.Sessions["s-1"] = Session{SessionID: "s-1"}
	st.Targets["t-1"] = Target{TargetID: "t-1", SessionID: "s-1"}
	st.Targets["t-2"] = Target{TargetID: "t-2", SessionID: "s-missing"}

	report := Reconcile(&st, nil)
	assert.Equal(t, 1, report.OrphanTargetsRemoved)
	assert.Contains(t, st.Targets, "t-1")
	assert.NotContains(t, st.Targets, "t-2")
}

func TestReconcileIsIdempotent(t *testing.T) {
	st := Empty()
	st.Sessions["s-1"] = Session{SessionID: "s-1"}
	st.Targets["t-2"] = Target{TargetID: "t-2", SessionID: "s-missing"}

	first := Reconcile(&st, nil)
	second := Reconcile(&st, nil)

	assert.Equal(t, 1, first.OrphanTargetsRemoved)
	assert.Equal(t, 0, second.OrphanTargetsRemoved)
}

func TestMigrateV1DocumentUpgradesToCurrent(t *testing.T) {
	raw := []byte(`{
		"version": 1,
		"sessions": {"s-1": {"sessionId": "s-1", "kind": "managed"}},
		"targets": {}
	}`)

	st, err := migrate(raw)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, st.Version)
	assert.Contains(t, st.Sessions, "s-1")
	assert.NotNil(t, st.Captures)
	assert.NotNil(t, st.Artifacts)
}

func TestMigrateUnknownFutureVersionYieldsEmpty(t *testing.T) {
	raw := []byte(`{"version": 999}`)
	st, err := migrate(raw)
	require.NoError(t, err)
	assert.Equal(t, Empty().Sessions, st.Sessions)
}
