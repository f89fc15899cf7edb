package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/surfwright/surfwright/internal/state"
)

func TestPruneLockedRemovesExpiredLease(t *testing.T) {
	st := state.Empty()
	past := time.Now().UTC().Add(-time.Minute)
	st.Sessions["s-1"] = state.Session{
		SessionID:      "s-1",
		Kind:           state.SessionKindAttached,
		CDPOrigin:      "http://127.0.0.1:1", // unreachable by construction
		LeaseExpiresAt: &past,
	}

	report := pruneLocked(context.Background(), &st, PruneOptions{}, time.Now().UTC())
	assert.Equal(t, 1, report.LeaseExpired)
	assert.NotContains(t, st.Sessions, "s-1")
}

func TestPruneLockedRemovesUnreachableAttached(t *testing.T) {
	st := state.Empty()
	st.Sessions["s-1"] = state.Session{
		SessionID: "s-1",
		Kind:      state.SessionKindAttached,
		CDPOrigin: "http://127.0.0.1:1",
	}

	report := pruneLocked(context.Background(), &st, PruneOptions{}, time.Now().UTC())
	assert.Equal(t, 1, report.AttachedUnreachable)
	assert.NotContains(t, st.Sessions, "s-1")
}

func TestPruneLockedManagedUnreachableRespectsGrace(t *testing.T) {
	st := state.Empty()
	st.Sessions["s-1"] = state.Session{
		SessionID: "s-1",
		Kind:      state.SessionKindManaged,
		CDPOrigin: "http://127.0.0.1:1",
	}

	report := pruneLocked(context.Background(), &st, PruneOptions{ManagedUnreachableGrace: time.Hour}, time.Now().UTC())
	assert.Equal(t, 0, report.ManagedUnreachable)
	assert.Contains(t, st.Sessions, "s-1")
	assert.Equal(t, 1, st.Sessions["s-1"].ManagedUnreachableCount)
}

func TestPruneLockedDropManagedUnreachableForces(t *testing.T) {
	st := state.Empty()
	st.Sessions["s-1"] = state.Session{
		SessionID: "s-1",
		Kind:      state.SessionKindManaged,
		CDPOrigin: "http://127.0.0.1:1",
	}

	report := pruneLocked(context.Background(), &st, PruneOptions{DropManagedUnreachable: true}, time.Now().UTC())
	assert.Equal(t, 1, report.ManagedUnreachable)
	assert.NotContains(t, st.Sessions, "s-1")
}
