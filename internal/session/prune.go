package session

import (
	"context"
	"os"
	"time"

	"github.com/surfwright/surfwright/internal/state"
)

// PruneOptions configures session prune (spec §4.2).
type PruneOptions struct {
	// ManagedUnreachableGrace is how long a managed session may remain
	// unreachable (consecutive-failure streak) before it is pruned.
	ManagedUnreachableGrace time.Duration

	// DropManagedUnreachable forces eviction of any managed session
	// currently marked unreachable, ignoring the grace window.
	DropManagedUnreachable bool
}

// PruneReport reports per-reason counts, per spec §4.2.
type PruneReport struct {
	LeaseExpired        int `json:"leaseExpired"`
	AttachedUnreachable  int `json:"attachedUnreachable"`
	ManagedUnreachable   int `json:"managedUnreachable"`
	StalePIDsRepaired    int `json:"stalePidsRepaired"`
}

// Prune implements spec §4.2's prune: removes sessions by lease expiry,
// attached-unreachable, managed-unreachable grace, or an explicit drop
// flag; repairs stale pid fields.
func (m *Manager) Prune(ctx context.Context, opts PruneOptions) (PruneReport, error) {
	return state.Update(m.store, func(st *state.SurfwrightState) PruneReport {
		return pruneLocked(ctx, st, opts, time.Now().UTC())
	})
}

func pruneLocked(ctx context.Context, st *state.SurfwrightState, opts PruneOptions, now time.Time) PruneReport {
	var report PruneReport

	for id, sess := range st.Sessions {
		if sess.LeaseExpiresAt != nil && now.After(*sess.LeaseExpiresAt) {
			delete(st.Sessions, id)
			report.LeaseExpired++
			continue
		}

		probe := Probe(ctx, sess.CDPOrigin, 300*time.Millisecond, 0)
		if probe.Reachable {
			sess.ManagedUnreachableSince = nil
			sess.ManagedUnreachableCount = 0
			st.Sessions[id] = sess
			continue
		}

		if sess.Kind == state.SessionKindAttached {
			delete(st.Sessions, id)
			report.AttachedUnreachable++
			continue
		}

		if sess.ManagedUnreachableSince == nil {
			sess.ManagedUnreachableSince = &now
		}
		sess.ManagedUnreachableCount++
		st.Sessions[id] = sess

		graceElapsed := now.Sub(*sess.ManagedUnreachableSince) >= opts.ManagedUnreachableGrace
		if opts.DropManagedUnreachable || graceElapsed {
			delete(st.Sessions, id)
			report.ManagedUnreachable++
		}
	}

	for id, sess := range st.Sessions {
		if sess.Kind == state.SessionKindManaged && sess.BrowserPID != 0 && !pidAlive(sess.BrowserPID) {
			sess.BrowserPID = 0
			st.Sessions[id] = sess
			report.StalePIDsRepaired++
		}
	}

	return report
}

// Clear implements spec §4.2's clear: removes all sessions from state;
// unless keepProcesses is set, attempts to terminate managed processes
// best-effort.
func (m *Manager) Clear(keepProcesses bool) error {
	_, err := state.Update(m.store, func(st *state.SurfwrightState) struct{} {
		if !keepProcesses {
			for _, sess := range st.Sessions {
				if sess.Kind == state.SessionKindManaged && sess.BrowserPID != 0 {
					if proc, err := os.FindProcess(sess.BrowserPID); err == nil {
						_ = proc.Kill()
					}
				}
			}
		}
		st.Sessions = map[string]state.Session{}
		if st.ActiveSessionID != "" {
			st.ActiveSessionID = ""
		}
		return struct{}{}
	})
	return err
}
