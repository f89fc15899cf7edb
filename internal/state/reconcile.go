package state

// ReconcileReport summarizes what state reconcile changed.
type ReconcileReport struct {
	OrphanTargetsRemoved int `json:"orphanTargetsRemoved"`
	StalePIDsRepaired    int `json:"stalePidsRepaired"`
}

// Reconcile enforces the invariant "every target's sessionId refers to a
// known session" (spec §3, §8) by evicting orphaned targets, and repairs
// sessions whose recorded browserPid no longer corresponds to a live
// process (pidAlive is injected so this stays pure and testable; the
// session manager supplies the real liveness check).
//
// Reconcile is idempotent: running it twice with no intervening changes
// yields the same state (spec §8 round-trip law), since the second pass
// finds no orphans and no mismatched pids left to repair.
func Reconcile(st *SurfwrightState, pidAlive func(pid int) bool) ReconcileReport {
	var report ReconcileReport

	for id, tgt := range st.Targets {
		if _, ok := st.Sessions[tgt.SessionID]; !ok {
			delete(st.Targets, id)
			report.OrphanTargetsRemoved++
		}
	}

	if pidAlive != nil {
		for id, sess := range st.Sessions {
			if sess.Kind != SessionKindManaged || sess.BrowserPID == 0 {
				continue
			}
			if !pidAlive(sess.BrowserPID) {
				sess.BrowserPID = 0
				st.Sessions[id] = sess
				report.StalePIDsRepaired++
			}
		}
	}

	return report
}
