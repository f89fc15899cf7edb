package session

import (
	"regexp"

	"github.com/surfwright/surfwright/internal/errs"
	"github.com/surfwright/surfwright/internal/state"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
var targetIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// ValidSessionID reports whether id matches the session id shape (spec §3).
func ValidSessionID(id string) bool { return id != "" && sessionIDPattern.MatchString(id) }

// ValidTargetID reports whether id matches the target id shape (spec §3).
func ValidTargetID(id string) bool { return id != "" && targetIDPattern.MatchString(id) }

// ResolveHint carries the caller-supplied hints for resolveForAction.
type ResolveHint struct {
	SessionID        string
	TargetID         string
	AllowImplicitNew bool
}

// ResolveResult is the outcome of resolving a session for an action.
type ResolveResult struct {
	SessionID string
	TargetID  string // set when resolution was target-inferred
}

// ResolveForAction implements spec §4.2's precedence: explicit sessionId >
// target-inferred > implicit (active) > implicit-new (only if allowed) >
// E_SESSION_REQUIRED. Handle/type mismatches (a sessionId that is actually a
// known targetId, or vice versa) yield E_HANDLE_TYPE_MISMATCH with a
// recovery hint naming the corrected handle.
func ResolveForAction(st state.SurfwrightState, hint ResolveHint) (ResolveResult, error) {
	if hint.SessionID != "" {
		if _, ok := st.Sessions[hint.SessionID]; ok {
			return ResolveResult{SessionID: hint.SessionID}, nil
		}
		if _, ok := st.Targets[hint.SessionID]; ok {
			return ResolveResult{}, errs.New(errs.CodeHandleTypeMismatch,
				"%q is a target id, not a session id", hint.SessionID).
				WithRecovery(map[string]any{"correctedHandle": hint.SessionID, "correctedKind": "targetId"})
		}
		return ResolveResult{}, errs.New(errs.CodeSessionNotFound, "session %q not found", hint.SessionID)
	}

	if hint.TargetID != "" {
		tgt, ok := st.Targets[hint.TargetID]
		if ok {
			return ResolveResult{SessionID: tgt.SessionID, TargetID: hint.TargetID}, nil
		}
		if _, ok := st.Sessions[hint.TargetID]; ok {
			return ResolveResult{}, errs.New(errs.CodeHandleTypeMismatch,
				"%q is a session id, not a target id", hint.TargetID).
				WithRecovery(map[string]any{"correctedHandle": hint.TargetID, "correctedKind": "sessionId"})
		}
		return ResolveResult{}, errs.New(errs.CodeTargetNotFound, "target %q not found", hint.TargetID)
	}

	if st.ActiveSessionID != "" {
		if _, ok := st.Sessions[st.ActiveSessionID]; ok {
			return ResolveResult{SessionID: st.ActiveSessionID}, nil
		}
	}

	if hint.AllowImplicitNew {
		return ResolveResult{SessionID: "s-default"}, nil
	}

	return ResolveResult{}, errs.New(errs.CodeSessionRequired, "no session specified and no active session set")
}
