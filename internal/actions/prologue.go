package actions

import (
	"context"
	"time"

	"github.com/surfwright/surfwright/internal/cdp"
	"github.com/surfwright/surfwright/internal/config"
	"github.com/surfwright/surfwright/internal/errs"
	"github.com/surfwright/surfwright/internal/session"
	"github.com/surfwright/surfwright/internal/state"
)

// Runner holds the dependencies every action shares: the state store, the
// session manager, and process configuration. One Runner serves one command
// invocation (spec §5: "no long-lived singletons that outlive a command
// invocation").
type Runner struct {
	Store   *state.Store
	Session *session.Manager
	Config  config.Config
}

// Request carries the caller-supplied handles and options common to every
// action (spec §4.4's shared prologue: sanitize ids; resolve session and
// connect CDP; resolve target).
type Request struct {
	SessionID     string
	TargetID      string
	TimeoutMs     int64
	AllowNewSession bool

	// SuppressPersist, when explicitly set true, skips the post-action
	// upsertTarget write (spec §4.4). The zero value persists: actions that
	// write a target snapshot do so unless the caller opts out. Count,
	// Dialog, Observe, ScrollPlan, ScrollSample and ScrollWatch never write
	// one, whatever this field holds.
	SuppressPersist bool
}

// prologueResult is what every action body receives after the shared
// prologue succeeds.
type prologueResult struct {
	timing   *timingBuilder
	st       state.SurfwrightState
	sessID   string
	client   *cdp.Client
	resolved *cdp.ResolveResult
}

func (p *prologueResult) Close() {
	if p.resolved != nil {
		p.resolved.Close()
	}
	if p.client != nil {
		p.client.Close()
	}
}

// runPrologue performs sanitize-ids / resolve-session / connect-cdp /
// resolve-target, in that order, returning errors tagged per spec §7 the
// moment any stage fails.
func (r *Runner) runPrologue(ctx context.Context, req Request) (*prologueResult, error) {
	tb := newTimingBuilder()

	if req.SessionID != "" && !session.ValidSessionID(req.SessionID) {
		return nil, errs.New(errs.CodeSessionIDInvalid, "session id %q is invalid", req.SessionID)
	}
	if req.TargetID != "" && !session.ValidTargetID(req.TargetID) {
		return nil, errs.New(errs.CodeTargetIDInvalid, "target id %q is invalid", req.TargetID)
	}

	st := r.Store.Read()

	var resolved session.ResolveResult
	err := measure(&tb.resolveSession, func() error {
		var err error
		resolved, err = session.ResolveForAction(st, session.ResolveHint{
			SessionID:        req.SessionID,
			TargetID:         req.TargetID,
			AllowImplicitNew: req.AllowNewSession,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	sess, ok := st.Sessions[resolved.SessionID]
	if !ok {
		ensureCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		ensureResult, err := r.Session.EnsureDefaultManaged(ensureCtx)
		if err != nil {
			return nil, err
		}
		sess = ensureResult.Session
		st = r.Store.Read()
	} else {
		ensureCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		var err error
		err = measure(&tb.resolveSession, func() error {
			ensureResult, err := r.Session.EnsureReachable(ensureCtx, sess)
			if err != nil {
				return err
			}
			sess = ensureResult.Session
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	var client *cdp.Client
	err = measure(&tb.connectCDP, func() error {
		probe := session.Probe(ctx, sess.CDPOrigin, r.Config.CDPProbeTimeout, r.Config.CDPProbeTimeoutFallback)
		if !probe.Reachable {
			return errs.New(errs.CodeCDPUnreachable, "CDP endpoint %s is unreachable", sess.CDPOrigin)
		}
		var err error
		client, err = cdp.Connect(ctx, probe.WebSocketDebuggerURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	var resolvedTarget *cdp.ResolveResult
	if resolved.TargetID != "" || req.TargetID != "" {
		targetID := resolved.TargetID
		if targetID == "" {
			targetID = req.TargetID
		}
		knownURL := ""
		if tgt, ok := st.Targets[targetID]; ok {
			knownURL = tgt.URL
		}
		var err error
		resolvedTarget, err = client.ResolveTarget(ctx, targetID, knownURL)
		if err != nil {
			client.Close()
			return nil, err
		}
	}

	return &prologueResult{timing: tb, st: st, sessID: sess.SessionID, client: client, resolved: resolvedTarget}, nil
}

// CaptureHandle is an already-resolved page exposed to the Network Engine's
// synchronous and tail capture modes (spec §4.5), so `target network` and
// `target network-tail` reuse the same connect+resolve sequence every other
// action goes through instead of duplicating it.
type CaptureHandle struct {
	SessionID string
	Resolved  *cdp.ResolveResult
	close     func()
}

// Close releases the underlying CDP connection and page context.
func (h *CaptureHandle) Close() {
	if h.close != nil {
		h.close()
	}
}

// ResolveForCapture runs the shared prologue and hands back the resolved
// page handle `target network`/`target network-tail` capture against,
// requiring an explicit target since a capture always targets one specific
// page (spec §4.5).
func (r *Runner) ResolveForCapture(ctx context.Context, req Request) (*CaptureHandle, error) {
	pro, err := r.runPrologue(ctx, req)
	if err != nil {
		return nil, err
	}
	if pro.resolved == nil {
		pro.Close()
		return nil, errs.New(errs.CodeTargetIDInvalid, "network capture requires a resolved target; pass --target explicitly")
	}
	return &CaptureHandle{SessionID: pro.sessID, Resolved: pro.resolved, close: pro.Close}, nil
}

// persistTarget implements the post-action upsertTarget write from spec
// §4.4, unless req.SuppressPersist was explicitly requested by the caller
// (the zero value means "persist").
func (r *Runner) persistTarget(tb *timingBuilder, sessionID, targetID, url, title, status, actionKind, actionID string) {
	_ = measure(&tb.persistState, func() error {
		now := timeNow()
		_, err := state.Update(r.Store, func(st *state.SurfwrightState) struct{} {
			st.Targets[targetID] = state.Target{
				TargetID:       targetID,
				SessionID:      sessionID,
				URL:            url,
				Title:          title,
				Status:         status,
				LastActionID:   actionID,
				LastActionAt:   &now,
				LastActionKind: actionKind,
				UpdatedAt:      now,
			}
			if sess, ok := st.Sessions[sessionID]; ok {
				sess.LastSeenAt = now
				st.Sessions[sessionID] = sess
			}
			return struct{}{}
		})
		return err
	})
}
