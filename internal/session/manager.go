package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/surfwright/surfwright/internal/config"
	"github.com/surfwright/surfwright/internal/errs"
	"github.com/surfwright/surfwright/internal/state"
)

// Manager discovers, launches, and maintains browsers, guaranteeing that
// every action receives a reachable session (spec §4.2).
type Manager struct {
	store *state.Store
	cfg   config.Config
	log   *zap.SugaredLogger
}

// New creates a Manager backed by store.
func New(store *state.Store, cfg config.Config, log *zap.SugaredLogger) *Manager {
	return &Manager{store: store, cfg: cfg, log: log}
}

// EnsureResult is the outcome of ensureReachable / ensureDefaultManaged.
type EnsureResult struct {
	Session   state.Session
	Created   bool
	Restarted bool
}

// EnsureReachable implements spec §4.2's ensureReachable: heartbeats a
// reachable session; relaunches an unreachable managed session preserving
// UserDataDir/CreatedAt; fails attached sessions with E_SESSION_UNREACHABLE.
func (m *Manager) EnsureReachable(ctx context.Context, sess state.Session) (EnsureResult, error) {
	probe := Probe(ctx, sess.CDPOrigin, m.cfg.CDPProbeTimeout, m.cfg.CDPProbeTimeoutFallback)
	if probe.Reachable {
		m.heartbeat(&sess)
		return EnsureResult{Session: sess}, nil
	}

	if sess.Kind == state.SessionKindAttached {
		return EnsureResult{}, errs.New(errs.CodeSessionUnreachable, "attached session %s is unreachable at %s", sess.SessionID, sess.CDPOrigin)
	}

	restarted, err := m.relaunchManaged(ctx, sess)
	if err != nil {
		return EnsureResult{}, err
	}
	return EnsureResult{Session: restarted, Restarted: true}, nil
}

func (m *Manager) relaunchManaged(ctx context.Context, sess state.Session) (state.Session, error) {
	execPath, ok := Discover(m.candidatesOrDefault())
	if !ok {
		return state.Session{}, errs.New(errs.CodeBrowserNotFound, "no Chrome/Chromium/Edge/Brave executable found among configured candidates")
	}

	port := 0
	if sess.DebugPort != nil {
		port = *sess.DebugPort
	}
	if port == 0 {
		var err error
		port, err = AllocatePort()
		if err != nil {
			return state.Session{}, errs.Wrap(errs.CodeBrowserStartFailed, err, "failed to allocate debug port")
		}
	}

	launchOpts := LaunchOptions{
		ExecutablePath:       execPath,
		Port:                 port,
		UserDataDir:          sess.UserDataDir,
		Headless:             sess.BrowserMode != state.BrowserModeHeaded,
		StartTimeout:         10 * time.Second,
		ProbeTimeout:         m.cfg.CDPProbeTimeout,
		ProbeTimeoutFallback: m.cfg.CDPProbeTimeoutFallback,
	}

	result, err := Launch(ctx, launchOpts)
	if err != nil {
		// Retry once on a freshly allocated port, per spec §4.2.
		newPort, portErr := AllocatePort()
		if portErr != nil {
			return state.Session{}, err
		}
		launchOpts.Port = newPort
		result, err = Launch(ctx, launchOpts)
		if err != nil {
			return state.Session{}, err
		}
		port = newPort
	}

	sess.CDPOrigin = fmt.Sprintf("http://127.0.0.1:%d", port)
	sess.DebugPort = &port
	sess.BrowserPID = result.Process.Pid
	sess.ManagedUnreachableSince = nil
	sess.ManagedUnreachableCount = 0
	m.heartbeat(&sess)

	_, err = state.Update(m.store, func(st *state.SurfwrightState) struct{} {
		st.Sessions[sess.SessionID] = sess
		return struct{}{}
	})
	if err != nil {
		return state.Session{}, err
	}

	return sess, nil
}

func (m *Manager) candidatesOrDefault() []string {
	if len(m.cfg.BrowserCandidates) > 0 {
		return m.cfg.BrowserCandidates
	}
	return DefaultCandidates()
}

// EnsureDefaultManaged implements spec §4.2's ensureDefaultManaged: creates
// "s-default" (kind=managed) if absent; if present, it must already be
// kind=managed or E_SESSION_CONFLICT is raised.
func (m *Manager) EnsureDefaultManaged(ctx context.Context) (EnsureResult, error) {
	const defaultID = "s-default"

	st := m.store.Read()
	if existing, ok := st.Sessions[defaultID]; ok {
		if existing.Kind != state.SessionKindManaged {
			return EnsureResult{}, errs.New(errs.CodeSessionConflict, "%s exists but is not a managed session", defaultID)
		}
		return m.EnsureReachable(ctx, existing)
	}

	sess, err := m.launchAndPersist(ctx, defaultID, state.PolicyPersistent, true)
	if err != nil {
		return EnsureResult{}, err
	}
	return EnsureResult{Session: sess, Created: true}, nil
}

// NewManaged implements spec §6.1's `session new`: allocates a fresh
// monotonic session id, launches a managed browser for it, and persists the
// session — without touching activeSessionId (spec §8 scenario 1 requires
// `session use` for that).
func (m *Manager) NewManaged(ctx context.Context, policy state.SessionPolicy, headed bool) (EnsureResult, error) {
	if policy == "" {
		policy = state.PolicyEphemeral
	}

	var sessionID string
	if _, err := state.Update(m.store, func(st *state.SurfwrightState) struct{} {
		sessionID = state.AllocateSessionID(st, "s")
		return struct{}{}
	}); err != nil {
		return EnsureResult{}, err
	}

	sess, err := m.launchAndPersist(ctx, sessionID, policy, !headed)
	if err != nil {
		return EnsureResult{}, err
	}
	return EnsureResult{Session: sess, Created: true}, nil
}

// launchAndPersist discovers a browser, allocates a debug port, launches it
// under <workspaceDir>/profiles/<sessionID>, and persists the resulting
// session — the launch plumbing shared by EnsureDefaultManaged and NewManaged.
func (m *Manager) launchAndPersist(ctx context.Context, sessionID string, policy state.SessionPolicy, headless bool) (state.Session, error) {
	execPath, ok := Discover(m.candidatesOrDefault())
	if !ok {
		return state.Session{}, errs.New(errs.CodeBrowserNotFound, "no Chrome/Chromium/Edge/Brave executable found among configured candidates")
	}

	port, err := AllocatePort()
	if err != nil {
		return state.Session{}, errs.Wrap(errs.CodeBrowserStartFailed, err, "failed to allocate debug port")
	}

	userDataDir := filepath.Join(m.cfg.WorkspaceDir, "profiles", sessionID)
	if err := os.MkdirAll(userDataDir, 0o755); err != nil {
		return state.Session{}, errs.Wrap(errs.CodeBrowserStartFailed, err, "failed to create user data dir")
	}

	result, err := Launch(ctx, LaunchOptions{
		ExecutablePath:       execPath,
		Port:                 port,
		UserDataDir:          userDataDir,
		Headless:             headless,
		StartTimeout:         10 * time.Second,
		ProbeTimeout:         m.cfg.CDPProbeTimeout,
		ProbeTimeoutFallback: m.cfg.CDPProbeTimeoutFallback,
	})
	if err != nil {
		return state.Session{}, err
	}

	browserMode := state.BrowserModeHeadless
	if !headless {
		browserMode = state.BrowserModeHeaded
	}

	now := time.Now().UTC()
	sess := state.Session{
		SessionID:   sessionID,
		Kind:        state.SessionKindManaged,
		Policy:      policy,
		BrowserMode: browserMode,
		CDPOrigin:   fmt.Sprintf("http://127.0.0.1:%d", port),
		DebugPort:   &port,
		UserDataDir: userDataDir,
		BrowserPID:  result.Process.Pid,
		CreatedAt:   now,
		LastSeenAt:  now,
	}
	applyLeaseTTL(&sess, m.cfg)

	_, err = state.Update(m.store, func(st *state.SurfwrightState) struct{} {
		st.Sessions[sessionID] = sess
		return struct{}{}
	})
	if err != nil {
		return state.Session{}, err
	}

	return sess, nil
}

// UseSession implements spec §6.1's `session use`: sets activeSessionId to
// an existing session, enabling the implicit-active resolution tier
// (ResolveForAction).
func (m *Manager) UseSession(sessionID string) (state.Session, error) {
	type outcome struct {
		sess state.Session
		err  error
	}

	out, err := state.Update(m.store, func(st *state.SurfwrightState) outcome {
		sess, ok := st.Sessions[sessionID]
		if !ok {
			return outcome{err: errs.New(errs.CodeSessionNotFound, "session %q not found", sessionID)}
		}
		st.ActiveSessionID = sessionID
		return outcome{sess: sess}
	})
	if err != nil {
		return state.Session{}, err
	}
	if out.err != nil {
		return state.Session{}, out.err
	}
	return out.sess, nil
}

func (m *Manager) heartbeat(sess *state.Session) {
	now := time.Now().UTC()
	sess.LastSeenAt = now
	if sess.LeaseTTLMs > 0 {
		expires := now.Add(time.Duration(sess.LeaseTTLMs) * time.Millisecond)
		sess.LeaseExpiresAt = &expires
	}
}

// applyLeaseTTL stamps sess.LeaseTTLMs/LeaseExpiresAt from the policy
// defaults in cfg: persistent sessions get cfg.LeaseTTLPersistent, every
// other session cfg.LeaseTTLEphemeral. cfg.LeaseTTLImplicit is not applied:
// a session created with no explicit policy is PolicyEphemeral and gets the
// ephemeral TTL, and the implicit s-default session is PolicyPersistent.
func applyLeaseTTL(sess *state.Session, cfg config.Config) {
	var ttl time.Duration
	switch sess.Policy {
	case state.PolicyPersistent:
		ttl = cfg.LeaseTTLPersistent
	default:
		ttl = cfg.LeaseTTLEphemeral
	}
	sess.LeaseTTLMs = ttl.Milliseconds()
	expires := sess.LastSeenAt.Add(ttl)
	sess.LeaseExpiresAt = &expires
}
