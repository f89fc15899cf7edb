package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/surfwright/surfwright/internal/errs"
	"github.com/surfwright/surfwright/internal/session"
	"github.com/surfwright/surfwright/internal/state"
)

// defaultManagedUnreachableGrace is how long a managed session may stay
// unreachable before `session prune` evicts it, absent --grace-ms.
const defaultManagedUnreachableGrace = 60 * time.Second

var sessionLong = templates.LongDesc(`
	Manage browser sessions: ensure the implicit default session is
	reachable, attach to an externally running browser, list known
	sessions, prune stale ones, or release every managed process (spec
	§4.2).`)

// NewSessionCommand groups session lifecycle subcommands.
func NewSessionCommand(o *SurfwrightOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "session",
		DisableFlagsInUseLine: true,
		Short:                 "Manage browser sessions",
		Long:                  sessionLong,
	}

	cmd.AddCommand(newSessionEnsureCommand(o))
	cmd.AddCommand(newSessionNewCommand(o))
	cmd.AddCommand(newSessionAttachCommand(o))
	cmd.AddCommand(newSessionUseCommand(o))
	cmd.AddCommand(newSessionListCommand(o))
	cmd.AddCommand(newSessionPruneCommand(o))
	cmd.AddCommand(newSessionClearCommand(o))

	return cmd
}

func newSessionNewCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		policy string
		headed bool
		pretty bool
	)
	cmd := &cobra.Command{
		Use:                   "new",
		DisableFlagsInUseLine: true,
		Short:                 "Launch a fresh managed session under a freshly allocated session id",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			ctx, cancel := signalContext()
			defer cancel()
			result, err := rt.sess.NewManaged(ctx, state.SessionPolicy(policy), headed)
			return emit(o.Out, pretty, result, err)
		},
	}
	cmd.Flags().StringVar(&policy, "policy", string(state.PolicyEphemeral), "ephemeral|persistent")
	cmd.Flags().BoolVar(&headed, "headed", false, "launch with a visible window instead of headless")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

func newSessionUseCommand(o *SurfwrightOptions) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:                   "use <sessionId>",
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		Short:                 "Set the active session consulted by implicit session resolution",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			result, err := rt.sess.UseSession(args[0])
			return emit(o.Out, pretty, result, err)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

func newSessionEnsureCommand(o *SurfwrightOptions) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:                   "ensure",
		DisableFlagsInUseLine: true,
		Short:                 "Ensure the default managed session is reachable, launching it if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			ctx, cancel := signalContext()
			defer cancel()
			result, err := rt.sess.EnsureDefaultManaged(ctx)
			return emit(o.Out, pretty, result, err)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

func newSessionAttachCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		sessionID string
		cdpOrigin string
		pretty    bool
	)
	cmd := &cobra.Command{
		Use:                   "attach",
		DisableFlagsInUseLine: true,
		Short:                 "Register an externally running browser's CDP endpoint as an attached session",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			ctx, cancel := signalContext()
			defer cancel()

			result, err := attachSession(ctx, rt, sessionID, cdpOrigin)
			return emit(o.Out, pretty, result, err)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to register under (required)")
	cmd.Flags().StringVar(&cdpOrigin, "cdp-origin", "", "the browser's CDP HTTP origin, e.g. http://127.0.0.1:9222 (required)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

func attachSession(ctx context.Context, rt *runtime, sessionID, cdpOrigin string) (*state.Session, error) {
	if sessionID == "" {
		return nil, errs.New(errs.CodeSessionIDInvalid, "--session is required")
	}
	if cdpOrigin == "" {
		return nil, errs.New(errs.CodeCDPInvalid, "--cdp-origin is required")
	}

	probe := session.Probe(ctx, cdpOrigin, rt.cfg.CDPProbeTimeout, rt.cfg.CDPProbeTimeoutFallback)
	if !probe.Reachable {
		return nil, errs.New(errs.CodeCDPUnreachable, "no CDP endpoint reachable at %s", cdpOrigin)
	}

	now := time.Now().UTC()
	sess := state.Session{
		SessionID:   sessionID,
		Kind:        state.SessionKindAttached,
		Policy:      state.PolicyPersistent,
		BrowserMode: state.BrowserModeUnknown,
		CDPOrigin:   cdpOrigin,
		CreatedAt:   now,
		LastSeenAt:  now,
	}

	result, err := state.Update(rt.store, func(st *state.SurfwrightState) state.Session {
		if existing, ok := st.Sessions[sessionID]; ok {
			sess.CreatedAt = existing.CreatedAt
		}
		st.Sessions[sessionID] = sess
		return sess
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// sessionListEntry embeds a session with the `active` flag spec §8 scenario
// 1 checks for ("... active=true after session use").
type sessionListEntry struct {
	state.Session
	Active bool `json:"active"`
}

func newSessionListCommand(o *SurfwrightOptions) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:                   "list",
		DisableFlagsInUseLine: true,
		Short:                 "List known sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			st := rt.store.Read()
			sessions := make([]sessionListEntry, 0, len(st.Sessions))
			for _, sess := range st.Sessions {
				sessions = append(sessions, sessionListEntry{Session: sess, Active: sess.SessionID == st.ActiveSessionID})
			}
			return emit(o.Out, pretty, sessions, nil)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

func newSessionPruneCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		graceMs    int64
		dropUnreach bool
		pretty     bool
	)
	cmd := &cobra.Command{
		Use:                   "prune",
		DisableFlagsInUseLine: true,
		Short:                 "Evict expired, unreachable, or dropped sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			ctx, cancel := signalContext()
			defer cancel()
			report, err := rt.sess.Prune(ctx, session.PruneOptions{
				ManagedUnreachableGrace: durationFromMs(graceMs, defaultManagedUnreachableGrace),
				DropManagedUnreachable:  dropUnreach,
			})
			return emit(o.Out, pretty, report, err)
		},
	}
	cmd.Flags().Int64Var(&graceMs, "grace-ms", 0, "managed-unreachable grace window before eviction")
	cmd.Flags().BoolVar(&dropUnreach, "drop-unreachable", false, "evict managed-unreachable sessions immediately, ignoring the grace window")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}

func newSessionClearCommand(o *SurfwrightOptions) *cobra.Command {
	var (
		keepProcesses bool
		pretty        bool
	)
	cmd := &cobra.Command{
		Use:                   "clear",
		DisableFlagsInUseLine: true,
		Short:                 "Release every managed session, optionally leaving browser processes running",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return emit(o.Out, pretty, nil, err)
			}
			err = rt.sess.Clear(keepProcesses)
			return emit(o.Out, pretty, map[string]bool{"cleared": err == nil}, err)
		},
	}
	cmd.Flags().BoolVar(&keepProcesses, "keep-processes", false, "do not terminate managed browser processes")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the JSON envelope")
	return cmd
}
