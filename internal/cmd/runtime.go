// Package cmd wires the cobra command tree over the Session Manager,
// Action Set, Network Engine, and Pipeline Executor, emitting the §6.1
// JSON envelope on stdout for every command.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/surfwright/surfwright/internal/actions"
	"github.com/surfwright/surfwright/internal/config"
	"github.com/surfwright/surfwright/internal/errs"
	"github.com/surfwright/surfwright/internal/logging"
	"github.com/surfwright/surfwright/internal/session"
	"github.com/surfwright/surfwright/internal/state"
)

// commonFlags are accepted by every command that touches a session/target
// (spec §6.1: "every command accepts --timeout-ms, --session, and (where
// applicable) --output-shape compact|full").
type commonFlags struct {
	SessionID    string
	TargetID     string
	TimeoutMs    int64
	OutputShape  string
	Pretty       bool
}

func (f *commonFlags) register(flags interface {
	StringVar(*string, string, string, string)
	Int64Var(*int64, string, int64, string)
	BoolVar(*bool, string, bool, string)
}) {
	flags.StringVar(&f.SessionID, "session", "", "session id to act on (default: the implicit default session)")
	flags.StringVar(&f.TargetID, "target", "", "target id to act on (default: the session's last-active target)")
	flags.Int64Var(&f.TimeoutMs, "timeout-ms", 0, "operation timeout in milliseconds (default: action-specific)")
	flags.StringVar(&f.OutputShape, "output-shape", "compact", "compact|full")
	flags.BoolVar(&f.Pretty, "pretty", false, "pretty-print the JSON envelope")
}

func (f *commonFlags) request() actions.Request {
	return actions.Request{
		SessionID:       f.SessionID,
		TargetID:        f.TargetID,
		TimeoutMs:       f.TimeoutMs,
		AllowNewSession: true,
	}
}

// runtime bundles the dependencies every command needs to build an
// actions.Runner or drive the Session Manager directly.
type runtime struct {
	cfg   config.Config
	store *state.Store
	sess  *session.Manager
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errs.Wrap(errs.CodeWorkspaceInvalid, err, "failed to load configuration")
	}

	st, err := state.New(state.Options{
		Root:               cfg.StateDir,
		LockDeadline:       cfg.LockRetryDeadline,
		StaleLockThreshold: cfg.StaleLockThreshold,
	})
	if err != nil {
		return nil, err
	}

	mgr := session.New(st, cfg, logging.Global())
	return &runtime{cfg: cfg, store: st, sess: mgr}, nil
}

func (rt *runtime) runner() *actions.Runner {
	return &actions.Runner{Store: rt.store, Session: rt.sess, Config: rt.cfg}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, the same
// shutdown discipline the teacher's capture/serve commands used.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// envelope is the §6.1 success/failure JSON shape every command emits
// exactly once to stdout.
type envelope struct {
	OK          bool           `json:"ok"`
	Data        any            `json:"data,omitempty"`
	Code        string         `json:"code,omitempty"`
	Message     string         `json:"message,omitempty"`
	Hints       []string       `json:"hints,omitempty"`
	HintContext map[string]any `json:"hintContext,omitempty"`
	Retryable   *bool          `json:"retryable,omitempty"`
	Phase       string         `json:"phase,omitempty"`
	Diagnostics any            `json:"diagnostics,omitempty"`
	Recovery    map[string]any `json:"recovery,omitempty"`
}

// emit writes exactly one JSON object to out, success or failure, and
// returns a non-nil error only when the caller (cobra's RunE) should set a
// nonzero exit code — the envelope itself has already been written either
// way, so the command layer never returns a second, competing error shape.
func emit(out io.Writer, pretty bool, result any, err error) error {
	var env envelope
	if err != nil {
		se, ok := errs.As(err)
		if !ok {
			se = &errs.Error{Code: errs.CodeInternal, Message: err.Error()}
		}
		retryable := se.Retryable()
		env = envelope{
			OK:          false,
			Code:        string(se.Code),
			Message:     se.Message,
			Hints:       se.Hints,
			HintContext: se.HintContext,
			Retryable:   &retryable,
			Phase:       se.Phase,
			Diagnostics: se.Diagnostics,
			Recovery:    se.Recovery,
		}
	} else {
		env = envelope{OK: true, Data: result}
	}

	enc := json.NewEncoder(out)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if encErr := enc.Encode(env); encErr != nil {
		return fmt.Errorf("failed to encode output envelope: %w", encErr)
	}
	if err != nil {
		return err
	}
	return nil
}

func durationFromMs(ms int64, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
