// Package errs defines SurfWright's error taxonomy: a stable set of codes,
// each tagged retryable or not, carried alongside a one-line message and
// optional recovery hints so the command layer can render the §6.1 failure
// envelope without re-deriving any of this from a bare error string.
package errs

import "fmt"

// Code identifies one entry in the stable error taxonomy.
type Code string

const (
	CodeURLInvalid             Code = "E_URL_INVALID"
	CodeCDPInvalid             Code = "E_CDP_INVALID"
	CodeQueryInvalid           Code = "E_QUERY_INVALID"
	CodeSessionIDInvalid       Code = "E_SESSION_ID_INVALID"
	CodeTargetIDInvalid        Code = "E_TARGET_ID_INVALID"
	CodeSelectorInvalid        Code = "E_SELECTOR_INVALID"
	CodeSessionNotFound        Code = "E_SESSION_NOT_FOUND"
	CodeSessionExists          Code = "E_SESSION_EXISTS"
	CodeSessionConflict        Code = "E_SESSION_CONFLICT"
	CodeTargetNotFound         Code = "E_TARGET_NOT_FOUND"
	CodeTargetSessionUnknown   Code = "E_TARGET_SESSION_UNKNOWN"
	CodeTargetSessionMismatch  Code = "E_TARGET_SESSION_MISMATCH"
	CodeHandleTypeMismatch     Code = "E_HANDLE_TYPE_MISMATCH"
	CodeCDPUnreachable         Code = "E_CDP_UNREACHABLE"
	CodeSessionUnreachable     Code = "E_SESSION_UNREACHABLE"
	CodeBrowserStartTimeout    Code = "E_BROWSER_START_TIMEOUT"
	CodeStateLockTimeout       Code = "E_STATE_LOCK_TIMEOUT"
	CodeStateLockIO            Code = "E_STATE_LOCK_IO"
	CodeBrowserStartFailed     Code = "E_BROWSER_START_FAILED"
	CodeBrowserNotFound        Code = "E_BROWSER_NOT_FOUND"
	CodeWorkspaceNotFound      Code = "E_WORKSPACE_NOT_FOUND"
	CodeWorkspaceInvalid       Code = "E_WORKSPACE_INVALID"
	CodeWaitTimeout            Code = "E_WAIT_TIMEOUT"
	CodeAssertFailed           Code = "E_ASSERT_FAILED"
	CodeEvalRuntime            Code = "E_EVAL_RUNTIME"
	CodeEvalTimeout            Code = "E_EVAL_TIMEOUT"
	CodeEvalResultUnserial     Code = "E_EVAL_RESULT_UNSERIALIZABLE"
	CodeEvalScriptTooLarge     Code = "E_EVAL_SCRIPT_TOO_LARGE"
	CodeSessionRequired        Code = "E_SESSION_REQUIRED"
	CodeCaptureNotFound        Code = "E_CAPTURE_NOT_FOUND"
	CodeCaptureConflict        Code = "E_CAPTURE_CONFLICT"
	CodeBudgetExceeded         Code = "E_BUDGET_EXCEEDED"
	CodePlanInvalid            Code = "E_PLAN_INVALID"
	CodePlanStepFailed         Code = "E_PLAN_STEP_FAILED"
	CodeArtifactNotFound       Code = "E_ARTIFACT_NOT_FOUND"
	CodeInternal               Code = "E_INTERNAL"
)

// allCodes is the stable, ordered taxonomy used to build the contract
// surface's error list (spec §6.1).
var allCodes = []Code{
	CodeURLInvalid,
	CodeCDPInvalid,
	CodeQueryInvalid,
	CodeSessionIDInvalid,
	CodeTargetIDInvalid,
	CodeSelectorInvalid,
	CodeSessionNotFound,
	CodeSessionExists,
	CodeSessionConflict,
	CodeTargetNotFound,
	CodeTargetSessionUnknown,
	CodeTargetSessionMismatch,
	CodeHandleTypeMismatch,
	CodeCDPUnreachable,
	CodeSessionUnreachable,
	CodeBrowserStartTimeout,
	CodeStateLockTimeout,
	CodeStateLockIO,
	CodeBrowserStartFailed,
	CodeBrowserNotFound,
	CodeWorkspaceNotFound,
	CodeWorkspaceInvalid,
	CodeWaitTimeout,
	CodeAssertFailed,
	CodeEvalRuntime,
	CodeEvalTimeout,
	CodeEvalResultUnserial,
	CodeEvalScriptTooLarge,
	CodeSessionRequired,
	CodeCaptureNotFound,
	CodeCaptureConflict,
	CodeBudgetExceeded,
	CodePlanInvalid,
	CodePlanStepFailed,
	CodeArtifactNotFound,
	CodeInternal,
}

// AllCodes returns the full, stable error taxonomy in declaration order,
// for callers (the contract surface) that must enumerate every code.
func AllCodes() []Code {
	out := make([]Code, len(allCodes))
	copy(out, allCodes)
	return out
}

// IsRetryable reports whether code is retryable, without requiring an
// *Error instance.
func IsRetryable(code Code) bool { return retryable[code] }

// retryable records, per code, whether the condition is transient
// infrastructure trouble worth a caller retry.
var retryable = map[Code]bool{
	CodeCDPUnreachable:      true,
	CodeSessionUnreachable:  true,
	CodeBrowserStartTimeout: true,
	CodeStateLockTimeout:    true,
	CodeStateLockIO:         true,
	CodeBrowserStartFailed:  true,
	CodeInternal:            true,
}

// Error is the structured form of a SurfWright failure, convertible directly
// into the §6.1 `{ok:false, code, message, ...}` JSON envelope.
type Error struct {
	Code        Code
	Message     string
	Hints       []string
	HintContext map[string]any
	Phase       string
	Diagnostics any
	Recovery    map[string]any
	Cause       error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether this error's code is in the retryable set.
func (e *Error) Retryable() bool { return retryable[e.Code] }

// New constructs an *Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error carrying an underlying cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithHints returns a copy of e with Hints/HintContext attached.
func (e *Error) WithHints(hints []string, context map[string]any) *Error {
	c := *e
	c.Hints = hints
	c.HintContext = context
	return &c
}

// WithPhase returns a copy of e tagged with the phase in which it occurred.
func (e *Error) WithPhase(phase string) *Error {
	c := *e
	c.Phase = phase
	return &c
}

// WithRecovery returns a copy of e carrying structured recovery guidance.
func (e *Error) WithRecovery(recovery map[string]any) *Error {
	c := *e
	c.Recovery = recovery
	return &c
}

// As extracts a *Error from err, following the wrap chain. Mirrors the
// standard library's errors.As without forcing every caller to allocate a
// target variable inline.
func As(err error) (*Error, bool) {
	var target *Error
	for err != nil {
		if se, ok := err.(*Error); ok {
			target = se
			return target, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return nil, false
}
