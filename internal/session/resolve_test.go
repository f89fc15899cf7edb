package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/surfwright/surfwright/internal/errs"
	"github.com/surfwright/surfwright/internal/state"
)

func TestResolveForActionPrecedence(t *testing.T) {
	st := state.Empty()
	st.Sessions["s-1"] = state.Session{SessionID: "s-1"}
	st.Targets["t-1"] = state.Target{TargetID: "t-1", SessionID: "s-1"}
	st.ActiveSessionID = "s-1"

	t.Run("explicit session wins", func(t *testing.T) {
		r, err := ResolveForAction(st, ResolveHint{SessionID: "s-1"})
		assert.NoError(t, err)
		assert.Equal(t, "s-1", r.SessionID)
	})

	t.Run("target inferred", func(t *testing.T) {
		r, err := ResolveForAction(st, ResolveHint{TargetID: "t-1"})
		assert.NoError(t, err)
		assert.Equal(t, "s-1", r.SessionID)
		assert.Equal(t, "t-1", r.TargetID)
	})

	t.Run("implicit active session", func(t *testing.T) {
		r, err := ResolveForAction(st, ResolveHint{})
		assert.NoError(t, err)
		assert.Equal(t, "s-1", r.SessionID)
	})

	t.Run("no session required error", func(t *testing.T) {
		empty := state.Empty()
		_, err := ResolveForAction(empty, ResolveHint{})
		se, ok := errs.As(err)
		assert.True(t, ok)
		assert.Equal(t, errs.CodeSessionRequired, se.Code)
	})

	t.Run("implicit new allowed", func(t *testing.T) {
		empty := state.Empty()
		r, err := ResolveForAction(empty, ResolveHint{AllowImplicitNew: true})
		assert.NoError(t, err)
		assert.Equal(t, "s-default", r.SessionID)
	})
}

func TestResolveForActionHandleTypeMismatch(t *testing.T) {
	st := state.Empty()
	st.Sessions["s-1"] = state.Session{SessionID: "s-1"}
	st.Targets["t-1"] = state.Target{TargetID: "t-1", SessionID: "s-1"}

	_, err := ResolveForAction(st, ResolveHint{SessionID: "t-1"})
	se, ok := errs.As(err)
	assert.True(t, ok)
	assert.Equal(t, errs.CodeHandleTypeMismatch, se.Code)
	assert.Equal(t, "t-1", se.Recovery["correctedHandle"])

	_, err = ResolveForAction(st, ResolveHint{TargetID: "s-1"})
	se, ok = errs.As(err)
	assert.True(t, ok)
	assert.Equal(t, errs.CodeHandleTypeMismatch, se.Code)
}

func TestValidIDPatterns(t *testing.T) {
	assert.True(t, ValidSessionID("s-default"))
	assert.True(t, ValidSessionID("s_1.2-3"))
	assert.False(t, ValidSessionID("bad id"))
	assert.True(t, ValidTargetID("AB12:cd-e.f"))
	assert.False(t, ValidTargetID(""))
}
