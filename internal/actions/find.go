package actions

import "context"

const (
	defaultFindLimit = 12
	maxFindLimit     = 50
)

// FindRequest configures the find action (spec §4.4).
type FindRequest struct {
	Request
	Query
	Limit          int
	First          bool
	VisibleOnly    bool
	HrefHost       string
	HrefPathPrefix string
}

// FindData is the find action's payload.
type FindData struct {
	Matches []Match `json:"matches"`
	Count   int     `json:"count"`
}

// Find implements spec §4.4's find action.
func (r *Runner) Find(ctx context.Context, req FindRequest) (*Report, error) {
	if err := req.Query.Validate(); err != nil {
		return nil, err
	}

	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	limit := req.Limit
	if req.First {
		limit = 1
	} else if limit <= 0 {
		limit = defaultFindLimit
	} else if limit > maxFindLimit {
		limit = maxFindLimit
	}

	var data FindData
	err = measure(&pro.timing.action, func() error {
		matches, err := locate(ctx, pro.resolved.PageCtx, req.Query, MatchFilter{
			VisibleOnly:    req.VisibleOnly,
			HrefHost:       req.HrefHost,
			HrefPathPrefix: req.HrefPathPrefix,
		}, limit)
		if err != nil {
			return err
		}
		data = FindData{Matches: matches, Count: len(matches)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, "", "", "", "find", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}
