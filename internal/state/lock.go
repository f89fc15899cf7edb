package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/surfwright/surfwright/internal/errs"
)

// lockDoc is the JSON body written into state.lock (spec §6.2).
type lockDoc struct {
	PID       int       `json:"pid"`
	CreatedAt time.Time `json:"createdAt"`
}

// fileLock implements the state.lock discipline from spec §4.1: create the
// lock file exclusively; on conflict, sleep-retry until a deadline; force-
// delete a lock older than the stale threshold; unlink on every exit path.
//
// No third-party file-lock library appears in this corpus's go.mod set, so
// this is implemented directly on os.OpenFile's O_EXCL semantics — see
// DESIGN.md.
type fileLock struct {
	path string
}

func newFileLock(root string) *fileLock {
	return &fileLock{path: filepath.Join(root, "state.lock")}
}

// acquire blocks (bounded by deadline) until the lock is held, forcibly
// deleting a lock file older than staleThreshold along the way.
func (l *fileLock) acquire(deadline, staleThreshold time.Duration) (func(), error) {
	start := time.Now()
	const retryInterval = 25 * time.Millisecond

	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			doc := lockDoc{PID: os.Getpid(), CreatedAt: time.Now().UTC()}
			enc := json.NewEncoder(f)
			encErr := enc.Encode(doc)
			closeErr := f.Close()
			if encErr != nil || closeErr != nil {
				os.Remove(l.path)
				return nil, errs.Wrap(errs.CodeStateLockIO, firstNonNil(encErr, closeErr), "failed to write lock file")
			}
			return func() { os.Remove(l.path) }, nil
		}

		if !os.IsExist(err) {
			return nil, errs.Wrap(errs.CodeStateLockIO, err, "failed to create lock file")
		}

		if l.forceDeleteIfStale(staleThreshold) {
			continue
		}

		if time.Since(start) >= deadline {
			return nil, errs.New(errs.CodeStateLockTimeout, "timed out waiting for state lock at %s", l.path)
		}

		time.Sleep(retryInterval)
	}
}

// forceDeleteIfStale removes the lock file and returns true if its recorded
// createdAt (or, failing that, its mtime) is older than staleThreshold.
func (l *fileLock) forceDeleteIfStale(staleThreshold time.Duration) bool {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return false
	}

	createdAt, ok := lockCreatedAt(data)
	if !ok {
		info, statErr := os.Stat(l.path)
		if statErr != nil {
			return false
		}
		createdAt = info.ModTime()
	}

	if time.Since(createdAt) < staleThreshold {
		return false
	}

	return os.Remove(l.path) == nil
}

func lockCreatedAt(data []byte) (time.Time, bool) {
	var doc lockDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return time.Time{}, false
	}
	if doc.CreatedAt.IsZero() {
		return time.Time{}, false
	}
	return doc.CreatedAt, true
}

func firstNonNil(es ...error) error {
	for _, e := range es {
		if e != nil {
			return e
		}
	}
	return nil
}
