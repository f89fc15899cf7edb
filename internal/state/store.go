package state

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/surfwright/surfwright/internal/errs"
)

// Store provides serializable, concurrent-safe access to the
// SurfwrightState document at <root>/state.json (spec §4.1).
type Store struct {
	root              string
	lock              *fileLock
	lockDeadline      time.Duration
	staleLockThreshold time.Duration
}

// Options configures a Store.
type Options struct {
	Root               string
	LockDeadline       time.Duration
	StaleLockThreshold time.Duration
}

// New creates a Store rooted at opts.Root, creating the directory if
// necessary.
func New(opts Options) (*Store, error) {
	if opts.Root == "" {
		return nil, errs.New(errs.CodeWorkspaceInvalid, "state root must not be empty")
	}
	if err := os.MkdirAll(opts.Root, 0o755); err != nil {
		return nil, errs.Wrap(errs.CodeStateLockIO, err, "failed to create state root %q", opts.Root)
	}

	deadline := opts.LockDeadline
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	stale := opts.StaleLockThreshold
	if stale <= 0 {
		stale = 20 * time.Second
	}

	return &Store{
		root:               opts.Root,
		lock:               newFileLock(opts.Root),
		lockDeadline:       deadline,
		staleLockThreshold: stale,
	}, nil
}

func (s *Store) statePath() string {
	return filepath.Join(s.root, "state.json")
}

// Read returns a normalized snapshot of the state document. A missing or
// malformed file yields an empty state rather than an error (spec §4.1).
// Read does not take the lock: it is documented as observing "the last
// persisted snapshot" (spec §5).
func (s *Store) Read() SurfwrightState {
	data, err := os.ReadFile(s.statePath())
	if err != nil {
		return Empty()
	}
	st, err := migrate(data)
	if err != nil {
		return Empty()
	}
	return st
}

// Update acquires the exclusive lock, reads the current state, applies
// mutate, writes the result atomically, and returns mutate's return value.
func Update[T any](s *Store, mutate func(*SurfwrightState) T) (T, error) {
	var zero T

	release, err := s.lock.acquire(s.lockDeadline, s.staleLockThreshold)
	if err != nil {
		return zero, err
	}
	defer release()

	st := s.readLocked()
	result := mutate(&st)
	st = normalize(st)

	if err := s.writeLocked(st); err != nil {
		return zero, err
	}

	return result, nil
}

// Write persists state atomically, under lock.
func (s *Store) Write(st SurfwrightState) error {
	release, err := s.lock.acquire(s.lockDeadline, s.staleLockThreshold)
	if err != nil {
		return err
	}
	defer release()
	return s.writeLocked(normalize(st))
}

func (s *Store) readLocked() SurfwrightState {
	data, err := os.ReadFile(s.statePath())
	if err != nil {
		return Empty()
	}
	st, err := migrate(data)
	if err != nil {
		return Empty()
	}
	return st
}

// writeLocked implements the write-temp-then-rename atomic write from spec
// §4.1: state.<pid>.<ms>.<rand>.tmp, create-exclusive, then rename over
// state.json; the temp file is removed on any residual path.
func (s *Store) writeLocked(st SurfwrightState) error {
	st.Version = CurrentVersion

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errs.Wrap(errs.CodeInternal, err, "failed to marshal state")
	}
	data = append(data, '\n')

	tmpName := fmt.Sprintf("state.%d.%d.%d.tmp", os.Getpid(), time.Now().UnixMilli(), rand.Intn(1_000_000))
	tmpPath := filepath.Join(s.root, tmpName)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.Wrap(errs.CodeStateLockIO, err, "failed to create temp state file")
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errs.Wrap(errs.CodeStateLockIO, err, "failed to write temp state file")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return errs.Wrap(errs.CodeStateLockIO, err, "failed to close temp state file")
	}

	if err := os.Rename(tmpPath, s.statePath()); err != nil {
		os.Remove(tmpPath)
		return errs.Wrap(errs.CodeStateLockIO, err, "failed to rename temp state file into place")
	}

	return nil
}

// AllocateSessionID allocates the next monotonic "s-<n>" style session id
// within st, bumping NextSessionOrdinal. Must be called from within an
// Update mutator so the allocation is part of the same critical section.
func AllocateSessionID(st *SurfwrightState, prefix string) string {
	n := nextOrdinalFor(st.Sessions, func(s Session) string { return s.SessionID }, prefix, st.NextSessionOrdinal)
	id := fmt.Sprintf("%s-%d", prefix, n)
	st.NextSessionOrdinal = n + 1
	return id
}

// AllocateCaptureID allocates the next "c-<n>" capture id.
func AllocateCaptureID(st *SurfwrightState) string {
	n := nextOrdinalFor(st.Captures, func(c NetworkCapture) string { return c.CaptureID }, "c", st.NextCaptureOrdinal)
	id := fmt.Sprintf("c-%d", n)
	st.NextCaptureOrdinal = n + 1
	return id
}

// AllocateArtifactID allocates the next "na-<n>" artifact id.
func AllocateArtifactID(st *SurfwrightState) string {
	n := nextOrdinalFor(st.Artifacts, func(a NetworkArtifact) string { return a.ArtifactID }, "na", st.NextArtifactOrdinal)
	id := fmt.Sprintf("na-%d", n)
	st.NextArtifactOrdinal = n + 1
	return id
}

// nextOrdinalFor returns candidate, raised to one past the largest ordinal
// of any id of the form "<prefix>-<n>" already present in m when candidate
// does not already exceed it, guaranteeing the invariant from spec §8: "next<Kind>Ordinal strictly
// greater than any id suffix in use".
func nextOrdinalFor[V any](m map[string]V, idOf func(V) string, prefix string, candidate int) int {
	used := map[int]bool{}
	maxUsed := 0
	for _, v := range m {
		id := idOf(v)
		suffix := strings.TrimPrefix(id, prefix+"-")
		if suffix == id {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil {
			used[n] = true
			if n > maxUsed {
				maxUsed = n
			}
		}
	}

	if candidate <= maxUsed {
		candidate = maxUsed + 1
	}
	for used[candidate] {
		candidate++
	}
	return candidate
}
