// Package state implements the cross-process SurfwrightState document: a
// versioned JSON file under lock, with atomic write, forward-only
// migrations, and monotonic ordinal allocation for session/capture/artifact
// ids (spec §3, §4.1).
//
// Grounded on internal/storage/disk.go's os.MkdirAll + os.Create + rename
// discipline, generalized into the lock-then-read-mutate-write-then-rename
// critical section the spec requires.
package state

import "time"

// CurrentVersion is the SurfwrightState schema version produced by write().
const CurrentVersion = 4

// SessionKind distinguishes a browser process SurfWright owns from one it
// merely connects to.
type SessionKind string

const (
	SessionKindManaged  SessionKind = "managed"
	SessionKindAttached SessionKind = "attached"
)

// SessionPolicy controls the default lease TTL and eligibility for reuse.
type SessionPolicy string

const (
	PolicyEphemeral  SessionPolicy = "ephemeral"
	PolicyPersistent SessionPolicy = "persistent"
)

// BrowserMode records whether the underlying browser runs without a visible
// window.
type BrowserMode string

const (
	BrowserModeHeadless BrowserMode = "headless"
	BrowserModeHeaded   BrowserMode = "headed"
	BrowserModeUnknown  BrowserMode = "unknown"
)

// Session represents a browser instance SurfWright may drive (spec §3).
type Session struct {
	SessionID   string        `json:"sessionId"`
	Kind        SessionKind   `json:"kind"`
	Policy      SessionPolicy `json:"policy"`
	BrowserMode BrowserMode   `json:"browserMode"`
	CDPOrigin   string        `json:"cdpOrigin"`
	DebugPort   *int          `json:"debugPort,omitempty"`
	UserDataDir string        `json:"userDataDir,omitempty"`
	BrowserPID  int           `json:"browserPid,omitempty"`
	OwnerID     string        `json:"ownerId,omitempty"`

	LeaseExpiresAt *time.Time `json:"leaseExpiresAt,omitempty"`
	LeaseTTLMs     int64      `json:"leaseTtlMs,omitempty"`

	ManagedUnreachableSince *time.Time `json:"managedUnreachableSince,omitempty"`
	ManagedUnreachableCount int        `json:"managedUnreachableCount,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// Target is a page handle inside a session (spec §3).
type Target struct {
	TargetID  string `json:"targetId"`
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Status    string `json:"status,omitempty"`

	LastActionID   string     `json:"lastActionId,omitempty"`
	LastActionAt   *time.Time `json:"lastActionAt,omitempty"`
	LastActionKind string     `json:"lastActionKind,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// CaptureStatus is the lifecycle state of a handle-based network capture.
type CaptureStatus string

const (
	CaptureRecording CaptureStatus = "recording"
	CaptureStopped   CaptureStatus = "stopped"
	CaptureFailed    CaptureStatus = "failed"
)

// NetworkCapture is a handle-based background network record (spec §3).
type NetworkCapture struct {
	CaptureID string        `json:"captureId"`
	SessionID string        `json:"sessionId"`
	TargetID  string        `json:"targetId"`
	StartedAt time.Time     `json:"startedAt"`
	Status    CaptureStatus `json:"status"`
	Profile   string        `json:"profile,omitempty"`

	MaxRuntimeMs int64  `json:"maxRuntimeMs,omitempty"`
	WorkerPID    int    `json:"workerPid,omitempty"`
	StopSignalPath string `json:"stopSignalPath,omitempty"`
	DonePath       string `json:"donePath,omitempty"`
	ResultPath     string `json:"resultPath,omitempty"`

	EndedAt  *time.Time `json:"endedAt,omitempty"`
	ActionID string     `json:"actionId,omitempty"`

	// RecordToken is an internal correlation field. Nothing in the module
	// sets it, and normalization keeps whatever value was read.
	RecordToken string `json:"recordToken,omitempty"`
}

// NetworkArtifact is a persisted export (spec §3).
type NetworkArtifact struct {
	ArtifactID string    `json:"artifactId"`
	CreatedAt  time.Time `json:"createdAt"`
	Format     string    `json:"format"`
	Path       string    `json:"path"`
	SessionID  string    `json:"sessionId"`
	TargetID   string    `json:"targetId,omitempty"`
	CaptureID  string    `json:"captureId,omitempty"`
	Entries    int       `json:"entries"`
	Bytes      int64     `json:"bytes"`

	// MirrorURL is set when the artifact was additionally uploaded to a
	// configured remote backend (SPEC_FULL.md §6 supplemental).
	MirrorURL string `json:"mirrorUrl,omitempty"`
}

// SurfwrightState is the root envelope persisted to <root>/state.json.
type SurfwrightState struct {
	Version int `json:"version"`

	ActiveSessionID string `json:"activeSessionId,omitempty"`

	NextSessionOrdinal  int `json:"nextSessionOrdinal"`
	NextCaptureOrdinal  int `json:"nextCaptureOrdinal"`
	NextArtifactOrdinal int `json:"nextArtifactOrdinal"`

	Sessions  map[string]Session         `json:"sessions"`
	Targets   map[string]Target          `json:"targets"`
	Captures  map[string]NetworkCapture  `json:"captures"`
	Artifacts map[string]NetworkArtifact `json:"artifacts"`
}

// Empty returns a zero-value state stamped with CurrentVersion and
// initialized maps, used whenever state.json is missing or malformed.
func Empty() SurfwrightState {
	return SurfwrightState{
		Version:             CurrentVersion,
		NextSessionOrdinal:  1,
		NextCaptureOrdinal:  1,
		NextArtifactOrdinal: 1,
		Sessions:            map[string]Session{},
		Targets:             map[string]Target{},
		Captures:            map[string]NetworkCapture{},
		Artifacts:           map[string]NetworkArtifact{},
	}
}
