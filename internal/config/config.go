// Package config resolves SurfWright's process-wide configuration from
// compiled-in defaults, an optional surfwright.json in the workspace root,
// and SURFWRIGHT_* environment variables, in ascending precedence.
//
// Grounded on the teacher's flag-based Options structs (internal/cmd) for
// the scalar-field, Complete/Validate/Run-adjacent idiom; no third-party
// config/merge library is pulled in here — see DESIGN.md.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Config is SurfWright's resolved process configuration.
type Config struct {
	// StateDir is the root directory holding state.json and state.lock.
	StateDir string `json:"stateDir,omitempty"`

	// WorkspaceDir is the root used for repo-local managed-session profiles.
	WorkspaceDir string `json:"workspaceDir,omitempty"`

	// StaleLockThreshold is how old a state.lock may be before it is
	// forcibly deleted as abandoned (spec §4.1, default >= 20s).
	StaleLockThreshold time.Duration `json:"staleLockThresholdMs,omitempty"`

	// LockRetryDeadline bounds how long update()/write() will retry
	// acquiring the state lock before failing with E_STATE_LOCK_TIMEOUT.
	LockRetryDeadline time.Duration `json:"lockRetryDeadlineMs,omitempty"`

	// CDPProbeTimeout and CDPProbeTimeoutFallback implement the two-stage
	// reachability probe from spec §4.2.
	CDPProbeTimeout         time.Duration `json:"cdpProbeTimeoutMs,omitempty"`
	CDPProbeTimeoutFallback time.Duration `json:"cdpProbeTimeoutFallbackMs,omitempty"`

	// BrowserCandidates overrides the ordered discovery list (spec §4.2).
	// When empty, the platform default list in session.DefaultCandidates
	// is used.
	BrowserCandidates []string `json:"browserCandidates,omitempty"`

	// LeaseTTLEphemeral/Persistent are the default lease TTLs per session
	// policy (spec §4.2). LeaseTTLImplicit is loaded but the session manager
	// does not apply it.
	LeaseTTLEphemeral  time.Duration `json:"leaseTtlEphemeralMs,omitempty"`
	LeaseTTLPersistent time.Duration `json:"leaseTtlPersistentMs,omitempty"`
	LeaseTTLImplicit   time.Duration `json:"leaseTtlImplicitMs,omitempty"`

	// GCSBucket is loaded from surfwright.json or SURFWRIGHT_GCS_BUCKET. No
	// command reads it: exported network artifacts are written only to the
	// local disk index, with no GCS mirror.
	GCSBucket string `json:"gcsBucket,omitempty"`
}

// Default returns the compiled-in baseline configuration.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		StateDir:                filepath.Join(home, ".surfwright"),
		WorkspaceDir:            ".",
		StaleLockThreshold:      20 * time.Second,
		LockRetryDeadline:       5 * time.Second,
		CDPProbeTimeout:         300 * time.Millisecond,
		CDPProbeTimeoutFallback: 2 * time.Second,
		LeaseTTLEphemeral:       6 * time.Hour,
		LeaseTTLPersistent:      30 * 24 * time.Hour,
		LeaseTTLImplicit:        10 * time.Minute,
	}
}

// Load resolves Config from defaults, an optional surfwright.json under
// workspaceDir (if non-empty and the file exists), and environment
// variables, in that order.
func Load() (Config, error) {
	cfg := Default()

	if ws := os.Getenv("SURFWRIGHT_WORKSPACE_DIR"); ws != "" {
		cfg.WorkspaceDir = ws
	}

	fileCfg, err := loadFile(filepath.Join(cfg.WorkspaceDir, "surfwright.json"))
	if err != nil {
		return Config{}, err
	}
	if fileCfg != nil {
		mergeFile(&cfg, fileCfg)
	}

	applyEnv(&cfg)

	return cfg, nil
}

type fileConfig struct {
	StateDir                string   `json:"stateDir"`
	StaleLockThresholdMs    int64    `json:"staleLockThresholdMs"`
	LockRetryDeadlineMs     int64    `json:"lockRetryDeadlineMs"`
	CDPProbeTimeoutMs       int64    `json:"cdpProbeTimeoutMs"`
	CDPProbeTimeoutFallback int64    `json:"cdpProbeTimeoutFallbackMs"`
	BrowserCandidates       []string `json:"browserCandidates"`
	LeaseTTLEphemeralMs     int64    `json:"leaseTtlEphemeralMs"`
	LeaseTTLPersistentMs    int64    `json:"leaseTtlPersistentMs"`
	LeaseTTLImplicitMs      int64    `json:"leaseTtlImplicitMs"`
	GCSBucket               string   `json:"gcsBucket"`
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

func mergeFile(cfg *Config, fc *fileConfig) {
	if fc.StateDir != "" {
		cfg.StateDir = fc.StateDir
	}
	if fc.StaleLockThresholdMs > 0 {
		cfg.StaleLockThreshold = time.Duration(fc.StaleLockThresholdMs) * time.Millisecond
	}
	if fc.LockRetryDeadlineMs > 0 {
		cfg.LockRetryDeadline = time.Duration(fc.LockRetryDeadlineMs) * time.Millisecond
	}
	if fc.CDPProbeTimeoutMs > 0 {
		cfg.CDPProbeTimeout = time.Duration(fc.CDPProbeTimeoutMs) * time.Millisecond
	}
	if fc.CDPProbeTimeoutFallback > 0 {
		cfg.CDPProbeTimeoutFallback = time.Duration(fc.CDPProbeTimeoutFallback) * time.Millisecond
	}
	if len(fc.BrowserCandidates) > 0 {
		cfg.BrowserCandidates = fc.BrowserCandidates
	}
	if fc.LeaseTTLEphemeralMs > 0 {
		cfg.LeaseTTLEphemeral = time.Duration(fc.LeaseTTLEphemeralMs) * time.Millisecond
	}
	if fc.LeaseTTLPersistentMs > 0 {
		cfg.LeaseTTLPersistent = time.Duration(fc.LeaseTTLPersistentMs) * time.Millisecond
	}
	if fc.LeaseTTLImplicitMs > 0 {
		cfg.LeaseTTLImplicit = time.Duration(fc.LeaseTTLImplicitMs) * time.Millisecond
	}
	if fc.GCSBucket != "" {
		cfg.GCSBucket = fc.GCSBucket
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SURFWRIGHT_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("SURFWRIGHT_GCS_BUCKET"); v != "" {
		cfg.GCSBucket = v
	}
}
