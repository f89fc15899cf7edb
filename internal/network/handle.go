package network

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/surfwright/surfwright/internal/errs"
	"github.com/surfwright/surfwright/internal/state"
)

// WorkerEnvPrefix is not read anywhere: a re-exec'd network worker process
// takes its job from the file passed via --job-path (see WorkerJob). The
// worker mirrors session/launch.go's "spawn
// detached, talk through files" idiom, generalized from a browser process to
// a capture worker since a handle-based capture must outlive the CLI
// invocation that started it (spec §4.5's `network-begin`/`network-end`).
const WorkerEnvPrefix = "SURFWRIGHT_NETWORK_WORKER_"

// WorkerJob is the file-serialized instruction a network worker process
// reads from its --job-path flag on startup.
type WorkerJob struct {
	CaptureID      string   `json:"captureId"`
	WebSocketURL   string   `json:"webSocketUrl"`
	TargetID       string   `json:"targetId"`
	Profile        Profile  `json:"profile"`
	Defaults       Defaults `json:"defaults"`
	Filter         Filter   `json:"filter"`
	RedactPatterns []string `json:"redactPatterns"`
	MaxRuntimeMs   int64    `json:"maxRuntimeMs"`
	StopSignalPath string   `json:"stopSignalPath"`
	DonePath       string   `json:"donePath"`
	ResultPath     string   `json:"resultPath"`
}

// BeginOptions configures launching a handle-based background capture.
type BeginOptions struct {
	StateDir        string
	ExecutablePath  string // os.Executable() of the running surfwright binary
	WorkerSubcommand string // e.g. "__network-worker"
	WebSocketURL    string
	TargetID        string
	Profile         Profile
	Defaults        Defaults
	Filter          Filter
	RedactPatterns  []string
	MaxRuntimeMs    int64
}

// Begin allocates a capture id, writes its job file, and spawns a detached
// worker process that captures until StopSignalPath appears or MaxRuntimeMs
// elapses. Reaching the profile's caps does not stop the worker; records
// past the caps are dropped.
func Begin(st *state.SurfwrightState, sessionID string, opts BeginOptions) (*state.NetworkCapture, error) {
	captureID := state.AllocateCaptureID(st)
	dir := filepath.Join(opts.StateDir, "captures", captureID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.CodeStateLockIO, err, "failed to create capture directory %q", dir)
	}

	job := WorkerJob{
		CaptureID:      captureID,
		WebSocketURL:   opts.WebSocketURL,
		TargetID:       opts.TargetID,
		Profile:        opts.Profile,
		Defaults:       opts.Defaults,
		Filter:         opts.Filter,
		RedactPatterns: opts.RedactPatterns,
		MaxRuntimeMs:   opts.MaxRuntimeMs,
		StopSignalPath: filepath.Join(dir, "stop"),
		DonePath:       filepath.Join(dir, "done"),
		ResultPath:     filepath.Join(dir, "result.json"),
	}

	jobPath := filepath.Join(dir, "job.json")
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "failed to marshal worker job")
	}
	if err := os.WriteFile(jobPath, jobBytes, 0o644); err != nil {
		return nil, errs.Wrap(errs.CodeStateLockIO, err, "failed to write worker job file")
	}

	cmd := exec.Command(opts.ExecutablePath, opts.WorkerSubcommand, "--job-path="+jobPath)
	detachWorker(cmd)
	if err := cmd.Start(); err != nil {
		return nil, errs.Wrap(errs.CodeBrowserStartFailed, err, "failed to start network worker process")
	}

	now := time.Now()
	capture := state.NetworkCapture{
		CaptureID:      captureID,
		SessionID:      sessionID,
		TargetID:       opts.TargetID,
		StartedAt:      now,
		Status:         state.CaptureRecording,
		Profile:        string(opts.Profile),
		MaxRuntimeMs:   opts.MaxRuntimeMs,
		WorkerPID:      cmd.Process.Pid,
		StopSignalPath: job.StopSignalPath,
		DonePath:       job.DonePath,
		ResultPath:     job.ResultPath,
	}
	st.Captures[captureID] = capture
	return &capture, nil
}

// RequestStop signals a running worker to stop by touching its stop-signal
// file; the worker polls for this file's existence.
func RequestStop(cap state.NetworkCapture) error {
	f, err := os.Create(cap.StopSignalPath)
	if err != nil {
		return errs.Wrap(errs.CodeStateLockIO, err, "failed to write stop signal for capture %q", cap.CaptureID)
	}
	return f.Close()
}

// IsDone reports whether the worker has finished (done marker present).
func IsDone(cap state.NetworkCapture) bool {
	_, err := os.Stat(cap.DonePath)
	return err == nil
}

// WorkerResult is what a network worker writes to its ResultPath on exit.
type WorkerResult struct {
	Records  []Record `json:"records"`
	TimedOut bool     `json:"timedOut"`
	Error    string   `json:"error,omitempty"`
}

// ReadResult loads a finished worker's result file. Callers should first
// confirm IsDone.
func ReadResult(cap state.NetworkCapture) (*WorkerResult, error) {
	data, err := os.ReadFile(cap.ResultPath)
	if err != nil {
		return nil, errs.Wrap(errs.CodeCaptureNotFound, err, "result file missing for capture %q", cap.CaptureID)
	}
	var res WorkerResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "malformed result file for capture %q", cap.CaptureID)
	}
	return &res, nil
}

// ReadJob loads a WorkerJob from the path a worker process is started with.
// This is the counterpart consumed by the worker subcommand's entrypoint.
func ReadJob(jobPath string) (*WorkerJob, error) {
	data, err := os.ReadFile(jobPath)
	if err != nil {
		return nil, fmt.Errorf("network worker: failed to read job file %q: %w", jobPath, err)
	}
	var job WorkerJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("network worker: malformed job file %q: %w", jobPath, err)
	}
	return &job, nil
}

// WriteResult is the worker subcommand's counterpart to ReadResult: write
// the final records, then touch DonePath so the poller notices completion.
func WriteResult(job WorkerJob, result WorkerResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("network worker: failed to marshal result: %w", err)
	}
	if err := os.WriteFile(job.ResultPath, data, 0o644); err != nil {
		return fmt.Errorf("network worker: failed to write result file: %w", err)
	}
	done, err := os.Create(job.DonePath)
	if err != nil {
		return fmt.Errorf("network worker: failed to write done marker: %w", err)
	}
	return done.Close()
}

// StopRequested polls for the stop-signal file the worker's own capture
// loop checks on its tick interval.
func StopRequested(job WorkerJob) bool {
	_, err := os.Stat(job.StopSignalPath)
	return err == nil
}
