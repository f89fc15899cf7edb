// Package httpapi continues in server.go with the HTTP surface itself:
//
//	POST /pipelines        — enqueue a plan; returns a job id immediately
//	GET  /pipelines/{id}   — poll a pipeline job's status and result
//	POST /captures         — start a handle-based network capture
//	GET  /captures/{id}    — poll a capture job's status and result
//
// Grounded on internal/server/server.go's ServeMux + writeJSON/writeError
// shape, generalized from one resource (captures) to two (pipelines and
// captures) sharing one Job abstraction.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/surfwright/surfwright/internal/actions"
	"github.com/surfwright/surfwright/internal/network"
	"github.com/surfwright/surfwright/internal/pipeline"
	"github.com/surfwright/surfwright/internal/session"
	"github.com/surfwright/surfwright/internal/state"
)

// Server holds the dependencies shared across HTTP handlers.
type Server struct {
	store   Store
	st      *state.Store
	sess    *session.Manager
	runner  *actions.Runner
	mux     *http.ServeMux

	// workerSubcommand is the hidden subcommand network.Begin re-execs the
	// running binary with to spawn a detached capture worker.
	workerSubcommand string
}

// New creates a Server wired to the given job store, state store, session
// manager, and action runner.
func New(store Store, st *state.Store, sess *session.Manager, runner *actions.Runner, workerSubcommand string) *Server {
	s := &Server{
		store:            store,
		st:               st,
		sess:             sess,
		runner:           runner,
		workerSubcommand: workerSubcommand,
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /pipelines", s.handleCreatePipeline)
	s.mux.HandleFunc("GET /pipelines/{id}", s.handleGetJob)
	s.mux.HandleFunc("POST /captures", s.handleCreateCapture)
	s.mux.HandleFunc("GET /captures/{id}", s.handleGetJob)

	return s
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

// createPipelineRequest is the JSON body for POST /pipelines.
type createPipelineRequest struct {
	PlanJSON    string `json:"planJson"`
	SessionID   string `json:"sessionId,omitempty"`
	TargetID    string `json:"targetId,omitempty"`
	StateDir    string `json:"stateDir,omitempty"`
	Record      bool   `json:"record,omitempty"`
	RecordPath  string `json:"recordPath,omitempty"`
	RecordLabel string `json:"recordLabel,omitempty"`
}

type jobResponse struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

func (s *Server) handleCreatePipeline(w http.ResponseWriter, r *http.Request) {
	var req createPipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.PlanJSON == "" {
		writeError(w, http.StatusBadRequest, "planJson is required")
		return
	}

	job, err := s.store.Create(KindPipelineRun)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create job: "+err.Error())
		return
	}

	opts := pipeline.RunOptions{
		Acquire:     pipeline.AcquireOptions{PlanJSON: req.PlanJSON},
		SessionID:   req.SessionID,
		TargetID:    req.TargetID,
		StateDir:    req.StateDir,
		Record:      req.Record,
		RecordPath:  req.RecordPath,
		RecordLabel: req.RecordLabel,
	}

	// The request context is intentionally not used — the run must outlive
	// the HTTP connection that queued it.
	go RunPipeline(context.Background(), s.store, job.ID, s.runner, s.st, opts)

	writeJSON(w, http.StatusAccepted, jobResponse{ID: job.ID, Status: job.Status})
}

// createCaptureRequest is the JSON body for POST /captures.
type createCaptureRequest struct {
	SessionID      string           `json:"sessionId"`
	TargetID       string           `json:"targetId"`
	Profile        network.Profile  `json:"profile,omitempty"`
	MaxRuntimeMs   int64            `json:"maxRuntimeMs,omitempty"`
	RedactPatterns []string         `json:"redactPatterns,omitempty"`
	StateDir       string           `json:"stateDir"`
}

func (s *Server) handleCreateCapture(w http.ResponseWriter, r *http.Request) {
	var req createCaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SessionID == "" || req.TargetID == "" {
		writeError(w, http.StatusBadRequest, "sessionId and targetId are required")
		return
	}

	sess, ok := s.st.Read().Sessions[req.SessionID]
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	ensured, err := s.sess.EnsureReachable(r.Context(), sess)
	if err != nil {
		writeError(w, http.StatusBadGateway, "session unreachable: "+err.Error())
		return
	}
	probe := session.Probe(r.Context(), ensured.Session.CDPOrigin, 2*time.Second, 5*time.Second)
	if !probe.Reachable {
		writeError(w, http.StatusBadGateway, "failed to probe CDP endpoint")
		return
	}

	defaults := network.ResolveDefaults(req.Profile).Clamp()
	executable, err := os.Executable()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve running executable: "+err.Error())
		return
	}

	job, err := s.store.Create(KindNetworkCapture)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create job: "+err.Error())
		return
	}

	var cap *state.NetworkCapture
	var beginErr error
	_, err = state.Update(s.st, func(st *state.SurfwrightState) struct{} {
		cap, beginErr = network.Begin(st, req.SessionID, network.BeginOptions{
			StateDir:         req.StateDir,
			ExecutablePath:   executable,
			WorkerSubcommand: s.workerSubcommand,
			WebSocketURL:     probe.WebSocketDebuggerURL,
			TargetID:         req.TargetID,
			Profile:          req.Profile,
			Defaults:         defaults,
			RedactPatterns:   req.RedactPatterns,
			MaxRuntimeMs:     req.MaxRuntimeMs,
		})
		return struct{}{}
	})
	if err == nil {
		err = beginErr
	}
	if err != nil {
		_ = s.store.MarkFailed(job.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to start capture: "+err.Error())
		return
	}

	go WatchCapture(context.Background(), s.store, job.ID, *cap)

	writeJSON(w, http.StatusAccepted, jobResponse{ID: job.ID, Status: job.Status})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := s.store.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
