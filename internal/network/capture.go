package network

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/errs"
)

// Session owns one capture run: it listens for CDP network events over a
// page context, correlates request/response pairs, applies filters and
// redaction on the fly, and accumulates bounded Records. Listen subscribes
// to no WebSocket events, so the WS message buffer is filled only through
// RecordWSMessage, which nothing in the module calls.
//
// Grounded directly on internal/capture's requestStore/collector pair
// (events.go, collector.go), generalized from "one document load, one HAR"
// into "accumulate until told to stop" so the same type backs synchronous,
// handle-based, and tail capture.
type Session struct {
	epoch    time.Time
	defaults Defaults
	filter   Filter
	redactor *Redactor

	mu         sync.Mutex
	pending    map[network.RequestID]pendingRequest
	records    []Record
	wsMsgs     []wsMessage
	actionID   string
	captureKey string

	// onRecord, when set, is invoked outside the lock each time a record is
	// inserted or updated — the hook network-tail streams NDJSON lines from.
	onRecord func(Record)
}

// OnRecord installs a streaming callback invoked on every insert/update.
func (s *Session) OnRecord(fn func(Record)) {
	s.mu.Lock()
	s.onRecord = fn
	s.mu.Unlock()
}

// SetCaptureKey stamps every record this session produces with key — the
// caller-correlatable id for this capture run (a capture id for
// handle-based mode, or a synthesized key for one-shot synchronous/tail
// runs).
func (s *Session) SetCaptureKey(key string) {
	s.mu.Lock()
	s.captureKey = key
	s.mu.Unlock()
}

// NewSession creates a capture session. epoch anchors StartMs/EndMs to 0.
func NewSession(epoch time.Time, defaults Defaults, filter Filter, redactor *Redactor, actionID string) *Session {
	if redactor == nil {
		redactor, _ = NewRedactor(nil)
	}
	return &Session{
		epoch:    epoch,
		defaults: defaults.Clamp(),
		filter:   filter,
		redactor: redactor,
		pending:  map[network.RequestID]pendingRequest{},
		actionID: actionID,
	}
}

// Listen registers s's CDP event handlers against pageCtx; they stay
// registered for the life of pageCtx. Safe to call once per Session.
func (s *Session) Listen(pageCtx context.Context) {
	chromedp.ListenTarget(pageCtx, func(ev any) {
		switch ev := ev.(type) {
		case *network.EventRequestWillBeSent:
			s.onRequest(ev)
		case *network.EventResponseReceived:
			s.onResponseReceived(ev)
		case *network.EventLoadingFinished:
			s.onLoadingFinished(ev)
		case *network.EventLoadingFailed:
			s.onLoadingFailed(ev)
		}
	})
}

func (s *Session) onRequest(ev *network.EventRequestWillBeSent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending)+len(s.records) >= s.defaults.MaxRequests {
		return
	}
	redirectedFrom := network.RequestID("")
	if ev.RedirectResponse != nil {
		redirectedFrom = ev.RequestID
	}
	s.pending[ev.RequestID] = pendingRequest{
		requestID:        ev.RequestID,
		method:           ev.Request.Method,
		url:              ev.Request.URL,
		headers:          ev.Request.Headers,
		resourceType:     ev.Type,
		postData:         ev.Request.PostData,
		navigation:       ev.Type == network.ResourceTypeDocument,
		startWall:        ev.WallTime.Time().Sub(s.epoch).Milliseconds(),
		redirectedFromID: redirectedFrom,
	}
}

// onResponseReceived stashes the response status as an interim record;
// EventLoadingFinished/Failed later fills in duration and byte count. The
// request stays in s.pending until one of those terminal events arrives.
func (s *Session) onResponseReceived(ev *network.EventResponseReceived) {
	s.mu.Lock()
	req, ok := s.pending[ev.RequestID]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.upsert(s.buildRecord(req, ev, 0, true, ""))
}

func (s *Session) onLoadingFinished(ev *network.EventLoadingFinished) {
	s.mu.Lock()
	req, ok := s.pending[ev.RequestID]
	if ok {
		delete(s.pending, ev.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.finalize(req, ev.RequestID, int64(ev.EncodedDataLength), true, "")
}

func (s *Session) onLoadingFailed(ev *network.EventLoadingFailed) {
	s.mu.Lock()
	req, ok := s.pending[ev.RequestID]
	if ok {
		delete(s.pending, ev.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.finalize(req, ev.RequestID, 0, false, ev.ErrorText)
}

func (s *Session) finalize(req pendingRequest, id network.RequestID, bytes int64, ok bool, failure string) {
	endMs := time.Since(s.epoch).Milliseconds()
	rec := Record{
		ID:               string(id),
		CaptureKey:       s.captureKey,
		ActionID:         s.actionID,
		RedirectedFromID: string(req.redirectedFromID),
		URL:              req.url,
		Method:           req.method,
		ResourceType:     string(req.resourceType),
		Navigation:       req.navigation,
		StartMs:          req.startWall,
		EndMs:            endMs,
		DurationMs:       endMs - req.startWall,
		Status:           0,
		OK:               ok,
		Failure:          failure,
		BytesApprox:      bytes,
		requestID:        id,
	}
	if s.defaults.IncludeHeaders {
		rec.RequestHeaders = s.redactor.RedactHeaders(headersToMap(req.headers))
	}
	if s.defaults.IncludePostData {
		rec.PostDataPreview = s.redactor.RedactPostData(req.postData, 2048)
	}
	s.upsert(rec)
}

// buildRecord produces an interim record at response-received time (status
// known, byte count and duration not yet final).
func (s *Session) buildRecord(req pendingRequest, ev *network.EventResponseReceived, bytes int64, ok bool, failure string) Record {
	rec := Record{
		ID:           string(ev.RequestID),
		CaptureKey:   s.captureKey,
		ActionID:     s.actionID,
		URL:          req.url,
		Method:       req.method,
		ResourceType: string(req.resourceType),
		Navigation:   req.navigation,
		StartMs:      req.startWall,
		Status:       ev.Response.Status,
		OK:           ok,
		Failure:      failure,
		BytesApprox:  bytes,
		requestID:    ev.RequestID,
	}
	if ev.Response.Timing != nil && ev.Response.Timing.ReceiveHeadersStart >= 0 {
		rec.TTFBMs = int64(ev.Response.Timing.ReceiveHeadersStart)
	}
	if s.defaults.IncludeHeaders {
		rec.ResponseHeaders = s.redactor.RedactHeaders(headersToMap(ev.Response.Headers))
	}
	return rec
}

// upsert merges a record into s.records by request id (the response-received
// interim record and the loading-finished final record share an id) and
// applies the session filter before keeping it.
func (s *Session) upsert(rec Record) {
	if !s.filter.Match(rec) {
		return
	}
	s.mu.Lock()
	var emit Record
	shouldEmit := false
	for i := range s.records {
		if s.records[i].ID == rec.ID {
			merged := s.records[i]
			if rec.Status != 0 {
				merged.Status = rec.Status
				merged.TTFBMs = rec.TTFBMs
				merged.ResponseHeaders = rec.ResponseHeaders
			}
			if rec.EndMs != 0 {
				merged.EndMs = rec.EndMs
				merged.DurationMs = rec.DurationMs
				merged.BytesApprox = rec.BytesApprox
				merged.OK = rec.OK
				merged.Failure = rec.Failure
			}
			s.records[i] = merged
			emit, shouldEmit = merged, s.onRecord != nil
			s.mu.Unlock()
			if shouldEmit {
				s.onRecord(emit)
			}
			return
		}
	}
	if len(s.records) >= s.defaults.MaxRequests {
		s.mu.Unlock()
		return
	}
	s.records = append(s.records, rec)
	emit, shouldEmit = rec, s.onRecord != nil
	s.mu.Unlock()
	if shouldEmit {
		s.onRecord(emit)
	}
}

// RecordWSMessage appends a WebSocket frame observation, capped at
// MaxWSMessages.
func (s *Session) RecordWSMessage(id network.RequestID, atMs int64, bytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.wsMsgs) >= s.defaults.MaxWSMessages {
		return
	}
	s.wsMsgs = append(s.wsMsgs, wsMessage{requestID: id, atMs: atMs, bytes: bytes})
}

// Records returns a stable-ordered snapshot of everything captured so far,
// sorted by StartMs then ID for determinism.
func (s *Session) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartMs != out[j].StartMs {
			return out[i].StartMs < out[j].StartMs
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// WSMessageCount returns the number of captured WebSocket frames.
func (s *Session) WSMessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wsMsgs)
}

func headersToMap(h network.Headers) map[string][]string {
	out := map[string][]string{}
	for k, v := range map[string]any(h) {
		if arr, ok := v.([]string); ok {
			out[k] = arr
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = []string{s}
		}
	}
	return out
}

// ValidateCaptureMs validates a requested capture window against the
// hard ceiling implied by profile defaults; the caller-supplied window may
// not exceed 5x the profile's own default, preventing an unbounded
// "capture forever" request.
func ValidateCaptureMs(requested int64, profileDefault int64) error {
	if requested <= 0 {
		return nil
	}
	ceiling := profileDefault * 5
	if ceiling <= 0 {
		ceiling = 60_000
	}
	if requested > ceiling {
		return errs.New(errs.CodeQueryInvalid, "requested captureMs %d exceeds ceiling %d for this profile", requested, ceiling)
	}
	return nil
}
