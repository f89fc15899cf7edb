// Package network implements the Network Engine (spec §4.5): synchronous,
// handle-based, and tail network capture over CDP, profile presets,
// filters, redaction, HAR export, budget checks, and artifact pruning.
//
// Grounded on internal/capture's request/response correlation
// (requestStore, completedEntry) and HAR assembly (assembleHAR/buildEntry),
// generalized from "capture once, emit one HAR" into a capture session that
// can be queried as raw/summary/table/HAR across any of the three modes.
package network

import "github.com/chromedp/cdproto/network"

// Record is one per-request entry, bounded to the fields spec §4.5 names.
type Record struct {
	ID                string `json:"id"`
	CaptureKey         string `json:"captureKey"`
	ActionID           string `json:"actionId,omitempty"`
	RedirectedFromID   string `json:"redirectedFromId,omitempty"`
	URL                string `json:"url"`
	Method             string `json:"method"`
	ResourceType       string `json:"resourceType"`
	Navigation         bool   `json:"navigation"`
	StartMs            int64  `json:"startMs"`
	EndMs              int64  `json:"endMs,omitempty"`
	DurationMs         int64  `json:"durationMs,omitempty"`
	TTFBMs             int64  `json:"ttfbMs,omitempty"`
	Status             int64  `json:"status,omitempty"`
	OK                 bool   `json:"ok"`
	Failure            string `json:"failure,omitempty"`
	BytesApprox        int64  `json:"bytesApprox,omitempty"`

	RequestHeaders  map[string][]string `json:"requestHeaders,omitempty"`
	ResponseHeaders map[string][]string `json:"responseHeaders,omitempty"`
	PostDataPreview string              `json:"postDataPreview,omitempty"`

	requestID network.RequestID
}

// pendingRequest mirrors internal/capture's pendingRequest, widened with the
// fields the Network Engine's richer Record needs.
type pendingRequest struct {
	requestID    network.RequestID
	method       string
	url          string
	headers      network.Headers
	resourceType network.ResourceType
	postData     string
	navigation   bool
	startWall    int64 // ms since capture epoch
	redirectedFromID network.RequestID
}

// wsMessage is one captured WebSocket frame (spec §4.5's WS hotspots).
type wsMessage struct {
	requestID network.RequestID
	atMs      int64
	bytes     int
}
