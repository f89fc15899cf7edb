package network

import (
	"fmt"
	"sort"
	"time"

	"github.com/chromedp/cdproto/har"
)

// ExportHAR assembles a har.HAR from records, generalizing
// internal/capture/har.go's assembleHAR/buildEntry into a function over the
// Network Engine's own Record shape rather than capture's completedEntry,
// and packing a `_surfwright` JSON blob into each entry's comment field so a
// HAR consumer can recover the internal request id and capture key.
func ExportHAR(records []Record, browserVersion, creatorVersion string) har.HAR {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h := har.HAR{
		Log: &har.Log{
			Version: "1.2",
			Browser: &har.Creator{Name: "Google Chrome", Version: orUnknown(browserVersion)},
			Creator: &har.Creator{Name: "surfwright", Version: orUnknown(creatorVersion)},
			Pages:   []*har.Page{},
			Entries: make([]*har.Entry, 0, len(sorted)),
		},
	}

	pageSeen := map[string]bool{}
	for _, r := range sorted {
		if !r.Navigation {
			continue
		}
		if pageSeen[r.ID] {
			continue
		}
		pageSeen[r.ID] = true
		h.Log.Pages = append(h.Log.Pages, &har.Page{
			ID:              "page_" + r.ID,
			StartedDateTime: time.UnixMilli(r.StartMs).UTC().Format(time.RFC3339Nano),
			Title:           r.URL,
			PageTimings:     &har.PageTimings{},
		})
	}

	for _, r := range sorted {
		entry := harEntry(r)
		h.Log.Entries = append(h.Log.Entries, &entry)
	}

	return h
}

func harEntry(r Record) har.Entry {
	pageref := ""
	if r.Navigation {
		pageref = "page_" + r.ID
	}
	entry := har.Entry{
		Pageref:         pageref,
		StartedDateTime: time.UnixMilli(r.StartMs).UTC().Format(time.RFC3339Nano),
		Time:            float64(r.DurationMs),
		Request: &har.Request{
			Method:      r.Method,
			URL:         r.URL,
			HTTPVersion: "",
			Headers:     nameValuePairs(r.RequestHeaders),
			QueryString: []*har.NameValuePair{},
			Cookies:     []*har.Cookie{},
			HeadersSize: -1,
			BodySize:    int64(len(r.PostDataPreview)),
		},
		Response: &har.Response{
			Status:      r.Status,
			HTTPVersion: "",
			Headers:     nameValuePairs(r.ResponseHeaders),
			Cookies:     []*har.Cookie{},
			Content: &har.Content{
				Size: r.BytesApprox,
			},
			HeadersSize: -1,
			BodySize:    r.BytesApprox,
		},
		Timings: &har.Timings{
			Blocked: -1,
			DNS:     -1,
			Connect: -1,
			Send:    -1,
			Wait:    float64(r.TTFBMs),
			Receive: float64(r.DurationMs) - float64(r.TTFBMs),
		},
		Comment: surfwrightComment(r),
	}
	if entry.Timings.Receive < 0 {
		entry.Timings.Receive = -1
	}
	return entry
}

// surfwrightComment packs the fields HAR 1.2 has no slot for (internal id,
// capture key, action id, resource type, ok/failure) into the entry's
// free-form Comment field as a small JSON blob — the `_surfwright`
// extension a downstream consumer can parse back out.
func surfwrightComment(r Record) string {
	return fmt.Sprintf(
		`{"id":%q,"captureKey":%q,"actionId":%q,"resourceType":%q,"ok":%t,"failure":%q}`,
		r.ID, r.CaptureKey, r.ActionID, r.ResourceType, r.OK, r.Failure,
	)
}

func nameValuePairs(headers map[string][]string) []*har.NameValuePair {
	pairs := make([]*har.NameValuePair, 0, len(headers))
	for name, values := range headers {
		for _, v := range values {
			pairs = append(pairs, &har.NameValuePair{Name: name, Value: v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })
	return pairs
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
