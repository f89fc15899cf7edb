package network

import "strings"

// Filter narrows which records a capture session keeps or a query returns
// (spec §4.5).
type Filter struct {
	URLContains   string
	Methods       []string
	ResourceTypes []string
	StatusCodes   []int64
	StatusClass   string // "2xx", "3xx", "4xx", "5xx"
	FailedOnly    bool
}

// Match reports whether r satisfies f. An empty Filter matches everything.
func (f Filter) Match(r Record) bool {
	if f.URLContains != "" && !strings.Contains(strings.ToLower(r.URL), strings.ToLower(f.URLContains)) {
		return false
	}
	if len(f.Methods) > 0 && !containsFold(f.Methods, r.Method) {
		return false
	}
	if len(f.ResourceTypes) > 0 && !containsFold(f.ResourceTypes, r.ResourceType) {
		return false
	}
	if len(f.StatusCodes) > 0 && !containsInt64(f.StatusCodes, r.Status) {
		return false
	}
	if f.StatusClass != "" && statusClass(r.Status) != f.StatusClass {
		return false
	}
	if f.FailedOnly && r.OK {
		return false
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func containsInt64(haystack []int64, needle int64) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

func statusClass(status int64) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}
