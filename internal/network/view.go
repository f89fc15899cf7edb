package network

// View selects how a capture's records are projected for display (spec
// §4.5).
type View string

const (
	ViewRaw     View = "raw"
	ViewSummary View = "summary"
	ViewTable   View = "table"
)

const maxTableRows = 200

// TableRow is one flattened row of the `table` view.
type TableRow struct {
	ID         string `json:"id"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	Status     int64  `json:"status"`
	DurationMs int64  `json:"durationMs"`
	OK         bool   `json:"ok"`
}

// Project renders records under the requested view. raw returns records
// unmodified (capped implicitly by the session's MaxRequests); summary
// returns a Summary; table returns up to the first 200 rows.
func Project(view View, records []Record, truncated bool) any {
	switch view {
	case ViewSummary:
		return Summarize(records, truncated)
	case ViewTable:
		return tableRows(records)
	case ViewRaw:
		fallthrough
	default:
		return records
	}
}

func tableRows(records []Record) []TableRow {
	limit := len(records)
	if limit > maxTableRows {
		limit = maxTableRows
	}
	rows := make([]TableRow, 0, limit)
	for _, r := range records[:limit] {
		rows = append(rows, TableRow{
			ID:         r.ID,
			Method:     r.Method,
			URL:        r.URL,
			Status:     r.Status,
			DurationMs: r.DurationMs,
			OK:         r.OK,
		})
	}
	return rows
}
