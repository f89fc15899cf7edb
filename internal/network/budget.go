package network

import "fmt"

// Budget is a set of pass/fail ceilings a capture can be checked against
// after the fact (spec §4.5).
type Budget struct {
	MaxP95LatencyMs    int64 `json:"maxP95LatencyMs,omitempty"`
	MaxErrorRate       float64 `json:"maxErrorRate,omitempty"`
	MaxBytesApproxTotal int64 `json:"maxBytesApproxTotal,omitempty"`
	MaxWSMessages      int   `json:"maxWsMessages,omitempty"`
	MaxRequests        int   `json:"maxRequests,omitempty"`
}

// BudgetViolation names one ceiling a capture exceeded.
type BudgetViolation struct {
	Field    string  `json:"field"`
	Limit    float64 `json:"limit"`
	Observed float64 `json:"observed"`
}

// BudgetResult is the outcome of checking a Summary/record-set against a
// Budget.
type BudgetResult struct {
	Passed     bool              `json:"passed"`
	Violations []BudgetViolation `json:"violations,omitempty"`
}

// CheckBudget evaluates b against records and their summary projection.
func CheckBudget(b Budget, records []Record, summary Summary, wsMessageCount int) BudgetResult {
	var violations []BudgetViolation

	if b.MaxP95LatencyMs > 0 && summary.Latency.P95 > b.MaxP95LatencyMs {
		violations = append(violations, BudgetViolation{"maxP95LatencyMs", float64(b.MaxP95LatencyMs), float64(summary.Latency.P95)})
	}

	if b.MaxErrorRate > 0 {
		rate := errorRate(records)
		if rate > b.MaxErrorRate {
			violations = append(violations, BudgetViolation{"maxErrorRate", b.MaxErrorRate, rate})
		}
	}

	if b.MaxBytesApproxTotal > 0 {
		var total int64
		for _, r := range records {
			total += r.BytesApprox
		}
		if total > b.MaxBytesApproxTotal {
			violations = append(violations, BudgetViolation{"maxBytesApproxTotal", float64(b.MaxBytesApproxTotal), float64(total)})
		}
	}

	if b.MaxWSMessages > 0 && wsMessageCount > b.MaxWSMessages {
		violations = append(violations, BudgetViolation{"maxWsMessages", float64(b.MaxWSMessages), float64(wsMessageCount)})
	}

	if b.MaxRequests > 0 && len(records) > b.MaxRequests {
		violations = append(violations, BudgetViolation{"maxRequests", float64(b.MaxRequests), float64(len(records))})
	}

	return BudgetResult{Passed: len(violations) == 0, Violations: violations}
}

func errorRate(records []Record) float64 {
	if len(records) == 0 {
		return 0
	}
	var failed int
	for _, r := range records {
		if !r.OK {
			failed++
		}
	}
	return float64(failed) / float64(len(records))
}

// Describe renders a violation as a one-line human message.
func (v BudgetViolation) Describe() string {
	return fmt.Sprintf("%s: observed %.2f exceeds limit %.2f", v.Field, v.Observed, v.Limit)
}
