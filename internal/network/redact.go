package network

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/surfwright/surfwright/internal/errs"
)

// sensitiveHeaders is redacted unconditionally, regardless of caller
// patterns (spec §4.5).
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
}

const (
	maxRedactionPatterns  = 8
	maxRedactionPatternLen = 240
	redactedPlaceholder   = "[REDACTED]"
)

// Redactor applies the fixed sensitive-header list plus caller-supplied
// regexes to headers and post-data preview text.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor compiles caller patterns, enforcing the ≤8 patterns / ≤240
// chars each bound.
func NewRedactor(patterns []string) (*Redactor, error) {
	if len(patterns) > maxRedactionPatterns {
		return nil, errs.New(errs.CodeQueryInvalid, "at most %d redaction patterns allowed, got %d", maxRedactionPatterns, len(patterns))
	}
	r := &Redactor{}
	for _, p := range patterns {
		if utf8.RuneCountInString(p) > maxRedactionPatternLen {
			return nil, errs.New(errs.CodeQueryInvalid, "redaction pattern exceeds %d characters", maxRedactionPatternLen)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errs.Wrap(errs.CodeQueryInvalid, err, "invalid redaction pattern %q", p)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

// RedactHeaders returns a copy of headers with sensitive or pattern-matched
// values replaced.
func (r *Redactor) RedactHeaders(headers map[string][]string) map[string][]string {
	if headers == nil {
		return nil
	}
	out := make(map[string][]string, len(headers))
	for k, values := range headers {
		redactedKey := sensitiveHeaders[strings.ToLower(k)]
		copied := make([]string, len(values))
		for i, v := range values {
			if redactedKey || r.matchesAny(v) {
				copied[i] = redactedPlaceholder
			} else {
				copied[i] = v
			}
		}
		out[k] = copied
	}
	return out
}

// RedactPostData returns a preview of body, redacted if it matches a
// caller pattern, and base64-wrapped if it looks binary.
func (r *Redactor) RedactPostData(body string, maxChars int) string {
	if body == "" {
		return ""
	}
	if r.matchesAny(body) {
		return redactedPlaceholder
	}
	if !utf8.ValidString(body) || strings.ContainsRune(body, 0) {
		encoded := base64.StdEncoding.EncodeToString([]byte(body))
		if len(encoded) > maxChars {
			encoded = encoded[:maxChars]
		}
		return "base64:" + encoded
	}
	if maxChars > 0 && len(body) > maxChars {
		return body[:maxChars]
	}
	return body
}

func (r *Redactor) matchesAny(s string) bool {
	for _, re := range r.patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
