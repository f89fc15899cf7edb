package cdp

import (
	"context"

	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/errs"
)

// ValidateSelector runs document.querySelector(selector) inside pageCtx and
// maps any thrown DOMException to E_SELECTOR_INVALID, per spec §4.3. This
// must run before any selector-scoped operation (snapshot/find/click/fill).
func ValidateSelector(ctx context.Context, pageCtx context.Context, selector string) error {
	expr := "document.querySelector(" + jsStringLiteral(selector) + ")"

	var exceptionDetails *cdpruntime.ExceptionDetails
	err := chromedp.Run(pageCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, exc, err := cdpruntime.Evaluate(expr).WithReturnByValue(false).Do(ctx)
		exceptionDetails = exc
		return err
	}))
	if err != nil {
		return errs.Wrap(errs.CodeSelectorInvalid, err, "selector %q could not be evaluated", selector)
	}
	if exceptionDetails != nil {
		return errs.New(errs.CodeSelectorInvalid, "selector %q is invalid: %s", selector, exceptionDetails.Text)
	}
	return nil
}

// jsStringLiteral renders s as a single-quoted JavaScript string literal,
// escaping backslashes, quotes, and newlines.
func jsStringLiteral(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '\'':
			out = append(out, '\\', c)
		case '\n':
			out = append(out, '\\', 'n')
		default:
			out = append(out, c)
		}
	}
	out = append(out, '\'')
	return string(out)
}
