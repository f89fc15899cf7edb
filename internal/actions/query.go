package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/errs"
)

// Query identifies the single locator mode a step uses to find elements
// (spec §4.4: find/click/fill all share one query). Exactly one of Text,
// Contains, Selector drives the search; Contains may additionally refine
// Selector.
type Query struct {
	Text     string
	Contains string
	Selector string
}

// CSS renders q as the selector chromedp.Nodes should run, defaulting to a
// broad scan when only text/contains is supplied.
func (q Query) CSS() string {
	if q.Selector != "" {
		return q.Selector
	}
	return "body *"
}

// Validate enforces "exactly one of text/contains/selector" (spec §4.4),
// except that contains may refine selector.
func (q Query) Validate() error {
	set := 0
	if q.Text != "" {
		set++
	}
	if q.Selector != "" {
		set++
	}
	if set == 0 && q.Contains == "" {
		return errs.New(errs.CodeQueryInvalid, "exactly one of --text, --contains, or --selector is required")
	}
	if q.Text != "" && q.Selector != "" {
		return errs.New(errs.CodeQueryInvalid, "--text and --selector are mutually exclusive")
	}
	if q.Text != "" && q.Contains != "" {
		return errs.New(errs.CodeQueryInvalid, "--text and --contains are mutually exclusive")
	}
	return nil
}

// Match is one located element, bounded per spec §4.4's per-match fields.
type Match struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	Visible      bool   `json:"visible"`
	SelectorHint string `json:"selectorHint"`
	HrefHost     string `json:"hrefHost,omitempty"`
	HrefPath     string `json:"hrefPath,omitempty"`

	nodeID cdp.NodeID
}

// MatchFilter narrows a candidate set before matches are built.
type MatchFilter struct {
	VisibleOnly     bool
	HrefHost        string
	HrefPathPrefix  string
}

const maxMatchTextChars = 180

// locate runs q against pageCtx and returns up to limit matches, in document
// order, each carrying a stable selector hint (spec §4.4: `tag#id.class1.class2`).
func locate(ctx context.Context, pageCtx context.Context, q Query, filter MatchFilter, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 12
	}

	var nodes []*cdp.Node
	err := chromedp.Run(pageCtx, chromedp.Nodes(q.CSS(), &nodes, chromedp.ByQueryAll))
	if err != nil {
		return nil, errs.Wrap(errs.CodeCDPInvalid, err, "failed to query nodes")
	}

	var matches []Match
	for i, n := range nodes {
		text := strings.TrimSpace(nodeText(n))
		if q.Text != "" && !strings.EqualFold(text, q.Text) {
			continue
		}
		if q.Contains != "" && !strings.Contains(strings.ToLower(text), strings.ToLower(q.Contains)) {
			continue
		}

		visible := nodeVisible(ctx, pageCtx, n)
		if filter.VisibleOnly && !visible {
			continue
		}

		host, path := hrefParts(n)
		if filter.HrefHost != "" && host != filter.HrefHost {
			continue
		}
		if filter.HrefPathPrefix != "" && !strings.HasPrefix(path, filter.HrefPathPrefix) {
			continue
		}

		matches = append(matches, Match{
			Index:        i,
			Text:         truncate(text, maxMatchTextChars),
			Visible:      visible,
			SelectorHint: selectorHint(n),
			HrefHost:     host,
			HrefPath:     path,
			nodeID:       n.NodeID,
		})

		if len(matches) >= limit {
			break
		}
	}

	return matches, nil
}

// nodeText joins the trimmed text content of n's text-node descendants.
func nodeText(n *cdp.Node) string {
	if n.NodeType == cdp.NodeTypeText {
		return n.NodeValue
	}
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(nodeText(c))
		b.WriteByte(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// nodeVisible asks the page whether n currently occupies layout space and
// isn't hidden via CSS (offsetWidth/offsetHeight/visibility).
func nodeVisible(ctx context.Context, pageCtx context.Context, n *cdp.Node) bool {
	var visible bool
	expr := fmt.Sprintf(`(function(){
		var el = document.querySelector(%s);
		if (!el) return false;
		var r = el.getBoundingClientRect();
		var style = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && style.visibility !== 'hidden' && style.display !== 'none';
	})()`, jsStringLiteral(selectorHint(n)))
	_ = chromedp.Run(pageCtx, chromedp.Evaluate(expr, &visible))
	return visible
}

// selectorHint builds a best-effort stable selector of the form
// tag#id.class1.class2 (spec §4.4).
func selectorHint(n *cdp.Node) string {
	if n == nil {
		return ""
	}
	tag := strings.ToLower(n.NodeName)
	var id, classAttr string
	for i := 0; i+1 < len(n.Attributes); i += 2 {
		switch n.Attributes[i] {
		case "id":
			id = n.Attributes[i+1]
		case "class":
			classAttr = n.Attributes[i+1]
		}
	}

	hint := tag
	if id != "" {
		hint += "#" + id
	}
	if classAttr != "" {
		for _, c := range strings.Fields(classAttr) {
			hint += "." + c
		}
	}
	return hint
}

// jsStringLiteral renders s as a JavaScript string literal (JSON string
// syntax is valid JavaScript).
func jsStringLiteral(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// truncate cuts s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// hrefParts extracts the host and path of an anchor's href attribute, if
// present.
func hrefParts(n *cdp.Node) (host, path string) {
	for i := 0; i+1 < len(n.Attributes); i += 2 {
		if n.Attributes[i] != "href" {
			continue
		}
		href := n.Attributes[i+1]
		if idx := strings.Index(href, "://"); idx >= 0 {
			rest := href[idx+3:]
			if slash := strings.Index(rest, "/"); slash >= 0 {
				return rest[:slash], rest[slash:]
			}
			return rest, "/"
		}
		return "", href
	}
	return "", ""
}
