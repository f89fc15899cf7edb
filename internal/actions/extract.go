package actions

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/surfwright/surfwright/internal/cdp"
	"github.com/surfwright/surfwright/internal/errs"
)

// ExtractKind selects the heuristic extraction recipe (spec §4.4).
type ExtractKind string

const (
	ExtractGeneric      ExtractKind = "generic"
	ExtractBlog         ExtractKind = "blog"
	ExtractNews         ExtractKind = "news"
	ExtractDocs         ExtractKind = "docs"
	ExtractDocsCommands ExtractKind = "docs-commands"
	ExtractCommandLines ExtractKind = "command-lines"
	ExtractHeadings     ExtractKind = "headings"
	ExtractLinks        ExtractKind = "links"
	ExtractCodeblocks   ExtractKind = "codeblocks"
	ExtractForms        ExtractKind = "forms"
	ExtractTables       ExtractKind = "tables"
	ExtractTableRows    ExtractKind = "table-rows"
)

// feedFallbackKinds supports falling back to discoverable feeds on an empty
// result (spec §4.4).
var feedFallbackKinds = map[ExtractKind]bool{
	ExtractGeneric: true,
	ExtractBlog:    true,
	ExtractNews:    true,
	ExtractDocs:    true,
}

// heuristicSelectors names the CSS selector each kind scans for candidate
// records, grounded on common article/docs markup conventions.
var heuristicSelectors = map[ExtractKind]string{
	ExtractGeneric:      "article, main, [role=main]",
	ExtractBlog:         "article, .post, .blog-post",
	ExtractNews:         "article, .story, .article-body",
	ExtractDocs:         "article, .doc, .documentation, main",
	ExtractDocsCommands: "pre code, .command, .cli-command",
	ExtractCommandLines: "pre code, code.language-bash, code.language-shell",
	ExtractHeadings:     "h1, h2, h3, h4, h5, h6",
	ExtractLinks:        "a[href]",
	ExtractCodeblocks:   "pre code, pre",
	ExtractForms:        "form",
	ExtractTables:       "table",
	ExtractTableRows:    "table tr",
}

// ExtractRequest configures the extract action.
type ExtractRequest struct {
	Request
	Kind        ExtractKind
	FrameScope  cdp.FrameScope
	SchemaField map[string]string // outputField -> record.path
	DedupeBy    string
}

// ExtractRecord is one extracted, structural record.
type ExtractRecord struct {
	URL    string         `json:"url"`
	Title  string         `json:"title"`
	Text   string         `json:"text"`
	Source string         `json:"source,omitempty"` // "api-feed" on fallback
	Fields map[string]any `json:"fields,omitempty"`
}

// ExtractData is the extract action's payload.
type ExtractData struct {
	Kind    string          `json:"kind"`
	Records []ExtractRecord `json:"records"`
	Count   int             `json:"count"`
}

// Extract implements spec §4.4's extract action: a kind-specific heuristic
// selector evaluated against the top-level document once for each frame in
// scope (child frame documents are not searched), deduped by (url, title)
// lowercased, optionally remapped through a schema, falling back to
// discoverable feeds for generic/blog/news/docs on an empty result.
func (r *Runner) Extract(ctx context.Context, req ExtractRequest) (*Report, error) {
	selector, ok := heuristicSelectors[req.Kind]
	if !ok {
		return nil, errs.New(errs.CodeQueryInvalid, "unknown extract kind %q", req.Kind)
	}

	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var data ExtractData
	err = measure(&pro.timing.action, func() error {
		frames, err := cdp.FrameTree(ctx, pro.resolved.PageCtx, req.FrameScope)
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			frames = []cdp.Frame{{ID: "f-0"}}
		}

		var records []ExtractRecord
		for range frames {
			frameRecords, err := extractFromSelector(pro.resolved.PageCtx, selector)
			if err != nil {
				return err
			}
			records = append(records, frameRecords...)
		}

		records = dedupeRecords(records)

		if len(records) == 0 && feedFallbackKinds[req.Kind] {
			feedRecords, err := discoverFeeds(pro.resolved.PageCtx)
			if err == nil {
				records = feedRecords
			}
		}

		if len(req.SchemaField) > 0 {
			records = applySchema(records, req.SchemaField)
		}
		if req.DedupeBy != "" {
			records = dedupeByField(records, req.DedupeBy)
		}

		data = ExtractData{Kind: string(req.Kind), Records: records, Count: len(records)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, "", "", "", "extract", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}

// extractFromSelector runs selector over the page and returns one record per
// matched element, using its own URL/title (records share the page's for
// most kinds; per-item URL is populated for anchors).
func extractFromSelector(pageCtx context.Context, selector string) ([]ExtractRecord, error) {
	type rawRecord struct {
		URL   string `json:"url"`
		Title string `json:"title"`
		Text  string `json:"text"`
	}
	var raw []rawRecord
	expr := "(function(){" +
		"var out=[];" +
		"var els=Array.from(document.querySelectorAll(" + jsStringLiteral(selector) + "));" +
		"els.forEach(function(e){" +
		"var url=e.tagName==='A'?(e.href||''):location.href;" +
		"var title=document.title||'';" +
		"var text=(e.innerText||e.textContent||'').trim();" +
		"if(text.length>0){out.push({url:url,title:title,text:text});}" +
		"});" +
		"return out;})()"
	if err := chromedp.Run(pageCtx, chromedp.Evaluate(expr, &raw)); err != nil {
		return nil, errs.Wrap(errs.CodeCDPInvalid, err, "extract selector evaluation failed")
	}

	records := make([]ExtractRecord, 0, len(raw))
	for _, rr := range raw {
		records = append(records, ExtractRecord{URL: rr.URL, Title: rr.Title, Text: truncate(rr.Text, 2000)})
	}
	return records, nil
}

// dedupeRecords drops records sharing a (url, title) lowercased key (spec
// §4.4).
func dedupeRecords(records []ExtractRecord) []ExtractRecord {
	seen := map[string]bool{}
	out := make([]ExtractRecord, 0, len(records))
	for _, rec := range records {
		key := strings.ToLower(rec.URL) + "|" + strings.ToLower(rec.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out
}

// dedupeByField drops records sharing the same value at fields[key].
func dedupeByField(records []ExtractRecord, field string) []ExtractRecord {
	seen := map[string]bool{}
	out := make([]ExtractRecord, 0, len(records))
	for _, rec := range records {
		var key string
		if rec.Fields != nil {
			if v, ok := rec.Fields[field]; ok {
				b, _ := json.Marshal(v)
				key = string(b)
			}
		}
		if key == "" {
			out = append(out, rec)
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out
}

// applySchema remaps each record's URL/Title/Text into Fields named per the
// outputField -> record.path mapping.
func applySchema(records []ExtractRecord, schema map[string]string) []ExtractRecord {
	out := make([]ExtractRecord, len(records))
	for i, rec := range records {
		fields := map[string]any{}
		for outField, path := range schema {
			switch path {
			case "url":
				fields[outField] = rec.URL
			case "title":
				fields[outField] = rec.Title
			case "text":
				fields[outField] = rec.Text
			}
		}
		rec.Fields = fields
		out[i] = rec
	}
	return out
}

// discoverFeeds looks for <link> elements typed as RSS, Atom or JSON feeds
// anywhere in the document, marking results source=api-feed (spec §4.4).
func discoverFeeds(pageCtx context.Context) ([]ExtractRecord, error) {
	type feed struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	}
	var feeds []feed
	expr := `(function(){
		var out = [];
		var links = Array.from(document.querySelectorAll(
			"link[type='application/rss+xml'],link[type='application/atom+xml'],link[type='application/json']"
		));
		links.forEach(function(l){ out.push({url: l.href, title: l.title || l.href}); });
		return out;
	})()`
	if err := chromedp.Run(pageCtx, chromedp.Evaluate(expr, &feeds)); err != nil {
		return nil, err
	}

	records := make([]ExtractRecord, 0, len(feeds))
	for _, f := range feeds {
		records = append(records, ExtractRecord{URL: f.URL, Title: f.Title, Source: "api-feed"})
	}
	return records, nil
}
