package actions

import (
	"context"
	"strings"

	"github.com/chromedp/chromedp"
)

const defaultChunkSize = 1200

// ReadRequest configures the read action (spec §4.4).
type ReadRequest struct {
	Request
	Selector   string // empty means whole body
	ChunkSize  int
	ChunkIndex int
}

// ReadData is the read action's payload.
type ReadData struct {
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
	TotalChars  int    `json:"totalChars"`
	Truncated   bool   `json:"truncated"`
	Text        string `json:"text"`
}

// Read implements spec §4.4's read action: deterministic fixed-size chunking
// of normalized (whitespace-collapsed) text.
func (r *Runner) Read(ctx context.Context, req ReadRequest) (*Report, error) {
	pro, err := r.runPrologue(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	defer pro.Close()

	var data ReadData
	err = measure(&pro.timing.action, func() error {
		scope := "body"
		if req.Selector != "" {
			scope = req.Selector
		}

		var raw string
		expr := "(function(){var el=document.querySelector(" + jsStringLiteral(scope) + ");return el?el.innerText||'':'';})()"
		if err := chromedp.Run(pro.resolved.PageCtx, chromedp.Evaluate(expr, &raw)); err != nil {
			return err
		}
		text := strings.Join(strings.Fields(raw), " ")

		chunkSize := req.ChunkSize
		if chunkSize <= 0 {
			chunkSize = defaultChunkSize
		}

		totalChars := len(text)
		totalChunks := (totalChars + chunkSize - 1) / chunkSize
		if totalChunks == 0 {
			totalChunks = 1
		}

		chunkIndex := req.ChunkIndex
		if chunkIndex < 0 {
			chunkIndex = 0
		}
		if chunkIndex >= totalChunks {
			chunkIndex = totalChunks - 1
		}

		start := chunkIndex * chunkSize
		end := start + chunkSize
		if end > totalChars {
			end = totalChars
		}
		if start > totalChars {
			start = totalChars
		}

		data = ReadData{
			ChunkIndex:  chunkIndex,
			TotalChunks: totalChunks,
			TotalChars:  totalChars,
			Truncated:   totalChunks > 1,
			Text:        text[start:end],
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SuppressPersist {
		r.persistTarget(pro.timing, pro.sessID, pro.resolved.TargetID, "", "", "", "read", "")
	}

	return &Report{Ok: true, SessionID: pro.sessID, TargetID: pro.resolved.TargetID, TimingMs: pro.timing.build(), Data: data}, nil
}
