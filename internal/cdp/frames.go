package cdp

import (
	"context"
	"net/url"
	"strconv"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// FrameScope selects which frames an operation applies to (spec §4.3).
type FrameScope string

const (
	FrameScopeMain FrameScope = "main"
	FrameScopeAll  FrameScope = "all"
)

// Frame is one numbered entry in a pre-order frame-tree walk.
type Frame struct {
	ID         string // "f-0", "f-1", ...
	FrameID    cdp.FrameID
	URL        string
	SameOrigin bool
}

// FrameTree walks Page.getFrameTree in pre-order and numbers frames
// f-0, f-1, ... (spec §4.3). When scope is FrameScopeMain, only the root
// frame is returned.
func FrameTree(ctx context.Context, pageCtx context.Context, scope FrameScope) ([]Frame, error) {
	var tree *page.FrameTree
	err := chromedp.Run(pageCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		tree, err = page.GetFrameTree().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}

	var rootOrigin string
	if tree.Frame != nil {
		rootOrigin = originOf(tree.Frame.URL)
	}

	var frames []Frame
	var walk func(*page.FrameTree)
	n := 0
	walk = func(node *page.FrameTree) {
		if node == nil || node.Frame == nil {
			return
		}
		frames = append(frames, Frame{
			ID:         frameLabel(n),
			FrameID:    node.Frame.ID,
			URL:        node.Frame.URL,
			SameOrigin: originOf(node.Frame.URL) == rootOrigin,
		})
		n++
		if scope == FrameScopeAll {
			for _, child := range node.ChildFrames {
				walk(child)
			}
		}
	}
	walk(tree)

	return frames, nil
}

func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}

func frameLabel(n int) string {
	return "f-" + strconv.Itoa(n)
}
