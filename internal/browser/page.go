// internal/browser/page.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cartpilot/api/schemas"
)

// Page is one open browser tab bound to an automation target. It exposes the
// primitive DOM operations the workflow composes; anything smarter (element
// resolution, disambiguation) lives above this layer.
type Page struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewPage opens a fresh tab in the shared browser and navigates it to the
// target's home URL. Navigation failures propagate unchanged.
func NewPage(allocCtx context.Context, homeURL string, logger *zap.Logger) (*Page, error) {
	tabCtx, cancel := chromedp.NewContext(allocCtx)

	id := uuid.New().String()
	p := &Page{
		id:     id,
		ctx:    tabCtx,
		cancel: cancel,
		logger: logger.Named("page").With(zap.String("page_id", id[:8])),
	}

	// Storefronts occasionally throw confirm() dialogs (location prompts,
	// "leave page?" guards) that would wedge the tab; accept them as they
	// appear.
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if _, ok := ev.(*cdppage.EventJavascriptDialogOpening); ok {
			go func() {
				if err := chromedp.Run(tabCtx, cdppage.HandleJavaScriptDialog(true)); err != nil {
					p.logger.Warn("Failed to dismiss page dialog", zap.Error(err))
				}
			}()
		}
	})

	if err := chromedp.Run(tabCtx, chromedp.Navigate(homeURL), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open page at %s: %w", homeURL, err)
	}

	p.logger.Info("Page opened", zap.String("url", homeURL))
	return p, nil
}

// run executes chromedp actions on this tab, honoring the caller's deadline
// and cancellation.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := deriveRunContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// deriveRunContext binds the tab context to the caller's deadline and
// cancellation. chromedp actions must run on the tab's context chain, so the
// caller's signal is forwarded rather than its context used directly.
func deriveRunContext(base, caller context.Context) (context.Context, context.CancelFunc) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if deadline, ok := caller.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(base, deadline)
	} else {
		runCtx, cancel = context.WithCancel(base)
	}
	stop := context.AfterFunc(caller, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// Navigate loads a URL in this tab and waits for the document body.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating", zap.String("url", url))
	return p.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
}

// Click clicks the first element matching the selector. BySearch accepts the
// CSS and XPath expressions the observation backend produces.
func (p *Page) Click(ctx context.Context, selector string) error {
	p.logger.Debug("Clicking", zap.String("selector", selector))
	return p.run(ctx, chromedp.Click(selector, chromedp.BySearch))
}

// WaitVisible blocks until the selector is visible or the timeout elapses.
func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.run(waitCtx, chromedp.WaitVisible(selector, chromedp.BySearch))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return schemas.NewElementNotFoundError(
				fmt.Sprintf("element %q did not become visible within %s", selector, timeout), err)
		}
		return err
	}
	return nil
}

// Visible reports whether the selector currently resolves to an element with
// a nonzero layout box. Unlike WaitVisible it returns immediately.
func (p *Page) Visible(ctx context.Context, selector string) (bool, error) {
	const script = `(function(sel) {
		var el = null;
		try {
			if (sel.charAt(0) === '/' || sel.charAt(0) === '(') {
				el = document.evaluate(sel, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
			} else {
				el = document.querySelector(sel);
			}
		} catch (e) {
			return false;
		}
		if (!el) return false;
		var r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	})(%q)`

	var visible bool
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(script, selector), &visible)); err != nil {
		return false, fmt.Errorf("visibility probe for %q failed: %w", selector, err)
	}
	return visible, nil
}

// TypeHuman focuses the selector and sends the text one character at a time
// with an inter-keystroke delay. Several storefronts attach input handlers
// that drop characters delivered as a single burst.
func (p *Page) TypeHuman(ctx context.Context, selector, text string, keyDelay time.Duration) error {
	if err := p.run(ctx, chromedp.Click(selector, chromedp.BySearch)); err != nil {
		return fmt.Errorf("failed to focus %q for typing: %w", selector, err)
	}

	for _, r := range text {
		actions := []chromedp.Action{
			chromedp.SendKeys("document.activeElement", string(r), chromedp.ByJSPath),
			chromedp.Sleep(keyDelay),
		}
		if err := p.run(ctx, actions...); err != nil {
			return fmt.Errorf("failed to send key %q: %w", r, err)
		}
	}
	return nil
}

// PressKey dispatches a single key (use the chromedp/kb constants, e.g.
// kb.Enter) to the focused element.
func (p *Page) PressKey(ctx context.Context, key string) error {
	return p.run(ctx, chromedp.KeyEvent(key))
}

// HTML returns the serialized DOM: the whole document when scope is empty,
// otherwise the outer HTML of the first element matching the scope selector.
func (p *Page) HTML(ctx context.Context, scope string) (string, error) {
	var html string
	var err error
	if scope == "" {
		err = p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	} else {
		err = p.run(ctx, chromedp.OuterHTML(scope, &html, chromedp.BySearch))
	}
	if err != nil {
		return "", fmt.Errorf("failed to capture DOM snapshot (scope=%q): %w", scope, err)
	}
	return html, nil
}

// Location returns the tab's current URL.
func (p *Page) Location(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Screenshot captures the viewport as PNG bytes.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

// ID returns the page's unique ID.
func (p *Page) ID() string {
	return p.id
}

// Close releases the tab.
func (p *Page) Close() error {
	p.cancel()
	return nil
}
