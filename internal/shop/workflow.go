// internal/shop/workflow.go
package shop

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cartpilot/api/schemas"
	"github.com/xkilldash9x/cartpilot/internal/aiclient"
	"github.com/xkilldash9x/cartpilot/internal/config"
	"github.com/xkilldash9x/cartpilot/internal/resolver"
	"github.com/xkilldash9x/cartpilot/internal/sites"
)

// searchInputSelector matches the editable control behind a search trigger.
// Several storefronts wrap the visible trigger in a non-input element; after
// clicking it, the real input is waited on with this selector.
const searchInputSelector = `input:not([type="hidden"]), textarea`

// nonzeroDigits drive the cart-indicator tie-break: a badge whose description
// mentions an item count beats a bare icon.
var nonzeroDigits = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"}

// RunOptions parameterize one workflow run.
type RunOptions struct {
	// Query is the search text, required.
	Query string
	// Item, when set, selects the listing whose name contains it
	// (case-insensitive). Empty picks a uniformly random listing.
	Item string
	// EmptyCart clears any pre-existing cart before searching.
	EmptyCart bool
	// MaxItems caps the extracted listings; zero uses the configured default.
	MaxItems int
	// DryRun stops after extraction without touching the cart.
	DryRun bool
}

// RunResult reports what a run did.
type RunResult struct {
	RunID    string
	Products []schemas.Product
	Selected schemas.Product
	Added    bool
	Verified bool
}

// Workflow drives the end-to-end add-to-cart sequence against one target.
// Steps run strictly in order on a single goroutine; each step re-observes
// the page rather than trusting selectors from a previous step.
type Workflow struct {
	target  *Target
	profile sites.Profile
	cfg     config.ShopConfig
	logger  *zap.Logger
	runID   string

	// intn and sleep are injectable so item selection and settle delays are
	// deterministic in tests.
	intn  func(n int) int
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWorkflow builds a workflow for one target. Each workflow carries its own
// run ID through every log line.
func NewWorkflow(target *Target, cfg config.ShopConfig, logger *zap.Logger) *Workflow {
	runID := uuid.New().String()
	return &Workflow{
		target:  target,
		profile: target.Profile(),
		cfg:     cfg,
		logger: logger.Named("workflow").With(
			zap.String("run_id", runID[:8]),
			zap.String("site", target.Profile().Name)),
		runID: runID,
		intn:  rand.Intn,
		sleep: sleepCtx,
	}
}

// Run executes the full sequence: open search, optionally clear the cart,
// type the query, extract listings, pick one, add it, verify. Verification
// failure is soft; everything else aborts the run.
func (w *Workflow) Run(ctx context.Context, opts RunOptions) (result *RunResult, err error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, schemas.NewConfigurationError("search query is required", nil)
	}

	page, err := w.target.Page(ctx)
	if err != nil {
		return nil, err
	}
	client, err := w.target.Client(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			w.captureFailure(page)
		}
	}()

	if err = w.openSearch(ctx, page); err != nil {
		return nil, err
	}
	w.logger.Info("Search surface opened", zap.String("state", "SearchOpened"))

	if opts.EmptyCart {
		if err = w.emptyCart(ctx, page, client); err != nil {
			return nil, err
		}
		w.logger.Info("Existing cart cleared", zap.String("state", "CartCleared"))
	}

	if err = w.focusSearchInput(ctx, page, client); err != nil {
		return nil, err
	}
	if err = w.typeQuery(ctx, page, opts.Query); err != nil {
		return nil, err
	}
	w.logger.Info("Query submitted", zap.String("state", "QueryTyped"), zap.String("query", opts.Query))

	products, err := w.extractListings(ctx, client, opts)
	if err != nil {
		return nil, err
	}
	w.logger.Info("Listings extracted", zap.String("state", "ResultsExtracted"), zap.Int("count", len(products)))

	result = &RunResult{RunID: w.runID, Products: products}
	if opts.DryRun {
		return result, nil
	}

	selected, err := w.selectItem(products, opts.Item)
	if err != nil {
		return nil, err
	}
	result.Selected = selected
	w.logger.Info("Item selected", zap.String("state", "ItemSelected"), zap.String("item", selected.Name))

	if err = w.addToCart(ctx, page, client, selected); err != nil {
		return nil, err
	}
	result.Added = true
	w.logger.Info("Item added", zap.String("state", "AddedToCart"))

	result.Verified = w.verifyCart(ctx, page, client)
	if result.Verified {
		w.logger.Info("Cart verified", zap.String("state", "Verified"))
	}
	return result, nil
}

// openSearch brings the page to the profile's search surface. Sites with a
// dedicated search URL go straight there; the rest stay on the home page and
// rely on focusSearchInput to find the trigger.
func (w *Workflow) openSearch(ctx context.Context, page Page) error {
	if w.profile.SearchURL != "" {
		if err := page.Navigate(ctx, w.profile.SearchURL); err != nil {
			return err
		}
	}
	return w.sleep(ctx, w.cfg.SettleDelay)
}

// emptyCart opens the cart view and clicks remove controls until none are
// left or the bound is reached. Every iteration re-observes: removing one
// item shifts the DOM under the previous candidates. A resolution miss here
// means "done", never an error.
func (w *Workflow) emptyCart(ctx context.Context, page Page, client Observer) error {
	candidates, err := client.Observe(ctx, aiclient.ObserveOptions{
		Instruction: "Find the cart icon or link that opens the cart.",
	})
	if err != nil {
		return err
	}
	opener, ok := resolver.First(resolver.Resolve(candidates, [][]string{{"cart"}}))
	if !ok {
		w.logger.Warn("No cart opener found; skipping cart clearing")
		return nil
	}
	if err := page.Click(ctx, opener.Selector); err != nil {
		return err
	}
	if err := w.sleep(ctx, w.cfg.SettleDelay); err != nil {
		return err
	}

	notVisible := make(map[string]bool)
	for i := 0; i < w.cfg.EmptyCartBound; i++ {
		candidates, err := client.Observe(ctx, aiclient.ObserveOptions{
			Instruction: "Find the remove or delete buttons for the items in the cart.",
		})
		if err != nil {
			return err
		}
		matches := resolver.Resolve(candidates, [][]string{{"remove"}, {"delete"}})

		var target schemas.CandidateAction
		found := false
		for _, m := range matches {
			if !notVisible[m.Selector] {
				target = m
				found = true
				break
			}
		}
		if !found {
			w.logger.Debug("No remove control left", zap.Int("iterations", i))
			return nil
		}

		visible, err := page.Visible(ctx, target.Selector)
		if err != nil {
			return err
		}
		if !visible {
			// A remove control that no longer renders means the cart is empty.
			notVisible[target.Selector] = true
			w.logger.Debug("Remove control not visible; cart assumed empty", zap.Int("iterations", i))
			return nil
		}

		if err := page.Click(ctx, target.Selector); err != nil {
			return err
		}
		if err := w.sleep(ctx, w.cfg.CartSettleDelay); err != nil {
			return err
		}
	}

	w.logger.Warn("Cart clearing stopped at iteration bound", zap.Int("bound", w.cfg.EmptyCartBound))
	return nil
}

// focusSearchInput observes the search trigger, clicks it, and waits for the
// editable input to appear. This step has no fallback: an unresolved search
// control aborts the run.
func (w *Workflow) focusSearchInput(ctx context.Context, page Page, client Observer) error {
	candidates, err := client.Observe(ctx, aiclient.ObserveOptions{
		Instruction: "Find the search bar for searching products.",
	})
	if err != nil {
		return err
	}

	trigger, ok := resolver.First(resolver.Resolve(candidates, w.profile.Keywords()))
	if !ok {
		return schemas.NewActionNotResolvedError(
			fmt.Sprintf("no candidate matched the search input keywords on %s", w.profile.Name), nil)
	}

	if err := page.Click(ctx, trigger.Selector); err != nil {
		return err
	}
	return page.WaitVisible(ctx, searchInputSelector, w.cfg.InputTimeout)
}

// typeQuery types the query character by character and submits it.
func (w *Workflow) typeQuery(ctx context.Context, page Page, query string) error {
	if err := page.TypeHuman(ctx, searchInputSelector, query, w.cfg.KeyDelay); err != nil {
		return err
	}
	if err := page.PressKey(ctx, kb.Enter); err != nil {
		return err
	}
	return w.sleep(ctx, w.cfg.SettleDelay)
}

// extractListings pulls up to the configured number of product records out of
// the results region.
func (w *Workflow) extractListings(ctx context.Context, client Observer, opts RunOptions) ([]schemas.Product, error) {
	max := opts.MaxItems
	if max <= 0 {
		max = w.cfg.MaxItems
	}

	var list schemas.ProductList
	err := client.Extract(ctx, aiclient.ExtractOptions{
		Instruction: fmt.Sprintf(
			"Extract the product listings shown for the search %q with their name, price and pack quantity.", opts.Query),
		Scope:  w.profile.ResultsSelector,
		Schema: aiclient.ProductListSchema(),
		Limit:  max,
	}, &list)
	if err != nil {
		return nil, err
	}
	if len(list.Products) == 0 {
		return nil, fmt.Errorf("no product listings extracted for %q on %s", opts.Query, w.profile.Name)
	}
	if len(list.Products) > max {
		list.Products = list.Products[:max]
	}
	return list.Products, nil
}

// selectItem picks the listing to add: a name match when the caller asked for
// one, otherwise a uniformly random index.
func (w *Workflow) selectItem(products []schemas.Product, item string) (schemas.Product, error) {
	if item != "" {
		needle := strings.ToLower(item)
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Name), needle) {
				return p, nil
			}
		}
		return schemas.Product{}, fmt.Errorf("no extracted listing matches item %q", item)
	}
	return products[w.intn(len(products))], nil
}

// addToCart clicks the add control for the selected item. Profiles with a
// custom flow take over entirely; the generic path re-observes an add button
// scoped to the results region and falls back to a direct lookup inside the
// listing card carrying the item's name. Exactly one click is issued either
// way.
func (w *Workflow) addToCart(ctx context.Context, page Page, client Observer, item schemas.Product) error {
	if w.profile.Flow != nil {
		if err := w.profile.Flow.AddToCart(ctx, page, item.Name); err != nil {
			return err
		}
		return w.sleep(ctx, w.cfg.CartSettleDelay)
	}

	candidates, err := client.Observe(ctx, aiclient.ObserveOptions{
		Instruction: fmt.Sprintf("Find the add to cart button for the product %q.", item.Name),
		Scope:       w.profile.ResultsSelector,
	})
	if err != nil {
		return err
	}

	sets := [][]string{{"add", nameFragment(item.Name)}, {"add", "cart"}, {"add"}}
	if pick, ok := resolver.First(resolver.Resolve(candidates, sets)); ok {
		if err := page.Click(ctx, pick.Selector); err != nil {
			return err
		}
	} else {
		sel := fmt.Sprintf(
			`//div[contains(., %s)]//button[contains(translate(., "ADD", "add"), "add")]`,
			sites.XPathLiteral(item.Name))
		if err := page.Click(ctx, sel); err != nil {
			return schemas.NewActionNotResolvedError("no add control resolved for item "+item.Name, err)
		}
	}

	// Some sites pop a quantity stepper over the button; Enter confirms it.
	if err := page.PressKey(ctx, kb.Enter); err != nil {
		return err
	}
	return w.sleep(ctx, w.cfg.CartSettleDelay)
}

// verifyCart opens the cart indicator to confirm the add took effect. The add
// side effect has already happened, so every failure here is soft: log and
// report unverified.
func (w *Workflow) verifyCart(ctx context.Context, page Page, client Observer) bool {
	candidates, err := client.Observe(ctx, aiclient.ObserveOptions{
		Instruction: "Find the cart indicator showing how many items are in the cart.",
	})
	if err != nil {
		w.logger.Warn("Cart verification observation failed", zap.Error(err))
		return false
	}

	matches := resolver.Resolve(candidates, [][]string{{"cart"}})
	indicator, ok := resolver.PreferContaining(matches, nonzeroDigits...)
	if !ok {
		w.logger.Warn("No cart indicator found; add-to-cart is unverified")
		return false
	}

	if err := page.Click(ctx, indicator.Selector); err != nil {
		w.logger.Warn("Failed to open cart for verification", zap.Error(err))
		return false
	}
	return true
}

// captureFailure saves a screenshot of the failed run under the artifact dir.
func (w *Workflow) captureFailure(page Page) {
	if w.cfg.ArtifactDir == "" || page == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	buf, err := page.Screenshot(ctx)
	if err != nil {
		w.logger.Warn("Failed to capture failure screenshot", zap.Error(err))
		return
	}
	if err := os.MkdirAll(w.cfg.ArtifactDir, 0o755); err != nil {
		w.logger.Warn("Failed to create artifact directory", zap.Error(err))
		return
	}
	path := filepath.Join(w.cfg.ArtifactDir, "failure-"+w.runID[:8]+".png")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		w.logger.Warn("Failed to write failure screenshot", zap.Error(err))
		return
	}
	w.logger.Info("Failure screenshot saved", zap.String("path", path))
}

// nameFragment returns the first word of a product name, lowercased, for use
// as a resolution keyword.
func nameFragment(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// sleepCtx is a context-aware settle delay.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
