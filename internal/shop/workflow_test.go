// internal/shop/workflow_test.go
package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cartpilot/api/schemas"
	"github.com/xkilldash9x/cartpilot/internal/aiclient"
	"github.com/xkilldash9x/cartpilot/internal/config"
	"github.com/xkilldash9x/cartpilot/internal/sites"
)

// fakePage records every interaction; visibility is scripted per selector.
type fakePage struct {
	clicks      []string
	keys        []string
	typed       []string
	navigations []string
	closed      bool

	visibleFn func(selector string) (bool, error)
	waitErr   error
	clickErr  map[string]error
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.navigations = append(f.navigations, url)
	return nil
}

func (f *fakePage) Click(_ context.Context, selector string) error {
	if err := f.clickErr[selector]; err != nil {
		return err
	}
	f.clicks = append(f.clicks, selector)
	return nil
}

func (f *fakePage) WaitVisible(_ context.Context, _ string, _ time.Duration) error {
	return f.waitErr
}

func (f *fakePage) Visible(_ context.Context, selector string) (bool, error) {
	if f.visibleFn == nil {
		return true, nil
	}
	return f.visibleFn(selector)
}

func (f *fakePage) TypeHuman(_ context.Context, _, text string, _ time.Duration) error {
	f.typed = append(f.typed, text)
	return nil
}

func (f *fakePage) PressKey(_ context.Context, key string) error {
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakePage) HTML(_ context.Context, _ string) (string, error) { return "<html></html>", nil }
func (f *fakePage) Location(_ context.Context) (string, error)       { return "https://example.test", nil }
func (f *fakePage) Screenshot(_ context.Context) ([]byte, error)     { return []byte("png"), nil }
func (f *fakePage) Close() error                                     { f.closed = true; return nil }

// fakeObserver routes observe calls by instruction content and records the
// options of every call.
type fakeObserver struct {
	searchCands []schemas.CandidateAction
	openerCands []schemas.CandidateAction
	addCands    []schemas.CandidateAction
	verifyCands []schemas.CandidateAction

	// removeFn is invoked once per empty-cart iteration.
	removeFn    func(call int) []schemas.CandidateAction
	removeCalls int

	products   []schemas.Product
	extractErr error

	observed  []aiclient.ObserveOptions
	extracted []aiclient.ExtractOptions
}

func (f *fakeObserver) Observe(_ context.Context, opts aiclient.ObserveOptions) ([]schemas.CandidateAction, error) {
	f.observed = append(f.observed, opts)
	switch {
	case strings.Contains(opts.Instruction, "search bar"):
		return f.searchCands, nil
	case strings.Contains(opts.Instruction, "opens the cart"):
		return f.openerCands, nil
	case strings.Contains(opts.Instruction, "remove or delete"):
		f.removeCalls++
		if f.removeFn == nil {
			return nil, nil
		}
		return f.removeFn(f.removeCalls), nil
	case strings.Contains(opts.Instruction, "add to cart"):
		return f.addCands, nil
	case strings.Contains(opts.Instruction, "cart indicator"):
		return f.verifyCands, nil
	}
	return nil, nil
}

func (f *fakeObserver) Extract(_ context.Context, opts aiclient.ExtractOptions, out any) error {
	f.extracted = append(f.extracted, opts)
	if f.extractErr != nil {
		return f.extractErr
	}
	list, ok := out.(*schemas.ProductList)
	if !ok {
		return fmt.Errorf("unexpected extraction target %T", out)
	}
	list.Products = f.products
	return nil
}

func testShopConfig() config.ShopConfig {
	return config.ShopConfig{
		InputTimeout:   time.Second,
		EmptyCartBound: 10,
		MaxItems:       15,
	}
}

func testWorkflow(t *testing.T, site string, page Page, observer Observer) *Workflow {
	t.Helper()
	profile, ok := sites.Lookup(site)
	require.True(t, ok)

	var pageCalls, clientCalls int
	target := NewTarget(profile, &config.Config{}, nil, zap.NewNop(),
		WithPageFactory(func(ctx context.Context) (Page, error) {
			pageCalls++
			return page, nil
		}),
		WithClientFactory(func(ctx context.Context, p Page) (Observer, error) {
			clientCalls++
			return observer, nil
		}),
	)
	return NewWorkflow(target, testShopConfig(), zap.NewNop())
}

func searchTextbox() []schemas.CandidateAction {
	return []schemas.CandidateAction{
		{Description: "search textbox for products", Selector: "#search"},
		{Description: "cart icon", Selector: "#cart"},
	}
}

func fifteenProducts() []schemas.Product {
	products := make([]schemas.Product, 15)
	for i := range products {
		products[i] = schemas.Product{
			Name:     fmt.Sprintf("product %d", i),
			Price:    "₹42",
			Quantity: "500 g",
		}
	}
	return products
}

func TestRunAddsRandomItem(t *testing.T) {
	page := &fakePage{}
	observer := &fakeObserver{
		searchCands: searchTextbox(),
		products:    fifteenProducts(),
		addCands: []schemas.CandidateAction{
			{Description: "add to cart button for product 7", Selector: "#add-7"},
		},
		verifyCands: []schemas.CandidateAction{
			{Description: "cart icon", Selector: "#cart-icon"},
			{Description: "cart badge showing 1 item", Selector: "#cart-badge"},
		},
	}

	w := testWorkflow(t, "zepto", page, observer)
	w.intn = func(n int) int {
		require.Equal(t, 15, n, "random index must range over the extracted listings")
		return 7
	}

	result, err := w.Run(context.Background(), RunOptions{Query: "milk"})
	require.NoError(t, err)

	assert.Equal(t, "product 7", result.Selected.Name)
	assert.True(t, result.Added)
	assert.True(t, result.Verified)
	assert.Len(t, result.Products, 15)

	// Search trigger, one add click, then the preferred cart badge.
	assert.Equal(t, []string{"#search", "#add-7", "#cart-badge"}, page.clicks)
	assert.Equal(t, []string{"milk"}, page.typed)
	assert.Equal(t, []string{kb.Enter, kb.Enter}, page.keys)

	// Dedicated search URL profile navigates there before anything else.
	require.Len(t, page.navigations, 1)
	assert.Contains(t, page.navigations[0], "zeptonow.com/search")

	// The add observation and the extraction are scoped to the results region.
	profile, _ := sites.Lookup("zepto")
	require.Len(t, observer.extracted, 1)
	assert.Equal(t, profile.ResultsSelector, observer.extracted[0].Scope)
	assert.Equal(t, 15, observer.extracted[0].Limit)
	var addScope string
	for _, o := range observer.observed {
		if strings.Contains(o.Instruction, "add to cart") {
			addScope = o.Scope
			assert.Contains(t, o.Instruction, "product 7")
		}
	}
	assert.Equal(t, profile.ResultsSelector, addScope)
}

func TestRunSelectsNamedItem(t *testing.T) {
	page := &fakePage{}
	observer := &fakeObserver{
		searchCands: searchTextbox(),
		products:    fifteenProducts(),
		addCands: []schemas.CandidateAction{
			{Description: "add to cart button for product 3", Selector: "#add-3"},
		},
	}

	w := testWorkflow(t, "zepto", page, observer)
	w.intn = func(int) int {
		t.Fatal("random selection must not run when an item is named")
		return 0
	}

	result, err := w.Run(context.Background(), RunOptions{Query: "milk", Item: "PRODUCT 3"})
	require.NoError(t, err)
	assert.Equal(t, "product 3", result.Selected.Name)
}

func TestRunNamedItemNotFound(t *testing.T) {
	page := &fakePage{}
	observer := &fakeObserver{
		searchCands: searchTextbox(),
		products:    fifteenProducts(),
	}

	w := testWorkflow(t, "zepto", page, observer)
	_, err := w.Run(context.Background(), RunOptions{Query: "milk", Item: "caviar"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "caviar")
}

func TestRunDryRunStopsAfterExtraction(t *testing.T) {
	page := &fakePage{}
	observer := &fakeObserver{
		searchCands: searchTextbox(),
		products:    fifteenProducts(),
	}

	w := testWorkflow(t, "zepto", page, observer)
	result, err := w.Run(context.Background(), RunOptions{Query: "milk", DryRun: true})
	require.NoError(t, err)

	assert.Len(t, result.Products, 15)
	assert.False(t, result.Added)
	// Only the search trigger was clicked; the cart was never touched.
	assert.Equal(t, []string{"#search"}, page.clicks)
}

func TestRunSearchInputNotResolved(t *testing.T) {
	page := &fakePage{}
	observer := &fakeObserver{
		searchCands: []schemas.CandidateAction{{Description: "cart icon", Selector: "#cart"}},
	}

	w := testWorkflow(t, "zepto", page, observer)
	_, err := w.Run(context.Background(), RunOptions{Query: "milk"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemas.ErrActionNotResolved))
	assert.Empty(t, page.typed)
}

func TestRunEmptyQuery(t *testing.T) {
	w := testWorkflow(t, "zepto", &fakePage{}, &fakeObserver{})
	_, err := w.Run(context.Background(), RunOptions{Query: "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemas.ErrConfiguration))
}

func TestRunAddFallbackClicksListingCard(t *testing.T) {
	page := &fakePage{}
	observer := &fakeObserver{
		searchCands: searchTextbox(),
		products:    fifteenProducts(),
		// No add candidates: the workflow must fall back to a direct lookup.
	}

	w := testWorkflow(t, "zepto", page, observer)
	w.intn = func(int) int { return 2 }

	result, err := w.Run(context.Background(), RunOptions{Query: "milk"})
	require.NoError(t, err)
	require.True(t, result.Added)

	// The fallback click targets the card that carries the item's name text.
	require.Len(t, page.clicks, 2)
	assert.Contains(t, page.clicks[1], `"product 2"`)
	assert.Contains(t, page.clicks[1], "button")
}

func TestRunCustomFlowBypassesObservation(t *testing.T) {
	page := &fakePage{}
	observer := &fakeObserver{
		searchCands: searchTextbox(),
		products:    fifteenProducts(),
	}

	w := testWorkflow(t, "blinkit", page, observer)
	w.intn = func(int) int { return 0 }

	result, err := w.Run(context.Background(), RunOptions{Query: "milk"})
	require.NoError(t, err)
	require.True(t, result.Added)

	// Blinkit's flow looks the add button up directly inside its results
	// region; no add observation happens.
	for _, o := range observer.observed {
		assert.NotContains(t, o.Instruction, "add to cart")
	}
	require.Len(t, page.clicks, 2)
	assert.Contains(t, page.clicks[1], "plpContainer")
	assert.Contains(t, page.clicks[1], "product 0")
}

func TestRunVerificationFailureIsSoft(t *testing.T) {
	page := &fakePage{}
	observer := &fakeObserver{
		searchCands: searchTextbox(),
		products:    fifteenProducts(),
		addCands: []schemas.CandidateAction{
			{Description: "add to cart button", Selector: "#add"},
		},
		// No cart indicator observed.
	}

	w := testWorkflow(t, "zepto", page, observer)
	w.intn = func(int) int { return 0 }

	result, err := w.Run(context.Background(), RunOptions{Query: "milk"})
	require.NoError(t, err)
	assert.True(t, result.Added)
	assert.False(t, result.Verified)
}

func TestEmptyCartStopsWithinBound(t *testing.T) {
	page := &fakePage{}
	observer := &fakeObserver{
		searchCands: searchTextbox(),
		openerCands: []schemas.CandidateAction{{Description: "cart link", Selector: "#open-cart"}},
		products:    fifteenProducts(),
		addCands: []schemas.CandidateAction{
			{Description: "add to cart button", Selector: "#add"},
		},
		// The cart always reports one more removable item.
		removeFn: func(call int) []schemas.CandidateAction {
			return []schemas.CandidateAction{
				{Description: "remove item button", Selector: fmt.Sprintf("#remove-%d", call)},
			}
		},
	}

	w := testWorkflow(t, "zepto", page, observer)
	w.intn = func(int) int { return 0 }

	_, err := w.Run(context.Background(), RunOptions{Query: "milk", EmptyCart: true})
	require.NoError(t, err)

	assert.Equal(t, 10, observer.removeCalls, "the clearing loop must stop at its bound")

	var removeClicks int
	for _, c := range page.clicks {
		if strings.HasPrefix(c, "#remove-") {
			removeClicks++
		}
	}
	assert.Equal(t, 10, removeClicks)
}

func TestEmptyCartNeverReclicksInvisibleControl(t *testing.T) {
	page := &fakePage{
		visibleFn: func(selector string) (bool, error) {
			return selector != "#remove-stale", nil
		},
	}
	observer := &fakeObserver{
		searchCands: searchTextbox(),
		openerCands: []schemas.CandidateAction{{Description: "cart link", Selector: "#open-cart"}},
		products:    fifteenProducts(),
		addCands: []schemas.CandidateAction{
			{Description: "add to cart button", Selector: "#add"},
		},
		removeFn: func(call int) []schemas.CandidateAction {
			return []schemas.CandidateAction{
				{Description: "remove item button", Selector: "#remove-stale"},
			}
		},
	}

	w := testWorkflow(t, "zepto", page, observer)
	w.intn = func(int) int { return 0 }

	_, err := w.Run(context.Background(), RunOptions{Query: "milk", EmptyCart: true})
	require.NoError(t, err)

	// The invisible control stops the loop on its first sighting and is
	// never clicked.
	assert.Equal(t, 1, observer.removeCalls)
	assert.NotContains(t, page.clicks, "#remove-stale")
}

func TestEmptyCartNoRemoveControls(t *testing.T) {
	page := &fakePage{}
	observer := &fakeObserver{
		searchCands: searchTextbox(),
		openerCands: []schemas.CandidateAction{{Description: "cart link", Selector: "#open-cart"}},
		products:    fifteenProducts(),
		addCands: []schemas.CandidateAction{
			{Description: "add to cart button", Selector: "#add"},
		},
	}

	w := testWorkflow(t, "zepto", page, observer)
	w.intn = func(int) int { return 0 }

	result, err := w.Run(context.Background(), RunOptions{Query: "milk", EmptyCart: true})
	require.NoError(t, err)
	assert.True(t, result.Added, "an already empty cart must not abort the run")
	assert.Equal(t, 1, observer.removeCalls)
}

func TestRunExtractionFailurePropagates(t *testing.T) {
	page := &fakePage{}
	observer := &fakeObserver{
		searchCands: searchTextbox(),
		extractErr:  schemas.NewSchemaValidationError("product name is empty", nil),
	}

	w := testWorkflow(t, "zepto", page, observer)
	_, err := w.Run(context.Background(), RunOptions{Query: "milk"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemas.ErrSchemaValidation))
}

func TestRunMaxItemsTruncates(t *testing.T) {
	page := &fakePage{}
	observer := &fakeObserver{
		searchCands: searchTextbox(),
		products:    fifteenProducts(),
		addCands: []schemas.CandidateAction{
			{Description: "add to cart button", Selector: "#add"},
		},
	}

	w := testWorkflow(t, "zepto", page, observer)
	w.intn = func(n int) int {
		require.Equal(t, 5, n)
		return 4
	}

	result, err := w.Run(context.Background(), RunOptions{Query: "milk", MaxItems: 5})
	require.NoError(t, err)
	assert.Len(t, result.Products, 5)
	require.Len(t, observer.extracted, 1)
	assert.Equal(t, 5, observer.extracted[0].Limit)
}
