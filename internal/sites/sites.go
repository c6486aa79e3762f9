// Package sites holds the per-storefront configuration the generic cart
// workflow is parameterized by. A site is data (a Profile record) plus, for
// the rare storefront whose markup defeats the generic flow, an optional
// CustomFlow capability. There is no site-specific subclassing anywhere.
package sites

import (
	"context"
	"sort"
	"strings"
)

// PageDriver is the minimal page surface a custom flow may drive. It is a
// subset of browser.Page so flows stay testable with a small fake.
type PageDriver interface {
	Click(ctx context.Context, selector string) error
	PressKey(ctx context.Context, key string) error
	Visible(ctx context.Context, selector string) (bool, error)
}

// CustomFlow replaces the generic add-to-cart step for one site.
type CustomFlow interface {
	AddToCart(ctx context.Context, page PageDriver, itemName string) error
}

// Profile is the immutable per-site configuration.
type Profile struct {
	// Name is the canonical lowercase site key.
	Name string
	// HomeURL is where the target's page is opened.
	HomeURL string
	// SearchURL, when set, is a dedicated search surface; the workflow
	// navigates there instead of hunting for a search trigger on the home
	// page.
	SearchURL string
	// ResultsSelector scopes listing extraction to the search-results region.
	ResultsSelector string
	// SearchKeywords are the keyword-combination sets used to resolve the
	// search input. Nil means the default sets.
	SearchKeywords [][]string
	// Flow overrides the generic add-to-cart step when non-nil.
	Flow CustomFlow
}

// DefaultSearchKeywords resolve a search input on sites without their own
// sets.
var DefaultSearchKeywords = [][]string{
	{"search", "input"},
	{"search", "textbox"},
	{"search", "product"},
}

// Keywords returns the profile's search keyword sets, defaulted.
func (p Profile) Keywords() [][]string {
	if len(p.SearchKeywords) > 0 {
		return p.SearchKeywords
	}
	return DefaultSearchKeywords
}

var registry = map[string]Profile{
	"blinkit": {
		Name:            "blinkit",
		HomeURL:         "https://blinkit.com",
		SearchURL:       "https://blinkit.com/s/",
		ResultsSelector: "#plpContainer",
		Flow:            blinkitFlow{},
	},
	"zepto": {
		Name:            "zepto",
		HomeURL:         "https://www.zeptonow.com",
		SearchURL:       "https://www.zeptonow.com/search",
		ResultsSelector: `[data-testid="search-page-container"]`,
	},
	"instamart": {
		Name:            "instamart",
		HomeURL:         "https://www.swiggy.com/instamart",
		ResultsSelector: `[data-testid="search-container"]`,
	},
	"minutes": {
		Name:            "minutes",
		HomeURL:         "https://www.flipkart.com",
		ResultsSelector: `div[data-id]`,
	},
	"amazon": {
		Name:            "amazon",
		HomeURL:         "https://www.amazon.in",
		ResultsSelector: "div.s-main-slot",
	},
	"bigbasket": {
		Name:            "bigbasket",
		HomeURL:         "https://www.bigbasket.com",
		SearchURL:       "https://www.bigbasket.com/ps/",
		ResultsSelector: `section[class*="PaginateItems"]`,
	},
}

// Lookup returns the profile for a site name, case-insensitively.
func Lookup(name string) (Profile, bool) {
	p, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names returns the supported site names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
