// api/schemas/actions.go
package schemas

import "strings"

// CandidateAction is a UI element suggested by the observation backend in
// response to a natural-language instruction. The same physical element may
// appear more than once under different descriptions.
type CandidateAction struct {
	// Description is the backend's human-readable summary of the element,
	// e.g. "search textbox for products".
	Description string `json:"description"`
	// Selector is a resolvable locator expression (CSS or XPath).
	Selector string `json:"selector"`
}

// Product is one structured listing record extracted from a results page.
type Product struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

// Validate enforces the extraction contract: a listing without a name is a
// hallucinated or mis-parsed record and must be rejected before it reaches
// the workflow.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewSchemaValidationError("product name is empty", nil)
	}
	return nil
}

// ProductList is the extraction target for search-result listings.
type ProductList struct {
	Products []Product `json:"products"`
}

// Validate checks every record; the first violation fails the whole batch.
func (l ProductList) Validate() error {
	for _, p := range l.Products {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PageText is the default extraction target when the caller supplies no
// schema of its own.
type PageText struct {
	Content string `json:"content"`
}
