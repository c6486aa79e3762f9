// internal/sites/blinkit.go
package sites

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp/kb"

	"github.com/xkilldash9x/cartpilot/api/schemas"
)

// blinkitFlow adds an item by locating the ADD button inside the listing card
// that carries the item's name. Blinkit's results markup is stable enough for
// a direct lookup, and its cards re-render often enough that a re-observation
// round trip tends to hand back stale selectors.
type blinkitFlow struct{}

func (blinkitFlow) AddToCart(ctx context.Context, page PageDriver, itemName string) error {
	sel := fmt.Sprintf(
		`//div[@id="plpContainer"]//div[contains(., %s)]//button[contains(translate(., "ADD", "add"), "add")]`,
		XPathLiteral(itemName))

	visible, err := page.Visible(ctx, sel)
	if err != nil {
		return err
	}
	if !visible {
		return schemas.NewElementNotFoundError("no add button found for item "+itemName, nil)
	}
	if err := page.Click(ctx, sel); err != nil {
		return fmt.Errorf("failed to click add button for %q: %w", itemName, err)
	}

	// Dismisses the quantity stepper overlay some cards pop open.
	return page.PressKey(ctx, kb.Enter)
}

// XPathLiteral quotes an arbitrary string for use in an XPath expression.
// XPath 1.0 has no escape sequence, so strings containing both quote kinds
// are stitched with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if part != "" {
			quoted = append(quoted, `"`+part+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
