// internal/sites/sites_test.go
package sites

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/cartpilot/api/schemas"
)

type fakeDriver struct {
	visible    bool
	visibleErr error

	clicks []string
	keys   []string
}

func (f *fakeDriver) Click(_ context.Context, selector string) error {
	f.clicks = append(f.clicks, selector)
	return nil
}

func (f *fakeDriver) PressKey(_ context.Context, key string) error {
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeDriver) Visible(_ context.Context, _ string) (bool, error) {
	return f.visible, f.visibleErr
}

func TestLookup(t *testing.T) {
	p, ok := Lookup("Blinkit")
	require.True(t, ok)
	assert.Equal(t, "blinkit", p.Name)
	assert.NotNil(t, p.Flow)

	p, ok = Lookup("  zepto ")
	require.True(t, ok)
	assert.Equal(t, "https://www.zeptonow.com", p.HomeURL)
	assert.Nil(t, p.Flow)

	_, ok = Lookup("walmart")
	assert.False(t, ok)
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{"amazon", "bigbasket", "blinkit", "instamart", "minutes", "zepto"}, names)
}

func TestKeywordsDefaulted(t *testing.T) {
	p, ok := Lookup("amazon")
	require.True(t, ok)
	assert.Equal(t, DefaultSearchKeywords, p.Keywords())

	custom := Profile{SearchKeywords: [][]string{{"buscar"}}}
	assert.Equal(t, [][]string{{"buscar"}}, custom.Keywords())
}

func TestBlinkitFlowAddToCart(t *testing.T) {
	driver := &fakeDriver{visible: true}

	err := blinkitFlow{}.AddToCart(context.Background(), driver, "Amul Milk 500ml")
	require.NoError(t, err)

	require.Len(t, driver.clicks, 1)
	assert.Contains(t, driver.clicks[0], "plpContainer")
	assert.Contains(t, driver.clicks[0], "Amul Milk 500ml")
	require.Len(t, driver.keys, 1)
}

func TestBlinkitFlowAddButtonMissing(t *testing.T) {
	driver := &fakeDriver{visible: false}

	err := blinkitFlow{}.AddToCart(context.Background(), driver, "bread")
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemas.ErrElementNotFound))
	assert.Empty(t, driver.clicks)
}

func TestXpathLiteral(t *testing.T) {
	assert.Equal(t, `"plain"`, XPathLiteral("plain"))
	assert.Equal(t, `'say "hi"'`, XPathLiteral(`say "hi"`))
	assert.Equal(t, `concat("it", '"', "s ", '"', "x", '"')`, XPathLiteral(`it"s "x"`))
}
