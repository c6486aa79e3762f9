// -- cmd/sites_test.go --
package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitesCommandListsProfiles(t *testing.T) {
	var out bytes.Buffer
	sitesCmd := newSitesCmd()
	sitesCmd.SetOut(&out)

	require.NoError(t, sitesCmd.Execute())

	listing := out.String()
	for _, name := range []string{"amazon", "bigbasket", "blinkit", "instamart", "minutes", "zepto"} {
		assert.Contains(t, listing, name)
	}
	assert.Contains(t, listing, "custom add-to-cart flow")
}
