// -- cmd/sites.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/cartpilot/internal/sites"
)

// newSitesCmd lists the supported storefront profiles.
func newSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the supported storefronts",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range sites.Names() {
				profile, _ := sites.Lookup(name)
				marker := ""
				if profile.Flow != nil {
					marker = " (custom add-to-cart flow)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s%s\n", name, profile.HomeURL, marker)
			}
		},
	}
}
