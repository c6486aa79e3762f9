// -- cmd/shop.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cartpilot/internal/browser"
	"github.com/xkilldash9x/cartpilot/internal/config"
	"github.com/xkilldash9x/cartpilot/internal/observability"
	"github.com/xkilldash9x/cartpilot/internal/shop"
	"github.com/xkilldash9x/cartpilot/internal/sites"
)

// newShopCmd creates and configures the `shop` command.
func newShopCmd() *cobra.Command {
	var (
		site      string
		item      string
		emptyCart bool
		dryRun    bool
	)

	shopCmd := &cobra.Command{
		Use:   "shop [query]",
		Short: "Search a storefront and add a matching item to the cart",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Flag overrides flow through viper so config-file and env values
			// keep the right precedence.
			if err := viper.BindPFlag("shop.max_items", cmd.Flags().Lookup("max-items")); err != nil {
				return err
			}
			return viper.BindPFlag("ai.trace_file", cmd.Flags().Lookup("trace"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			profile, ok := sites.Lookup(site)
			if !ok {
				return fmt.Errorf("unknown site %q (supported: %s)", site, strings.Join(sites.Names(), ", "))
			}

			session := browser.NewSession(cfg.Browser, logger)
			defer func() {
				if err := session.Close(); err != nil {
					logger.Warn("Error closing browser session", zap.Error(err))
				}
			}()

			target := shop.NewTarget(profile, cfg, session, logger)
			defer func() {
				if err := target.Close(); err != nil {
					logger.Warn("Error closing target page", zap.Error(err))
				}
			}()

			workflow := shop.NewWorkflow(target, cfg.Shop, logger)
			result, err := workflow.Run(ctx, shop.RunOptions{
				Query:     args[0],
				Item:      item,
				EmptyCart: emptyCart,
				MaxItems:  cfg.Shop.MaxItems,
				DryRun:    dryRun,
			})
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return fmt.Errorf("run aborted by user signal")
				}
				return err
			}

			printResult(result, dryRun)
			return nil
		},
	}

	shopCmd.Flags().StringVarP(&site, "site", "s", "blinkit", "Storefront to automate. See `cartpilot sites`.")
	shopCmd.Flags().StringVarP(&item, "item", "i", "", "Pick the listing whose name contains this text instead of a random one.")
	shopCmd.Flags().BoolVar(&emptyCart, "empty-cart", false, "Clear any pre-existing cart before searching.")
	shopCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stop after extracting listings; print them without touching the cart.")
	shopCmd.Flags().IntP("max-items", "n", 0, "Maximum listings to extract. (Overrides config/env)")
	shopCmd.Flags().String("trace", "", "Write AI request/response traces to this file. (Overrides config/env)")

	return shopCmd
}

// printResult writes the run summary for the operator.
func printResult(result *shop.RunResult, dryRun bool) {
	if dryRun {
		fmt.Printf("Extracted %d listings:\n", len(result.Products))
		for i, p := range result.Products {
			fmt.Printf("  %2d. %-40s %-10s %s\n", i+1, p.Name, p.Price, p.Quantity)
		}
		return
	}

	fmt.Printf("Added to cart: %s", result.Selected.Name)
	if result.Selected.Price != "" {
		fmt.Printf(" (%s)", result.Selected.Price)
	}
	fmt.Println()
	if result.Verified {
		fmt.Println("Cart verified.")
	} else {
		fmt.Println("Cart could not be verified; check the browser window.")
	}
}
