package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"devstudio/internal/listing"
	"devstudio/internal/models"
	"devstudio/internal/pagination"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Product catalog commands",
}

var listProductsCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	Long: `List the product catalog. Filters apply to the fetched catalog:
  --category NAME   only products in this category
  --price RANGE     low (< 500), mid (500-1000) or high (> 1000)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		all, _ := cmd.Flags().GetBool("all")
		category, _ := cmd.Flags().GetString("category")
		price, _ := cmd.Flags().GetString("price")
		search, _ := cmd.Flags().GetString("search")

		mode := listing.ModeNumbered
		if all {
			mode = listing.ModeAccumulate
		}
		ctl := listing.New(productFetcher(), models.ProductKey, listing.Options[models.Product]{
			Mode:        mode,
			PageSize:    deps.cfg.ProductPageSize,
			LocalPaging: true,
			Filters:     listing.ProductFilters(),
			Notifier:    deps.notifier,
			Logger:      deps.logger.Named("products"),
		})
		defer ctl.Close()

		ctx := cmd.Context()
		if err := ctl.Search(ctx, search); err != nil {
			return reported(err)
		}
		for name, value := range map[string]string{listing.FilterCategory: category, listing.FilterPrice: price} {
			if value == "" {
				continue
			}
			if err := ctl.SetFilter(ctx, name, value); err != nil {
				return reported(err)
			}
		}

		if all {
			for ctl.HasMore() {
				if err := ctl.LoadMore(ctx); err != nil {
					return reported(err)
				}
			}
		} else if page > 1 {
			if err := ctl.SetPage(ctx, page-1); err != nil {
				return reported(err)
			}
		}

		renderProducts(os.Stdout, ctl, !all)
		return nil
	},
}

// productFetcher loads the whole catalog; the endpoint is not paginated. A
// search term matches name and description locally.
func productFetcher() listing.Fetcher[models.Product] {
	return func(ctx context.Context, term string, _, _ int) (pagination.Page[models.Product], error) {
		products, err := deps.client.ListProducts(ctx)
		if err != nil {
			return pagination.Page[models.Product]{}, err
		}
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
			matched := products[:0:0]
			for _, p := range products {
				if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.Description), term) {
					matched = append(matched, p)
				}
			}
			products = matched
		}
		return pagination.NewPage(products, 0, len(products), len(products)), nil
	}
}

func renderProducts(w io.Writer, ctl *listing.Controller[models.Product], paged bool) {
	products := ctl.Visible()
	if len(products) == 0 {
		fmt.Fprintln(w, "No products found.")
		return
	}

	for _, p := range products {
		fmt.Fprintf(w, "%s  %s  %s\n", color.HiBlackString("#"+p.ID), color.New(color.Bold).Sprint(p.Name), color.GreenString(p.Price))
		fmt.Fprintf(w, "    %s · %s price range\n", p.Category, listing.PriceBracket(p.Price))
		if p.Description != "" {
			fmt.Fprintf(w, "    %s\n", p.Description)
		}
		for _, f := range p.Features {
			fmt.Fprintf(w, "      - %s\n", f)
		}
	}
	if paged {
		fmt.Fprintf(w, "\nPage %d/%d\n", ctl.PageIndex()+1, ctl.TotalPages())
	}
}

func init() {
	productCmd.AddCommand(listProductsCmd)

	listProductsCmd.Flags().Int("page", 1, "Page number")
	listProductsCmd.Flags().Bool("all", false, "Show every page")
	listProductsCmd.Flags().String("category", "", "Only show products in this category")
	listProductsCmd.Flags().String("price", "", "Price range: low, mid or high")
	listProductsCmd.Flags().String("search", "", "Match product name or description")
}
