package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/raj-engineer/EcomApp/internal/domain/catalog"
)

func newProductsCmd(s *session) *cobra.Command {
	var (
		search   string
		category string
		pages    int
	)
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List catalog products",
		Example: `  # First two listing pages
  storefront products --pages 2

  # Search and filter
  storefront products --search phone
  storefront products --category beauty`,
		Args: cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st := s.sf.Catalog

			var err error
			switch {
			case search != "":
				err = searchAndWait(ctx, st, search)
			case category != "":
				err = st.FetchByCategory(ctx, category)
			default:
				err = st.ResetAndFetchFirstPage(ctx)
				for i := 1; err == nil && i < pages && st.CanLoadMore(); i++ {
					err = st.FetchNextPage(ctx)
				}
			}
			if err != nil {
				return err
			}

			snap := st.Snapshot()
			printProducts(cmd.OutOrStdout(), snap.Products, s.sf.Favorites, s.sf.Cart)
			printListingFooter(cmd.OutOrStdout(), snap, st.CanLoadMore())
			return nil
		}),
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Search query")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category slug")
	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "Number of listing pages to load")
	cmd.MarkFlagsMutuallyExclusive("search", "category")
	cmd.MarkFlagsMutuallyExclusive("search", "pages")
	cmd.MarkFlagsMutuallyExclusive("category", "pages")
	return cmd
}

// searchAndWait runs a query through the debounced search path and waits for
// it to settle. A settled query that fetched nothing ends the wait too.
func searchAndWait(ctx context.Context, st *catalog.State, query string) error {
	if strings.TrimSpace(query) == "" {
		return errors.New("search query is blank")
	}
	done := make(chan error, 1)
	unsubscribe := st.Subscribe(func(ev catalog.Event) {
		var result error
		switch {
		case ev.Err != nil:
			result = errors.Wrap(ev.Err, "search")
		case ev.Skipped:
		case ev.State.Mode == catalog.ModeSearch && !ev.State.Loading:
		default:
			return
		}
		select {
		case done <- result:
		default:
		}
	})
	defer unsubscribe()

	st.SetSearchQuery(query)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newCategoriesCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List product categories",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			cats, err := s.sf.Catalog.LoadCategories(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		}),
	}
}
