package cli

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
)

func newFavoritesCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "List or toggle favorite products",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List favorite product ids",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			ids := s.sf.Favorites.IDs()
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No favorites yet.")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		}),
	}
	toggle := &cobra.Command{
		Use:   "toggle <product-id>...",
		Short: "Add or remove products from favorites",
		Args:  cobra.MinimumNArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if s.sf.Favorites.ToggleID(cmd.Context(), id) {
					fmt.Fprintf(cmd.OutOrStdout(), "Product %d added to favorites.\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Product %d removed from favorites.\n", id)
				}
			}
			if err := s.sf.Favorites.LastError(); err != nil {
				return errors.Wrap(err, "favorites not saved")
			}
			return nil
		}),
	}

	cmd.AddCommand(list, toggle)
	return cmd
}
