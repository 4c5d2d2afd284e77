package cli

import (
	"fmt"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

func newCartCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or change the cart",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			printCart(cmd.OutOrStdout(), s.sf.Cart)
			return nil
		}),
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE:  cmd.RunE,
	}
	add := &cobra.Command{
		Use:   "add <product-id>...",
		Short: "Add one unit of each product",
		Args:  cobra.MinimumNArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			for _, id := range ids {
				p, err := s.cartProduct(cmd, id)
				if err != nil {
					return err
				}
				s.sf.Cart.Add(cmd.Context(), p)
			}
			return s.afterCartChange(cmd)
		}),
	}
	remove := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove one unit of a product",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			return s.removeFromCart(cmd, args[0], false)
		}),
	}
	removeAll := &cobra.Command{
		Use:   "remove-all <product-id>",
		Short: "Remove every unit of a product",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			return s.removeFromCart(cmd, args[0], true)
		}),
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			s.sf.Cart.Clear(cmd.Context())
			return s.afterCartChange(cmd)
		}),
	}

	cmd.AddCommand(show, add, remove, removeAll, clearCmd)
	return cmd
}

// cartProduct reuses the cart's copy of a product before asking the catalog.
func (s *session) cartProduct(cmd *cobra.Command, id int) (product.Product, error) {
	if e, ok := s.sf.Cart.Entry(id); ok {
		return e.Product, nil
	}
	p, err := s.sf.Client.Get(cmd.Context(), id)
	if err != nil {
		return product.Product{}, errors.Wrapf(err, "get product %d", id)
	}
	return *p, nil
}

func (s *session) removeFromCart(cmd *cobra.Command, arg string, all bool) error {
	ids, err := parseIDs([]string{arg})
	if err != nil {
		return err
	}
	e, ok := s.sf.Cart.Entry(ids[0])
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "Product %d is not in the cart.\n", ids[0])
		return nil
	}
	if all {
		s.sf.Cart.RemoveAll(cmd.Context(), e.Product)
	} else {
		s.sf.Cart.Remove(cmd.Context(), e.Product)
	}
	return s.afterCartChange(cmd)
}

// afterCartChange prints the cart and surfaces a failed save.
func (s *session) afterCartChange(cmd *cobra.Command) error {
	printCart(cmd.OutOrStdout(), s.sf.Cart)
	if err := s.sf.Cart.LastError(); err != nil {
		return errors.Wrap(err, "cart not saved")
	}
	return nil
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil || id <= 0 {
			return nil, errors.Errorf("invalid product id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
