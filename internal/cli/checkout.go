package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raj-engineer/EcomApp/internal/domain/order"
)

func newCheckoutCmd(s *session) *cobra.Command {
	var req order.PlaceOrderRequest
	var payment string

	labels := make([]string, len(order.PaymentMethods))
	for i, m := range order.PaymentMethods {
		labels[i] = string(m)
	}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart contents",
		Example: `  storefront checkout --address "221B Baker Street" --payment upi
  storefront checkout --address "221B Baker Street" --payment "Cash on Delivery" --coupon SAVE10`,
		Args: cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			method, err := order.ParsePaymentMethod(payment)
			if err != nil {
				return err
			}
			req.PaymentMethod = method

			o, err := s.sf.Orders.PlaceOrder(cmd.Context(), req)
			if err != nil {
				return err
			}
			printOrder(cmd.OutOrStdout(), o)
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.Address, "address", "", "Delivery address")
	cmd.Flags().StringVar(&payment, "payment", "", "Payment method: "+strings.Join(labels, ", "))
	cmd.Flags().StringVar(&req.CouponCode, "coupon", "", "Coupon code")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("payment")
	return cmd
}

func newOrdersCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List placed orders, newest first",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			list, err := s.sf.Orders.Orders(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No orders yet.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tPLACED\tITEMS\tTOTAL\tPAYMENT")
			for _, o := range list {
				items := 0
				for _, it := range o.Items {
					items += it.Quantity
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t$%s\t%s\n",
					o.ID, o.CreatedAt.Local().Format("2006-01-02 15:04"), items, o.Total.StringFixed(2), o.PaymentMethod.Label())
			}
			return tw.Flush()
		}),
	}
}
