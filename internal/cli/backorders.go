package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBackordersCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backorders",
		Short: "Backorders pendientes de autorización",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Lista los backorders sin autorizar, más antiguos primero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := e.svc.ListUnshippedItemsForAuthorization(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(out(cmd), "No hay backorders pendientes")
				return nil
			}
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPEDIDO\tCLIENTE\tPRODUCTO\tCANTIDAD\tCREADO")
			for _, bo := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					bo.ID, bo.OriginalOrderNumber, bo.CustomerName, bo.ProductID, bo.Quantity,
					bo.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	var ids []string
	var user string
	authorize := &cobra.Command{
		Use:   "authorize",
		Short: "Autoriza backorders para su envío",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.svc.AuthorizeUnshippedItems(cmd.Context(), ids, user); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Autorizados %d backorders por %s\n", len(ids), user)
			return nil
		},
	}
	authorize.Flags().StringSliceVar(&ids, "ids", nil, "IDs de backorder separados por coma")
	authorize.Flags().StringVar(&user, "user", "", "Usuario que autoriza")
	_ = authorize.MarkFlagRequired("ids")
	_ = authorize.MarkFlagRequired("user")

	var orderID string
	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Concilia backorders autorizados enviados en un pedido de reemplazo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.svc.ReconcileShipped(cmd.Context(), ids, orderID, user); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Conciliados %d backorders en el pedido %s\n", len(ids), orderID)
			return nil
		},
	}
	reconcile.Flags().StringSliceVar(&ids, "ids", nil, "IDs de backorder separados por coma")
	reconcile.Flags().StringVar(&orderID, "order", "", "ID del pedido de reemplazo")
	reconcile.Flags().StringVar(&user, "user", "", "Usuario que concilia")
	_ = reconcile.MarkFlagRequired("ids")
	_ = reconcile.MarkFlagRequired("order")
	_ = reconcile.MarkFlagRequired("user")

	cmd.AddCommand(list, authorize, reconcile)
	return cmd
}
