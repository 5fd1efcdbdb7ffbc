package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fulfillment-engine/internal/domain/entity"
)

func newStockCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Ajustes y reportes de stock",
	}

	var (
		productID  string
		delta      int
		changeType string
		user       string
		notes      string
	)
	adjust := &cobra.Command{
		Use:   "adjust",
		Short: "Aplica un delta al stock de un producto (queda auditado)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var n *string
			if notes != "" {
				n = &notes
			}
			p, err := e.svc.MutateStock(cmd.Context(), productID, delta, user, changeType, n)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s (%s): stock %d\n", p.SKU, p.ID, p.CurrentStock)
			return nil
		},
	}
	adjust.Flags().StringVar(&productID, "product", "", "ID del producto")
	adjust.Flags().IntVar(&delta, "delta", 0, "Cantidad a sumar (negativa para descontar)")
	adjust.Flags().StringVar(&changeType, "type", entity.ChangeTypeManualAdjustment, "stock_replenishment | manual_adjustment")
	adjust.Flags().StringVar(&user, "user", "", "Usuario responsable")
	adjust.Flags().StringVar(&notes, "notes", "", "Notas del ajuste")
	_ = adjust.MarkFlagRequired("product")
	_ = adjust.MarkFlagRequired("delta")
	_ = adjust.MarkFlagRequired("user")

	low := &cobra.Command{
		Use:   "low",
		Short: "Productos bajo el stock mínimo con la cantidad sugerida de reposición",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := e.svc.ListLowStock(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(out(cmd), "Ningún producto bajo el mínimo")
				return nil
			}
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRIORIDAD\tSKU\tNOMBRE\tSTOCK\tMÍNIMO\tSUGERIDO")
			for _, s := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\n",
					s.Priority, s.SKU, s.ProductName, s.CurrentStock, s.MinStockLevel, s.SuggestedOrderQty)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(adjust, low)
	return cmd
}

func newProductsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Alta y consulta de productos",
	}

	var (
		sku, name, user string
		minStock, stock int
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Da de alta un producto con stock inicial",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := e.svc.CreateProduct(cmd.Context(), sku, name, minStock, stock, user)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Producto %s creado: %s (stock %d)\n", p.SKU, p.ID, p.CurrentStock)
			return nil
		},
	}
	create.Flags().StringVar(&sku, "sku", "", "SKU único")
	create.Flags().StringVar(&name, "name", "", "Nombre")
	create.Flags().IntVar(&minStock, "min-stock", 0, "Stock mínimo")
	create.Flags().IntVar(&stock, "stock", 0, "Stock inicial")
	create.Flags().StringVar(&user, "user", "", "Usuario responsable")
	_ = create.MarkFlagRequired("sku")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("user")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Muestra el producto y sus últimos cambios de inventario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.svc.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			changes, err := e.svc.GetInventoryChanges(cmd.Context(), &p.ID)
			if err != nil {
				return err
			}
			w := out(cmd)
			fmt.Fprintf(w, "%s  %s\nstock %d (mínimo %d)\n", p.SKU, p.Name, p.CurrentStock, p.MinStockLevel)
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FECHA\tTIPO\tANTES\tDESPUÉS\tUSUARIO")
			for _, c := range changes {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
					c.Timestamp.Format("2006-01-02 15:04:05"), c.ChangeType, c.PreviousQuantity, c.NewQuantity, c.UserID)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(create, show)
	return cmd
}
