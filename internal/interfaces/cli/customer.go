package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhoicas/kmc-invoice/internal/application/dto"
)

func (r *root) customerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "customer",
		Aliases: []string{"customers", "c"},
		Short:   "Alta, edición, consulta y borrado de clientes",
	}
	cmd.AddCommand(
		r.customerAddCommand(),
		r.customerListCommand(),
		r.customerShowCommand(),
		r.customerEditCommand(),
		r.customerDeleteCommand(),
	)
	return cmd
}

func customerFlags(cmd *cobra.Command, in *dto.CustomerRequest) {
	cmd.Flags().StringVar(&in.Name, "name", "", "nombre del cliente")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "teléfono")
	cmd.Flags().StringVar(&in.Address, "address", "", `dirección (use "\n" para varias líneas)`)
	cmd.Flags().StringVar(&in.TaxID, "tax-id", "", "PAN / GSTIN / permiso")
}

// unescapeLines permite escribir direcciones de varias líneas en un solo argumento.
func unescapeLines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

func printCustomer(p *printer, c *dto.CustomerResponse) {
	p.row("ID:", c.ID)
	p.row("Nombre:", c.Name)
	if c.Phone != "" {
		p.row("Teléfono:", c.Phone)
	}
	for i, l := range strings.Split(c.Address, "\n") {
		if l == "" {
			continue
		}
		label := ""
		if i == 0 {
			label = "Dirección:"
		}
		p.row(label, l)
	}
	if c.TaxID != "" {
		p.row("Tax ID:", c.TaxID)
	}
}

func (r *root) customerAddCommand() *cobra.Command {
	var in dto.CustomerRequest
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Crea un cliente",
		Example: `  kmcinvoice customer add --name "Ramesh Patel" --phone 9000000001 --address "12 Station Road\nAhmedabad"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			in.Address = unescapeLines(in.Address)
			c, err := app.Customers.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return r.print(cmd, c, func(p *printer) { printCustomer(p, c) })
		},
	}
	customerFlags(cmd, &in)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (r *root) customerListCommand() *cobra.Command {
	var page dto.PageRequest
	cmd := &cobra.Command{
		Use:   "list [búsqueda]",
		Short: "Lista clientes (filtra por nombre o teléfono)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				page.Query = args[0]
			}
			list, err := app.Customers.List(cmd.Context(), page)
			if err != nil {
				return err
			}
			return r.print(cmd, list, func(p *printer) {
				p.row("ID", "NOMBRE", "TELÉFONO")
				for _, c := range list {
					p.row(c.ID, c.Name, c.Phone)
				}
			})
		},
	}
	cmd.Flags().IntVar(&page.Limit, "limit", 20, "máximo de filas")
	cmd.Flags().IntVar(&page.Offset, "offset", 0, "filas a saltar")
	return cmd
}

func (r *root) customerShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Muestra un cliente",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			c, err := app.Customers.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return r.print(cmd, c, func(p *printer) { printCustomer(p, c) })
		},
	}
}

func (r *root) customerEditCommand() *cobra.Command {
	var in dto.CustomerRequest
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edita un cliente; los campos no indicados se conservan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			cur, err := app.Customers.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			merged := dto.CustomerRequest{Name: cur.Name, Phone: cur.Phone, Address: cur.Address, TaxID: cur.TaxID}
			flags := cmd.Flags()
			if flags.Changed("name") {
				merged.Name = in.Name
			}
			if flags.Changed("phone") {
				merged.Phone = in.Phone
			}
			if flags.Changed("address") {
				merged.Address = unescapeLines(in.Address)
			}
			if flags.Changed("tax-id") {
				merged.TaxID = in.TaxID
			}
			c, err := app.Customers.Update(cmd.Context(), args[0], merged)
			if err != nil {
				return err
			}
			return r.print(cmd, c, func(p *printer) { printCustomer(p, c) })
		},
	}
	customerFlags(cmd, &in)
	return cmd
}

func (r *root) customerDeleteCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Borra un cliente; con --force borra también sus facturas",
		Long: `Borra un cliente. Si tiene facturas el borrado se rechaza y no se toca nada,
salvo que se indique --force: entonces se borran en una sola transacción las líneas,
las facturas y el cliente. Los números de factura borrados no se reutilizan.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			res, err := app.Customers.Delete(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}
			return r.print(cmd, res, func(p *printer) {
				p.line("cliente %s eliminado (%d facturas)", res.CustomerID, res.Invoices)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "borrar también las facturas del cliente")
	return cmd
}
