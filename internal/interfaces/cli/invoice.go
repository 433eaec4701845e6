package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jhoicas/kmc-invoice/internal/application/dto"
	"github.com/jhoicas/kmc-invoice/internal/domain"
)

func (r *root) invoiceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invoice",
		Aliases: []string{"invoices", "i"},
		Short:   "Numeración, alta, consulta, PDF e impresión de facturas",
	}
	cmd.AddCommand(
		r.invoiceNextCommand(),
		r.invoiceSaveCommand(),
		r.invoiceListCommand(),
		r.invoiceShowCommand(),
		r.invoicePDFCommand(),
		r.invoicePrintCommand(),
		r.invoiceDeleteCommand(),
	)
	return cmd
}

// parseItemFlag interpreta "descripción|cantidad|precio". La descripción puede contener '|':
// cantidad y precio se toman de los dos últimos campos.
func parseItemFlag(s string) (dto.InvoiceItemRequest, error) {
	parts := strings.Split(s, "|")
	if len(parts) < 3 {
		return dto.InvoiceItemRequest{}, fmt.Errorf("%w: línea %q, formato esperado \"descripción|cantidad|precio\"", domain.ErrInvalidInput, s)
	}
	n := len(parts)
	desc := strings.TrimSpace(strings.Join(parts[:n-2], "|"))
	qty, err := decimal.NewFromString(strings.TrimSpace(parts[n-2]))
	if err != nil {
		return dto.InvoiceItemRequest{}, fmt.Errorf("%w: cantidad %q", domain.ErrInvalidInput, parts[n-2])
	}
	price, err := decimal.NewFromString(strings.TrimSpace(parts[n-1]))
	if err != nil {
		return dto.InvoiceItemRequest{}, fmt.Errorf("%w: precio %q", domain.ErrInvalidInput, parts[n-1])
	}
	return dto.InvoiceItemRequest{Description: desc, Quantity: qty, UnitPrice: price}, nil
}

func printInvoice(p *printer, inv *dto.InvoiceResponse) {
	p.row("Factura:", inv.Number)
	p.row("Fecha:", inv.Date)
	p.row("Estado:", inv.Status)
	p.row("Cliente:", inv.Customer.Name)
	p.line("")
	p.row("#", "DESCRIPCIÓN", "CANT.", "PRECIO", "IMPORTE")
	for _, it := range inv.Items {
		p.row(fmt.Sprint(it.Position), it.Description, it.Quantity.String(), it.UnitPrice.StringFixed(2), it.Amount.StringFixed(2))
	}
	p.line("")
	p.row("", "", "", "Subtotal:", inv.Subtotal.StringFixed(2))
	p.row("", "", "", "Tax:", inv.Tax.StringFixed(2))
	p.row("", "", "", "Total:", inv.Total.StringFixed(2))
	if inv.Notes != "" {
		p.line("")
		p.row("Notas:", inv.Notes)
	}
}

func (r *root) invoiceNextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Muestra el próximo número de factura sin consumirlo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			res, err := app.Invoices.NextNumber(cmd.Context())
			if err != nil {
				return err
			}
			return r.print(cmd, res, func(p *printer) { p.line("%s", res.Number) })
		},
	}
}

func (r *root) invoiceSaveCommand() *cobra.Command {
	var (
		in       dto.SaveInvoiceRequest
		customer dto.CustomerRequest
		items    []string
		doPrint  bool
	)
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Guarda una factura nueva y le asigna el siguiente número",
		Example: `  kmcinvoice invoice save --customer "Ramesh Patel" --phone 9000000001 \
    --item "Widget|2|50.00" --item "Gadget|1|100.00" --date 2024-03-15 --print`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.CustomerID == "" && strings.TrimSpace(customer.Name) == "" {
				return fmt.Errorf("%w: indique --customer-id o --customer", domain.ErrInvalidInput)
			}
			if in.CustomerID == "" {
				customer.Address = unescapeLines(customer.Address)
				in.Customer = &customer
			}
			in.Items = in.Items[:0]
			for _, s := range items {
				it, err := parseItemFlag(s)
				if err != nil {
					return err
				}
				in.Items = append(in.Items, it)
			}

			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			inv, err := app.Invoices.Save(cmd.Context(), in)
			if err != nil {
				return err
			}

			var printed *dto.PrintResponse
			if !cmd.Flags().Changed("print") {
				doPrint = app.AutoPrint
			}
			if doPrint {
				// La factura ya quedó guardada: un fallo aquí no la deshace.
				if printed, err = app.PDF.Print(cmd.Context(), inv.Number); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "factura %s guardada, pero no se pudo generar el PDF: %v\n", inv.Number, err)
				}
			}
			return r.print(cmd, inv, func(p *printer) {
				printInvoice(p, inv)
				if printed != nil {
					p.line("")
					p.row("PDF:", printed.Path)
				}
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.CustomerID, "customer-id", "", "ID de un cliente existente")
	f.StringVar(&customer.Name, "customer", "", "nombre del cliente (se reutiliza si ya existe)")
	f.StringVar(&customer.Phone, "phone", "", "teléfono del cliente")
	f.StringVar(&customer.Address, "address", "", "dirección del cliente")
	f.StringVar(&customer.TaxID, "tax-id", "", "PAN / GSTIN del cliente")
	f.StringVar(&in.Date, "date", "", "fecha aaaa-mm-dd (por defecto hoy)")
	f.StringVar(&in.Notes, "notes", "", "notas")
	f.StringArrayVar(&items, "item", nil, `línea "descripción|cantidad|precio" (repetible)`)
	f.BoolVar(&doPrint, "print", false, "generar el PDF e imprimir al guardar (por defecto AUTO_PRINT)")
	cmd.MarkFlagsMutuallyExclusive("customer-id", "customer")
	return cmd
}

func (r *root) invoiceListCommand() *cobra.Command {
	var page dto.PageRequest
	cmd := &cobra.Command{
		Use:   "list [búsqueda]",
		Short: "Lista las facturas más recientes (filtra por número o cliente)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				page.Query = args[0]
			}
			list, err := app.Invoices.List(cmd.Context(), page)
			if err != nil {
				return err
			}
			return r.print(cmd, list, func(p *printer) {
				p.row("NÚMERO", "FECHA", "CLIENTE", "TOTAL", "ESTADO")
				for _, s := range list {
					p.row(s.Number, s.Date, s.CustomerName, s.Total.StringFixed(2), s.Status)
				}
			})
		},
	}
	cmd.Flags().IntVar(&page.Limit, "limit", 20, "máximo de filas")
	return cmd
}

func (r *root) invoiceShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <número>",
		Short: "Muestra una factura con sus líneas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			inv, err := app.Invoices.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return r.print(cmd, inv, func(p *printer) { printInvoice(p, inv) })
		},
	}
}

func (r *root) invoicePDFCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "pdf <número>",
		Short: "Genera el PDF A4 de la factura en la carpeta de salida",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			path, err := app.PDF.Export(cmd.Context(), args[0], dir)
			if err != nil {
				return err
			}
			res := dto.PrintResponse{Number: args[0], Path: path}
			return r.print(cmd, res, func(p *printer) { p.line("%s", path) })
		},
	}
	cmd.Flags().StringVarP(&dir, "out", "o", "", "carpeta de salida (por defecto OUTPUT_DIR)")
	return cmd
}

func (r *root) invoicePrintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "print <número>",
		Short: "Genera el PDF y lo envía a la impresora (si falla, lo abre)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			res, err := app.PDF.Print(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return r.print(cmd, res, func(p *printer) {
				if res.Printed {
					p.line("enviado a la impresora: %s", res.Path)
					return
				}
				p.line("no se pudo imprimir, abra el archivo: %s", res.Path)
			})
		},
	}
}

func (r *root) invoiceDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <número>",
		Short: "Borra una factura y sus líneas (el número no se reutiliza)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.Invoices.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return r.print(cmd, map[string]string{"deleted": args[0]}, func(p *printer) {
				p.line("factura %s eliminada", args[0])
			})
		},
	}
}
