package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/kmc-invoice/pkg/config"
)

func (r *root) settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Consulta y edita settings.json (datos del negocio y numeración)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Muestra la configuración vigente",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s := r.opts.Settings.Current()
				return r.print(cmd, s, func(p *printer) {
					p.row("archivo", r.opts.Settings.Path())
					p.row("business_name", s.BusinessName)
					p.row("owner", s.Owner)
					p.row("phone", s.Phone)
					p.row("permit", s.Permit)
					p.row("pan", s.PAN)
					p.row("cheque_to", s.ChequeTo)
					p.row("thank_you", s.ThankYou)
					p.row("invoice_prefix", s.InvoicePrefix)
					p.row("number_width", fmt.Sprint(s.NumberWidth))
					p.row("number_start", fmt.Sprint(s.NumberStart))
					p.row("tax_rate", s.TaxRate.String())
					p.row("currency_symbol", s.CurrencySymbol)
					p.row("number_grouping", s.NumberGrouping)
					p.row("logo_path", s.LogoPath)
					p.row("font_dir", s.FontDir)
					p.row("font_family", s.FontFamily)
				})
			},
		},
		&cobra.Command{
			Use:       "set <clave> <valor>",
			Short:     "Cambia un campo y guarda settings.json",
			Example:   `  kmcinvoice settings set tax_rate 0.18`,
			Args:      cobra.ExactArgs(2),
			ValidArgs: config.SettingKeys(),
			RunE: func(cmd *cobra.Command, args []string) error {
				s := r.opts.Settings.Current()
				if err := config.ApplySetting(&s, args[0], args[1]); err != nil {
					return err
				}
				saved, err := r.opts.Settings.Update(s)
				if err != nil {
					return err
				}
				return r.print(cmd, saved, func(p *printer) { p.line("%s actualizado", args[0]) })
			},
		},
	)
	return cmd
}
