// Package cli es el front end de línea de comandos (cobra) sobre los casos de uso de facturación.
package cli

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jhoicas/kmc-invoice/internal/application/billing"
	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
)

// App casos de uso y operaciones de infraestructura que necesitan los comandos.
type App struct {
	Customers *billing.CustomerUseCase
	Invoices  *billing.InvoiceUseCase
	PDF       *billing.PDFUseCase
	AutoPrint bool
	Migrate   func(ctx context.Context) error
	Serve     func(ctx context.Context) error
}

// SettingsStore lo implementa *config.SettingsStore.
type SettingsStore interface {
	Current() entity.Settings
	Update(s entity.Settings) (entity.Settings, error)
	Path() string
}

// Options construcción del comando raíz. Open se invoca una sola vez, la primera vez
// que un comando necesita la base: "settings" funciona aunque la base no abra.
// Cerrar lo que Open abrió queda a cargo de quien lo provee.
type Options struct {
	Version  string
	Settings SettingsStore
	Open     func(ctx context.Context) (*App, error)
}

type root struct {
	opts    Options
	asJSON  bool
	once    sync.Once
	app     *App
	openErr error
}

// NewRootCommand arma el árbol de comandos.
func NewRootCommand(opts Options) *cobra.Command {
	r := &root{opts: opts}

	cmd := &cobra.Command{
		Use:   "kmcinvoice",
		Short: "Facturación offline: clientes, facturas numeradas y PDF A4",
		Long: `kmcinvoice guarda clientes y facturas en una base local, asigna números
consecutivos sin huecos (KMC-0001, KMC-0002, ...) y genera el PDF A4 de cada factura
para imprimirlo o archivarlo.

La configuración de la app se lee de variables de entorno (o .env); los datos del
negocio y la numeración, de settings.json.`,
		Version:       opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&r.asJSON, "json", false, "salida en JSON")

	cmd.AddCommand(
		r.customerCommand(),
		r.invoiceCommand(),
		r.settingsCommand(),
		r.migrateCommand(),
		r.serveCommand(),
	)
	return cmd
}

// open abre la base bajo demanda.
func (r *root) open(ctx context.Context) (*App, error) {
	r.once.Do(func() {
		if r.opts.Open == nil {
			r.openErr = errors.New("sin almacén configurado")
			return
		}
		r.app, r.openErr = r.opts.Open(ctx)
	})
	return r.app, r.openErr
}

func (r *root) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes del esquema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.Migrate(cmd.Context()); err != nil {
				return err
			}
			return r.print(cmd, map[string]string{"status": "ok"}, func(p *printer) {
				p.line("esquema al día")
			})
		},
	}
}

func (r *root) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Inicia la API HTTP local (solo 127.0.0.1) para el formulario de facturación",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			return app.Serve(cmd.Context())
		},
	}
}
