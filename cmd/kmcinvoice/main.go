package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/kmc-invoice/internal/application/billing"
	"github.com/jhoicas/kmc-invoice/internal/domain/repository"
	infrapdf "github.com/jhoicas/kmc-invoice/internal/infrastructure/pdf"
	"github.com/jhoicas/kmc-invoice/internal/infrastructure/postgres"
	"github.com/jhoicas/kmc-invoice/internal/infrastructure/printing"
	"github.com/jhoicas/kmc-invoice/internal/infrastructure/sqlite"
	"github.com/jhoicas/kmc-invoice/internal/interfaces/cli"
	httpRouter "github.com/jhoicas/kmc-invoice/internal/interfaces/http"
	"github.com/jhoicas/kmc-invoice/pkg/config"
	"github.com/jhoicas/kmc-invoice/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})

	settings, err := config.NewSettingsStore(cfg.SettingsPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.SettingsPath).Msg("settings.json no disponible, se usan valores por defecto")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closeStore func()
	root := cli.NewRootCommand(cli.Options{
		Version:  version,
		Settings: settings,
		Open: func(ctx context.Context) (*cli.App, error) {
			app, closer, err := buildApp(ctx, cfg, log, settings)
			closeStore = closer
			return app, err
		},
	})

	err = root.ExecuteContext(ctx)
	if closeStore != nil {
		closeStore()
	}
	if err != nil {
		log.Debug().Err(err).Msg("comando finalizado con error")
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// store repositorios y transacciones del motor elegido.
type store struct {
	tx        billing.TxRunner
	customers repository.CustomerRepository
	invoices  repository.InvoiceRepository
	sequences repository.SequenceRepository
	migrate   func(ctx context.Context) error
	close     func()
}

// openStore abre SQLite (por defecto) o PostgreSQL y aplica las migraciones.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*store, error) {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		s := &store{
			tx:        postgres.NewTxRunner(pool),
			customers: postgres.NewCustomerRepository(pool),
			invoices:  postgres.NewInvoiceRepository(pool),
			sequences: postgres.NewSequenceRepository(pool),
			migrate:   func(ctx context.Context) error { return postgres.Migrate(ctx, pool) },
			close:     pool.Close,
		}
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migraciones: %w", err)
		}
		log.Debug().Str("driver", cfg.DB.Driver).Msg("almacén abierto")
		return s, nil
	default:
		db, err := sqlite.Open(ctx, cfg.DB.Path)
		if err != nil {
			return nil, err
		}
		s := &store{
			tx:        sqlite.NewTxRunner(db),
			customers: sqlite.NewCustomerRepository(db),
			invoices:  sqlite.NewInvoiceRepository(db),
			sequences: sqlite.NewSequenceRepository(db),
			migrate:   func(ctx context.Context) error { return sqlite.Migrate(ctx, db) },
			close:     func() { _ = db.Close() },
		}
		if err := s.migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migraciones: %w", err)
		}
		log.Debug().Str("driver", cfg.DB.Driver).Str("path", cfg.DB.Path).Msg("almacén abierto")
		return s, nil
	}
}

func buildApp(ctx context.Context, cfg *config.Config, log *logger.Logger, settings *config.SettingsStore) (*cli.App, func(), error) {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	allocator := billing.NewNumberAllocator(st.tx, st.sequences, settings, log.Component("allocator"))
	customerUC := billing.NewCustomerUseCase(st.tx, st.customers, st.invoices, log.Component("customers"))
	invoiceUC := billing.NewInvoiceUseCase(st.tx, allocator, customerUC, st.invoices, st.customers, settings, log.Component("invoices"))

	pdfGenerator := infrapdf.NewMarotoPDFGenerator(infrapdf.WithLogger(log.Component("pdf")))
	printer := printing.NewOSPrinter(log.Component("printer"))
	pdfUC := billing.NewPDFUseCase(invoiceUC, st.invoices, pdfGenerator, printer, cfg.Output.Dir, log.Component("pdf"))

	app := &cli.App{
		Customers: customerUC,
		Invoices:  invoiceUC,
		PDF:       pdfUC,
		AutoPrint: cfg.Output.AutoPrint,
		Migrate:   st.migrate,
	}
	app.Serve = func(ctx context.Context) error {
		return serve(ctx, cfg, log, httpRouter.RouterDeps{
			CustomerUC: customerUC,
			InvoiceUC:  invoiceUC,
			PDFUC:      pdfUC,
			Settings:   settings,
			AutoPrint:  cfg.Output.AutoPrint,
			Log:        log.Component("http"),
		})
	}
	return app, st.close, nil
}

// serve atiende la API local hasta que ctx se cancela (Ctrl+C / SIGTERM).
func serve(ctx context.Context, cfg *config.Config, log *logger.Logger, deps httpRouter.RouterDeps) error {
	app := httpRouter.NewApp(cfg.App.Name, deps)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr()).Msg("API local escuchando")
		errCh <- app.Listen(cfg.HTTP.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("apagado del servidor")
		return err
	}
	log.Info().Msg("servidor detenido")
	return nil
}
