package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/jhoicas/kmc-invoice/internal/application/billing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CustomerUC *billing.CustomerUseCase
	InvoiceUC  *billing.InvoiceUseCase
	PDFUC      *billing.PDFUseCase
	Settings   SettingsStore
	AutoPrint  bool
	Log        zerolog.Logger
}

// NewApp crea la aplicación Fiber con middlewares y rutas.
func NewApp(name string, deps RouterDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		ReadTimeout:           time.Second * 10,
		WriteTimeout:          time.Second * 30, // render + impresión
		IdleTimeout:           time.Second * 60,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(LoopbackOnly())
	app.Use(RequestLogger(deps.Log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": name})
	})

	Router(app, deps)
	return app
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Customers
	customers := api.Group("/customers")
	customerHandler := NewCustomerHandler(deps.CustomerUC)
	customers.Post("/", customerHandler.Create)
	customers.Get("/", customerHandler.List)
	customers.Get("/:id", customerHandler.GetByID)
	customers.Put("/:id", customerHandler.Update)
	customers.Delete("/:id", customerHandler.Delete)

	// Invoices (next-number antes de /:number)
	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC, deps.PDFUC, deps.AutoPrint, deps.Log)
	invoices.Get("/next-number", invoiceHandler.NextNumber)
	invoices.Post("/", invoiceHandler.Save)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/:number", invoiceHandler.GetByNumber)
	invoices.Delete("/:number", invoiceHandler.Delete)
	invoices.Get("/:number/pdf", invoiceHandler.PDF)
	invoices.Post("/:number/export", invoiceHandler.Export)
	invoices.Post("/:number/print", invoiceHandler.Print)

	// Settings
	settingsHandler := NewSettingsHandler(deps.Settings)
	api.Get("/settings", settingsHandler.Get)
	api.Put("/settings", settingsHandler.Update)
}
