package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kmc-invoice/internal/application/dto"
	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
)

// SettingsStore lectura y actualización de settings.json (lo implementa *config.SettingsStore).
type SettingsStore interface {
	Current() entity.Settings
	Update(s entity.Settings) (entity.Settings, error)
}

// SettingsHandler expone la configuración del negocio.
type SettingsHandler struct {
	store SettingsStore
}

// NewSettingsHandler construye el handler.
func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// Get GET /api/settings
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	return c.JSON(h.store.Current())
}

// Update PUT /api/settings
// El cuerpo se aplica sobre la configuración vigente: los campos omitidos no cambian.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	s := h.store.Current()
	if err := c.BodyParser(&s); err != nil {
		return badBody(c)
	}
	saved, err := h.store.Update(s)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "SETTINGS", Message: err.Error()})
	}
	return c.JSON(saved)
}
