package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
)

// ErrSettingsUnreadable el archivo existe pero no se pudo leer; se usan los valores por defecto.
var ErrSettingsUnreadable = errors.New("settings ilegible, se usan valores por defecto")

// LoadSettings lee settings.json con Viper. Los campos ausentes toman su valor por defecto.
//   - Si el archivo no existe se crea con los valores por defecto.
//   - Si no se puede leer o parsear se devuelven los valores por defecto junto con un error
//     que envuelve ErrSettingsUnreadable, y el archivo no se toca.
func LoadSettings(path string) (entity.Settings, error) {
	def := entity.DefaultSettings()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := SaveSettings(path, def); err != nil {
			return def, fmt.Errorf("crear %s: %w", path, err)
		}
		return def, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return def, fmt.Errorf("%w: %s: %v", ErrSettingsUnreadable, path, err)
	}

	s := entity.Settings{
		BusinessName:   getString(v, "business_name", def.BusinessName),
		Owner:          getString(v, "owner", def.Owner),
		Phone:          getString(v, "phone", def.Phone),
		Permit:         getString(v, "permit", def.Permit),
		PAN:            getString(v, "pan", def.PAN),
		ChequeTo:       getString(v, "cheque_to", def.ChequeTo),
		ThankYou:       getString(v, "thank_you", def.ThankYou),
		InvoicePrefix:  getString(v, "invoice_prefix", def.InvoicePrefix),
		TaxRate:        getDecimal(v, "tax_rate", def.TaxRate),
		LogoPath:       getString(v, "logo_path", def.LogoPath),
		FontDir:        getString(v, "font_dir", def.FontDir),
		FontFamily:     getString(v, "font_family", def.FontFamily),
		CurrencySymbol: getString(v, "currency_symbol", def.CurrencySymbol),
		NumberGrouping: getString(v, "number_grouping", def.NumberGrouping),
		NumberWidth:    getInt(v, "number_width", def.NumberWidth),
		NumberStart:    int64(getInt(v, "number_start", int(def.NumberStart))),
	}
	return s.Normalize(), nil
}

// SaveSettings escribe settings.json de forma atómica (archivo temporal + rename).
func SaveSettings(path string, s entity.Settings) error {
	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(body, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func getDecimal(v *viper.Viper, key string, def decimal.Decimal) decimal.Decimal {
	if !v.IsSet(key) {
		return def
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return def
	}
	return d
}

// ── Edición por clave ─────────────────────────────────────────────────────────

var settingSetters = map[string]func(*entity.Settings, string) error{
	"business_name":   func(s *entity.Settings, v string) error { s.BusinessName = v; return nil },
	"owner":           func(s *entity.Settings, v string) error { s.Owner = v; return nil },
	"phone":           func(s *entity.Settings, v string) error { s.Phone = v; return nil },
	"permit":          func(s *entity.Settings, v string) error { s.Permit = v; return nil },
	"pan":             func(s *entity.Settings, v string) error { s.PAN = v; return nil },
	"cheque_to":       func(s *entity.Settings, v string) error { s.ChequeTo = v; return nil },
	"thank_you":       func(s *entity.Settings, v string) error { s.ThankYou = v; return nil },
	"invoice_prefix":  func(s *entity.Settings, v string) error { s.InvoicePrefix = v; return nil },
	"logo_path":       func(s *entity.Settings, v string) error { s.LogoPath = v; return nil },
	"font_dir":        func(s *entity.Settings, v string) error { s.FontDir = v; return nil },
	"font_family":     func(s *entity.Settings, v string) error { s.FontFamily = v; return nil },
	"currency_symbol": func(s *entity.Settings, v string) error { s.CurrencySymbol = v; return nil },
	"tax_rate": func(s *entity.Settings, v string) error {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			return fmt.Errorf("tax_rate %q inválido", v)
		}
		s.TaxRate = d
		return nil
	},
	"number_grouping": func(s *entity.Settings, v string) error {
		if v != entity.GroupingInternational && v != entity.GroupingIndian {
			return fmt.Errorf("number_grouping debe ser %s o %s", entity.GroupingInternational, entity.GroupingIndian)
		}
		s.NumberGrouping = v
		return nil
	},
	"number_width": func(s *entity.Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			return fmt.Errorf("number_width %q inválido (1-12)", v)
		}
		s.NumberWidth = n
		return nil
	},
	"number_start": func(s *entity.Settings, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return fmt.Errorf("number_start %q inválido", v)
		}
		s.NumberStart = n
		return nil
	},
}

// SettingKeys claves aceptadas por ApplySetting, ordenadas.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingSetters))
	for k := range settingSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplySetting asigna un campo por su clave JSON.
func ApplySetting(s *entity.Settings, key, value string) error {
	set, ok := settingSetters[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("clave desconocida %q (válidas: %s)", key, strings.Join(SettingKeys(), ", "))
	}
	return set(s, strings.TrimSpace(value))
}

// ── Store en memoria ──────────────────────────────────────────────────────────

// SettingsStore mantiene la configuración vigente y la persiste al actualizarla.
// Implementa billing.SettingsProvider.
type SettingsStore struct {
	path    string
	current atomic.Pointer[entity.Settings]
	mu      sync.Mutex // serializa Update
}

// NewSettingsStore carga path. Un archivo ilegible no es fatal: el error se devuelve
// para registrarlo y el store queda con los valores por defecto.
func NewSettingsStore(path string) (*SettingsStore, error) {
	s, err := LoadSettings(path)
	st := &SettingsStore{path: path}
	st.current.Store(&s)
	return st, err
}

// Current devuelve una copia de la configuración vigente.
func (st *SettingsStore) Current() entity.Settings {
	return *st.current.Load()
}

// Path ruta del archivo.
func (st *SettingsStore) Path() string { return st.path }

// Update normaliza, guarda en disco y publica la nueva configuración.
func (st *SettingsStore) Update(s entity.Settings) (entity.Settings, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s = s.Normalize()
	if err := SaveSettings(st.path, s); err != nil {
		return st.Current(), fmt.Errorf("guardar settings: %w", err)
	}
	st.current.Store(&s)
	return s, nil
}
