package pdf

import (
	"bytes"
	"fmt"
	stdimage "image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontfamily"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/repository"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/kmc-invoice/internal/domain"
)

// fontSet familia a usar y, si es personalizada, las fuentes a registrar en Maroto.
type fontSet struct {
	family string
	custom []*entity.CustomFont
}

func (f fontSet) builtin() bool { return len(f.custom) == 0 }

var builtinFonts = fontSet{family: fontfamily.Helvetica}

// loadFonts busca <dir>/<family>-Regular.ttf y <dir>/<family>-Bold.ttf.
// Si falta alguno devuelve la fuente incorporada y el motivo.
func loadFonts(dir, family string) (fontSet, error) {
	if strings.TrimSpace(dir) == "" {
		return builtinFonts, nil
	}
	regular := filepath.Join(dir, family+"-Regular.ttf")
	bold := filepath.Join(dir, family+"-Bold.ttf")
	for _, p := range []string{regular, bold} {
		if _, err := os.Stat(p); err != nil {
			return builtinFonts, fmt.Errorf("fuente %s: %w", p, err)
		}
	}
	fonts, err := repository.New().
		AddUTF8Font(family, fontstyle.Normal, regular).
		AddUTF8Font(family, fontstyle.Bold, bold).
		AddUTF8Font(family, fontstyle.Italic, regular).
		AddUTF8Font(family, fontstyle.BoldItalic, bold).
		Load()
	if err != nil {
		return builtinFonts, fmt.Errorf("cargar fuentes %s: %w", family, err)
	}
	return fontSet{family: family, custom: fonts}, nil
}

// logo imagen de cabecera ya validada.
type logo struct {
	data []byte
	ext  extension.Type
}

// loadLogo lee y decodifica la cabecera de la imagen. Solo PNG y JPEG.
func loadLogo(path string) (*logo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, format, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("logo %s: %w", path, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("logo %s: imagen vacía", path)
	}
	switch format {
	case "png":
		return &logo{data: data, ext: extension.Png}, nil
	case "jpeg":
		return &logo{data: data, ext: extension.Jpg}, nil
	default:
		return nil, fmt.Errorf("logo %s: formato %s no soportado", path, format)
	}
}

// checkEncodable verifica que los textos puedan escribirse con la fuente incorporada
// (Windows-1252). Devuelve domain.ErrUnrenderableText con el primer texto problemático.
func checkEncodable(texts ...string) error {
	enc := charmap.Windows1252.NewEncoder()
	for _, s := range texts {
		if s == "" {
			continue
		}
		if _, err := enc.String(s); err != nil {
			return fmt.Errorf("%w: %q", domain.ErrUnrenderableText, s)
		}
	}
	return nil
}
