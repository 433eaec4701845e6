// Package printing envía los PDF a la impresora del sistema operativo o los abre
// con el visor predeterminado.
package printing

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/kmc-invoice/internal/application/billing"
)

var _ billing.Printer = (*OSPrinter)(nil)

// Runner ejecuta un comando externo. Se sustituye en tests.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

// OSPrinter implementa billing.Printer con los comandos del sistema.
type OSPrinter struct {
	goos    string
	run     Runner
	timeout time.Duration
	log     zerolog.Logger
}

// Option configura el OSPrinter.
type Option func(*OSPrinter)

// WithGOOS fuerza el sistema operativo (tests).
func WithGOOS(goos string) Option { return func(p *OSPrinter) { p.goos = goos } }

// WithRunner reemplaza la ejecución de comandos (tests).
func WithRunner(r Runner) Option { return func(p *OSPrinter) { p.run = r } }

// NewOSPrinter construye la impresora del sistema.
func NewOSPrinter(log zerolog.Logger, opts ...Option) *OSPrinter {
	p := &OSPrinter{goos: runtime.GOOS, run: execRunner, timeout: 30 * time.Second, log: log}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Print manda el archivo a la impresora predeterminada.
func (p *OSPrinter) Print(ctx context.Context, path string) error {
	return p.exec(ctx, "print", path, printCommand)
}

// Open abre el archivo con la aplicación asociada para imprimirlo a mano.
func (p *OSPrinter) Open(ctx context.Context, path string) error {
	return p.exec(ctx, "open", path, openCommand)
}

func (p *OSPrinter) exec(ctx context.Context, action, path string, build func(goos, path string) (string, []string, error)) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	name, args, err := build(p.goos, path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.log.Debug().Str("action", action).Str("cmd", name).Strs("args", args).Msg("comando de impresión")
	return p.run(ctx, name, args...)
}

// printCommand comando para imprimir según el sistema operativo.
func printCommand(goos, path string) (string, []string, error) {
	switch goos {
	case "windows":
		return "rundll32", []string{"shell32.dll,ShellExec_RunDLL", "/print", path}, nil
	case "darwin":
		return "lpr", []string{path}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "lp", []string{path}, nil
	default:
		return "", nil, fmt.Errorf("impresión no soportada en %s", goos)
	}
}

// openCommand comando para abrir el archivo con el visor predeterminado.
func openCommand(goos, path string) (string, []string, error) {
	switch goos {
	case "windows":
		return "cmd", []string{"/c", "start", "", path}, nil
	case "darwin":
		return "open", []string{path}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{path}, nil
	default:
		return "", nil, fmt.Errorf("no se puede abrir archivos en %s", goos)
	}
}
