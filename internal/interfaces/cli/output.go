package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// printer salida de texto para humanos; las filas se alinean en columnas.
type printer struct {
	tw *tabwriter.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.tw, format+"\n", args...)
}

func (p *printer) row(cols ...string) {
	fmt.Fprintln(p.tw, strings.Join(cols, "\t"))
}

// print escribe v como JSON con --json o, si no, lo que arme text.
func (r *root) print(cmd *cobra.Command, v any, text func(p *printer)) error {
	if r.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	p := newPrinter(cmd.OutOrStdout())
	text(p)
	return p.tw.Flush()
}
