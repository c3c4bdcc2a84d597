package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/cottand/qinfer/lattice"
	"github.com/cottand/qinfer/problem"
	"github.com/spf13/cobra"
)

var LatticeCmd = &cobra.Command{
	Use:          "lattice file.yaml",
	Short:        "Print the qualifier lattice of a problem with its join, meet and combine tables",
	RunE:         runLattice,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

func runLattice(cmd *cobra.Command, args []string) error {
	target, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("could not get absolute path of target: %w", err)
	}
	p, err := problem.Load(os.DirFS(filepath.Dir(target)), filepath.Base(target))
	if err != nil {
		return fmt.Errorf("could not load problem: %w", err)
	}
	return printLattice(cmd.OutOrStdout(), p.Lattice)
}

func printLattice(out io.Writer, l *lattice.Lattice) error {
	_, _ = fmt.Fprintf(out, "%s\ntop: %s, bottom: %s\n", l, l.Top(), l.Bottom())
	tables := []struct {
		name string
		op   func(a, b lattice.Qualifier) lattice.Qualifier
	}{
		{"join", l.Join},
		{"meet", l.Meet},
		{"combine", l.Combine},
		{"arithmetic", l.Arithmetic},
	}
	for _, table := range tables {
		_, _ = fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprint(w, table.name)
		for _, q := range l.Qualifiers() {
			_, _ = fmt.Fprintf(w, "\t%s", q)
		}
		_, _ = fmt.Fprintln(w)
		for _, a := range l.Qualifiers() {
			_, _ = fmt.Fprint(w, a)
			for _, b := range l.Qualifiers() {
				_, _ = fmt.Fprintf(w, "\t%s", table.op(a, b))
			}
			_, _ = fmt.Fprintln(w)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}
