package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fagan2888/bridge-data/internal/nbi"
)

var codesCmd = &cobra.Command{
	Use:   "codes [field]",
	Short: "Print the NBI recoding tables",
	Long:  "Prints the code to label tables used to recode coded NBI items. Pass an output column name to print a single table.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			t, ok := nbi.CodeTableByField(args[0])
			if !ok {
				return eris.Errorf("codes: unknown field %q (have %s)", args[0], strings.Join(codeFields(), ", "))
			}
			formatCodeTable(out, t)
			return nil
		}

		for i, t := range nbi.CodeTables() {
			if i > 0 {
				_, _ = fmt.Fprintln(out)
			}
			formatCodeTable(out, t)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(codesCmd)
}

func codeFields() []string {
	var fields []string
	for _, t := range nbi.CodeTables() {
		fields = append(fields, t.Field)
	}
	return fields
}

// formatCodeTable writes one recoding table to out.
func formatCodeTable(out io.Writer, t nbi.CodeTable) {
	_, _ = fmt.Fprintf(out, "%s (item %s)\n", t.Field, t.Item)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tLABEL")
	_, _ = fmt.Fprintln(w, "----\t-----")
	for _, code := range t.Codes() {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", code, t.Labels[code])
	}
	if t.Fallback != "" {
		_, _ = fmt.Fprintf(w, "*\t%s\n", t.Fallback)
	}
	_ = w.Flush()
}
