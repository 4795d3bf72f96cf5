package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/dertin/rsapar/pkg/schema"
	"github.com/spf13/cobra"
)

var flagErrorsOnly bool

// parseCmd prints every line of a file as a record
var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Print the records of a fixed-width file",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&flagErrorsOnly, "errors-only", false, "only print invalid lines")
}

func runParse(cmd *cobra.Command, args []string) error {
	p, err := openParser(args[0])
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	w := bufio.NewWriter(cmd.OutOrStdout())
	defer w.Flush()

	var invalid int
	for rec, err := range p.Records() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			var lineErr *schema.LineError
			if !errors.As(err, &lineErr) {
				return err
			}
			invalid++
			fmt.Fprintf(w, "%d\tERROR\t%s\n", lineErr.Number, lineErr.Message)
			continue
		}
		if flagErrorsOnly {
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", rec.Number, rec.LineType, formatCells(rec.Cells))
	}

	if invalid > 0 {
		w.Flush()
		return fmt.Errorf("%d invalid lines", invalid)
	}
	return nil
}

func formatCells(cells []schema.CellValue) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = fmt.Sprintf("%s=%q", c.Name, c.Value)
	}
	return strings.Join(parts, " ")
}
