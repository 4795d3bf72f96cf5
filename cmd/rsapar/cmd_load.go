package main

import (
	"fmt"

	"github.com/dertin/rsapar/pkg/store"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

var flagDB string

// loadCmd loads a file into SQLite
var loadCmd = &cobra.Command{
	Use:   "load [file]",
	Short: "Load the valid records of a file into a SQLite database",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&flagDB, "db", "", "SQLite database (default from config: rsapar.db)")
}

func runLoad(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("db") {
		cfg.Store.DatabasePath = flagDB
	}

	p, err := openParser(args[0])
	if err != nil {
		return err
	}
	defer p.Close()

	st, err := store.Open(cfg.Store.DatabasePath, p.Schema(), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	res, err := st.Load(ctx, p.Path(), p.Records())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "load %s: %d records, %d skipped\n", res.ID, res.Records, res.Skipped)
	lineTypes := make([]string, 0, len(res.Counts))
	for lt := range res.Counts {
		lineTypes = append(lineTypes, lt)
	}
	slices.Sort(lineTypes)
	for _, lt := range lineTypes {
		fmt.Fprintf(out, "  %s\t%d\n", lt, res.Counts[lt])
	}
	return nil
}
