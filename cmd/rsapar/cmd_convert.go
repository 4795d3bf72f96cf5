package main

import (
	"errors"
	"fmt"

	"github.com/dertin/rsapar/pkg/convert"
	"github.com/spf13/cobra"
)

var (
	flagTemplate string
	flagOutput   string
)

// convertCmd renders a file through a block template
var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Render the records of a file through an XML block template",
	Long: `Writes every block of the template whose line type and condition
match a record, replacing {{Cell}}, {{step}}, {{line}} and {{linetype}}.
Blocks with the condition EOF are written once after the last record and
{{len(LineType)}} is replaced by the number of records of that type.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&flagTemplate, "template", "t", "", "XML template file")
	convertCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file (default from config: report.txt)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("template") {
		cfg.Convert.Template = flagTemplate
	}
	if cmd.Flags().Changed("output") {
		cfg.Convert.Output = flagOutput
	}
	if cfg.Convert.Template == "" {
		return errors.New("no template: use --template or convert.template")
	}

	p, err := openParser(args[0])
	if err != nil {
		return err
	}
	defer p.Close()

	c, err := convert.Load(cfg.Convert.Template, p.Schema(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	stats, err := c.Convert(ctx, p.Records(), cfg.Convert.Output)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d blocks for %d records to '%s' (%d lines skipped)\n",
		stats.Blocks, stats.Steps, cfg.Convert.Output, stats.Skipped)
	return nil
}
