package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagSchemaOut string

// schemaCmd prints the schema in use
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema in use as XML",
	Long: `Prints the schema given with --schema, or the schema of the files
written by gen with the current generate settings.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().StringVarP(&flagSchemaOut, "output", "o", "", "write to a file instead of stdout")
}

func runSchema(cmd *cobra.Command, args []string) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}
	if flagSchemaOut == "" {
		return s.Write(cmd.OutOrStdout())
	}

	f, err := os.Create(flagSchemaOut)
	if err != nil {
		return fmt.Errorf("create schema file '%s': %w", flagSchemaOut, err)
	}
	if err := s.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
