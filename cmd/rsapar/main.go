package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dertin/rsapar/pkg/config"
	"github.com/dertin/rsapar/pkg/logging"
	"github.com/dertin/rsapar/pkg/parser"
	"github.com/dertin/rsapar/pkg/schema"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	flagConfig string
	flagSchema string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rsapar",
	Short: "Parse, validate and convert fixed-width files",
	Long: `rsapar reads fixed-width files described by an XML schema.

Without --schema (or parse.schema in the config file) the schema of the
files written by gen is used.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("schema") {
			cfg.Parse.Schema = flagSchema
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", config.DefaultPath, "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&flagSchema, "schema", "s", "", "XML schema file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

// loadSchema reads the configured schema file, falling back to the schema
// of the generator settings.
func loadSchema() (*schema.Schema, error) {
	if cfg.Parse.Schema != "" {
		return schema.Load(cfg.Parse.Schema)
	}
	genCfg, err := cfg.GeneratorConfig()
	if err != nil {
		return nil, err
	}
	logger.Debug("no schema file, using the generator schema")
	return genCfg.Schema()
}

func openParser(path string) (*parser.Parser, error) {
	s, err := loadSchema()
	if err != nil {
		return nil, err
	}
	return parser.Open(path, s, logger)
}
