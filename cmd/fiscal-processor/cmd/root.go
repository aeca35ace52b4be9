package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/fiscal-processor/internal/logger"
	"github.com/rezonia/fiscal-processor/internal/storage/sqlite"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	dbPath       string
)

var rootCmd = &cobra.Command{
	Use:   "fiscal-processor",
	Short: "Process Brazilian fiscal documents (NF-e and CT-e)",
	Long: `Fiscal Processor is a CLI tool for importing Brazilian electronic
fiscal documents into a local SQLite database.

Supports:
  - NF-e: full documents, distribution summaries and events
  - CT-e: transport documents
  - Idempotent imports keyed by the 44-digit access key
  - Client and product catalogs built from the imported documents

Examples:
  # Create the database
  fiscal-processor init

  # Import a batch of XML files
  fiscal-processor process notas/*.xml

  # Search the catalogs
  fiscal-processor search-clients acme
  fiscal-processor search-products parafuso

  # Pull a distribution feed dump
  fiscal-processor sync --dir ./feed --cnpj 11222333000181`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the SQLite database (env: FISCAL_DB)")

	// Load from environment variables if not set via flags
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if dbPath == "" {
		dbPath = os.Getenv("FISCAL_DB")
	}
	if dbPath == "" {
		dbPath = "fiscal.db"
	}
	logger.SetVerbose(verbose)
}

func openStore() (*sqlite.Store, error) {
	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}
	return store, nil
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
