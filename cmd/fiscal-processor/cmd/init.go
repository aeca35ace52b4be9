package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and apply schema migrations",
	Long: `Create the SQLite database and bring its schema up to date.

Running init on an existing database only applies pending migrations and
never touches stored data.

Examples:
  fiscal-processor init
  fiscal-processor init --db /var/lib/fiscal/fiscal.db`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Database ready at %s\n", dbPath)
	return nil
}
