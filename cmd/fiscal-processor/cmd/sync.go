package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/fiscal-processor/internal/cnpj"
	"github.com/rezonia/fiscal-processor/internal/importer"
	xmlparser "github.com/rezonia/fiscal-processor/internal/parser/xml"
	"github.com/rezonia/fiscal-processor/internal/sefaz"
)

var (
	syncDir   string
	syncCNPJ  string
	syncForce bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync documents from a distribution feed",
	Long: `Pull fiscal documents addressed to a CNPJ from a distribution feed
and import them.

The feed is a directory of XML files ordered by name; the position of
each file is its NSU. The NSU cursor is stored per CNPJ, so repeated
syncs only fetch documents the database has not seen. Documents that
fail to parse are reported and skipped.

Syncs of the same CNPJ within one hour are skipped unless --force is
given.

Examples:
  fiscal-processor sync --dir ./feed --cnpj 11222333000181
  fiscal-processor sync --dir ./feed --cnpj 11222333000181 --force`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncDir, "dir", "", "Feed directory of XML documents (required)")
	syncCmd.Flags().StringVar(&syncCNPJ, "cnpj", "", "CNPJ the feed is addressed to (required)")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Ignore the sync cooldown")
	syncCmd.MarkFlagRequired("dir")
	syncCmd.MarkFlagRequired("cnpj")
}

func runSync(cmd *cobra.Command, args []string) error {
	taxID := cnpj.Clean(syncCNPJ)
	if !cnpj.Valid(taxID) {
		return fmt.Errorf("invalid CNPJ: %s", syncCNPJ)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	imp := importer.New(xmlparser.NewRegistry(), store)
	svc := sefaz.NewService(sefaz.NewDirectoryFetcher(syncDir), imp, store.SyncState())
	if syncForce {
		svc.SetCooldown(0)
	}

	report, err := svc.Run(cmd.Context(), taxID)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	if report.Skipped {
		fmt.Printf("Sync for %s skipped: ran recently, use --force to override\n", cnpj.Format(taxID))
		return nil
	}
	fmt.Printf("Synced %s: %d imported, %d rejected, cursor %s\n",
		cnpj.Format(taxID), report.Imported, report.Rejected, report.LastNSU)
	return nil
}
