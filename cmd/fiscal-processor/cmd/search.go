package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/fiscal-processor/internal/cnpj"
)

var searchClientsCmd = &cobra.Command{
	Use:   "search-clients <query>",
	Short: "Search stored clients by name or tax ID",
	Long: `Search the client catalog built from imported documents.

The query matches substrings of the client name, trade name or tax ID.

Examples:
  fiscal-processor search-clients acme
  fiscal-processor search-clients 11222333 -f table`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchClients,
}

var searchProductsCmd = &cobra.Command{
	Use:   "search-products <query>",
	Short: "Search stored products by description, code or NCM",
	Long: `Search the product catalog built from imported documents.

The query matches substrings of the description, product code or NCM.

Examples:
  fiscal-processor search-products parafuso
  fiscal-processor search-products 8421 -f table`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchProducts,
}

func init() {
	rootCmd.AddCommand(searchClientsCmd)
	rootCmd.AddCommand(searchProductsCmd)
}

func runSearchClients(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Receivers().Search(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAX ID\tNAME\tCITY\tSTATE")
	fmt.Fprintln(tw, "------\t----\t----\t-----")
	for _, c := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cnpj.Format(c.TaxID), c.Name, c.City, c.State)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Printf("%d clients found\n", len(results))
	return nil
}

func runSearchProducts(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Products().Search(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tDESCRIPTION\tNCM\tUNIT")
	fmt.Fprintln(tw, "----\t-----------\t---\t----")
	for _, p := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Code, p.Description, p.NCM, p.Unit)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Printf("%d products found\n", len(results))
	return nil
}
