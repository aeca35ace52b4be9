package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	xmlparser "github.com/rezonia/fiscal-processor/internal/parser/xml"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "List supported document kinds",
	Long: `List the document kinds the processor recognizes, in classification
priority order, together with the XML anchor element of each kind.

Examples:
  fiscal-processor info
  fiscal-processor info -f table`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	registry := xmlparser.NewRegistry()

	type kindInfo struct {
		Kind   string `json:"kind"`
		Anchor string `json:"anchor"`
	}

	kinds := make([]kindInfo, 0)
	for _, kind := range registry.Kinds() {
		kinds = append(kinds, kindInfo{
			Kind:   string(kind),
			Anchor: registry.GetExtractor(kind).Anchor(),
		})
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(kinds)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tANCHOR")
	fmt.Fprintln(tw, "----\t------")
	for _, k := range kinds {
		fmt.Fprintf(tw, "%s\t<%s>\n", k.Kind, k.Anchor)
	}
	return tw.Flush()
}
