package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/fiscal-processor/internal/importer"
	xmlparser "github.com/rezonia/fiscal-processor/internal/parser/xml"
)

var (
	outputFile string
	timeout    time.Duration
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Import fiscal document files",
	Long: `Import one or more XML fiscal documents into the database.

Each file is parsed, classified (NF-e, CT-e, summary or event) and
persisted. Imports are idempotent: reprocessing a file updates the
existing rows instead of duplicating them. A file that fails leaves no
partial data behind and does not stop the batch.

Examples:
  fiscal-processor process nota.xml
  fiscal-processor process notas/*.xml
  fiscal-processor process notas/ -f table
  fiscal-processor process notas/ -o results.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	processCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Processing timeout per file")
}

// ProcessResult holds the result of importing a single file
type ProcessResult struct {
	File     string            `json:"file"`
	Imported *importer.Summary `json:"imported,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func runProcess(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found to process")
	}

	printVerbose("Found %d files to process\n", len(files))

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	svc := importer.New(xmlparser.NewRegistry(), store)

	results := make([]*ProcessResult, 0, len(files))
	failed := 0
	for _, file := range files {
		printVerbose("Processing: %s\n", file)

		result := processFile(svc, file)
		results = append(results, result)

		if result.Error != "" {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %s\n", file, result.Error)
		}
	}

	if err := outputResults(results); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func processFile(svc *importer.Service, filePath string) *ProcessResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result := &ProcessResult{File: filePath}

	summary, err := svc.ProcessFile(ctx, filePath)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Imported = summary
	return result
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		// Check if it's a glob pattern
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}

		if len(matches) == 0 {
			// Check if it's a directory
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}

			if info.IsDir() {
				err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
					if err != nil {
						return err
					}
					if !info.IsDir() && isSupportedFile(path) {
						files = append(files, path)
					}
					return nil
				})
				if err != nil {
					return nil, err
				}
			} else {
				files = append(files, arg)
			}
		} else {
			for _, match := range matches {
				info, err := os.Stat(match)
				if err != nil {
					continue
				}
				if !info.IsDir() && isSupportedFile(match) {
					files = append(files, match)
				}
			}
		}
	}

	return files, nil
}

func isSupportedFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

func outputResults(results []*ProcessResult) error {
	var writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	case "table":
		return outputTable(writer, results)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func outputTable(w *os.File, results []*ProcessResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tKIND\tNUMBER\tACCESS KEY\tITEMS")
	fmt.Fprintln(tw, "----\t----\t------\t----------\t-----")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\tERROR: %s\t\t\t\n", r.File, r.Error)
			continue
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			r.File,
			r.Imported.DocType,
			r.Imported.Number,
			r.Imported.AccessKey,
			r.Imported.ItemCount,
		)
	}

	return tw.Flush()
}
