package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/fiscal-processor/internal/cnpj"
	xmlparser "github.com/rezonia/fiscal-processor/internal/parser/xml"
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate fiscal document files without importing them",
	Long: `Validate one or more XML fiscal documents for completeness.

Checks performed:
  - The file parses and classifies as a supported document kind
  - The 44-digit access key is present
  - The emitter tax ID is present and its CNPJ check digits match
  - Issue date and total amount are present

Nothing is written to the database.

Examples:
  fiscal-processor validate nota.xml
  fiscal-processor validate notas/*.xml -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// ValidationResult holds the validation outcome for a single file
type ValidationResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	DocType  string   `json:"doc_type,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found to validate")
	}

	registry := xmlparser.NewRegistry()
	results := make([]*ValidationResult, 0, len(files))
	allValid := true

	for _, file := range files {
		result := validateFile(registry, file)
		results = append(results, result)

		if !result.Valid {
			allValid = false
		}
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Printf("OK %s (%s)\n", r.File, r.DocType)
			} else {
				fmt.Printf("FAIL %s\n", r.File)
				for _, e := range r.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}
			for _, w := range r.Warnings {
				fmt.Printf("  warning: %s\n", w)
			}
		}
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}
	return nil
}

func validateFile(registry *xmlparser.Registry, filePath string) *ValidationResult {
	result := &ValidationResult{File: filePath}

	content, err := os.ReadFile(filePath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read file: %v", err))
		return result
	}

	doc, err := registry.Parse(content)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.DocType = string(doc.Type)

	if doc.AccessKey == "" {
		result.Errors = append(result.Errors, "missing access key")
	} else if len(doc.AccessKey) != 44 {
		result.Warnings = append(result.Warnings, "access key is not 44 digits")
	}

	if doc.Emitter.TaxID == "" {
		result.Errors = append(result.Errors, "missing emitter tax ID")
	} else if len(doc.Emitter.TaxID) == 14 && !cnpj.Valid(doc.Emitter.TaxID) {
		result.Warnings = append(result.Warnings, "emitter CNPJ check digits do not match")
	}

	if doc.IssueDate == "" {
		result.Warnings = append(result.Warnings, "missing issue date")
	}
	if doc.Total.IsZero() {
		result.Warnings = append(result.Warnings, "total amount is zero or missing")
	}

	result.Valid = len(result.Errors) == 0
	return result
}
