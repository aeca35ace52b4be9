package sefaz

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirectoryFetcher serves a local directory of XML files as a distribution
// feed. Files are ordered by name, and the 1-based position of each file
// is its NSU. It stands in for the live service in offline setups and
// lets dropped-off document dumps be synced with the same cursor logic.
type DirectoryFetcher struct {
	Dir string

	// BatchSize caps the number of documents per Fetch, matching the
	// batching of the live feed. Defaults to 50.
	BatchSize int
}

// NewDirectoryFetcher creates a fetcher over dir.
func NewDirectoryFetcher(dir string) *DirectoryFetcher {
	return &DirectoryFetcher{Dir: dir, BatchSize: 50}
}

// Fetch returns the next batch of files after lastNSU.
func (f *DirectoryFetcher) Fetch(ctx context.Context, taxID, lastNSU string) (*DistributionResult, error) {
	names, err := f.listXML()
	if err != nil {
		return nil, err
	}

	maxNSU := FormatNSU(int64(len(names)))
	result := &DistributionResult{
		StatusCode: StatusNoDocuments,
		LastNSU:    lastNSU,
		MaxNSU:     maxNSU,
	}
	if len(names) == 0 {
		result.MaxNSU = lastNSU
		return result, nil
	}

	batchSize := f.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		nsu := FormatNSU(int64(i + 1))
		if nsu <= lastNSU {
			continue
		}

		payload, err := os.ReadFile(filepath.Join(f.Dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}

		result.Documents = append(result.Documents, PackagedDocument{
			NSU:     nsu,
			Schema:  sniffSchema(payload),
			Payload: payload,
		})
		result.LastNSU = nsu
		if len(result.Documents) == batchSize {
			break
		}
	}

	if len(result.Documents) > 0 {
		result.StatusCode = StatusDocumentsFound
	}
	return result, nil
}

func (f *DirectoryFetcher) listXML() ([]string, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading feed directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// sniffSchema guesses the distribution schema from the payload anchors.
func sniffSchema(payload []byte) string {
	switch {
	case bytes.Contains(payload, []byte("resNFe")):
		return "resNFe_v1.01.xsd"
	case bytes.Contains(payload, []byte("infEvento")):
		return "procEventoNFe_v1.00.xsd"
	case bytes.Contains(payload, []byte("infCte")):
		return "procCTe_v4.00.xsd"
	case bytes.Contains(payload, []byte("infNFe")):
		return "procNFe_v4.00.xsd"
	}
	return ""
}
