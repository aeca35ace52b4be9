// Package sefaz models the tax-authority distribution feed: batches of
// packaged fiscal documents addressed to a CNPJ, ordered by a sequential
// NSU cursor.
package sefaz

import (
	"context"
	"fmt"
	"strings"

	"github.com/rezonia/fiscal-processor/internal/model"
)

// Distribution status codes as returned by the service.
const (
	StatusDocumentsFound = 138
	StatusNoDocuments    = 137
)

// PackagedDocument is one entry of a distribution batch.
type PackagedDocument struct {
	// NSU is the 15-digit sequential number of this entry in the feed
	NSU string

	// Schema names the payload schema, e.g. "procNFe_v4.00.xsd"
	Schema string

	// Payload is the raw document XML
	Payload []byte
}

// DistributionResult is one batch of the feed.
type DistributionResult struct {
	StatusCode int
	LastNSU    string
	MaxNSU     string
	Documents  []PackagedDocument
}

// Fetcher retrieves the next distribution batch after lastNSU for taxID.
type Fetcher interface {
	Fetch(ctx context.Context, taxID, lastNSU string) (*DistributionResult, error)
}

// KindOfSchema maps a distribution schema name to the document kind it
// carries. Unknown schemas map to the empty kind.
func KindOfSchema(schema string) model.DocType {
	switch {
	case strings.HasPrefix(schema, "procNFe"):
		return model.DocTypeNFe
	case strings.HasPrefix(schema, "resNFe"):
		return model.DocTypeNFeSummary
	case strings.HasPrefix(schema, "procEventoNFe"), strings.HasPrefix(schema, "resEvento"):
		return model.DocTypeNFeEvent
	case strings.HasPrefix(schema, "procCTe"):
		return model.DocTypeCTe
	}
	return ""
}

// FormatNSU renders n as the zero-padded 15-digit cursor the feed uses.
func FormatNSU(n int64) string {
	return fmt.Sprintf("%015d", n)
}
