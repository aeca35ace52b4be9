// Package fiscallib provides a public API for processing Brazilian
// electronic fiscal documents.
//
// This package exposes the core types for parsing NF-e and CT-e XML into
// a canonical document record, without touching any storage.
//
// Example usage:
//
//	parser := fiscallib.NewParser()
//	doc, err := parser.Parse(content)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(doc.AccessKey, doc.Total)
package fiscallib

import (
	"context"
	"io"

	"github.com/rezonia/fiscal-processor/internal/model"
	xmlparser "github.com/rezonia/fiscal-processor/internal/parser/xml"
)

// Re-export core types for public API
type (
	Document = model.Document
	LineItem = model.LineItem
	Party    = model.Party
	DocType  = model.DocType
)

// Re-export document kinds
const (
	DocTypeNFe        = model.DocTypeNFe
	DocTypeCTe        = model.DocTypeCTe
	DocTypeNFeSummary = model.DocTypeNFeSummary
	DocTypeNFeEvent   = model.DocTypeNFeEvent
)

// Re-export error types
type (
	SyntaxError               = model.SyntaxError
	UnrecognizedDocumentError = model.UnrecognizedDocumentError
	MalformedDocumentError    = model.MalformedDocumentError
)

// IsDataError reports whether err is a data-quality problem of the input
// rather than an infrastructure failure.
func IsDataError(err error) bool {
	return model.IsDataError(err)
}

// Parser parses fiscal documents from XML
type Parser struct {
	registry *xmlparser.Registry
}

// NewParser creates a parser supporting all document kinds
func NewParser() *Parser {
	return &Parser{registry: xmlparser.NewRegistry()}
}

// Parse classifies and extracts one XML document
func (p *Parser) Parse(content []byte) (*Document, error) {
	return p.registry.Parse(content)
}

// ParseReader reads r to the end and parses its contents
func (p *Parser) ParseReader(ctx context.Context, r io.Reader) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewSyntaxError("failed to read input", err)
	}
	return p.registry.Parse(content)
}

// Kinds returns the supported document kinds in classification priority
// order
func (p *Parser) Kinds() []DocType {
	return p.registry.Kinds()
}
