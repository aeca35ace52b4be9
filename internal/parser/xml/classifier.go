package xml

import (
	"github.com/beevik/etree"

	"github.com/rezonia/fiscal-processor/internal/model"
)

// Extractor maps a classified document tree to the canonical record
type Extractor interface {
	// Kind returns the document kind this extractor produces
	Kind() model.DocType

	// Anchor returns the local name of the element whose presence
	// identifies this kind
	Anchor() string

	// Extract builds the canonical record from a tree that contains the
	// anchor. It fails only on structural damage; field-level problems
	// degrade to typed defaults.
	Extract(root *etree.Element) (*model.Document, error)
}

// Registry holds all extractors in classification priority order
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a registry with all supported extractors.
// Order matters: the NF-e anchor is checked before the CT-e anchor, full
// documents before the resumed and event variants.
func NewRegistry() *Registry {
	return &Registry{
		extractors: []Extractor{
			NewNFeExtractor(),        // <infNFe>
			NewCTeExtractor(),        // <infCte>
			NewNFeSummaryExtractor(), // <resNFe> - distribution service résumé
			NewNFeEventExtractor(),   // <infEvento>
		},
	}
}

// Classify identifies the document kind by anchor presence, first match in
// priority order wins.
func (r *Registry) Classify(root *etree.Element) (Extractor, error) {
	for _, e := range r.extractors {
		if FindDescendant(root, e.Anchor()) != nil {
			return e, nil
		}
	}
	return nil, model.NewUnrecognizedDocumentError("no supported document anchor found, expected NF-e or CT-e")
}

// Parse parses raw bytes, classifies the tree and extracts the canonical
// record. Syntax, classification and structural failures surface as the
// distinct error kinds in the model package.
func (r *Registry) Parse(content []byte) (*model.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, model.NewSyntaxError("failed to parse XML", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, model.NewSyntaxError("empty XML document", nil)
	}

	extractor, err := r.Classify(root)
	if err != nil {
		return nil, err
	}
	return extractor.Extract(root)
}

// Kinds returns the supported document kinds in priority order
func (r *Registry) Kinds() []model.DocType {
	kinds := make([]model.DocType, 0, len(r.extractors))
	for _, e := range r.extractors {
		kinds = append(kinds, e.Kind())
	}
	return kinds
}

// GetExtractor returns the extractor for a specific kind, or nil
func (r *Registry) GetExtractor(kind model.DocType) Extractor {
	for _, e := range r.extractors {
		if e.Kind() == kind {
			return e
		}
	}
	return nil
}
