package xml

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/rezonia/fiscal-processor/internal/model"
)

// NFeExtractor extracts full NF-e documents (infNFe anchor)
type NFeExtractor struct{}

// NewNFeExtractor creates a new NF-e extractor
func NewNFeExtractor() *NFeExtractor {
	return &NFeExtractor{}
}

// Kind returns the document kind
func (e *NFeExtractor) Kind() model.DocType {
	return model.DocTypeNFe
}

// Anchor returns the classification anchor element
func (e *NFeExtractor) Anchor() string {
	return "infNFe"
}

// Extract builds the canonical record from an NF-e tree
func (e *NFeExtractor) Extract(root *etree.Element) (*model.Document, error) {
	info := FindDescendant(root, "infNFe")
	if info == nil {
		// classified on this anchor, so only a pathological tree lands here
		return nil, model.NewMalformedDocumentError(model.DocTypeNFe, "infNFe", "info node missing after classification")
	}

	doc := &model.Document{
		Type:      model.DocTypeNFe,
		AccessKey: accessKeyFromID(info, "NFe"),
		Number:    FindText(info, "ide", "nNF"),
		Series:    FindText(info, "ide", "serie"),
		IssueDate: FindText(info, "ide", "dhEmi"),
		Total:     FindDecimal(info, "total", "ICMSTot", "vNF"),
		Emitter:   extractParty(FindDescendant(info, "emit"), "enderEmit"),
		Receiver:  extractParty(FindDescendant(info, "dest"), "enderDest"),
	}

	for _, det := range findAll(info, "det") {
		prod := FindDescendant(det, "prod")
		if prod == nil {
			continue
		}
		doc.Items = append(doc.Items, model.LineItem{
			Code:        FindText(prod, "cProd"),
			Description: FindText(prod, "xProd"),
			NCM:         FindText(prod, "NCM"),
			Unit:        FindText(prod, "uCom"),
			Quantity:    FindDecimal(prod, "qCom"),
			UnitValue:   FindDecimal(prod, "vUnCom"),
			Total:       FindDecimal(prod, "vProd"),
		})
	}

	return doc, nil
}

// NFeSummaryExtractor extracts resumed NF-e records (resNFe anchor) as
// delivered by the SEFAZ distribution service
type NFeSummaryExtractor struct{}

// NewNFeSummaryExtractor creates a new resumed NF-e extractor
func NewNFeSummaryExtractor() *NFeSummaryExtractor {
	return &NFeSummaryExtractor{}
}

// Kind returns the document kind
func (e *NFeSummaryExtractor) Kind() model.DocType {
	return model.DocTypeNFeSummary
}

// Anchor returns the classification anchor element
func (e *NFeSummaryExtractor) Anchor() string {
	return "resNFe"
}

// Extract builds a header-only canonical record from a resNFe tree
func (e *NFeSummaryExtractor) Extract(root *etree.Element) (*model.Document, error) {
	res := FindDescendant(root, "resNFe")
	if res == nil {
		return nil, model.NewMalformedDocumentError(model.DocTypeNFeSummary, "resNFe", "info node missing after classification")
	}

	return &model.Document{
		Type:      model.DocTypeNFeSummary,
		AccessKey: FindText(res, "chNFe"),
		IssueDate: FindText(res, "dhEmi"),
		Total:     FindDecimal(res, "vNF"),
		Emitter: model.Party{
			TaxID: FindText(res, "CNPJ"),
			Name:  FindText(res, "xNome"),
		},
	}, nil
}

// NFeEventExtractor extracts NF-e event records (infEvento anchor).
// Events reference an existing document by access key and carry no
// merchandise data of their own.
type NFeEventExtractor struct{}

// NewNFeEventExtractor creates a new NF-e event extractor
func NewNFeEventExtractor() *NFeEventExtractor {
	return &NFeEventExtractor{}
}

// Kind returns the document kind
func (e *NFeEventExtractor) Kind() model.DocType {
	return model.DocTypeNFeEvent
}

// Anchor returns the classification anchor element
func (e *NFeEventExtractor) Anchor() string {
	return "infEvento"
}

// Extract builds a header-only canonical record from an event tree
func (e *NFeEventExtractor) Extract(root *etree.Element) (*model.Document, error) {
	info := FindDescendant(root, "infEvento")
	if info == nil {
		return nil, model.NewMalformedDocumentError(model.DocTypeNFeEvent, "infEvento", "info node missing after classification")
	}

	return &model.Document{
		Type:      model.DocTypeNFeEvent,
		AccessKey: FindText(info, "chNFe"),
		IssueDate: FindText(info, "dhEvento"),
	}, nil
}

// accessKeyFromID reads the Id attribute on an info node and strips the
// document-kind prefix token. An empty result is returned as "" and left
// for the caller to judge.
func accessKeyFromID(info *etree.Element, prefix string) string {
	id := info.SelectAttrValue("Id", "")
	return strings.TrimPrefix(id, prefix)
}

// extractParty pulls party fields from a single candidate node. A nil node
// yields an empty party, never an error. Fields are only read from the node
// given; callers choose the node, this function never mixes candidates.
func extractParty(node *etree.Element, addressTag string) model.Party {
	if node == nil {
		return model.Party{}
	}

	taxID := FindText(node, "CNPJ")
	if taxID == "" {
		taxID = FindText(node, "CPF")
	}

	party := model.Party{
		TaxID:     taxID,
		Name:      FindText(node, "xNome"),
		TradeName: FindText(node, "xFant"),
	}

	addr := FindDescendant(node, addressTag)
	if addr == nil {
		// CT-e remetente/recebedor nodes carry a plain ender block
		addr = findBelow(node, "ender")
	}
	if addr != nil {
		party.Address = FindText(addr, "xLgr")
		party.City = FindText(addr, "xMun")
		party.State = FindText(addr, "UF")
		party.PostalCode = FindText(addr, "CEP")
	}

	return party
}

// findAll returns all descendants with the given local name in document order
func findAll(el *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(current *etree.Element) {
		for _, child := range current.ChildElements() {
			if matches(child, name) {
				out = append(out, child)
				continue
			}
			walk(child)
		}
	}
	walk(el)
	return out
}
