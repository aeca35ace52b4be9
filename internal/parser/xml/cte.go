package xml

import (
	"github.com/beevik/etree"

	"github.com/rezonia/fiscal-processor/internal/model"
)

// CTeExtractor extracts CT-e transport documents (infCte anchor)
type CTeExtractor struct{}

// NewCTeExtractor creates a new CT-e extractor
func NewCTeExtractor() *CTeExtractor {
	return &CTeExtractor{}
}

// Kind returns the document kind
func (e *CTeExtractor) Kind() model.DocType {
	return model.DocTypeCTe
}

// Anchor returns the classification anchor element
func (e *CTeExtractor) Anchor() string {
	return "infCte"
}

// Extract builds the canonical record from a CT-e tree. Transport documents
// carry no merchandise items; the receiver may live under dest, rem or
// receb depending on who the taker of the service is.
func (e *CTeExtractor) Extract(root *etree.Element) (*model.Document, error) {
	info := FindDescendant(root, "infCte")
	if info == nil {
		return nil, model.NewMalformedDocumentError(model.DocTypeCTe, "infCte", "info node missing after classification")
	}

	return &model.Document{
		Type:      model.DocTypeCTe,
		AccessKey: accessKeyFromID(info, "CTe"),
		Number:    FindText(info, "ide", "nCT"),
		Series:    FindText(info, "ide", "serie"),
		IssueDate: FindText(info, "ide", "dhEmi"),
		Total:     FindDecimal(info, "vPrest", "vTPrest"),
		Emitter:   extractParty(FindDescendant(info, "emit"), "enderEmit"),
		Receiver:  extractParty(receiverNode(info), "enderDest"),
	}, nil
}

// receiverNode picks the receiver candidate: dest first, then remetente,
// then recebedor. First present node wins; fields are never mixed across
// candidates.
func receiverNode(info *etree.Element) *etree.Element {
	for _, name := range []string{"dest", "rem", "receb"} {
		if node := findBelow(info, name); node != nil {
			return node
		}
	}
	return nil
}
