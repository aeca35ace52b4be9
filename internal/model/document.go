package model

import (
	"github.com/shopspring/decimal"
)

// DocType identifies the kind of fiscal document
type DocType string

const (
	// DocTypeNFe is a full electronic goods invoice (NF-e)
	DocTypeNFe DocType = "NF-e"
	// DocTypeCTe is an electronic transport document (CT-e)
	DocTypeCTe DocType = "CT-e"
	// DocTypeNFeSummary is a resumed NF-e (resNFe) from the distribution service
	DocTypeNFeSummary DocType = "NF-e-resumo"
	// DocTypeNFeEvent is an NF-e event record (infEvento)
	DocTypeNFeEvent DocType = "NF-e-evento"
	// DocTypeUnknown is used in errors when no kind could be determined
	DocTypeUnknown DocType = "unknown"
)

// Document is the canonical record produced by extraction.
// It is the single shape all persistence consumes.
type Document struct {
	Type      DocType         `json:"doc_type"`
	AccessKey string          `json:"access_key"`
	Number    string          `json:"doc_number,omitempty"`
	Series    string          `json:"series,omitempty"`
	IssueDate string          `json:"issue_date,omitempty"`
	Total     decimal.Decimal `json:"total_value"`
	Emitter   Party           `json:"emitter"`
	Receiver  Party           `json:"receiver"`
	Items     []LineItem      `json:"items,omitempty"`
}

// Party is an emitter or receiver. TaxID holds a CNPJ for emitters and a
// CNPJ or CPF for receivers, whichever the document carries.
type Party struct {
	TaxID      string `json:"tax_id,omitempty"`
	Name       string `json:"name,omitempty"`
	TradeName  string `json:"trade_name,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// Empty reports whether the party carries no identity
func (p Party) Empty() bool {
	return p.TaxID == "" && p.Name == ""
}

// LineItem is one merchandise line of an NF-e. CT-e documents carry none.
type LineItem struct {
	Code        string          `json:"code,omitempty"`
	Description string          `json:"description,omitempty"`
	NCM         string          `json:"ncm,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitValue   decimal.Decimal `json:"unit_value"`
	Total       decimal.Decimal `json:"total_value"`
}

// HasItems reports whether this document kind persists line items
func (t DocType) HasItems() bool {
	return t == DocTypeNFe
}

// Partial reports whether this document kind carries only a partial header
// (summaries and events must not overwrite a previously imported full header)
func (t DocType) Partial() bool {
	return t == DocTypeNFeSummary || t == DocTypeNFeEvent
}
