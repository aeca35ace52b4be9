package server

import (
	"github.com/rezonia/fiscal-processor/internal/importer"
	"github.com/rezonia/fiscal-processor/internal/storage/sqlite"
)

// ImportResponse is the response for the import endpoint
type ImportResponse struct {
	Imported *importer.Summary `json:"imported"`
}

// ValidationResponse is the response for the validate endpoint
type ValidationResponse struct {
	Valid    bool     `json:"valid"`
	DocType  string   `json:"doc_type,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// SearchClientsResponse is the response for the client search endpoint
type SearchClientsResponse struct {
	Query   string          `json:"query"`
	Results []sqlite.Client `json:"results"`
}

// SearchProductsResponse is the response for the product search endpoint
type SearchProductsResponse struct {
	Query   string           `json:"query"`
	Results []sqlite.Product `json:"results"`
}

// KindInfo describes one supported document kind
type KindInfo struct {
	Kind   string `json:"kind"`
	Anchor string `json:"anchor"`
}

// InfoResponse is the response for the info endpoint
type InfoResponse struct {
	Kinds []KindInfo `json:"kinds"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}
