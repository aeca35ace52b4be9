// Package importer orchestrates the pipeline from raw XML to the
// relational store: parse, resolve parties and products, persist the
// document header and its lines.
package importer

import (
	"context"
	"fmt"
	"os"

	"github.com/rezonia/fiscal-processor/internal/logger"
	"github.com/rezonia/fiscal-processor/internal/model"
	xmlparser "github.com/rezonia/fiscal-processor/internal/parser/xml"
	"github.com/rezonia/fiscal-processor/internal/storage/sqlite"
)

// Summary describes one successfully imported document.
type Summary struct {
	DocumentID int64         `json:"document_id"`
	DocType    model.DocType `json:"doc_type"`
	AccessKey  string        `json:"access_key"`
	Number     string        `json:"number,omitempty"`
	ItemCount  int           `json:"item_count"`
}

// Service wires the parser registry to the store.
type Service struct {
	registry *xmlparser.Registry
	store    *sqlite.Store
}

// New creates an import service over the given store.
func New(registry *xmlparser.Registry, store *sqlite.Store) *Service {
	return &Service{registry: registry, store: store}
}

// Process parses one XML payload and persists it. The whole operation is
// idempotent: feeding the same payload twice leaves the store unchanged.
func (s *Service) Process(ctx context.Context, content []byte) (*Summary, error) {
	doc, err := s.registry.Parse(content)
	if err != nil {
		return nil, err
	}

	// Nothing is persisted for a document we cannot key
	if doc.AccessKey == "" {
		return nil, model.NewMalformedDocumentError(doc.Type, "access key", "document has no access key")
	}

	emitterID, err := s.store.Emitters().Upsert(ctx, doc.Emitter)
	if err != nil {
		return nil, model.NewStorageError("save emitter", err)
	}
	receiverID, err := s.store.Receivers().Upsert(ctx, doc.Receiver)
	if err != nil {
		return nil, model.NewStorageError("save receiver", err)
	}

	var documentID int64
	if doc.Type.Partial() {
		// Resumed documents and events never overwrite a previously
		// imported full header for the same key
		documentID, err = s.store.Documents().Register(ctx, doc, emitterID, receiverID)
	} else {
		documentID, err = s.store.Documents().Upsert(ctx, doc, emitterID, receiverID)
	}
	if err != nil {
		return nil, model.NewStorageError("save document", err)
	}

	itemCount := 0
	if doc.Type.HasItems() {
		rows := make([]sqlite.ItemRow, 0, len(doc.Items))
		for i, item := range doc.Items {
			productID, err := s.store.Products().Upsert(ctx, item)
			if err != nil {
				return nil, model.NewStorageError("save product", err)
			}
			if productID == 0 {
				logger.Debug("skipping item %d of %s: no product code", i+1, doc.AccessKey)
				continue
			}
			rows = append(rows, sqlite.ItemRow{
				ProductID: productID,
				Position:  i + 1,
				Quantity:  item.Quantity,
				UnitValue: item.UnitValue,
				Total:     item.Total,
			})
		}
		if err := s.store.Items().Replace(ctx, documentID, rows); err != nil {
			return nil, model.NewStorageError("save items", err)
		}
		itemCount = len(rows)
	}

	logger.Debug("imported %s %s (document %d, %d items)", doc.Type, doc.AccessKey, documentID, itemCount)

	return &Summary{
		DocumentID: documentID,
		DocType:    doc.Type,
		AccessKey:  doc.AccessKey,
		Number:     doc.Number,
		ItemCount:  itemCount,
	}, nil
}

// ProcessFile reads path and imports its contents.
func (s *Service) ProcessFile(ctx context.Context, path string) (*Summary, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return s.Process(ctx, content)
}
