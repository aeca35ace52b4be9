package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/fiscal-processor/internal/model"
)

// Client is a stored trading partner row, returned by searches.
type Client struct {
	ID        int64  `json:"id"`
	TaxID     string `json:"tax_id"`
	Name      string `json:"name"`
	TradeName string `json:"trade_name,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
}

// Product is a stored catalog row, returned by searches.
type Product struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	NCM         string `json:"ncm,omitempty"`
	Unit        string `json:"unit,omitempty"`
}

// ItemRow is one resolved line of a document, ready for persistence.
type ItemRow struct {
	ProductID int64
	Position  int
	Quantity  decimal.Decimal
	UnitValue decimal.Decimal
	Total     decimal.Decimal
}

// SyncState is the distribution cursor for one CNPJ.
type SyncState struct {
	TaxID    string
	LastNSU  string
	MaxNSU   string
	LastSync time.Time
}

// EmitterStore persists document issuers keyed by CNPJ.
type EmitterStore struct {
	db *sql.DB
}

// Upsert inserts or refreshes an emitter and returns its row id. A party
// without a tax id is silently skipped and reported as id 0.
func (s *EmitterStore) Upsert(ctx context.Context, p model.Party) (int64, error) {
	if p.TaxID == "" {
		return 0, nil
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO emitters (cnpj, name, trade_name, address, city, state, postal_code)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (cnpj) DO UPDATE SET
			name = excluded.name,
			trade_name = excluded.trade_name,
			address = excluded.address,
			city = excluded.city,
			state = excluded.state,
			postal_code = excluded.postal_code
		RETURNING id`,
		p.TaxID, p.Name, p.TradeName, p.Address, p.City, p.State, p.PostalCode,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting emitter %s: %w", p.TaxID, err)
	}
	return id, nil
}

// ReceiverStore persists document recipients keyed by CNPJ or CPF.
type ReceiverStore struct {
	db *sql.DB
}

// Upsert inserts or refreshes a receiver and returns its row id. A party
// without a tax id is silently skipped and reported as id 0.
func (s *ReceiverStore) Upsert(ctx context.Context, p model.Party) (int64, error) {
	if p.TaxID == "" {
		return 0, nil
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO receivers (cnpj_cpf, name, trade_name, address, city, state, postal_code)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (cnpj_cpf) DO UPDATE SET
			name = excluded.name,
			trade_name = excluded.trade_name,
			address = excluded.address,
			city = excluded.city,
			state = excluded.state,
			postal_code = excluded.postal_code
		RETURNING id`,
		p.TaxID, p.Name, p.TradeName, p.Address, p.City, p.State, p.PostalCode,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting receiver %s: %w", p.TaxID, err)
	}
	return id, nil
}

// Search matches receivers by name, trade name or tax id substring.
func (s *ReceiverStore) Search(ctx context.Context, query string) ([]Client, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cnpj_cpf, name, COALESCE(trade_name, ''), COALESCE(city, ''), COALESCE(state, '')
		FROM receivers
		WHERE name LIKE ? OR trade_name LIKE ? OR cnpj_cpf LIKE ?
		ORDER BY name`,
		pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("searching receivers: %w", err)
	}
	defer rows.Close()

	var results []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.TaxID, &c.Name, &c.TradeName, &c.City, &c.State); err != nil {
			return nil, fmt.Errorf("scanning receiver: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// ProductStore persists the product catalog keyed by product code.
type ProductStore struct {
	db *sql.DB
}

// Upsert inserts or refreshes a product from a document line and returns
// its row id. A line without a product code is skipped and reported as 0.
func (s *ProductStore) Upsert(ctx context.Context, item model.LineItem) (int64, error) {
	if item.Code == "" {
		return 0, nil
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (code, description, ncm, unit)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET
			description = excluded.description,
			ncm = excluded.ncm,
			unit = excluded.unit
		RETURNING id`,
		item.Code, item.Description, item.NCM, item.Unit,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting product %s: %w", item.Code, err)
	}
	return id, nil
}

// Search matches products by description, code or NCM substring.
func (s *ProductStore) Search(ctx context.Context, query string) ([]Product, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, description, COALESCE(ncm, ''), COALESCE(unit, '')
		FROM products
		WHERE description LIKE ? OR code LIKE ? OR ncm LIKE ?
		ORDER BY description`,
		pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	defer rows.Close()

	var results []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Description, &p.NCM, &p.Unit); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// DocumentStore persists document headers keyed by access key.
type DocumentStore struct {
	db *sql.DB
}

// Upsert inserts a document header or, when the access key already exists,
// refreshes its mutable fields. This upgrades a header registered from a
// partial rendition (summary or event) to the full document kind. Party
// links are filled when still missing but an established link is never
// re-pointed, whatever the new payload claims.
func (s *DocumentStore) Upsert(ctx context.Context, doc *model.Document, emitterID, receiverID int64) (int64, error) {
	if doc.AccessKey == "" {
		return 0, errors.New("document has no access key")
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (doc_type, doc_number, series, access_key, issue_date, emitter_id, receiver_id, total_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (access_key) DO UPDATE SET
			doc_type = excluded.doc_type,
			doc_number = excluded.doc_number,
			series = excluded.series,
			issue_date = excluded.issue_date,
			total_value = excluded.total_value,
			emitter_id = COALESCE(documents.emitter_id, excluded.emitter_id),
			receiver_id = COALESCE(documents.receiver_id, excluded.receiver_id)
		RETURNING id`,
		string(doc.Type), doc.Number, doc.Series, doc.AccessKey, doc.IssueDate,
		nullableID(emitterID), nullableID(receiverID), doc.Total.String(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting document %s: %w", doc.AccessKey, err)
	}
	return id, nil
}

// Register inserts a document header only if the access key is new. An
// existing header, possibly from a fuller rendition of the same document,
// is left untouched and its id returned.
func (s *DocumentStore) Register(ctx context.Context, doc *model.Document, emitterID, receiverID int64) (int64, error) {
	if doc.AccessKey == "" {
		return 0, errors.New("document has no access key")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO documents (doc_type, doc_number, series, access_key, issue_date, emitter_id, receiver_id, total_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(doc.Type), doc.Number, doc.Series, doc.AccessKey, doc.IssueDate,
		nullableID(emitterID), nullableID(receiverID), doc.Total.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("registering document %s: %w", doc.AccessKey, err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT id FROM documents WHERE access_key = ?", doc.AccessKey,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolving document %s: %w", doc.AccessKey, err)
	}
	return id, nil
}

// Count reports the number of stored documents.
func (s *DocumentStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// ItemStore persists document line items.
type ItemStore struct {
	db *sql.DB
}

// Replace atomically swaps the stored lines of a document for the given
// rows, so reprocessing never duplicates items.
func (s *ItemStore) Replace(ctx context.Context, documentID int64, rows []ItemRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning item replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM document_items WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing items for document %d: %w", documentID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_items (document_id, product_id, position, quantity, unit_value, total_value)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing item insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			documentID, row.ProductID, row.Position,
			row.Quantity.String(), row.UnitValue.String(), row.Total.String(),
		); err != nil {
			return fmt.Errorf("inserting item %d of document %d: %w", row.Position, documentID, err)
		}
	}

	return tx.Commit()
}

// CountForDocument reports the number of stored lines for one document.
func (s *ItemStore) CountForDocument(ctx context.Context, documentID int64) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM document_items WHERE document_id = ?", documentID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// SyncStateStore persists the SEFAZ distribution cursor per CNPJ.
type SyncStateStore struct {
	db *sql.DB
}

// Get returns the cursor for taxID, or nil when no sync has happened yet.
func (s *SyncStateStore) Get(ctx context.Context, taxID string) (*SyncState, error) {
	var state SyncState
	var maxNSU sql.NullString
	var lastSync sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT tax_id, last_nsu, max_nsu, last_sync FROM sync_state WHERE tax_id = ?", taxID,
	).Scan(&state.TaxID, &state.LastNSU, &maxNSU, &lastSync)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sync state for %s: %w", taxID, err)
	}
	state.MaxNSU = maxNSU.String
	if lastSync.Valid {
		state.LastSync = lastSync.Time
	}
	return &state, nil
}

// Save writes the cursor for state.TaxID, creating the row if needed.
func (s *SyncStateStore) Save(ctx context.Context, state SyncState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (tax_id, last_nsu, max_nsu, last_sync)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tax_id) DO UPDATE SET
			last_nsu = excluded.last_nsu,
			max_nsu = excluded.max_nsu,
			last_sync = excluded.last_sync`,
		state.TaxID, state.LastNSU, state.MaxNSU, state.LastSync,
	)
	if err != nil {
		return fmt.Errorf("saving sync state for %s: %w", state.TaxID, err)
	}
	return nil
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
