package sefaz

import (
	"context"
	"fmt"
	"time"

	"github.com/rezonia/fiscal-processor/internal/importer"
	"github.com/rezonia/fiscal-processor/internal/logger"
	"github.com/rezonia/fiscal-processor/internal/model"
	"github.com/rezonia/fiscal-processor/internal/storage/sqlite"
)

// DefaultCooldown is the minimum interval between two syncs of the same
// CNPJ. The distribution service penalizes clients that poll too often.
const DefaultCooldown = time.Hour

// DocumentImporter persists one raw document payload.
type DocumentImporter interface {
	Process(ctx context.Context, content []byte) (*importer.Summary, error)
}

// Report summarizes one sync run.
type Report struct {
	TaxID    string `json:"tax_id"`
	Skipped  bool   `json:"skipped"`
	Imported int    `json:"imported"`
	Rejected int    `json:"rejected"`
	LastNSU  string `json:"last_nsu"`
}

// Service pulls the distribution feed for a CNPJ and imports every
// packaged document, tracking the NSU cursor across runs.
type Service struct {
	fetcher  Fetcher
	importer DocumentImporter
	states   *sqlite.SyncStateStore
	cooldown time.Duration
	now      func() time.Time
}

// NewService creates a sync service with the default cooldown.
func NewService(fetcher Fetcher, imp DocumentImporter, states *sqlite.SyncStateStore) *Service {
	return &Service{
		fetcher:  fetcher,
		importer: imp,
		states:   states,
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
}

// SetCooldown overrides the minimum interval between syncs.
func (s *Service) SetCooldown(d time.Duration) { s.cooldown = d }

// Run syncs taxID: resumes from the stored cursor, imports each batch
// until the feed is drained, and persists the new cursor. Documents that
// fail for data-quality reasons are counted and skipped; infrastructure
// failures abort the run with the cursor already advanced past the last
// completed batch.
func (s *Service) Run(ctx context.Context, taxID string) (*Report, error) {
	report := &Report{TaxID: taxID}

	state, err := s.states.Get(ctx, taxID)
	if err != nil {
		return nil, err
	}

	cursor := FormatNSU(0)
	if state != nil {
		cursor = state.LastNSU
		if elapsed := s.now().Sub(state.LastSync); elapsed < s.cooldown {
			logger.Info("sync for %s skipped, last run %s ago", taxID, elapsed.Round(time.Second))
			report.Skipped = true
			report.LastNSU = cursor
			return report, nil
		}
	}

	for {
		result, err := s.fetcher.Fetch(ctx, taxID, cursor)
		if err != nil {
			logger.Error("sync for %s aborted at cursor %s: %v", taxID, cursor, err)
			return report, fmt.Errorf("fetching distribution batch after %s: %w", cursor, err)
		}

		for _, pkg := range result.Documents {
			if _, err := s.importer.Process(ctx, pkg.Payload); err != nil {
				if model.IsDataError(err) {
					logger.Warn("rejected document at NSU %s: %v", pkg.NSU, err)
					report.Rejected++
					continue
				}
				logger.Error("sync for %s aborted at NSU %s: %v", taxID, pkg.NSU, err)
				return report, fmt.Errorf("importing document at NSU %s: %w", pkg.NSU, err)
			}
			report.Imported++
		}

		// A batch that does not advance the cursor ends the run, whatever
		// the status says
		stalled := result.LastNSU <= cursor
		if !stalled {
			cursor = result.LastNSU
		}
		if err := s.states.Save(ctx, sqlite.SyncState{
			TaxID:    taxID,
			LastNSU:  cursor,
			MaxNSU:   result.MaxNSU,
			LastSync: s.now(),
		}); err != nil {
			return report, err
		}

		if stalled || result.StatusCode == StatusNoDocuments || cursor >= result.MaxNSU {
			break
		}
	}

	report.LastNSU = cursor
	logger.Info("sync for %s done: %d imported, %d rejected, cursor %s",
		taxID, report.Imported, report.Rejected, cursor)
	return report, nil
}
