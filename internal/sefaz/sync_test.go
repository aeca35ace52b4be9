package sefaz_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fiscal-processor/internal/importer"
	"github.com/rezonia/fiscal-processor/internal/model"
	xmlparser "github.com/rezonia/fiscal-processor/internal/parser/xml"
	"github.com/rezonia/fiscal-processor/internal/sefaz"
	"github.com/rezonia/fiscal-processor/internal/storage/sqlite"
)

const testTaxID = "11222333000181"

// scriptedFetcher replays pre-built batches keyed by the cursor it is
// called with.
type scriptedFetcher struct {
	batches map[string]*sefaz.DistributionResult
	calls   int
}

func (f *scriptedFetcher) Fetch(ctx context.Context, taxID, lastNSU string) (*sefaz.DistributionResult, error) {
	f.calls++
	batch, ok := f.batches[lastNSU]
	if !ok {
		return nil, errors.New("unexpected cursor " + lastNSU)
	}
	return batch, nil
}

// recordingImporter accepts every payload except the ones it is told to
// reject, and records what it saw.
type recordingImporter struct {
	rejected map[string]error
	seen     []string
}

func (i *recordingImporter) Process(ctx context.Context, content []byte) (*importer.Summary, error) {
	payload := string(content)
	i.seen = append(i.seen, payload)
	if err, ok := i.rejected[payload]; ok {
		return nil, err
	}
	return &importer.Summary{DocumentID: int64(len(i.seen))}, nil
}

func newStateStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "fiscal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func packaged(nsu int64, payload string) sefaz.PackagedDocument {
	return sefaz.PackagedDocument{NSU: sefaz.FormatNSU(nsu), Schema: "procNFe_v4.00.xsd", Payload: []byte(payload)}
}

func TestService_RunDrainsFeedAcrossBatches(t *testing.T) {
	store := newStateStore(t)
	fetcher := &scriptedFetcher{batches: map[string]*sefaz.DistributionResult{
		sefaz.FormatNSU(0): {
			StatusCode: sefaz.StatusDocumentsFound,
			LastNSU:    sefaz.FormatNSU(2),
			MaxNSU:     sefaz.FormatNSU(3),
			Documents:  []sefaz.PackagedDocument{packaged(1, "doc-1"), packaged(2, "doc-2")},
		},
		sefaz.FormatNSU(2): {
			StatusCode: sefaz.StatusDocumentsFound,
			LastNSU:    sefaz.FormatNSU(3),
			MaxNSU:     sefaz.FormatNSU(3),
			Documents:  []sefaz.PackagedDocument{packaged(3, "doc-3")},
		},
	}}
	imp := &recordingImporter{}

	report, err := sefaz.NewService(fetcher, imp, store.SyncState()).Run(context.Background(), testTaxID)
	require.NoError(t, err)

	assert.False(t, report.Skipped)
	assert.Equal(t, 3, report.Imported)
	assert.Zero(t, report.Rejected)
	assert.Equal(t, sefaz.FormatNSU(3), report.LastNSU)
	assert.Equal(t, []string{"doc-1", "doc-2", "doc-3"}, imp.seen)
	assert.Equal(t, 2, fetcher.calls)

	state, err := store.SyncState().Get(context.Background(), testTaxID)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, sefaz.FormatNSU(3), state.LastNSU)
	assert.False(t, state.LastSync.IsZero())
}

func TestService_RunSkipsRejectedDocuments(t *testing.T) {
	store := newStateStore(t)
	fetcher := &scriptedFetcher{batches: map[string]*sefaz.DistributionResult{
		sefaz.FormatNSU(0): {
			StatusCode: sefaz.StatusDocumentsFound,
			LastNSU:    sefaz.FormatNSU(2),
			MaxNSU:     sefaz.FormatNSU(2),
			Documents:  []sefaz.PackagedDocument{packaged(1, "good"), packaged(2, "broken")},
		},
	}}
	imp := &recordingImporter{rejected: map[string]error{
		"broken": model.NewSyntaxError("failed to parse XML", nil),
	}}

	report, err := sefaz.NewService(fetcher, imp, store.SyncState()).Run(context.Background(), testTaxID)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Rejected)
	// The cursor moves past the rejected document so it is not refetched
	assert.Equal(t, sefaz.FormatNSU(2), report.LastNSU)
}

func TestService_RunAbortsOnInfrastructureError(t *testing.T) {
	store := newStateStore(t)
	fetcher := &scriptedFetcher{batches: map[string]*sefaz.DistributionResult{
		sefaz.FormatNSU(0): {
			StatusCode: sefaz.StatusDocumentsFound,
			LastNSU:    sefaz.FormatNSU(1),
			MaxNSU:     sefaz.FormatNSU(1),
			Documents:  []sefaz.PackagedDocument{packaged(1, "doomed")},
		},
	}}
	imp := &recordingImporter{rejected: map[string]error{
		"doomed": model.NewStorageError("save document", errors.New("disk full")),
	}}

	_, err := sefaz.NewService(fetcher, imp, store.SyncState()).Run(context.Background(), testTaxID)
	require.Error(t, err)

	// No cursor is persisted for the failed batch
	state, stateErr := store.SyncState().Get(context.Background(), testTaxID)
	require.NoError(t, stateErr)
	assert.Nil(t, state)
}

func TestService_RunHonorsCooldown(t *testing.T) {
	store := newStateStore(t)
	fetcher := &scriptedFetcher{batches: map[string]*sefaz.DistributionResult{
		sefaz.FormatNSU(0): {
			StatusCode: sefaz.StatusDocumentsFound,
			LastNSU:    sefaz.FormatNSU(1),
			MaxNSU:     sefaz.FormatNSU(1),
			Documents:  []sefaz.PackagedDocument{packaged(1, "doc-1")},
		},
	}}
	imp := &recordingImporter{}
	svc := sefaz.NewService(fetcher, imp, store.SyncState())

	report, err := svc.Run(context.Background(), testTaxID)
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)

	// Back-to-back run falls inside the default cooldown
	report, err = svc.Run(context.Background(), testTaxID)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Zero(t, report.Imported)
	assert.Equal(t, 1, len(imp.seen))

	// With the cooldown lifted the feed is polled again
	svc.SetCooldown(0)
	fetcher.batches[sefaz.FormatNSU(1)] = &sefaz.DistributionResult{
		StatusCode: sefaz.StatusNoDocuments,
		LastNSU:    sefaz.FormatNSU(1),
		MaxNSU:     sefaz.FormatNSU(1),
	}
	report, err = svc.Run(context.Background(), testTaxID)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Zero(t, report.Imported)
}

func TestKindOfSchema(t *testing.T) {
	assert.Equal(t, model.DocTypeNFe, sefaz.KindOfSchema("procNFe_v4.00.xsd"))
	assert.Equal(t, model.DocTypeNFeSummary, sefaz.KindOfSchema("resNFe_v1.01.xsd"))
	assert.Equal(t, model.DocTypeNFeEvent, sefaz.KindOfSchema("procEventoNFe_v1.00.xsd"))
	assert.Equal(t, model.DocTypeNFeEvent, sefaz.KindOfSchema("resEvento_v1.01.xsd"))
	assert.Equal(t, model.DocTypeCTe, sefaz.KindOfSchema("procCTe_v4.00.xsd"))
	assert.Equal(t, model.DocType(""), sefaz.KindOfSchema("unknown.xsd"))
}

func TestDirectoryFetcher_BatchesInNameOrder(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []struct{ name, body string }{
		{"001_first.xml", "<a>1</a>"},
		{"002_second.xml", "<a>2</a>"},
		{"003_third.xml", "<a>3</a>"},
		{"notes.txt", "ignored"},
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f.name), []byte(f.body), 0o644))
	}

	fetcher := sefaz.NewDirectoryFetcher(dir)
	fetcher.BatchSize = 2
	ctx := context.Background()

	batch, err := fetcher.Fetch(ctx, testTaxID, sefaz.FormatNSU(0))
	require.NoError(t, err)
	assert.Equal(t, sefaz.StatusDocumentsFound, batch.StatusCode)
	require.Len(t, batch.Documents, 2)
	assert.Equal(t, sefaz.FormatNSU(1), batch.Documents[0].NSU)
	assert.Equal(t, "<a>1</a>", string(batch.Documents[0].Payload))
	assert.Equal(t, sefaz.FormatNSU(2), batch.LastNSU)
	assert.Equal(t, sefaz.FormatNSU(3), batch.MaxNSU)

	batch, err = fetcher.Fetch(ctx, testTaxID, batch.LastNSU)
	require.NoError(t, err)
	require.Len(t, batch.Documents, 1)
	assert.Equal(t, "<a>3</a>", string(batch.Documents[0].Payload))
	assert.Equal(t, sefaz.FormatNSU(3), batch.LastNSU)

	// Drained: nothing after the last NSU
	batch, err = fetcher.Fetch(ctx, testTaxID, batch.LastNSU)
	require.NoError(t, err)
	assert.Equal(t, sefaz.StatusNoDocuments, batch.StatusCode)
	assert.Empty(t, batch.Documents)
}

func TestService_RunWithDirectoryFeed(t *testing.T) {
	feed := t.TempDir()
	nfe := `<NFe><infNFe Id="NFe35200714200166000187550010000000046550010466">
		<ide><nNF>4</nNF></ide>
		<emit><CNPJ>14200166000187</CNPJ><xNome>ACME</xNome></emit>
		<total><ICMSTot><vNF>10.00</vNF></ICMSTot></total>
	</infNFe></NFe>`
	require.NoError(t, os.WriteFile(filepath.Join(feed, "001_nfe.xml"), []byte(nfe), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(feed, "002_bad.xml"), []byte("<order/>"), 0o644))

	store := newStateStore(t)
	imp := importer.New(xmlparser.NewRegistry(), store)

	report, err := sefaz.NewService(sefaz.NewDirectoryFetcher(feed), imp, store.SyncState()).
		Run(context.Background(), testTaxID)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, sefaz.FormatNSU(2), report.LastNSU)

	count, err := store.Documents().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
