package importer_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fiscal-processor/internal/importer"
	"github.com/rezonia/fiscal-processor/internal/model"
	xmlparser "github.com/rezonia/fiscal-processor/internal/parser/xml"
	"github.com/rezonia/fiscal-processor/internal/storage/sqlite"
)

const nfePayload = `<NFe><infNFe Id="NFe35200714200166000187550010000000046550010466">
	<ide><nNF>4</nNF><serie>1</serie><dhEmi>2020-07-10T10:22:45-03:00</dhEmi></ide>
	<emit><CNPJ>14200166000187</CNPJ><xNome>ACME Distribuidora Ltda</xNome></emit>
	<dest><CNPJ>11222333000181</CNPJ><xNome>Comercio XYZ Ltda</xNome></dest>
	<det nItem="1"><prod><cProd>P001</cProd><xProd>Widget</xProd><qCom>2</qCom><vUnCom>10.50</vUnCom><vProd>21.00</vProd></prod></det>
	<det nItem="2"><prod><cProd>P002</cProd><xProd>Gadget</xProd><qCom>1</qCom><vUnCom>5.00</vUnCom><vProd>5.00</vProd></prod></det>
	<total><ICMSTot><vNF>26.00</vNF></ICMSTot></total>
</infNFe></NFe>`

const ctePayload = `<CTe><infCte Id="CTe35200781171954000165570010000080831000080838">
	<ide><nCT>8083</nCT><serie>1</serie><dhEmi>2020-07-12T08:00:00-03:00</dhEmi></ide>
	<emit><CNPJ>81171954000165</CNPJ><xNome>TransLog Transportes SA</xNome></emit>
	<dest><CPF>12345678909</CPF><xNome>Joana Pereira</xNome></dest>
	<vPrest><vTPrest>350.75</vTPrest></vPrest>
</infCte></CTe>`

const summaryPayload = `<resNFe xmlns="http://www.portalfiscal.inf.br/nfe">
	<chNFe>35200714200166000187550010000000046550010466</chNFe>
	<CNPJ>14200166000187</CNPJ>
	<xNome>ACME Distribuidora Ltda</xNome>
	<dhEmi>2020-07-10T10:22:45-03:00</dhEmi>
	<vNF>26.00</vNF>
</resNFe>`

func newTestService(t *testing.T) (*importer.Service, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "fiscal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return importer.New(xmlparser.NewRegistry(), store), store
}

func TestService_ProcessFullNFe(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	summary, err := svc.Process(ctx, []byte(nfePayload))
	require.NoError(t, err)

	assert.Equal(t, model.DocTypeNFe, summary.DocType)
	assert.Equal(t, "35200714200166000187550010000000046550010466", summary.AccessKey)
	assert.Equal(t, "4", summary.Number)
	assert.Equal(t, 2, summary.ItemCount)
	require.NotZero(t, summary.DocumentID)

	clients, err := store.Receivers().Search(ctx, "XYZ")
	require.NoError(t, err)
	require.Len(t, clients, 1)

	products, err := store.Products().Search(ctx, "Widget")
	require.NoError(t, err)
	require.Len(t, products, 1)
}

func TestService_ProcessIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.Process(ctx, []byte(nfePayload))
	require.NoError(t, err)
	second, err := svc.Process(ctx, []byte(nfePayload))
	require.NoError(t, err)

	assert.Equal(t, first.DocumentID, second.DocumentID)

	count, err := store.Documents().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	items, err := store.Items().CountForDocument(ctx, first.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), items)
}

func TestService_ProcessCTe(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	summary, err := svc.Process(ctx, []byte(ctePayload))
	require.NoError(t, err)

	assert.Equal(t, model.DocTypeCTe, summary.DocType)
	assert.Equal(t, "8083", summary.Number)
	assert.Zero(t, summary.ItemCount)

	items, err := store.Items().CountForDocument(ctx, summary.DocumentID)
	require.NoError(t, err)
	assert.Zero(t, items)
}

func TestService_SummaryDoesNotClobberFullDocument(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	full, err := svc.Process(ctx, []byte(nfePayload))
	require.NoError(t, err)

	partial, err := svc.Process(ctx, []byte(summaryPayload))
	require.NoError(t, err)
	assert.Equal(t, full.DocumentID, partial.DocumentID)
	assert.Equal(t, model.DocTypeNFeSummary, partial.DocType)

	var docType, number string
	require.NoError(t, store.DB().QueryRow(
		"SELECT doc_type, doc_number FROM documents WHERE id = ?", full.DocumentID,
	).Scan(&docType, &number))
	assert.Equal(t, "NF-e", docType)
	assert.Equal(t, "4", number)
}

func TestService_SummaryBeforeFullDocument(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	partial, err := svc.Process(ctx, []byte(summaryPayload))
	require.NoError(t, err)

	var receiverID sql.NullInt64
	require.NoError(t, store.DB().QueryRow(
		"SELECT receiver_id FROM documents WHERE id = ?", partial.DocumentID,
	).Scan(&receiverID))
	assert.False(t, receiverID.Valid, "summaries carry no receiver")

	// The later full rendition upgrades the same row
	full, err := svc.Process(ctx, []byte(nfePayload))
	require.NoError(t, err)
	assert.Equal(t, partial.DocumentID, full.DocumentID)
	assert.Equal(t, 2, full.ItemCount)

	// The row now carries the full kind and the receiver link the summary
	// could not establish
	var docType, number string
	require.NoError(t, store.DB().QueryRow(
		"SELECT doc_type, doc_number, receiver_id FROM documents WHERE id = ?", full.DocumentID,
	).Scan(&docType, &number, &receiverID))
	assert.Equal(t, "NF-e", docType)
	assert.Equal(t, "4", number)
	assert.True(t, receiverID.Valid)
}

func TestService_MissingAccessKeyFailsBeforePersistence(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	payload := `<NFe><infNFe>
		<emit><CNPJ>14200166000187</CNPJ><xNome>ACME</xNome></emit>
	</infNFe></NFe>`

	_, err := svc.Process(ctx, []byte(payload))
	require.Error(t, err)

	var malformed *model.MalformedDocumentError
	require.ErrorAs(t, err, &malformed)
	assert.True(t, model.IsDataError(err))

	// The failed document must leave no trace, not even its emitter
	var emitters int
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM emitters").Scan(&emitters))
	assert.Zero(t, emitters)

	count, err := store.Documents().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_UnrecognizedDocument(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Process(context.Background(), []byte(`<order><id>1</id></order>`))
	require.Error(t, err)

	var unrecognized *model.UnrecognizedDocumentError
	require.ErrorAs(t, err, &unrecognized)
	assert.True(t, model.IsDataError(err))
}

func TestService_BrokenXML(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Process(context.Background(), []byte(`<NFe><infNFe`))
	require.Error(t, err)

	var syntaxErr *model.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.True(t, model.IsDataError(err))
}

func TestService_ProcessFileMissing(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "absent.xml"))
	require.Error(t, err)
	assert.False(t, model.IsDataError(err))
}
