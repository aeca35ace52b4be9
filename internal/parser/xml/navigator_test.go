package xml_test

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xmlparser "github.com/rezonia/fiscal-processor/internal/parser/xml"
)

func parseTree(t *testing.T, content string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(content))
	root := doc.Root()
	require.NotNil(t, root)
	return root
}

func TestFindText_NamespaceTolerance(t *testing.T) {
	// The same tree in three namespace styles must extract identically
	trees := map[string]string{
		"default namespace": `<root xmlns="http://www.portalfiscal.inf.br/nfe"><ide><nNF>42</nNF></ide></root>`,
		"prefixed":          `<nfe:root xmlns:nfe="http://www.portalfiscal.inf.br/nfe"><nfe:ide><nfe:nNF>42</nfe:nNF></nfe:ide></nfe:root>`,
		"no namespace":      `<root><ide><nNF>42</nNF></ide></root>`,
	}

	for name, content := range trees {
		t.Run(name, func(t *testing.T) {
			root := parseTree(t, content)
			assert.Equal(t, "42", xmlparser.FindText(root, "ide", "nNF"))
		})
	}
}

func TestFindText_MissingPath(t *testing.T) {
	root := parseTree(t, `<root><ide><nNF>42</nNF></ide></root>`)

	assert.Equal(t, "", xmlparser.FindText(root, "ide", "serie"))
	assert.Equal(t, "", xmlparser.FindText(root, "total", "ICMSTot", "vNF"))
}

func TestFindText_TrimsWhitespace(t *testing.T) {
	root := parseTree(t, `<root><xNome>
		ACME Ltda
	</xNome></root>`)

	assert.Equal(t, "ACME Ltda", xmlparser.FindText(root, "xNome"))
}

func TestFindDecimal(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    decimal.Decimal
	}{
		{
			name:    "valid value",
			content: `<root><vNF>1234.56</vNF></root>`,
			want:    decimal.RequireFromString("1234.56"),
		},
		{
			name:    "missing element defaults to zero",
			content: `<root></root>`,
			want:    decimal.Zero,
		},
		{
			name:    "unparseable text defaults to zero",
			content: `<root><vNF>abc</vNF></root>`,
			want:    decimal.Zero,
		},
		{
			name:    "empty text defaults to zero",
			content: `<root><vNF></vNF></root>`,
			want:    decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := parseTree(t, tt.content)
			got := xmlparser.FindDecimal(root, "vNF")
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestFindDescendant(t *testing.T) {
	root := parseTree(t, `<proc><wrapper><infNFe Id="NFe123"><ide/></infNFe></wrapper></proc>`)

	found := xmlparser.FindDescendant(root, "infNFe")
	require.NotNil(t, found)
	assert.Equal(t, "NFe123", found.SelectAttrValue("Id", ""))

	assert.Nil(t, xmlparser.FindDescendant(root, "infCte"))
}

func TestFindElement_FirstMatchWins(t *testing.T) {
	root := parseTree(t, `<root><det><prod><cProd>A</cProd></prod></det><det><prod><cProd>B</cProd></prod></det></root>`)

	assert.Equal(t, "A", xmlparser.FindText(root, "det", "prod", "cProd"))
}
