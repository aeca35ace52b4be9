package cnpj_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rezonia/fiscal-processor/internal/cnpj"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "11222333000181", cnpj.Clean("11.222.333/0001-81"))
	assert.Equal(t, "11222333000181", cnpj.Clean("11222333000181"))
	assert.Equal(t, "", cnpj.Clean("abc"))
}

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"valid plain", "11222333000181", true},
		{"valid formatted", "11.222.333/0001-81", true},
		{"valid with leading zeros", "00000000000191", true},
		{"wrong check digits", "14200166000187", false},
		{"too short", "1122233300018", false},
		{"too long", "112223330001811", false},
		{"repeated digits", "11111111111111", false},
		{"empty", "", false},
		{"letters only", "abcdefghijklmn", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cnpj.Valid(tt.value))
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "11.222.333/0001-81", cnpj.Format("11222333000181"))
	assert.Equal(t, "11.222.333/0001-81", cnpj.Format("11.222.333/0001-81"))
	// CPFs and malformed values pass through untouched
	assert.Equal(t, "12345678909", cnpj.Format("12345678909"))
}
