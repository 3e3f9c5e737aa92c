package identifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain/identifier"
)

func TestFormat_RellenaATresDigitos(t *testing.T) {
	assert.Equal(t, "GROC-PGB71-001", identifier.Format("GROC-PGB71-", 1))
	assert.Equal(t, "SIE042", identifier.Format("SIE", 42))
	assert.Equal(t, "SISO1000", identifier.Format("SISO", 1000), "más de 999 no se trunca")
}

func TestAcronym(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"guion separa palabras", "Parle-G Biscuit", "PGB"},
		{"máximo tres palabras", "Leche Entera Larga Vida Colanta", "LEL"},
		{"acentos", "café árabe", "CA"},
		{"espacios repetidos", "  arroz   diana ", "AD"},
		{"vacío", "", ""},
		{"solo separadores", " - ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, identifier.Acronym(tc.in, 3))
		})
	}
}

func TestChecksum_SumaDeCodigosModulo100(t *testing.T) {
	// P(80)+a(97)+r(114)+l(108)+e(101)+-(45)+G(71)+ (32)+B(66)+i(105)+s(115)+c(99)+u(117)+i(105)+t(116) = 1371
	assert.Equal(t, 71, identifier.Checksum("Parle-G Biscuit"))
	assert.Equal(t, 0, identifier.Checksum(""))
	assert.Equal(t, 65, identifier.Checksum("A"))
}

func TestSKUPrefix(t *testing.T) {
	assert.Equal(t, "GROC-PGB71-", identifier.SKUPrefix("GROC", "Parle-G Biscuit"))
	assert.Equal(t, "BEV-A65-", identifier.SKUPrefix(" bev ", "A"))
	assert.Equal(t, "GROC--00-", identifier.SKUPrefix("GROC", ""))
}
