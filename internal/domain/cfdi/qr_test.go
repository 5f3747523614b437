package cfdi_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-api/internal/domain/cfdi"
)

// ──────────────────────────────────────────────────────────────────────────────
// TestBuildVerificationURL_VectorExacto fija byte a byte la URL de verificación
// del SAT. La plantilla (id/re/rr/tt/fe) es un contrato externo: si alguien
// cambia el orden de los parámetros, el formato del total o el recorte del
// sello, este test falla antes de llegar a producción.
// ──────────────────────────────────────────────────────────────────────────────

func sealedDoc() *cfdi.SealedDocument {
	return &cfdi.SealedDocument{
		UUID:        "A1B2C3D4-E5F6-4A7B-8C9D-0E1F2A3B4C5D",
		RFCEmisor:   "AAA010101AAA",
		RFCReceptor: "XAXX010101000",
		Total:       decimal.RequireFromString("116.00"),
		SelloSAT:    "c2VsbG8tc2F0LW9wYWNvLWJhc2U2NA==ZZ998877",
		SelloCFD:    "c2VsbG8tZW1pc29y",
	}
}

func TestBuildVerificationURL_VectorExacto(t *testing.T) {
	url, err := cfdi.BuildVerificationURL(sealedDoc())
	require.NoError(t, err)

	assert.Equal(t,
		"https://verificacfdi.facturaelectronica.sat.gob.mx/default.aspx?"+
			"&id=A1B2C3D4-E5F6-4A7B-8C9D-0E1F2A3B4C5D"+
			"&re=AAA010101AAA"+
			"&rr=XAXX010101000"+
			"&tt=116.000000"+
			"&fe=ZZ998877",
		url)
}

func TestBuildVerificationURL_TotalConSeisDecimales(t *testing.T) {
	d := sealedDoc()
	d.Total = decimal.RequireFromString("1234.5")

	url, err := cfdi.BuildVerificationURL(d)
	require.NoError(t, err)
	assert.Contains(t, url, "&tt=1234.500000&", "el parámetro tt viaja con exactamente seis decimales")
}

func TestBuildVerificationURL_Determinista(t *testing.T) {
	url1, err1 := cfdi.BuildVerificationURL(sealedDoc())
	url2, err2 := cfdi.BuildVerificationURL(sealedDoc())

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, url1, url2, "el mismo documento produce siempre la misma URL byte a byte")
}

func TestBuildVerificationURL_CambioDeSelloSoloAfectaFe(t *testing.T) {
	base, err := cfdi.BuildVerificationURL(sealedDoc())
	require.NoError(t, err)

	mutated := sealedDoc()
	mutated.SelloSAT = strings.Replace(mutated.SelloSAT, "ZZ998877", "ZZ998878", 1)
	changed, err := cfdi.BuildVerificationURL(mutated)
	require.NoError(t, err)

	assert.NotEqual(t, base, changed)
	// todo lo anterior a fe= permanece idéntico
	cut := func(s string) string { return s[:strings.Index(s, "&fe=")] }
	assert.Equal(t, cut(base), cut(changed), "cambiar el sello solo puede mover el fragmento fe")
	assert.True(t, strings.HasSuffix(changed, "&fe=ZZ998878"))
}

func TestBuildVerificationURL_SelloCortoEsError(t *testing.T) {
	d := sealedDoc()
	d.SelloSAT = "corto"

	_, err := cfdi.BuildVerificationURL(d)
	assert.Error(t, err, "un sello de menos de 8 caracteres indica respuesta corrupta del PAC")
}

func TestBuildVerificationURL_UUIDNoCanonicoEsError(t *testing.T) {
	d := sealedDoc()
	d.UUID = "A1B2C3D4"

	_, err := cfdi.BuildVerificationURL(d)
	assert.Error(t, err)
}

func TestBuildVerificationURL_NilEsError(t *testing.T) {
	_, err := cfdi.BuildVerificationURL(nil)
	assert.Error(t, err)
}
