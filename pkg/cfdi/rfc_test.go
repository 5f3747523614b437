package cfdi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/facturacion-api/pkg/cfdi"
)

func TestValidateRFC_PersonaMoral(t *testing.T) {
	assert.NoError(t, cfdi.ValidateRFC("AAA010101AAA"))
	assert.NoError(t, cfdi.ValidateRFC("MÑA010101AB1"), "la Ñ es válida en la parte alfabética")
}

func TestValidateRFC_PersonaFisica(t *testing.T) {
	assert.NoError(t, cfdi.ValidateRFC("GODE561231GR8"))
	assert.NoError(t, cfdi.ValidateRFC("gode561231gr8"), "el RFC se normaliza a mayúsculas")
	assert.NoError(t, cfdi.ValidateRFC(" GODE-561231-GR8 "), "espacios y guiones se ignoran")
}

func TestValidateRFC_GenericosSiempreValidos(t *testing.T) {
	assert.NoError(t, cfdi.ValidateRFC(cfdi.RFCGenericoNacional))
	assert.NoError(t, cfdi.ValidateRFC(cfdi.RFCGenericoExtranjero))
	assert.True(t, cfdi.IsGenericRFC("xaxx010101000"))
	assert.False(t, cfdi.IsGenericRFC("AAA010101AAA"))
}

func TestValidateRFC_FormasInvalidas(t *testing.T) {
	for _, rfc := range []string{
		"",
		"ABC",
		"123456789012",   // todo dígitos
		"AAAA01010AAAA",  // fecha corta
		"AAAAA010101AAA", // 14 caracteres
		"AA1010101AAA",   // dígito en la parte alfabética
	} {
		assert.Error(t, cfdi.ValidateRFC(rfc), "RFC %q debería rechazarse", rfc)
	}
}
