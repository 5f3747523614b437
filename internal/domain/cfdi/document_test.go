package cfdi_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/facturacion-api/internal/domain/cfdi"
	pkgcfdi "github.com/jhoicas/facturacion-api/pkg/cfdi"
)

const testUUIDSustituto = "B2C3D4E5-F6A7-4B8C-9D0E-1F2A3B4C5D6E"

func TestCancellationRequest_MotivosDelCatalogo(t *testing.T) {
	for _, motivo := range []string{"02", "03", "04"} {
		req := cfdi.CancellationRequest{UUID: testUUID, Motivo: motivo}
		assert.NoError(t, req.Validate(), "motivo %s sin sustitución debe ser válido", motivo)
	}
}

func TestCancellationRequest_MotivoFueraDelCatalogo(t *testing.T) {
	req := cfdi.CancellationRequest{UUID: testUUID, Motivo: "05"}
	assert.Error(t, req.Validate())
}

func TestCancellationRequest_Motivo01ExigeSustitucion(t *testing.T) {
	req := cfdi.CancellationRequest{UUID: testUUID, Motivo: pkgcfdi.MotivoErroresConRelacion}
	assert.Error(t, req.Validate(), "el motivo 01 sin FolioSustitucion debe rechazarse")

	req.FolioSustitucion = testUUIDSustituto
	assert.NoError(t, req.Validate())
}

func TestCancellationRequest_SustitutoIgualAlObjetivo(t *testing.T) {
	req := cfdi.CancellationRequest{
		UUID:             testUUID,
		Motivo:           pkgcfdi.MotivoErroresConRelacion,
		FolioSustitucion: testUUID,
	}
	assert.Error(t, req.Validate(), "el folio de sustitución debe diferir del UUID cancelado")
}

func TestCancellationRequest_SustitucionSoloConMotivo01(t *testing.T) {
	req := cfdi.CancellationRequest{
		UUID:             testUUID,
		Motivo:           pkgcfdi.MotivoErroresSinRelacion,
		FolioSustitucion: testUUIDSustituto,
	}
	assert.Error(t, req.Validate())
}

func TestCancellationRequest_UUIDNoCanonico(t *testing.T) {
	req := cfdi.CancellationRequest{UUID: "1234", Motivo: "02"}
	assert.Error(t, req.Validate())
}

func TestIsCanonicalUUID(t *testing.T) {
	assert.True(t, cfdi.IsCanonicalUUID(testUUID))
	assert.False(t, cfdi.IsCanonicalUUID("a1b2c3d4e5f64a7b8c9d0e1f2a3b4c5d"), "sin guiones no son 36 caracteres canónicos")
	assert.False(t, cfdi.IsCanonicalUUID(""))
	assert.False(t, cfdi.IsCanonicalUUID("ZZZZZZZZ-ZZZZ-ZZZZ-ZZZZ-ZZZZZZZZZZZZ"))
}

func TestSealedDocument_ValidateInvariantes(t *testing.T) {
	doc := sealedDoc()
	doc.FechaTimbrado = time.Date(2026, 8, 30, 12, 0, 5, 0, time.UTC)
	assert.NoError(t, doc.Validate())

	sinSello := sealedDoc()
	sinSello.FechaTimbrado = doc.FechaTimbrado
	sinSello.SelloSAT = ""
	assert.Error(t, sinSello.Validate(), "un timbrado sin SelloSAT es una respuesta parcial")

	sinFecha := sealedDoc()
	assert.Error(t, sinFecha.Validate(), "FechaTimbrado es obligatoria")

	assert.Error(t, (&cfdi.SealedDocument{}).Validate())
}
