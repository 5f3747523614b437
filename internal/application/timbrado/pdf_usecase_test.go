package timbrado_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-api/internal/application/timbrado"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/cfdi"
)

type mockGenerator struct {
	pdf     []byte
	err     error
	lastURL string
}

func (m *mockGenerator) GenerateCFDIPDF(_ context.Context, _ *cfdi.SealedDocument, url string) ([]byte, error) {
	m.lastURL = url
	return m.pdf, m.err
}

func TestPDFUseCase_GeneraConURLDeVerificacion(t *testing.T) {
	gen := &mockGenerator{pdf: []byte("%PDF-1.7 demo")}
	uc := timbrado.NewPDFUseCase(gen)

	pdf, err := uc.Generate(context.Background(), sealedFixture())

	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Contains(t, gen.lastURL, "verificacfdi.facturaelectronica.sat.gob.mx",
		"el renderer recibe la URL ya construida, lista para el QR")
}

func TestPDFUseCase_FalloDeDibujoEsErrRenderFailed(t *testing.T) {
	gen := &mockGenerator{err: errors.New("fuente no disponible")}
	uc := timbrado.NewPDFUseCase(gen)

	pdf, err := uc.Generate(context.Background(), sealedFixture())

	assert.ErrorIs(t, err, domain.ErrRenderFailed)
	assert.Nil(t, pdf, "jamás se entrega un PDF parcial")
}

func TestPDFUseCase_DocumentoIncompletoNoLlegaAlRenderer(t *testing.T) {
	gen := &mockGenerator{pdf: []byte("%PDF")}
	uc := timbrado.NewPDFUseCase(gen)

	doc := sealedFixture()
	doc.UUID = "malformado"
	_, err := uc.Generate(context.Background(), doc)

	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Empty(t, gen.lastURL)
}

func TestPDFUseCase_NilDocumento(t *testing.T) {
	uc := timbrado.NewPDFUseCase(&mockGenerator{})
	_, err := uc.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}
