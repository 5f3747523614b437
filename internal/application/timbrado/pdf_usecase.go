package timbrado

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/cfdi"
)

// PDFUseCase genera la representación impresa de un CFDI timbrado.
// La URL de verificación solo viaja dentro del QR, nunca como texto plano:
// ese es el contrato de la representación impresa.
type PDFUseCase struct {
	generator CFDIPDFGenerator
}

// NewPDFUseCase construye el caso de uso.
func NewPDFUseCase(generator CFDIPDFGenerator) *PDFUseCase {
	return &PDFUseCase{generator: generator}
}

// Generate produce el PDF del CFDI timbrado. Cualquier fallo de dibujo se
// reporta como ErrRenderFailed; nunca se entrega un documento parcial.
func (uc *PDFUseCase) Generate(ctx context.Context, doc *cfdi.SealedDocument) ([]byte, error) {
	if doc == nil {
		return nil, domain.NewValidationError("documento timbrado requerido")
	}
	if err := doc.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	url, err := cfdi.BuildVerificationURL(doc)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	pdfBytes, err := uc.generator.GenerateCFDIPDF(ctx, doc, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailed, err)
	}
	return pdfBytes, nil
}
