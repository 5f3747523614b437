package timbrado

import (
	"context"

	"github.com/jhoicas/facturacion-api/internal/domain/cfdi"
)

// PACProvider define el puerto de salida hacia un proveedor autorizado de
// certificación. Cada adaptador traduce este contrato a su dialecto de wire
// (SOAP con envelope o token+JSON) y mapea sus códigos a la taxonomía de
// errores del dominio; jamás deja escapar un error crudo de transporte.
//
// Los adaptadores son intercambiables: el provider concreto se elige por
// configuración al arranque, nunca por inspección de tipos en runtime.
type PACProvider interface {
	// Name identificador corto del provider para logs ("finkok", "sw").
	Name() string

	// Stamp envía el CFDI sellado por el emisor y devuelve el documento
	// timbrado. Errores posibles: ErrStampingRejected (con diagnóstico del
	// PAC), ErrProviderUnavailable, ErrAuthenticationFailed.
	Stamp(ctx context.Context, xmlCFDI string) (*cfdi.SealedDocument, error)

	// Cancel solicita la cancelación de un CFDI timbrado. Además de las
	// clases de Stamp puede devolver ErrAlreadyCancelled cuando el SAT
	// reporta que el documento no está en estado cancelable.
	Cancel(ctx context.Context, req cfdi.CancellationRequest) (*cfdi.CancellationResult, error)
}

// StatusChecker capacidad opcional de consulta de estado ante el SAT.
// No todo dialecto la ofrece; el orquestador la detecta con type assertion y
// devuelve ErrStatusNotSupported cuando el provider configurado no la tiene.
type StatusChecker interface {
	// SATStatus devuelve vigente|cancelado|no_encontrado. Es una consulta
	// advisoria: ante errores transitorios responde no_encontrado en lugar
	// de propagarlos (fail open).
	SATStatus(ctx context.Context, uuid string) (string, error)
}

// CFDIPDFGenerator puerto hacia el renderer de la representación impresa.
type CFDIPDFGenerator interface {
	GenerateCFDIPDF(ctx context.Context, doc *cfdi.SealedDocument, verificationURL string) ([]byte, error)
}
