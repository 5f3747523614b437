package timbrado

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/cfdi"
	pkgcfdi "github.com/jhoicas/facturacion-api/pkg/cfdi"
)

// Orchestrator orquesta el ciclo completo de timbrado CFDI:
//
//	Validación local → Stamp en el PAC → URL de verificación SAT → post-chequeo
//
// y el ciclo inverso (cancelación), que va directo al adaptador sin
// validación estructural ni render.
//
// El orquestador nunca reintenta un Stamp: un timeout puede significar que el
// SAT sí timbró y la respuesta se perdió en tránsito, y reenviar a ciegas
// duplicaría el folio. El reintento, si procede, es del workflow llamador.
type Orchestrator struct {
	provider PACProvider
	log      zerolog.Logger
}

// stampTimeout cota superior por operación saliente; los adaptadores aplican
// además su propio timeout HTTP.
const stampTimeout = 90 * time.Second

// NewOrchestrator construye el orquestador sobre el provider configurado.
func NewOrchestrator(provider PACProvider, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{provider: provider, log: log}
}

// StampOutcome resultado de un timbrado exitoso.
type StampOutcome struct {
	Document        *cfdi.SealedDocument
	VerificationURL string
	Advertencias    []string // advertencias no bloqueantes de la validación local
}

// Timbrar valida el documento y, solo si pasa, lo envía al PAC.
// Un documento inválido se rechaza sin intentar ninguna llamada de red.
func (o *Orchestrator) Timbrar(ctx context.Context, doc cfdi.UnsignedDocument) (*StampOutcome, error) {
	validation := cfdi.Validate(doc.XML)
	if !validation.Valida {
		o.log.Warn().
			Str("serie", doc.Serie).Str("folio", doc.Folio).
			Strs("errores", validation.Errores).
			Msg("CFDI rechazado en validación local, no se contacta al PAC")
		return nil, domain.NewValidationError(validation.Errores...)
	}

	ctx, cancel := context.WithTimeout(ctx, stampTimeout)
	defer cancel()

	sealed, err := o.provider.Stamp(ctx, doc.XML)
	if err != nil {
		o.log.Error().Err(err).
			Str("provider", o.provider.Name()).
			Str("serie", doc.Serie).Str("folio", doc.Folio).
			Msg("timbrado fallido")
		return nil, err
	}

	// Una respuesta "exitosa" sin folio fiscal o sin sellos es un resultado
	// parcial; jamás se acepta en silencio.
	if err := sealed.Validate(); err != nil {
		return nil, fmt.Errorf("%w: respuesta del PAC incompleta: %v", domain.ErrStampingRejected, err)
	}
	if sealed.XMLTimbrado != "" {
		if post := cfdi.ValidateSealed(sealed.XMLTimbrado); !post.Valida {
			return nil, fmt.Errorf("%w: el XML timbrado no pasa la validación post-timbrado: %v",
				domain.ErrStampingRejected, post.Errores)
		}
	}

	if sealed.Serie == "" {
		sealed.Serie = doc.Serie
	}
	if sealed.Folio == "" {
		sealed.Folio = doc.Folio
	}

	url, err := cfdi.BuildVerificationURL(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: no se pudo derivar la URL de verificación: %v",
			domain.ErrStampingRejected, err)
	}

	o.log.Info().
		Str("provider", o.provider.Name()).
		Str("uuid", sealed.UUID).
		Str("serie", sealed.Serie).Str("folio", sealed.Folio).
		Msg("CFDI timbrado")

	return &StampOutcome{
		Document:        sealed,
		VerificationURL: url,
		Advertencias:    validation.Advertencias,
	}, nil
}

// Cancelar solicita la cancelación de un CFDI timbrado. Sigue la misma ruta
// de adaptador que el timbrado, sin validación estructural ni render.
// ErrAlreadyCancelled es señal idempotente: el llamador la trata como
// casi-éxito, no como falla.
func (o *Orchestrator) Cancelar(ctx context.Context, req cfdi.CancellationRequest) (*cfdi.CancellationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, stampTimeout)
	defer cancel()

	result, err := o.provider.Cancel(ctx, req)
	if err != nil {
		o.log.Error().Err(err).
			Str("provider", o.provider.Name()).
			Str("uuid", req.UUID).Str("motivo", req.Motivo).
			Msg("cancelación fallida")
		return nil, err
	}

	o.log.Info().
		Str("provider", o.provider.Name()).
		Str("uuid", req.UUID).Str("estado", result.Estado).
		Msg("cancelación procesada")
	return result, nil
}

// ConsultarEstado consulta el estado del CFDI ante el SAT si el provider
// configurado implementa la capacidad; si no, ErrStatusNotSupported.
func (o *Orchestrator) ConsultarEstado(ctx context.Context, uuid string) (string, error) {
	if !cfdi.IsCanonicalUUID(uuid) {
		return "", domain.NewValidationError(fmt.Sprintf("UUID %q no tiene forma canónica", uuid))
	}
	checker, ok := o.provider.(StatusChecker)
	if !ok {
		return "", fmt.Errorf("%w (%s)", domain.ErrStatusNotSupported, o.provider.Name())
	}

	ctx, cancel := context.WithTimeout(ctx, stampTimeout)
	defer cancel()

	estado, err := checker.SATStatus(ctx, uuid)
	if err != nil {
		return "", err
	}
	if estado == "" {
		estado = pkgcfdi.EstadoNoEncontrado
	}
	return estado, nil
}
