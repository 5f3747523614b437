package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/application/timbrado"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/cfdi"
	pkgcfdi "github.com/jhoicas/facturacion-api/pkg/cfdi"
)

// CFDIHandler maneja las peticiones HTTP del ciclo de timbrado (protegido,
// salvo la validación local).
type CFDIHandler struct {
	orch  *timbrado.Orchestrator
	pdfUC *timbrado.PDFUseCase
}

// NewCFDIHandler construye el handler.
func NewCFDIHandler(orch *timbrado.Orchestrator, pdfUC *timbrado.PDFUseCase) *CFDIHandler {
	return &CFDIHandler{orch: orch, pdfUC: pdfUC}
}

// Timbrar valida el CFDI y lo envía al PAC configurado.
// POST /api/cfdi/timbrar
func (h *CFDIHandler) Timbrar(c *fiber.Ctx) error {
	if GetClientID(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.TimbrarRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.XML == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "xml requerido"})
	}

	outcome, err := h.orch.Timbrar(c.Context(), cfdi.UnsignedDocument{
		Serie:     in.Serie,
		Folio:     in.Folio,
		XML:       in.XML,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return respondDomainError(c, err)
	}

	doc := outcome.Document
	return c.Status(fiber.StatusCreated).JSON(dto.TimbradoResponse{
		UUID:             doc.UUID,
		FechaTimbrado:    doc.FechaTimbrado.Format(time.RFC3339),
		Serie:            doc.Serie,
		Folio:            doc.Folio,
		RFCEmisor:        doc.RFCEmisor,
		RFCReceptor:      doc.RFCReceptor,
		Total:            doc.Total.StringFixed(2),
		NoCertificadoSAT: doc.NoCertificadoSAT,
		SelloSAT:         doc.SelloSAT,
		XMLTimbrado:      doc.XMLTimbrado,
		URLVerificacion:  outcome.VerificationURL,
		Advertencias:     outcome.Advertencias,
	})
}

// Cancelar solicita la cancelación del folio fiscal.
// POST /api/cfdi/:uuid/cancelar
func (h *CFDIHandler) Cancelar(c *fiber.Ctx) error {
	if GetClientID(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	uuid := c.Params("uuid")
	var in dto.CancelarRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	result, err := h.orch.Cancelar(c.Context(), cfdi.CancellationRequest{
		UUID:             uuid,
		Motivo:           in.Motivo,
		FolioSustitucion: in.FolioSustitucion,
	})
	if err != nil {
		// señal idempotente: el folio ya estaba cancelado, el estado deseado
		// ya existe y el llamador no tiene nada que reintentar
		if errors.Is(err, domain.ErrAlreadyCancelled) {
			return c.JSON(dto.CancelacionResponse{
				UUID:        uuid,
				Cancelado:   true,
				YaCancelado: true,
				Estado:      pkgcfdi.EstadoCancelado,
			})
		}
		return respondDomainError(c, err)
	}

	return c.JSON(dto.CancelacionResponse{
		UUID:      uuid,
		Cancelado: result.Success,
		Estado:    result.Estado,
		Acuse:     result.Acuse,
		Fecha:     result.Fecha.Format(time.RFC3339),
	})
}

// Estado consulta el estado del CFDI ante el SAT.
// GET /api/cfdi/:uuid/estado
func (h *CFDIHandler) Estado(c *fiber.Ctx) error {
	if GetClientID(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	uuid := c.Params("uuid")

	estado, err := h.orch.ConsultarEstado(c.Context(), uuid)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.EstadoResponse{UUID: uuid, Estado: estado})
}

// PDF genera la representación impresa de un CFDI timbrado.
// POST /api/cfdi/pdf
func (h *CFDIHandler) PDF(c *fiber.Ctx) error {
	if GetClientID(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.PDFRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.XMLTimbrado == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "xml_timbrado requerido"})
	}

	doc, err := cfdi.ParseSealed(in.XMLTimbrado)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Code: "VALIDATION", Message: err.Error(),
		})
	}

	raw, err := h.pdfUC.Generate(c.Context(), doc)
	if err != nil {
		return respondDomainError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+doc.UUID+`.pdf"`)
	return c.Send(raw)
}

// Validar valida el CFDI localmente sin contactar al PAC (público).
// POST /api/cfdi/validar
func (h *CFDIHandler) Validar(c *fiber.Ctx) error {
	var in dto.ValidarRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.XML == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "xml requerido"})
	}

	result := cfdi.Validate(in.XML)
	return c.JSON(dto.ValidacionResponse{
		Valida:       result.Valida,
		Errores:      result.Errores,
		Advertencias: result.Advertencias,
	})
}

// respondDomainError traduce la taxonomía de errores del dominio a HTTP.
func respondDomainError(c *fiber.Ctx, err error) error {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: "VALIDATION", Message: "documento inválido", Details: vErr.Reasons,
		})
	}

	switch {
	case errors.Is(err, domain.ErrStampingRejected):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Code: "STAMPING_REJECTED", Message: err.Error(),
		})
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Code: "PAC_AUTH", Message: "el PAC rechazó las credenciales configuradas",
		})
	case errors.Is(err, domain.ErrProviderUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Code: "PAC_UNAVAILABLE", Message: "el PAC no está disponible, reintente más tarde",
		})
	case errors.Is(err, domain.ErrStatusNotSupported):
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{
			Code: "STATUS_NOT_SUPPORTED", Message: "el provider configurado no ofrece consulta de estado",
		})
	case errors.Is(err, domain.ErrRenderFailed):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Code: "RENDER_FAILED", Message: "no se pudo generar la representación impresa",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Code: "INTERNAL", Message: err.Error(),
		})
	}
}
