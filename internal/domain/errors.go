package domain

import (
	"errors"
	"strings"
)

// Errores del pipeline de timbrado (sin dependencias externas).
// El llamador distingue cada clase con errors.Is para decidir entre
// corregir-y-reenviar, esperar-y-reintentar o escalar; los adaptadores PAC
// traducen siempre su protocolo a una de estas clases.
var (
	// ErrValidationFailed el documento no pasó la validación local; no se intentó red.
	ErrValidationFailed = errors.New("documento inválido")
	// ErrAuthenticationFailed no se pudo obtener credencial ante el PAC (configuración u outage).
	ErrAuthenticationFailed = errors.New("autenticación con el PAC fallida")
	// ErrProviderUnavailable fallo transitorio: timeout, conexión o respuesta 5xx.
	ErrProviderUnavailable = errors.New("PAC no disponible")
	// ErrStampingRejected el PAC rechazó activamente el documento; corregir antes de reenviar.
	ErrStampingRejected = errors.New("documento rechazado por el PAC")
	// ErrAlreadyCancelled el CFDI no está en estado cancelable (ya cancelado o en proceso).
	ErrAlreadyCancelled = errors.New("el CFDI no está en estado cancelable")
	// ErrRenderFailed fallo local generando la representación impresa; nunca se entrega un PDF parcial.
	ErrRenderFailed = errors.New("error generando la representación impresa")
	// ErrStatusNotSupported el provider configurado no implementa consulta de estado.
	ErrStatusNotSupported = errors.New("consulta de estado no soportada por el provider")

	// ErrInvalidInput entrada inválida en el borde HTTP (cuerpo o parámetros).
	ErrInvalidInput = errors.New("entrada inválida")
)

// ValidationError transporta las razones bloqueantes de una validación local.
// errors.Is(err, ErrValidationFailed) lo reconoce.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return ErrValidationFailed.Error() + ": " + strings.Join(e.Reasons, "; ")
}

// Unwrap permite clasificar el error con errors.Is sin perder las razones.
func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// NewValidationError construye un ValidationError a partir de las razones bloqueantes.
func NewValidationError(reasons ...string) *ValidationError {
	return &ValidationError{Reasons: reasons}
}
