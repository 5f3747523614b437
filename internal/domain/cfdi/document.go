// Package cfdi modela el documento fiscal (CFDI 4.0) a lo largo del pipeline
// de timbrado: el XML sin timbrar que entrega el ensamblador, el documento
// sellado que devuelve el PAC y la solicitud/resultado de cancelación.
package cfdi

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgcfdi "github.com/jhoicas/facturacion-api/pkg/cfdi"
)

// UnsignedDocument es el CFDI ensamblado y sellado por el emisor, aún sin
// timbre del SAT. Inmutable una vez entregado a este núcleo.
type UnsignedDocument struct {
	Serie     string
	Folio     string
	XML       string // CFDI 4.0 completo, con sello del emisor
	CreatedAt time.Time
}

// SealedDocument es el CFDI después del timbrado: el documento original más
// el Timbre Fiscal Digital emitido por el SAT a través del PAC.
// Se crea exactamente una vez por timbrado exitoso y no se re-timbra.
type SealedDocument struct {
	UUID              string // folio fiscal, forma canónica de 36 caracteres
	FechaTimbrado     time.Time
	NoCertificadoSAT  string
	SelloSAT          string // sello digital del SAT (opaco)
	SelloCFD          string // sello digital del emisor (opaco)
	CadenaOriginalTFD string // cadena original del complemento de certificación
	RFCEmisor         string
	RFCReceptor       string
	Serie             string
	Folio             string
	Total             decimal.Decimal
	XMLTimbrado       string // CFDI con el complemento TFD incorporado
}

// Validate comprueba los invariantes mínimos de un documento timbrado.
// Un SealedDocument que no los cumple es una respuesta parcial del PAC y
// nunca debe aceptarse (contrato de los adaptadores: jamás un resultado
// incompleto).
func (d *SealedDocument) Validate() error {
	if !IsCanonicalUUID(d.UUID) {
		return fmt.Errorf("cfdi: folio fiscal %q no tiene forma canónica de 36 caracteres", d.UUID)
	}
	if d.SelloSAT == "" {
		return fmt.Errorf("cfdi: SelloSAT vacío en documento timbrado %s", d.UUID)
	}
	if d.SelloCFD == "" {
		return fmt.Errorf("cfdi: SelloCFD vacío en documento timbrado %s", d.UUID)
	}
	if d.FechaTimbrado.IsZero() {
		return fmt.Errorf("cfdi: FechaTimbrado ausente en documento timbrado %s", d.UUID)
	}
	return nil
}

// CancellationRequest solicitud de cancelación de un CFDI ya timbrado.
type CancellationRequest struct {
	UUID             string // folio fiscal a cancelar
	Motivo           string // catálogo c_MotivoCancelacion (01–04)
	FolioSustitucion string // obligatorio solo con motivo 01
}

// Validate comprueba la solicitud antes de tocar la red.
func (r *CancellationRequest) Validate() error {
	if !IsCanonicalUUID(r.UUID) {
		return fmt.Errorf("cfdi: UUID a cancelar %q no tiene forma canónica", r.UUID)
	}
	if !pkgcfdi.ValidCancellationReasons[r.Motivo] {
		return fmt.Errorf("cfdi: motivo de cancelación %q fuera del catálogo (01–04)", r.Motivo)
	}
	if pkgcfdi.ReasonRequiresSubstitute(r.Motivo) {
		if !IsCanonicalUUID(r.FolioSustitucion) {
			return fmt.Errorf("cfdi: el motivo %s exige un folio de sustitución canónico", r.Motivo)
		}
		if equalUUID(r.FolioSustitucion, r.UUID) {
			return fmt.Errorf("cfdi: el folio de sustitución no puede ser el mismo CFDI cancelado")
		}
	} else if r.FolioSustitucion != "" {
		return fmt.Errorf("cfdi: el motivo %s no admite folio de sustitución", r.Motivo)
	}
	return nil
}

// CancellationResult resultado de una cancelación aceptada por el PAC.
type CancellationResult struct {
	Success bool
	Acuse   string // recibo opaco del SAT (XML del acuse)
	Estado  string // vigente | cancelado | pendiente
	Fecha   time.Time
}

// ValidationResult resultado de la validación local de un CFDI.
// Errores bloquea el timbrado; Advertencias no.
type ValidationResult struct {
	Valida       bool
	Errores      []string
	Advertencias []string
}

func (r *ValidationResult) addError(format string, args ...interface{}) {
	r.Errores = append(r.Errores, fmt.Sprintf(format, args...))
	r.Valida = false
}

func (r *ValidationResult) addWarning(format string, args ...interface{}) {
	r.Advertencias = append(r.Advertencias, fmt.Sprintf(format, args...))
}

// IsCanonicalUUID indica si s es un folio fiscal en forma canónica:
// 36 caracteres con guiones, parseable como UUID.
func IsCanonicalUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func equalUUID(a, b string) bool {
	ua, errA := uuid.Parse(a)
	ub, errB := uuid.Parse(b)
	return errA == nil && errB == nil && ua == ub
}
