package cfdi

import (
	"fmt"
	"regexp"
	"strings"
)

// RFCs genéricos reconocidos por el SAT (Anexo 20).
// XAXX: público en general / nacional sin RFC. XEXX: residente en el extranjero.
const (
	RFCGenericoNacional   = "XAXX010101000"
	RFCGenericoExtranjero = "XEXX010101000"
)

// Formas legales del RFC (Anexo 20, regla de estructura):
// persona moral  = 3 letras + 6 dígitos de fecha + 3 de homoclave (12).
// persona física = 4 letras + 6 dígitos de fecha + 3 de homoclave (13).
var (
	rfcMoralPattern  = regexp.MustCompile(`^[A-ZÑ&]{3}[0-9]{6}[A-Z0-9]{3}$`)
	rfcFisicaPattern = regexp.MustCompile(`^[A-ZÑ&]{4}[0-9]{6}[A-Z0-9]{3}$`)
)

// ValidateRFC valida que el RFC (con o sin espacios, en cualquier caja) tenga
// una de las dos formas legales o sea uno de los dos genéricos.
// No consulta el padrón del SAT: es una regla de forma, igual que la valida el PAC.
func ValidateRFC(rfc string) error {
	normalized := NormalizeRFC(rfc)
	if normalized == "" {
		return fmt.Errorf("cfdi: RFC vacío")
	}
	if normalized == RFCGenericoNacional || normalized == RFCGenericoExtranjero {
		return nil
	}
	// longitud en runas: la Ñ ocupa dos bytes pero cuenta como un carácter
	switch length := len([]rune(normalized)); length {
	case 12:
		if !rfcMoralPattern.MatchString(normalized) {
			return fmt.Errorf("cfdi: RFC %q no cumple la forma de persona moral", normalized)
		}
	case 13:
		if !rfcFisicaPattern.MatchString(normalized) {
			return fmt.Errorf("cfdi: RFC %q no cumple la forma de persona física", normalized)
		}
	default:
		return fmt.Errorf("cfdi: RFC %q debe tener 12 o 13 caracteres, tiene %d", normalized, length)
	}
	return nil
}

// IsGenericRFC indica si el RFC es uno de los dos genéricos del SAT.
func IsGenericRFC(rfc string) bool {
	n := NormalizeRFC(rfc)
	return n == RFCGenericoNacional || n == RFCGenericoExtranjero
}

// NormalizeRFC quita espacios y guiones y pasa a mayúsculas,
// que es la forma en que el RFC viaja en el XML del CFDI.
func NormalizeRFC(rfc string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t':
			return -1
		}
		return r
	}, rfc)
	return strings.ToUpper(strings.TrimSpace(cleaned))
}
