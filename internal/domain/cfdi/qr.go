package cfdi

import (
	"fmt"
)

// verificationHost portal público de verificación de comprobantes del SAT.
// La plantilla de parámetros (id/re/rr/tt/fe) es fija y externa: no alterarla.
const verificationHost = "https://verificacfdi.facturaelectronica.sat.gob.mx"

// selloFragmentLen últimos caracteres del sello SAT que viajan en el parámetro fe.
const selloFragmentLen = 8

// BuildVerificationURL construye la URL de verificación del SAT para un CFDI
// timbrado. Construcción determinista y pura: el mismo documento produce
// siempre la misma URL byte a byte. El total viaja con exactamente seis
// decimales y fe son los últimos ocho caracteres del sello del SAT.
//
// Un sello de menos de ocho caracteres se rechaza: indica una respuesta
// corrupta del PAC y una URL construida con él no verificaría nunca.
func BuildVerificationURL(d *SealedDocument) (string, error) {
	if d == nil {
		return "", fmt.Errorf("cfdi: documento timbrado nulo")
	}
	if !IsCanonicalUUID(d.UUID) {
		return "", fmt.Errorf("cfdi: folio fiscal %q no tiene forma canónica", d.UUID)
	}
	if len(d.SelloSAT) < selloFragmentLen {
		return "", fmt.Errorf("cfdi: SelloSAT con %d caracteres, se requieren al menos %d",
			len(d.SelloSAT), selloFragmentLen)
	}
	if d.RFCEmisor == "" || d.RFCReceptor == "" {
		return "", fmt.Errorf("cfdi: RFC de emisor y receptor son obligatorios para la URL de verificación")
	}

	return fmt.Sprintf("%s/default.aspx?&id=%s&re=%s&rr=%s&tt=%s&fe=%s",
		verificationHost,
		d.UUID,
		d.RFCEmisor,
		d.RFCReceptor,
		d.Total.StringFixed(6),
		d.SelloSAT[len(d.SelloSAT)-selloFragmentLen:],
	), nil
}
