package cfdi

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// satTimeLayout formato de fecha del SAT en el CFDI y el TFD (hora local, sin zona).
const satTimeLayout = "2006-01-02T15:04:05"

// ParseSealed extrae el SealedDocument de un CFDI timbrado (XML con el
// complemento TimbreFiscalDigital incorporado). Es el camino común de los
// adaptadores PAC: cada dialecto devuelve el XML timbrado y de ahí salen los
// campos canónicos, en lugar de confiar en los campos sueltos de cada
// respuesta propietaria.
func ParseSealed(xmlTimbrado string) (*SealedDocument, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlTimbrado); err != nil {
		return nil, fmt.Errorf("cfdi: XML timbrado malformado: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Comprobante" {
		return nil, fmt.Errorf("cfdi: el XML timbrado no es un Comprobante")
	}

	total, err := decimal.NewFromString(root.SelectAttrValue("Total", ""))
	if err != nil {
		return nil, fmt.Errorf("cfdi: Total ilegible en el XML timbrado: %w", err)
	}

	sealed := &SealedDocument{
		Serie:       root.SelectAttrValue("Serie", ""),
		Folio:       root.SelectAttrValue("Folio", ""),
		Total:       total,
		XMLTimbrado: xmlTimbrado,
	}

	if emisor := childByTag(root, "Emisor"); emisor != nil {
		sealed.RFCEmisor = emisor.SelectAttrValue("Rfc", "")
	}
	if receptor := childByTag(root, "Receptor"); receptor != nil {
		sealed.RFCReceptor = receptor.SelectAttrValue("Rfc", "")
	}
	if sealed.RFCEmisor == "" || sealed.RFCReceptor == "" {
		return nil, fmt.Errorf("cfdi: XML timbrado sin RFC de emisor o receptor")
	}

	complemento := childByTag(root, "Complemento")
	if complemento == nil {
		return nil, fmt.Errorf("cfdi: XML timbrado sin nodo Complemento")
	}
	timbre := childByTag(complemento, "TimbreFiscalDigital")
	if timbre == nil {
		return nil, fmt.Errorf("cfdi: XML timbrado sin TimbreFiscalDigital")
	}

	sealed.UUID = strings.ToUpper(timbre.SelectAttrValue("UUID", ""))
	sealed.SelloSAT = timbre.SelectAttrValue("SelloSAT", "")
	sealed.SelloCFD = timbre.SelectAttrValue("SelloCFD", "")
	sealed.NoCertificadoSAT = timbre.SelectAttrValue("NoCertificadoSAT", "")

	rawFecha := timbre.SelectAttrValue("FechaTimbrado", "")
	fecha, err := time.ParseInLocation(satTimeLayout, rawFecha, time.Local)
	if err != nil {
		return nil, fmt.Errorf("cfdi: FechaTimbrado %q ilegible: %w", rawFecha, err)
	}
	sealed.FechaTimbrado = fecha

	// El timbrado ocurre después de la emisión del comprobante.
	if rawEmision := root.SelectAttrValue("Fecha", ""); rawEmision != "" {
		emision, err := time.ParseInLocation(satTimeLayout, rawEmision, time.Local)
		if err == nil && fecha.Before(emision) {
			return nil, fmt.Errorf("cfdi: FechaTimbrado (%s) anterior a la Fecha de emisión (%s)",
				rawFecha, rawEmision)
		}
	}

	// Cadena original del complemento de certificación, en el orden fijado
	// por el anexo del TFD 1.1.
	sealed.CadenaOriginalTFD = fmt.Sprintf("||%s|%s|%s|%s|%s|%s||",
		timbre.SelectAttrValue("Version", "1.1"),
		sealed.UUID,
		rawFecha,
		timbre.SelectAttrValue("RfcProvCertif", ""),
		sealed.SelloCFD,
		sealed.NoCertificadoSAT,
	)

	if err := sealed.Validate(); err != nil {
		return nil, err
	}
	return sealed, nil
}
