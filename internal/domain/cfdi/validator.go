package cfdi

import (
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	pkgcfdi "github.com/jhoicas/facturacion-api/pkg/cfdi"
)

// plausibleCurrency forma de un código de moneda ISO 4217 (tres letras mayúsculas).
var plausibleCurrency = regexp.MustCompile(`^[A-Z]{3}$`)

// Validate valida la estructura y reglas de negocio de un CFDI sin timbrar.
// Función pura: nunca hace red ni panics; el XML malformado se reporta como
// error de validación, no como fallo de runtime.
func Validate(xmlDocument string) ValidationResult {
	result := ValidationResult{Valida: true}

	comprobante, ok := parseComprobante(xmlDocument, &result)
	if !ok {
		return result
	}

	validateScalars(comprobante, &result)
	validateSections(comprobante, &result)
	validateParties(comprobante, &result)
	validateAmounts(comprobante, &result)
	validateCurrency(comprobante, &result)

	return result
}

// ValidateSealed valida un CFDI ya timbrado: todas las reglas de Validate más
// el complemento de certificación. La ausencia del complemento es solo
// advertencia (el documento puede estar legítimamente pre-timbrado); un folio
// fiscal malformado dentro del complemento sí es bloqueante.
func ValidateSealed(xmlDocument string) ValidationResult {
	result := ValidationResult{Valida: true}

	comprobante, ok := parseComprobante(xmlDocument, &result)
	if !ok {
		return result
	}

	validateScalars(comprobante, &result)
	validateSections(comprobante, &result)
	validateParties(comprobante, &result)
	validateAmounts(comprobante, &result)
	validateCurrency(comprobante, &result)
	validateTimbre(comprobante, &result)

	return result
}

// ── parsing ───────────────────────────────────────────────────────────────────

// parseComprobante parsea el XML y devuelve el nodo raíz Comprobante.
// Malformado o raíz inesperada = error bloqueante que corta el resto de chequeos.
func parseComprobante(xmlDocument string, result *ValidationResult) (*etree.Element, bool) {
	if strings.TrimSpace(xmlDocument) == "" {
		result.addError("documento vacío")
		return nil, false
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlDocument); err != nil {
		result.addError("XML malformado: %v", err)
		return nil, false
	}
	root := doc.Root()
	if root == nil {
		result.addError("XML sin elemento raíz")
		return nil, false
	}
	if root.Tag != "Comprobante" {
		result.addError("elemento raíz %q inesperado, se esperaba cfdi:Comprobante", root.Tag)
		return nil, false
	}
	return root, true
}

// ── reglas ────────────────────────────────────────────────────────────────────

// validateScalars atributos escalares obligatorios del Comprobante.
func validateScalars(c *etree.Element, result *ValidationResult) {
	version := c.SelectAttrValue("Version", "")
	switch version {
	case "":
		result.addError("atributo Version ausente en el Comprobante")
	case pkgcfdi.CFDIVersion:
	default:
		result.addError("Version %q no soportada, este sistema timbra CFDI %s", version, pkgcfdi.CFDIVersion)
	}

	if c.SelectAttrValue("Fecha", "") == "" {
		result.addError("atributo Fecha ausente en el Comprobante")
	}

	tipo := c.SelectAttrValue("TipoDeComprobante", "")
	if tipo == "" {
		result.addError("atributo TipoDeComprobante ausente en el Comprobante")
	} else if !pkgcfdi.ValidComprobanteTypes[tipo] {
		result.addError("TipoDeComprobante %q fuera del catálogo", tipo)
	}
}

// validateSections presencia de las tres secciones obligatorias.
func validateSections(c *etree.Element, result *ValidationResult) {
	if childByTag(c, "Emisor") == nil {
		result.addError("sección obligatoria Emisor ausente")
	}
	if childByTag(c, "Receptor") == nil {
		result.addError("sección obligatoria Receptor ausente")
	}
	conceptos := childByTag(c, "Conceptos")
	if conceptos == nil {
		result.addError("sección obligatoria Conceptos ausente")
		return
	}
	if len(childrenByTag(conceptos, "Concepto")) == 0 {
		result.addError("el comprobante debe tener al menos un Concepto")
	}
}

// validateParties forma legal del RFC de emisor y receptor.
func validateParties(c *etree.Element, result *ValidationResult) {
	if emisor := childByTag(c, "Emisor"); emisor != nil {
		if err := pkgcfdi.ValidateRFC(emisor.SelectAttrValue("Rfc", "")); err != nil {
			result.addError("emisor: %v", err)
		}
	}
	if receptor := childByTag(c, "Receptor"); receptor != nil {
		if err := pkgcfdi.ValidateRFC(receptor.SelectAttrValue("Rfc", "")); err != nil {
			result.addError("receptor: %v", err)
		}
	}
}

// validateAmounts SubTotal y Total presentes, numéricos y no negativos,
// y coherencia Total = SubTotal − Descuento + Impuestos cuando los datos alcanzan.
func validateAmounts(c *etree.Element, result *ValidationResult) {
	subTotal, okSub := requireAmount(c, "SubTotal", result)
	total, okTot := requireAmount(c, "Total", result)
	if !okSub || !okTot {
		return
	}

	descuento := decimal.Zero
	if raw := c.SelectAttrValue("Descuento", ""); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			result.addError("Descuento %q no es un importe válido", raw)
			return
		}
		descuento = d
	}

	// La coherencia aritmética solo puede comprobarse si el nodo Impuestos
	// trae el total de traslados; si no está, no se inventa un cero.
	impuestos := childByTag(c, "Impuestos")
	if impuestos == nil {
		return
	}
	rawTraslados := impuestos.SelectAttrValue("TotalImpuestosTrasladados", "")
	if rawTraslados == "" {
		return
	}
	traslados, err := decimal.NewFromString(rawTraslados)
	if err != nil {
		result.addError("TotalImpuestosTrasladados %q no es un importe válido", rawTraslados)
		return
	}
	if traslados.IsNegative() {
		result.addError("TotalImpuestosTrasladados no puede ser negativo (%s)", traslados)
		return
	}
	expected := subTotal.Sub(descuento).Add(traslados)
	if !total.Equal(expected) {
		result.addError("Total (%s) no coincide con SubTotal − Descuento + Impuestos (%s)",
			total, expected)
	}
}

// validateCurrency Moneda contra el catálogo reconocido.
// Moneda plausible pero fuera del catálogo = advertencia, no bloqueo.
func validateCurrency(c *etree.Element, result *ValidationResult) {
	moneda := c.SelectAttrValue("Moneda", "")
	if moneda == "" {
		result.addError("atributo Moneda ausente en el Comprobante")
		return
	}
	if pkgcfdi.RecognizedCurrencies[moneda] {
		return
	}
	if plausibleCurrency.MatchString(moneda) {
		result.addWarning("Moneda %q fuera del catálogo operativo, verificar contra c_Moneda", moneda)
		return
	}
	result.addError("Moneda %q no tiene forma de código ISO 4217", moneda)
}

// validateTimbre complemento TimbreFiscalDigital (solo en ValidateSealed).
func validateTimbre(c *etree.Element, result *ValidationResult) {
	complemento := childByTag(c, "Complemento")
	var timbre *etree.Element
	if complemento != nil {
		timbre = childByTag(complemento, "TimbreFiscalDigital")
	}
	if timbre == nil {
		result.addWarning("complemento TimbreFiscalDigital ausente: el documento aún no está timbrado")
		return
	}
	if u := timbre.SelectAttrValue("UUID", ""); !IsCanonicalUUID(u) {
		result.addError("UUID %q del TimbreFiscalDigital no tiene forma canónica de 36 caracteres", u)
	}
	if timbre.SelectAttrValue("SelloSAT", "") == "" {
		result.addError("SelloSAT vacío en el TimbreFiscalDigital")
	}
	if timbre.SelectAttrValue("SelloCFD", "") == "" {
		result.addError("SelloCFD vacío en el TimbreFiscalDigital")
	}

	// El timbrado ocurre después de la emisión: un FechaTimbrado anterior a la
	// Fecha del Comprobante es un timbre inconsistente, tan bloqueante como un
	// UUID malformado.
	fecha, errFecha := time.ParseInLocation(satTimeLayout, c.SelectAttrValue("Fecha", ""), time.Local)
	rawTimbrado := timbre.SelectAttrValue("FechaTimbrado", "")
	fechaTimbrado, errTimbrado := time.ParseInLocation(satTimeLayout, rawTimbrado, time.Local)
	if errTimbrado != nil {
		result.addError("FechaTimbrado %q del TimbreFiscalDigital ilegible", rawTimbrado)
		return
	}
	if errFecha == nil && fechaTimbrado.Before(fecha) {
		result.addError("FechaTimbrado (%s) anterior a la Fecha de emisión (%s)",
			fechaTimbrado.Format(satTimeLayout), fecha.Format(satTimeLayout))
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func requireAmount(c *etree.Element, attr string, result *ValidationResult) (decimal.Decimal, bool) {
	raw := c.SelectAttrValue(attr, "")
	if raw == "" {
		result.addError("atributo %s ausente en el Comprobante", attr)
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		result.addError("%s %q no es un importe válido", attr, raw)
		return decimal.Zero, false
	}
	if d.IsNegative() {
		result.addError("%s no puede ser negativo (%s)", attr, d)
		return decimal.Zero, false
	}
	return d, true
}

// childByTag busca el primer hijo directo con ese nombre local, ignorando el
// prefijo de namespace (cfdi:, tfd:, o ninguno).
func childByTag(e *etree.Element, tag string) *etree.Element {
	for _, child := range e.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

func childrenByTag(e *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, child := range e.ChildElements() {
		if child.Tag == tag {
			out = append(out, child)
		}
	}
	return out
}
