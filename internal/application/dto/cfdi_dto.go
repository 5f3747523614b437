package dto

// ── Timbrado ──────────────────────────────────────────────────────────────────

// TimbrarRequest CFDI sellado por el emisor, listo para enviar al PAC.
type TimbrarRequest struct {
	Serie string `json:"serie"`
	Folio string `json:"folio"`
	XML   string `json:"xml" validate:"required"`
}

// TimbradoResponse resultado de un timbrado exitoso.
type TimbradoResponse struct {
	UUID             string   `json:"uuid"`
	FechaTimbrado    string   `json:"fecha_timbrado"`
	Serie            string   `json:"serie,omitempty"`
	Folio            string   `json:"folio,omitempty"`
	RFCEmisor        string   `json:"rfc_emisor"`
	RFCReceptor      string   `json:"rfc_receptor"`
	Total            string   `json:"total"`
	NoCertificadoSAT string   `json:"no_certificado_sat"`
	SelloSAT         string   `json:"sello_sat"`
	XMLTimbrado      string   `json:"xml_timbrado"`
	URLVerificacion  string   `json:"url_verificacion"`
	Advertencias     []string `json:"advertencias,omitempty"`
}

// ── Cancelación ───────────────────────────────────────────────────────────────

// CancelarRequest motivo de cancelación; el UUID viaja en la ruta.
type CancelarRequest struct {
	Motivo           string `json:"motivo" validate:"required"`
	FolioSustitucion string `json:"folio_sustitucion,omitempty"`
}

// CancelacionResponse resultado de la solicitud de cancelación.
// YaCancelado distingue la señal idempotente: el folio ya estaba cancelado y
// la solicitud no tuvo efecto adicional.
type CancelacionResponse struct {
	UUID        string `json:"uuid"`
	Cancelado   bool   `json:"cancelado"`
	YaCancelado bool   `json:"ya_cancelado,omitempty"`
	Estado      string `json:"estado"`
	Acuse       string `json:"acuse,omitempty"`
	Fecha       string `json:"fecha,omitempty"`
}

// ── Consulta de estado ────────────────────────────────────────────────────────

// EstadoResponse estado del CFDI ante el SAT.
type EstadoResponse struct {
	UUID   string `json:"uuid"`
	Estado string `json:"estado"`
}

// ── Validación local ──────────────────────────────────────────────────────────

// ValidarRequest CFDI a validar localmente, sin contactar al PAC.
type ValidarRequest struct {
	XML string `json:"xml" validate:"required"`
}

// ValidacionResponse reporte completo de la validación local.
type ValidacionResponse struct {
	Valida       bool     `json:"valida"`
	Errores      []string `json:"errores,omitempty"`
	Advertencias []string `json:"advertencias,omitempty"`
}

// ── Representación impresa ────────────────────────────────────────────────────

// PDFRequest XML timbrado del que se genera la representación impresa.
type PDFRequest struct {
	XMLTimbrado string `json:"xml_timbrado" validate:"required"`
}
