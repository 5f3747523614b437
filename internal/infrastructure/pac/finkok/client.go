// Package finkok implementa el puerto PACProvider contra el WS SOAP de
// Finkok. Dialecto: XML del CFDI en base64 dentro del envelope, credenciales
// embebidas en el cuerpo de cada operación (sin token previo).
//
// Este dialecto no ofrece consulta de estado propia, por lo que el cliente
// NO implementa la capacidad StatusChecker.
package finkok

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/cfdi"
	pkgcfdi "github.com/jhoicas/facturacion-api/pkg/cfdi"
)

// ── Constantes de entorno ──────────────────────────────────────────────────────

const (
	stampURLTest = "http://demo-facturacion.finkok.com/servicios/soap/stamp"
	stampURLProd = "https://facturacion.finkok.com/servicios/soap/stamp"

	cancelURLTest = "http://demo-facturacion.finkok.com/servicios/soap/cancel"
	cancelURLProd = "https://facturacion.finkok.com/servicios/soap/cancel"

	soapNS         = "http://schemas.xmlsoap.org/soap/envelope/"
	finkokStampNS  = "http://facturacion.finkok.com/stamp"
	finkokCancelNS = "http://facturacion.finkok.com/cancel"
)

// Códigos de respuesta Finkok relevantes para la clasificación de errores.
const (
	// codYaTimbrado el CFDI ya fue timbrado previamente (folio fiscal existente).
	codYaTimbrado = "307"
	// estatusCancelado solicitud de cancelación aceptada.
	estatusCancelado = "201"
	// estatusPreviamenteCancelado el UUID ya estaba cancelado.
	estatusPreviamenteCancelado = "202"
	// estatusNoCorresponde el UUID no corresponde al emisor.
	estatusNoCorresponde = "203"
	// estatusNoExiste el UUID no existe ante el SAT.
	estatusNoExiste = "205"
)

// Config credenciales y selección de ambiente del adaptador.
type Config struct {
	User       string
	Password   string
	EmitterRFC string // RFC del emisor registrado en la cuenta (taxpayer_id en cancelación)
	Env        string // "test" | "prod"
	// Overrides de endpoint para tests contra un servidor local.
	StampURL  string
	CancelURL string
}

// Client implementa timbrado.PACProvider usando el WS SOAP de Finkok.
// Usa net/http de la stdlib; no requiere librerías SOAP de terceros.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// NewClient construye el cliente con un timeout de red generoso (60 s),
// ya que el WS puede tardar varios segundos bajo carga.
func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		cfg:        cfg,
	}
}

// Name identificador del provider para logs y configuración.
func (c *Client) Name() string { return "finkok" }

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name `xml:"s:Envelope"`
	XmlnsS  string   `xml:"xmlns:s,attr"`
	Body    soapBody `xml:"s:Body"`
}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "s:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// stampBody cuerpo de la operación stamp: CFDI en base64 + credenciales.
type stampBody struct {
	XMLName  xml.Name `xml:"stamp"`
	Xmlns    string   `xml:"xmlns,attr"`
	XML      string   `xml:"xml"` // CFDI sellado por el emisor, en Base64
	Username string   `xml:"username"`
	Password string   `xml:"password"`
}

// cancelBody cuerpo de la operación cancel (un solo folio por llamada).
type cancelBody struct {
	XMLName          xml.Name `xml:"cancel"`
	Xmlns            string   `xml:"xmlns,attr"`
	UUID             string   `xml:"UUIDS>uuid"`
	Username         string   `xml:"username"`
	Password         string   `xml:"password"`
	TaxpayerID       string   `xml:"taxpayer_id"` // RFC del emisor
	Motivo           string   `xml:"motivo"`
	FolioSustitucion string   `xml:"folioSustitucion,omitempty"`
}

// ── Estructuras de respuesta SOAP ─────────────────────────────────────────────

type stampResponseEnvelope struct {
	Result *stampResult `xml:"Body>stampResponse>stampResult"`
	Fault  *soapFault   `xml:"Body>Fault"`
}

type stampResult struct {
	XMLTimbrado      string       `xml:"xml"`
	UUID             string       `xml:"UUID"`
	Fecha            string       `xml:"Fecha"`
	CodEstatus       string       `xml:"CodEstatus"`
	SatSeal          string       `xml:"SatSeal"`
	NoCertificadoSAT string       `xml:"NoCertificadoSAT"`
	Incidencias      []incidencia `xml:"Incidencias>Incidencia"`
}

type incidencia struct {
	Codigo  string `xml:"CodigoError"`
	Mensaje string `xml:"MensajeIncidencia"`
}

type cancelResponseEnvelope struct {
	Result *cancelResult `xml:"Body>cancelResponse>cancelResult"`
	Fault  *soapFault    `xml:"Body>Fault"`
}

type cancelResult struct {
	Acuse  string        `xml:"Acuse"`
	Fecha  string        `xml:"Fecha"`
	Folios []cancelFolio `xml:"Folios>Folio"`
}

type cancelFolio struct {
	UUID        string `xml:"UUID"`
	EstatusUUID string `xml:"EstatusUUID"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// ── Stamp ─────────────────────────────────────────────────────────────────────

// Stamp envía el CFDI al WS de Finkok y devuelve el documento timbrado.
func (c *Client) Stamp(ctx context.Context, xmlCFDI string) (*cfdi.SealedDocument, error) {
	body := &stampBody{
		Xmlns:    finkokStampNS,
		XML:      base64.StdEncoding.EncodeToString([]byte(xmlCFDI)),
		Username: c.cfg.User,
		Password: c.cfg.Password,
	}

	raw, err := c.call(ctx, c.stampURL(), body)
	if err != nil {
		return nil, err
	}

	var envResp stampResponseEnvelope
	if err := xml.Unmarshal(raw, &envResp); err != nil {
		return nil, fmt.Errorf("%w: respuesta SOAP ilegible: %v", domain.ErrStampingRejected, err)
	}
	if envResp.Fault != nil {
		return nil, classifyFault(envResp.Fault)
	}
	result := envResp.Result
	if result == nil {
		return nil, fmt.Errorf("%w: respuesta SOAP vacía o inesperada", domain.ErrStampingRejected)
	}

	if len(result.Incidencias) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrStampingRejected, joinIncidencias(result.Incidencias))
	}

	// Respuesta sin incidencias pero sin XML o sin UUID: resultado parcial,
	// nunca se acepta.
	if result.XMLTimbrado == "" || result.UUID == "" {
		return nil, fmt.Errorf("%w: respuesta sin incidencias pero incompleta (CodEstatus: %s)",
			domain.ErrStampingRejected, result.CodEstatus)
	}

	sealed, err := cfdi.ParseSealed(result.XMLTimbrado)
	if err != nil {
		return nil, fmt.Errorf("%w: XML timbrado inconsistente: %v", domain.ErrStampingRejected, err)
	}
	if !strings.EqualFold(sealed.UUID, result.UUID) {
		return nil, fmt.Errorf("%w: el UUID del TFD (%s) no coincide con el de la respuesta (%s)",
			domain.ErrStampingRejected, sealed.UUID, result.UUID)
	}
	return sealed, nil
}

// ── Cancel ────────────────────────────────────────────────────────────────────

// Cancel solicita la cancelación del folio fiscal ante el SAT vía Finkok.
func (c *Client) Cancel(ctx context.Context, req cfdi.CancellationRequest) (*cfdi.CancellationResult, error) {
	body := &cancelBody{
		Xmlns:            finkokCancelNS,
		UUID:             req.UUID,
		Username:         c.cfg.User,
		Password:         c.cfg.Password,
		TaxpayerID:       c.cfg.EmitterRFC,
		Motivo:           req.Motivo,
		FolioSustitucion: req.FolioSustitucion,
	}

	raw, err := c.call(ctx, c.cancelURL(), body)
	if err != nil {
		return nil, err
	}

	var envResp cancelResponseEnvelope
	if err := xml.Unmarshal(raw, &envResp); err != nil {
		return nil, fmt.Errorf("%w: respuesta SOAP ilegible: %v", domain.ErrStampingRejected, err)
	}
	if envResp.Fault != nil {
		return nil, classifyFault(envResp.Fault)
	}
	result := envResp.Result
	if result == nil || len(result.Folios) == 0 {
		return nil, fmt.Errorf("%w: respuesta de cancelación vacía o inesperada", domain.ErrStampingRejected)
	}

	folio := result.Folios[0]
	switch folio.EstatusUUID {
	case estatusCancelado:
		fecha, _ := time.ParseInLocation("2006-01-02T15:04:05", result.Fecha, time.Local)
		if fecha.IsZero() {
			fecha = time.Now()
		}
		estado := pkgcfdi.EstadoCancelado
		if result.Acuse == "" {
			// el SAT puede demorar el acuse; la solicitud quedó registrada
			estado = pkgcfdi.EstadoPendiente
		}
		return &cfdi.CancellationResult{
			Success: true,
			Acuse:   result.Acuse,
			Estado:  estado,
			Fecha:   fecha,
		}, nil
	case estatusPreviamenteCancelado:
		return nil, fmt.Errorf("%w: el folio %s ya estaba cancelado (estatus %s)",
			domain.ErrAlreadyCancelled, folio.UUID, folio.EstatusUUID)
	case estatusNoCorresponde, estatusNoExiste:
		return nil, fmt.Errorf("%w: cancelación rechazada para %s (estatus %s)",
			domain.ErrStampingRejected, folio.UUID, folio.EstatusUUID)
	default:
		return nil, fmt.Errorf("%w: estatus de cancelación desconocido %q",
			domain.ErrStampingRejected, folio.EstatusUUID)
	}
}

// ── transporte ────────────────────────────────────────────────────────────────

// call serializa el envelope, ejecuta el POST y clasifica los fallos de
// transporte. Toda salida anómala se traduce a la taxonomía del dominio.
func (c *Client) call(ctx context.Context, url string, content interface{}) ([]byte, error) {
	envelope := soapEnvelope{
		XmlnsS: soapNS,
		Body:   soapBody{Content: content},
	}
	payload, err := xml.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: serializar envelope: %v", domain.ErrStampingRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: crear request: %v", domain.ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout o cancelación: %v", domain.ErrProviderUnavailable, ctx.Err())
		}
		return nil, fmt.Errorf("%w: llamada HTTP fallida: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20)) // max 4 MB
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta: %v", domain.ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d del WS Finkok", domain.ErrAuthenticationFailed, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d del WS Finkok", domain.ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d del WS Finkok", domain.ErrStampingRejected, resp.StatusCode)
	}
	return raw, nil
}

// classifyFault un Fault de autenticación se distingue del resto por el texto,
// que es lo único que el WS expone.
func classifyFault(f *soapFault) error {
	msg := strings.ToLower(f.FaultString)
	if strings.Contains(msg, "auth") || strings.Contains(msg, "password") || strings.Contains(msg, "username") {
		return fmt.Errorf("%w: SOAP Fault [%s]: %s", domain.ErrAuthenticationFailed, f.FaultCode, f.FaultString)
	}
	return fmt.Errorf("%w: SOAP Fault [%s]: %s", domain.ErrStampingRejected, f.FaultCode, f.FaultString)
}

func joinIncidencias(incs []incidencia) string {
	parts := make([]string, 0, len(incs))
	for _, inc := range incs {
		if inc.Codigo == codYaTimbrado {
			parts = append(parts, fmt.Sprintf("[%s] comprobante previamente timbrado: %s", inc.Codigo, inc.Mensaje))
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", inc.Codigo, inc.Mensaje))
	}
	return strings.Join(parts, "; ")
}

func (c *Client) stampURL() string {
	if c.cfg.StampURL != "" {
		return c.cfg.StampURL
	}
	if c.cfg.Env == "prod" {
		return stampURLProd
	}
	return stampURLTest
}

func (c *Client) cancelURL() string {
	if c.cfg.CancelURL != "" {
		return c.cfg.CancelURL
	}
	if c.cfg.Env == "prod" {
		return cancelURLProd
	}
	return cancelURLTest
}
