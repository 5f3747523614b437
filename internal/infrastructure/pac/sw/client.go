// Package sw implementa el puerto PACProvider contra la API REST de SW
// (SmarterWeb). Dialecto: autenticación previa que entrega un token de vida
// limitada, y operaciones JSON con Authorization: Bearer sobre rutas
// versionadas.
//
// A diferencia del dialecto SOAP, este provider sí ofrece consulta de estado
// ante el SAT, por lo que el cliente implementa además StatusChecker.
package sw

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/cfdi"
	pkgcfdi "github.com/jhoicas/facturacion-api/pkg/cfdi"
)

// ── Constantes de entorno ──────────────────────────────────────────────────────

const (
	baseURLTest = "https://services.test.sw.com.mx"
	baseURLProd = "https://services.sw.com.mx"

	pathAuth   = "/security/authenticate"
	pathStamp  = "/cfdi33/stamp/v4/b64"
	pathCancel = "/cfdi33/cancel/csd"
	pathStatus = "/cfdi33/validate/status"

	statusSuccess = "success"
)

// Códigos de cancelación del dialecto, alineados a los estatus del SAT.
const (
	cancelAceptada             = "201"
	cancelPreviamenteCancelado = "202"
	cancelNoCorresponde        = "203"
	cancelNoExiste             = "205"
)

// Config credenciales y selección de ambiente del adaptador.
type Config struct {
	User       string
	Password   string
	EmitterRFC string // RFC del emisor registrado en la cuenta
	Env        string // "test" | "prod"
	// Override de base para tests contra un servidor local.
	BaseURL string
	// AuthURL override independiente; si está vacío se deriva de BaseURL.
	AuthURL string
}

// Client implementa timbrado.PACProvider y timbrado.StatusChecker usando la
// API REST de SW. El token de autenticación vive en un tokenCache propio de
// la instancia.
type Client struct {
	httpClient *http.Client
	cfg        Config
	tokens     *tokenCache
	log        zerolog.Logger
}

// NewClient construye el cliente con timeout de red generoso (60 s) y un
// cache de token vacío; la primera operación dispara la autenticación.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		cfg:        cfg,
		log:        log,
	}
	c.tokens = newTokenCache(c.authenticate)
	return c
}

// Name identificador del provider para logs y configuración.
func (c *Client) Name() string { return "sw" }

// ── Estructuras JSON del dialecto ─────────────────────────────────────────────

type authResponse struct {
	Status string `json:"status"`
	Data   struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"` // segundos; 0 = no informado
	} `json:"data"`
	Message string `json:"message"`
}

type stampRequest struct {
	XML string `json:"xml"` // CFDI sellado por el emisor, en Base64
}

type stampResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	MessageDetail string `json:"messageDetail"`
	Data          struct {
		CFDI string `json:"cfdi"` // XML timbrado, en Base64
	} `json:"data"`
}

type cancelRequest struct {
	UUID             string `json:"uuid"`
	RFC              string `json:"rfc"`
	Motivo           string `json:"motivo"`
	FolioSustitucion string `json:"folioSustitucion,omitempty"`
}

type cancelResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	MessageDetail string `json:"messageDetail"`
	Data          struct {
		Acuse       string `json:"acuse"`
		EstatusUUID string `json:"estatusUuid"`
	} `json:"data"`
}

type statusResponse struct {
	Status string `json:"status"`
	Data   struct {
		EstadoCFDI string `json:"estadoCfdi"` // "Vigente" | "Cancelado" | "No Encontrado"
	} `json:"data"`
}

// ── Autenticación ─────────────────────────────────────────────────────────────

// authenticate obtiene un token nuevo. Las credenciales viajan en headers,
// nunca en el cuerpo ni en la URL.
func (c *Client) authenticate(ctx context.Context) (credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL(), nil)
	if err != nil {
		return credential{}, fmt.Errorf("%w: crear request de autenticación: %v",
			domain.ErrProviderUnavailable, err)
	}
	req.Header.Set("user", c.cfg.User)
	req.Header.Set("password", c.cfg.Password)

	raw, status, err := c.do(req)
	if err != nil {
		return credential{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return credential{}, fmt.Errorf("%w: el PAC rechazó las credenciales (HTTP %d)",
			domain.ErrAuthenticationFailed, status)
	}
	if status >= 400 {
		return credential{}, fmt.Errorf("%w: autenticación HTTP %d", domain.ErrProviderUnavailable, status)
	}

	var resp authResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return credential{}, fmt.Errorf("%w: respuesta de autenticación ilegible: %v",
			domain.ErrProviderUnavailable, err)
	}
	if resp.Status != statusSuccess || resp.Data.Token == "" {
		return credential{}, fmt.Errorf("%w: autenticación rechazada: %s",
			domain.ErrAuthenticationFailed, resp.Message)
	}

	lifetime := defaultTokenLifetime
	if resp.Data.ExpiresIn > 0 {
		lifetime = time.Duration(resp.Data.ExpiresIn) * time.Second
	}
	now := time.Now()
	return credential{
		token:     resp.Data.Token,
		issuedAt:  now,
		expiresAt: now.Add(lifetime),
	}, nil
}

// ── Stamp ─────────────────────────────────────────────────────────────────────

// Stamp envía el CFDI en base64 a la ruta de timbrado y devuelve el documento
// timbrado extraído del XML de la respuesta.
func (c *Client) Stamp(ctx context.Context, xmlCFDI string) (*cfdi.SealedDocument, error) {
	payload := stampRequest{XML: base64.StdEncoding.EncodeToString([]byte(xmlCFDI))}

	raw, err := c.callAuthorized(ctx, http.MethodPost, c.baseURL()+pathStamp, payload)
	if err != nil {
		return nil, err
	}

	var resp stampResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: respuesta de timbrado ilegible: %v", domain.ErrStampingRejected, err)
	}
	if resp.Status != statusSuccess {
		return nil, fmt.Errorf("%w: %s", domain.ErrStampingRejected, joinDetail(resp.Message, resp.MessageDetail))
	}
	// Respuesta "exitosa" sin CFDI timbrado: resultado parcial, nunca se acepta.
	if resp.Data.CFDI == "" {
		return nil, fmt.Errorf("%w: respuesta exitosa pero sin CFDI timbrado", domain.ErrStampingRejected)
	}

	decoded, err := base64.StdEncoding.DecodeString(resp.Data.CFDI)
	if err != nil {
		return nil, fmt.Errorf("%w: CFDI timbrado no es base64 válido: %v", domain.ErrStampingRejected, err)
	}

	sealed, err := cfdi.ParseSealed(string(decoded))
	if err != nil {
		return nil, fmt.Errorf("%w: XML timbrado inconsistente: %v", domain.ErrStampingRejected, err)
	}
	return sealed, nil
}

// ── Cancel ────────────────────────────────────────────────────────────────────

// Cancel solicita la cancelación del folio fiscal ante el SAT vía SW.
func (c *Client) Cancel(ctx context.Context, req cfdi.CancellationRequest) (*cfdi.CancellationResult, error) {
	payload := cancelRequest{
		UUID:             req.UUID,
		RFC:              c.cfg.EmitterRFC,
		Motivo:           req.Motivo,
		FolioSustitucion: req.FolioSustitucion,
	}

	raw, err := c.callAuthorized(ctx, http.MethodPost, c.baseURL()+pathCancel, payload)
	if err != nil {
		return nil, err
	}

	var resp cancelResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: respuesta de cancelación ilegible: %v", domain.ErrStampingRejected, err)
	}
	if resp.Status != statusSuccess {
		return nil, fmt.Errorf("%w: %s", domain.ErrStampingRejected, joinDetail(resp.Message, resp.MessageDetail))
	}

	switch resp.Data.EstatusUUID {
	case cancelAceptada:
		estado := pkgcfdi.EstadoCancelado
		if resp.Data.Acuse == "" {
			// el SAT puede demorar el acuse; la solicitud quedó registrada
			estado = pkgcfdi.EstadoPendiente
		}
		return &cfdi.CancellationResult{
			Success: true,
			Acuse:   resp.Data.Acuse,
			Estado:  estado,
			Fecha:   time.Now(),
		}, nil
	case cancelPreviamenteCancelado:
		return nil, fmt.Errorf("%w: el folio %s ya estaba cancelado (estatus %s)",
			domain.ErrAlreadyCancelled, req.UUID, resp.Data.EstatusUUID)
	case cancelNoCorresponde, cancelNoExiste:
		return nil, fmt.Errorf("%w: cancelación rechazada para %s (estatus %s)",
			domain.ErrStampingRejected, req.UUID, resp.Data.EstatusUUID)
	default:
		return nil, fmt.Errorf("%w: estatus de cancelación desconocido %q",
			domain.ErrStampingRejected, resp.Data.EstatusUUID)
	}
}

// ── Consulta de estado ────────────────────────────────────────────────────────

// SATStatus consulta el estado del CFDI ante el SAT. La consulta es
// informativa: un fallo transitorio del provider se degrada a no_encontrado
// en vez de propagarse, para que el llamador nunca dependa de ella.
func (c *Client) SATStatus(ctx context.Context, uuid string) (string, error) {
	endpoint := c.baseURL() + pathStatus + "?uuid=" + url.QueryEscape(uuid)
	raw, err := c.callAuthorized(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.log.Warn().Err(err).Str("uuid", uuid).
			Msg("consulta de estado degradada a no_encontrado")
		return pkgcfdi.EstadoNoEncontrado, nil
	}

	var resp statusResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Status != statusSuccess {
		c.log.Warn().Str("uuid", uuid).
			Msg("respuesta de estado ilegible, degradada a no_encontrado")
		return pkgcfdi.EstadoNoEncontrado, nil
	}

	switch strings.ToLower(resp.Data.EstadoCFDI) {
	case "vigente":
		return pkgcfdi.EstadoVigente, nil
	case "cancelado":
		return pkgcfdi.EstadoCancelado, nil
	default:
		return pkgcfdi.EstadoNoEncontrado, nil
	}
}

// ── transporte ────────────────────────────────────────────────────────────────

// callAuthorized obtiene un token del cache, ejecuta la llamada con Bearer y
// clasifica los fallos. Un 401 invalida el token cacheado y reintenta una
// sola vez con credencial fresca: el token pudo expirar antes de lo calculado.
func (c *Client) callAuthorized(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	raw, status, err := c.authorizedOnce(ctx, method, endpoint, payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.tokens.invalidate()
		raw, status, err = c.authorizedOnce(ctx, method, endpoint, payload)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d de la API SW", domain.ErrAuthenticationFailed, status)
	case status >= 500:
		return nil, fmt.Errorf("%w: HTTP %d de la API SW", domain.ErrProviderUnavailable, status)
	case status >= 400:
		return nil, fmt.Errorf("%w: HTTP %d de la API SW", domain.ErrStampingRejected, status)
	}
	return raw, nil
}

func (c *Client) authorizedOnce(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, int, error) {
	token, err := c.tokens.getToken(ctx)
	if err != nil {
		return nil, 0, err
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: serializar cuerpo: %v", domain.ErrStampingRejected, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: crear request: %v", domain.ErrProviderUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req)
}

// do ejecuta la llamada y traduce los fallos de red a la taxonomía del dominio.
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, 0, fmt.Errorf("%w: timeout o cancelación: %v",
				domain.ErrProviderUnavailable, req.Context().Err())
		}
		return nil, 0, fmt.Errorf("%w: llamada HTTP fallida: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20)) // max 4 MB
	if err != nil {
		return nil, 0, fmt.Errorf("%w: leer respuesta: %v", domain.ErrProviderUnavailable, err)
	}
	return raw, resp.StatusCode, nil
}

func joinDetail(message, detail string) string {
	if detail == "" {
		return message
	}
	return message + ": " + detail
}

func (c *Client) baseURL() string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	if c.cfg.Env == "prod" {
		return baseURLProd
	}
	return baseURLTest
}

func (c *Client) authURL() string {
	if c.cfg.AuthURL != "" {
		return c.cfg.AuthURL
	}
	return c.baseURL() + pathAuth
}
