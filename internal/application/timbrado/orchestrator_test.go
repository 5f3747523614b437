package timbrado_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-api/internal/application/timbrado"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/cfdi"
)

const testUUID = "A1B2C3D4-E5F6-4A7B-8C9D-0E1F2A3B4C5D"

// ──────────────────────────────────────────────────────────────────────────────
// mockPAC: provider en memoria que cuenta llamadas salientes. El contador es
// el corazón de los tests de "cero llamadas de red con documento inválido".
// ──────────────────────────────────────────────────────────────────────────────

type mockPAC struct {
	stampCalls  int
	cancelCalls int
	stampResult *cfdi.SealedDocument
	stampErr    error
	cancelRes   *cfdi.CancellationResult
	cancelErr   error
}

func (m *mockPAC) Name() string { return "mock" }

func (m *mockPAC) Stamp(_ context.Context, _ string) (*cfdi.SealedDocument, error) {
	m.stampCalls++
	return m.stampResult, m.stampErr
}

func (m *mockPAC) Cancel(_ context.Context, _ cfdi.CancellationRequest) (*cfdi.CancellationResult, error) {
	m.cancelCalls++
	return m.cancelRes, m.cancelErr
}

// mockPACWithStatus añade la capacidad opcional de consulta de estado.
type mockPACWithStatus struct {
	mockPAC
	estado string
}

func (m *mockPACWithStatus) SATStatus(_ context.Context, _ string) (string, error) {
	return m.estado, nil
}

func sealedFixture() *cfdi.SealedDocument {
	return &cfdi.SealedDocument{
		UUID:             testUUID,
		FechaTimbrado:    time.Date(2026, 8, 30, 12, 0, 5, 0, time.UTC),
		NoCertificadoSAT: "30001000000400002495",
		SelloSAT:         "c2VsbG8tc2F0LW9wYWNvLWJhc2U2NA==ZZ998877",
		SelloCFD:         "c2VsbG8tZW1pc29y",
		RFCEmisor:        "AAA010101AAA",
		RFCReceptor:      "XAXX010101000",
		Total:            decimal.RequireFromString("116.00"),
	}
}

const validXML = `<?xml version="1.0" encoding="UTF-8"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" Version="4.0"
  Serie="F" Folio="123" Fecha="2026-08-30T12:00:00"
  SubTotal="100.00" Moneda="MXN" Total="116.00" TipoDeComprobante="I">
  <cfdi:Emisor Rfc="AAA010101AAA" Nombre="EMPRESA DEMO" RegimenFiscal="601"/>
  <cfdi:Receptor Rfc="XAXX010101000" Nombre="PUBLICO EN GENERAL"
    DomicilioFiscalReceptor="06600" RegimenFiscalReceptor="616" UsoCFDI="S01"/>
  <cfdi:Conceptos>
    <cfdi:Concepto ClaveProdServ="01010101" Cantidad="1" ClaveUnidad="H87"
      Descripcion="Producto demo" ValorUnitario="100.00" Importe="100.00"/>
  </cfdi:Conceptos>
  <cfdi:Impuestos TotalImpuestosTrasladados="16.00"/>
</cfdi:Comprobante>`

const invalidXML = `<?xml version="1.0"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" Version="4.0"
  Fecha="2026-08-30T12:00:00" SubTotal="100.00" Moneda="MXN"
  Total="-116.00" TipoDeComprobante="I">
  <cfdi:Emisor Rfc="AAA010101AAA" Nombre="EMPRESA DEMO" RegimenFiscal="601"/>
  <cfdi:Receptor Rfc="XAXX010101000" Nombre="PG"
    DomicilioFiscalReceptor="06600" RegimenFiscalReceptor="616" UsoCFDI="S01"/>
  <cfdi:Conceptos>
    <cfdi:Concepto ClaveProdServ="01010101" Cantidad="1" ClaveUnidad="H87"
      Descripcion="Producto demo" ValorUnitario="100.00" Importe="100.00"/>
  </cfdi:Conceptos>
</cfdi:Comprobante>`

func newOrchestrator(p timbrado.PACProvider) *timbrado.Orchestrator {
	return timbrado.NewOrchestrator(p, zerolog.Nop())
}

// ── Timbrar ───────────────────────────────────────────────────────────────────

func TestTimbrar_DocumentoValido(t *testing.T) {
	pac := &mockPAC{stampResult: sealedFixture()}
	o := newOrchestrator(pac)

	outcome, err := o.Timbrar(context.Background(), cfdi.UnsignedDocument{
		Serie: "F", Folio: "123", XML: validXML,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, pac.stampCalls)
	assert.True(t, cfdi.IsCanonicalUUID(outcome.Document.UUID))
	assert.True(t, outcome.Document.Total.Equal(decimal.RequireFromString("116.00")),
		"el total del documento de entrada debe conservarse tras el timbrado")
	assert.Contains(t, outcome.VerificationURL, "&tt=116.000000")
	assert.Contains(t, outcome.VerificationURL, "&fe=ZZ998877")
}

func TestTimbrar_DocumentoInvalidoNoTocaLaRed(t *testing.T) {
	pac := &mockPAC{stampResult: sealedFixture()}
	o := newOrchestrator(pac)

	_, err := o.Timbrar(context.Background(), cfdi.UnsignedDocument{XML: invalidXML})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Zero(t, pac.stampCalls, "con documento inválido no debe haber ninguna llamada saliente")

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.NotEmpty(t, vErr.Reasons, "el error debe transportar las razones para corregir el documento")
}

func TestTimbrar_RespuestaIncompletaDelPAC(t *testing.T) {
	incompleto := sealedFixture()
	incompleto.SelloSAT = "" // respuesta "exitosa" pero sin sello
	pac := &mockPAC{stampResult: incompleto}
	o := newOrchestrator(pac)

	_, err := o.Timbrar(context.Background(), cfdi.UnsignedDocument{XML: validXML})

	assert.ErrorIs(t, err, domain.ErrStampingRejected,
		"un resultado parcial jamás se acepta en silencio")
}

func TestTimbrar_ErroresDelProviderSePropaganClasificados(t *testing.T) {
	for _, sentinel := range []error{
		domain.ErrStampingRejected,
		domain.ErrProviderUnavailable,
		domain.ErrAuthenticationFailed,
	} {
		pac := &mockPAC{stampErr: sentinel}
		o := newOrchestrator(pac)

		_, err := o.Timbrar(context.Background(), cfdi.UnsignedDocument{XML: validXML})
		assert.ErrorIs(t, err, sentinel, "la clase de error del adaptador debe llegar intacta al llamador")
	}
}

// ── Cancelar ──────────────────────────────────────────────────────────────────

func TestCancelar_SolicitudValida(t *testing.T) {
	pac := &mockPAC{cancelRes: &cfdi.CancellationResult{
		Success: true, Estado: "cancelado", Acuse: "<Acuse/>", Fecha: time.Now(),
	}}
	o := newOrchestrator(pac)

	result, err := o.Cancelar(context.Background(), cfdi.CancellationRequest{
		UUID: testUUID, Motivo: "02",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, pac.cancelCalls)
	assert.True(t, result.Success)
	assert.Equal(t, "cancelado", result.Estado)
}

func TestCancelar_SolicitudInvalidaNoTocaLaRed(t *testing.T) {
	pac := &mockPAC{}
	o := newOrchestrator(pac)

	_, err := o.Cancelar(context.Background(), cfdi.CancellationRequest{
		UUID: testUUID, Motivo: "01", // motivo 01 sin folio de sustitución
	})

	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Zero(t, pac.cancelCalls)
}

func TestCancelar_YaCanceladoSePropagaComoTal(t *testing.T) {
	pac := &mockPAC{cancelErr: domain.ErrAlreadyCancelled}
	o := newOrchestrator(pac)

	_, err := o.Cancelar(context.Background(), cfdi.CancellationRequest{
		UUID: testUUID, Motivo: "02",
	})

	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled,
		"el llamador debe poder tratarlo como casi-éxito")
}

// ── ConsultarEstado ───────────────────────────────────────────────────────────

func TestConsultarEstado_ProviderSinCapacidad(t *testing.T) {
	o := newOrchestrator(&mockPAC{})

	_, err := o.ConsultarEstado(context.Background(), testUUID)
	assert.ErrorIs(t, err, domain.ErrStatusNotSupported)
}

func TestConsultarEstado_ProviderConCapacidad(t *testing.T) {
	pac := &mockPACWithStatus{estado: "vigente"}
	o := newOrchestrator(pac)

	estado, err := o.ConsultarEstado(context.Background(), testUUID)
	require.NoError(t, err)
	assert.Equal(t, "vigente", estado)
}

func TestConsultarEstado_UUIDInvalido(t *testing.T) {
	o := newOrchestrator(&mockPACWithStatus{estado: "vigente"})

	_, err := o.ConsultarEstado(context.Background(), "no-uuid")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}
