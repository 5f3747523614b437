// Package cfdi contiene catálogos y reglas de forma alineados al Anexo 20
// del SAT (CFDI 4.0) que comparten el validador, los adaptadores PAC y el
// renderer de la representación impresa.
package cfdi

// =============================================================================
// Catálogo c_Moneda (subconjunto operativo)
// Las monedas fuera de esta lista no son necesariamente inválidas para el SAT;
// el validador las reporta como advertencia, no como error bloqueante.
// =============================================================================

const (
	MonedaMXN = "MXN" // Peso mexicano
	MonedaUSD = "USD" // Dólar estadounidense
	MonedaEUR = "EUR" // Euro
	MonedaXXX = "XXX" // Sin moneda (comprobantes tipo Traslado/Pago)
)

// RecognizedCurrencies monedas del catálogo que el sistema maneja sin advertencia.
var RecognizedCurrencies = map[string]bool{
	MonedaMXN: true,
	MonedaUSD: true,
	MonedaEUR: true,
	MonedaXXX: true,
}

// =============================================================================
// Catálogo c_MotivoCancelacion (enumeración cerrada, cuatro motivos)
// =============================================================================

const (
	// MotivoErroresConRelacion exige FolioSustitucion (CFDI que sustituye al cancelado).
	MotivoErroresConRelacion = "01"
	// MotivoErroresSinRelacion comprobante con errores, sin documento que lo sustituya.
	MotivoErroresSinRelacion = "02"
	// MotivoOperacionNoRealizada la operación amparada no se llevó a cabo.
	MotivoOperacionNoRealizada = "03"
	// MotivoOperacionGlobal operación nominativa relacionada en factura global.
	MotivoOperacionGlobal = "04"
)

// ValidCancellationReasons motivos de cancelación aceptados por el SAT.
var ValidCancellationReasons = map[string]bool{
	MotivoErroresConRelacion:   true,
	MotivoErroresSinRelacion:   true,
	MotivoOperacionNoRealizada: true,
	MotivoOperacionGlobal:      true,
}

// ReasonRequiresSubstitute indica si el motivo exige un folio de sustitución.
func ReasonRequiresSubstitute(motivo string) bool {
	return motivo == MotivoErroresConRelacion
}

// =============================================================================
// Catálogo c_UsoCFDI (códigos de uso frecuente)
// =============================================================================

const (
	UsoGastosGenerales = "G03" // Gastos en general
	UsoAdquisicion     = "G01" // Adquisición de mercancías
	UsoSinEfectos      = "S01" // Sin efectos fiscales
	UsoPorDefinir      = "CP01"
)

// =============================================================================
// Catálogo c_TipoDeComprobante
// =============================================================================

const (
	ComprobanteIngreso  = "I"
	ComprobanteEgreso   = "E"
	ComprobanteTraslado = "T"
	ComprobantePago     = "P"
)

// ValidComprobanteTypes tipos de comprobante del Anexo 20.
var ValidComprobanteTypes = map[string]bool{
	ComprobanteIngreso: true, ComprobanteEgreso: true,
	ComprobanteTraslado: true, ComprobantePago: true,
	"N": true, // Nómina
}

// =============================================================================
// Estados de un CFDI ante el SAT (consulta de estado / cancelación)
// =============================================================================

const (
	EstadoVigente      = "vigente"
	EstadoCancelado    = "cancelado"
	EstadoPendiente    = "pendiente"
	EstadoNoEncontrado = "no_encontrado"
)

// CFDIVersion versión del esquema que este sistema timbra.
const CFDIVersion = "4.0"
