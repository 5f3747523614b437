// Package pdf implementa la representación impresa de un CFDI 4.0 timbrado
// (Anexo 20 del SAT).
//
// Layout de la página carta:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emisor + RFC  │  Serie-Folio + Fecha de emisión    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RECEPTOR: Nombre + RFC + UsoCFDI                           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | Valor Unit. | Importe          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: SubTotal / Total (Moneda)                         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  BLOQUE FISCAL: UUID + QR + sellos + cadena original TFD    │
//	└─────────────────────────────────────────────────────────────┘
//
// La URL de verificación del SAT viaja únicamente dentro del QR; imprimirla
// como texto está prohibido por contrato de la representación.
package pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/etree"
	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/facturacion-api/internal/domain/cfdi"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
	colorZebra   = &props.Color{Red: 240, Green: 244, Blue: 248}
)

// sealPreviewLen longitud visible de cada sello; el resto se trunca con "…".
const sealPreviewLen = 64

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoCFDIGenerator implementa timbrado.CFDIPDFGenerator usando Maroto v2.
type MarotoCFDIGenerator struct{}

// NewMarotoCFDIGenerator construye el generador.
func NewMarotoCFDIGenerator() *MarotoCFDIGenerator { return &MarotoCFDIGenerator{} }

// GenerateCFDIPDF genera el PDF de la representación impresa y devuelve sus
// bytes. Los datos de emisor, receptor y conceptos salen del XML timbrado;
// el bloque fiscal sale del SealedDocument ya extraído.
func (g *MarotoCFDIGenerator) GenerateCFDIPDF(
	_ context.Context,
	doc *cfdi.SealedDocument,
	verificationURL string,
) ([]byte, error) {
	view, err := parseView(doc.XMLTimbrado)
	if err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.Letter).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("CFDI "+doc.UUID, true).
		WithAuthor(view.EmisorNombre, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc, view))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(receptorRow(view))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range conceptoRows(view.Conceptos) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(doc, view))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range fiscalRows(doc, verificationURL) {
		m.AddRows(r)
	}

	m.AddRows(footerRow())

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Vista del comprobante ─────────────────────────────────────────────────────

// comprobanteView datos de presentación extraídos del XML timbrado.
type comprobanteView struct {
	EmisorNombre   string
	EmisorRegimen  string
	ReceptorNombre string
	ReceptorRFC    string
	UsoCFDI        string
	Fecha          string
	SubTotal       string
	Moneda         string
	Conceptos      []conceptoView
}

type conceptoView struct {
	Cantidad      string
	Descripcion   string
	ValorUnitario string
	Importe       string
}

func parseView(xmlTimbrado string) (*comprobanteView, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromString(xmlTimbrado); err != nil {
		return nil, fmt.Errorf("pdf: XML timbrado ilegible: %w", err)
	}
	root := tree.Root()
	if root == nil {
		return nil, fmt.Errorf("pdf: XML timbrado vacío")
	}

	view := &comprobanteView{
		Fecha:    root.SelectAttrValue("Fecha", ""),
		SubTotal: root.SelectAttrValue("SubTotal", ""),
		Moneda:   root.SelectAttrValue("Moneda", ""),
	}

	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "Emisor":
			view.EmisorNombre = child.SelectAttrValue("Nombre", "")
			view.EmisorRegimen = child.SelectAttrValue("RegimenFiscal", "")
		case "Receptor":
			view.ReceptorNombre = child.SelectAttrValue("Nombre", "")
			view.ReceptorRFC = child.SelectAttrValue("Rfc", "")
			view.UsoCFDI = child.SelectAttrValue("UsoCFDI", "")
		case "Conceptos":
			for _, concepto := range child.ChildElements() {
				if concepto.Tag != "Concepto" {
					continue
				}
				view.Conceptos = append(view.Conceptos, conceptoView{
					Cantidad:      concepto.SelectAttrValue("Cantidad", ""),
					Descripcion:   concepto.SelectAttrValue("Descripcion", ""),
					ValorUnitario: concepto.SelectAttrValue("ValorUnitario", ""),
					Importe:       concepto.SelectAttrValue("Importe", ""),
				})
			}
		}
	}
	return view, nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: emisor + RFC (izq) y serie-folio + fecha de emisión (der).
func headerRow(doc *cfdi.SealedDocument, view *comprobanteView) core.Row {
	folio := doc.Serie
	if doc.Folio != "" {
		if folio != "" {
			folio += "-"
		}
		folio += doc.Folio
	}

	return row.New(18).Add(
		col.New(7).Add(
			text.New(nonEmpty(view.EmisorNombre, doc.RFCEmisor), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("RFC: %s   |   Régimen: %s",
				doc.RFCEmisor, nonEmpty(view.EmisorRegimen, "—"),
			), props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("CFDI DE INGRESO 4.0", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(folio, "S/F"), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Emisión: "+view.Fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// receptorRow: datos del receptor.
func receptorRow(view *comprobanteView) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("RECEPTOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(view.ReceptorNombre, view.ReceptorRFC), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("RFC: %s   |   Uso CFDI: %s",
				view.ReceptorRFC, nonEmpty(view.UsoCFDI, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de conceptos.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 6, align.Left),
		h("Valor Unit.", 2, align.Right),
		h("Importe", 3, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// conceptoRows: una fila por concepto, con zebra striping en las impares.
func conceptoRows(conceptos []conceptoView) []core.Row {
	result := make([]core.Row, 0, len(conceptos))
	for i, c := range conceptos {
		r := row.New(7).Add(
			col.New(1).Add(text.New(c.Cantidad,
				props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(6).Add(text.New(c.Descripcion,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New("$"+c.ValorUnitario,
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New("$"+c.Importe,
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		)
		if i%2 == 1 {
			r.WithStyle(&props.Cell{BackgroundColor: colorZebra})
		}
		result = append(result, r)
	}
	return result
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(doc *cfdi.SealedDocument, view *comprobanteView) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	moneda := nonEmpty(view.Moneda, "MXN")
	return row.New(20).Add(
		col.New(4),
		col.New(4).Add(
			label("SubTotal:"),
			grandLabel("TOTAL ("+moneda+"):"),
		),
		col.New(4).Add(
			value("$"+view.SubTotal),
			grandValue("$"+doc.Total.StringFixed(2)),
		),
	)
}

// fiscalRows: UUID + QR de verificación + sellos truncados + cadena original.
func fiscalRows(doc *cfdi.SealedDocument, verificationURL string) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("INFORMACIÓN FISCAL DIGITAL SAT", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
		row.New(6).Add(col.New(12).Add(
			text.New("Folio fiscal (UUID): "+doc.UUID, props.Text{
				Style: fontstyle.Bold, Size: 8, Top: 1,
			}),
		)),
		row.New(5).Add(col.New(12).Add(
			text.New(fmt.Sprintf("Fecha de timbrado: %s   |   Certificado SAT: %s",
				doc.FechaTimbrado.Format("2006-01-02 15:04:05"), doc.NoCertificadoSAT,
			), props.Text{Size: 7.5, Color: colorGray, Top: 1}),
		)),
	}

	// QR + sellos. El QR lleva la URL de verificación completa; como texto
	// solo aparecen los sellos truncados.
	rows = append(rows, row.New(42).Add(
		col.New(4).Add(code.NewQr(verificationURL, props.Rect{
			Percent: 95,
			Center:  true,
		})),
		col.New(8).Add(
			text.New("Sello digital del CFDI:", props.Text{
				Style: fontstyle.Bold, Size: 7, Top: 1, Left: 3,
			}),
			text.New(truncateSeal(doc.SelloCFD), props.Text{
				Size: 6.5, Top: 5, Left: 3, Color: colorGray,
			}),
			text.New("Sello del SAT:", props.Text{
				Style: fontstyle.Bold, Size: 7, Top: 12, Left: 3,
			}),
			text.New(truncateSeal(doc.SelloSAT), props.Text{
				Size: 6.5, Top: 16, Left: 3, Color: colorGray,
			}),
			text.New("Escanea el código QR para verificar este\ncomprobante en el portal del SAT.", props.Text{
				Size: 8, Top: 26, Left: 3, Color: colorGray,
			}),
		),
	))

	// Cadena original del complemento de certificación
	rows = append(rows, row.New(5).Add(col.New(12).Add(
		text.New("Cadena original del complemento de certificación digital del SAT:", props.Text{
			Style: fontstyle.Bold, Size: 7, Top: 1,
		}),
	)))
	for _, chunk := range splitEvery(doc.CadenaOriginalTFD, 110) {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(chunk, props.Text{Size: 6.5, Color: colorGray, Top: 0.5, Left: 2}),
		)))
	}

	return rows
}

// footerRow: leyenda legal + timestamp de generación.
func footerRow() core.Row {
	return row.New(10).Add(col.New(12).Add(
		text.New(
			"Este documento es una representación impresa de un CFDI. "+
				"Conserve el XML como comprobante fiscal.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
		text.New("Generado: "+time.Now().Format("2006-01-02 15:04:05"), props.Text{
			Size: 6.5, Color: colorGray, Top: 6,
		}),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// truncateSeal deja visible solo el inicio del sello; los sellos completos
// viven en el XML, no en la representación impresa.
func truncateSeal(seal string) string {
	if len(seal) <= sealPreviewLen {
		return seal
	}
	return seal[:sealPreviewLen] + "…"
}

// splitEvery divide s en trozos de max n caracteres.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
