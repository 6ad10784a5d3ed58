// Package report genera los reportes descargables del WIP: exportación de stock en xlsx
// y el historial de movimientos de un lote en PDF.
//
// Layout del PDF (A4):
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Historial WIP + lote   │  Fecha de generación      │
//	│  RESUMEN: filas del lote (parte, cantidad, estado) + QR     │
//	│  TABLA: Fecha | Tipo | Cambio | Parte | Operador | Origen   │
//	└─────────────────────────────────────────────────────────────┘
package report

import (
	"fmt"
	"strconv"
	"time"

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

	"github.com/jhoicas/wip-ledger/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// LotHistoryPDF genera el historial de un número de lote. rows son las filas WIP actuales
// del lote (puede estar vacío si solo hay historial); entries el ledger, más reciente primero.
func LotHistoryPDF(lotNumber string, rows []*entity.StockLot, entries []*entity.LedgerEntry, generatedAt time.Time) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Historial WIP "+lotNumber, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(lotNumber, generatedAt))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRows(lotNumber, rows)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(tableHeaderRow())
	if len(entries) == 0 {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("Sin movimientos registrados.", props.Text{Size: 8, Color: colorGray, Top: 2}),
		)))
	}
	m.AddRows(entryRows(entries)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(lotNumber string, generatedAt time.Time) core.Row {
	return row.New(16).Add(
		col.New(8).Add(
			text.New("HISTORIAL DE MOVIMIENTOS WIP", props.Text{
				Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1,
			}),
			text.New("Lote: "+lotNumber, props.Text{Size: 10, Top: 9}),
		),
		col.New(4).Add(
			text.New("Generado: "+generatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
		),
	)
}

// summaryRows una fila por StockLot del lote, con QR del lote a la izquierda.
func summaryRows(lotNumber string, rows []*entity.StockLot) []core.Row {
	var available int64
	lines := make([]core.Component, 0, len(rows)+2)
	lines = append(lines, text.New("FILAS ACTUALES", props.Text{
		Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
	}))
	for i, r := range rows {
		if r.Available() {
			available += r.Quantity
		}
		lines = append(lines, text.New(
			fmt.Sprintf("%s  |  %s  |  %s pzas  |  %s", r.PartNumber, r.Customer, formatQty(r.Quantity), r.Status),
			props.Text{Size: 8, Top: float64(6 + 5*i)},
		))
	}
	lines = append(lines, text.New("Total disponible: "+formatQty(available)+" pzas", props.Text{
		Style: fontstyle.Bold, Size: 9, Top: float64(8 + 5*len(rows)),
	}))

	height := float64(16 + 5*len(rows))
	if height < 30 {
		height = 30
	}
	return []core.Row{
		row.New(height).Add(
			col.New(3).Add(code.NewQr(lotNumber, props.Rect{Percent: 90, Center: true})),
			col.New(9).Add(lines...),
		),
	}
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 2, align.Left),
		h("Tipo", 3, align.Left),
		h("Cambio", 1, align.Right),
		h("Parte", 2, align.Left),
		h("Operador", 2, align.Left),
		h("Origen", 2, align.Left),
	)
}

func entryRows(entries []*entity.LedgerEntry) []core.Row {
	result := make([]core.Row, 0, len(entries))
	for _, e := range entries {
		change := props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1}
		if e.QuantityChange < 0 {
			change.Color = colorRed
		}
		result = append(result, row.New(6).Add(
			col.New(2).Add(text.New(e.Timestamp.Format("02/01/06 15:04"), props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(3).Add(text.New(e.TransactionType, props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(1).Add(text.New(signedQty(e.QuantityChange), change)),
			col.New(2).Add(text.New(e.PartNumber, props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(2).Add(text.New(nonEmpty(e.Operator, "-"), props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(2).Add(text.New(e.SourceTable, props.Text{Size: 7, Top: 1, Left: 1})),
		))
	}
	return result
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func signedQty(n int64) string {
	if n > 0 {
		return "+" + formatQty(n)
	}
	return formatQty(n)
}

// formatQty inserta puntos de miles. Ej: 25000 → "25.000", -1500 → "-1.500".
func formatQty(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	l := len(s)
	if l <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, l+l/3)
	for i, c := range []byte(s) {
		if i > 0 && (l-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
