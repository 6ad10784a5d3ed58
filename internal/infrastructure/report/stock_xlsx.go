package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/wip-ledger/internal/domain/entity"
)

const stockSheet = "WIP"

var stockHeaders = []any{
	"wip_id", "partnumber", "lotnumber", "customer", "model", "description",
	"quantity", "status", "operator", "label_id", "created_at", "updated_at",
}

// StockXLSX genera el libro con una fila por StockLot y una fila final de total disponible.
func StockXLSX(lots []*entity.StockLot, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", stockSheet); err != nil {
		return nil, fmt.Errorf("xlsx: renombrar hoja: %w", err)
	}
	if err := f.SetSheetRow(stockSheet, "A1", &stockHeaders); err != nil {
		return nil, fmt.Errorf("xlsx: cabecera: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx: estilo: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(stockHeaders))
	if err := f.SetCellStyle(stockSheet, "A1", lastCol+"1", bold); err != nil {
		return nil, fmt.Errorf("xlsx: estilo cabecera: %w", err)
	}

	var available int64
	for i, l := range lots {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{
			l.ID, l.PartNumber, l.LotNumber, l.Customer, l.Model, l.Description,
			l.Quantity, l.Status, l.Operator, l.LabelID,
			l.CreatedAt.UTC().Format(time.RFC3339), l.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(stockSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("xlsx: fila %d: %w", i+2, err)
		}
		if l.Available() {
			available += l.Quantity
		}
	}

	totalRow := len(lots) + 3
	if err := f.SetCellValue(stockSheet, fmt.Sprintf("F%d", totalRow), "Total disponible"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(stockSheet, fmt.Sprintf("G%d", totalRow), available); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(stockSheet, fmt.Sprintf("F%d", totalRow+1), "Generado"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(stockSheet, fmt.Sprintf("G%d", totalRow+1), generatedAt.UTC().Format(time.RFC3339)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: escribir: %w", err)
	}
	return buf.Bytes(), nil
}
