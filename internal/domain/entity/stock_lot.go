package entity

import "time"

// Estados de un StockLot.
const (
	LotStatusAvailable   = "available"
	LotStatusTransferred = "transferred"
)

// Valores por defecto al crear un lote desde una salida de producción.
const (
	DefaultCustomer    = "GENERAL"
	DefaultModel       = "From Output MC"
	DefaultDescription = "WIP from production output"
)

// StockLot representa una fila de inventario WIP para (partnumber, lotnumber).
// Varias filas pueden compartir la misma llave: cada etiqueta QR registrada crea una fila nueva.
type StockLot struct {
	ID          string // wip_id
	PartNumber  string
	LotNumber   string
	Customer    string
	Model       string
	Description string
	Quantity    int64 // nunca negativa
	Operator    string
	Status      string // available, transferred
	LabelID     string // serial de la etiqueta QR (opcional)
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Available indica si el lote puede consumirse.
func (l *StockLot) Available() bool {
	return l.Status == LotStatusAvailable && l.Quantity > 0
}
