package entity

import "time"

// Modos de consumo.
const (
	ConsumeModeSingle = "single"
	ConsumeModeFIFO   = "fifo"
)

// Resultado de un consumo.
const (
	TransferFull         = "fully_transferred"
	TransferPartial      = "partial_transfer"
	TransferInsufficient = "failed_insufficient_stock"
)

// LotTake es la porción tomada de una fila concreta.
type LotTake struct {
	WipID     string
	LotNumber string
	Quantity  int64
	Remaining int64
}

// TransferRecord resume una llamada a ConsumeStock. Inmutable una vez creado.
type TransferRecord struct {
	BatchID           string
	PartNumber        string
	LotNumber         string
	Mode              string
	QuantityRequested int64
	QuantitySatisfied int64
	Takes             []LotTake
	ResultStatus      string
	PIC               string
	CreatedAt         time.Time
}

// Shortfall devuelve la cantidad no satisfecha.
func (r *TransferRecord) Shortfall() int64 {
	return r.QuantityRequested - r.QuantitySatisfied
}
