package dto

// DashboardSummaryDTO respuesta de GET /api/wip/dashboard.
// Stock actual por parte más el flujo del ledger del día y del mes en curso.
type DashboardSummaryDTO struct {
	TotalAvailable int64          `json:"total_available"` // suma de las partes listadas
	TopParts       []PartStockDTO `json:"top_parts"`

	Today []MovementTotalDTO `json:"today"`
	Month []MovementTotalDTO `json:"month"`

	DateLabel string `json:"date_label"` // ej: "Marzo 2024"
}

// PartStockDTO stock disponible de un número de parte.
type PartStockDTO struct {
	PartNumber string `json:"partnumber"`
	Lots       int    `json:"lots"`
	Rows       int    `json:"rows"`
	Available  int64  `json:"available"`
}

// MovementTotalDTO movimientos del ledger de un tipo en el período.
type MovementTotalDTO struct {
	TransactionType string `json:"transaction_type"`
	Entries         int    `json:"entries"`
	Quantity        int64  `json:"quantity"`
}
