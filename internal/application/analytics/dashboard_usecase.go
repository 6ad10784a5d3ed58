// Package analytics contiene el tablero del WIP: stock por parte y flujo del ledger.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/wip-ledger/internal/application/dto"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
)

const dashboardTopParts = 10 // partes en el widget de stock

// DashboardUseCase genera el resumen del día y del mes en curso.
//
// Fuente de datos: AnalyticsRepository (consultas read-only).
type DashboardUseCase struct {
	analyticsRepo repository.AnalyticsRepository
	now           func() time.Time
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(analyticsRepo repository.AnalyticsRepository) *DashboardUseCase {
	return &DashboardUseCase{analyticsRepo: analyticsRepo, now: time.Now}
}

// WithClock reemplaza time.Now (tests).
func (uc *DashboardUseCase) WithClock(now func() time.Time) *DashboardUseCase {
	uc.now = now
	return uc
}

// GetSummary construye el DashboardSummaryDTO.
//
// Tres llamadas en paralelo:
//  1. MovementTotals(hoy)
//  2. MovementTotals(mes)
//  3. StockByPart(top 10)
func (uc *DashboardUseCase) GetSummary(ctx context.Context) (*dto.DashboardSummaryDTO, error) {
	now := uc.now()

	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := todayStart.AddDate(0, 0, 1)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	type totalsResult struct {
		totals []repository.MovementTotalResult
		err    error
	}
	type partsResult struct {
		parts []repository.PartStockResult
		err   error
	}

	todayCh := make(chan totalsResult, 1)
	monthCh := make(chan totalsResult, 1)
	partsCh := make(chan partsResult, 1)

	go func() {
		totals, err := uc.analyticsRepo.MovementTotals(ctx, todayStart, tomorrow)
		todayCh <- totalsResult{totals, err}
	}()
	go func() {
		totals, err := uc.analyticsRepo.MovementTotals(ctx, monthStart, tomorrow)
		monthCh <- totalsResult{totals, err}
	}()
	go func() {
		parts, err := uc.analyticsRepo.StockByPart(ctx, dashboardTopParts)
		partsCh <- partsResult{parts, err}
	}()

	today := <-todayCh
	month := <-monthCh
	parts := <-partsCh

	if today.err != nil {
		return nil, fmt.Errorf("dashboard: movimientos de hoy: %w", today.err)
	}
	if month.err != nil {
		return nil, fmt.Errorf("dashboard: movimientos del mes: %w", month.err)
	}
	if parts.err != nil {
		return nil, fmt.Errorf("dashboard: stock por parte: %w", parts.err)
	}

	out := &dto.DashboardSummaryDTO{
		TopParts:  make([]dto.PartStockDTO, 0, len(parts.parts)),
		Today:     toTotals(today.totals),
		Month:     toTotals(month.totals),
		DateLabel: monthLabel(now),
	}
	for _, p := range parts.parts {
		out.TotalAvailable += p.Available
		out.TopParts = append(out.TopParts, dto.PartStockDTO{
			PartNumber: p.PartNumber,
			Lots:       p.Lots,
			Rows:       p.Rows,
			Available:  p.Available,
		})
	}
	return out, nil
}

func toTotals(in []repository.MovementTotalResult) []dto.MovementTotalDTO {
	out := make([]dto.MovementTotalDTO, 0, len(in))
	for _, t := range in {
		out = append(out, dto.MovementTotalDTO{
			TransactionType: t.TransactionType,
			Entries:         t.Entries,
			Quantity:        t.Quantity,
		})
	}
	return out
}

// monthLabel devuelve una etiqueta legible del mes, ej: "Febrero 2026".
func monthLabel(t time.Time) string {
	months := [...]string{
		"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
		"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
	}
	return fmt.Sprintf("%s %d", months[t.Month()-1], t.Year())
}
