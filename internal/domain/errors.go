package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrUserNotFound      = errors.New("usuario no encontrado")
	ErrUsernameTaken     = errors.New("el usuario ya está registrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInvalidQuantity   = errors.New("cantidad inválida")
	ErrMissingIdentifier = errors.New("partnumber y lotnumber son requeridos")
	ErrLotNotFound       = errors.New("lote no encontrado o no disponible")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrStorage           = errors.New("error de almacenamiento")
)

// InsufficientStockError detalla el faltante de una transferencia de lote único.
// errors.Is(err, ErrInsufficientStock) es verdadero.
type InsufficientStockError struct {
	PartNumber string
	LotNumber  string
	Available  int64
	Requested  int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s/%s: disponible %d, solicitado %d",
		e.PartNumber, e.LotNumber, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// StorageError envuelve un fallo de persistencia. errors.Is(err, ErrStorage) es verdadero.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// IsLedgerRejection indica si err es un rechazo de negocio (no un fallo de almacenamiento).
func IsLedgerRejection(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrMissingIdentifier) ||
		errors.Is(err, ErrLotNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrInvalidInput)
}
