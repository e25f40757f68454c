package entity

import "time"

// Estados de bloqueo de un lote. Un lote bloqueado no participa en asignaciones.
const (
	LockStatusNone       = "NONE"
	LockStatusHold       = "HOLD"       // retenido por operaciones (ej. conteo cíclico)
	LockStatusQuarantine = "QUARANTINE" // retenido por calidad
)

// StockLot representa un pool de cantidad de un SKU en una ubicación y batch.
// OnHand y Allocated son la vista materializada del log de movimientos;
// el invariante 0 <= Allocated <= OnHand se cumple en todo instante observable.
type StockLot struct {
	LotID      string
	SKU        string
	ClientID   string
	Location   string
	BatchID    string
	ExpiryDate *time.Time // nil = sin vencimiento
	OnHand     int64
	Allocated  int64
	LockStatus string
	ReceivedAt time.Time
	UpdatedAt  time.Time
}

// Available devuelve la cantidad vendible: on-hand menos lo reservado.
func (l *StockLot) Available() int64 {
	return l.OnHand - l.Allocated
}

// Allocatable indica si el lote puede participar en una asignación.
func (l *StockLot) Allocatable() bool {
	return l.LockStatus == LockStatusNone && l.Available() > 0
}
