package entity

import "time"

// Tipos de movimiento del ledger.
const (
	MovementTypeRECEIVE    = "RECEIVE"    // entrada física (recepción)
	MovementTypeALLOCATE   = "ALLOCATE"   // reserva contra una orden
	MovementTypeDEALLOCATE = "DEALLOCATE" // liberación de reserva (cancelación/rollback)
	MovementTypePICK       = "PICK"       // picking físico, sin cambio de cantidades
	MovementTypeSHIP       = "SHIP"       // despacho: baja on-hand y allocated
	MovementTypeADJUST     = "ADJUST"     // ajuste manual (conteo, merma)
)

// MovementRecord es una entrada de auditoría inmutable del ledger.
// Reproducir los movimientos de un lote en orden de commit reconstruye
// exactamente sus contadores OnHand/Allocated; por eso se guarda el
// antes/después de ambos contadores, no solo el delta.
type MovementRecord struct {
	MovementID      string
	LotID           string
	Type            string
	QuantityDelta   int64 // con signo: positivo entra, negativo sale
	OnHandBefore    int64
	OnHandAfter     int64
	AllocatedBefore int64
	AllocatedAfter  int64
	OrderRef        string // vacío en RECEIVE/ADJUST
	Actor           string
	CreatedAt       time.Time
}
