package entity

import "time"

// Estados del ciclo de vida de una orden de salida.
const (
	OrderStatusHold      = "HOLD"
	OrderStatusReleased  = "RELEASED"
	OrderStatusAllocated = "ALLOCATED"
	OrderStatusPicked    = "PICKED"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusCancelled = "CANCELLED"
)

// Prioridades de orden.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// PriorityRank devuelve el orden de atención (menor = más urgente) para el
// escaneo del auto-release. Prioridades desconocidas quedan al final.
func PriorityRank(priority string) int {
	switch priority {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Allocation es una reserva de la orden sobre un lote concreto. Settled marca
// que el efecto terminal sobre el lote (ship o release) ya quedó confirmado en
// el ledger: un reintento de la transición omite las asentadas, así un fallo a
// mitad de un despacho o cancelación multi-lote nunca aplica el efecto dos
// veces sobre los lotes que ya pasaron.
type Allocation struct {
	LotID   string
	Qty     int64
	Settled bool
}

// Order representa una orden de salida (fulfillment) de un cliente.
// Solo se muta a través de las transiciones de la máquina de estados;
// SHIPPED y CANCELLED son terminales e inmutables.
type Order struct {
	OrderID           string
	OrderNumber       string
	SKU               string
	ClientID          string
	QuantityRequested int64
	Priority          string
	Status            string
	Allocations       []Allocation
	CreatedAt         time.Time
	DueDate           *time.Time
	ReleasedAt        *time.Time
	AllocatedAt       *time.Time
	PickedAt          *time.Time
	ShippedAt         *time.Time
	CancelledAt       *time.Time
}

// AllocatedQty suma las reservas registradas en la orden.
func (o *Order) AllocatedQty() int64 {
	var total int64
	for _, a := range o.Allocations {
		total += a.Qty
	}
	return total
}

// FullyAllocated indica si las reservas cubren la cantidad solicitada.
func (o *Order) FullyAllocated() bool {
	return o.AllocatedQty() == o.QuantityRequested
}

// Terminal indica si la orden está en un estado final.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusShipped || o.Status == OrderStatusCancelled
}
