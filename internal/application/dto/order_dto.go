package dto

import (
	"time"

	"github.com/jhoicas/wms-api/internal/domain/entity"
)

// CreateOrderRequest body para POST /api/orders.
type CreateOrderRequest struct {
	OrderNumber string     `json:"order_number"`
	SKU         string     `json:"sku"`
	ClientID    string     `json:"client_id"`
	Qty         int64      `json:"qty"`
	Priority    string     `json:"priority,omitempty"` // HIGH | MEDIUM | LOW
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// AllocationDTO una reserva de la orden sobre un lote. Settled indica que el
// efecto terminal (ship o release) ya quedó confirmado en el ledger.
type AllocationDTO struct {
	LotID   string `json:"lot_id"`
	Qty     int64  `json:"qty"`
	Settled bool   `json:"settled,omitempty"`
}

// OrderDTO vista de una orden para la API.
type OrderDTO struct {
	OrderID           string          `json:"order_id"`
	OrderNumber       string          `json:"order_number"`
	SKU               string          `json:"sku"`
	ClientID          string          `json:"client_id"`
	QuantityRequested int64           `json:"quantity_requested"`
	Priority          string          `json:"priority"`
	Status            string          `json:"status"`
	Allocations       []AllocationDTO `json:"allocations,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	ReleasedAt        *time.Time      `json:"released_at,omitempty"`
	AllocatedAt       *time.Time      `json:"allocated_at,omitempty"`
	PickedAt          *time.Time      `json:"picked_at,omitempty"`
	ShippedAt         *time.Time      `json:"shipped_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
}

// NewOrderDTO arma la vista desde la entidad.
func NewOrderDTO(o *entity.Order) OrderDTO {
	d := OrderDTO{
		OrderID:           o.OrderID,
		OrderNumber:       o.OrderNumber,
		SKU:               o.SKU,
		ClientID:          o.ClientID,
		QuantityRequested: o.QuantityRequested,
		Priority:          o.Priority,
		Status:            o.Status,
		CreatedAt:         o.CreatedAt,
		DueDate:           o.DueDate,
		ReleasedAt:        o.ReleasedAt,
		AllocatedAt:       o.AllocatedAt,
		PickedAt:          o.PickedAt,
		ShippedAt:         o.ShippedAt,
		CancelledAt:       o.CancelledAt,
	}
	for _, a := range o.Allocations {
		d.Allocations = append(d.Allocations, AllocationDTO{LotID: a.LotID, Qty: a.Qty, Settled: a.Settled})
	}
	return d
}
