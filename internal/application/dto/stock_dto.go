package dto

import (
	"time"

	"github.com/jhoicas/wms-api/internal/domain/entity"
)

// ReceiveStockRequest body para POST /api/stock/receive.
type ReceiveStockRequest struct {
	SKU        string     `json:"sku"`
	ClientID   string     `json:"client_id"`
	Location   string     `json:"location"`
	BatchID    string     `json:"batch_id"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Qty        int64      `json:"qty"`
}

// AdjustStockRequest body para POST /api/stock/lots/:lotId/adjust.
type AdjustStockRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

// StockLotDTO vista de un lote para la API.
type StockLotDTO struct {
	LotID      string     `json:"lot_id"`
	SKU        string     `json:"sku"`
	ClientID   string     `json:"client_id"`
	Location   string     `json:"location"`
	BatchID    string     `json:"batch_id"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	OnHand     int64      `json:"on_hand"`
	Allocated  int64      `json:"allocated"`
	Available  int64      `json:"available"`
	LockStatus string     `json:"lock_status"`
	ReceivedAt time.Time  `json:"received_at"`
}

// NewStockLotDTO arma la vista desde la entidad.
func NewStockLotDTO(l *entity.StockLot) StockLotDTO {
	return StockLotDTO{
		LotID:      l.LotID,
		SKU:        l.SKU,
		ClientID:   l.ClientID,
		Location:   l.Location,
		BatchID:    l.BatchID,
		ExpiryDate: l.ExpiryDate,
		OnHand:     l.OnHand,
		Allocated:  l.Allocated,
		Available:  l.Available(),
		LockStatus: l.LockStatus,
		ReceivedAt: l.ReceivedAt,
	}
}

// MovementDTO vista de un movimiento para la API.
type MovementDTO struct {
	MovementID      string    `json:"movement_id"`
	LotID           string    `json:"lot_id"`
	Type            string    `json:"type"`
	QuantityDelta   int64     `json:"quantity_delta"`
	OnHandBefore    int64     `json:"on_hand_before"`
	OnHandAfter     int64     `json:"on_hand_after"`
	AllocatedBefore int64     `json:"allocated_before"`
	AllocatedAfter  int64     `json:"allocated_after"`
	OrderRef        string    `json:"order_ref,omitempty"`
	Actor           string    `json:"actor"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewMovementDTO arma la vista desde la entidad.
func NewMovementDTO(m *entity.MovementRecord) MovementDTO {
	return MovementDTO{
		MovementID:      m.MovementID,
		LotID:           m.LotID,
		Type:            m.Type,
		QuantityDelta:   m.QuantityDelta,
		OnHandBefore:    m.OnHandBefore,
		OnHandAfter:     m.OnHandAfter,
		AllocatedBefore: m.AllocatedBefore,
		AllocatedAfter:  m.AllocatedAfter,
		OrderRef:        m.OrderRef,
		Actor:           m.Actor,
		CreatedAt:       m.CreatedAt,
	}
}
