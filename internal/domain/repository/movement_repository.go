package repository

import (
	"time"

	"github.com/jhoicas/wms-api/internal/domain/entity"
)

// MovementRepository log de movimientos append-only. Nunca se muta ni borra.
type MovementRepository interface {
	// Create persiste un movimiento.
	Create(mov *entity.MovementRecord) error
	// ListByLot lista movimientos de un lote con CreatedAt > since, en orden
	// de commit ascendente, hasta limit registros. El cursor since permite
	// recorrer el historial completo en páginas reiniciables.
	ListByLot(lotID string, since time.Time, limit int) ([]*entity.MovementRecord, error)
	// AllocatedByOrder deriva del log la reserva vigente de una orden sobre un
	// lote: suma de deltas ALLOCATE - DEALLOCATE - SHIP con ese order_ref.
	// Permite validar pick/ship contra lo que reservó ESA orden y no contra el
	// total del lote (que puede incluir reservas de otras órdenes).
	AllocatedByOrder(lotID, orderRef string) (int64, error)
}
