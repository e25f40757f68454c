package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/wms-api/internal/domain/entity"
	"github.com/jhoicas/wms-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `movement_id, lot_id, type, quantity_delta, on_hand_before, on_hand_after, allocated_before, allocated_after, order_ref, actor, created_at`

// MovementRepo implementación del log de movimientos sobre PostgreSQL
// (usable con pool o tx). La tabla es append-only: sin UPDATE ni DELETE.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste un movimiento.
func (r *MovementRepo) Create(mov *entity.MovementRecord) error {
	if mov.MovementID == "" {
		mov.MovementID = uuid.New().String()
	}
	query := `
		INSERT INTO movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	orderRef := (*string)(nil)
	if mov.OrderRef != "" {
		orderRef = &mov.OrderRef
	}
	_, err := r.q.Exec(context.Background(), query,
		mov.MovementID, mov.LotID, mov.Type, mov.QuantityDelta,
		mov.OnHandBefore, mov.OnHandAfter, mov.AllocatedBefore, mov.AllocatedAfter,
		orderRef, mov.Actor, mov.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create movement: %w", err)
	}
	return nil
}

// AllocatedByOrder suma ALLOCATE - DEALLOCATE - SHIP del order_ref sobre el
// lote: la reserva vigente de esa orden, derivada del log.
func (r *MovementRepo) AllocatedByOrder(lotID, orderRef string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(quantity_delta), 0)
		FROM movements
		WHERE lot_id = $1 AND order_ref = $2 AND type IN ('ALLOCATE', 'DEALLOCATE', 'SHIP')`
	var total int64
	if err := r.q.QueryRow(context.Background(), query, lotID, orderRef).Scan(&total); err != nil {
		return 0, fmt.Errorf("allocated by order: %w", err)
	}
	return total, nil
}

// ListByLot lista movimientos de un lote con created_at posterior al cursor,
// en orden de commit ascendente, hasta limit registros.
func (r *MovementRepo) ListByLot(lotID string, since time.Time, limit int) ([]*entity.MovementRecord, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM movements
		WHERE lot_id = $1 AND created_at > $2
		ORDER BY created_at ASC, movement_id ASC
		LIMIT $3`
	rows, err := r.q.Query(context.Background(), query, lotID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var out []*entity.MovementRecord
	for rows.Next() {
		var m entity.MovementRecord
		var orderRef *string
		if err := rows.Scan(
			&m.MovementID, &m.LotID, &m.Type, &m.QuantityDelta,
			&m.OnHandBefore, &m.OnHandAfter, &m.AllocatedBefore, &m.AllocatedAfter,
			&orderRef, &m.Actor, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		if orderRef != nil {
			m.OrderRef = *orderRef
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
