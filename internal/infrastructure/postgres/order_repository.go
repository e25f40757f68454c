package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/wms-api/internal/domain"
	"github.com/jhoicas/wms-api/internal/domain/entity"
	"github.com/jhoicas/wms-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

const orderColumns = `order_id, order_number, sku, client_id, quantity_requested, priority, status, created_at, due_date, released_at, allocated_at, picked_at, shipped_at, cancelled_at`

// OrderRepo implementación de OrderRepository sobre PostgreSQL. Las
// asignaciones viven en order_allocations (una fila por lote, con orden de
// reserva) y se reescriben completas en cada Update. Recibe el pool y no un
// Querier: Update abre su propia transacción para que orden y asignaciones
// cambien juntas o no cambien.
type OrderRepo struct {
	pool *pgxpool.Pool
}

// NewOrderRepository construye el adaptador.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Create persiste la orden (estado inicial HOLD, sin asignaciones).
func (r *OrderRepo) Create(order *entity.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.pool.Exec(context.Background(), query,
		order.OrderID, order.OrderNumber, order.SKU, order.ClientID,
		order.QuantityRequested, order.Priority, order.Status,
		order.CreatedAt, order.DueDate,
		order.ReleasedAt, order.AllocatedAt, order.PickedAt, order.ShippedAt, order.CancelledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// GetByID obtiene la orden con sus asignaciones. nil si no existe.
func (r *OrderRepo) GetByID(orderID string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`
	var o entity.Order
	err := r.pool.QueryRow(context.Background(), query, orderID).Scan(
		&o.OrderID, &o.OrderNumber, &o.SKU, &o.ClientID,
		&o.QuantityRequested, &o.Priority, &o.Status,
		&o.CreatedAt, &o.DueDate,
		&o.ReleasedAt, &o.AllocatedAt, &o.PickedAt, &o.ShippedAt, &o.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := r.loadAllocations(&o); err != nil {
		return nil, err
	}
	return &o, nil
}

// Update persiste estado, timestamps y asignaciones en una sola transacción:
// una caída a mitad de camino no puede dejar la orden en un estado que no
// corresponda con sus filas de asignación.
func (r *OrderRepo) Update(order *entity.Order) error {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin order update: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE orders SET status = $2, priority = $3,
			released_at = $4, allocated_at = $5, picked_at = $6,
			shipped_at = $7, cancelled_at = $8
		WHERE order_id = $1`
	tag, err := tx.Exec(ctx, query,
		order.OrderID, order.Status, order.Priority,
		order.ReleasedAt, order.AllocatedAt, order.PickedAt,
		order.ShippedAt, order.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM order_allocations WHERE order_id = $1`, order.OrderID); err != nil {
		return fmt.Errorf("clear order allocations: %w", err)
	}
	for i, a := range order.Allocations {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_allocations (order_id, position, lot_id, qty, settled) VALUES ($1, $2, $3, $4, $5)`,
			order.OrderID, i, a.LotID, a.Qty, a.Settled); err != nil {
			return fmt.Errorf("insert order allocation: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order update: %w", err)
	}
	return nil
}

// ListByStatus lista órdenes por estado: prioridad desc, CreatedAt asc.
func (r *OrderRepo) ListByStatus(status string) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1
		ORDER BY CASE priority WHEN 'HIGH' THEN 0 WHEN 'MEDIUM' THEN 1 WHEN 'LOW' THEN 2 ELSE 3 END,
			created_at ASC, order_id ASC`
	rows, err := r.pool.Query(context.Background(), query, status)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var out []*entity.Order
	for rows.Next() {
		var o entity.Order
		if err := rows.Scan(
			&o.OrderID, &o.OrderNumber, &o.SKU, &o.ClientID,
			&o.QuantityRequested, &o.Priority, &o.Status,
			&o.CreatedAt, &o.DueDate,
			&o.ReleasedAt, &o.AllocatedAt, &o.PickedAt, &o.ShippedAt, &o.CancelledAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range out {
		if err := r.loadAllocations(o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *OrderRepo) loadAllocations(o *entity.Order) error {
	rows, err := r.pool.Query(context.Background(),
		`SELECT lot_id, qty, settled FROM order_allocations WHERE order_id = $1 ORDER BY position`, o.OrderID)
	if err != nil {
		return fmt.Errorf("load allocations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a entity.Allocation
		if err := rows.Scan(&a.LotID, &a.Qty, &a.Settled); err != nil {
			return fmt.Errorf("scan allocation: %w", err)
		}
		o.Allocations = append(o.Allocations, a)
	}
	return rows.Err()
}
