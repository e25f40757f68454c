package postgres

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/wms-api/internal/domain/entity"
	"github.com/jhoicas/wms-api/internal/domain/repository"
)

var _ repository.StockLotRepository = (*StockLotRepo)(nil)

const lotColumns = `lot_id, sku, client_id, location, batch_id, expiry_date, on_hand, allocated, lock_status, received_at, updated_at`

// StockLotRepo implementación de StockLotRepository sobre PostgreSQL
// (usable con pool o tx).
type StockLotRepo struct {
	q Querier
}

// NewStockLotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLotRepository(q Querier) *StockLotRepo {
	return &StockLotRepo{q: q}
}

func scanLot(row pgx.Row) (*entity.StockLot, error) {
	var l entity.StockLot
	err := row.Scan(
		&l.LotID, &l.SKU, &l.ClientID, &l.Location, &l.BatchID, &l.ExpiryDate,
		&l.OnHand, &l.Allocated, &l.LockStatus, &l.ReceivedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapLockError(err)
	}
	return &l, nil
}

// GetByID obtiene un lote por ID. nil si no existe.
func (r *StockLotRepo) GetByID(lotID string) (*entity.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM stock_lots WHERE lot_id = $1`
	lot, err := scanLot(r.q.QueryRow(context.Background(), query, lotID))
	if err != nil {
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return lot, nil
}

// GetForUpdate obtiene el lote y bloquea la fila (SELECT FOR UPDATE). El
// lock_timeout de la tx acota la espera; al vencer retorna ErrLockTimeout.
func (r *StockLotRepo) GetForUpdate(lotID string) (*entity.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM stock_lots WHERE lot_id = $1 FOR UPDATE`
	lot, err := scanLot(r.q.QueryRow(context.Background(), query, lotID))
	if err != nil {
		// %w conserva ErrLockTimeout para errors.Is del llamador.
		return nil, fmt.Errorf("get lot for update: %w", err)
	}
	return lot, nil
}

// lotAdvisoryKey deriva la clave del advisory lock de la combinación
// SKU/ubicación/batch (FNV-64a con separador para que A|BC != AB|C).
func lotAdvisoryKey(sku, location, batchID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(sku))
	h.Write([]byte{0})
	h.Write([]byte(location))
	h.Write([]byte{0})
	h.Write([]byte(batchID))
	return int64(h.Sum64())
}

// GetByKeyForUpdate obtiene y bloquea el lote de la combinación
// SKU/ubicación/batch. nil si aún no existe. FOR UPDATE no bloquea filas
// inexistentes, así que la clave se serializa primero con un advisory lock de
// transacción: dos primeras recepciones concurrentes de la misma combinación
// se encolan aquí y la segunda ve el lote que insertó la primera. Siempre se
// toma la clave antes que la fila; quien bloquea solo por lot_id no toma la
// clave, así no hay interbloqueo. El advisory lock respeta lock_timeout.
func (r *StockLotRepo) GetByKeyForUpdate(sku, location, batchID string) (*entity.StockLot, error) {
	if _, err := r.q.Exec(context.Background(),
		`SELECT pg_advisory_xact_lock($1)`, lotAdvisoryKey(sku, location, batchID)); err != nil {
		return nil, fmt.Errorf("lock lot key: %w", mapLockError(err))
	}
	query := `SELECT ` + lotColumns + `
		FROM stock_lots WHERE sku = $1 AND location = $2 AND batch_id = $3
		FOR UPDATE`
	lot, err := scanLot(r.q.QueryRow(context.Background(), query, sku, location, batchID))
	if err != nil {
		return nil, fmt.Errorf("get lot by key for update: %w", err)
	}
	return lot, nil
}

// Upsert inserta o actualiza el lote (clave natural sku+location+batch).
func (r *StockLotRepo) Upsert(lot *entity.StockLot) error {
	query := `
		INSERT INTO stock_lots (` + lotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (sku, location, batch_id)
		DO UPDATE SET on_hand = EXCLUDED.on_hand, allocated = EXCLUDED.allocated,
			lock_status = EXCLUDED.lock_status, updated_at = now()`
	_, err := r.q.Exec(context.Background(), query,
		lot.LotID, lot.SKU, lot.ClientID, lot.Location, lot.BatchID, lot.ExpiryDate,
		lot.OnHand, lot.Allocated, lot.LockStatus, lot.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert lot: %w", mapLockError(err))
	}
	return nil
}

// ListBySKU lista todos los lotes de un SKU.
func (r *StockLotRepo) ListBySKU(sku string) ([]*entity.StockLot, error) {
	query := `SELECT ` + lotColumns + ` FROM stock_lots WHERE sku = $1
		ORDER BY received_at, lot_id`
	return r.list(query, sku)
}

// ListCandidates lista lotes asignables de un SKU en orden FEFO (vencimiento
// asc, NULLS LAST), FIFO (recepción asc) y LotID determinista. Lectura sin
// bloqueo: la reserva posterior re-verifica con la fila bloqueada.
func (r *StockLotRepo) ListCandidates(sku, clientID string) ([]*entity.StockLot, error) {
	query := `SELECT ` + lotColumns + `
		FROM stock_lots
		WHERE sku = $1 AND lock_status = 'NONE' AND on_hand > allocated`
	args := []any{sku}
	if clientID != "" {
		query += ` AND client_id = $2`
		args = append(args, clientID)
	}
	query += ` ORDER BY expiry_date ASC NULLS LAST, received_at ASC, lot_id ASC`
	return r.list(query, args...)
}

func (r *StockLotRepo) list(query string, args ...any) ([]*entity.StockLot, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()
	var out []*entity.StockLot
	for rows.Next() {
		var l entity.StockLot
		if err := rows.Scan(
			&l.LotID, &l.SKU, &l.ClientID, &l.Location, &l.BatchID, &l.ExpiryDate,
			&l.OnHand, &l.Allocated, &l.LockStatus, &l.ReceivedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
