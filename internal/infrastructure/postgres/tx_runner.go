package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/wms-api/internal/application/ledger"
	"github.com/jhoicas/wms-api/internal/domain/repository"
)

var _ ledger.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks del ledger dentro de una transacción PostgreSQL.
// lockTimeout acota la espera de los SELECT FOR UPDATE de la tx; al vencer,
// postgres responde 55P03 y el repositorio lo traduce a ErrLockTimeout.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout string // formato de SET lock_timeout, ej. "2000ms"
}

// NewTxRunner construye el runner con el pool. lockTimeoutMS <= 0 usa 2000.
func NewTxRunner(pool *pgxpool.Pool, lockTimeoutMS int) *TxRunner {
	if lockTimeoutMS <= 0 {
		lockTimeoutMS = 2000
	}
	return &TxRunner{pool: pool, lockTimeout: fmt.Sprintf("%dms", lockTimeoutMS)}
}

// Run inicia una transacción, fija lock_timeout, ejecuta fn con repos atados a
// la tx y hace Commit o Rollback. Los contadores del lote y su movimiento de
// auditoría quedan confirmados juntos o ninguno.
func (r *TxRunner) Run(ctx context.Context, fn func(
	lotRepo repository.StockLotRepository,
	movRepo repository.MovementRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET LOCAL aplica solo a esta transacción.
	if _, err := tx.Exec(ctx, "SET LOCAL lock_timeout = '"+r.lockTimeout+"'"); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	if err := fn(NewStockLotRepository(tx), NewMovementRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
