package ledger

import (
	"context"

	"github.com/jhoicas/wms-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios
// atados a esa tx. Garantiza que los contadores del lote y el movimiento de
// auditoría se confirman juntos o ninguno (atomicidad del ledger).
type TxRunner interface {
	Run(ctx context.Context, fn func(
		lotRepo repository.StockLotRepository,
		movRepo repository.MovementRepository,
	) error) error
}

// Waker despierta al scheduler de auto-release cuando un evento del ledger
// puede haber liberado disponibilidad (receive/ship/release).
type Waker interface {
	Wake()
}

// nopWaker se usa cuando no hay scheduler conectado (tests, herramientas).
type nopWaker struct{}

func (nopWaker) Wake() {}
