// Package allocation implementa el motor de asignación: decide qué lotes
// satisfacen la cantidad pedida por una orden y los reserva a través del
// Stock Ledger. No tiene estado propio.
package allocation

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jhoicas/wms-api/internal/application/ledger"
	"github.com/jhoicas/wms-api/internal/application/ports"
	"github.com/jhoicas/wms-api/internal/domain"
	"github.com/jhoicas/wms-api/internal/domain/entity"
	"github.com/jhoicas/wms-api/internal/domain/repository"
)

// Engine recorre los lotes candidatos en orden FEFO/FIFO reservando contra el
// ledger. Nunca mantiene un bloqueo a través de varios lotes: cada reserva es
// una transacción propia, así dos órdenes compitiendo por los mismos lotes no
// pueden interbloquearse (una puede perder con ErrInsufficientStock, que es el
// resultado esperado, no una falla).
type Engine struct {
	ledger  *ledger.UseCase
	lotRepo repository.StockLotRepository
	skus    ports.SKUDirectory
	log     zerolog.Logger
}

// NewEngine construye el motor.
func NewEngine(l *ledger.UseCase, lotRepo repository.StockLotRepository, skus ports.SKUDirectory, log zerolog.Logger) *Engine {
	return &Engine{ledger: l, lotRepo: lotRepo, skus: skus, log: log}
}

// Allocate intenta cubrir QuantityRequested de la orden con lotes del SKU
// (restringidos al cliente si la orden lo indica). Política todo-o-nada por
// orden: si los candidatos no alcanzan, toda reserva parcial tomada durante el
// recorrido se revierte vía Release y se retorna ErrInsufficientStock. En
// éxito devuelve los pares (lote, cantidad) en el orden en que se reservaron;
// escribirlos en la orden es responsabilidad del llamador (máquina de estados).
func (e *Engine) Allocate(ctx context.Context, order *entity.Order, actor string) ([]entity.Allocation, error) {
	if order.QuantityRequested <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	// Un SKU restringido por cliente solo se sirve desde lotes de ese cliente.
	restricted, err := e.skus.ClientRestricted(order.SKU)
	if err != nil {
		return nil, err
	}
	clientFilter := ""
	if restricted {
		clientFilter = order.ClientID
	}

	// Foto sin bloqueo de los candidatos; la reserva real re-verifica el
	// disponible con la fila bloqueada.
	candidates, err := e.lotRepo.ListCandidates(order.SKU, clientFilter)
	if err != nil {
		return nil, err
	}

	var taken []entity.Allocation
	remaining := order.QuantityRequested
	for _, lot := range candidates {
		if remaining == 0 {
			break
		}
		got, err := e.ledger.ReserveUpTo(ctx, lot.LotID, remaining, order.OrderID, actor)
		if err != nil {
			// LockTimeout u otra falla a mitad del recorrido: revertir lo
			// tomado en esta misma llamada antes de propagar.
			e.rollback(ctx, taken, order.OrderID, actor)
			return nil, err
		}
		if got == 0 {
			continue
		}
		taken = append(taken, entity.Allocation{LotID: lot.LotID, Qty: got})
		remaining -= got
	}

	if remaining > 0 {
		e.rollback(ctx, taken, order.OrderID, actor)
		return nil, domain.ErrInsufficientStock
	}
	return taken, nil
}

// rollback libera las reservas parciales de esta llamada. Una liberación que
// falle se registra y se continúa: dejar una reserva huérfana es preferible a
// perder el resto del rollback.
func (e *Engine) rollback(ctx context.Context, taken []entity.Allocation, orderRef, actor string) {
	for _, a := range taken {
		if err := e.ledger.Release(ctx, a.LotID, a.Qty, orderRef, actor); err != nil && !errors.Is(err, domain.ErrNotFound) {
			e.log.Error().Err(err).
				Str("lot_id", a.LotID).
				Str("order_id", orderRef).
				Int64("qty", a.Qty).
				Msg("rollback de reserva parcial falló")
		}
	}
}
