package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/wms-api/internal/domain"
	"github.com/jhoicas/wms-api/internal/domain/entity"
	"github.com/jhoicas/wms-api/internal/domain/repository"
)

// UseCase es el Stock Ledger: único dueño de StockLot y MovementRecord.
// Toda mutación de cantidades pasa por aquí dentro de una transacción con la
// fila del lote bloqueada (SELECT FOR UPDATE o mutex por lote), de modo que el
// check-and-mutate es indivisible frente a llamadores concurrentes.
type UseCase struct {
	txRunner TxRunner
	lotRepo  repository.StockLotRepository // lecturas fuera de tx
	movRepo  repository.MovementRepository // lecturas fuera de tx
	waker    Waker
	now      func() time.Time
}

// NewUseCase construye el ledger. waker puede ser nil (sin scheduler).
func NewUseCase(txRunner TxRunner, lotRepo repository.StockLotRepository, movRepo repository.MovementRepository, waker Waker) *UseCase {
	if waker == nil {
		waker = nopWaker{}
	}
	return &UseCase{
		txRunner: txRunner,
		lotRepo:  lotRepo,
		movRepo:  movRepo,
		waker:    waker,
		now:      time.Now,
	}
}

// SetWaker conecta el scheduler una vez construido (el scheduler depende de
// órdenes, que dependen del ledger; el ciclo se cierra acá en el arranque).
func (uc *UseCase) SetWaker(w Waker) {
	if w != nil {
		uc.waker = w
	}
}

// ReceiveInput entrada para una recepción ya confirmada (el documento ASN que
// la originó se valida aguas arriba; el ledger solo consume el evento).
type ReceiveInput struct {
	SKU        string
	ClientID   string
	Location   string
	BatchID    string
	ExpiryDate *time.Time
	Qty        int64
	Actor      string
}

// Receive crea o incrementa el lote de la combinación SKU/ubicación/batch y
// registra un movimiento RECEIVE. Devuelve el LotID afectado.
func (uc *UseCase) Receive(ctx context.Context, in ReceiveInput) (string, error) {
	if in.Qty <= 0 {
		return "", domain.ErrInvalidQuantity
	}
	if in.SKU == "" || in.Location == "" || in.BatchID == "" {
		return "", domain.ErrInvalidInput
	}
	var lotID string
	err := uc.txRunner.Run(ctx, func(lots repository.StockLotRepository, movs repository.MovementRepository) error {
		now := uc.now()
		lot, err := lots.GetByKeyForUpdate(in.SKU, in.Location, in.BatchID)
		if err != nil {
			return err
		}
		if lot == nil {
			lot = &entity.StockLot{
				LotID:      uuid.New().String(),
				SKU:        in.SKU,
				ClientID:   in.ClientID,
				Location:   in.Location,
				BatchID:    in.BatchID,
				ExpiryDate: in.ExpiryDate,
				LockStatus: entity.LockStatusNone,
				ReceivedAt: now,
			}
		}
		before := *lot
		lot.OnHand += in.Qty
		lot.UpdatedAt = now
		if err := lots.Upsert(lot); err != nil {
			return err
		}
		lotID = lot.LotID
		return movs.Create(&entity.MovementRecord{
			MovementID:      uuid.New().String(),
			LotID:           lot.LotID,
			Type:            entity.MovementTypeRECEIVE,
			QuantityDelta:   in.Qty,
			OnHandBefore:    before.OnHand,
			OnHandAfter:     lot.OnHand,
			AllocatedBefore: before.Allocated,
			AllocatedAfter:  lot.Allocated,
			Actor:           in.Actor,
			CreatedAt:       now,
		})
	})
	if err != nil {
		return "", err
	}
	uc.waker.Wake()
	return lotID, nil
}

// Reserve reserva qty contra una orden: verifica available >= qty y, de ser
// así, incrementa allocated y registra ALLOCATE; si no, falla con
// ErrInsufficientStock sin tocar nada. Todo o nada.
func (uc *UseCase) Reserve(ctx context.Context, lotID string, qty int64, orderRef, actor string) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return uc.txRunner.Run(ctx, func(lots repository.StockLotRepository, movs repository.MovementRepository) error {
		lot, err := lots.GetForUpdate(lotID)
		if err != nil {
			return err
		}
		if lot == nil {
			return domain.ErrNotFound
		}
		if lot.Available() < qty {
			return domain.ErrInsufficientStock
		}
		return uc.applyAllocate(lots, movs, lot, qty, orderRef, actor)
	})
}

// ReserveUpTo reserva min(maxQty, available) y devuelve la cantidad tomada.
// 0 es un resultado válido (lote sin disponible o bloqueado) y no registra
// movimiento. Es la primitiva libre de carreras para el recorrido de lotes
// del motor de asignación.
func (uc *UseCase) ReserveUpTo(ctx context.Context, lotID string, maxQty int64, orderRef, actor string) (int64, error) {
	if maxQty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	var taken int64
	err := uc.txRunner.Run(ctx, func(lots repository.StockLotRepository, movs repository.MovementRepository) error {
		lot, err := lots.GetForUpdate(lotID)
		if err != nil {
			return err
		}
		if lot == nil {
			return domain.ErrNotFound
		}
		if !lot.Allocatable() {
			return nil
		}
		taken = lot.Available()
		if taken > maxQty {
			taken = maxQty
		}
		return uc.applyAllocate(lots, movs, lot, taken, orderRef, actor)
	})
	if err != nil {
		return 0, err
	}
	return taken, nil
}

func (uc *UseCase) applyAllocate(lots repository.StockLotRepository, movs repository.MovementRepository, lot *entity.StockLot, qty int64, orderRef, actor string) error {
	now := uc.now()
	before := *lot
	lot.Allocated += qty
	lot.UpdatedAt = now
	if err := lots.Upsert(lot); err != nil {
		return err
	}
	return movs.Create(&entity.MovementRecord{
		MovementID:      uuid.New().String(),
		LotID:           lot.LotID,
		Type:            entity.MovementTypeALLOCATE,
		QuantityDelta:   qty,
		OnHandBefore:    before.OnHand,
		OnHandAfter:     lot.OnHand,
		AllocatedBefore: before.Allocated,
		AllocatedAfter:  lot.Allocated,
		OrderRef:        orderRef,
		Actor:           actor,
		CreatedAt:       now,
	})
}

// Release devuelve qty reservada al disponible (cancelación o rollback de una
// asignación parcial) y registra DEALLOCATE. Allocated nunca baja de 0.
func (uc *UseCase) Release(ctx context.Context, lotID string, qty int64, orderRef, actor string) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	err := uc.txRunner.Run(ctx, func(lots repository.StockLotRepository, movs repository.MovementRepository) error {
		lot, err := lots.GetForUpdate(lotID)
		if err != nil {
			return err
		}
		if lot == nil {
			return domain.ErrNotFound
		}
		now := uc.now()
		before := *lot
		release := qty
		if release > lot.Allocated {
			release = lot.Allocated
		}
		lot.Allocated -= release
		lot.UpdatedAt = now
		if err := lots.Upsert(lot); err != nil {
			return err
		}
		return movs.Create(&entity.MovementRecord{
			MovementID:      uuid.New().String(),
			LotID:           lot.LotID,
			Type:            entity.MovementTypeDEALLOCATE,
			QuantityDelta:   -release,
			OnHandBefore:    before.OnHand,
			OnHandAfter:     lot.OnHand,
			AllocatedBefore: before.Allocated,
			AllocatedAfter:  lot.Allocated,
			OrderRef:        orderRef,
			Actor:           actor,
			CreatedAt:       now,
		})
	})
	if err != nil {
		return err
	}
	uc.waker.Wake()
	return nil
}

// Pick registra el picking físico de stock ya reservado. No cambia cantidades
// (lo reservado pasa a estar estibado); solo auditoría. Falla con
// ErrNotAllocated si qty excede lo que ESA orden tiene reservado en el lote:
// la reserva del lote puede incluir otras órdenes y no cubre a ninguna ajena.
func (uc *UseCase) Pick(ctx context.Context, lotID string, qty int64, orderRef, actor string) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return uc.txRunner.Run(ctx, func(lots repository.StockLotRepository, movs repository.MovementRepository) error {
		lot, err := lots.GetForUpdate(lotID)
		if err != nil {
			return err
		}
		if lot == nil {
			return domain.ErrNotFound
		}
		reserved, err := movs.AllocatedByOrder(lot.LotID, orderRef)
		if err != nil {
			return err
		}
		if qty > reserved {
			return domain.ErrNotAllocated
		}
		return movs.Create(&entity.MovementRecord{
			MovementID:      uuid.New().String(),
			LotID:           lot.LotID,
			Type:            entity.MovementTypePICK,
			QuantityDelta:   0,
			OnHandBefore:    lot.OnHand,
			OnHandAfter:     lot.OnHand,
			AllocatedBefore: lot.Allocated,
			AllocatedAfter:  lot.Allocated,
			OrderRef:        orderRef,
			Actor:           actor,
			CreatedAt:       uc.now(),
		})
	})
}

// Ship despacha stock reservado: baja OnHand y Allocated por qty y registra
// SHIP. Falla con ErrNotAllocated bajo la misma condición que Pick.
func (uc *UseCase) Ship(ctx context.Context, lotID string, qty int64, orderRef, actor string) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	err := uc.txRunner.Run(ctx, func(lots repository.StockLotRepository, movs repository.MovementRepository) error {
		lot, err := lots.GetForUpdate(lotID)
		if err != nil {
			return err
		}
		if lot == nil {
			return domain.ErrNotFound
		}
		reserved, err := movs.AllocatedByOrder(lot.LotID, orderRef)
		if err != nil {
			return err
		}
		if qty > reserved {
			return domain.ErrNotAllocated
		}
		now := uc.now()
		before := *lot
		lot.OnHand -= qty
		lot.Allocated -= qty
		lot.UpdatedAt = now
		if err := lots.Upsert(lot); err != nil {
			return err
		}
		return movs.Create(&entity.MovementRecord{
			MovementID:      uuid.New().String(),
			LotID:           lot.LotID,
			Type:            entity.MovementTypeSHIP,
			QuantityDelta:   -qty,
			OnHandBefore:    before.OnHand,
			OnHandAfter:     lot.OnHand,
			AllocatedBefore: before.Allocated,
			AllocatedAfter:  lot.Allocated,
			OrderRef:        orderRef,
			Actor:           actor,
			CreatedAt:       now,
		})
	})
	if err != nil {
		return err
	}
	uc.waker.Wake()
	return nil
}

// Adjust aplica una corrección manual (conteo cíclico, merma): OnHand += delta,
// acotado para que OnHand >= Allocated; si el delta dejaría on-hand por debajo
// de lo reservado falla con ErrWouldUnderAllocate.
func (uc *UseCase) Adjust(ctx context.Context, lotID string, delta int64, reason, actor string) error {
	if delta == 0 {
		return domain.ErrInvalidQuantity
	}
	err := uc.txRunner.Run(ctx, func(lots repository.StockLotRepository, movs repository.MovementRepository) error {
		lot, err := lots.GetForUpdate(lotID)
		if err != nil {
			return err
		}
		if lot == nil {
			return domain.ErrNotFound
		}
		if lot.OnHand+delta < lot.Allocated {
			return domain.ErrWouldUnderAllocate
		}
		now := uc.now()
		before := *lot
		lot.OnHand += delta
		lot.UpdatedAt = now
		if err := lots.Upsert(lot); err != nil {
			return err
		}
		return movs.Create(&entity.MovementRecord{
			MovementID:      uuid.New().String(),
			LotID:           lot.LotID,
			Type:            entity.MovementTypeADJUST,
			QuantityDelta:   delta,
			OnHandBefore:    before.OnHand,
			OnHandAfter:     lot.OnHand,
			AllocatedBefore: before.Allocated,
			AllocatedAfter:  lot.Allocated,
			OrderRef:        reason,
			Actor:           actor,
			CreatedAt:       now,
		})
	})
	if err != nil {
		return err
	}
	if delta > 0 {
		uc.waker.Wake()
	}
	return nil
}

// GetLotStatus lista los lotes de un SKU (vista de solo lectura).
func (uc *UseCase) GetLotStatus(ctx context.Context, sku string) ([]*entity.StockLot, error) {
	if sku == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.lotRepo.ListBySKU(sku)
}

// GetMovements devuelve movimientos de un lote posteriores al cursor since,
// en orden de commit, hasta limit registros. Secuencia finita y reiniciable.
func (uc *UseCase) GetMovements(ctx context.Context, lotID string, since time.Time, limit int) ([]*entity.MovementRecord, error) {
	if lotID == "" {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return uc.movRepo.ListByLot(lotID, since, limit)
}
