package memory

import (
	"time"

	"github.com/jhoicas/wms-api/internal/domain"
	"github.com/jhoicas/wms-api/internal/domain/entity"
	"github.com/jhoicas/wms-api/internal/domain/repository"
)

var _ repository.StockLotRepository = (*StockLotRepo)(nil)

// StockLotRepo implementación en memoria de StockLotRepository. Con tx nil
// funciona en modo solo lectura (las variantes ForUpdate requieren tx).
type StockLotRepo struct {
	store *Store
	tx    *tx
}

// NewStockLotRepository construye el repositorio de solo lectura (sin tx).
func NewStockLotRepository(store *Store) *StockLotRepo {
	return &StockLotRepo{store: store}
}

// GetByID obtiene una copia del lote confirmado. nil si no existe.
func (r *StockLotRepo) GetByID(lotID string) (*entity.StockLot, error) {
	if r.tx != nil {
		if staged, ok := r.tx.stagedLots[lotID]; ok {
			cp := *staged
			return &cp, nil
		}
	}
	return r.store.snapshotLot(lotID), nil
}

// GetForUpdate bloquea el lote para mutación dentro de la tx y devuelve una
// copia. nil si no existe.
func (r *StockLotRepo) GetForUpdate(lotID string) (*entity.StockLot, error) {
	if r.tx == nil {
		return nil, domain.ErrInvalidInput // solo dentro de una transacción
	}
	if err := r.tx.lock("lot:" + lotID); err != nil {
		return nil, err
	}
	return r.GetByID(lotID)
}

// GetByKeyForUpdate bloquea la combinación SKU/ubicación/batch (y el lote, si
// existe) y devuelve una copia. nil si la combinación aún no tiene lote.
func (r *StockLotRepo) GetByKeyForUpdate(sku, location, batchID string) (*entity.StockLot, error) {
	if r.tx == nil {
		return nil, domain.ErrInvalidInput
	}
	key := lotKey(sku, location, batchID)
	// La clave se bloquea antes que el lote, siempre en ese orden; quien solo
	// reserva toma únicamente el bloqueo del lote, así no hay interbloqueo.
	if err := r.tx.lock("key:" + key); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	lotID, ok := r.store.lotIndex[key]
	r.store.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetForUpdate(lotID)
}

// Upsert deja el lote en etapa; se confirma en el commit de la tx.
func (r *StockLotRepo) Upsert(lot *entity.StockLot) error {
	if r.tx == nil {
		return domain.ErrInvalidInput
	}
	cp := *lot
	r.tx.stagedLots[cp.LotID] = &cp
	return nil
}

// ListBySKU lista todos los lotes de un SKU ordenados por recepción.
func (r *StockLotRepo) ListBySKU(sku string) ([]*entity.StockLot, error) {
	lots := r.store.listLots(func(l *entity.StockLot) bool { return l.SKU == sku })
	sortCandidates(lots)
	return lots, nil
}

// ListCandidates lista lotes asignables de un SKU en orden FEFO/FIFO/LotID.
func (r *StockLotRepo) ListCandidates(sku, clientID string) ([]*entity.StockLot, error) {
	lots := r.store.listLots(func(l *entity.StockLot) bool {
		if l.SKU != sku || !l.Allocatable() {
			return false
		}
		return clientID == "" || l.ClientID == clientID
	})
	sortCandidates(lots)
	return lots, nil
}

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación en memoria del log de movimientos.
type MovementRepo struct {
	store *Store
	tx    *tx
}

// NewMovementRepository construye el repositorio de solo lectura (sin tx).
func NewMovementRepository(store *Store) *MovementRepo {
	return &MovementRepo{store: store}
}

// Create deja el movimiento en etapa; se confirma con el commit de la tx.
func (r *MovementRepo) Create(mov *entity.MovementRecord) error {
	if r.tx == nil {
		return domain.ErrInvalidInput
	}
	cp := *mov
	r.tx.stagedMovs = append(r.tx.stagedMovs, &cp)
	return nil
}

// ListByLot lista movimientos confirmados del lote posteriores a since.
func (r *MovementRepo) ListByLot(lotID string, since time.Time, limit int) ([]*entity.MovementRecord, error) {
	return r.store.listMovements(lotID, since, limit), nil
}

// AllocatedByOrder suma ALLOCATE - DEALLOCATE - SHIP del order_ref sobre el
// lote (confirmados más los en etapa de esta tx).
func (r *MovementRepo) AllocatedByOrder(lotID, orderRef string) (int64, error) {
	var total int64
	add := func(m *entity.MovementRecord) {
		if m.LotID != lotID || m.OrderRef != orderRef {
			return
		}
		switch m.Type {
		case entity.MovementTypeALLOCATE, entity.MovementTypeDEALLOCATE, entity.MovementTypeSHIP:
			total += m.QuantityDelta
		}
	}
	r.store.mu.RLock()
	for _, m := range r.store.movements[lotID] {
		add(m)
	}
	r.store.mu.RUnlock()
	if r.tx != nil {
		for _, m := range r.tx.stagedMovs {
			add(m)
		}
	}
	return total, nil
}
