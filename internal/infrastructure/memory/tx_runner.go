package memory

import (
	"context"

	"github.com/jhoicas/wms-api/internal/application/ledger"
	"github.com/jhoicas/wms-api/internal/domain/entity"
	"github.com/jhoicas/wms-api/internal/domain/repository"
)

var _ ledger.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks contra el store en memoria con semántica
// transaccional: las escrituras se acumulan en etapa y se aplican todas juntas
// en el commit; ante error se descartan y los bloqueos se sueltan igual.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el runner sobre el store.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn con repos atados a una transacción en memoria.
func (r *TxRunner) Run(ctx context.Context, fn func(
	lotRepo repository.StockLotRepository,
	movRepo repository.MovementRepository,
) error) error {
	t := &tx{
		ctx:        ctx,
		store:      r.store,
		stagedLots: make(map[string]*entity.StockLot),
	}
	defer t.unlockAll()

	if err := fn(&StockLotRepo{store: r.store, tx: t}, &MovementRepo{store: r.store, tx: t}); err != nil {
		return err
	}
	t.commit()
	return nil
}

// tx acumula bloqueos adquiridos y escrituras en etapa.
type tx struct {
	ctx        context.Context
	store      *Store
	locked     []string
	stagedLots map[string]*entity.StockLot // por LotID
	stagedMovs []*entity.MovementRecord
}

// lock adquiere la clave si esta tx aún no la tiene.
func (t *tx) lock(key string) error {
	for _, k := range t.locked {
		if k == key {
			return nil
		}
	}
	if err := t.store.acquire(t.ctx, key); err != nil {
		return err
	}
	t.locked = append(t.locked, key)
	return nil
}

// commit aplica las escrituras en etapa bajo el mutex del store.
func (t *tx) commit() {
	if len(t.stagedLots) == 0 && len(t.stagedMovs) == 0 {
		return
	}
	t.store.mu.Lock()
	for _, lot := range t.stagedLots {
		cp := *lot
		t.store.lots[cp.LotID] = &cp
		t.store.lotIndex[lotKey(cp.SKU, cp.Location, cp.BatchID)] = cp.LotID
	}
	for _, mov := range t.stagedMovs {
		cp := *mov
		t.store.movements[cp.LotID] = append(t.store.movements[cp.LotID], &cp)
	}
	t.store.mu.Unlock()
}

// unlockAll suelta todos los bloqueos de la tx (commit o rollback).
func (t *tx) unlockAll() {
	for _, key := range t.locked {
		t.store.releaseLock(key)
	}
	t.locked = nil
}
