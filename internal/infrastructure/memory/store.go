// Package memory implementa la infraestructura del ledger en memoria:
// repositorios y TxRunner con bloqueo por lote y escrituras en etapa que se
// confirman o descartan atómicamente. Se usa en tests y en modo dev sin
// PostgreSQL; las garantías de concurrencia son las mismas que las del
// adaptador de postgres (serialización por lote, timeout de bloqueo).
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/wms-api/internal/domain"
	"github.com/jhoicas/wms-api/internal/domain/entity"
)

// Store guarda el estado confirmado y los semáforos por lote.
type Store struct {
	mu        sync.RWMutex
	lots      map[string]*entity.StockLot         // por LotID
	lotIndex  map[string]string                   // sku|location|batch -> LotID
	movements map[string][]*entity.MovementRecord // por LotID, en orden de commit

	semMu sync.Mutex
	sems  map[string]chan struct{} // semáforo binario por clave de bloqueo

	lockTimeout time.Duration
}

// NewStore construye el store. lockTimeout <= 0 usa 2s.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 2 * time.Second
	}
	return &Store{
		lots:        make(map[string]*entity.StockLot),
		lotIndex:    make(map[string]string),
		movements:   make(map[string][]*entity.MovementRecord),
		sems:        make(map[string]chan struct{}),
		lockTimeout: lockTimeout,
	}
}

func lotKey(sku, location, batchID string) string {
	return strings.Join([]string{sku, location, batchID}, "|")
}

// acquire toma el semáforo de la clave o falla con ErrLockTimeout.
func (s *Store) acquire(ctx context.Context, key string) error {
	s.semMu.Lock()
	sem, ok := s.sems[key]
	if !ok {
		sem = make(chan struct{}, 1)
		s.sems[key] = sem
	}
	s.semMu.Unlock()

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()
	select {
	case sem <- struct{}{}:
		return nil
	case <-timer.C:
		return domain.ErrLockTimeout
	case <-ctx.Done():
		return domain.ErrLockTimeout
	}
}

// releaseLock suelta el semáforo de la clave.
func (s *Store) releaseLock(key string) {
	s.semMu.Lock()
	sem := s.sems[key]
	s.semMu.Unlock()
	if sem != nil {
		<-sem
	}
}

// snapshotLot devuelve una copia del lote confirmado. nil si no existe.
func (s *Store) snapshotLot(lotID string) *entity.StockLot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return nil
	}
	cp := *lot
	return &cp
}

// listLots devuelve copias de los lotes que pasan el filtro.
func (s *Store) listLots(filter func(*entity.StockLot) bool) []*entity.StockLot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.StockLot
	for _, lot := range s.lots {
		if filter(lot) {
			cp := *lot
			out = append(out, &cp)
		}
	}
	return out
}

// listMovements devuelve movimientos de un lote con CreatedAt > since, en
// orden de commit, hasta limit.
func (s *Store) listMovements(lotID string, since time.Time, limit int) []*entity.MovementRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.MovementRecord
	for _, m := range s.movements[lotID] {
		if !m.CreatedAt.After(since) {
			continue
		}
		cp := *m
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// sortCandidates ordena lotes FEFO (vencimiento asc, nulos al final), luego
// FIFO (recepción asc) y LotID como desempate determinista.
func sortCandidates(lots []*entity.StockLot) {
	sort.Slice(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		switch {
		case a.ExpiryDate != nil && b.ExpiryDate == nil:
			return true
		case a.ExpiryDate == nil && b.ExpiryDate != nil:
			return false
		case a.ExpiryDate != nil && b.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		return a.LotID < b.LotID
	})
}
