package memory

import (
	"sort"
	"sync"

	"github.com/jhoicas/wms-api/internal/domain"
	"github.com/jhoicas/wms-api/internal/domain/entity"
	"github.com/jhoicas/wms-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo implementación en memoria de OrderRepository. La serialización de
// transiciones la da el caso de uso (mutex por orden); aquí solo se protege el
// mapa y se copian los documentos para evitar aliasing.
type OrderRepo struct {
	mu     sync.RWMutex
	orders map[string]*entity.Order
}

// NewOrderRepository construye el repositorio.
func NewOrderRepository() *OrderRepo {
	return &OrderRepo{orders: make(map[string]*entity.Order)}
}

// Create persiste la orden. Falla con ErrDuplicate si el ID ya existe.
func (r *OrderRepo) Create(order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.OrderID]; ok {
		return domain.ErrDuplicate
	}
	r.orders[order.OrderID] = copyOrder(order)
	return nil
}

// GetByID devuelve una copia de la orden. nil si no existe.
func (r *OrderRepo) GetByID(orderID string) (*entity.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	return copyOrder(order), nil
}

// Update reemplaza el documento almacenado.
func (r *OrderRepo) Update(order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.OrderID]; !ok {
		return domain.ErrNotFound
	}
	r.orders[order.OrderID] = copyOrder(order)
	return nil
}

// ListByStatus lista órdenes en un estado, prioridad desc y CreatedAt asc.
func (r *OrderRepo) ListByStatus(status string) ([]*entity.Order, error) {
	r.mu.RLock()
	var out []*entity.Order
	for _, o := range r.orders {
		if o.Status == status {
			out = append(out, copyOrder(o))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ri, rj := entity.PriorityRank(out[i].Priority), entity.PriorityRank(out[j].Priority)
		if ri != rj {
			return ri < rj
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out, nil
}

func copyOrder(o *entity.Order) *entity.Order {
	cp := *o
	if o.Allocations != nil {
		cp.Allocations = make([]entity.Allocation, len(o.Allocations))
		copy(cp.Allocations, o.Allocations)
	}
	return &cp
}
