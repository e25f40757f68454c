// Package orders implementa la máquina de estados de órdenes de salida:
// HOLD -> RELEASED -> ALLOCATED -> PICKED -> SHIPPED, con CANCELLED alcanzable
// hasta ALLOCATED. Es el único punto de entrada de mutación de órdenes.
package orders

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/wms-api/internal/application/allocation"
	"github.com/jhoicas/wms-api/internal/application/ledger"
	"github.com/jhoicas/wms-api/internal/application/ports"
	"github.com/jhoicas/wms-api/internal/domain"
	"github.com/jhoicas/wms-api/internal/domain/entity"
	domorder "github.com/jhoicas/wms-api/internal/domain/order"
	"github.com/jhoicas/wms-api/internal/domain/repository"
)

// UseCase gobierna el ciclo de vida de las órdenes. Los efectos de cantidad se
// delegan al motor de asignación y al ledger; aquí solo se validan aristas y
// se persiste la orden.
type UseCase struct {
	orderRepo repository.OrderRepository
	engine    *allocation.Engine
	ledger    *ledger.UseCase
	skus      ports.SKUDirectory
	log       zerolog.Logger
	now       func() time.Time

	// Serializa la mutación por orden: todas las transiciones de una misma
	// orden pasan por esta entrada, así el documento Order no necesita más
	// bloqueo que éste.
	mu       sync.Mutex
	orderMus map[string]*sync.Mutex
}

// NewUseCase construye el caso de uso de órdenes.
func NewUseCase(orderRepo repository.OrderRepository, engine *allocation.Engine, l *ledger.UseCase, skus ports.SKUDirectory, log zerolog.Logger) *UseCase {
	return &UseCase{
		orderRepo: orderRepo,
		engine:    engine,
		ledger:    l,
		skus:      skus,
		log:       log,
		now:       time.Now,
		orderMus:  make(map[string]*sync.Mutex),
	}
}

// CreateOrderInput entrada para crear una orden (evento de creación ya
// validado documentalmente aguas arriba).
type CreateOrderInput struct {
	OrderNumber string
	SKU         string
	ClientID    string
	Qty         int64
	Priority    string
	DueDate     *time.Time
}

// CreateOrder crea la orden en estado inicial HOLD y devuelve su ID.
func (uc *UseCase) CreateOrder(ctx context.Context, in CreateOrderInput) (string, error) {
	if in.Qty <= 0 {
		return "", domain.ErrInvalidQuantity
	}
	if in.OrderNumber == "" || in.SKU == "" || in.ClientID == "" {
		return "", domain.ErrInvalidInput
	}
	switch in.Priority {
	case entity.PriorityHigh, entity.PriorityMedium, entity.PriorityLow:
	case "":
		in.Priority = entity.PriorityMedium
	default:
		return "", domain.ErrInvalidInput
	}
	ok, err := uc.skus.Exists(in.SKU)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrNotFound
	}
	allowed, err := uc.skus.AllowedForClient(in.SKU, in.ClientID)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", domain.ErrForbidden
	}

	order := &entity.Order{
		OrderID:           uuid.New().String(),
		OrderNumber:       in.OrderNumber,
		SKU:               in.SKU,
		ClientID:          in.ClientID,
		QuantityRequested: in.Qty,
		Priority:          in.Priority,
		Status:            entity.OrderStatusHold,
		CreatedAt:         uc.now(),
		DueDate:           in.DueDate,
	}
	if err := uc.orderRepo.Create(order); err != nil {
		return "", err
	}
	return order.OrderID, nil
}

// GetOrder obtiene una orden por ID.
func (uc *UseCase) GetOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	order, err := uc.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// Transition aplica un evento de la máquina de estados sobre la orden y
// devuelve el estado resultante. Una arista no listada en la tabla falla con
// ErrInvalidStateTransition y deja la orden intacta.
func (uc *UseCase) Transition(ctx context.Context, orderID, event, actor string) (string, error) {
	if !domorder.ValidEvent(event) {
		return "", domain.ErrInvalidInput
	}
	unlock := uc.lockOrder(orderID)
	defer unlock()

	order, err := uc.orderRepo.GetByID(orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", domain.ErrNotFound
	}
	next, err := domorder.Next(order.Status, event)
	if err != nil {
		return "", err
	}

	now := uc.now()
	switch event {
	case domorder.EventRelease:
		order.Status = next
		order.ReleasedAt = &now

	case domorder.EventAllocate:
		allocs, err := uc.engine.Allocate(ctx, order, actor)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				// Resultado de negocio esperado: la orden vuelve a HOLD para
				// que el operador la vea bloqueada por stock y el scheduler
				// la reintente cuando entre mercadería.
				order.Status = entity.OrderStatusHold
				order.ReleasedAt = nil
				if uerr := uc.orderRepo.Update(order); uerr != nil {
					return "", uerr
				}
			}
			return "", err
		}
		order.Allocations = allocs
		order.Status = next
		order.AllocatedAt = &now

	case domorder.EventPick:
		for _, a := range order.Allocations {
			if err := uc.ledger.Pick(ctx, a.LotID, a.Qty, order.OrderID, actor); err != nil {
				return "", err
			}
		}
		order.Status = next
		order.PickedAt = &now

	case domorder.EventShip:
		// Cada Ship confirma en su propia transacción; el avance se asienta en
		// la orden lote a lote. Si un lote posterior falla (p. ej. por
		// ErrLockTimeout) la orden queda en PICKED con los ya despachados
		// marcados, y el reintento los omite en vez de despacharlos dos veces.
		for i := range order.Allocations {
			a := &order.Allocations[i]
			if a.Settled {
				continue
			}
			if err := uc.ledger.Ship(ctx, a.LotID, a.Qty, order.OrderID, actor); err != nil {
				return "", err
			}
			a.Settled = true
			if uerr := uc.orderRepo.Update(order); uerr != nil {
				return "", uerr
			}
		}
		order.Status = next
		order.ShippedAt = &now

	case domorder.EventCancel:
		// Libera exactamente lo reservado en cada lote de origen, con el mismo
		// asiento por lote que el despacho: un reintento tras un fallo parcial
		// omite los ya liberados y no puede drenar reservas de otras órdenes
		// sobre el mismo lote.
		for i := range order.Allocations {
			a := &order.Allocations[i]
			if a.Settled {
				continue
			}
			if err := uc.ledger.Release(ctx, a.LotID, a.Qty, order.OrderID, actor); err != nil {
				return "", err
			}
			a.Settled = true
			if uerr := uc.orderRepo.Update(order); uerr != nil {
				return "", uerr
			}
		}
		order.Allocations = nil
		order.Status = next
		order.CancelledAt = &now
	}

	if err := uc.orderRepo.Update(order); err != nil {
		if event == domorder.EventAllocate {
			// No quedó constancia de la asignación en la orden: devolver las
			// reservas al disponible para no dejarlas huérfanas.
			for _, a := range order.Allocations {
				if rerr := uc.ledger.Release(ctx, a.LotID, a.Qty, order.OrderID, actor); rerr != nil {
					uc.log.Error().Err(rerr).Str("order_id", order.OrderID).Str("lot_id", a.LotID).Msg("liberación compensatoria falló")
				}
			}
		}
		return "", err
	}
	return order.Status, nil
}

// ListHeld lista las órdenes en HOLD en orden de atención del scheduler.
func (uc *UseCase) ListHeld(ctx context.Context) ([]*entity.Order, error) {
	return uc.orderRepo.ListByStatus(entity.OrderStatusHold)
}

// ListReleased lista las órdenes en RELEASED (liberadas pero aún sin asignar,
// p. ej. por un release manual o un allocate que perdió por contención).
func (uc *UseCase) ListReleased(ctx context.Context) ([]*entity.Order, error) {
	return uc.orderRepo.ListByStatus(entity.OrderStatusReleased)
}

// lockOrder adquiere el mutex de la orden y devuelve la función de liberación.
func (uc *UseCase) lockOrder(orderID string) func() {
	uc.mu.Lock()
	m, ok := uc.orderMus[orderID]
	if !ok {
		m = &sync.Mutex{}
		uc.orderMus[orderID] = m
	}
	uc.mu.Unlock()
	m.Lock()
	return m.Unlock
}
