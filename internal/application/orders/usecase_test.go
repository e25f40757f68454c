package orders_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/wms-api/internal/application/allocation"
	"github.com/jhoicas/wms-api/internal/application/ledger"
	"github.com/jhoicas/wms-api/internal/application/orders"
	"github.com/jhoicas/wms-api/internal/domain"
	"github.com/jhoicas/wms-api/internal/domain/entity"
	domorder "github.com/jhoicas/wms-api/internal/domain/order"
	"github.com/jhoicas/wms-api/internal/domain/repository"
	"github.com/jhoicas/wms-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type ordersFixture struct {
	uc     *orders.UseCase
	ledger *ledger.UseCase
	runner *memory.TxRunner
	lots   *memory.StockLotRepo
	skus   *memory.SKUDirectory
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()
	return newOrdersFixtureTimeout(t, 0)
}

func newOrdersFixtureTimeout(t *testing.T, lockTimeout time.Duration) *ordersFixture {
	t.Helper()
	store := memory.NewStore(lockTimeout)
	runner := memory.NewTxRunner(store)
	lots := memory.NewStockLotRepository(store)
	movs := memory.NewMovementRepository(store)
	skus := memory.NewSKUDirectory()
	l := ledger.NewUseCase(runner, lots, movs, nil)
	engine := allocation.NewEngine(l, lots, skus, zerolog.Nop())
	return &ordersFixture{
		uc:     orders.NewUseCase(memory.NewOrderRepository(), engine, l, skus, zerolog.Nop()),
		ledger: l,
		runner: runner,
		lots:   lots,
		skus:   skus,
	}
}

// holdLot retiene el bloqueo del lote en una goroutine hasta que se cierre el
// canal devuelto. Espera a tener el bloqueo tomado antes de retornar.
func (f *ordersFixture) holdLot(t *testing.T, lotID string) (release func()) {
	t.Helper()
	held := make(chan struct{})
	releaseHold := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.runner.Run(context.Background(), func(lots repository.StockLotRepository, _ repository.MovementRepository) error {
			if _, err := lots.GetForUpdate(lotID); err != nil {
				return err
			}
			close(held)
			<-releaseHold
			return nil
		})
	}()
	<-held
	return func() {
		close(releaseHold)
		<-done
	}
}

func (f *ordersFixture) receive(t *testing.T, sku, batch string, qty int64) string {
	t.Helper()
	lotID, err := f.ledger.Receive(context.Background(), ledger.ReceiveInput{
		SKU: sku, ClientID: "c1", Location: "A-01-01", BatchID: batch, Qty: qty, Actor: "tester",
	})
	require.NoError(t, err)
	return lotID
}

func (f *ordersFixture) createOrder(t *testing.T, number, sku string, qty int64, priority string) string {
	t.Helper()
	orderID, err := f.uc.CreateOrder(context.Background(), orders.CreateOrderInput{
		OrderNumber: number, SKU: sku, ClientID: "c1", Qty: qty, Priority: priority,
	})
	require.NoError(t, err)
	return orderID
}

func (f *ordersFixture) order(t *testing.T, orderID string) *entity.Order {
	t.Helper()
	o, err := f.uc.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	return o
}

func (f *ordersFixture) lotCounters(t *testing.T, lotID string) (onHand, allocated int64) {
	t.Helper()
	lot, err := f.lots.GetByID(lotID)
	require.NoError(t, err)
	require.NotNil(t, lot)
	return lot.OnHand, lot.Allocated
}

// ──────────────────────────────────────────────────────────────────────────────
// Creación de órdenes
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateOrder_NaceEnHold(t *testing.T) {
	f := newOrdersFixture(t)
	f.skus.Register("SKU-A")

	orderID := f.createOrder(t, "ORD-001", "SKU-A", 50, "")
	o := f.order(t, orderID)
	assert.Equal(t, entity.OrderStatusHold, o.Status, "toda orden nace en HOLD")
	assert.Equal(t, entity.PriorityMedium, o.Priority, "sin prioridad explícita queda MEDIUM")
	assert.Empty(t, o.Allocations)
	assert.Nil(t, o.ReleasedAt)
}

func TestCreateOrder_Validaciones(t *testing.T) {
	f := newOrdersFixture(t)
	f.skus.Register("SKU-A")
	f.skus.Register("SKU-R", "c2") // restringido a otro cliente
	ctx := context.Background()

	_, err := f.uc.CreateOrder(ctx, orders.CreateOrderInput{OrderNumber: "O", SKU: "SKU-A", ClientID: "c1", Qty: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.uc.CreateOrder(ctx, orders.CreateOrderInput{OrderNumber: "", SKU: "SKU-A", ClientID: "c1", Qty: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.CreateOrder(ctx, orders.CreateOrderInput{OrderNumber: "O", SKU: "SKU-A", ClientID: "c1", Qty: 1, Priority: "URGENT"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "prioridad fuera del catálogo")

	_, err = f.uc.CreateOrder(ctx, orders.CreateOrderInput{OrderNumber: "O", SKU: "SKU-X", ClientID: "c1", Qty: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound, "SKU no dado de alta")

	_, err = f.uc.CreateOrder(ctx, orders.CreateOrderInput{OrderNumber: "O", SKU: "SKU-R", ClientID: "c1", Qty: 1})
	assert.ErrorIs(t, err, domain.ErrForbidden, "el cliente no puede ordenar un SKU restringido a otro")
}

// ──────────────────────────────────────────────────────────────────────────────
// Ciclo de vida completo: HOLD -> RELEASED -> ALLOCATED -> PICKED -> SHIPPED
// ──────────────────────────────────────────────────────────────────────────────

func TestTransition_CicloCompletoHastaShipped(t *testing.T) {
	f := newOrdersFixture(t)
	f.skus.Register("SKU-A")
	ctx := context.Background()
	lotID := f.receive(t, "SKU-A", "B-1", 100)
	orderID := f.createOrder(t, "ORD-001", "SKU-A", 60, entity.PriorityHigh)

	status, err := f.uc.Transition(ctx, orderID, domorder.EventRelease, "tester")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusReleased, status)

	status, err = f.uc.Transition(ctx, orderID, domorder.EventAllocate, "tester")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusAllocated, status)

	o := f.order(t, orderID)
	assert.True(t, o.FullyAllocated(), "las reservas deben cubrir exactamente lo pedido")
	assert.Equal(t, int64(60), o.AllocatedQty())
	require.NotNil(t, o.ReleasedAt)
	require.NotNil(t, o.AllocatedAt)
	onHand, allocated := f.lotCounters(t, lotID)
	assert.Equal(t, int64(100), onHand)
	assert.Equal(t, int64(60), allocated)

	status, err = f.uc.Transition(ctx, orderID, domorder.EventPick, "tester")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPicked, status)
	onHand, allocated = f.lotCounters(t, lotID)
	assert.Equal(t, int64(100), onHand, "pick no mueve cantidades")
	assert.Equal(t, int64(60), allocated)

	status, err = f.uc.Transition(ctx, orderID, domorder.EventShip, "tester")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusShipped, status)
	onHand, allocated = f.lotCounters(t, lotID)
	assert.Equal(t, int64(40), onHand, "ship descuenta el físico")
	assert.Equal(t, int64(0), allocated)

	o = f.order(t, orderID)
	assert.True(t, o.Terminal())
	require.NotNil(t, o.PickedAt)
	require.NotNil(t, o.ShippedAt)
	assert.True(t, !o.ShippedAt.Before(*o.PickedAt), "los timestamps respetan el orden de los eventos")
}

func TestTransition_AristasInvalidasNoMutan(t *testing.T) {
	f := newOrdersFixture(t)
	f.skus.Register("SKU-A")
	ctx := context.Background()
	f.receive(t, "SKU-A", "B-1", 100)
	orderID := f.createOrder(t, "ORD-001", "SKU-A", 10, "")

	// No se puede saltar etapas desde HOLD.
	for _, ev := range []string{domorder.EventAllocate, domorder.EventPick, domorder.EventShip} {
		_, err := f.uc.Transition(ctx, orderID, ev, "tester")
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition, "evento %q desde HOLD", ev)
		assert.Equal(t, entity.OrderStatusHold, f.order(t, orderID).Status, "la orden queda intacta")
	}

	// Evento desconocido es un error de entrada, no de transición.
	_, err := f.uc.Transition(ctx, orderID, "approve", "tester")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// SHIPPED sin pasar por PICKED no existe.
	_, err = f.uc.Transition(ctx, orderID, domorder.EventRelease, "tester")
	require.NoError(t, err)
	_, err = f.uc.Transition(ctx, orderID, domorder.EventAllocate, "tester")
	require.NoError(t, err)
	_, err = f.uc.Transition(ctx, orderID, domorder.EventShip, "tester")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition, "no hay SHIPPED sin PICKED")

	_, err = f.uc.Transition(ctx, "orden-inexistente", domorder.EventRelease, "tester")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Allocate insuficiente: la orden vuelve a HOLD visible para el operador
// ──────────────────────────────────────────────────────────────────────────────

func TestTransition_AllocateInsuficienteVuelveAHold(t *testing.T) {
	f := newOrdersFixture(t)
	f.skus.Register("SKU-A")
	ctx := context.Background()
	lotID := f.receive(t, "SKU-A", "B-1", 30)
	orderID := f.createOrder(t, "ORD-001", "SKU-A", 100, "")

	_, err := f.uc.Transition(ctx, orderID, domorder.EventRelease, "tester")
	require.NoError(t, err)
	_, err = f.uc.Transition(ctx, orderID, domorder.EventAllocate, "tester")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	o := f.order(t, orderID)
	assert.Equal(t, entity.OrderStatusHold, o.Status, "allocate fallido devuelve la orden a HOLD")
	assert.Nil(t, o.ReleasedAt, "el release se deshace junto con la transición")
	assert.Empty(t, o.Allocations)

	_, allocated := f.lotCounters(t, lotID)
	assert.Zero(t, allocated, "la reserva parcial del recorrido se revirtió")
}

// ──────────────────────────────────────────────────────────────────────────────
// Cancelación: libera exactamente lo reservado
// ──────────────────────────────────────────────────────────────────────────────

func TestTransition_CancelLiberaLasReservas(t *testing.T) {
	f := newOrdersFixture(t)
	f.skus.Register("SKU-A")
	ctx := context.Background()
	l1 := f.receive(t, "SKU-A", "B-1", 40)
	l2 := f.receive(t, "SKU-A", "B-2", 40)
	orderID := f.createOrder(t, "ORD-001", "SKU-A", 60, "")

	_, err := f.uc.Transition(ctx, orderID, domorder.EventRelease, "tester")
	require.NoError(t, err)
	_, err = f.uc.Transition(ctx, orderID, domorder.EventAllocate, "tester")
	require.NoError(t, err)

	status, err := f.uc.Transition(ctx, orderID, domorder.EventCancel, "tester")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, status)

	o := f.order(t, orderID)
	assert.Empty(t, o.Allocations, "la orden cancelada no retiene reservas")
	require.NotNil(t, o.CancelledAt)

	for _, lotID := range []string{l1, l2} {
		onHand, allocated := f.lotCounters(t, lotID)
		assert.Equal(t, int64(40), onHand, "cancelar no toca el físico")
		assert.Zero(t, allocated, "lo reservado volvió al disponible")
	}
}

func TestTransition_CancelDesdeHoldSinEfectosDeStock(t *testing.T) {
	f := newOrdersFixture(t)
	f.skus.Register("SKU-A")
	orderID := f.createOrder(t, "ORD-001", "SKU-A", 10, "")

	status, err := f.uc.Transition(context.Background(), orderID, domorder.EventCancel, "tester")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Fallo a mitad de un despacho o cancelación multi-lote: el reintento retoma
// donde quedó sin repetir efectos sobre los lotes ya asentados
// ──────────────────────────────────────────────────────────────────────────────

func TestTransition_ShipParcialReintentable(t *testing.T) {
	f := newOrdersFixtureTimeout(t, 100*time.Millisecond)
	f.skus.Register("SKU-A")
	ctx := context.Background()
	l1 := f.receive(t, "SKU-A", "B-1", 10)
	time.Sleep(2 * time.Millisecond) // recepciones con timestamp distinto: l1 se asigna primero
	l2 := f.receive(t, "SKU-A", "B-2", 10)
	orderID := f.createOrder(t, "ORD-001", "SKU-A", 20, "")

	for _, ev := range []string{domorder.EventRelease, domorder.EventAllocate, domorder.EventPick} {
		_, err := f.uc.Transition(ctx, orderID, ev, "tester")
		require.NoError(t, err)
	}
	o := f.order(t, orderID)
	require.Len(t, o.Allocations, 2)
	require.Equal(t, l1, o.Allocations[0].LotID)

	// El segundo lote está bloqueado: el despacho cae a mitad de camino.
	release := f.holdLot(t, l2)
	_, err := f.uc.Transition(ctx, orderID, domorder.EventShip, "tester")
	require.ErrorIs(t, err, domain.ErrLockTimeout)

	// El primer lote quedó despachado y asentado; la orden sigue en PICKED.
	o = f.order(t, orderID)
	assert.Equal(t, entity.OrderStatusPicked, o.Status)
	assert.True(t, o.Allocations[0].Settled, "el lote ya despachado queda asentado en la orden")
	assert.False(t, o.Allocations[1].Settled)
	onHand, allocated := f.lotCounters(t, l1)
	assert.Equal(t, int64(0), onHand)
	assert.Equal(t, int64(0), allocated)
	onHand, allocated = f.lotCounters(t, l2)
	assert.Equal(t, int64(10), onHand, "el lote bloqueado no se tocó")
	assert.Equal(t, int64(10), allocated)

	// Con el bloqueo liberado el reintento despacha SOLO el lote pendiente.
	release()
	status, err := f.uc.Transition(ctx, orderID, domorder.EventShip, "tester")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusShipped, status)
	onHand, allocated = f.lotCounters(t, l1)
	assert.Equal(t, int64(0), onHand, "el lote ya asentado no se despacha dos veces")
	assert.Equal(t, int64(0), allocated)
	onHand, allocated = f.lotCounters(t, l2)
	assert.Equal(t, int64(0), onHand)
	assert.Equal(t, int64(0), allocated)
}

func TestTransition_CancelParcialNoLiberaDosVeces(t *testing.T) {
	f := newOrdersFixtureTimeout(t, 100*time.Millisecond)
	f.skus.Register("SKU-A")
	ctx := context.Background()
	l1 := f.receive(t, "SKU-A", "B-1", 20)
	time.Sleep(2 * time.Millisecond)
	l2 := f.receive(t, "SKU-A", "B-2", 10)

	// Otra orden retiene 10 en el primer lote; su reserva no debe moverse.
	vecina := f.createOrder(t, "ORD-001", "SKU-A", 10, "")
	for _, ev := range []string{domorder.EventRelease, domorder.EventAllocate} {
		_, err := f.uc.Transition(ctx, vecina, ev, "tester")
		require.NoError(t, err)
	}

	cancelada := f.createOrder(t, "ORD-002", "SKU-A", 20, "")
	for _, ev := range []string{domorder.EventRelease, domorder.EventAllocate} {
		_, err := f.uc.Transition(ctx, cancelada, ev, "tester")
		require.NoError(t, err)
	}
	o := f.order(t, cancelada)
	require.Len(t, o.Allocations, 2)
	require.Equal(t, l1, o.Allocations[0].LotID)

	// El segundo lote está bloqueado: la cancelación cae a mitad de camino.
	release := f.holdLot(t, l2)
	_, err := f.uc.Transition(ctx, cancelada, domorder.EventCancel, "tester")
	require.ErrorIs(t, err, domain.ErrLockTimeout)

	o = f.order(t, cancelada)
	assert.Equal(t, entity.OrderStatusAllocated, o.Status)
	assert.True(t, o.Allocations[0].Settled, "el lote ya liberado queda asentado en la orden")
	assert.False(t, o.Allocations[1].Settled)

	// El reintento libera SOLO el lote pendiente: la reserva de la otra orden
	// sobre el primer lote queda intacta.
	release()
	status, err := f.uc.Transition(ctx, cancelada, domorder.EventCancel, "tester")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, status)
	assert.Empty(t, f.order(t, cancelada).Allocations)

	_, allocated := f.lotCounters(t, l1)
	assert.Equal(t, int64(10), allocated, "la reserva de la orden vecina sigue en pie")
	_, allocated = f.lotCounters(t, l2)
	assert.Zero(t, allocated)
}

// ──────────────────────────────────────────────────────────────────────────────
// Dos órdenes compitiendo por el mismo stock
// ──────────────────────────────────────────────────────────────────────────────

func TestTransition_DosOrdenesCompitenPorElMismoLote(t *testing.T) {
	f := newOrdersFixture(t)
	f.skus.Register("SKU-A")
	ctx := context.Background()
	lotID := f.receive(t, "SKU-A", "B-1", 70)

	ganadora := f.createOrder(t, "ORD-001", "SKU-A", 50, "")
	perdedora := f.createOrder(t, "ORD-002", "SKU-A", 50, "")

	for _, id := range []string{ganadora, perdedora} {
		_, err := f.uc.Transition(ctx, id, domorder.EventRelease, "tester")
		require.NoError(t, err)
	}

	_, err := f.uc.Transition(ctx, ganadora, domorder.EventAllocate, "tester")
	require.NoError(t, err)
	_, err = f.uc.Transition(ctx, perdedora, domorder.EventAllocate, "tester")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "el remanente no alcanza para la segunda orden")

	assert.Equal(t, entity.OrderStatusAllocated, f.order(t, ganadora).Status)
	assert.Equal(t, entity.OrderStatusHold, f.order(t, perdedora).Status)

	_, allocated := f.lotCounters(t, lotID)
	assert.Equal(t, int64(50), allocated, "solo la ganadora retiene reserva")

	// La perdedora despacha cuando entra reposición.
	f.receive(t, "SKU-A", "B-2", 30)
	_, err = f.uc.Transition(ctx, perdedora, domorder.EventRelease, "tester")
	require.NoError(t, err)
	_, err = f.uc.Transition(ctx, perdedora, domorder.EventAllocate, "tester")
	require.NoError(t, err)
	assert.True(t, f.order(t, perdedora).FullyAllocated())
}
