package scheduler_test

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
	"github.com/jhoicas/wms-api/internal/application/scheduler"
	"github.com/jhoicas/wms-api/internal/domain/entity"
	domorder "github.com/jhoicas/wms-api/internal/domain/order"
	"github.com/jhoicas/wms-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type schedFixture struct {
	sched  *scheduler.AutoRelease
	orders *orders.UseCase
	ledger *ledger.UseCase
	skus   *memory.SKUDirectory
}

func newSchedFixture(t *testing.T, interval time.Duration) *schedFixture {
	t.Helper()
	store := memory.NewStore(0)
	runner := memory.NewTxRunner(store)
	lots := memory.NewStockLotRepository(store)
	movs := memory.NewMovementRepository(store)
	skus := memory.NewSKUDirectory()
	l := ledger.NewUseCase(runner, lots, movs, nil)
	engine := allocation.NewEngine(l, lots, skus, zerolog.Nop())
	ordersUC := orders.NewUseCase(memory.NewOrderRepository(), engine, l, skus, zerolog.Nop())
	sched := scheduler.New(ordersUC, interval, zerolog.Nop())
	l.SetWaker(sched)
	return &schedFixture{sched: sched, orders: ordersUC, ledger: l, skus: skus}
}

func (f *schedFixture) receive(t *testing.T, sku, batch string, qty int64) {
	t.Helper()
	_, err := f.ledger.Receive(context.Background(), ledger.ReceiveInput{
		SKU: sku, ClientID: "c1", Location: "A-01-01", BatchID: batch, Qty: qty, Actor: "tester",
	})
	require.NoError(t, err)
}

func (f *schedFixture) createOrder(t *testing.T, number, sku string, qty int64, priority string) string {
	t.Helper()
	orderID, err := f.orders.CreateOrder(context.Background(), orders.CreateOrderInput{
		OrderNumber: number, SKU: sku, ClientID: "c1", Qty: qty, Priority: priority,
	})
	require.NoError(t, err)
	return orderID
}

func (f *schedFixture) status(t *testing.T, orderID string) string {
	t.Helper()
	o, err := f.orders.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	return o.Status
}

// ──────────────────────────────────────────────────────────────────────────────
// Escaneo síncrono
// ──────────────────────────────────────────────────────────────────────────────

// Una orden retenida por falta de stock queda en HOLD hasta que una recepción
// posterior la destraba; el siguiente escaneo la lleva a ALLOCATED sin
// intervención manual.
func TestScan_RecepcionDestrabaOrdenRetenida(t *testing.T) {
	f := newSchedFixture(t, time.Hour)
	f.skus.Register("SKU-A")
	ctx := context.Background()
	orderID := f.createOrder(t, "ORD-001", "SKU-A", 100, "")

	f.sched.Scan(ctx)
	assert.Equal(t, entity.OrderStatusHold, f.status(t, orderID),
		"sin stock la orden sigue retenida después del escaneo")

	f.receive(t, "SKU-A", "B-1", 100)
	f.sched.Scan(ctx)
	assert.Equal(t, entity.OrderStatusAllocated, f.status(t, orderID))

	o, err := f.orders.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, o.FullyAllocated())
}

// Con stock para una sola orden, el escaneo atiende por prioridad: HIGH gana
// aunque la LOW se haya creado antes.
func TestScan_PrioridadAltaGanaElStock(t *testing.T) {
	f := newSchedFixture(t, time.Hour)
	f.skus.Register("SKU-A")
	ctx := context.Background()
	f.receive(t, "SKU-A", "B-1", 50)

	baja := f.createOrder(t, "ORD-001", "SKU-A", 50, entity.PriorityLow)
	alta := f.createOrder(t, "ORD-002", "SKU-A", 50, entity.PriorityHigh)

	f.sched.Scan(ctx)
	assert.Equal(t, entity.OrderStatusAllocated, f.status(t, alta))
	assert.Equal(t, entity.OrderStatusHold, f.status(t, baja),
		"la orden de baja prioridad espera la próxima reposición")
}

// A igual prioridad gana la más antigua.
func TestScan_AntiguedadDesempata(t *testing.T) {
	f := newSchedFixture(t, time.Hour)
	f.skus.Register("SKU-A")
	ctx := context.Background()
	f.receive(t, "SKU-A", "B-1", 50)

	primera := f.createOrder(t, "ORD-001", "SKU-A", 50, "")
	time.Sleep(2 * time.Millisecond)
	segunda := f.createOrder(t, "ORD-002", "SKU-A", 50, "")

	f.sched.Scan(ctx)
	assert.Equal(t, entity.OrderStatusAllocated, f.status(t, primera))
	assert.Equal(t, entity.OrderStatusHold, f.status(t, segunda))
}

// Un cancel que libera stock dentro del mismo escaneo se aprovecha: las pasadas
// se repiten mientras alguna orden progrese.
func TestScan_RepitePasadasMientrasHayaProgreso(t *testing.T) {
	f := newSchedFixture(t, time.Hour)
	f.skus.Register("SKU-A")
	ctx := context.Background()
	f.receive(t, "SKU-A", "B-1", 100)

	primera := f.createOrder(t, "ORD-001", "SKU-A", 60, entity.PriorityHigh)
	segunda := f.createOrder(t, "ORD-002", "SKU-A", 60, entity.PriorityLow)

	f.sched.Scan(ctx)
	assert.Equal(t, entity.OrderStatusAllocated, f.status(t, primera))
	assert.Equal(t, entity.OrderStatusHold, f.status(t, segunda))

	// El cancel de la primera devuelve 60 al disponible.
	_, err := f.orders.Transition(ctx, primera, domorder.EventCancel, "tester")
	require.NoError(t, err)

	f.sched.Scan(ctx)
	assert.Equal(t, entity.OrderStatusAllocated, f.status(t, segunda))
}

// Una orden liberada a mano que quedó en RELEASED (sin asignar) también entra
// al escaneo, sin repetir el paso de release.
func TestScan_ReintentaOrdenesEnReleased(t *testing.T) {
	f := newSchedFixture(t, time.Hour)
	f.skus.Register("SKU-A")
	ctx := context.Background()
	orderID := f.createOrder(t, "ORD-001", "SKU-A", 40, "")

	_, err := f.orders.Transition(ctx, orderID, domorder.EventRelease, "tester")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusReleased, f.status(t, orderID))

	f.receive(t, "SKU-A", "B-1", 40)
	f.sched.Scan(ctx)
	assert.Equal(t, entity.OrderStatusAllocated, f.status(t, orderID))
}

// ──────────────────────────────────────────────────────────────────────────────
// Loop en vivo: wake por eventos del ledger
// ──────────────────────────────────────────────────────────────────────────────

// Con el loop corriendo, una recepción despierta el escaneo sin esperar el
// intervalo: la orden retenida termina asignada sola.
func TestStart_RecepcionDespiertaElLoop(t *testing.T) {
	f := newSchedFixture(t, time.Hour) // el intervalo no participa en este test
	f.skus.Register("SKU-A")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orderID := f.createOrder(t, "ORD-001", "SKU-A", 30, "")
	f.sched.Start(ctx)
	defer f.sched.Stop()

	f.receive(t, "SKU-A", "B-1", 30) // Wake vía ledger

	assert.Eventually(t, func() bool {
		o, err := f.orders.GetOrder(ctx, orderID)
		return err == nil && o.Status == entity.OrderStatusAllocated
	}, 2*time.Second, 10*time.Millisecond,
		"la recepción debe disparar el escaneo que asigna la orden")
}

func TestStop_EsIdempotente(t *testing.T) {
	f := newSchedFixture(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.sched.Start(ctx)
	f.sched.Stop()
	f.sched.Stop() // segunda llamada no debe entrar en pánico ni bloquear
}
