// Package scheduler implementa el auto-release: promueve órdenes en HOLD
// cuando el stock disponible alcanza, disparado por intervalo fijo y por
// eventos del ledger que liberan disponibilidad (receive/ship/release).
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/wms-api/internal/application/orders"
	"github.com/jhoicas/wms-api/internal/domain"
	domorder "github.com/jhoicas/wms-api/internal/domain/order"
)

// actorScheduler identifica al scheduler en los movimientos que origina.
const actorScheduler = "auto-release"

// AutoRelease re-evalúa periódicamente las órdenes retenidas contra la
// disponibilidad actual. Nunca retiene bloqueos del ledger durante un escaneo
// completo: cada intento de asignación adquiere y libera sus propios bloqueos
// por lote.
type AutoRelease struct {
	orders   *orders.UseCase
	interval time.Duration
	log      zerolog.Logger

	wake chan struct{}
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// New construye el scheduler. interval <= 0 usa 30s.
func New(orderUC *orders.UseCase, interval time.Duration, log zerolog.Logger) *AutoRelease {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &AutoRelease{
		orders:   orderUC,
		interval: interval,
		log:      log,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

// Wake solicita un escaneo fuera de intervalo. No bloquea: si ya hay un
// escaneo pendiente la señal se coalesce.
func (s *AutoRelease) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start lanza el loop en una goroutine. Se detiene con Stop o al cancelar ctx.
func (s *AutoRelease) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
			case <-s.wake:
			}
			s.Scan(ctx)
		}
	}()
}

// Stop detiene el loop y espera a que el escaneo en curso termine.
func (s *AutoRelease) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// Scan recorre las órdenes en HOLD (prioridad desc, antigüedad asc) intentando
// release -> allocate para cada una. Repite pasadas mientras alguna orden
// progrese; cuando una pasada no logra asignar ninguna, corta (el stock es
// genuinamente insuficiente y seguir sería busy-loop). Las fallas por orden se
// registran y el escaneo continúa.
func (s *AutoRelease) Scan(ctx context.Context) {
	for {
		progressed, err := s.pass(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("escaneo de auto-release abortado")
			return
		}
		if !progressed {
			return
		}
	}
}

// pass hace una pasada sobre las órdenes retenidas y las liberadas sin
// asignar. Devuelve si alguna llegó a ALLOCATED.
func (s *AutoRelease) pass(ctx context.Context) (bool, error) {
	held, err := s.orders.ListHeld(ctx)
	if err != nil {
		return false, err
	}
	// Órdenes que quedaron en RELEASED (release manual, o allocate que perdió
	// por contención) también se reintentan, solo que sin el paso de release.
	released, err := s.orders.ListReleased(ctx)
	if err != nil {
		return false, err
	}

	progressed := false
	for _, o := range held {
		if ctx.Err() != nil {
			return progressed, nil
		}
		if _, err := s.orders.Transition(ctx, o.OrderID, domorder.EventRelease, actorScheduler); err != nil {
			// Otra transición pudo ganarle a la foto del listado (ej. una
			// cancelación manual); no es un error del escaneo.
			if !errors.Is(err, domain.ErrInvalidStateTransition) {
				s.log.Warn().Err(err).Str("order_id", o.OrderID).Msg("release automático falló")
			}
			continue
		}
		if s.tryAllocate(ctx, o.OrderID, o.OrderNumber) {
			progressed = true
		}
	}
	for _, o := range released {
		if ctx.Err() != nil {
			return progressed, nil
		}
		if s.tryAllocate(ctx, o.OrderID, o.OrderNumber) {
			progressed = true
		}
	}
	return progressed, nil
}

// tryAllocate intenta el evento allocate y clasifica el resultado.
func (s *AutoRelease) tryAllocate(ctx context.Context, orderID, orderNumber string) bool {
	if _, err := s.orders.Transition(ctx, orderID, domorder.EventAllocate, actorScheduler); err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientStock):
			// La orden volvió a HOLD; se reintenta en el próximo evento.
		case errors.Is(err, domain.ErrLockTimeout):
			s.log.Debug().Str("order_id", orderID).Msg("contención de bloqueo, se reintenta en la próxima pasada")
		case errors.Is(err, domain.ErrInvalidStateTransition):
			// Transición concurrente ganó la carrera; nada para hacer.
		default:
			s.log.Warn().Err(err).Str("order_id", orderID).Msg("asignación automática falló")
		}
		return false
	}
	s.log.Info().Str("order_id", orderID).Str("order_number", orderNumber).Msg("orden asignada por auto-release")
	return true
}
