// Package order define la máquina de estados de órdenes como servicio de
// dominio puro: una tabla explícita de transiciones con guardas, en lugar de
// columnas de estado actualizadas por scripts dispersos.
package order

import (
	"github.com/jhoicas/wms-api/internal/domain"
	"github.com/jhoicas/wms-api/internal/domain/entity"
)

// Eventos aceptados por la máquina de estados.
const (
	EventRelease  = "release"
	EventAllocate = "allocate"
	EventPick     = "pick"
	EventShip     = "ship"
	EventCancel   = "cancel"
)

// transitions es la tabla de transiciones: estado origen -> evento -> estado destino.
// Cualquier arista no listada es inválida. El caso allocate-fallido
// (RELEASED -> HOLD) lo resuelve el caso de uso, no la tabla: la tabla modela
// el resultado exitoso del evento.
var transitions = map[string]map[string]string{
	entity.OrderStatusHold: {
		EventRelease: entity.OrderStatusReleased,
		EventCancel:  entity.OrderStatusCancelled,
	},
	entity.OrderStatusReleased: {
		EventAllocate: entity.OrderStatusAllocated,
		EventCancel:   entity.OrderStatusCancelled,
	},
	entity.OrderStatusAllocated: {
		EventPick:   entity.OrderStatusPicked,
		EventCancel: entity.OrderStatusCancelled,
	},
	entity.OrderStatusPicked: {
		EventShip: entity.OrderStatusShipped,
	},
	// SHIPPED y CANCELLED son terminales: sin aristas de salida.
}

// ValidEvent indica si el nombre de evento existe en la máquina.
func ValidEvent(event string) bool {
	switch event {
	case EventRelease, EventAllocate, EventPick, EventShip, EventCancel:
		return true
	}
	return false
}

// Next devuelve el estado destino para (estado, evento) o
// ErrInvalidStateTransition si la arista no existe en la tabla.
func Next(status, event string) (string, error) {
	edges, ok := transitions[status]
	if !ok {
		return "", domain.ErrInvalidStateTransition
	}
	next, ok := edges[event]
	if !ok {
		return "", domain.ErrInvalidStateTransition
	}
	return next, nil
}

// Can indica si el evento es válido desde el estado dado.
func Can(status, event string) bool {
	_, err := Next(status, event)
	return err == nil
}
