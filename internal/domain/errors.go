package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrInvalidQuantity        = errors.New("cantidad inválida")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrInvalidStateTransition = errors.New("transición de estado inválida")
	ErrLockTimeout            = errors.New("timeout al adquirir bloqueo de lote")
	ErrNotAllocated           = errors.New("cantidad no reservada para la orden")
	ErrWouldUnderAllocate     = errors.New("el ajuste dejaría on-hand por debajo de lo reservado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrDuplicate              = errors.New("recurso duplicado")
)
