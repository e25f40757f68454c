package repository

import "github.com/jhoicas/wms-api/internal/domain/entity"

// OrderRepository acceso a órdenes de salida. La mutación de una orden pasa
// siempre por la máquina de estados; el repositorio no valida transiciones.
type OrderRepository interface {
	// Create persiste una orden nueva (estado inicial HOLD).
	Create(order *entity.Order) error
	// GetByID obtiene una orden por ID. nil si no existe.
	GetByID(orderID string) (*entity.Order, error)
	// Update persiste estado, timestamps y asignaciones de la orden.
	Update(order *entity.Order) error
	// ListByStatus lista órdenes en un estado, ordenadas por prioridad
	// descendente y CreatedAt ascendente (la más antigua de mayor prioridad
	// primero, para que órdenes grandes tempranas no queden perpetuamente
	// relegadas por órdenes chicas tardías).
	ListByStatus(status string) ([]*entity.Order, error)
}
