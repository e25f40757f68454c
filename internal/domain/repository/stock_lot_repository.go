package repository

import "github.com/jhoicas/wms-api/internal/domain/entity"

// StockLotRepository acceso a lotes de stock. Las variantes ForUpdate deben
// bloquear la fila/lote hasta el fin de la transacción; si el bloqueo no se
// obtiene dentro del timeout configurado retornan domain.ErrLockTimeout.
type StockLotRepository interface {
	// GetByID obtiene un lote por ID. nil si no existe.
	GetByID(lotID string) (*entity.StockLot, error)
	// GetForUpdate obtiene un lote por ID bloqueándolo para mutación.
	// nil si no existe.
	GetForUpdate(lotID string) (*entity.StockLot, error)
	// GetByKeyForUpdate obtiene (o bloquea la creación de) el lote de la
	// combinación SKU/ubicación/batch. nil si aún no existe.
	GetByKeyForUpdate(sku, location, batchID string) (*entity.StockLot, error)
	// Upsert inserta o actualiza el lote.
	Upsert(lot *entity.StockLot) error
	// ListBySKU lista todos los lotes de un SKU (cualquier estado de bloqueo).
	ListBySKU(sku string) ([]*entity.StockLot, error)
	// ListCandidates lista lotes asignables para un SKU en orden FEFO
	// (vencimiento asc, nulos al final), luego FIFO (recepción asc) y
	// finalmente LotID como desempate determinista. Si clientID no es vacío,
	// solo lotes de ese cliente. Lectura sin bloqueo: la foto puede quedar
	// desactualizada y la reserva posterior lo resuelve.
	ListCandidates(sku, clientID string) ([]*entity.StockLot, error)
}
