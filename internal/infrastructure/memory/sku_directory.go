package memory

import (
	"sync"

	"github.com/jhoicas/wms-api/internal/application/ports"
)

var _ ports.SKUDirectory = (*SKUDirectory)(nil)

// SKUDirectory directorio de SKUs en memoria (tests y modo dev). Un SKU sin
// lista de clientes no está restringido.
type SKUDirectory struct {
	mu   sync.RWMutex
	skus map[string]map[string]bool // sku -> clientes permitidos (vacío = todos)
}

// NewSKUDirectory construye el directorio.
func NewSKUDirectory() *SKUDirectory {
	return &SKUDirectory{skus: make(map[string]map[string]bool)}
}

// Register da de alta un SKU; clientIDs opcional restringe a esos clientes.
func (d *SKUDirectory) Register(sku string, clientIDs ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	allowed := make(map[string]bool, len(clientIDs))
	for _, c := range clientIDs {
		allowed[c] = true
	}
	d.skus[sku] = allowed
}

// Exists indica si el SKU está dado de alta.
func (d *SKUDirectory) Exists(sku string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.skus[sku]
	return ok, nil
}

// ClientRestricted indica si el SKU tiene lista de restricción.
func (d *SKUDirectory) ClientRestricted(sku string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	allowed, ok := d.skus[sku]
	return ok && len(allowed) > 0, nil
}

// AllowedForClient indica si el cliente puede ordenar el SKU.
func (d *SKUDirectory) AllowedForClient(sku, clientID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	allowed, ok := d.skus[sku]
	if !ok {
		return false, nil
	}
	if len(allowed) == 0 {
		return true, nil
	}
	return allowed[clientID], nil
}
