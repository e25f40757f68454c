// Package ports define interfaces hacia colaboradores externos del core.
package ports

// SKUDirectory consulta de validez SKU/cliente contra el módulo de datos
// maestros (colaborador externo; el core no administra SKUs ni clientes).
type SKUDirectory interface {
	// Exists indica si el SKU está dado de alta.
	Exists(sku string) (bool, error)
	// ClientRestricted indica si el SKU tiene lista de restricción por
	// cliente. Un SKU restringido solo se asigna desde lotes del cliente de
	// la orden.
	ClientRestricted(sku string) (bool, error)
	// AllowedForClient indica si el cliente puede ordenar el SKU.
	AllowedForClient(sku, clientID string) (bool, error)
}
