package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/wms-api/internal/application/ports"
)

var _ ports.SKUDirectory = (*SKUDirectory)(nil)

// SKUDirectory adaptador de solo lectura sobre las tablas del módulo de datos
// maestros (skus y sku_client_restrictions). El core no las administra.
type SKUDirectory struct {
	q Querier
}

// NewSKUDirectory construye el adaptador.
func NewSKUDirectory(q Querier) *SKUDirectory {
	return &SKUDirectory{q: q}
}

// Exists indica si el SKU está dado de alta.
func (d *SKUDirectory) Exists(sku string) (bool, error) {
	var one int
	err := d.q.QueryRow(context.Background(),
		`SELECT 1 FROM skus WHERE sku = $1`, sku).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("sku exists: %w", err)
	}
	return true, nil
}

// ClientRestricted indica si el SKU tiene lista de restricción por cliente.
func (d *SKUDirectory) ClientRestricted(sku string) (bool, error) {
	var one int
	err := d.q.QueryRow(context.Background(),
		`SELECT 1 FROM sku_client_restrictions WHERE sku = $1 LIMIT 1`, sku).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("sku restricted: %w", err)
	}
	return true, nil
}

// AllowedForClient indica si el cliente puede ordenar el SKU (sin filas de
// restricción = cualquier cliente).
func (d *SKUDirectory) AllowedForClient(sku, clientID string) (bool, error) {
	restricted, err := d.ClientRestricted(sku)
	if err != nil {
		return false, err
	}
	if !restricted {
		return true, nil
	}
	var one int
	err = d.q.QueryRow(context.Background(),
		`SELECT 1 FROM sku_client_restrictions WHERE sku = $1 AND client_id = $2`, sku, clientID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("sku allowed for client: %w", err)
	}
	return true, nil
}
