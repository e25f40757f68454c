package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/wms-api/internal/application/ledger"
	"github.com/jhoicas/wms-api/internal/application/orders"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *ledger.UseCase
	Orders    *orders.UseCase
	JWTSecret string
}

// Router registra las rutas de la API. Todo el surface es protegido: la
// identidad del token es el actor de cada movimiento del ledger.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Stock (ledger)
	stock := api.Group("/stock")
	stockHandler := NewStockHandler(deps.Ledger)
	stock.Post("/receive", RequireRole("admin", "operario"), stockHandler.Receive)
	stock.Post("/lots/:lotId/adjust", RequireRole("admin", "supervisor"), stockHandler.Adjust)
	stock.Get("/lots/:lotId/movements", stockHandler.Movements)
	stock.Get("/:sku/lots", stockHandler.LotsBySKU)

	// Órdenes (máquina de estados)
	ordersGroup := api.Group("/orders")
	orderHandler := NewOrderHandler(deps.Orders)
	ordersGroup.Post("/", orderHandler.Create)
	ordersGroup.Get("/:id", orderHandler.GetByID)
	ordersGroup.Post("/:id/:event", orderHandler.Transition)
}
