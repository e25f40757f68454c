package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/wms-api/internal/application/dto"
	"github.com/jhoicas/wms-api/internal/application/orders"
	"github.com/jhoicas/wms-api/internal/domain"
)

// OrderHandler maneja las peticiones HTTP de órdenes de salida (protegido).
type OrderHandler struct {
	uc *orders.UseCase
}

// NewOrderHandler construye el handler.
func NewOrderHandler(uc *orders.UseCase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// Create godoc
// @Summary      Crear una orden de salida (estado inicial HOLD)
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOrderRequest  true  "order_number, sku, client_id, qty, priority, due_date"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	if GetActorID(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	orderID, err := h.uc.CreateOrder(c.Context(), orders.CreateOrderInput{
		OrderNumber: in.OrderNumber,
		SKU:         in.SKU,
		ClientID:    in.ClientID,
		Qty:         in.Qty,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return orderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"order_id": orderID})
}

// GetByID godoc
// @Summary      Obtener una orden con sus asignaciones y timestamps
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Success      200  {object}  dto.OrderDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	order, err := h.uc.GetOrder(c.Context(), c.Params("id"))
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(dto.NewOrderDTO(order))
}

// Transition godoc
// @Summary      Aplicar un evento de la máquina de estados a la orden
// @Description  event: release | allocate | pick | ship | cancel. Una arista
//	no listada en la tabla de transiciones responde 409 INVALID_TRANSITION y
//	deja la orden intacta.
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id     path  string  true  "ID de la orden"
// @Param        event  path  string  true  "Evento de transición"
// @Success      200  {object}  map[string]string
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/{event} [post]
func (h *OrderHandler) Transition(c *fiber.Ctx) error {
	actor := GetActorID(c)
	if actor == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	status, err := h.uc.Transition(c.Context(), c.Params("id"), c.Params("event"), actor)
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(fiber.Map{"status": status})
}

// orderError mapea errores de dominio de órdenes a HTTP.
func orderError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "orden o SKU no encontrado"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "el cliente no puede ordenar este SKU"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "número de orden ya registrado"})
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_TRANSITION", Message: "transición de estado inválida"})
	case errors.Is(err, domain.ErrInsufficientStock):
		// La orden quedó visible en HOLD, bloqueada por stock.
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente; la orden vuelve a HOLD"})
	case errors.Is(err, domain.ErrNotAllocated):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NOT_ALLOCATED", Message: "cantidad no reservada para la orden"})
	case errors.Is(err, domain.ErrLockTimeout):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "LOCK_TIMEOUT", Message: "contención de bloqueo, reintente"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
