package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/wms-api/internal/application/dto"
	"github.com/jhoicas/wms-api/internal/application/ledger"
	"github.com/jhoicas/wms-api/internal/domain"
)

// StockHandler maneja las peticiones HTTP del ledger de stock (protegido).
type StockHandler struct {
	ledger *ledger.UseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(l *ledger.UseCase) *StockHandler {
	return &StockHandler{ledger: l}
}

// Receive godoc
// @Summary      Registrar recepción de stock
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveStockRequest  true  "sku, client_id, location, batch_id, qty, expiry_date opcional"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/stock/receive [post]
func (h *StockHandler) Receive(c *fiber.Ctx) error {
	actor := GetActorID(c)
	if actor == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ReceiveStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	lotID, err := h.ledger.Receive(c.Context(), ledger.ReceiveInput{
		SKU:        in.SKU,
		ClientID:   in.ClientID,
		Location:   in.Location,
		BatchID:    in.BatchID,
		ExpiryDate: in.ExpiryDate,
		Qty:        in.Qty,
		Actor:      actor,
	})
	if err != nil {
		return stockError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"lot_id": lotID})
}

// Adjust godoc
// @Summary      Ajuste manual de un lote (conteo cíclico, merma)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        lotId  path  string  true  "ID del lote"
// @Param        body   body  dto.AdjustStockRequest  true  "delta con signo y motivo"
// @Success      200   {object}  map[string]string
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/lots/{lotId}/adjust [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	actor := GetActorID(c)
	if actor == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.ledger.Adjust(c.Context(), c.Params("lotId"), in.Delta, in.Reason, actor); err != nil {
		return stockError(c, err)
	}
	return c.JSON(fiber.Map{"message": "ajuste registrado"})
}

// LotsBySKU godoc
// @Summary      Lotes de un SKU con on-hand, reservado y disponible
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        sku  path  string  true  "SKU"
// @Success      200  {array}  dto.StockLotDTO
// @Router       /api/stock/{sku}/lots [get]
func (h *StockHandler) LotsBySKU(c *fiber.Ctx) error {
	lots, err := h.ledger.GetLotStatus(c.Context(), c.Params("sku"))
	if err != nil {
		return stockError(c, err)
	}
	out := make([]dto.StockLotDTO, 0, len(lots))
	for _, l := range lots {
		out = append(out, dto.NewStockLotDTO(l))
	}
	return c.JSON(fiber.Map{"total": len(out), "lots": out})
}

// Movements godoc
// @Summary      Movimientos de un lote posteriores a un cursor
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        lotId  path   string  true   "ID del lote"
// @Param        since  query  string  false  "Cursor RFC3339; vacío = desde el inicio"
// @Param        limit  query  int     false  "Máximo de registros (default 100)"
// @Success      200  {array}  dto.MovementDTO
// @Router       /api/stock/lots/{lotId}/movements [get]
func (h *StockHandler) Movements(c *fiber.Ctx) error {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_CURSOR", Message: "since debe ser RFC3339"})
		}
		since = parsed
	}
	movs, err := h.ledger.GetMovements(c.Context(), c.Params("lotId"), since, c.QueryInt("limit"))
	if err != nil {
		return stockError(c, err)
	}
	out := make([]dto.MovementDTO, 0, len(movs))
	for _, m := range movs {
		out = append(out, dto.NewMovementDTO(m))
	}
	// El cursor de la próxima página es el created_at del último registro.
	var next string
	if len(movs) > 0 {
		next = movs[len(movs)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return c.JSON(fiber.Map{"total": len(out), "movements": out, "next_since": next})
}

// stockError mapea errores de dominio del ledger a HTTP.
func stockError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "lote no encontrado"})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"})
	case errors.Is(err, domain.ErrWouldUnderAllocate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "WOULD_UNDER_ALLOCATE", Message: "el ajuste dejaría on-hand por debajo de lo reservado"})
	case errors.Is(err, domain.ErrLockTimeout):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "LOCK_TIMEOUT", Message: "contención de bloqueo, reintente"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
