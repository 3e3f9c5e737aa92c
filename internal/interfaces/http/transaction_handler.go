package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TransactionHandler ventas, compras y ajustes sobre el ledger (protegido).
type TransactionHandler struct {
	process *ledger.ProcessTransactionUseCase
	ledgers *ledger.LedgerUseCase
}

// NewTransactionHandler construye el handler.
func NewTransactionHandler(process *ledger.ProcessTransactionUseCase, ledgers *ledger.LedgerUseCase) *TransactionHandler {
	return &TransactionHandler{process: process, ledgers: ledgers}
}

// Record godoc
// @Summary      Registrar transacción (SALE, PURCHASE, ADJUSTMENT)
// @Description  El precio de venta lo fija el ledger; unit_cost solo en compras, discount solo en ventas.
// @Tags         transactions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordTransactionRequest  true  "product_id, type, quantity, unit_cost, discount, idempotency_key"
// @Success      201   {object}  dto.RecordTransactionResponse
// @Success      200   {object}  dto.RecordTransactionResponse  "repetición idempotente"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/transactions [post]
func (h *TransactionHandler) Record(c *fiber.Ctx) error {
	storeID, userID := GetStoreID(c), GetUserID(c)
	if storeID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.RecordTransactionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	key := in.IdempotencyKey
	if key == "" {
		key = c.Get("Idempotency-Key")
	}
	res, err := h.process.Process(c.UserContext(), ledger.TransactionInput{
		StoreID:        storeID,
		ProductID:      in.ProductID,
		Type:           in.Type,
		Quantity:       in.Quantity,
		UnitCost:       in.UnitCost,
		Discount:       in.Discount,
		RecordedBy:     userID,
		Notes:          in.Notes,
		IdempotencyKey: key,
	})
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusCreated
	if res.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.RecordTransactionResponse{
		Transaction: dto.ToTransactionResponse(res.Transaction),
		NewQuantity: res.NewQuantity,
		Replayed:    res.Replayed,
	})
}

// List godoc
// @Summary      Historial de transacciones de la tienda
// @Tags         transactions
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  false  "Filtrar por producto"
// @Param        from        query  string  false  "RFC3339, inclusivo"
// @Param        to          query  string  false  "RFC3339, exclusivo"
// @Param        limit       query  int     false  "máx. 100"
// @Param        offset      query  int     false  "desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/transactions [get]
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return writeError(c, domain.Invalid("paginación inválida"))
	}
	page.DefaultPage()
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		return writeError(c, err)
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.ledgers.ListTransactions(c.UserContext(), repository.TransactionFilter{
		StoreID:   storeID,
		ProductID: c.Query("product_id"),
		From:      from,
		To:        to,
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.TransactionResponse, 0, len(list))
	for _, t := range list {
		items = append(items, dto.ToTransactionResponse(t))
	}
	return c.JSON(fiber.Map{
		"items": items,
		"page":  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// GetByID godoc
// @Summary      Obtener transacción
// @Tags         transactions
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de transacción"
// @Success      200  {object}  dto.TransactionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transactions/{id} [get]
func (h *TransactionHandler) GetByID(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	t, err := h.ledgers.GetTransaction(c.UserContext(), storeID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToTransactionResponse(t))
}

func parseTimeQuery(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.Invalid("%s debe ser RFC3339", name)
	}
	return &t, nil
}
