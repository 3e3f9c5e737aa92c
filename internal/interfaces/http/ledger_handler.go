package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// LedgerHandler consulta y ciclo de vida de ledgers, conciliación y resumen (protegido).
type LedgerHandler struct {
	uc *ledger.LedgerUseCase
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(uc *ledger.LedgerUseCase) *LedgerHandler {
	return &LedgerHandler{uc: uc}
}

// List godoc
// @Summary      Ledgers de la tienda
// @Tags         ledgers
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "máx. 100"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/ledgers [get]
func (h *LedgerHandler) List(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return writeError(c, domain.Invalid("paginación inválida"))
	}
	page.DefaultPage()
	list, err := h.uc.ListLedgers(c.UserContext(), storeID, page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.LedgerResponse, 0, len(list))
	for _, l := range list {
		items = append(items, dto.ToLedgerResponse(l))
	}
	return c.JSON(fiber.Map{
		"items": items,
		"page":  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// Get godoc
// @Summary      Ledger de un producto
// @Tags         ledgers
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID de producto"
// @Success      200  {object}  dto.LedgerResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledgers/{productId} [get]
func (h *LedgerHandler) Get(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	l, err := h.uc.GetLedger(c.UserContext(), storeID, c.Params("productId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToLedgerResponse(l))
}

// Link godoc
// @Summary      Vincular producto a la tienda
// @Tags         ledgers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LinkProductRequest  true  "product_id, selling_price, initial_quantity"
// @Success      201   {object}  dto.LedgerResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ledgers [post]
func (h *LedgerHandler) Link(c *fiber.Ctx) error {
	storeID, userID := GetStoreID(c), GetUserID(c)
	if storeID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.LinkProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	l, err := h.uc.LinkProduct(c.UserContext(), ledger.LinkInput{
		StoreID:         storeID,
		ProductID:       in.ProductID,
		SellingPrice:    in.SellingPrice,
		InitialQuantity: in.InitialQuantity,
		ReorderPoint:    in.ReorderPoint,
		MaxQuantity:     in.MaxQuantity,
		LinkedBy:        userID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToLedgerResponse(l))
}

// Update godoc
// @Summary      Cambiar precio de venta y niveles de reposición
// @Tags         ledgers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        productId  path  string                   true  "ID de producto"
// @Param        body       body  dto.UpdateLedgerRequest  true  "selling_price, reorder_point, max_quantity"
// @Success      200  {object}  dto.LedgerResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledgers/{productId} [patch]
func (h *LedgerHandler) Update(c *fiber.Ctx) error {
	storeID, userID := GetStoreID(c), GetUserID(c)
	if storeID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.UpdateLedgerRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	l, err := h.uc.UpdateLedger(c.UserContext(), ledger.UpdateInput{
		StoreID:      storeID,
		ProductID:    c.Params("productId"),
		SellingPrice: in.SellingPrice,
		ReorderPoint: in.ReorderPoint,
		MaxQuantity:  in.MaxQuantity,
		UpdatedBy:    userID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToLedgerResponse(l))
}

// Deactivate godoc
// @Summary      Dar de baja el ledger (requiere cantidad cero y sin transacciones)
// @Tags         ledgers
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID de producto"
// @Success      200  {object}  dto.LedgerResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/ledgers/{productId} [delete]
func (h *LedgerHandler) Deactivate(c *fiber.Ctx) error {
	storeID, userID := GetStoreID(c), GetUserID(c)
	if storeID == "" || userID == "" {
		return unauthorized(c)
	}
	l, err := h.uc.DeactivateLedger(c.UserContext(), storeID, c.Params("productId"), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToLedgerResponse(l))
}

// Reconcile godoc
// @Summary      Conciliar cantidad con la suma de transacciones
// @Tags         ledgers
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID de producto"
// @Success      200  {object}  dto.ReconcileResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledgers/{productId}/reconcile [get]
func (h *LedgerHandler) Reconcile(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	r, err := h.uc.Reconcile(c.UserContext(), storeID, c.Params("productId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReconcileResponse{
		StoreID:         r.StoreID,
		ProductID:       r.ProductID,
		InitialQuantity: r.InitialQuantity,
		CurrentQuantity: r.CurrentQuantity,
		SumDeltas:       r.SumDeltas,
		Consistent:      r.Consistent,
	})
}

// Summary godoc
// @Summary      Resumen financiero de la tienda
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        from  query  string  false  "RFC3339, inclusivo"
// @Param        to    query  string  false  "RFC3339, exclusivo (por defecto ahora)"
// @Success      200  {object}  dto.StoreSummaryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/summary [get]
func (h *LedgerHandler) Summary(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		return writeError(c, err)
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		return writeError(c, err)
	}
	var fromT, toT time.Time
	if from != nil {
		fromT = *from
	}
	if to != nil {
		toT = *to
	}
	s, err := h.uc.StoreSummary(c.UserContext(), storeID, fromT, toT)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StoreSummaryResponse{
		StoreID:          s.StoreID,
		From:             s.From,
		To:               s.To,
		Revenue:          s.Revenue,
		Discounts:        s.Discounts,
		CostOfGoodsSold:  s.CostOfGoodsSold,
		GrossProfit:      s.GrossProfit,
		PurchaseSpend:    s.PurchaseSpend,
		UnitsSold:        s.UnitsSold,
		UnitsPurchased:   s.UnitsPurchased,
		TransactionCount: s.TransactionCount,
	})
}

// Replenishment godoc
// @Summary      Lista de reposición (productos en o bajo el punto de pedido)
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.ReplenishmentSuggestionResponse
// @Router       /api/reports/replenishment [get]
func (h *LedgerHandler) Replenishment(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	list, err := h.uc.ReplenishmentList(c.UserContext(), storeID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.ReplenishmentSuggestionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, dto.ReplenishmentSuggestionResponse{
			ProductID:          s.ProductID,
			CurrentQuantity:    s.CurrentQuantity,
			ReorderPoint:       s.ReorderPoint,
			IdealQuantity:      s.IdealQuantity,
			SuggestedOrderQty:  s.SuggestedOrderQty,
			UnitCost:           s.UnitCost,
			EstimatedOrderCost: s.EstimatedOrderCost,
			GrossMarginPct:     s.GrossMarginPct,
			UnitsSoldLast90:    s.UnitsSoldWindow,
			Priority:           s.Priority,
		})
	}
	return c.JSON(out)
}
