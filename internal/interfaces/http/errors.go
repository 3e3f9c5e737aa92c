package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// writeError traduce errores de dominio a status HTTP y cuerpo ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	kind := domain.Kind(err)
	resp := dto.ErrorResponse{Code: kind, Message: err.Error()}
	status := fiber.StatusInternalServerError
	switch kind {
	case "NOT_FOUND":
		status = fiber.StatusNotFound
	case "INVALID_REQUEST":
		status = fiber.StatusBadRequest
	case "INSUFFICIENT_STOCK":
		status = fiber.StatusConflict
		var ise *domain.InsufficientStockError
		if errors.As(err, &ise) {
			resp.Available = &ise.Available
			resp.Required = &ise.Required
		}
	case "CONFLICT":
		status = fiber.StatusConflict
	case "STORAGE_FAILURE":
		status = fiber.StatusServiceUnavailable
		resp.Retryable = true
		resp.Message = "almacenamiento no disponible, reintente"
	case "UNAUTHORIZED":
		status = fiber.StatusUnauthorized
	case "FORBIDDEN":
		status = fiber.StatusForbidden
	default:
		resp.Message = "error interno"
	}
	return c.Status(status).JSON(resp)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}
