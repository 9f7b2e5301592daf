package http

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/domain"
)

// Códigos de error expuestos en el sobre de respuesta.
const (
	CodeValidation        = "VALIDATION"
	CodeDuplicate         = "DUPLICATE"
	CodeConflict          = "CONFLICT"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeCooldown          = "COOLDOWN"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInvalidBody       = "INVALID_BODY"
	CodeInternal          = "INTERNAL"
)

// generalField campo usado cuando el error no pertenece a un campo concreto.
const generalField = "general"

func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(dto.Envelope{Success: true, Data: data})
}

func reject(c *fiber.Ctx, status int, code string, fields ...domain.FieldError) error {
	return c.Status(status).JSON(dto.Envelope{
		Success:   false,
		Code:      code,
		Errors:    fields,
		RequestID: GetRequestID(c),
	})
}

func rejectMessage(c *fiber.Ctx, status int, code, message string) error {
	return reject(c, status, code, domain.FieldError{Field: generalField, Message: message})
}

func invalidBody(c *fiber.Ctx) error {
	return rejectMessage(c, fiber.StatusBadRequest, CodeInvalidBody, "cuerpo inválido")
}

// respondError traduce los errores de dominio a su estado HTTP. Lo que no pertenece a la
// taxonomía (o es un fallo de infraestructura) se devuelve a Fiber para que ErrorHandler
// lo registre con el request_id y responda 500.
func respondError(c *fiber.Ctx, err error) error {
	var fe *domain.FieldErrors
	if errors.As(err, &fe) {
		status, code := fiber.StatusBadRequest, CodeValidation
		if errors.Is(fe.Kind, domain.ErrDuplicate) {
			status, code = fiber.StatusConflict, CodeDuplicate
		}
		return reject(c, status, code, fe.Fields...)
	}

	var stock *domain.InsufficientStockError
	if errors.As(err, &stock) {
		fields := make([]domain.FieldError, 0, len(stock.Shortages))
		for _, s := range stock.Shortages {
			name := s.ProductName
			if name == "" {
				name = s.ProductID
			}
			fields = append(fields, domain.FieldError{
				Field:   "items." + s.ProductID,
				Message: fmt.Sprintf("stock insuficiente para %s: solicitado %d, disponible %d, faltan %d", name, s.Requested, s.Available, s.Shortfall()),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.Envelope{
			Success:   false,
			Code:      CodeInsufficientStock,
			Data:      fiber.Map{"shortages": stock.Shortages},
			Errors:    fields,
			RequestID: GetRequestID(c),
		})
	}

	var cooldown *domain.CooldownError
	if errors.As(err, &cooldown) {
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds(cooldown.RetryAfter))
		return rejectMessage(c, fiber.StatusTooManyRequests, CodeCooldown, err.Error())
	}

	switch {
	case errors.Is(err, domain.ErrPrimaryWrite),
		errors.Is(err, domain.ErrSecondaryWrite),
		errors.Is(err, domain.ErrConfiguration):
		return err
	case errors.Is(err, domain.ErrInvalidInput):
		return rejectMessage(c, fiber.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		return rejectMessage(c, fiber.StatusBadRequest, CodeInsufficientStock, err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		return rejectMessage(c, fiber.StatusConflict, CodeDuplicate, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return rejectMessage(c, fiber.StatusConflict, CodeConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return rejectMessage(c, fiber.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return rejectMessage(c, fiber.StatusUnauthorized, CodeUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return rejectMessage(c, fiber.StatusForbidden, CodeForbidden, err.Error())
	case errors.Is(err, domain.ErrCooldown):
		return rejectMessage(c, fiber.StatusTooManyRequests, CodeCooldown, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		return rejectMessage(c, fiber.StatusTooManyRequests, CodeRateLimited, err.Error())
	}
	return err
}

func retryAfterSeconds(at time.Time) string {
	secs := math.Ceil(time.Until(at).Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(int64(secs), 10)
}

// ErrorHandler manejador central de Fiber: errores de ruta conocidos conservan su estado,
// el resto se registra y responde 500 con un mensaje genérico y el request_id.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
			return rejectMessage(c, fe.Code, fiberCode(fe.Code), fe.Message)
		}
		reqID := GetRequestID(c)
		log.Error().
			Err(err).
			Str("request_id", reqID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("error interno")
		return rejectMessage(c, fiber.StatusInternalServerError, CodeInternal,
			"error interno; referencia "+reqID)
	}
}

func fiberCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return CodeNotFound
	case fiber.StatusUnauthorized:
		return CodeUnauthorized
	case fiber.StatusForbidden:
		return CodeForbidden
	case fiber.StatusTooManyRequests:
		return CodeRateLimited
	}
	return CodeValidation
}
