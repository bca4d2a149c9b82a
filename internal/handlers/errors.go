package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/jd-matcher/internal/logger"
	"alfredoptarigan/jd-matcher/internal/services"
)

var validate = validator.New()

// validateStruct runs the validate tags and reports failures as ErrValidation.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return uploadError("%v", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, field+" must be at most "+fe.Param()+" characters")
		case "min":
			msgs = append(msgs, field+" must be at least "+fe.Param()+" characters")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return uploadError("%s", strings.Join(msgs, "; "))
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, uploadError("invalid %s format", param)
	}
	return id, nil
}

func errorStatus(err error) (int, string) {
	var storageErr *services.StorageError
	var fiberErr *fiber.Error

	switch {
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest, "validation_error"
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrIndexDisabled):
		return fiber.StatusServiceUnavailable, "index_disabled"
	case errors.As(err, &storageErr):
		return fiber.StatusInternalServerError, "storage_error"
	case errors.As(err, &fiberErr):
		return fiberErr.Code, "http_error"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, code := errorStatus(err)

	msg := err.Error()
	if status >= fiber.StatusInternalServerError && code != "index_disabled" {
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		msg = "internal server error"
		if code == "storage_error" {
			msg = "failed to store file"
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}

// ErrorHandler is the fiber fallback for errors not handled by a route.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return respondError(c, log, err)
	}
}
