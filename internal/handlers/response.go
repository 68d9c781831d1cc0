package handlers

import (
	"errors"
	"fmt"
	"reflect"

	"petalpaint/internal/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NewValidator returns a validator that understands decimal amounts, so
// that tags like gt=0 work on prices.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

func success(c *fiber.Ctx, status int, body fiber.Map) error {
	if body == nil {
		body = fiber.Map{}
	}
	body["success"] = true
	return c.Status(status).JSON(body)
}

func fail(c *fiber.Ctx, status int, message string, detail interface{}) error {
	body := fiber.Map{
		"success": false,
		"message": message,
	}
	if detail != nil {
		body["error"] = detail
	}
	return c.Status(status).JSON(body)
}

// requestError is a malformed request body, reported with per-field detail.
type requestError struct {
	message string
	detail  interface{}
}

func (e *requestError) Error() string {
	return e.message
}

// parseAndValidate binds the JSON body into dst and runs its validate tags.
func parseAndValidate(c *fiber.Ctx, v *validator.Validate, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return &requestError{message: "Invalid request body", detail: err.Error()}
	}
	return validate(v, dst)
}

func validate(v *validator.Validate, dst interface{}) error {
	err := v.Struct(dst)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return &requestError{message: "Validation failed", detail: err.Error()}
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return &requestError{message: "Validation failed", detail: errorMessages}
}

// respondError maps a service error onto the JSON error envelope.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return fail(c, fiber.StatusBadRequest, reqErr.message, reqErr.detail)
	}
	if appErr, ok := apperror.As(err); ok {
		status := appErr.StatusCode()
		if status >= fiber.StatusInternalServerError {
			log.Error("Request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			return fail(c, status, appErr.Message, errString(appErr.Err))
		}
		return fail(c, status, appErr.Message, nil)
	}

	log.Error("Unexpected error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return fail(c, fiber.StatusInternalServerError, "Internal server error", err.Error())
}

func errString(err error) interface{} {
	if err == nil {
		return nil
	}
	return err.Error()
}
