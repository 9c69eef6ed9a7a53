// Package validator adapts go-playground/validator to Echo's Validator interface.
package validator

import (
	"net/http"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator wraps the validator instance for Echo.
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

// New creates a validator that checks `validate` struct tags on bound requests.
func New() *CustomValidator {
	return &CustomValidator{
		validator: playgroundvalidator.New(playgroundvalidator.WithRequiredStructEnabled()),
	}
}

// Validate implements echo.Validator. Tag failures become 400s so the error
// handler does not log them as internal errors.
func (v *CustomValidator) Validate(i any) error {
	if err := v.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return nil
}
