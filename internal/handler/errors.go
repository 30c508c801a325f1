package handler

import (
	"errors"
	"fmt"
	"mend/internal/service"
	"mend/internal/validation"
	"net/http"

	"github.com/labstack/echo/v4"
)

// bindAndValidate decodes the JSON body into req and runs the echo validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validation.Describe(err))
	}
	return nil
}

func serviceError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAccountAlreadyLinked):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return fmt.Errorf("internal: %w", err)
}
