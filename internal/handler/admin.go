package handler

import (
	"mend/internal/dto"
	"mend/internal/model"
	"mend/internal/repository"
	"mend/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	commissionService service.CommissionService
}

func NewAdminHandler(commissionService service.CommissionService) *AdminHandler {
	return &AdminHandler{
		commissionService: commissionService,
	}
}

func (h *AdminHandler) ListCommissions(c echo.Context) error {
	ctx := c.Request().Context()

	filter := repository.CommissionFilter{
		UserID: c.QueryParam("user_id"),
		Status: model.CommissionStatus(c.QueryParam("status")),
	}
	switch filter.Status {
	case "", model.CommissionStatusPending, model.CommissionStatusInvoiced, model.CommissionStatusPaid:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status filter")
	}

	groupBy := c.QueryParam("group_by")
	if groupBy != "" && groupBy != "user" {
		return echo.NewHTTPError(http.StatusBadRequest, "group_by must be user")
	}

	report, err := h.commissionService.List(ctx, filter, groupBy == "user")
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, toCommissionListResponse(report))
}

func (h *AdminHandler) MarkInvoiced(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CommissionActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.commissionService.MarkInvoiced(ctx, req.CommissionID, req.UserID); err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, dto.CommissionActionResponse{
		Success: true,
		Message: "Commission marked as invoiced",
	})
}

func (h *AdminHandler) MarkPaid(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CommissionActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.commissionService.MarkPaid(ctx, req.CommissionID, req.UserID); err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, dto.CommissionActionResponse{
		Success: true,
		Message: "Commission marked as paid",
	})
}
