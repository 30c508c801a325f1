package handler

import (
	"errors"
	"mend/internal/dto"
	"mend/internal/middleware"
	"mend/internal/service"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type AccountHandler struct {
	accountService service.AccountService
}

func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

func (h *AccountHandler) LinkAccount(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.LinkAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := middleware.AuthorizeUser(c, req.UserID); err != nil {
		return err
	}

	link, err := h.accountService.Link(ctx, req.UserID, req.StripeAccountID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"user_id":           link.UserID,
		"stripe_account_id": link.StripeAccountID,
	})
}

func (h *AccountHandler) Recoveries(c echo.Context) error {
	ctx := c.Request().Context()

	userID := c.Param("id")
	if err := middleware.AuthorizeUser(c, userID); err != nil {
		return err
	}

	attempts, err := h.accountService.Recoveries(ctx, userID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, toRecoveryListResponse(attempts))
}

func (h *AccountHandler) WebhookEvents(c echo.Context) error {
	ctx := c.Request().Context()

	userID := c.Param("id")
	if err := middleware.AuthorizeUser(c, userID); err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	events, err := h.accountService.WebhookEvents(ctx, userID, limit)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": toWebhookEventDTOs(events),
	})
}

func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.DeleteAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := middleware.AuthorizeUser(c, req.UserID); err != nil {
		return err
	}

	err := h.accountService.Delete(ctx, req.UserID)
	var pending *service.PendingCommissionsError
	if errors.As(err, &pending) {
		amount := service.FormatAmount(pending.AmountCents)
		return c.JSON(http.StatusConflict, dto.DeleteAccountRefusal{
			Error:              "Cannot delete account with pending commissions",
			PendingAmount:      amount,
			PendingAmountCents: pending.AmountCents,
			CommissionCount:    pending.Count,
			Message:            "You have $" + amount + " in pending commissions. Please settle them before deleting your account.",
		})
	}
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, dto.DeleteAccountResponse{
		Success: true,
		Message: "Account data deleted",
		UserID:  req.UserID,
	})
}
