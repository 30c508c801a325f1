package server

import (
	"context"
	"log/slog"
	"mend/internal/config"
	"mend/internal/handler"
	"mend/internal/middleware"
	"mend/internal/service"
	"mend/internal/validation"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Server struct {
	echo           *echo.Echo
	jwtSecret      string
	webhookHandler *handler.WebhookHandler
	adminHandler   *handler.AdminHandler
	accountHandler *handler.AccountHandler
}

func NewServer(
	cfg *config.Config,
	log *slog.Logger,
	webhookService service.WebhookService,
	commissionService service.CommissionService,
	accountService service.AccountService,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()

	middleware.Register(e, log)

	s := &Server{
		echo:           e,
		jwtSecret:      cfg.Auth.JWTSecret,
		webhookHandler: handler.NewWebhookHandler(webhookService, &cfg.Stripe),
		adminHandler:   handler.NewAdminHandler(commissionService),
		accountHandler: handler.NewAccountHandler(accountService),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- stripe webhooks --------
	api.POST("/webhooks/stripe", s.webhookHandler.StripeWebhook)
	api.GET("/webhooks/stripe", s.webhookHandler.StripeWebhookStatus)

	authed := api.Group("", middleware.JWTAuth(s.jwtSecret))

	// -------- admin commission ledger --------
	admin := authed.Group("/admin", middleware.RequireAdmin())
	admin.GET("/commissions", s.adminHandler.ListCommissions)
	admin.POST("/commissions/mark-invoiced", s.adminHandler.MarkInvoiced)
	admin.POST("/commissions/mark-paid", s.adminHandler.MarkPaid)

	// -------- user account --------
	authed.POST("/accounts/link", s.accountHandler.LinkAccount)
	authed.GET("/users/:id/recoveries", s.accountHandler.Recoveries)
	authed.GET("/users/:id/webhook-events", s.accountHandler.WebhookEvents)
	authed.POST("/account/delete", s.accountHandler.DeleteAccount)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
