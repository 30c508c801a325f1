package handler

import (
	"mend/internal/dto"
	"mend/internal/model"
	"mend/internal/service"
	"time"
)

const dateLayout = "2006-01-02"

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func toCommissionDTO(c *model.Commission) dto.Commission {
	return dto.Commission{
		ID:               c.ID,
		UserID:           c.UserID,
		StripeAccountID:  c.StripeAccountID,
		RecoveryID:       c.RecoveryID,
		AmountRecovered:  c.AmountRecovered,
		CommissionAmount: c.CommissionAmount,
		CommissionDollar: service.FormatAmount(c.CommissionAmount),
		Status:           string(c.Status),
		PeriodStart:      c.PeriodStart.Format(dateLayout),
		PeriodEnd:        c.PeriodEnd.Format(dateLayout),
		CreatedAt:        c.CreatedAt.UTC().Format(time.RFC3339),
		InvoiceSentAt:    formatTime(c.InvoiceSentAt),
		PaidAt:           formatTime(c.PaidAt),
	}
}

func toCommissionDTOs(commissions []*model.Commission) []dto.Commission {
	out := make([]dto.Commission, 0, len(commissions))
	for _, c := range commissions {
		out = append(out, toCommissionDTO(c))
	}
	return out
}

func toCommissionListResponse(report *service.CommissionReport) dto.CommissionListResponse {
	resp := dto.CommissionListResponse{
		Success:     true,
		Commissions: toCommissionDTOs(report.Commissions),
		Stats: dto.CommissionStats{
			TotalOwed:      service.FormatAmount(report.Stats.TotalOwed),
			TotalOwedCents: report.Stats.TotalOwed,
			PendingCount:   report.Stats.PendingCount,
			InvoicedCount:  report.Stats.InvoicedCount,
			PaidCount:      report.Stats.PaidCount,
		},
	}

	for _, g := range report.Groups {
		resp.Groups = append(resp.Groups, dto.UserCommissions{
			UserID:         g.UserID,
			TotalOwed:      service.FormatAmount(g.TotalOwed),
			TotalOwedCents: g.TotalOwed,
			Commissions:    toCommissionDTOs(g.Commissions),
		})
	}
	return resp
}

func toRecoveryListResponse(attempts []*model.RecoveryAttempt) dto.RecoveryListResponse {
	resp := dto.RecoveryListResponse{
		Recoveries: make([]dto.Recovery, 0, len(attempts)),
		TotalCount: len(attempts),
	}

	var recovered int64
	for _, a := range attempts {
		resp.Recoveries = append(resp.Recoveries, dto.Recovery{
			ID:              a.ID,
			StripeInvoiceID: a.StripeInvoiceID,
			CustomerEmail:   a.CustomerEmail,
			CustomerName:    a.CustomerName,
			AmountDue:       a.AmountDue,
			Currency:        a.Currency,
			Status:          string(a.Status),
			CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
			RecoveredAt:     formatTime(a.RecoveredAt),
		})
		if a.Status == model.RecoveryStatusRecovered {
			resp.RecoveredCount++
			recovered += a.AmountDue
		}
	}
	resp.RecoveredTotal = service.FormatAmount(recovered)
	return resp
}

func toWebhookEventDTOs(events []*model.WebhookEvent) []dto.WebhookEvent {
	out := make([]dto.WebhookEvent, 0, len(events))
	for _, e := range events {
		var providerID string
		if e.ProviderEventID != nil {
			providerID = *e.ProviderEventID
		}
		out = append(out, dto.WebhookEvent{
			ID:                e.ID,
			ProviderEventID:   providerID,
			EventType:         string(e.EventType),
			ProviderEventType: e.ProviderEventType,
			Status:            string(e.Status),
			ErrorMessage:      e.ErrorMessage,
			Deliveries:        e.Deliveries,
			CreatedAt:         e.CreatedAt.UTC().Format(time.RFC3339),
			ProcessedAt:       formatTime(e.ProcessedAt),
		})
	}
	return out
}
