package service

import (
	"context"
	"errors"
	"fmt"
	"mend/internal/model"
	"mend/internal/repository"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommissionPercentage is the fee charged on every recovered invoice.
const CommissionPercentage = 10

// CalculateCommission builds the pending commission owed for a recovered attempt.
func CalculateCommission(attempt *model.RecoveryAttempt, userID string, amountRecovered int64, now time.Time) *model.Commission {
	start, end := BillingPeriod(now)
	return &model.Commission{
		ID:                   uuid.NewString(),
		UserID:               userID,
		StripeAccountID:      attempt.StripeAccountID,
		RecoveryID:           attempt.ID,
		AmountRecovered:      amountRecovered,
		CommissionPercentage: CommissionPercentage,
		CommissionAmount:     amountRecovered * CommissionPercentage / 100,
		PeriodStart:          start,
		PeriodEnd:            end,
		Status:               model.CommissionStatusPending,
	}
}

// BillingPeriod returns the first and last day of the UTC calendar month containing now.
func BillingPeriod(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

type CommissionStats struct {
	TotalOwed     int64
	PendingCount  int
	InvoicedCount int
	PaidCount     int
}

type UserCommissions struct {
	UserID      string
	TotalOwed   int64
	Commissions []*model.Commission
}

type CommissionReport struct {
	Commissions []*model.Commission
	Groups      []UserCommissions
	Stats       CommissionStats
}

type CommissionService interface {
	List(ctx context.Context, filter repository.CommissionFilter, groupByUser bool) (*CommissionReport, error)
	MarkInvoiced(ctx context.Context, commissionID, userID string) (*model.Commission, error)
	MarkPaid(ctx context.Context, commissionID, userID string) (*model.Commission, error)
}

type commissionServiceImpl struct {
	commissionRepo repository.CommissionRepository
	now            func() time.Time
}

func NewCommissionService(commissionRepo repository.CommissionRepository) CommissionService {
	return &commissionServiceImpl{
		commissionRepo: commissionRepo,
		now:            time.Now,
	}
}

// List returns commissions newest first. Total owed counts pending and invoiced commissions.
func (s *commissionServiceImpl) List(ctx context.Context, filter repository.CommissionFilter, groupByUser bool) (*CommissionReport, error) {
	commissions, err := s.commissionRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}

	report := &CommissionReport{Commissions: commissions}
	groups := map[string]*UserCommissions{}
	for _, c := range commissions {
		switch c.Status {
		case model.CommissionStatusPending:
			report.Stats.PendingCount++
			report.Stats.TotalOwed += c.CommissionAmount
		case model.CommissionStatusInvoiced:
			report.Stats.InvoicedCount++
			report.Stats.TotalOwed += c.CommissionAmount
		case model.CommissionStatusPaid:
			report.Stats.PaidCount++
		}

		if !groupByUser {
			continue
		}
		g, ok := groups[c.UserID]
		if !ok {
			g = &UserCommissions{UserID: c.UserID}
			groups[c.UserID] = g
		}
		g.Commissions = append(g.Commissions, c)
		if c.Status != model.CommissionStatusPaid {
			g.TotalOwed += c.CommissionAmount
		}
	}

	for _, g := range groups {
		report.Groups = append(report.Groups, *g)
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		return report.Groups[i].UserID < report.Groups[j].UserID
	})

	return report, nil
}

func (s *commissionServiceImpl) MarkInvoiced(ctx context.Context, commissionID, userID string) (*model.Commission, error) {
	return s.transition(ctx, commissionID, userID, model.CommissionStatusPending, model.CommissionStatusInvoiced)
}

func (s *commissionServiceImpl) MarkPaid(ctx context.Context, commissionID, userID string) (*model.Commission, error) {
	return s.transition(ctx, commissionID, userID, model.CommissionStatusInvoiced, model.CommissionStatusPaid)
}

func (s *commissionServiceImpl) transition(ctx context.Context, commissionID, userID string, from, to model.CommissionStatus) (*model.Commission, error) {
	moved, err := s.commissionRepo.Transition(ctx, commissionID, userID, from, to, s.now())
	if err != nil {
		return nil, fmt.Errorf("mark commission %s: %w", to, err)
	}

	commission, err := s.commissionRepo.Get(ctx, commissionID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("commission %s for user %s: %w", commissionID, userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load commission: %w", err)
	}

	if !moved {
		return nil, fmt.Errorf("%w: commission %s is %s, expected %s", ErrInvalidTransition, commissionID, commission.Status, from)
	}

	return commission, nil
}
