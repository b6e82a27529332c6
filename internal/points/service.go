package points

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/apperr"
)

const (
	CodeInsufficientPoints = "INSUFFICIENT_POINTS"
	CodeInvalidPoints      = "INVALID_POINTS_AMOUNT"
	CodeCustomerNotFound   = "CUSTOMER_NOT_FOUND"
)

type Balance struct {
	Customer     Customer      `json:"customer"`
	Tier         *Tier         `json:"tier,omitempty"`
	Transactions []Transaction `json:"transactions"`
}

type Service interface {
	// Earn credits points against an order.
	Earn(ctx context.Context, customerID uuid.UUID, pts int, orderID *uuid.UUID) error
	// Redeem debits points; fails wholesale when pts exceeds the balance.
	Redeem(ctx context.Context, customerID uuid.UUID, pts int, orderID *uuid.UUID) error
	// Adjust applies a signed manual correction.
	Adjust(ctx context.Context, customerID uuid.UUID, delta int) error
	GetBalance(ctx context.Context, customerID uuid.UUID) (*Balance, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Earn(ctx context.Context, customerID uuid.UUID, pts int, orderID *uuid.UUID) error {
	if pts <= 0 {
		return apperr.Validation(CodeInvalidPoints, "points to earn must be positive")
	}

	balance, err := s.repo.ApplyDelta(ctx, customerID, pts, TxEarned, orderID)
	if err != nil {
		return s.mapLedgerError(err, "earn")
	}

	log.Info().Stringer("customer_id", customerID).Int("points", pts).Int("balance", balance).Msg("service: points earned")
	return nil
}

func (s *service) Redeem(ctx context.Context, customerID uuid.UUID, pts int, orderID *uuid.UUID) error {
	if pts <= 0 {
		return apperr.Validation(CodeInvalidPoints, "points to redeem must be positive")
	}

	balance, err := s.repo.ApplyDelta(ctx, customerID, -pts, TxRedeemed, orderID)
	if err != nil {
		return s.mapLedgerError(err, "redeem")
	}

	log.Info().Stringer("customer_id", customerID).Int("points", pts).Int("balance", balance).Msg("service: points redeemed")
	return nil
}

func (s *service) Adjust(ctx context.Context, customerID uuid.UUID, delta int) error {
	if delta == 0 {
		return apperr.Validation(CodeInvalidPoints, "adjustment must be non-zero")
	}

	balance, err := s.repo.ApplyDelta(ctx, customerID, delta, TxAdjusted, nil)
	if err != nil {
		return s.mapLedgerError(err, "adjust")
	}

	log.Info().Stringer("customer_id", customerID).Int("delta", delta).Int("balance", balance).Msg("service: points adjusted")
	return nil
}

func (s *service) GetBalance(ctx context.Context, customerID uuid.UUID) (*Balance, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return nil, apperr.NotFound(CodeCustomerNotFound, "customer not found").Wrap(err)
		}
		return nil, fmt.Errorf("service: failed to fetch customer: %w", err)
	}

	history, err := s.repo.History(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch points history: %w", err)
	}

	balance := &Balance{Customer: *customer, Transactions: history}

	if customer.TierID != nil {
		tiers, err := s.repo.ListTiers(ctx)
		if err != nil {
			return nil, fmt.Errorf("service: failed to fetch tiers: %w", err)
		}
		for i := range tiers {
			if tiers[i].ID == *customer.TierID {
				balance.Tier = &tiers[i]
				break
			}
		}
	}

	return balance, nil
}

func (s *service) mapLedgerError(err error, op string) error {
	switch {
	case errors.Is(err, ErrCustomerNotFound):
		return apperr.NotFound(CodeCustomerNotFound, "customer not found").Wrap(err)
	case errors.Is(err, ErrInsufficientPoints):
		return apperr.Precondition(CodeInsufficientPoints, "points balance is too low").Wrap(err)
	default:
		return fmt.Errorf("service: failed to %s points: %w", op, err)
	}
}
