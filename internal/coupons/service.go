package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// ResolveInput identifies the coupon a customer typed at checkout.
type ResolveInput struct {
	StoreID    uuid.UUID
	Code       string
	CustomerID uuid.UUID
	Subtotal   int
	Now        time.Time
}

// Service validates and redeems coupons inside an order transaction.
type Service interface {
	Resolve(ctx context.Context, tx *gorm.DB, input ResolveInput) (*models.Coupon, error)
	Redeem(ctx context.Context, tx *gorm.DB, coupon *models.Coupon) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Resolve(ctx context.Context, tx *gorm.DB, input ResolveInput) (*models.Coupon, error) {
	if strings.TrimSpace(input.Code) == "" {
		return nil, invalid("coupon code is required")
	}
	repo := s.repo.WithTx(tx)
	coupon, err := repo.FindByCode(ctx, input.StoreID, input.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("invalid coupon code")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	var uses int64
	if coupon.MaxUsesPerCustomer != nil {
		uses, err = repo.CountCustomerRedemptions(ctx, input.StoreID, coupon.Code, input.CustomerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count coupon redemptions")
		}
	}
	if err := Check(coupon, input.Subtotal, input.Now, uses); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Redeem increments used_count exactly once for the order being created.
func (s *service) Redeem(ctx context.Context, tx *gorm.DB, coupon *models.Coupon) error {
	if coupon == nil {
		return nil
	}
	ok, err := s.repo.WithTx(tx).IncrementUsage(ctx, coupon.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem coupon")
	}
	if !ok {
		return invalid("coupon usage limit reached")
	}
	return nil
}
