// Package provider applies signed payment-provider callbacks to the payment
// and payout workflows.
package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/payments"
	"github.com/angelmondragon/bazaar-backend/internal/payouts"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type paymentSettler interface {
	ConfirmPayment(ctx context.Context, input payments.ConfirmPaymentInput) (*payments.SettlementResult, error)
	FailPayment(ctx context.Context, input payments.FailPaymentInput) (*payments.SettlementResult, error)
}

type payoutTracker interface {
	MarkProcessing(ctx context.Context, payoutID uuid.UUID) (enums.Outcome, error)
	Confirm(ctx context.Context, input payouts.ConfirmPayoutInput) (enums.Outcome, error)
	Fail(ctx context.Context, input payouts.FailPayoutInput) (enums.Outcome, error)
}

type ServiceParams struct {
	Payments paymentSettler
	Payouts  payoutTracker
	Logger   *logger.Logger
}

type Service struct {
	payments paymentSettler
	payouts  payoutTracker
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payout service required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{payments: params.Payments, payouts: params.Payouts, logg: logg}, nil
}

// HandleEvent routes event to the matching workflow. Unknown types are
// acknowledged without effect so the provider stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *Event) (enums.Outcome, error) {
	if event == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	switch event.Type {
	case EventPaymentSucceeded:
		var data PaymentData
		if err := event.decode(&data); err != nil {
			return "", err
		}
		res, err := s.payments.ConfirmPayment(ctx, payments.ConfirmPaymentInput{
			OrderID:          data.OrderID,
			PaymentReference: data.Reference,
			AmountCents:      data.AmountCents,
			Currency:         data.Currency,
		})
		if err != nil {
			return "", err
		}
		return res.Outcome, nil
	case EventPaymentFailed:
		var data PaymentData
		if err := event.decode(&data); err != nil {
			return "", err
		}
		res, err := s.payments.FailPayment(ctx, payments.FailPaymentInput{OrderID: data.OrderID, Reason: data.Reason})
		if err != nil {
			return "", err
		}
		return res.Outcome, nil
	case EventPayoutProcessing:
		var data PayoutData
		if err := event.decode(&data); err != nil {
			return "", err
		}
		return s.payouts.MarkProcessing(ctx, data.PayoutID)
	case EventPayoutCompleted:
		var data PayoutData
		if err := event.decode(&data); err != nil {
			return "", err
		}
		return s.payouts.Confirm(ctx, payouts.ConfirmPayoutInput{PayoutID: data.PayoutID, ExternalReference: data.ExternalReference})
	case EventPayoutFailed:
		var data PayoutData
		if err := event.decode(&data); err != nil {
			return "", err
		}
		return s.payouts.Fail(ctx, payouts.FailPayoutInput{PayoutID: data.PayoutID, Reason: data.Reason})
	default:
		logCtx := s.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": event.Type})
		s.logg.Warn(logCtx, "ignoring unsupported provider event")
		return enums.OutcomeAlreadyProcessed, nil
	}
}
