package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/internal/webhooks/provider"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/idempotency"
)

// ProviderConsumer namespaces webhook delivery claims in redis.
const ProviderConsumer = "provider-webhook"

const maxWebhookBytes = 1 << 20

type ProviderWebhookService interface {
	HandleEvent(ctx context.Context, event *provider.Event) (enums.Outcome, error)
}

type providerWebhookGuard interface {
	Claim(ctx context.Context, consumer, eventID string) (idempotency.ClaimState, error)
	Confirm(ctx context.Context, consumer, eventID string) error
	Release(ctx context.Context, consumer, eventID string) error
}

type webhookAck struct {
	EventID string        `json:"event_id"`
	Outcome enums.Outcome `json:"outcome"`
}

// ProviderWebhook verifies, dedupes and dispatches payment provider callbacks.
func ProviderWebhook(svc ProviderWebhookService, secret string, guard providerWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := provider.Verify(payload, r.Header.Get(provider.SignatureHeader), secret, time.Now(), provider.DefaultTolerance); err != nil {
			code := pkgerrors.CodeUnauthorized
			if errors.Is(err, provider.ErrMissingSignature) {
				code = pkgerrors.CodeValidation
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(code, err, "verify signature"))
			return
		}

		event, err := provider.ParseEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": string(event.Type)})
		}

		claim, err := guard.Claim(ctx, ProviderConsumer, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim webhook delivery"))
			return
		}
		switch claim {
		case idempotency.ClaimProcessed:
			if logg != nil {
				logg.Info(ctx, "provider webhook duplicate delivery")
			}
			responses.WriteSuccess(w, webhookAck{EventID: event.ID, Outcome: enums.OutcomeAlreadyProcessed})
			return
		case idempotency.ClaimInFlight:
			// The provider redelivers on non-2xx, by which time the holder has confirmed or expired.
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "webhook delivery already in progress"))
			return
		}

		outcome, err := svc.HandleEvent(ctx, event)
		if err != nil {
			if relErr := guard.Release(ctx, ProviderConsumer, event.ID); relErr != nil && logg != nil {
				logg.Warn(logg.WithField(ctx, "error", relErr.Error()), "release webhook claim failed")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := guard.Confirm(ctx, ProviderConsumer, event.ID); err != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "confirm webhook claim failed")
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "outcome", string(outcome)), "provider webhook processed")
		}
		responses.WriteSuccess(w, webhookAck{EventID: event.ID, Outcome: outcome})
	}
}
