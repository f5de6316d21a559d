// Package returns exposes the customer return request and the vendor review
// steps that follow it.
package returns

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/controllers/vendorcontext"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	internalreturns "github.com/angelmondragon/bazaar-backend/internal/returns"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const maxReasonLen = 1000

type returnItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,gt=0"`
}

type requestReturnRequest struct {
	Items  []returnItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
	Reason string              `json:"reason" validate:"required,max=1000"`
}

type reviewRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=1000"`
}

// Request opens a return against a delivered order.
func Request(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		actor, err := vendorcontext.RequireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req requestReturnRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalreturns.RequestReturnInput{
			OrderID: orderID,
			Actor:   actor,
			Reason:  validators.SanitizeString(req.Reason, maxReasonLen),
			Items:   make([]internalreturns.ItemInput, 0, len(req.Items)),
		}
		for _, item := range req.Items {
			input.Items = append(input.Items, internalreturns.ItemInput{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
			})
		}

		dto, err := svc.Request(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

type reviewStep func(ctx context.Context, input internalreturns.ReviewInput) (*internalreturns.ReturnDTO, error)

func Approve(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return review(svc, logg, func(svc internalreturns.Service) reviewStep { return svc.Approve })
}

func Reject(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return review(svc, logg, func(svc internalreturns.Service) reviewStep { return svc.Reject })
}

func Receive(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return review(svc, logg, func(svc internalreturns.Service) reviewStep { return svc.ConfirmReceived })
}

func Refund(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return review(svc, logg, func(svc internalreturns.Service) reviewStep { return svc.ProcessRefund })
}

func review(svc internalreturns.Service, logg *logger.Logger, pick func(internalreturns.Service) reviewStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		actor, err := vendorcontext.RequireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		returnID, err := validators.ParseUUIDParam(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reviewRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := pick(svc)(r.Context(), internalreturns.ReviewInput{
			ReturnID: returnID,
			Actor:    actor,
			Reason:   validators.SanitizeString(req.Reason, maxReasonLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
