package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"contest_hub/internal/common"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Stripe creates hosted checkout sessions in payment mode.
type Stripe struct {
	api        *client.API
	successURL string
	cancelURL  string
}

func NewStripe(secretKey, successURL, cancelURL string, timeout time.Duration) *Stripe {
	backends := stripe.NewBackends(&http.Client{Timeout: timeout})
	return &Stripe{
		api:        client.New(secretKey, backends),
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (s *Stripe) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(s.successURL),
		CancelURL:     stripe.String(s.cancelURL),
		CustomerEmail: stripe.String(req.UserEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ContestName),
					},
					UnitAmount: stripe.Int64(req.PriceMinorUnits),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetaContestID, req.ContestID)
	params.AddMetadata(MetaUserEmail, req.UserEmail)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w: %w", common.ErrGateway, err)
	}
	return &Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}

func (s *Stripe) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe retrieve checkout session %s: %w: %w", sessionID, common.ErrGateway, err)
	}
	return &Session{
		ID:               sess.ID,
		Paid:             sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		AmountMinorUnits: sess.AmountTotal,
		Currency:         string(sess.Currency),
		Metadata:         sess.Metadata,
	}, nil
}
