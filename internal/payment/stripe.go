package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeProcessor mints payment intents via the Stripe API. Charges are
// confirmed immediately with the supplied payment-method token; no
// redirect-based methods are enabled because the POS terminal is the
// only client.
type StripeProcessor struct {
	api *client.API
}

func NewStripeProcessor(apiKey string) (*StripeProcessor, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("stripe: api key is required")
	}
	return &StripeProcessor{api: client.New(apiKey, nil)}, nil
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, amountCents int64, currency string, methodToken string) (Intent, error) {
	if amountCents < 1 {
		return Intent{}, fmt.Errorf("stripe: amount must be positive, got %d", amountCents)
	}
	if currency == "" {
		currency = "usd"
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(strings.ToLower(currency)),
		PaymentMethod: stripe.String(methodToken),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String(string(stripe.PaymentIntentAutomaticPaymentMethodsAllowRedirectsNever)),
		},
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return Intent{
		TransactionID: pi.ID,
		ClientSecret:  pi.ClientSecret,
		Status:        string(pi.Status),
	}, nil
}
