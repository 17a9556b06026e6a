package payment

import (
	"context"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// StripeProvider implements Provider with a Stripe PaymentIntent created and
// confirmed server-side. Intentionally one call deep: webhook handling and
// the rest of the gateway protocol are out of scope.
type StripeProvider struct {
	Currency string
}

// NewStripeProvider configures the global Stripe key and returns a provider.
func NewStripeProvider(apiKey, currency string) *StripeProvider {
	stripe.Key = apiKey
	if currency == "" {
		currency = "try"
	}
	return &StripeProvider{Currency: currency}
}

func (p *StripeProvider) ConfirmPayment(_ context.Context, userEmail, planID string, amountUnits int) error {
	params := &stripe.PaymentIntentParams{
		// Stripe amounts are in minor units.
		Amount:       stripe.Int64(int64(amountUnits) * 100),
		Currency:     stripe.String(p.Currency),
		ReceiptEmail: stripe.String(userEmail),
		Confirm:      stripe.Bool(true),
		Metadata: map[string]string{
			"plan_id": planID,
		},
	}
	if _, err := paymentintent.New(params); err != nil {
		return Err(err)
	}
	return nil
}
