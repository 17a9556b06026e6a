// Package payment is the boundary to the hosted payment processor. The app
// only ever needs one call: confirm a charge for a plan purchase.
package payment

import (
	"context"
	"fmt"
	"log"
)

// Provider confirms a payment for a plan purchase. amountUnits is the price
// in whole currency units after any discount.
type Provider interface {
	ConfirmPayment(ctx context.Context, userEmail, planID string, amountUnits int) error
}

// StubProvider accepts every payment. Used in development and wherever the
// processor integration is not configured.
type StubProvider struct{}

func (StubProvider) ConfirmPayment(_ context.Context, userEmail, planID string, amountUnits int) error {
	log.Printf("payment(stub): confirmed %d units for %s on plan %s", amountUnits, userEmail, planID)
	return nil
}

// Err wraps processor failures so handlers can map them uniformly.
func Err(err error) error {
	return fmt.Errorf("payment failed: %w", err)
}
