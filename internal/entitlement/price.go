package entitlement

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

// DisplayPrice is the price to show (and charge) for a plan purchase.
// When a discount applied, Original carries the nominal price for
// "was/now" rendering.
type DisplayPrice struct {
	Amount     string `json:"amount"`
	Original   string `json:"original,omitempty"`
	Discounted bool   `json:"discounted"`
}

// PriceFor computes the price of a plan for a user at the given instant.
// A discount applies only while it is active AND its end date is still in
// the future; the freshness check happens here, at the point of use.
// Malformed nominal price strings fall back to the nominal price unchanged —
// never a crash, never a zero charge.
func PriceFor(plan models.Plan, user *models.User, now time.Time) DisplayPrice {
	nominal := DisplayPrice{Amount: plan.Price}

	if user == nil || !user.Discount.Valid(now) {
		return nominal
	}

	amount, ok := parsePrice(plan.Price)
	if !ok {
		return nominal
	}

	discounted := int(float64(amount) * (1 - user.Discount.Rate))
	return DisplayPrice{
		Amount:     formatPrice(discounted),
		Original:   plan.Price,
		Discounted: true,
	}
}

// ChargeFor resolves the amount to actually charge for a purchase: the
// discounted price when a fresh discount applies, the nominal otherwise.
// An unparseable final amount is an error — never charge zero on bad data.
func ChargeFor(plan models.Plan, user *models.User, now time.Time) (int, DisplayPrice, error) {
	display := PriceFor(plan, user, now)
	units, ok := parsePrice(display.Amount)
	if !ok {
		return 0, display, fmt.Errorf("plan %s has unparseable price %q", plan.ID, display.Amount)
	}
	return units, display, nil
}

// parsePrice turns a localized price string ("2.499") into whole currency
// units. Thousands separators (dots and commas) are stripped before parsing.
func parsePrice(s string) (int, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// formatPrice renders whole units with dot-grouped thousands ("2.499").
func formatPrice(n int) string {
	digits := strconv.Itoa(n)
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
