package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

func planPriced(price string) models.Plan {
	return models.Plan{ID: models.PlanImporter, Name: "Importer", Price: price, Tier: 2}
}

func discountedUser(rate float64, endDate time.Time) *models.User {
	u := activeUser(5)
	u.Discount = &models.Discount{IsActive: true, Rate: rate, EndDate: endDate}
	return u
}

func TestPriceFor(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(30 * 24 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		plan models.Plan
		user *models.User
		want DisplayPrice
	}{
		{
			"guest pays nominal",
			planPriced("2.499"), nil,
			DisplayPrice{Amount: "2.499"},
		},
		{
			"no discount pays nominal",
			planPriced("2.499"), activeUser(5),
			DisplayPrice{Amount: "2.499"},
		},
		{
			"active discount halves and reformats",
			planPriced("2.499"), discountedUser(0.5, future),
			DisplayPrice{Amount: "1.249", Original: "2.499", Discounted: true},
		},
		{
			"expired discount must not apply",
			planPriced("2.499"), discountedUser(0.5, yesterday),
			DisplayPrice{Amount: "2.499"},
		},
		{
			"inactive discount ignored",
			planPriced("499"), func() *models.User {
				u := discountedUser(0.3, future)
				u.Discount.IsActive = false
				return u
			}(),
			DisplayPrice{Amount: "499"},
		},
		{
			"rate out of range ignored",
			planPriced("499"), discountedUser(1.5, future),
			DisplayPrice{Amount: "499"},
		},
		{
			"malformed price falls back to nominal",
			planPriced("contact us"), discountedUser(0.5, future),
			DisplayPrice{Amount: "contact us"},
		},
		{
			"discount floors to whole units",
			planPriced("499"), discountedUser(0.33, future),
			DisplayPrice{Amount: "334", Original: "499", Discounted: true},
		},
		{
			"regrouping crosses a thousands boundary",
			planPriced("4.999"), discountedUser(0.1, future),
			DisplayPrice{Amount: "4.499", Original: "4.999", Discounted: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PriceFor(tt.plan, tt.user, now))
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"2.499", 2499, true},
		{"499", 499, true},
		{"0", 0, true},
		{"1,250", 1250, true},
		{" 4.999 ", 4999, true},
		{"", 0, false},
		{"free", 0, false},
		{"-100", 0, false},
	}

	for _, tt := range tests {
		got, ok := parsePrice(tt.in)
		assert.Equal(t, tt.ok, ok, "parsePrice(%q) ok", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "parsePrice(%q)", tt.in)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{42, "42"},
		{999, "999"},
		{1000, "1.000"},
		{2499, "2.499"},
		{1234567, "1.234.567"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatPrice(tt.in))
	}
}
