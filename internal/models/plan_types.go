package models

import "time"

// Well-known plan IDs. Feature locking is tier-relative (see Tier), not
// keyed on these literals.
const (
	PlanFree     = "free"
	PlanStarter  = "starter"  // tier 1, the entry paid tier
	PlanImporter = "importer" // tier 2
	PlanBusiness = "business" // tier 3
)

// Plan is a catalog entry for one subscription tier. Plans are static
// configuration, not user data, but are admin-editable.
type Plan struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// Price is the nominal display price as a localized currency string
	// (dot-grouped thousands, e.g. "2.499"). Discount math parses it and
	// falls back to it unchanged on any parse failure.
	Price string `json:"price" db:"price"`

	// Tier orders plans for relative feature locking: 0 = free.
	Tier int `json:"tier" db:"tier"`

	// Credits is the allotment granted on purchase; UnlimitedCredits for
	// the top tiers.
	Credits int `json:"credits" db:"credits"`

	Features []string `json:"features" db:"-"`

	// Popular is display-only and never entitlement-affecting.
	Popular bool `json:"popular" db:"popular"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IsUnlimited reports whether the plan grants unlimited analyses.
func (p Plan) IsUnlimited() bool {
	return p.Credits == UnlimitedCredits
}

// DefaultPlans is the catalog seeded on first boot. Admin edits persist over
// it in the plans table.
var DefaultPlans = []Plan{
	{
		ID:      PlanFree,
		Name:    "Free",
		Price:   "0",
		Tier:    0,
		Credits: FreeTierCredits,
		Features: []string{
			"tariff-code-lookup",
			"taxes-and-documents",
		},
	},
	{
		ID:      PlanStarter,
		Name:    "Starter",
		Price:   "499",
		Tier:    1,
		Credits: 25,
		Features: []string{
			"tariff-code-lookup",
			"taxes-and-documents",
			"analysis-history",
		},
	},
	{
		ID:      PlanImporter,
		Name:    "Importer",
		Price:   "2.499",
		Tier:    2,
		Credits: UnlimitedCredits,
		Popular: true,
		Features: []string{
			"tariff-code-lookup",
			"taxes-and-documents",
			"analysis-history",
			"market-price-analysis",
			"supplier-email-draft",
		},
	},
	{
		ID:      PlanBusiness,
		Name:    "Business",
		Price:   "4.999",
		Tier:    3,
		Credits: UnlimitedCredits,
		Features: []string{
			"tariff-code-lookup",
			"taxes-and-documents",
			"analysis-history",
			"market-price-analysis",
			"supplier-email-draft",
			"priority-support",
		},
	},
}

// PlanByID looks up a plan in a catalog slice. Returns nil if not found.
func PlanByID(catalog []Plan, id string) *Plan {
	for i := range catalog {
		if catalog[i].ID == id {
			p := catalog[i]
			return &p
		}
	}
	return nil
}
