package entitlement

import (
	"sort"

	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

// Section identifies one part of a classification result.
type Section string

const (
	SectionBasicClassification Section = "basicClassification"
	SectionTaxesAndDocuments   Section = "taxesAndDocuments"
	SectionMarketPriceAnalysis Section = "marketPriceAnalysis"
	SectionSupplierEmailDraft  Section = "supplierEmailDraft"
)

// AllSections lists every result section, in display order.
var AllSections = []Section{
	SectionBasicClassification,
	SectionTaxesAndDocuments,
	SectionMarketPriceAnalysis,
	SectionSupplierEmailDraft,
}

// minimum plan tier required to see each section. Guests (no record at all)
// are handled separately: any lock resolves to a login prompt for them.
var sectionTier = map[Section]int{
	SectionBasicClassification: 0, // visible even to guests
	SectionTaxesAndDocuments:   0, // any authenticated user
	SectionMarketPriceAnalysis: 2, // above the entry paid tier
	SectionSupplierEmailDraft:  2,
}

// LockKind distinguishes the two prompts a locked section can resolve to.
// They must never be conflated: guests always get a login prompt,
// authenticated-but-insufficient-tier users always get an upgrade prompt.
type LockKind string

const (
	LockNone    LockKind = ""
	LockLogin   LockKind = "login"
	LockUpgrade LockKind = "upgrade"
)

// SectionAccess is the visibility verdict for one section.
type SectionAccess struct {
	Section Section  `json:"section"`
	Visible bool     `json:"visible"`
	Lock    LockKind `json:"lock,omitempty"`
	// UpgradeTarget names the cheapest plan that unlocks the section.
	// Only set when Lock == LockUpgrade.
	UpgradeTarget string `json:"upgradeTarget,omitempty"`
}

// Visibility answers whether a section is visible to the given user (nil =
// guest) under the given plan catalog.
func Visibility(user *models.User, section Section, catalog []models.Plan) SectionAccess {
	required, known := sectionTier[section]
	if !known {
		return SectionAccess{Section: section, Lock: LockLogin}
	}

	if section == SectionBasicClassification {
		return SectionAccess{Section: section, Visible: true}
	}

	if user == nil {
		return SectionAccess{Section: section, Lock: LockLogin}
	}

	if userTier(user, catalog) >= required {
		return SectionAccess{Section: section, Visible: true}
	}

	return SectionAccess{
		Section:       section,
		Lock:          LockUpgrade,
		UpgradeTarget: upgradeTargetFor(required, catalog),
	}
}

// VisibilityMatrix evaluates every section at once, for rendering.
func VisibilityMatrix(user *models.User, catalog []models.Plan) []SectionAccess {
	out := make([]SectionAccess, 0, len(AllSections))
	for _, s := range AllSections {
		out = append(out, Visibility(user, s, catalog))
	}
	return out
}

func userTier(user *models.User, catalog []models.Plan) int {
	if p := models.PlanByID(catalog, user.PlanID); p != nil {
		return p.Tier
	}
	// Unknown plan id: treat as free rather than failing open.
	return 0
}

// upgradeTargetFor picks the lowest-tier plan that satisfies the requirement,
// so the prompt always names the cheapest sufficient upgrade.
func upgradeTargetFor(requiredTier int, catalog []models.Plan) string {
	sorted := make([]models.Plan, len(catalog))
	copy(sorted, catalog)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tier < sorted[j].Tier })
	for _, p := range sorted {
		if p.Tier >= requiredTier {
			return p.ID
		}
	}
	return ""
}
