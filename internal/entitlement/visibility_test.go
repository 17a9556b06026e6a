package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

func userOnPlan(planID string) *models.User {
	u := activeUser(5)
	u.PlanID = planID
	return u
}

func TestVisibility(t *testing.T) {
	catalog := models.DefaultPlans

	tests := []struct {
		name    string
		user    *models.User
		section Section
		want    SectionAccess
	}{
		{
			"tariff code visible to guests",
			nil, SectionBasicClassification,
			SectionAccess{Section: SectionBasicClassification, Visible: true},
		},
		{
			"taxes locked behind login for guests",
			nil, SectionTaxesAndDocuments,
			SectionAccess{Section: SectionTaxesAndDocuments, Lock: LockLogin},
		},
		{
			"taxes visible to free-tier users",
			userOnPlan(models.PlanFree), SectionTaxesAndDocuments,
			SectionAccess{Section: SectionTaxesAndDocuments, Visible: true},
		},
		{
			"market analysis locked behind login for guests",
			nil, SectionMarketPriceAnalysis,
			SectionAccess{Section: SectionMarketPriceAnalysis, Lock: LockLogin},
		},
		{
			"market analysis locked behind upgrade for entry tier",
			userOnPlan(models.PlanStarter), SectionMarketPriceAnalysis,
			SectionAccess{Section: SectionMarketPriceAnalysis, Lock: LockUpgrade, UpgradeTarget: models.PlanImporter},
		},
		{
			"email draft locked behind upgrade for free tier",
			userOnPlan(models.PlanFree), SectionSupplierEmailDraft,
			SectionAccess{Section: SectionSupplierEmailDraft, Lock: LockUpgrade, UpgradeTarget: models.PlanImporter},
		},
		{
			"email draft visible on tier two",
			userOnPlan(models.PlanImporter), SectionSupplierEmailDraft,
			SectionAccess{Section: SectionSupplierEmailDraft, Visible: true},
		},
		{
			"everything visible on top tier",
			userOnPlan(models.PlanBusiness), SectionMarketPriceAnalysis,
			SectionAccess{Section: SectionMarketPriceAnalysis, Visible: true},
		},
		{
			"unknown plan id treated as free",
			userOnPlan("grandfathered"), SectionMarketPriceAnalysis,
			SectionAccess{Section: SectionMarketPriceAnalysis, Lock: LockUpgrade, UpgradeTarget: models.PlanImporter},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Visibility(tt.user, tt.section, catalog))
		})
	}
}

// Guest locks and upgrade locks must never be conflated.
func TestVisibility_LockKindsDistinct(t *testing.T) {
	catalog := models.DefaultPlans

	guest := Visibility(nil, SectionMarketPriceAnalysis, catalog)
	entry := Visibility(userOnPlan(models.PlanStarter), SectionMarketPriceAnalysis, catalog)

	assert.Equal(t, LockLogin, guest.Lock)
	assert.Empty(t, guest.UpgradeTarget)
	assert.Equal(t, LockUpgrade, entry.Lock)
	assert.NotEmpty(t, entry.UpgradeTarget)
}

func TestVisibilityMatrix(t *testing.T) {
	matrix := VisibilityMatrix(nil, models.DefaultPlans)
	assert.Len(t, matrix, len(AllSections))
	assert.True(t, matrix[0].Visible) // basic classification leads
	for _, access := range matrix[1:] {
		assert.Equal(t, LockLogin, access.Lock)
	}
}
