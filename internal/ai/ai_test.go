package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

func validResult() models.ClassificationResult {
	return models.ClassificationResult{
		ProductName: "Ceramic mug",
		TariffCode:  "6912.00.29",
		Taxes:       []models.Tax{{Name: "Customs duty", Rate: "12%"}},
	}
}

func TestValidateResult(t *testing.T) {
	assert.NoError(t, ValidateResult(validResult()))

	missingCode := validResult()
	missingCode.TariffCode = "  "
	assert.ErrorIs(t, ValidateResult(missingCode), ErrInvalidResponse)

	noTaxes := validResult()
	noTaxes.Taxes = nil
	assert.ErrorIs(t, ValidateResult(noTaxes), ErrInvalidResponse)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in))
	}
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0, ClampConfidence(-5))
	assert.Equal(t, 100, ClampConfidence(250))
	assert.Equal(t, 87, ClampConfidence(87))
}
