package models

import "time"

// ClassificationResult is the structured payload returned by the AI
// classification collaborator. The engine treats it as opaque except for
// requiring a tariff code and a non-empty tax list before accepting it.
type ClassificationResult struct {
	ProductName            string   `json:"productName"`
	Description            string   `json:"description"`
	TariffCode             string   `json:"tariffCode"`
	TariffDescription      string   `json:"tariffDescription"`
	Taxes                  []Tax    `json:"taxes"`
	RequiredDocuments      []string `json:"requiredDocuments"`
	SourceMarketPrice      string   `json:"sourceMarketPrice"`
	DestinationMarketPrice string   `json:"destinationMarketPrice"`
	SupplierEmailDraft     string   `json:"supplierEmailDraft"`
	ConfidenceScore        int      `json:"confidenceScore"` // 0-100
}

// Tax is one applicable duty/tax line on a classification result.
type Tax struct {
	Name string `json:"name"`
	Rate string `json:"rate"`
}

// AnalysisRecord is an immutable history item created once per successful
// classification. Owned by exactly one user; never mutated after creation;
// deletable by its owner.
type AnalysisRecord struct {
	ID        string               `json:"id" db:"id"`
	UserID    int64                `json:"-" db:"user_id"`
	Result    ClassificationResult `json:"result" db:"-"`
	CreatedAt time.Time            `json:"createdAt" db:"created_at"`
}
