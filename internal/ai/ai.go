// Package ai wraps the Gemini multimodal call that classifies a product
// photo under a customs tariff code. The rest of the app treats the result
// as opaque except for the validation in ValidateResult.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

// ErrInvalidResponse marks a structurally unusable model response: the
// caller surfaces it with a retry affordance and must not charge a credit.
var ErrInvalidResponse = errors.New("ai: classification response failed validation")

// DefaultTimeout bounds one classification call. On expiry the attempt is
// treated as failed, never charged.
const DefaultTimeout = 60 * time.Second

// AIService holds the Gemini client and model configuration.
type AIService struct {
	Client    *genai.Client
	ModelName string
	Timeout   time.Duration
}

// NewAIService initializes the Gemini client.
func NewAIService(ctx context.Context, apiKey, modelName string) (*AIService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &AIService{Client: client, ModelName: modelName, Timeout: DefaultTimeout}, nil
}

const classificationPrompt = `You are a customs classification expert for importers.
Classify the product in the attached photo and answer in JSON only, with exactly these fields:
{
  "productName": string,
  "description": string,
  "tariffCode": string (the GTIP/HS code),
  "tariffDescription": string,
  "taxes": [{"name": string, "rate": string}],
  "requiredDocuments": [string],
  "sourceMarketPrice": string (price range in the source market),
  "destinationMarketPrice": string (price range in the destination market),
  "supplierEmailDraft": string (a short outreach email to a supplier),
  "confidenceScore": integer 0-100
}
Do not wrap the JSON in markdown. Do not add fields.`

// Classify sends the image to Gemini and returns the validated structured
// result. Transport failures come back as wrapped errors; a response that
// parses but fails validation comes back as ErrInvalidResponse.
func (s *AIService) Classify(ctx context.Context, imageData []byte, mimeType string) (models.ClassificationResult, error) {
	var result models.ClassificationResult

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := s.Client.GenerativeModel(s.ModelName)
	model.ResponseMIMEType = "application/json"

	format := strings.TrimPrefix(mimeType, "image/")
	res, err := model.GenerateContent(ctx,
		genai.ImageData(format, imageData),
		genai.Text(classificationPrompt),
	)
	if err != nil {
		return result, fmt.Errorf("classification request failed: %w", err)
	}

	raw, err := extractText(res)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(stripFences(raw)), &result); err != nil {
		return result, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := ValidateResult(result); err != nil {
		return result, err
	}
	return result, nil
}

// extractText pulls the first text part out of a Gemini response.
func extractText(res *genai.GenerateContentResponse) (string, error) {
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}
	part := res.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("%w: unexpected part type %T", ErrInvalidResponse, part)
	}
	return string(text), nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one despite the prompt.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// ValidateResult enforces the minimum structure a result must carry before
// it is accepted (and a credit charged): a tariff code and a non-empty tax
// list. The confidence score is clamped rather than rejected.
func ValidateResult(r models.ClassificationResult) error {
	if strings.TrimSpace(r.TariffCode) == "" {
		return fmt.Errorf("%w: missing tariff code", ErrInvalidResponse)
	}
	if len(r.Taxes) == 0 {
		return fmt.Errorf("%w: empty tax list", ErrInvalidResponse)
	}
	return nil
}

// ClampConfidence folds out-of-range model scores into 0-100.
func ClampConfidence(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
