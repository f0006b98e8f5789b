package intake

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"service-booking/logger"
	intakeModel "service-booking/models/intake"

	"google.golang.org/genai"
	"gorm.io/gorm"
)

// IntakeService turns a customer's free-text description of a problem into
// a structured service suggestion using Gemini. Purely assistive: booking
// creation never depends on it.
type IntakeService struct {
	DB *gorm.DB
}

// NewIntakeService creates a new intake service
func NewIntakeService(db *gorm.DB) *IntakeService {
	return &IntakeService{DB: db}
}

// GenerateRequestID generates a 24 character unique request ID
func (s *IntakeService) GenerateRequestID() string {
	bytes := make([]byte, 12)
	rand.Read(bytes)

	requestID := hex.EncodeToString(bytes)
	timestamp := time.Now().Unix()

	return fmt.Sprintf("%06x%s", timestamp&0xffffff, requestID[:18])
}

// CreateInitialRequest creates the audit record before calling the model.
func (s *IntakeService) CreateInitialRequest(requestID, subjectID, description string) (*intakeModel.IntakeRequest, error) {
	req := &intakeModel.IntakeRequest{
		RequestID:   requestID,
		SubjectID:   subjectID,
		Description: description,
		Status:      "processing",
	}

	if err := s.DB.Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// Suggest categorizes the description into {service_type, category,
// estimated_hours}.
func (s *IntakeService) Suggest(ctx context.Context, description string) (*intakeModel.Suggestion, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not found in environment variables")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	prompt := `Analyze this home-service request description and categorize it. Return ONLY valid JSON.

			If a field cannot be determined, use an empty string (or 0 for numbers).

			Required JSON format:
			{
			"service_type": string,      // e.g. "plumbing", "electrical", "cleaning", "moving", "handyman"
			"category": string,          // a narrower category, e.g. "leak repair", "deep cleaning"
			"estimated_hours": number    // realistic estimate of hours needed, e.g. 1.5
			}

			Description:
			` + description

	content := &genai.Content{
		Parts: []*genai.Part{
			&genai.Part{Text: prompt},
		},
	}

	result, err := client.Models.GenerateContent(
		ctx,
		"gemini-2.5-flash-lite",
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(0.1)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no content generated")
	}

	responseText := result.Candidates[0].Content.Parts[0].Text
	if responseText == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	jsonText := ExtractJSONFromMarkdown(responseText)

	var suggestion intakeModel.Suggestion
	if err := json.Unmarshal([]byte(jsonText), &suggestion); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w, response: %s", err, jsonText)
	}

	return &suggestion, nil
}

// SaveSuccessResultAsync persists the suggestion without blocking the response.
func (s *IntakeService) SaveSuccessResultAsync(requestID string, suggestion *intakeModel.Suggestion, processingTime int64) {
	go func() {
		var req intakeModel.IntakeRequest
		if err := s.DB.Where("request_id = ?", requestID).First(&req).Error; err != nil {
			logger.Error("Failed to load intake request "+requestID, err)
			return
		}
		if err := req.MarkAsSuccess(s.DB, suggestion, processingTime); err != nil {
			logger.Error("Failed to save intake result "+requestID, err)
		}
	}()
}

// SaveFailureResultAsync records the failure without blocking the response.
func (s *IntakeService) SaveFailureResultAsync(requestID, errorMsg string, processingTime int64) {
	go func() {
		var req intakeModel.IntakeRequest
		if err := s.DB.Where("request_id = ?", requestID).First(&req).Error; err != nil {
			logger.Error("Failed to load intake request "+requestID, err)
			return
		}
		if err := req.MarkAsFailed(s.DB, errorMsg, processingTime); err != nil {
			logger.Error("Failed to save intake failure "+requestID, err)
		}
	}()
}

// ExtractJSONFromMarkdown extracts JSON content from markdown code blocks
func ExtractJSONFromMarkdown(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") && strings.HasSuffix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
		return text
	}

	if strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) > 1 {
			jsonLines := lines[1 : len(lines)-1]
			return strings.Join(jsonLines, "\n")
		}
	}

	return text
}
