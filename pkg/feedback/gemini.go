package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/voxprep/voxprep/pkg/interview"
)

const defaultModel = "gemini-2.0-flash-001"

// assessmentSchema constrains the model output to the exact report shape.
var assessmentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"totalScore": {Type: genai.TypeNumber},
		"categoryScores": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":    {Type: genai.TypeString},
					"score":   {Type: genai.TypeNumber},
					"comment": {Type: genai.TypeString},
				},
				Required: []string{"name", "score", "comment"},
			},
		},
		"strengths": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"areasForImprovement": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"finalAssessment": {Type: genai.TypeString},
	},
	Required: []string{"totalScore", "categoryScores", "strengths", "areasForImprovement", "finalAssessment"},
}

// rawAssessment is the model's JSON output shape.
type rawAssessment struct {
	TotalScore     float64 `json:"totalScore"`
	CategoryScores []struct {
		Name    string  `json:"name"`
		Score   float64 `json:"score"`
		Comment string  `json:"comment"`
	} `json:"categoryScores"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areasForImprovement"`
	FinalAssessment     string   `json:"finalAssessment"`
}

// GeminiService generates assessments with the Gemini API and persists them
// in a Store. It implements interview.FeedbackService.
type GeminiService struct {
	client *genai.Client
	store  Store
	model  string
	logger *slog.Logger
	now    func() time.Time
}

// GeminiOption configures a GeminiService.
type GeminiOption func(*GeminiService)

// WithModel overrides the generation model.
func WithModel(model string) GeminiOption {
	return func(s *GeminiService) { s.model = model }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) GeminiOption {
	return func(s *GeminiService) { s.logger = logger }
}

// NewGemini creates a feedback service backed by the Gemini API.
func NewGemini(ctx context.Context, apiKey string, store Store, opts ...GeminiOption) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	s := &GeminiService{
		client: client,
		store:  store,
		model:  defaultModel,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateFeedback scores the transcript and persists the assessment. When
// req.FeedbackID is set the existing assessment is overwritten; otherwise a
// new id is minted.
func (s *GeminiService) CreateFeedback(ctx context.Context, req interview.FeedbackRequest) (interview.FeedbackResult, error) {
	if len(req.Transcript) == 0 {
		return interview.FeedbackResult{}, fmt.Errorf("transcript is empty")
	}

	raw, err := s.generate(ctx, req.Transcript)
	if err != nil {
		return interview.FeedbackResult{}, err
	}

	id := req.FeedbackID
	if id == "" {
		id = uuid.NewString()
	}

	assessment := Assessment{
		ID:                  id,
		SessionID:           req.SessionID,
		UserID:              req.UserID,
		TotalScore:          raw.TotalScore,
		Strengths:           raw.Strengths,
		AreasForImprovement: raw.AreasForImprovement,
		FinalAssessment:     raw.FinalAssessment,
		CreatedAt:           s.now(),
	}
	for _, cs := range raw.CategoryScores {
		assessment.CategoryScores = append(assessment.CategoryScores, CategoryScore{
			Name:    cs.Name,
			Score:   cs.Score,
			Comment: cs.Comment,
		})
	}

	if err := s.store.Put(ctx, assessment); err != nil {
		return interview.FeedbackResult{}, fmt.Errorf("store assessment: %w", err)
	}

	s.logger.Info("assessment generated",
		"feedback_id", id, "session_id", req.SessionID, "total_score", raw.TotalScore)
	return interview.FeedbackResult{FeedbackID: id}, nil
}

func (s *GeminiService) generate(ctx context.Context, transcript []interview.Entry) (rawAssessment, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		genai.Text(buildPrompt(transcript)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    assessmentSchema,
		})
	if err != nil {
		return rawAssessment{}, fmt.Errorf("generate assessment: %w", err)
	}

	return parseAssessment(resp.Text())
}

// parseAssessment decodes and sanity-checks the model output.
func parseAssessment(text string) (rawAssessment, error) {
	var raw rawAssessment
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return rawAssessment{}, fmt.Errorf("decode assessment: %w", err)
	}
	if len(raw.CategoryScores) == 0 {
		return rawAssessment{}, fmt.Errorf("assessment has no category scores")
	}
	if raw.TotalScore < 0 {
		raw.TotalScore = 0
	}
	if raw.TotalScore > 100 {
		raw.TotalScore = 100
	}
	return raw, nil
}
