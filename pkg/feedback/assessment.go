// Package feedback generates structured interview assessments from finished
// transcripts and persists them for later review.
package feedback

import (
	"context"
	"time"
)

// Category names are fixed; the generator is instructed to score exactly
// these five and nothing else.
const (
	CategoryCommunication = "Communication Skills"
	CategoryRoleKnowledge = "Role-Specific Knowledge"
	CategoryProblemSolve  = "Problem Solving"
	CategoryCulturalFit   = "Cultural Fit"
	CategoryConfidence    = "Confidence and Clarity"
)

// CategoryNames lists the five scored categories in report order.
var CategoryNames = []string{
	CategoryCommunication,
	CategoryRoleKnowledge,
	CategoryProblemSolve,
	CategoryCulturalFit,
	CategoryConfidence,
}

// CategoryScore is one scored dimension of an assessment.
type CategoryScore struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// Assessment is the structured evaluation of one interview.
type Assessment struct {
	ID                  string          `json:"id"`
	SessionID           string          `json:"session_id"`
	UserID              string          `json:"user_id"`
	TotalScore          float64         `json:"total_score"`
	CategoryScores      []CategoryScore `json:"category_scores"`
	Strengths           []string        `json:"strengths"`
	AreasForImprovement []string        `json:"areas_for_improvement"`
	FinalAssessment     string          `json:"final_assessment"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Store persists assessments keyed by id.
type Store interface {
	Get(ctx context.Context, id string) (Assessment, error)
	Put(ctx context.Context, a Assessment) error
}
