package feedback

import (
	"testing"
)

func TestParseAssessment(t *testing.T) {
	valid := `{
		"totalScore": 72.5,
		"categoryScores": [
			{"name": "Communication Skills", "score": 80, "comment": "Clear answers."},
			{"name": "Problem Solving", "score": 65, "comment": "Shallow analysis."}
		],
		"strengths": ["concise"],
		"areasForImprovement": ["depth"],
		"finalAssessment": "Solid but needs depth."
	}`

	raw, err := parseAssessment(valid)
	if err != nil {
		t.Fatalf("parseAssessment failed: %v", err)
	}
	if raw.TotalScore != 72.5 {
		t.Errorf("TotalScore = %v, want 72.5", raw.TotalScore)
	}
	if len(raw.CategoryScores) != 2 || raw.CategoryScores[1].Name != "Problem Solving" {
		t.Errorf("Unexpected category scores: %+v", raw.CategoryScores)
	}
	if raw.FinalAssessment != "Solid but needs depth." {
		t.Errorf("Unexpected final assessment: %q", raw.FinalAssessment)
	}
}

func TestParseAssessmentClampsScore(t *testing.T) {
	cases := []struct {
		score string
		want  float64
	}{
		{"150", 100},
		{"-20", 0},
		{"55", 55},
	}
	for _, tc := range cases {
		text := `{"totalScore": ` + tc.score + `, "categoryScores": [{"name": "Cultural Fit", "score": 50, "comment": "ok"}]}`
		raw, err := parseAssessment(text)
		if err != nil {
			t.Fatalf("parseAssessment(%s) failed: %v", tc.score, err)
		}
		if raw.TotalScore != tc.want {
			t.Errorf("TotalScore for input %s = %v, want %v", tc.score, raw.TotalScore, tc.want)
		}
	}
}

func TestParseAssessmentRejectsBadOutput(t *testing.T) {
	if _, err := parseAssessment("not json"); err == nil {
		t.Error("Expected decode error for non-JSON output")
	}
	if _, err := parseAssessment(`{"totalScore": 50, "categoryScores": []}`); err == nil {
		t.Error("Expected error for empty category scores")
	}
}
