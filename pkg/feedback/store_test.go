package feedback

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func sampleAssessment(id string) Assessment {
	return Assessment{
		ID:         id,
		SessionID:  "sess-1",
		UserID:     "user-1",
		TotalScore: 68,
		CategoryScores: []CategoryScore{
			{Name: CategoryCommunication, Score: 70, Comment: "Mostly clear."},
		},
		Strengths:           []string{"structure"},
		AreasForImprovement: []string{"examples"},
		FinalAssessment:     "Decent showing.",
		CreatedAt:           time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "feedback.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); err != ErrAssessmentNotFound {
		t.Fatalf("Expected ErrAssessmentNotFound, got %v", err)
	}

	a := sampleAssessment("fb-1")
	if err := s.Put(ctx, a); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get(ctx, "fb-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TotalScore != 68 || len(got.CategoryScores) != 1 || got.SessionID != "sess-1" {
		t.Errorf("Assessment did not round-trip: %+v", got)
	}

	// Regenerating under the same id overwrites.
	a.TotalScore = 80
	if err := s.Put(ctx, a); err != nil {
		t.Fatal(err)
	}
	got, err = s.Get(ctx, "fb-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalScore != 80 {
		t.Errorf("Expected overwrite, got score %v", got.TotalScore)
	}
}

func TestSQLiteStore_GetBySession(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "feedback.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	older := sampleAssessment("fb-old")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := sampleAssessment("fb-new")
	newer.TotalScore = 90
	if err := s.Put(ctx, older); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, newer); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetBySession(ctx, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("GetBySession failed: %v", err)
	}
	if got.ID != "fb-new" {
		t.Errorf("Expected most recent assessment, got %q", got.ID)
	}

	if _, err := s.GetBySession(ctx, "sess-1", "other-user"); err != ErrAssessmentNotFound {
		t.Errorf("Expected not found for wrong user, got %v", err)
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); err != ErrAssessmentNotFound {
		t.Fatalf("Expected ErrAssessmentNotFound, got %v", err)
	}

	if err := s.Put(ctx, sampleAssessment("fb-1")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "fb-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.FinalAssessment != "Decent showing." {
		t.Errorf("Unexpected assessment: %+v", got)
	}
}
