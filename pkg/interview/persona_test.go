package interview

import (
	"strings"
	"testing"
)

func TestInterviewerSystemPrompt(t *testing.T) {
	questions := FormatQuestions([]string{"Tell me about yourself.", "Why this role?"})
	prompt := InterviewerSystemPrompt(questions)

	if strings.Contains(prompt, "{{questions}}") {
		t.Error("Expected question placeholder to be substituted")
	}
	if !strings.Contains(prompt, "1. Tell me about yourself.") {
		t.Error("Expected the question plan inside the prompt")
	}
	if !strings.Contains(prompt, "professional job interviewer") {
		t.Error("Expected the interviewer persona text")
	}
	if InterviewerGreeting == "" {
		t.Error("Expected a non-empty greeting")
	}
}
