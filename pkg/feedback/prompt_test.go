package feedback

import (
	"strings"
	"testing"

	"github.com/voxprep/voxprep/pkg/interview"
)

func TestFormatTranscript(t *testing.T) {
	transcript := []interview.Entry{
		{Role: interview.RoleAssistant, Content: "Tell me about yourself."},
		{Role: interview.RoleUser, Content: "I build backend services."},
	}

	got := FormatTranscript(transcript)
	want := "- assistant: Tell me about yourself.\n- user: I build backend services.\n"
	if got != want {
		t.Errorf("FormatTranscript = %q, want %q", got, want)
	}

	if FormatTranscript(nil) != "" {
		t.Error("Expected empty transcript to format empty")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt([]interview.Entry{
		{Role: interview.RoleUser, Content: "Hello there."},
	})

	if !strings.Contains(prompt, "- user: Hello there.") {
		t.Error("Prompt missing transcript lines")
	}
	for _, name := range CategoryNames {
		if !strings.Contains(prompt, name) {
			t.Errorf("Prompt missing category %q", name)
		}
	}
}
