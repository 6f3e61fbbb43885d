package feedback

import (
	"fmt"
	"strings"

	"github.com/voxprep/voxprep/pkg/interview"
)

const systemInstruction = "You are a professional interviewer analyzing mock interviews for ALL job types. Your task is to evaluate candidates based on universal professional categories."

const promptTemplate = `You are an AI interviewer analyzing a mock interview for ANY job field. Your task is to evaluate the candidate based on structured categories. Be thorough and detailed in your analysis. Don't be lenient with the candidate. If there are mistakes or areas for improvement, point them out.

Transcript:
%s

Please score the candidate from 0 to 100 in the following areas. Do not add categories other than the ones provided:
- **Communication Skills**: Clarity, articulation, structured responses.
- **Role-Specific Knowledge**: Understanding of key concepts and requirements for the specific job role.
- **Problem Solving**: Ability to analyze problems and propose relevant solutions.
- **Cultural Fit**: Alignment with professional values and job role expectations.
- **Confidence and Clarity**: Confidence in responses, professional engagement, and message clarity.

Provide constructive feedback that would help the candidate improve in real interviews for ANY job field.`

// FormatTranscript renders the transcript as one bulleted line per
// utterance, the shape the scoring prompt expects.
func FormatTranscript(transcript []interview.Entry) string {
	var b strings.Builder
	for _, entry := range transcript {
		fmt.Fprintf(&b, "- %s: %s\n", entry.Role, entry.Content)
	}
	return b.String()
}

func buildPrompt(transcript []interview.Entry) string {
	return fmt.Sprintf(promptTemplate, FormatTranscript(transcript))
}
