package recovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/voxprep/voxprep/pkg/interview"
)

// HTTPRecoverer reaches a recovery server over HTTP. It implements
// interview.Recoverer.
type HTTPRecoverer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRecoverer creates a client for the recovery server at baseURL.
// Pass nil to use http.DefaultClient; the caller's context bounds each call.
func NewHTTPRecoverer(baseURL string, client *http.Client) *HTTPRecoverer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRecoverer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Recover posts the saved transcript and returns the feedback reference.
func (c *HTTPRecoverer) Recover(ctx context.Context, req interview.FeedbackRequest) (interview.FeedbackResult, error) {
	body, err := json.Marshal(recoverRequest{
		SessionID:  req.SessionID,
		UserID:     req.UserID,
		Transcript: req.Transcript,
		FeedbackID: req.FeedbackID,
	})
	if err != nil {
		return interview.FeedbackResult{}, fmt.Errorf("encode recovery request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/interviews/recover", bytes.NewReader(body))
	if err != nil {
		return interview.FeedbackResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return interview.FeedbackResult{}, fmt.Errorf("recovery request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var envelope errorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != nil {
			return interview.FeedbackResult{}, fmt.Errorf("recovery failed (status %d): %s", resp.StatusCode, envelope.Error.Message)
		}
		return interview.FeedbackResult{}, fmt.Errorf("recovery failed (status %d)", resp.StatusCode)
	}

	var out recoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return interview.FeedbackResult{}, fmt.Errorf("decode recovery response: %w", err)
	}
	if !out.Success {
		return interview.FeedbackResult{}, fmt.Errorf("recovery rejected")
	}
	return interview.FeedbackResult{FeedbackID: out.FeedbackID}, nil
}

// DirectRecoverer runs recovery in-process against a feedback service,
// without a server in the middle. It implements interview.Recoverer.
type DirectRecoverer struct {
	Feedback interview.FeedbackService
}

// Recover generates feedback from the saved transcript.
func (d DirectRecoverer) Recover(ctx context.Context, req interview.FeedbackRequest) (interview.FeedbackResult, error) {
	if d.Feedback == nil {
		return interview.FeedbackResult{}, fmt.Errorf("no feedback service configured")
	}
	return d.Feedback.CreateFeedback(ctx, req)
}
