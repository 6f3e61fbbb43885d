package recovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/voxprep/voxprep/pkg/interview"
)

type stubFeedback struct {
	mu    sync.Mutex
	calls int
	last  interview.FeedbackRequest
	err   error
}

func (s *stubFeedback) CreateFeedback(ctx context.Context, req interview.FeedbackRequest) (interview.FeedbackResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = req
	if s.err != nil {
		return interview.FeedbackResult{}, s.err
	}
	return interview.FeedbackResult{FeedbackID: "fb-1"}, nil
}

func validBody() []byte {
	body, _ := json.Marshal(map[string]any{
		"session_id": "sess-1",
		"user_id":    "user-1",
		"transcript": []map[string]string{
			{"role": "assistant", "content": "Why us?"},
			{"role": "user", "content": "Because."},
		},
	})
	return body
}

func TestServer_Recover(t *testing.T) {
	fb := &stubFeedback{}
	srv := httptest.NewServer(NewServer(fb, nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/interviews/recover", "application/json", bytes.NewReader(validBody()))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var out recoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.Success || out.FeedbackID != "fb-1" {
		t.Errorf("Unexpected response: %+v", out)
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.calls != 1 || len(fb.last.Transcript) != 2 {
		t.Errorf("Unexpected feedback call: calls=%d req=%+v", fb.calls, fb.last)
	}
}

func TestServer_MissingFields(t *testing.T) {
	fb := &stubFeedback{}
	srv := httptest.NewServer(NewServer(fb, nil).Handler())
	defer srv.Close()

	cases := []struct {
		name  string
		body  map[string]any
		param string
	}{
		{"no session", map[string]any{"user_id": "u", "transcript": []map[string]string{{"role": "user", "content": "x"}}}, "session_id"},
		{"no user", map[string]any{"session_id": "s", "transcript": []map[string]string{{"role": "user", "content": "x"}}}, "user_id"},
		{"empty transcript", map[string]any{"session_id": "s", "user_id": "u"}, "transcript"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.body)
			resp, err := http.Post(srv.URL+"/v1/interviews/recover", "application/json", bytes.NewReader(body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", resp.StatusCode)
			}
			var envelope errorEnvelope
			if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
				t.Fatal(err)
			}
			if envelope.Error == nil || envelope.Error.Type != "invalid_request_error" {
				t.Fatalf("Unexpected error body: %+v", envelope.Error)
			}
			if envelope.Error.Param != tc.param {
				t.Errorf("Param = %q, want %q", envelope.Error.Param, tc.param)
			}
			if envelope.Error.RequestID == "" {
				t.Error("Expected a request id on the error")
			}
		})
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.calls != 0 {
		t.Errorf("Expected no feedback calls for invalid requests, got %d", fb.calls)
	}
}

func TestServer_BadJSON(t *testing.T) {
	srv := httptest.NewServer(NewServer(&stubFeedback{}, nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/interviews/recover", "application/json", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestServer_FeedbackFailure(t *testing.T) {
	fb := &stubFeedback{err: errors.New("model unavailable")}
	srv := httptest.NewServer(NewServer(fb, nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/interviews/recover", "application/json", bytes.NewReader(validBody()))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", resp.StatusCode)
	}
	var envelope errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Error == nil || envelope.Error.Type != "api_error" {
		t.Errorf("Unexpected error body: %+v", envelope.Error)
	}
}

func TestServer_Healthz(t *testing.T) {
	srv := httptest.NewServer(NewServer(&stubFeedback{}, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestHTTPRecoverer(t *testing.T) {
	fb := &stubFeedback{}
	srv := httptest.NewServer(NewServer(fb, nil).Handler())
	defer srv.Close()

	c := NewHTTPRecoverer(srv.URL, nil)
	result, err := c.Recover(context.Background(), interview.FeedbackRequest{
		SessionID: "sess-1",
		UserID:    "user-1",
		Transcript: []interview.Entry{
			{Role: interview.RoleUser, Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if result.FeedbackID != "fb-1" {
		t.Errorf("FeedbackID = %q, want fb-1", result.FeedbackID)
	}
}

func TestHTTPRecoverer_ServerError(t *testing.T) {
	fb := &stubFeedback{err: errors.New("down")}
	srv := httptest.NewServer(NewServer(fb, nil).Handler())
	defer srv.Close()

	c := NewHTTPRecoverer(srv.URL, nil)
	_, err := c.Recover(context.Background(), interview.FeedbackRequest{
		SessionID:  "sess-1",
		UserID:     "user-1",
		Transcript: []interview.Entry{{Role: interview.RoleUser, Content: "hello"}},
	})
	if err == nil {
		t.Fatal("Expected error from failing server")
	}
}

func TestDirectRecoverer(t *testing.T) {
	fb := &stubFeedback{}
	d := DirectRecoverer{Feedback: fb}

	result, err := d.Recover(context.Background(), interview.FeedbackRequest{SessionID: "sess-1"})
	if err != nil {
		t.Fatal(err)
	}
	if result.FeedbackID != "fb-1" {
		t.Errorf("FeedbackID = %q", result.FeedbackID)
	}

	var empty DirectRecoverer
	if _, err := empty.Recover(context.Background(), interview.FeedbackRequest{}); err == nil {
		t.Error("Expected error with no feedback service")
	}
}
