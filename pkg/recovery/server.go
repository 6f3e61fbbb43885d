// Package recovery exposes crash-recovery feedback generation as an HTTP
// service, plus client adapters for reaching it from a session.
package recovery

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/voxprep/voxprep/pkg/interview"
)

// apiError is the JSON error body returned by the recovery endpoint.
type apiError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Param     string `json:"param,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorEnvelope struct {
	Error *apiError `json:"error"`
}

// recoverRequest is the POST /v1/interviews/recover body.
type recoverRequest struct {
	SessionID  string            `json:"session_id"`
	UserID     string            `json:"user_id"`
	Transcript []interview.Entry `json:"transcript"`
	FeedbackID string            `json:"feedback_id,omitempty"`
}

// recoverResponse is the success body.
type recoverResponse struct {
	Success    bool   `json:"success"`
	FeedbackID string `json:"feedback_id"`
}

// Server handles recovery requests by generating feedback from the posted
// transcript.
type Server struct {
	feedback interview.FeedbackService
	logger   *slog.Logger
}

// NewServer creates a recovery server over the given feedback service.
func NewServer(feedback interview.FeedbackService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{feedback: feedback, logger: logger}
}

// Handler returns the full HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/interviews/recover", s.handleRecover)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	var h http.Handler = mux
	h = AccessLog(s.logger, h)
	h = Recover(s.logger, h)
	h = RequestID(h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	reqID, _ := RequestIDFrom(r.Context())

	var req recoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, &apiError{
			Type:      "invalid_request_error",
			Message:   "invalid JSON body",
			RequestID: reqID,
		})
		return
	}

	if param := validateRecoverRequest(req); param != "" {
		writeError(w, http.StatusBadRequest, &apiError{
			Type:      "invalid_request_error",
			Message:   "missing required field",
			Param:     param,
			RequestID: reqID,
		})
		return
	}

	result, err := s.feedback.CreateFeedback(r.Context(), interview.FeedbackRequest{
		SessionID:  req.SessionID,
		UserID:     req.UserID,
		Transcript: req.Transcript,
		FeedbackID: req.FeedbackID,
	})
	if err != nil {
		s.logger.Error("recovery feedback failed",
			"request_id", reqID, "session_id", req.SessionID, "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, r.Context().Err()) {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, &apiError{
			Type:      "api_error",
			Message:   "feedback generation failed",
			RequestID: reqID,
		})
		return
	}

	s.logger.Info("recovery feedback generated",
		"request_id", reqID, "session_id", req.SessionID, "feedback_id", result.FeedbackID)
	writeJSON(w, http.StatusOK, recoverResponse{Success: true, FeedbackID: result.FeedbackID})
}

// validateRecoverRequest returns the name of the first missing field, or "".
func validateRecoverRequest(req recoverRequest) string {
	if strings.TrimSpace(req.SessionID) == "" {
		return "session_id"
	}
	if strings.TrimSpace(req.UserID) == "" {
		return "user_id"
	}
	if len(req.Transcript) == 0 {
		return "transcript"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, apiErr *apiError) {
	writeJSON(w, status, errorEnvelope{Error: apiErr})
}
