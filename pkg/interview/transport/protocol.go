// Package transport provides voice-call transports for interview sessions:
// a websocket client speaking the agent gateway protocol, and a scripted
// in-process transport for tests and offline runs.
package transport

import "encoding/json"

// ProtocolVersion1 is the current wire protocol version.
const ProtocolVersion1 = 1

// Client -> server frames.

// ClientHello opens a call. It is the first frame on the wire; the server
// answers with hello_ack or error.
type ClientHello struct {
	Type            string `json:"type"` // "hello"
	ProtocolVersion int    `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	UserName        string `json:"user_name,omitempty"`
	Questions       string `json:"questions,omitempty"`
	SystemPrompt    string `json:"system_prompt,omitempty"`
	Greeting        string `json:"greeting,omitempty"`
}

// ClientControl carries a control op ("end_call").
type ClientControl struct {
	Type string `json:"type"` // "control"
	Op   string `json:"op"`
}

// Server -> client frames.

// ServerHelloAck confirms the call is live.
type ServerHelloAck struct {
	Type   string `json:"type"` // "hello_ack"
	CallID string `json:"call_id,omitempty"`
}

// ServerTranscript carries one transcribed utterance. Interim fragments have
// IsFinal false and may be revised; finals are committed.
type ServerTranscript struct {
	Type        string `json:"type"` // "transcript"
	Role        string `json:"role"`
	Text        string `json:"text"`
	IsFinal     bool   `json:"is_final"`
	TimestampMS int64  `json:"timestamp_ms,omitempty"`
}

// ServerSpeech signals the agent's speaking state.
type ServerSpeech struct {
	Type string `json:"type"` // "speech_started" or "speech_ended"
}

// ServerCallEnded signals the server closed the call.
type ServerCallEnded struct {
	Type   string `json:"type"` // "call_ended"
	Reason string `json:"reason,omitempty"`
}

// ServerIssue reports a non-fatal call problem.
type ServerIssue struct {
	Type    string `json:"type"` // "issue"
	Kind    string `json:"kind"` // "audio", "permission", "quota", "timeout"
	Message string `json:"message,omitempty"`
}

// frameEnvelope is used to peek at the frame type before full decode.
type frameEnvelope struct {
	Type string `json:"type"`
}

func frameType(data []byte) (string, error) {
	var env frameEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}

func unmarshalFrame(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
