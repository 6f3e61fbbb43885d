package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxprep/voxprep/pkg/interview"
)

const defaultConnectTimeout = 15 * time.Second

// WSTransport is a websocket client for the voice agent gateway. One
// WSTransport serves one session; Start and Stop may cycle multiple times
// over its lifetime (reconnects) but the event channel is stable.
type WSTransport struct {
	endpoint string
	token    string
	logger   *slog.Logger

	events chan interview.TransportEvent

	mu   sync.Mutex
	conn *websocket.Conn
	gen  int

	writeMu sync.Mutex
}

// Option configures a WSTransport.
type Option func(*WSTransport)

// WithToken sets the bearer token sent on dial.
func WithToken(token string) Option {
	return func(t *WSTransport) { t.token = token }
}

// WithLogger sets the transport logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *WSTransport) { t.logger = logger }
}

// NewWS creates a websocket transport for the given gateway endpoint. The
// endpoint accepts http(s) or ws(s) schemes.
func NewWS(endpoint string, opts ...Option) *WSTransport {
	t := &WSTransport{
		endpoint: endpoint,
		logger:   slog.Default(),
		events:   make(chan interview.TransportEvent, 256),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Events yields call lifecycle and transcript events across all connection
// cycles of this transport.
func (t *WSTransport) Events() <-chan interview.TransportEvent {
	return t.events
}

// Start dials the gateway and completes the hello handshake. On success a
// CallStarted event follows and a read loop runs until Stop or server close.
func (t *WSTransport) Start(ctx context.Context, cfg interview.CallConfig) error {
	wsURL, err := websocketURL(t.endpoint)
	if err != nil {
		return err
	}

	headers := make(http.Header)
	if t.token != "" {
		headers.Set("Authorization", "Bearer "+t.token)
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: status %d: %w", wsURL, resp.StatusCode, err)
		}
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}

	hello := ClientHello{
		Type:            "hello",
		ProtocolVersion: ProtocolVersion1,
		SessionID:       cfg.SessionID,
		UserName:        cfg.UserName,
		Questions:       cfg.Questions,
		SystemPrompt:    cfg.SystemPrompt,
		Greeting:        cfg.Greeting,
	}
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send hello: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(defaultConnectTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("read hello_ack: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	typ, err := frameType(payload)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("decode hello_ack: %w", err)
	}
	if typ != "hello_ack" {
		_ = conn.Close()
		return fmt.Errorf("unexpected first frame %q", typ)
	}

	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("transport already started")
	}
	t.conn = conn
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	t.emit(interview.CallStarted{})
	go t.readLoop(conn, gen)
	return nil
}

// Stop closes the current connection. Safe to call repeatedly and with no
// connection open.
func (t *WSTransport) Stop() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	t.writeMu.Lock()
	_ = conn.WriteJSON(ClientControl{Type: "control", Op: "end_call"})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(2*time.Second))
	t.writeMu.Unlock()

	return conn.Close()
}

// readLoop decodes server frames for one connection until it dies. It always
// ends the cycle with exactly one CallEnded.
func (t *WSTransport) readLoop(conn *websocket.Conn, gen int) {
	defer func() {
		t.mu.Lock()
		if t.gen == gen && t.conn == conn {
			t.conn = nil
		}
		t.mu.Unlock()
		_ = conn.Close()
		t.emit(interview.CallEnded{})
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.logger.Debug("websocket read ended", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if done := t.handleFrame(data); done {
			return
		}
	}
}

// handleFrame decodes one server frame. Returns true when the call is over.
func (t *WSTransport) handleFrame(data []byte) bool {
	typ, err := frameType(data)
	if err != nil {
		t.logger.Warn("undecodable frame", "error", err)
		return false
	}

	switch typ {
	case "transcript":
		var frame ServerTranscript
		if err := unmarshalFrame(data, &frame); err != nil {
			t.logger.Warn("bad transcript frame", "error", err)
			return false
		}
		at := time.Now()
		if frame.TimestampMS > 0 {
			at = time.UnixMilli(frame.TimestampMS)
		}
		t.emit(interview.TranscriptReceived{
			Role:    interview.Role(frame.Role),
			Text:    frame.Text,
			IsFinal: frame.IsFinal,
			At:      at,
		})
	case "speech_started":
		t.emit(interview.SpeechStarted{})
	case "speech_ended":
		t.emit(interview.SpeechEnded{})
	case "issue":
		var frame ServerIssue
		if err := unmarshalFrame(data, &frame); err != nil {
			t.logger.Warn("bad issue frame", "error", err)
			return false
		}
		t.emit(interview.TransportIssue{Kind: frame.Kind, Message: frame.Message})
	case "call_ended":
		return true
	}
	return false
}

// emit never blocks the read loop.
func (t *WSTransport) emit(ev interview.TransportEvent) {
	select {
	case t.events <- ev:
	default:
		// Channel full, drop event
	}
}

func websocketURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid gateway endpoint: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("gateway endpoint must use http(s) or ws(s)")
	}
	return u.String(), nil
}
