package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxprep/voxprep/pkg/interview"
)

// newGatewayServer upgrades, reads the hello, and hands the connection to
// serve for the rest of the call.
func newGatewayServer(t *testing.T, serve func(conn *websocket.Conn, hello ClientHello)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var hello ClientHello
		if err := conn.ReadJSON(&hello); err != nil {
			t.Errorf("read hello: %v", err)
			return
		}
		serve(conn, hello)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func nextEvent(t *testing.T, ch <-chan interview.TransportEvent) interview.TransportEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transport event")
		return nil
	}
}

func TestWSTransport_HandshakeAndFrames(t *testing.T) {
	stamp := time.Now().Add(-time.Minute).UnixMilli()
	srv := newGatewayServer(t, func(conn *websocket.Conn, hello ClientHello) {
		if hello.Type != "hello" || hello.ProtocolVersion != ProtocolVersion1 {
			t.Errorf("bad hello: %+v", hello)
		}
		if hello.SessionID != "sess-1" || !strings.Contains(hello.Questions, "1. Why us?") {
			t.Errorf("hello missing call config: %+v", hello)
		}
		if !strings.Contains(hello.SystemPrompt, "1. Why us?") || hello.Greeting == "" {
			t.Errorf("hello missing persona: %+v", hello)
		}
		_ = conn.WriteJSON(ServerHelloAck{Type: "hello_ack", CallID: "call-1"})
		_ = conn.WriteJSON(ServerSpeech{Type: "speech_started"})
		_ = conn.WriteJSON(ServerTranscript{
			Type: "transcript", Role: "assistant", Text: "Why us?", IsFinal: true, TimestampMS: stamp,
		})
		_ = conn.WriteJSON(ServerIssue{Type: "issue", Kind: "audio", Message: "mic gone"})
		_ = conn.WriteJSON(ServerCallEnded{Type: "call_ended", Reason: "done"})
	})

	tr := NewWS(srv.URL)
	err := tr.Start(context.Background(), interview.CallConfig{
		SessionID:    "sess-1",
		UserName:     "Jo",
		Questions:    "1. Why us?\n",
		SystemPrompt: interview.InterviewerSystemPrompt("1. Why us?\n"),
		Greeting:     interview.InterviewerGreeting,
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, ok := nextEvent(t, tr.Events()).(interview.CallStarted); !ok {
		t.Fatal("Expected CallStarted first")
	}
	if _, ok := nextEvent(t, tr.Events()).(interview.SpeechStarted); !ok {
		t.Fatal("Expected SpeechStarted")
	}

	ev, ok := nextEvent(t, tr.Events()).(interview.TranscriptReceived)
	if !ok {
		t.Fatal("Expected TranscriptReceived")
	}
	if ev.Role != interview.RoleAssistant || ev.Text != "Why us?" || !ev.IsFinal {
		t.Errorf("Unexpected transcript event: %+v", ev)
	}
	if ev.At.UnixMilli() != stamp {
		t.Errorf("Expected server timestamp %d, got %d", stamp, ev.At.UnixMilli())
	}

	issue, ok := nextEvent(t, tr.Events()).(interview.TransportIssue)
	if !ok {
		t.Fatal("Expected TransportIssue")
	}
	if issue.Kind != "audio" {
		t.Errorf("Unexpected issue: %+v", issue)
	}

	if _, ok := nextEvent(t, tr.Events()).(interview.CallEnded); !ok {
		t.Fatal("Expected CallEnded after call_ended frame")
	}
}

func TestWSTransport_RejectsUnexpectedFirstFrame(t *testing.T) {
	srv := newGatewayServer(t, func(conn *websocket.Conn, hello ClientHello) {
		_ = conn.WriteJSON(ServerSpeech{Type: "speech_started"})
	})

	tr := NewWS(srv.URL)
	err := tr.Start(context.Background(), interview.CallConfig{SessionID: "sess-1"})
	if err == nil {
		t.Fatal("Expected handshake error")
	}
	if !strings.Contains(err.Error(), "unexpected first frame") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestWSTransport_StopEndsCall(t *testing.T) {
	srv := newGatewayServer(t, func(conn *websocket.Conn, hello ClientHello) {
		_ = conn.WriteJSON(ServerHelloAck{Type: "hello_ack"})
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	tr := NewWS(srv.URL)
	if err := tr.Start(context.Background(), interview.CallConfig{SessionID: "sess-1"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, ok := nextEvent(t, tr.Events()).(interview.CallStarted); !ok {
		t.Fatal("Expected CallStarted")
	}

	if err := tr.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if _, ok := nextEvent(t, tr.Events()).(interview.CallEnded); !ok {
		t.Fatal("Expected CallEnded after Stop")
	}

	// Idempotent with no connection open.
	if err := tr.Stop(); err != nil {
		t.Errorf("Second Stop failed: %v", err)
	}
}

func TestWSTransport_DoubleStart(t *testing.T) {
	srv := newGatewayServer(t, func(conn *websocket.Conn, hello ClientHello) {
		_ = conn.WriteJSON(ServerHelloAck{Type: "hello_ack"})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	tr := NewWS(srv.URL)
	if err := tr.Start(context.Background(), interview.CallConfig{SessionID: "sess-1"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer tr.Stop()

	err := tr.Start(context.Background(), interview.CallConfig{SessionID: "sess-1"})
	if err == nil || !strings.Contains(err.Error(), "already started") {
		t.Errorf("Expected already-started error, got %v", err)
	}
}

func TestWebsocketURL(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://gw.local/v1/call", "ws://gw.local/v1/call", false},
		{"https://gw.local", "wss://gw.local", false},
		{"ws://gw.local", "ws://gw.local", false},
		{"wss://gw.local", "wss://gw.local", false},
		{"ftp://gw.local", "", true},
	}
	for _, tc := range cases {
		got, err := websocketURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("websocketURL(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("websocketURL(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("websocketURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
