package interview

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("socket closed")
	err := NewTransportError("socket", "stream dropped")

	if KindOf(err) != ErrKindTransport {
		t.Errorf("KindOf = %v, want %v", KindOf(err), ErrKindTransport)
	}
	if KindOf(cause) != "" {
		t.Errorf("Expected empty kind for plain errors, got %v", KindOf(cause))
	}
	if KindOf(nil) != "" {
		t.Error("Expected empty kind for nil")
	}

	// Kind survives wrapping.
	wrapped := fmt.Errorf("while active: %w", NewConnectError(3, cause))
	if KindOf(wrapped) != ErrKindConnect {
		t.Errorf("KindOf(wrapped) = %v, want %v", KindOf(wrapped), ErrKindConnect)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("Expected cause to unwrap")
	}
}
