package signaling

import (
	"testing"

	"github.com/gorilla/websocket"
)

func TestConnectLeavesDefaultDialerUntouched(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws")
	if err := c.Connect(); err == nil {
		t.Fatalf("expected connection to a dead port to fail")
	}

	if websocket.DefaultDialer.NetDial != nil {
		t.Fatalf("Connect must dial on a copy, not mutate websocket.DefaultDialer")
	}
}

func TestConnectRejectsInvalidURL(t *testing.T) {
	c := NewClient("://not-a-url")
	if err := c.Connect(); err == nil {
		t.Fatalf("expected invalid URL to fail")
	}
}
