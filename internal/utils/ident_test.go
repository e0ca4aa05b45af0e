package utils

import (
	"strings"
	"testing"
	"time"
)

func TestNewParticipantID(t *testing.T) {
	id := NewParticipantID()
	if !strings.HasPrefix(id, "user-") {
		t.Fatalf("expected user- prefix, got %q", id)
	}
	if id == NewParticipantID() {
		t.Fatalf("participant identifiers must be unique")
	}
}

func TestNewRoomToken(t *testing.T) {
	wordSet := make(map[string]bool)
	for _, pool := range [][]string{adjectives, animals, dishes, nature} {
		for _, w := range pool {
			wordSet[w] = true
		}
	}

	for i := 0; i < 50; i++ {
		token := NewRoomToken()
		parts := strings.Split(token, "-")
		if len(parts) != 3 {
			t.Fatalf("expected three words, got %q", token)
		}
		for _, part := range parts {
			if !wordSet[part] {
				t.Fatalf("word %q in token %q is not from any pool", part, token)
			}
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{5, "5s"},
		{65, "1m 5s"},
		{3725, "1h 2m 5s"},
	}
	for _, tt := range tests {
		got := FormatDuration(time.Duration(tt.seconds) * time.Second)
		if got != tt.want {
			t.Errorf("FormatDuration(%ds) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("TruncateString(short) = %q", got)
	}
	if got := TruncateString("a-rather-long-identifier", 10); got != "a-rathe..." {
		t.Errorf("TruncateString long = %q", got)
	}
}
