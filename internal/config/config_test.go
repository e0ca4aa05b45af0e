package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Domain != DefaultDomain {
		t.Errorf("Domain = %q, want %q", cfg.Domain, DefaultDomain)
	}
	if cfg.WebSocketURL != "wss://"+DefaultDomain+"/ws" {
		t.Errorf("WebSocketURL = %q", cfg.WebSocketURL)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.STUNServer != DefaultSTUN {
		t.Errorf("STUNServer = %q, want %q", cfg.STUNServer, DefaultSTUN)
	}
	if cfg.ForceRelay {
		t.Errorf("ForceRelay should default to false")
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("DOMAIN", "calls.example.com")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("FORCE_RELAY", "1")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Domain != "calls.example.com" {
		t.Errorf("Domain = %q", cfg.Domain)
	}
	if cfg.WebSocketURL != "wss://calls.example.com/ws" {
		t.Errorf("WebSocketURL = %q", cfg.WebSocketURL)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if !cfg.ForceRelay {
		t.Errorf("expected FORCE_RELAY=1 to enable relay mode")
	}
}

func TestLoadFlagsBeatEnv(t *testing.T) {
	t.Setenv("DOMAIN", "env.example.com")
	t.Setenv("STUN_SERVER", "stun:env.example.com:3478")

	cfg, err := Load(Options{
		Domain:     "flag.example.com",
		STUNServer: "stun:flag.example.com:3478",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Domain != "flag.example.com" {
		t.Errorf("Domain = %q, flags must win over env", cfg.Domain)
	}
	if cfg.STUNServer != "stun:flag.example.com:3478" {
		t.Errorf("STUNServer = %q", cfg.STUNServer)
	}
}

func TestGetRoomLink(t *testing.T) {
	cfg := &Config{Domain: "calls.example.com"}
	want := "https://calls.example.com/r/sunny-otter-ramen"
	if got := cfg.GetRoomLink("sunny-otter-ramen"); got != want {
		t.Errorf("GetRoomLink = %q, want %q", got, want)
	}
}

func TestGetTURNServers(t *testing.T) {
	cfg := &Config{}
	if got := cfg.GetTURNServers(); got != nil {
		t.Errorf("expected nil without a TURN server, got %v", got)
	}

	cfg.TURNServer = "turn:relay.example.com"
	urls := cfg.GetTURNServers()
	if len(urls) != 3 {
		t.Fatalf("expected 3 TURN URLs, got %d", len(urls))
	}
	if urls[0] != "turn:relay.example.com:3478?transport=udp" {
		t.Errorf("unexpected first TURN URL %q", urls[0])
	}
}
