package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/peercall/peercall/internal/relay"
	"github.com/peercall/peercall/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// The relay has no origin-bound state; participants authenticate
	// implicitly through room tokens and host approval.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// New returns the relay's HTTP handler: a health probe and the
// websocket endpoint participants signal through.
func New(hub *relay.Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthCheck)
	mux.HandleFunc("/ws", serveWs(hub))
	return mux
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Relay is healthy."))
}

// serveWs upgrades the connection and hands a new client to the hub.
func serveWs(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}

		client := &relay.Client{
			Hub:  hub,
			Conn: conn,
			Send: make(chan *signaling.Message, 256),
		}

		client.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
