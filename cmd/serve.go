package cmd

import (
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/peercall/peercall/internal/config"
	"github.com/peercall/peercall/internal/relay"
	"github.com/peercall/peercall/internal/server"
	"github.com/peercall/peercall/internal/ui"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay service",
	Long: `Run the relay service that introduces callers to each other.

The relay tracks room membership, lets hosts gate who joins, and
forwards negotiation messages between the two sides. No call media
passes through it.

Examples:
  peercall serve
  peercall serve --listen :9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelay()
	},
}

func runRelay() error {
	cfg, err := config.Load(config.Options{ListenAddr: flagListen})
	if err != nil {
		return err
	}

	hub := relay.NewHub()
	go hub.Run()

	handler := server.New(hub)

	slog.Info("relay listening", "addr", cfg.ListenAddr)
	ui.PrintInfof("Relay listening on %s", cfg.ListenAddr)

	return http.ListenAndServe(cfg.ListenAddr, handler)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "Listen address (default :8080)")
}
