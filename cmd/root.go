package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/peercall/peercall/internal/ui"
	"github.com/peercall/peercall/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "peercall",
	Short:   "Two-party video calls between terminals using WebRTC",
	Long:    `PeerCall sets up direct video calls between two devices using WebRTC technology. A lightweight relay service introduces the two sides and forwards their negotiation messages; once connected, audio and video flow peer to peer. The host controls who may join the room.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
