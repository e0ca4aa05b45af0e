package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peercall/peercall/internal/config"
	"github.com/peercall/peercall/internal/session"
	"github.com/peercall/peercall/internal/ui"
	"github.com/peercall/peercall/internal/utils"
)

var (
	flagDomain   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

var hostCmd = &cobra.Command{
	Use:     "host [room]",
	Aliases: []string{"h"},
	Short:   "Host a call and approve who joins",
	Long: `Host a video call. A room token is generated unless one is given.
Share the token with the other person; you will be asked to let them
in when they request to join.

Examples:
  peercall host
  peercall host sunny-otter-ramen
  peercall host --relay`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := ""
		if len(args) > 0 {
			roomID = args[0]
		}
		return hostCall(roomID)
	},
}

func hostCall(roomID string) error {
	if roomID == "" {
		roomID = utils.NewRoomToken()
	}

	cfg, err := LoadConfig(config.Options{
		Domain:     flagDomain,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	stopSpinner := ui.RunConnectionSpinner("Connecting to relay...")
	defer stopSpinner()
	ctx, err := NewConnectionContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()
	stopSpinner()

	if err := runCall(ctx, session.RoleHost, roomID); err != nil {
		return err
	}

	waitBeforeExit()
	return nil
}

func init() {
	rootCmd.AddCommand(hostCmd)

	hostCmd.Flags().StringVarP(&flagDomain, "domain", "d", "", "Custom domain")
	hostCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	hostCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	hostCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	hostCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	hostCmd.Flags().BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
}
