package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/peercall/peercall/internal/config"
	"github.com/peercall/peercall/internal/media"
	"github.com/peercall/peercall/internal/session"
	"github.com/peercall/peercall/internal/signaling"
	"github.com/peercall/peercall/internal/ui"
	"github.com/peercall/peercall/internal/utils"
	"github.com/peercall/peercall/internal/webrtc"
)

type ConnectionContext struct {
	Client  *signaling.Client
	Handler *signaling.Handler
	Config  *config.Config
}

func NewConnectionContext(cfg *config.Config) (*ConnectionContext, error) {
	client := signaling.NewClient(cfg.WebSocketURL)
	if err := client.Connect(); err != nil {
		return nil, session.NewError("connect to relay", err)
	}

	handler := signaling.NewHandler(client)
	go handler.Start()

	return &ConnectionContext{
		Client:  client,
		Handler: handler,
		Config:  cfg,
	}, nil
}

func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, session.NewError("load config", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

// runCall drives one side of a call to completion: it acquires local
// media, wires the agent to the relay connection and hands the terminal
// to the call UI until the session closes.
func runCall(ctx *ConnectionContext, role session.Role, roomID string) error {
	handle, err := media.Acquire(media.Constraints{Audio: true, Video: true})
	if err != nil {
		return err
	}

	participantID := utils.NewParticipantID()

	factory := func(ev session.PeerEvents) (session.Peer, error) {
		return webrtc.NewPeer(ctx.Config, handle, ev)
	}

	agent := session.New(session.Config{
		ID:      participantID,
		Room:    roomID,
		Role:    role,
		Client:  ctx.Client,
		Handler: ctx.Handler,
		Media:   handle,
		NewPeer: factory,
		Logger:  slog.Default(),
	})

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- agent.Run(runCtx)
	}()

	roomLink := ""
	if role == session.RoleHost {
		roomLink = ctx.Config.GetRoomLink(roomID)
	}

	model := ui.NewCallModel(agent, role, roomID, roomLink)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		cancel()
		<-runErr
		return session.NewError("run call ui", err)
	}

	cancel()
	err = <-runErr
	if err != nil && err != context.Canceled {
		return err
	}

	printSummary(model, role, roomID)
	return nil
}

func printSummary(model *ui.CallModel, role session.Role, roomID string) {
	summary := ui.CallSummary{
		Room:     roomID,
		Role:     string(role),
		Partner:  model.Partner(),
		Duration: utils.FormatDuration(model.Duration()),
		Outcome:  "ended",
	}
	if summary.Partner == "" {
		summary.Partner = "-"
	}
	if model.Duration() == 0 {
		summary.Duration = "-"
		summary.Outcome = "never connected"
	}
	if reason := model.RejectReason(); reason != "" {
		summary.Outcome = "rejected: " + reason
	}

	fmt.Println()
	ui.RenderCallSummary(summary)
}

// waitBeforeExit gives in-flight relay writes a moment to flush.
func waitBeforeExit() {
	time.Sleep(100 * time.Millisecond)
}
