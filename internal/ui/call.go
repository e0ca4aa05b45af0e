package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/peercall/peercall/internal/session"
	"github.com/peercall/peercall/internal/utils"
)

// CallController is the subset of the session agent the call UI drives.
type CallController interface {
	Events() <-chan session.Event
	Approve(participant string)
	Reject(participant, reason string)
	SetAudioEnabled(on bool)
	SetVideoEnabled(on bool)
	HangUp()
}

// CallModel is the Bubble Tea model for an active call
type CallModel struct {
	agent CallController

	roomID   string
	roomLink string
	role     session.Role

	state   session.State
	partner string
	reason  string

	pendingJoin string

	audioOn       bool
	videoOn       bool
	remoteAudioOn bool
	remoteVideoOn bool

	linkedAt time.Time
	duration time.Duration

	spinner  spinner.Model
	quitting bool
	hungUp   bool
}

type callTickMsg time.Time

// sessionEndedMsg reports that the agent closed its event channel.
type sessionEndedMsg struct{}

// NewCallModel creates the model for a call in the given room.
func NewCallModel(agent CallController, role session.Role, roomID, roomLink string) *CallModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &CallModel{
		agent:         agent,
		roomID:        roomID,
		roomLink:      roomLink,
		role:          role,
		state:         session.StateIdle,
		audioOn:       true,
		videoOn:       true,
		remoteAudioOn: true,
		remoteVideoOn: true,
		spinner:       s,
	}
}

func (m *CallModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitForEvent(),
		callTickCmd(),
	)
}

// waitForEvent returns a command that blocks on the next agent event
func (m *CallModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.agent.Events()
		if !ok {
			return sessionEndedMsg{}
		}
		return ev
	}
}

func callTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return callTickMsg(t)
	})
}

func (m *CallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case callTickMsg:
		if m.state == session.StateLinked {
			m.duration = time.Since(m.linkedAt)
		}
		if m.state != session.StateClosed {
			cmds = append(cmds, callTickCmd())
		}

	case session.Event:
		m.handleEvent(msg)
		if m.state == session.StateClosed {
			m.quitting = true
			return m, tea.Quit
		}
		cmds = append(cmds, m.waitForEvent())

	case sessionEndedMsg:
		m.state = session.StateClosed
		m.quitting = true
		return m, tea.Quit
	}

	return m, tea.Batch(cmds...)
}

func (m *CallModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if m.pendingJoin != "" {
			m.agent.Approve(m.pendingJoin)
			m.pendingJoin = ""
		}
	case "n", "N":
		if m.pendingJoin != "" {
			m.agent.Reject(m.pendingJoin, "")
			m.pendingJoin = ""
		}
	case "a":
		m.audioOn = !m.audioOn
		m.agent.SetAudioEnabled(m.audioOn)
	case "v":
		m.videoOn = !m.videoOn
		m.agent.SetVideoEnabled(m.videoOn)
	case "q", "ctrl+c":
		if !m.hungUp {
			m.hungUp = true
			m.agent.HangUp()
		}
	}
	return m, nil
}

func (m *CallModel) handleEvent(ev session.Event) {
	switch ev.Type {
	case session.EventStateChange:
		if ev.State == session.StateLinked && m.state != session.StateLinked {
			m.linkedAt = time.Now()
		}
		m.state = ev.State
		m.spinner.Spinner = spinnerFor(ev.State)

	case session.EventJoinRequest:
		m.pendingJoin = ev.Participant

	case session.EventParticipantConnected:
		m.partner = ev.Participant

	case session.EventParticipantLeft:
		m.partner = ""

	case session.EventRejected:
		m.reason = ev.Reason

	case session.EventRemoteTrackState:
		m.remoteAudioOn = ev.Audio
		m.remoteVideoOn = ev.Video
	}
}

func (m *CallModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s PeerCall", IconCall)) + "\n\n")

	switch m.state {
	case session.StateIdle:
		b.WriteString(fmt.Sprintf("%s Connecting...", m.spinner.View()))

	case session.StateAwaitingApproval:
		b.WriteString(fmt.Sprintf("%s Waiting for the host to let you in...", m.spinner.View()))

	case session.StateJoined:
		if m.role == session.RoleHost && m.roomID != "" {
			b.WriteString(NewRoomInfo(m.roomID, m.roomLink).View())
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("%s Waiting for someone to join...", m.spinner.View()))

	case session.StateNegotiating:
		b.WriteString(fmt.Sprintf("%s Connecting to %s...", m.spinner.View(), m.partnerName()))

	case session.StateLinked:
		b.WriteString(m.viewLinked())
	}

	if m.pendingJoin != "" {
		b.WriteString("\n\n")
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%s %s wants to join. Let them in? (y/n)", IconPeer, m.pendingJoin)))
	}

	b.WriteString("\n\n" + m.viewFooter())

	return b.String()
}

func (m *CallModel) viewLinked() string {
	var b strings.Builder

	b.WriteString(SuccessStyle.Render(fmt.Sprintf("%s In call with %s", IconLink, m.partnerName())))
	b.WriteString(MutedStyle.Render(fmt.Sprintf("  %s", utils.FormatDuration(m.duration))))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  You:  %s %s\n", trackIcon(m.audioOn, IconMic, IconMicOff), trackLabel("mic", m.audioOn)))
	b.WriteString(fmt.Sprintf("        %s %s\n", IconCam, trackLabel("camera", m.videoOn)))
	b.WriteString(fmt.Sprintf("  Them: %s %s\n", trackIcon(m.remoteAudioOn, IconMic, IconMicOff), trackLabel("mic", m.remoteAudioOn)))
	b.WriteString(fmt.Sprintf("        %s %s", IconCam, trackLabel("camera", m.remoteVideoOn)))

	return b.String()
}

func (m *CallModel) viewFooter() string {
	if m.state == session.StateLinked {
		return MutedStyle.Render("a: toggle mic  v: toggle camera  q: hang up")
	}
	return MutedStyle.Render("Press 'q' to hang up")
}

func (m *CallModel) partnerName() string {
	if m.partner == "" {
		return "peer"
	}
	return utils.TruncateString(m.partner, 20)
}

// State returns the last state the UI observed.
func (m *CallModel) State() session.State {
	return m.state
}

// Partner returns the partner ID, if any.
func (m *CallModel) Partner() string {
	return m.partner
}

// Duration returns how long the call was linked.
func (m *CallModel) Duration() time.Duration {
	return m.duration
}

// RejectReason returns the reason the relay reported, if the join was refused.
func (m *CallModel) RejectReason() string {
	return m.reason
}

// spinnerFor picks the spinner style for a state: waiting on an
// external party animates differently from actively connecting.
func spinnerFor(s session.State) spinner.Spinner {
	switch s {
	case session.StateAwaitingApproval, session.StateJoined:
		return spinner.Points
	case session.StateNegotiating:
		return spinner.Globe
	}
	return spinner.Dot
}

func trackIcon(on bool, onIcon, offIcon string) string {
	if on {
		return onIcon
	}
	return offIcon
}

func trackLabel(name string, on bool) string {
	if on {
		return name + " on"
	}
	return MutedStyle.Render(name + " off")
}
