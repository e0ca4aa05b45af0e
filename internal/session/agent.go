package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/peercall/peercall/internal/signaling"
)

// Sender is the outbound half of the relay connection.
type Sender interface {
	SendMessage(msg *signaling.Message)
}

// Peer is the agent's handle to the underlying peer transport. Exactly
// one may be live per agent; the agent closes a stale instance before
// creating another.
type Peer interface {
	// CreateOffer sets the local description and returns it for relay.
	CreateOffer() (json.RawMessage, error)

	// AcceptOffer applies a remote offer and returns the local answer.
	// The remote description is applied before the answer is produced,
	// and the local description is set before it is returned.
	AcceptOffer(offer json.RawMessage) (json.RawMessage, error)

	// AcceptAnswer applies a remote answer completing a local offer.
	AcceptAnswer(answer json.RawMessage) error

	// AddCandidate applies a remote connectivity candidate.
	AddCandidate(candidate json.RawMessage) error

	Close() error
}

// PeerEvents carries transport callbacks back into the agent. The
// callbacks may fire on transport goroutines; the agent funnels them
// through its event loop.
type PeerEvents struct {
	Candidate        func(candidate json.RawMessage)
	Connected        func()
	Disconnected     func()
	RemoteTrackState func(audio, video bool)
}

// PeerFactory builds a fresh peer transport wired to the given events.
type PeerFactory func(ev PeerEvents) (Peer, error)

// Media is the local capture surface the agent owns for the session.
type Media interface {
	SetAudioEnabled(on bool)
	SetVideoEnabled(on bool)
	AudioEnabled() bool
	VideoEnabled() bool
	Close()
}

// controlPublisher is implemented by transports that carry the in-call
// control channel.
type controlPublisher interface {
	PublishTrackState(audio, video bool) error
	PublishBye() error
}

// EventType enumerates what the agent reports to its UI.
type EventType int

const (
	EventStateChange EventType = iota
	EventJoinRequest
	EventParticipantConnected
	EventParticipantLeft
	EventRejected
	EventRemoteTrackState
)

// Event is a UI-facing notification. Only the fields relevant to its
// Type are set.
type Event struct {
	Type        EventType
	State       State
	Participant string
	Reason      string
	Audio       bool
	Video       bool
}

// Config assembles an agent's collaborators.
type Config struct {
	ID     string
	Room   string
	Role   Role
	Client Sender

	// Handler may be nil when the agent is driven directly (tests);
	// Run requires it.
	Handler *signaling.Handler

	// Media may be nil; mute commands then only reach the peer.
	Media Media

	NewPeer PeerFactory
	Logger  *slog.Logger
}

// Agent drives one participant's join, approval and negotiation
// lifecycle. All state transitions happen on the goroutine running
// Run; UI commands and transport callbacks re-enter through channels.
type Agent struct {
	id   string
	room string
	role Role

	client  Sender
	handler *signaling.Handler
	media   Media
	newPeer PeerFactory
	log     *slog.Logger

	mu    sync.Mutex
	state State

	peer    Peer
	partner string

	events     chan Event
	peerEvents chan peerEvent
	cmds       chan func()
}

type peerEventKind int

const (
	peerCandidate peerEventKind = iota
	peerConnected
	peerDisconnected
	peerTrackState
)

type peerEvent struct {
	kind    peerEventKind
	payload json.RawMessage
	audio   bool
	video   bool
}

// New creates an idle agent. Call Run to start it.
func New(cfg Config) *Agent {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Agent{
		id:         cfg.ID,
		room:       cfg.Room,
		role:       cfg.Role,
		client:     cfg.Client,
		handler:    cfg.Handler,
		media:      cfg.Media,
		newPeer:    cfg.NewPeer,
		log:        log.With("participant", cfg.ID, "room", cfg.Room, "role", string(cfg.Role)),
		state:      StateIdle,
		events:     make(chan Event, 32),
		peerEvents: make(chan peerEvent, 16),
		cmds:       make(chan func(), 8),
	}
}

func (a *Agent) ID() string { return a.id }

func (a *Agent) RoomID() string { return a.room }

func (a *Agent) Role() Role { return a.role }

// State returns the current lifecycle state. Safe from any goroutine.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Events returns the UI notification channel.
func (a *Agent) Events() <-chan Event {
	return a.events
}

// Start announces the agent to the relay. Hosts claim the room
// directly; guests ask for approval and wait.
func (a *Agent) Start() {
	if a.role == RoleHost {
		a.client.SendMessage(&signaling.Message{
			Type: signaling.MessageTypeJoinRoom,
			Room: a.room,
			From: a.id,
			Role: signaling.RoleHost,
		})
		a.setState(StateJoined)
		return
	}

	a.client.SendMessage(&signaling.Message{
		Type: signaling.MessageTypeRequestJoin,
		Room: a.room,
		From: a.id,
	})
	a.setState(StateAwaitingApproval)
}

// Run starts the session and processes events to completion. Each
// event is handled fully before the next; there is no concurrent
// access to the agent's negotiation state. The event channel is
// closed on return, so the UI always observes termination even if it
// missed the final state notification.
func (a *Agent) Run(ctx context.Context) error {
	defer close(a.events)

	a.Start()

	for {
		select {
		case <-ctx.Done():
			a.teardown()
			return ctx.Err()

		case <-a.handler.Done:
			// Losing the relay is normal lifecycle, not an error.
			a.teardown()
			return nil

		case msg := <-a.handler.JoinRequested:
			a.handleJoinRequested(msg)
		case msg := <-a.handler.JoinApproved:
			a.handleJoinApproved(msg)
		case msg := <-a.handler.JoinRejected:
			a.handleJoinRejected(msg)
		case msg := <-a.handler.PeerConnected:
			a.handleParticipantConnected(msg)
		case msg := <-a.handler.PeerDisconnected:
			a.handleParticipantDisconnected(msg)
		case msg := <-a.handler.Offer:
			a.handleOffer(msg)
		case msg := <-a.handler.Answer:
			a.handleAnswer(msg)
		case msg := <-a.handler.Candidate:
			a.handleCandidate(msg)
		case errMsg := <-a.handler.Error:
			a.log.Warn("relay reported error", "error", errMsg)

		case ev := <-a.peerEvents:
			a.handlePeerEvent(ev)
		case cmd := <-a.cmds:
			cmd()
		}

		if a.State() == StateClosed {
			return nil
		}
	}
}

// --- relay event handlers ---

// handleJoinRequested surfaces a pending guest to the host's UI.
func (a *Agent) handleJoinRequested(msg *signaling.Message) {
	if a.role != RoleHost || msg.From == a.id {
		return
	}
	a.log.Info("join requested", "guest", msg.From)
	a.emit(Event{Type: EventJoinRequest, Participant: msg.From})
}

// handleJoinApproved moves an approved guest into the room and opens
// the negotiation with an offer to the host. Approval notifications go
// to the whole room, so only the one naming this participant counts.
func (a *Agent) handleJoinApproved(msg *signaling.Message) {
	if msg.To != a.id || a.State() != StateAwaitingApproval {
		return
	}

	a.partner = msg.From
	a.client.SendMessage(&signaling.Message{
		Type: signaling.MessageTypeJoinRoom,
		Room: a.room,
		From: a.id,
		Role: signaling.RoleGuest,
	})
	a.setState(StateJoined)
	a.sendOffer()
}

func (a *Agent) handleJoinRejected(msg *signaling.Message) {
	if msg.To != "" && msg.To != a.id {
		return
	}

	reason := msg.Reason
	if reason == "" {
		reason = "host declined"
	}
	a.log.Info("join rejected", "reason", reason)
	a.emit(Event{Type: EventRejected, Reason: reason})
	a.teardown()
}

// handleParticipantConnected records the new arrival as the expected
// negotiation partner and makes sure a peer transport exists to take
// its candidates. The host waits for the guest's offer; it never
// initiates one.
func (a *Agent) handleParticipantConnected(msg *signaling.Message) {
	if msg.From == a.id || a.role != RoleHost {
		return
	}

	a.partner = msg.From
	if a.peer == nil {
		if _, err := a.ensurePeer(); err != nil {
			a.log.Error("create peer connection", "error", err)
			return
		}
	}
	a.emit(Event{Type: EventParticipantConnected, Participant: msg.From})
}

func (a *Agent) handleParticipantDisconnected(msg *signaling.Message) {
	if msg.From == a.id {
		return
	}
	if a.partner != "" && msg.From != a.partner {
		return
	}

	a.log.Info("partner disconnected", "partner", msg.From)
	a.closePeer()
	a.partner = ""
	a.emit(Event{Type: EventParticipantLeft, Participant: msg.From})

	// The host stays in the room to take another guest; a guest's
	// session is over.
	if a.role == RoleHost && a.inRoom() {
		a.setState(StateJoined)
	} else {
		a.setState(StateClosed)
	}
}

func (a *Agent) handleOffer(msg *signaling.Message) {
	if !Accepts(a.id, a.role == RoleHost, msg) {
		a.log.Debug("offer discarded by filter", "from", msg.From, "to", msg.To)
		return
	}
	if !a.inRoom() {
		a.log.Debug("offer before joining dropped", "from", msg.From)
		return
	}

	a.partner = msg.From
	peer, err := a.ensurePeer()
	if err != nil {
		a.log.Error("create peer connection", "error", err)
		return
	}

	answer, err := peer.AcceptOffer(msg.Payload)
	if err != nil {
		a.log.Error("accept offer", "error", err)
		return
	}

	a.client.SendMessage(&signaling.Message{
		Type:    signaling.MessageTypeRelayAnswer,
		Room:    a.room,
		From:    a.id,
		To:      msg.From,
		Payload: answer,
	})
	a.setState(StateNegotiating)
}

func (a *Agent) handleAnswer(msg *signaling.Message) {
	if !Accepts(a.id, a.role == RoleHost, msg) {
		a.log.Debug("answer discarded by filter", "from", msg.From, "to", msg.To)
		return
	}
	if a.peer == nil {
		// No offer of ours is outstanding; nothing to complete.
		a.log.Warn("answer with no open negotiation", "from", msg.From)
		return
	}

	if err := a.peer.AcceptAnswer(msg.Payload); err != nil {
		a.log.Error("accept answer", "error", err)
		return
	}
	a.partner = msg.From
	a.setState(StateLinked)
}

// handleCandidate applies a connectivity candidate against whatever
// peer transport exists, creating one first when necessary. Candidates
// carry no target check beyond self-echo: the relay already resolved
// the recipient.
func (a *Agent) handleCandidate(msg *signaling.Message) {
	if msg.From == a.id {
		return
	}
	if !a.inRoom() {
		a.log.Debug("candidate before joining dropped", "from", msg.From)
		return
	}

	peer, err := a.ensurePeer()
	if err != nil {
		a.log.Error("create peer connection", "error", err)
		return
	}
	if err := peer.AddCandidate(msg.Payload); err != nil {
		a.log.Debug("candidate dropped", "error", err)
	}
}

// --- transport event handling ---

func (a *Agent) handlePeerEvent(ev peerEvent) {
	switch ev.kind {
	case peerCandidate:
		if a.peer == nil {
			return
		}
		a.client.SendMessage(&signaling.Message{
			Type:    signaling.MessageTypeRelayICECandidate,
			Room:    a.room,
			From:    a.id,
			To:      a.partner,
			Payload: ev.payload,
		})

	case peerConnected:
		if a.inRoom() {
			a.setState(StateLinked)
		}

	case peerDisconnected:
		if a.peer == nil {
			// Already torn down locally.
			return
		}
		a.log.Info("peer transport lost")
		a.closePeer()
		a.partner = ""
		if a.role == RoleHost {
			a.setState(StateJoined)
		} else {
			a.setState(StateClosed)
		}

	case peerTrackState:
		a.emit(Event{Type: EventRemoteTrackState, Audio: ev.audio, Video: ev.video})
	}
}

// --- UI commands ---

// Approve admits a pending guest. The relay enforces that only the
// room's host may approve.
func (a *Agent) Approve(participant string) {
	a.do(func() {
		a.client.SendMessage(&signaling.Message{
			Type: signaling.MessageTypeApproveJoin,
			Room: a.room,
			From: a.id,
			To:   participant,
		})
	})
}

// Reject declines a pending guest. An empty reason lets the relay
// substitute its default.
func (a *Agent) Reject(participant, reason string) {
	a.do(func() {
		a.client.SendMessage(&signaling.Message{
			Type:   signaling.MessageTypeRejectJoin,
			Room:   a.room,
			From:   a.id,
			To:     participant,
			Reason: reason,
		})
	})
}

// SetAudioEnabled toggles the local microphone track and tells the
// remote side.
func (a *Agent) SetAudioEnabled(on bool) {
	a.do(func() {
		if a.media != nil {
			a.media.SetAudioEnabled(on)
		}
		a.publishTrackState()
	})
}

// SetVideoEnabled toggles the local camera track and tells the remote
// side.
func (a *Agent) SetVideoEnabled(on bool) {
	a.do(func() {
		if a.media != nil {
			a.media.SetVideoEnabled(on)
		}
		a.publishTrackState()
	})
}

// Renegotiate abandons the current link and starts a fresh negotiation
// attempt. The stale transport is always closed before a new one is
// created.
func (a *Agent) Renegotiate() {
	a.do(a.renegotiate)
}

// HangUp ends the session locally.
func (a *Agent) HangUp() {
	a.do(func() {
		if p, ok := a.peer.(controlPublisher); ok {
			p.PublishBye()
		}
		a.teardown()
	})
}

func (a *Agent) do(fn func()) {
	a.cmds <- fn
}

// --- internals ---

func (a *Agent) renegotiate() {
	if !a.inRoom() {
		return
	}
	a.closePeer()
	a.setState(StateJoined)
	if a.role == RoleGuest && a.partner != "" {
		a.sendOffer()
	}
}

// sendOffer creates the peer transport if needed, produces an offer
// (local description already set) and relays it to the partner.
func (a *Agent) sendOffer() {
	peer, err := a.ensurePeer()
	if err != nil {
		a.log.Error("create peer connection", "error", err)
		return
	}

	offer, err := peer.CreateOffer()
	if err != nil {
		a.log.Error("create offer", "error", err)
		return
	}

	a.client.SendMessage(&signaling.Message{
		Type:    signaling.MessageTypeRelayOffer,
		Room:    a.room,
		From:    a.id,
		To:      a.partner,
		Payload: offer,
	})
	a.setState(StateNegotiating)
}

// ensurePeer returns the live peer transport, creating it lazily (at
// most once per negotiation attempt). Callbacks re-enter through the
// peerEvents channel so handlers stay single-threaded.
func (a *Agent) ensurePeer() (Peer, error) {
	if a.peer != nil {
		return a.peer, nil
	}

	peer, err := a.newPeer(PeerEvents{
		Candidate: func(c json.RawMessage) {
			a.peerEvents <- peerEvent{kind: peerCandidate, payload: c}
		},
		Connected: func() {
			a.peerEvents <- peerEvent{kind: peerConnected}
		},
		Disconnected: func() {
			a.peerEvents <- peerEvent{kind: peerDisconnected}
		},
		RemoteTrackState: func(audio, video bool) {
			a.peerEvents <- peerEvent{kind: peerTrackState, audio: audio, video: video}
		},
	})
	if err != nil {
		return nil, err
	}

	a.peer = peer
	return peer, nil
}

// closePeer releases the current peer transport, if any. It must run
// before any new transport is created.
func (a *Agent) closePeer() {
	if a.peer == nil {
		return
	}
	if err := a.peer.Close(); err != nil {
		a.log.Debug("close peer connection", "error", err)
	}
	a.peer = nil
}

// teardown deterministically releases the peer transport and the media
// handle and finishes the session.
func (a *Agent) teardown() {
	a.closePeer()
	a.partner = ""
	if a.media != nil {
		a.media.Close()
	}
	a.setState(StateClosed)
}

func (a *Agent) publishTrackState() {
	p, ok := a.peer.(controlPublisher)
	if !ok || a.media == nil {
		return
	}
	if err := p.PublishTrackState(a.media.AudioEnabled(), a.media.VideoEnabled()); err != nil {
		a.log.Debug("publish track state", "error", err)
	}
}

// inRoom reports whether the agent has completed its join call.
func (a *Agent) inRoom() bool {
	switch a.State() {
	case StateJoined, StateNegotiating, StateLinked:
		return true
	}
	return false
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	if a.state == s {
		a.mu.Unlock()
		return
	}
	a.state = s
	a.mu.Unlock()

	a.log.Debug("state change", "state", s.String())
	a.emit(Event{Type: EventStateChange, State: s})
}

// emit delivers a UI notification without ever stalling the event
// loop; a lagging UI loses notifications rather than blocking the
// session.
func (a *Agent) emit(ev Event) {
	select {
	case a.events <- ev:
	default:
	}
}
