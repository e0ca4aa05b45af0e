package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/peercall/peercall/internal/signaling"
)

type fakeSender struct {
	sent []*signaling.Message
}

func (s *fakeSender) SendMessage(msg *signaling.Message) {
	s.sent = append(s.sent, msg)
}

func (s *fakeSender) last(t *testing.T) *signaling.Message {
	t.Helper()
	if len(s.sent) == 0 {
		t.Fatalf("expected a sent message, got none")
	}
	return s.sent[len(s.sent)-1]
}

type fakePeer struct {
	offersCreated  int
	offerAccepted  json.RawMessage
	answerAccepted json.RawMessage
	candidates     []json.RawMessage
	closed         bool
}

func (p *fakePeer) CreateOffer() (json.RawMessage, error) {
	p.offersCreated++
	return json.RawMessage(`{"type":"offer"}`), nil
}

func (p *fakePeer) AcceptOffer(offer json.RawMessage) (json.RawMessage, error) {
	p.offerAccepted = offer
	return json.RawMessage(`{"type":"answer"}`), nil
}

func (p *fakePeer) AcceptAnswer(answer json.RawMessage) error {
	p.answerAccepted = answer
	return nil
}

func (p *fakePeer) AddCandidate(candidate json.RawMessage) error {
	p.candidates = append(p.candidates, candidate)
	return nil
}

func (p *fakePeer) Close() error {
	p.closed = true
	return nil
}

type fakeMedia struct {
	audio, video bool
	closed       bool
}

func (m *fakeMedia) SetAudioEnabled(on bool) { m.audio = on }
func (m *fakeMedia) SetVideoEnabled(on bool) { m.video = on }
func (m *fakeMedia) AudioEnabled() bool      { return m.audio }
func (m *fakeMedia) VideoEnabled() bool      { return m.video }
func (m *fakeMedia) Close()                  { m.closed = true }

type testRig struct {
	agent   *Agent
	sender  *fakeSender
	media   *fakeMedia
	peers   []*fakePeer
	created int
}

func newTestRig(id, room string, role Role) *testRig {
	rig := &testRig{
		sender: &fakeSender{},
		media:  &fakeMedia{audio: true, video: true},
	}
	rig.agent = New(Config{
		ID:     id,
		Room:   room,
		Role:   role,
		Client: rig.sender,
		Media:  rig.media,
		NewPeer: func(ev PeerEvents) (Peer, error) {
			rig.created++
			p := &fakePeer{}
			rig.peers = append(rig.peers, p)
			return p, nil
		},
	})
	return rig
}

func (r *testRig) currentPeer(t *testing.T) *fakePeer {
	t.Helper()
	if len(r.peers) == 0 {
		t.Fatalf("expected a peer connection to exist")
	}
	return r.peers[len(r.peers)-1]
}

func TestHostStartClaimsRoom(t *testing.T) {
	rig := newTestRig("H1", "abcde12345", RoleHost)
	rig.agent.Start()

	msg := rig.sender.last(t)
	if msg.Type != signaling.MessageTypeJoinRoom || msg.Role != signaling.RoleHost {
		t.Fatalf("expected host join-room, got %q role %q", msg.Type, msg.Role)
	}
	if rig.agent.State() != StateJoined {
		t.Fatalf("expected joined, got %s", rig.agent.State())
	}
}

func TestGuestStartRequestsJoin(t *testing.T) {
	rig := newTestRig("G1", "abcde12345", RoleGuest)
	rig.agent.Start()

	msg := rig.sender.last(t)
	if msg.Type != signaling.MessageTypeRequestJoin {
		t.Fatalf("expected request-join, got %q", msg.Type)
	}
	if rig.agent.State() != StateAwaitingApproval {
		t.Fatalf("expected awaiting approval, got %s", rig.agent.State())
	}
}

// TestApprovalForAnotherGuestIgnored checks that an approval naming a
// different participant leaves this agent waiting.
func TestApprovalForAnotherGuestIgnored(t *testing.T) {
	rig := newTestRig("G1", "abcde12345", RoleGuest)
	rig.agent.Start()
	before := len(rig.sender.sent)

	rig.agent.handleJoinApproved(&signaling.Message{
		Type: signaling.MessageTypeJoinApproved,
		Room: "abcde12345",
		From: "H1",
		To:   "G2",
	})

	if rig.agent.State() != StateAwaitingApproval {
		t.Fatalf("expected to keep waiting, got %s", rig.agent.State())
	}
	if len(rig.sender.sent) != before {
		t.Fatalf("expected no messages sent for another guest's approval")
	}
}

func TestApprovalJoinsAndOffers(t *testing.T) {
	rig := newTestRig("G1", "abcde12345", RoleGuest)
	rig.agent.Start()

	rig.agent.handleJoinApproved(&signaling.Message{
		Type: signaling.MessageTypeJoinApproved,
		Room: "abcde12345",
		From: "H1",
		To:   "G1",
	})

	if rig.agent.State() != StateNegotiating {
		t.Fatalf("expected negotiating, got %s", rig.agent.State())
	}

	// join-room as guest, then the offer to the host.
	join := rig.sender.sent[len(rig.sender.sent)-2]
	if join.Type != signaling.MessageTypeJoinRoom || join.Role != signaling.RoleGuest {
		t.Fatalf("expected guest join-room, got %q role %q", join.Type, join.Role)
	}
	offer := rig.sender.last(t)
	if offer.Type != signaling.MessageTypeRelayOffer || offer.To != "H1" {
		t.Fatalf("expected relay-offer to H1, got %q to %q", offer.Type, offer.To)
	}
	if rig.currentPeer(t).offersCreated != 1 {
		t.Fatalf("expected one offer created, got %d", rig.currentPeer(t).offersCreated)
	}
}

func TestRejectionTearsDown(t *testing.T) {
	rig := newTestRig("G1", "abcde12345", RoleGuest)
	rig.agent.Start()

	rig.agent.handleJoinRejected(&signaling.Message{
		Type:   signaling.MessageTypeJoinRejected,
		Room:   "abcde12345",
		To:     "G1",
		Reason: "room full",
	})

	if rig.agent.State() != StateClosed {
		t.Fatalf("expected closed, got %s", rig.agent.State())
	}
	if !rig.media.closed {
		t.Fatalf("expected media handle to be released")
	}

	var rejected *Event
	for {
		select {
		case ev := <-rig.agent.Events():
			if ev.Type == EventRejected {
				e := ev
				rejected = &e
			}
			continue
		default:
		}
		break
	}
	if rejected == nil {
		t.Fatalf("expected a rejection event")
	}
	if rejected.Reason != "room full" {
		t.Fatalf("expected reason to be surfaced, got %q", rejected.Reason)
	}
}

func TestHostAnswersOffer(t *testing.T) {
	rig := newTestRig("H1", "abcde12345", RoleHost)
	rig.agent.Start()

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	rig.agent.handleOffer(&signaling.Message{
		Type:    signaling.MessageTypeOffer,
		Room:    "abcde12345",
		From:    "G1",
		Payload: payload,
	})

	if rig.agent.State() != StateNegotiating {
		t.Fatalf("expected negotiating, got %s", rig.agent.State())
	}
	peer := rig.currentPeer(t)
	if string(peer.offerAccepted) != string(payload) {
		t.Fatalf("expected offer payload applied verbatim")
	}
	answer := rig.sender.last(t)
	if answer.Type != signaling.MessageTypeRelayAnswer || answer.To != "G1" {
		t.Fatalf("expected relay-answer to G1, got %q to %q", answer.Type, answer.To)
	}
	if peer.offersCreated != 0 {
		t.Fatalf("host must never initiate an offer")
	}
}

func TestOwnOfferEchoDiscarded(t *testing.T) {
	rig := newTestRig("H1", "abcde12345", RoleHost)
	rig.agent.Start()

	rig.agent.handleOffer(&signaling.Message{
		Type:    signaling.MessageTypeOffer,
		Room:    "abcde12345",
		From:    "H1",
		Payload: json.RawMessage(`{}`),
	})

	if rig.created != 0 {
		t.Fatalf("echoed offer must not create a peer connection")
	}
}

func TestAnswerWithoutOfferDropped(t *testing.T) {
	rig := newTestRig("H1", "abcde12345", RoleHost)
	rig.agent.Start()

	rig.agent.handleAnswer(&signaling.Message{
		Type:    signaling.MessageTypeAnswer,
		Room:    "abcde12345",
		From:    "G1",
		Payload: json.RawMessage(`{}`),
	})

	if rig.agent.State() != StateJoined {
		t.Fatalf("expected state unchanged, got %s", rig.agent.State())
	}
	if rig.created != 0 {
		t.Fatalf("stray answer must not create a peer connection")
	}
}

func TestAnswerCompletesNegotiation(t *testing.T) {
	rig := newTestRig("G1", "abcde12345", RoleGuest)
	rig.agent.Start()
	rig.agent.handleJoinApproved(&signaling.Message{
		Type: signaling.MessageTypeJoinApproved, Room: "abcde12345", From: "H1", To: "G1",
	})

	rig.agent.handleAnswer(&signaling.Message{
		Type:    signaling.MessageTypeAnswer,
		Room:    "abcde12345",
		From:    "H1",
		To:      "G1",
		Payload: json.RawMessage(`{"type":"answer"}`),
	})

	if rig.agent.State() != StateLinked {
		t.Fatalf("expected linked, got %s", rig.agent.State())
	}
	if rig.currentPeer(t).answerAccepted == nil {
		t.Fatalf("expected answer to reach the peer connection")
	}
}

// TestCandidateBeforeOfferCreatesPeerOnce checks that early candidates
// bring up a single peer connection and are all applied to it.
func TestCandidateBeforeOfferCreatesPeerOnce(t *testing.T) {
	rig := newTestRig("H1", "abcde12345", RoleHost)
	rig.agent.Start()

	for i := 0; i < 3; i++ {
		rig.agent.handleCandidate(&signaling.Message{
			Type:    signaling.MessageTypeICECandidate,
			Room:    "abcde12345",
			From:    "G1",
			Payload: json.RawMessage(`{"candidate":"x"}`),
		})
	}

	if rig.created != 1 {
		t.Fatalf("expected exactly one peer connection, got %d", rig.created)
	}
	if len(rig.currentPeer(t).candidates) != 3 {
		t.Fatalf("expected 3 candidates applied, got %d", len(rig.currentPeer(t).candidates))
	}
}

func TestCandidateBeforeJoiningDropped(t *testing.T) {
	rig := newTestRig("G1", "abcde12345", RoleGuest)
	rig.agent.Start()

	rig.agent.handleCandidate(&signaling.Message{
		Type:    signaling.MessageTypeICECandidate,
		Room:    "abcde12345",
		From:    "H1",
		Payload: json.RawMessage(`{"candidate":"x"}`),
	})

	if rig.created != 0 {
		t.Fatalf("candidate before joining must not create a peer connection")
	}
}

func TestRenegotiateClosesStalePeer(t *testing.T) {
	rig := newTestRig("G1", "abcde12345", RoleGuest)
	rig.agent.Start()
	rig.agent.handleJoinApproved(&signaling.Message{
		Type: signaling.MessageTypeJoinApproved, Room: "abcde12345", From: "H1", To: "G1",
	})

	first := rig.currentPeer(t)
	rig.agent.renegotiate()

	if !first.closed {
		t.Fatalf("stale peer connection must be closed before a new one is created")
	}
	if rig.created != 2 {
		t.Fatalf("expected a fresh peer connection, got %d total", rig.created)
	}
	if rig.currentPeer(t).offersCreated != 1 {
		t.Fatalf("guest must re-offer after renegotiating")
	}
}

func TestPartnerDisconnectHostStays(t *testing.T) {
	rig := newTestRig("H1", "abcde12345", RoleHost)
	rig.agent.Start()
	rig.agent.handleParticipantConnected(&signaling.Message{
		Type: signaling.MessageTypeParticipantConnected, Room: "abcde12345", From: "G1",
	})

	rig.agent.handleParticipantDisconnected(&signaling.Message{
		Type: signaling.MessageTypeParticipantDisconnected, Room: "abcde12345", From: "G1",
	})

	if rig.agent.State() != StateJoined {
		t.Fatalf("host should stay in the room, got %s", rig.agent.State())
	}
	if !rig.currentPeer(t).closed {
		t.Fatalf("expected peer connection to be closed")
	}
}

func TestPartnerDisconnectGuestCloses(t *testing.T) {
	rig := newTestRig("G1", "abcde12345", RoleGuest)
	rig.agent.Start()
	rig.agent.handleJoinApproved(&signaling.Message{
		Type: signaling.MessageTypeJoinApproved, Room: "abcde12345", From: "H1", To: "G1",
	})

	rig.agent.handleParticipantDisconnected(&signaling.Message{
		Type: signaling.MessageTypeParticipantDisconnected, Room: "abcde12345", From: "H1",
	})

	if rig.agent.State() != StateClosed {
		t.Fatalf("guest session should end, got %s", rig.agent.State())
	}
}

func TestUnrelatedDisconnectIgnored(t *testing.T) {
	rig := newTestRig("G1", "abcde12345", RoleGuest)
	rig.agent.Start()
	rig.agent.handleJoinApproved(&signaling.Message{
		Type: signaling.MessageTypeJoinApproved, Room: "abcde12345", From: "H1", To: "G1",
	})

	rig.agent.handleParticipantDisconnected(&signaling.Message{
		Type: signaling.MessageTypeParticipantDisconnected, Room: "abcde12345", From: "G2",
	})

	if rig.agent.State() != StateNegotiating {
		t.Fatalf("unrelated departure must not end the session, got %s", rig.agent.State())
	}
}

// TestNegotiationRoundTrip drives a host and a guest against each
// other by hand-carrying each relay message to the other side.
func TestNegotiationRoundTrip(t *testing.T) {
	host := newTestRig("H1", "abcde12345", RoleHost)
	guest := newTestRig("G1", "abcde12345", RoleGuest)

	host.agent.Start()
	guest.agent.Start()

	req := guest.sender.last(t)
	host.agent.handleJoinRequested(req)

	guest.agent.handleJoinApproved(&signaling.Message{
		Type: signaling.MessageTypeJoinApproved, Room: "abcde12345", From: "H1", To: "G1",
	})

	host.agent.handleParticipantConnected(&signaling.Message{
		Type: signaling.MessageTypeParticipantConnected, Room: "abcde12345", From: "G1",
	})

	offer := guest.sender.last(t)
	if offer.Type != signaling.MessageTypeRelayOffer {
		t.Fatalf("expected guest to offer, got %q", offer.Type)
	}
	host.agent.handleOffer(&signaling.Message{
		Type: signaling.MessageTypeOffer, Room: offer.Room, From: offer.From, To: offer.To, Payload: offer.Payload,
	})

	answer := host.sender.last(t)
	if answer.Type != signaling.MessageTypeRelayAnswer {
		t.Fatalf("expected host to answer, got %q", answer.Type)
	}
	guest.agent.handleAnswer(&signaling.Message{
		Type: signaling.MessageTypeAnswer, Room: answer.Room, From: answer.From, To: answer.To, Payload: answer.Payload,
	})

	if guest.agent.State() != StateLinked {
		t.Fatalf("guest should be linked, got %s", guest.agent.State())
	}

	// The host reaches linked when its transport reports connected.
	host.agent.handlePeerEvent(peerEvent{kind: peerConnected})
	if host.agent.State() != StateLinked {
		t.Fatalf("host should be linked, got %s", host.agent.State())
	}

	if host.created != 1 || guest.created != 1 {
		t.Fatalf("each side owns exactly one peer connection, got host=%d guest=%d", host.created, guest.created)
	}
}

type chanSource struct {
	ch chan *signaling.Message
}

func (s chanSource) Incoming() <-chan *signaling.Message { return s.ch }

// TestRunClosesEventChannel checks that a finished session closes its
// event channel, so a UI that missed the final notification still
// observes termination.
func TestRunClosesEventChannel(t *testing.T) {
	src := chanSource{ch: make(chan *signaling.Message)}
	handler := signaling.NewHandler(src)
	go handler.Start()

	agent := New(Config{
		ID:      "G1",
		Room:    "abcde12345",
		Role:    RoleGuest,
		Client:  &fakeSender{},
		Handler: handler,
		NewPeer: func(ev PeerEvents) (Peer, error) { return &fakePeer{}, nil },
	})

	done := make(chan error, 1)
	go func() { done <- agent.Run(context.Background()) }()

	agent.HangUp()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-agent.Events():
			if ok {
				continue
			}
			if err := <-done; err != nil {
				t.Fatalf("Run: %v", err)
			}
			return
		case <-timeout:
			t.Fatalf("event channel never closed after hang-up")
		}
	}
}

func TestPeerDisconnectAfterTeardownIgnored(t *testing.T) {
	rig := newTestRig("G1", "abcde12345", RoleGuest)
	rig.agent.Start()
	rig.agent.handleJoinApproved(&signaling.Message{
		Type: signaling.MessageTypeJoinApproved, Room: "abcde12345", From: "H1", To: "G1",
	})

	rig.agent.teardown()
	// A late transport callback must not disturb the closed session.
	rig.agent.handlePeerEvent(peerEvent{kind: peerDisconnected})

	if rig.agent.State() != StateClosed {
		t.Fatalf("expected closed, got %s", rig.agent.State())
	}
}
