package webrtc

import (
	"encoding/json"
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/peercall/peercall/internal/config"
	"github.com/peercall/peercall/internal/media"
	"github.com/peercall/peercall/internal/session"
	"github.com/peercall/peercall/internal/utils"
)

// controlChannelLabel names the data channel carrying mute state and
// hang-up notices between linked peers.
const controlChannelLabel = "control"

// Peer drives one pion peer connection plus the control channel. It
// implements session.Peer.
type Peer struct {
	pc *pion.PeerConnection
	ev session.PeerEvents

	mu      sync.Mutex
	control *pion.DataChannel
	closed  bool
}

func newPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	iceServers := []pion.ICEServer{{URLs: cfg.GetSTUNServers()}}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || utils.ShouldForceRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, session.NewError("create peer connection", err)
	}
	return pc, nil
}

// NewPeer creates the peer transport, attaches the local tracks and
// registers transport callbacks. local may be nil for a receive-only
// session.
func NewPeer(cfg *config.Config, local *media.Handle, ev session.PeerEvents) (*Peer, error) {
	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, err
	}

	p := &Peer{pc: pc, ev: ev}

	if local != nil {
		for _, track := range local.Tracks() {
			if _, err := pc.AddTrack(track); err != nil {
				pc.Close()
				return nil, session.NewError("add local track", err)
			}
		}
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil || p.isClosed() {
			return
		}
		payload, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		if ev.Candidate != nil {
			ev.Candidate(payload)
		}
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		if p.isClosed() {
			return
		}
		switch state {
		case pion.PeerConnectionStateConnected:
			if ev.Connected != nil {
				ev.Connected()
			}
		case pion.PeerConnectionStateFailed,
			pion.PeerConnectionStateDisconnected,
			pion.PeerConnectionStateClosed:
			if ev.Disconnected != nil {
				ev.Disconnected()
			}
		}
	})

	pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		slog.Debug("remote track", "kind", track.Kind().String())
		// Rendering happens outside this layer; keep reading so RTCP
		// feedback continues to flow.
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := track.Read(buf); err != nil {
					return
				}
			}
		}()
	})

	// The answering side adopts the channel the offerer opened.
	pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() != controlChannelLabel {
			return
		}
		p.adoptControl(dc)
	})

	return p, nil
}

// CreateOffer opens the control channel, sets the local description
// and returns it for relay. Trickle ICE: gathering is not awaited.
func (p *Peer) CreateOffer() (json.RawMessage, error) {
	if err := p.ensureControl(); err != nil {
		return nil, err
	}

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return nil, session.NewError("create offer", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return nil, session.NewError("set local description", err)
	}

	return json.Marshal(p.pc.LocalDescription())
}

// AcceptOffer applies a remote offer and produces the answer, with the
// local description set before it is returned.
func (p *Peer) AcceptOffer(raw json.RawMessage) (json.RawMessage, error) {
	var offer pion.SessionDescription
	if err := json.Unmarshal(raw, &offer); err != nil {
		return nil, session.NewError("parse offer", err)
	}

	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return nil, session.NewError("set remote description", err)
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return nil, session.NewError("create answer", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return nil, session.NewError("set local description", err)
	}

	return json.Marshal(p.pc.LocalDescription())
}

// AcceptAnswer applies a remote answer completing our offer.
func (p *Peer) AcceptAnswer(raw json.RawMessage) error {
	var answer pion.SessionDescription
	if err := json.Unmarshal(raw, &answer); err != nil {
		return session.NewError("parse answer", err)
	}
	if err := p.pc.SetRemoteDescription(answer); err != nil {
		return session.NewError("set remote description", err)
	}
	return nil
}

// AddCandidate applies a remote connectivity candidate.
func (p *Peer) AddCandidate(raw json.RawMessage) error {
	var cand pion.ICECandidateInit
	if err := json.Unmarshal(raw, &cand); err != nil {
		return session.NewError("parse candidate", err)
	}
	if cand.Candidate == "" {
		// End-of-candidates marker.
		return nil
	}
	if err := p.pc.AddICECandidate(cand); err != nil {
		return session.NewError("add candidate", err)
	}
	return nil
}

// PublishTrackState tells the remote side about our mute switches.
func (p *Peer) PublishTrackState(audio, video bool) error {
	return p.publish(MessageTypeTrackState, TrackStatePayload{Audio: audio, Video: video})
}

// PublishBye tells the remote side we are hanging up.
func (p *Peer) PublishBye() error {
	return p.publish(MessageTypeBye, nil)
}

func (p *Peer) publish(t string, payload any) error {
	p.mu.Lock()
	dc := p.control
	p.mu.Unlock()

	if dc == nil || dc.ReadyState() != pion.DataChannelStateOpen {
		return session.ErrControlNotOpen
	}

	msg, err := NewMessage(t, payload)
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(msg)
	if err != nil {
		return err
	}
	return dc.Send(data)
}

// Close shuts the transport down. Further transport callbacks are
// suppressed.
func (p *Peer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	return p.pc.Close()
}

func (p *Peer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Peer) ensureControl() error {
	p.mu.Lock()
	existing := p.control
	p.mu.Unlock()
	if existing != nil {
		return nil
	}

	dc, err := p.pc.CreateDataChannel(controlChannelLabel, nil)
	if err != nil {
		return session.NewError("create control channel", err)
	}
	p.adoptControl(dc)
	return nil
}

func (p *Peer) adoptControl(dc *pion.DataChannel) {
	p.mu.Lock()
	p.control = dc
	p.mu.Unlock()

	dc.OnMessage(func(m pion.DataChannelMessage) {
		var msg Message
		if err := msgpack.Unmarshal(m.Data, &msg); err != nil {
			slog.Debug("bad control message", "error", err)
			return
		}

		switch msg.Type {
		case MessageTypeTrackState:
			var ts TrackStatePayload
			if err := msg.DecodePayload(&ts); err != nil {
				slog.Debug("bad track state payload", "error", err)
				return
			}
			if p.ev.RemoteTrackState != nil {
				p.ev.RemoteTrackState(ts.Audio, ts.Video)
			}

		case MessageTypeBye:
			if p.ev.Disconnected != nil && !p.isClosed() {
				p.ev.Disconnected()
			}
		}
	})
}
