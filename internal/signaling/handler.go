package signaling

import "encoding/json"

// MessageSource is the inbound half of a relay connection. Client
// implements it; tests feed a plain channel.
type MessageSource interface {
	Incoming() <-chan *Message
}

// Handler routes incoming relay messages onto per-type channels, so
// the session agent can select over exactly the events it cares about.
type Handler struct {
	src MessageSource

	JoinRequested    chan *Message
	JoinApproved     chan *Message
	JoinRejected     chan *Message
	PeerConnected    chan *Message
	PeerDisconnected chan *Message
	Offer            chan *Message
	Answer           chan *Message
	Candidate        chan *Message
	Error            chan string

	// Done is closed when the relay connection drops.
	Done chan struct{}
}

// NewHandler creates a message handler reading from src.
func NewHandler(src MessageSource) *Handler {
	return &Handler{
		src:              src,
		JoinRequested:    make(chan *Message, 4),
		JoinApproved:     make(chan *Message, 4),
		JoinRejected:     make(chan *Message, 4),
		PeerConnected:    make(chan *Message, 4),
		PeerDisconnected: make(chan *Message, 4),
		Offer:            make(chan *Message, 8),
		Answer:           make(chan *Message, 8),
		Candidate:        make(chan *Message, 32),
		Error:            make(chan string, 4),
		Done:             make(chan struct{}),
	}
}

// Start routes messages until the source closes, then closes Done.
func (h *Handler) Start() {
	defer close(h.Done)

	for msg := range h.src.Incoming() {
		switch msg.Type {

		case MessageTypeJoinRequested:
			h.JoinRequested <- msg

		case MessageTypeJoinApproved:
			h.JoinApproved <- msg

		case MessageTypeJoinRejected:
			h.JoinRejected <- msg

		case MessageTypeParticipantConnected:
			h.PeerConnected <- msg

		case MessageTypeParticipantDisconnected:
			h.PeerDisconnected <- msg

		case MessageTypeOffer:
			h.Offer <- msg

		case MessageTypeAnswer:
			h.Answer <- msg

		case MessageTypeICECandidate:
			h.Candidate <- msg

		case MessageTypeError:
			h.Error <- decodeError(msg)

		default:
			// Unknown types are dropped; the protocol is additive.
		}
	}
}

func decodeError(msg *Message) string {
	var payload ErrorPayload
	if msg.Payload == nil {
		return "unknown relay error"
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Error == "" {
		return "unknown relay error"
	}
	return payload.Error
}
