package signaling

import "encoding/json"

// Message is the wire envelope for every WebSocket exchange between a
// session agent and the relay. Payload carries SDP or ICE data and is
// opaque to the relay: it is forwarded verbatim, never inspected.
//
// From names the sending participant. To names the intended recipient;
// an empty To on a negotiation message means "the room's host".
type Message struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	Role    string          `json:"role,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Agent to relay.
const (
	MessageTypeRequestJoin       = "request-join"
	MessageTypeApproveJoin       = "approve-join"
	MessageTypeRejectJoin        = "reject-join"
	MessageTypeJoinRoom          = "join-room"
	MessageTypeRelayOffer        = "relay-offer"
	MessageTypeRelayAnswer       = "relay-answer"
	MessageTypeRelayICECandidate = "relay-ice-candidate"
)

// Relay to agent.
const (
	MessageTypeJoinRequested           = "join-requested"
	MessageTypeJoinApproved            = "join-approved"
	MessageTypeJoinRejected            = "join-rejected"
	MessageTypeParticipantConnected    = "participant-connected"
	MessageTypeParticipantDisconnected = "participant-disconnected"
	MessageTypeOffer                   = "offer"
	MessageTypeAnswer                  = "answer"
	MessageTypeICECandidate            = "ice-candidate"
	MessageTypeError                   = "error"
)

// Participant roles carried by join-room.
const (
	RoleHost  = "host"
	RoleGuest = "guest"
)

// ErrorPayload carries a relay-reported failure.
type ErrorPayload struct {
	Error string `json:"error"`
}

// ErrorMessage builds an error message with the given description.
func ErrorMessage(text string) *Message {
	payload, _ := json.Marshal(ErrorPayload{Error: text})
	return &Message{Type: MessageTypeError, Payload: payload}
}
