package webrtc

import "github.com/vmihailenco/msgpack/v5"

// Control channel message types.
const (
	MessageTypeTrackState = "track_state"
	MessageTypeBye        = "bye"
)

// Message frames every control-channel exchange between linked peers.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// TrackStatePayload mirrors the sender's local mute switches, so the
// remote UI can show a muted microphone or camera.
type TrackStatePayload struct {
	Audio bool `msgpack:"audio"`
	Video bool `msgpack:"video"`
}

// DecodePayload decodes the message payload into the provided struct.
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// NewMessage creates a Message with the given type and payload.
func NewMessage(t string, payload any) (Message, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Type:    t,
		Payload: b,
	}, nil
}
