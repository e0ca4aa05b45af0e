package session

import "github.com/peercall/peercall/internal/signaling"

// Accepts reports whether a relayed negotiation message should be
// processed by the participant identified by self. Some relay
// deliveries are room-wide, so the check lives at the agent boundary
// instead of being trusted to the transport:
//
//   - a message declaring self as its sender is an echo and is dropped
//   - a message carrying an explicit foreign target is dropped
//   - a message with no target is addressed to the room's host
func Accepts(self string, host bool, msg *signaling.Message) bool {
	if msg.From == self {
		return false
	}
	if msg.To == "" {
		return host
	}
	return msg.To == self
}
