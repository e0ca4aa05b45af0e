package relay

import (
	"log/slog"

	"github.com/peercall/peercall/internal/signaling"
)

// defaultRejectReason is sent when the host declines a guest without
// giving one.
const defaultRejectReason = "host declined"

// inbound pairs a decoded message with the connection it arrived on.
type inbound struct {
	client *Client
	msg    *signaling.Message
}

// Hub is the relay's brain: it owns the room table and brokers every
// membership change and negotiation forward. All state is touched from
// the single goroutine running Run, so no handler for the same room
// runs concurrently with another.
//
// The hub never looks inside negotiation payloads; it only resolves
// sender and recipient and passes them on.
type Hub struct {
	rooms map[string]*Room

	Register   chan *Client
	Unregister chan *Client
	Inbound    chan inbound

	log *slog.Logger
}

// NewHub creates an empty hub. Each hub instance owns an independent
// room table, so several can coexist (one per test, for instance).
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan inbound),
		log:        slog.Default().With("component", "relay"),
	}
}

// Run processes registrations, disconnects and inbound messages until
// the process exits. It is the only goroutine allowed to touch the
// room table.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			// Not in a room yet; the first join-room or
			// request-join places it.
			h.log.Debug("client connected", "remote", client.Conn.RemoteAddr())

		case client := <-h.Unregister:
			h.disconnect(client)

		case in := <-h.Inbound:
			h.handleMessage(in.client, in.msg)
		}
	}
}

// handleMessage dispatches one message. Unknown rooms, participants or
// message types are logged and dropped: a stale identifier must never
// take a room down.
func (h *Hub) handleMessage(c *Client, msg *signaling.Message) {
	switch msg.Type {
	case signaling.MessageTypeJoinRoom:
		h.handleJoinRoom(c, msg)
	case signaling.MessageTypeRequestJoin:
		h.handleRequestJoin(c, msg)
	case signaling.MessageTypeApproveJoin:
		h.handleApproveJoin(c, msg)
	case signaling.MessageTypeRejectJoin:
		h.handleRejectJoin(c, msg)
	case signaling.MessageTypeRelayOffer:
		h.forward(c, msg, signaling.MessageTypeOffer)
	case signaling.MessageTypeRelayAnswer:
		h.forward(c, msg, signaling.MessageTypeAnswer)
	case signaling.MessageTypeRelayICECandidate:
		h.forward(c, msg, signaling.MessageTypeICECandidate)
	default:
		h.log.Warn("unknown message type", "type", msg.Type)
	}
}

// handleRequestJoin records a guest as pending and tells the host. A
// room nobody hosts cannot be requested into; the guest is told why and
// is expected to hang up.
func (h *Hub) handleRequestJoin(c *Client, msg *signaling.Message) {
	room := h.rooms[msg.Room]
	if room == nil || room.Host == nil {
		h.log.Info("join request for hostless room", "room", msg.Room, "participant", msg.From)
		c.Send <- &signaling.Message{
			Type:   signaling.MessageTypeJoinRejected,
			Room:   msg.Room,
			To:     msg.From,
			Reason: "room has no host",
		}
		return
	}

	c.ID = msg.From
	c.Room = room.Token
	room.setPending(msg.From, c)

	h.log.Info("join requested", "room", room.Token, "participant", msg.From)
	room.Host.Send <- &signaling.Message{
		Type: signaling.MessageTypeJoinRequested,
		Room: room.Token,
		From: msg.From,
	}
}

// handleApproveJoin moves a pending guest to approved and notifies it
// with the host's identifier. Only the recorded host may approve.
func (h *Hub) handleApproveJoin(c *Client, msg *signaling.Message) {
	room := h.rooms[msg.Room]
	if room == nil {
		h.log.Warn("approve for unknown room", "room", msg.Room)
		return
	}
	if room.Host != c {
		h.log.Warn("approve from non-host ignored", "room", room.Token, "participant", c.ID)
		return
	}

	guest := room.approve(msg.To)
	if guest == nil {
		h.log.Warn("approve for unknown participant", "room", room.Token, "participant", msg.To)
		return
	}

	h.log.Info("join approved", "room", room.Token, "participant", msg.To)
	guest.Send <- &signaling.Message{
		Type: signaling.MessageTypeJoinApproved,
		Room: room.Token,
		From: c.ID,
		To:   msg.To,
	}
}

// handleRejectJoin drops a pending guest and notifies it with the
// reason. Only the recorded host may reject.
func (h *Hub) handleRejectJoin(c *Client, msg *signaling.Message) {
	room := h.rooms[msg.Room]
	if room == nil {
		h.log.Warn("reject for unknown room", "room", msg.Room)
		return
	}
	if room.Host != c {
		h.log.Warn("reject from non-host ignored", "room", room.Token, "participant", c.ID)
		return
	}

	guest, ok := room.Pending[msg.To]
	if !ok {
		h.log.Warn("reject for unknown participant", "room", room.Token, "participant", msg.To)
		return
	}
	delete(room.Pending, msg.To)

	reason := msg.Reason
	if reason == "" {
		reason = defaultRejectReason
	}

	h.log.Info("join rejected", "room", room.Token, "participant", msg.To, "reason", reason)
	guest.Send <- &signaling.Message{
		Type:   signaling.MessageTypeJoinRejected,
		Room:   room.Token,
		To:     msg.To,
		Reason: reason,
	}
}

// handleJoinRoom registers a live room member. The first host call
// claims the room (or re-claims a hostless one); a guest join is valid
// only after a prior approval. Other members learn about the arrival.
func (h *Hub) handleJoinRoom(c *Client, msg *signaling.Message) {
	switch msg.Role {
	case signaling.RoleHost:
		room := h.rooms[msg.Room]
		if room == nil {
			room = newRoom(msg.Room)
			h.rooms[room.Token] = room
			h.log.Info("room created", "room", room.Token, "host", msg.From)
		}
		if room.Host != nil && room.Host != c {
			h.log.Warn("second host refused", "room", room.Token, "participant", msg.From)
			c.Send <- signaling.ErrorMessage("room already has a host")
			return
		}
		room.Host = c
		h.admit(room, c, msg.From)

	case signaling.RoleGuest:
		room := h.rooms[msg.Room]
		if room == nil {
			h.log.Warn("guest join for unknown room", "room", msg.Room, "participant", msg.From)
			c.Send <- signaling.ErrorMessage("room not found")
			return
		}
		if _, ok := room.Approved[msg.From]; !ok {
			h.log.Warn("guest join without approval", "room", room.Token, "participant", msg.From)
			c.Send <- signaling.ErrorMessage("join not approved")
			return
		}
		h.admit(room, c, msg.From)

	default:
		h.log.Warn("join with unknown role", "room", msg.Room, "role", msg.Role)
	}
}

// admit makes c a live member of room and announces it to everyone
// else already there.
func (h *Hub) admit(room *Room, c *Client, id string) {
	c.ID = id
	c.Room = room.Token
	room.Members[id] = c

	h.log.Info("participant joined", "room", room.Token, "participant", id)
	room.broadcast(c, &signaling.Message{
		Type: signaling.MessageTypeParticipantConnected,
		Room: room.Token,
		From: id,
	})
}

// forward relays a negotiation payload verbatim to its target. An
// absent target means the room's host. Anything unresolvable is logged
// and dropped.
func (h *Hub) forward(c *Client, msg *signaling.Message, outType string) {
	token := msg.Room
	if token == "" {
		token = c.Room
	}
	room := h.rooms[token]
	if room == nil {
		h.log.Warn("relay for unknown room", "room", token, "type", outType)
		return
	}

	sender := msg.From
	if sender == "" {
		sender = c.ID
	}

	var target *Client
	if msg.To != "" {
		target = room.Members[msg.To]
	} else {
		target = room.Host
	}
	if target == nil {
		h.log.Warn("relay target not found", "room", room.Token, "type", outType, "target", msg.To)
		return
	}

	h.log.Debug("relaying", "room", room.Token, "type", outType, "from", sender, "to", target.ID)
	target.Send <- &signaling.Message{
		Type:    outType,
		Room:    room.Token,
		From:    sender,
		To:      msg.To,
		Payload: msg.Payload,
	}
}

// disconnect removes every trace of a departed participant and tells
// the remaining members. Safe to call more than once for the same
// client. A departing host leaves the room hostless; a later host call
// may claim it again. Empty rooms are deleted.
func (h *Hub) disconnect(c *Client) {
	if c.gone {
		return
	}
	c.gone = true

	if room := h.rooms[c.Room]; room != nil {
		if c.ID != "" {
			delete(room.Members, c.ID)
			delete(room.Pending, c.ID)
			delete(room.Approved, c.ID)
		}
		if room.Host == c {
			room.Host = nil
			h.log.Info("room is now hostless", "room", room.Token)
		}

		if room.empty() {
			delete(h.rooms, room.Token)
			h.log.Info("room deleted", "room", room.Token)
		} else if c.ID != "" {
			room.broadcast(nil, &signaling.Message{
				Type: signaling.MessageTypeParticipantDisconnected,
				Room: room.Token,
				From: c.ID,
			})
		}
	}

	h.log.Info("participant disconnected", "room", c.Room, "participant", c.ID)
	close(c.Send)
}
