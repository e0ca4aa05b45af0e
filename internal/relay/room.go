package relay

import "github.com/peercall/peercall/internal/signaling"

// Room tracks one rendezvous context: its host of record, the live
// members, the guests cleared to join and the guests still waiting on
// the host's decision. A participant id is in at most one of the
// approved and pending sets at any time.
type Room struct {
	// Token is the opaque identifier participants rendezvous on.
	Token string

	// Host is the room's approval authority, nil while the room is
	// hostless (e.g. after the host disconnected).
	Host *Client

	// Members maps participant ids to the live room members,
	// including the host.
	Members map[string]*Client

	// Approved holds guest ids cleared by the host but tracked until
	// they disconnect.
	Approved map[string]struct{}

	// Pending maps guest ids awaiting the host's decision to their
	// connections, so the verdict can be delivered.
	Pending map[string]*Client
}

func newRoom(token string) *Room {
	return &Room{
		Token:    token,
		Members:  make(map[string]*Client),
		Approved: make(map[string]struct{}),
		Pending:  make(map[string]*Client),
	}
}

// empty reports whether nobody is left to serve in this room. An
// approved guest that has not sent join-room yet still counts: its
// join must find the room, even hostless.
func (r *Room) empty() bool {
	return len(r.Members) == 0 && len(r.Pending) == 0 && len(r.Approved) == 0
}

// setPending records a join request, displacing any approval the id
// previously held. Re-requests simply replace the entry.
func (r *Room) setPending(id string, c *Client) {
	delete(r.Approved, id)
	r.Pending[id] = c
}

// approve moves id from pending to approved and returns its connection,
// or nil if the id was not pending.
func (r *Room) approve(id string) *Client {
	c, ok := r.Pending[id]
	if !ok {
		return nil
	}
	delete(r.Pending, id)
	r.Approved[id] = struct{}{}
	return c
}

// broadcast delivers msg to every live member except skip.
func (r *Room) broadcast(skip *Client, msg *signaling.Message) {
	for _, m := range r.Members {
		if m != skip {
			m.Send <- msg
		}
	}
}
