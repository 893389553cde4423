package relay

import (
	"github.com/oklog/ulid/v2"
)

// Room pairs at most two peers. The first peer to join is the referee.
type Room struct {
	ID    string
	peers []*Peer
}

func newRoom() *Room {
	return &Room{ID: ulid.Make().String()}
}

func (r *Room) full() bool { return len(r.peers) == 2 }

func (r *Room) empty() bool { return len(r.peers) == 0 }

// Referee returns the identity of the first peer, or "" for an empty room.
func (r *Room) Referee() string {
	if r.empty() {
		return ""
	}
	return r.peers[0].ID
}

// Members returns peer identities in join order.
func (r *Room) Members() []string {
	ids := make([]string, 0, len(r.peers))
	for _, p := range r.peers {
		ids = append(ids, p.ID)
	}
	return ids
}

func (r *Room) add(p *Peer) {
	r.peers = append(r.peers, p)
	p.room = r
}

func (r *Room) remove(p *Peer) {
	dst := r.peers[:0]
	for _, q := range r.peers {
		if q == p {
			continue
		}
		dst = append(dst, q)
	}
	r.peers = dst
	p.room = nil
}

// opponent returns the other peer of the room, or nil while waiting.
func (r *Room) opponent(p *Peer) *Peer {
	for _, q := range r.peers {
		if q != p {
			return q
		}
	}
	return nil
}
