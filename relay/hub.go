// Package relay pairs websocket peers into two-player rooms and forwards
// game events between them without interpreting their payloads.
package relay

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/Seednode/pong/pong"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrStopped is returned by calls made after Run has returned.
var ErrStopped = errors.New("relay: hub stopped")

type inbound struct {
	peer  *Peer
	frame []byte
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	Peers   int `json:"peers"`
	Rooms   int `json:"rooms"`
	Waiting int `json:"waiting"`
}

// Hub owns every room. All pairing and forwarding runs on the goroutine
// executing Run, so handlers never overlap.
type Hub struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	peers   map[string]*Peer
	rooms   map[string]*Room
	waiting []*Room // rooms holding exactly one peer, oldest first

	register   chan *Peer
	unregister chan *Peer
	inbound    chan inbound
	stats      chan chan Stats
	done       chan struct{}
}

func New(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger.With().Str("component", "relay").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		peers:      make(map[string]*Peer),
		rooms:      make(map[string]*Room),
		register:   make(chan *Peer),
		unregister: make(chan *Peer),
		inbound:    make(chan inbound),
		stats:      make(chan chan Stats),
		done:       make(chan struct{}),
	}
}

// Run processes hub events until ctx is cancelled, then disconnects
// every peer.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, p := range h.peers {
				h.onDisconnect(p)
			}
			return

		case p := <-h.register:
			h.onConnect(p)

		case p := <-h.unregister:
			h.onDisconnect(p)

		case in := <-h.inbound:
			h.dispatch(in.peer, in.frame)

		case reply := <-h.stats:
			reply <- Stats{
				Peers:   len(h.peers),
				Rooms:   len(h.rooms),
				Waiting: len(h.waiting),
			}
		}
	}
}

// Stats asks the hub goroutine for its current counters.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)

	select {
	case h.stats <- reply:
	case <-h.done:
		return Stats{}, ErrStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// ServeWS upgrades the request and serves the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("upgrade failed")
		return
	}

	p := newPeer(uuid.NewString(), conn)

	if !h.join(p) {
		_ = conn.Close()
		return
	}

	go p.writePump()
	p.readPump(h)
}

func (h *Hub) join(p *Peer) bool {
	select {
	case h.register <- p:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(p *Peer) {
	select {
	case h.unregister <- p:
	case <-h.done:
	}
}

func (h *Hub) receive(p *Peer, frame []byte) bool {
	select {
	case h.inbound <- inbound{peer: p, frame: frame}:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) onConnect(p *Peer) {
	h.peers[p.ID] = p

	h.logger.Debug().Str("peer", p.ID).Msg("connected")

	h.emit(p, pong.EventConnect, p.ID)
}

// dispatch handles one inbound frame. A panic only costs the sender its
// connection.
func (h *Hub) dispatch(p *Peer, frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Str("peer", p.ID).Interface("panic", r).Msg("handler panicked")
			h.onDisconnect(p)
		}
	}()

	if _, ok := h.peers[p.ID]; !ok {
		return
	}

	env, err := pong.Decode(frame)
	if err != nil {
		h.logger.Debug().Err(err).Str("peer", p.ID).Msg("dropping frame")
		return
	}

	switch {
	case env.Event == pong.EventReady:
		h.onReady(p)
	case pong.IsRelayed(env.Event):
		h.onRelay(p, frame)
	default:
		h.logger.Debug().Str("peer", p.ID).Str("event", env.Event).Msg("ignoring event")
	}
}

func (h *Hub) onReady(p *Peer) {
	if p.room != nil {
		h.logger.Debug().Str("peer", p.ID).Str("room", p.room.ID).Msg("already seated")
		return
	}

	if room := h.nextWaiting(); room != nil {
		room.add(p)

		h.logger.Info().
			Str("room", room.ID).
			Strs("peers", room.Members()).
			Str("referee", room.Referee()).
			Msg("starting game")

		referee := room.Referee()
		for _, q := range slices.Clone(room.peers) {
			h.emit(q, pong.EventStartGame, referee)
		}
		return
	}

	room := newRoom()
	room.add(p)
	h.rooms[room.ID] = room
	h.waiting = append(h.waiting, room)

	h.logger.Debug().Str("peer", p.ID).Str("room", room.ID).Msg("waiting for opponent")
}

// onRelay forwards the untouched frame to the sender's opponent, if any.
func (h *Hub) onRelay(p *Peer, frame []byte) {
	if p.room == nil {
		return
	}

	if other := p.room.opponent(p); other != nil {
		h.deliver(other, frame)
	}
}

func (h *Hub) onDisconnect(p *Peer) {
	if _, ok := h.peers[p.ID]; !ok {
		return
	}
	delete(h.peers, p.ID)
	close(p.send)

	h.logger.Debug().Str("peer", p.ID).Msg("disconnected")

	room := p.room
	if room == nil {
		return
	}
	room.remove(p)

	if room.empty() {
		delete(h.rooms, room.ID)
		h.unqueue(room)
		return
	}

	// remaining peer waits for the next opponent
	h.waiting = append(h.waiting, room)

	if other := room.opponent(nil); other != nil {
		h.emit(other, pong.EventPeerLeft, nil)
	}
}

func (h *Hub) nextWaiting() *Room {
	for len(h.waiting) > 0 {
		room := h.waiting[0]
		h.waiting = h.waiting[1:]

		if len(room.peers) == 1 {
			return room
		}
	}
	return nil
}

func (h *Hub) unqueue(room *Room) {
	h.waiting = slices.DeleteFunc(h.waiting, func(r *Room) bool {
		return r == room
	})
}

func (h *Hub) emit(p *Peer, event string, payload any) {
	frame, err := pong.Encode(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("encode failed")
		return
	}
	h.deliver(p, frame)
}

// deliver queues frame on p, evicting p if its queue is full.
func (h *Hub) deliver(p *Peer, frame []byte) {
	if _, ok := h.peers[p.ID]; !ok {
		return
	}

	select {
	case p.send <- frame:
	default:
		h.logger.Warn().Str("peer", p.ID).Msg("send queue full, disconnecting")
		h.onDisconnect(p)
	}
}
