// Package client runs one pong peer against the relay: it keeps the
// websocket pumps, elects its role on startGame and drives the session from a
// single loop.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Seednode/pong/pong"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 256
	defaultFPS = 60
)

// ErrClosed is returned by Run when the relay closes the connection.
var ErrClosed = errors.New("client: connection closed")

type Options struct {
	URL    string
	FPS    int
	Header http.Header
	Dialer *websocket.Dialer
	Clock  clockwork.Clock
	Logger zerolog.Logger
}

type Client struct {
	conn   *websocket.Conn
	clock  clockwork.Clock
	logger zerolog.Logger
	frame  time.Duration

	inbound chan pong.Envelope
	readErr chan error
	send    chan []byte

	id      string
	phase   Phase
	session *pong.Session
}

// Dial connects to the relay websocket at opts.URL.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, opts.URL, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	fps := opts.FPS
	if fps <= 0 {
		fps = defaultFPS
	}

	return &Client{
		conn:    conn,
		clock:   clock,
		logger:  opts.Logger.With().Str("component", "client").Logger(),
		frame:   time.Second / time.Duration(fps),
		inbound: make(chan pong.Envelope, sendBuffer),
		readErr: make(chan error, 1),
		send:    make(chan []byte, sendBuffer),
		phase:   PhaseConnecting,
	}, nil
}

// Run announces readiness and plays until ctx is done, the UI quits or the
// connection drops. All session access happens on this goroutine.
func (c *Client) Run(ctx context.Context, ui UI) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.readPump(ctx)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	defer func() {
		close(c.send)
		<-writerDone
		_ = c.conn.Close()
	}()

	ticker := c.clock.NewTicker(c.frame)
	defer ticker.Stop()

	if err := c.Emit(pong.EventReady, nil); err != nil {
		return err
	}

	ui.Render(c.View())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-c.readErr:
			return err

		case env := <-c.inbound:
			c.handle(env)

		case in, ok := <-ui.Input():
			if !ok || in.Kind == InputQuit {
				return nil
			}
			c.input(in)

		case <-ticker.Chan():
			c.tick()
		}

		ui.Render(c.View())
	}
}

// Close drops the connection without running the game. Use it only when
// Run will not be called.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Emit queues an event for the relay. It never blocks the loop.
func (c *Client) Emit(event string, payload any) error {
	frame, err := pong.Encode(event, payload)
	if err != nil {
		return err
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.logger.Warn().Str("event", event).Msg("send queue full, dropping")
		return fmt.Errorf("send %s: queue full", event)
	}
}

// View summarizes what the UI should draw.
func (c *Client) View() View {
	v := View{Phase: c.phase, ID: c.id}
	if c.session != nil {
		v.Game = c.session.Snapshot()
		v.Playing = true
	}
	return v
}

func (c *Client) tick() {
	if c.phase != PhasePlaying || c.session == nil {
		return
	}

	if !c.session.Frame() {
		c.phase = PhaseOver
	}
}

func (c *Client) handle(env pong.Envelope) {
	switch env.Event {
	case pong.EventConnect:
		if err := env.Unmarshal(&c.id); err != nil {
			c.logger.Warn().Err(err).Msg("bad identity")
			return
		}
		c.phase = PhaseWaiting
		c.logger.Info().Str("id", c.id).Msg("connected")

	case pong.EventStartGame:
		var referee string
		if err := env.Unmarshal(&referee); err != nil {
			c.logger.Warn().Err(err).Msg("bad startGame")
			return
		}
		c.session = pong.NewSession(c.id, referee, c)
		c.phase = PhasePlaying
		c.logger.Info().Str("referee", referee).Stringer("role", c.session.Role()).Msg("game started")

	case pong.EventPaddleMove:
		var m pong.PaddleMove
		if c.decodeInGame(env, &m) {
			c.session.ApplyPaddleMove(m)
		}

	case pong.EventBallMove:
		var m pong.BallMove
		if c.decodeInGame(env, &m) {
			c.session.ApplyBallMove(m)
		}

	case pong.EventGameOver:
		var m pong.GameOver
		if c.decodeInGame(env, &m) {
			c.session.ApplyGameOver(m)
			c.phase = PhaseOver
			c.logger.Info().Str("winner", m.Winner).Msg("game over")
		}

	case pong.EventPlayAgain:
		if c.session != nil {
			c.session.Restart()
			c.phase = PhasePlaying
		}

	case pong.EventPeerLeft:
		c.session = nil
		c.phase = PhaseOpponentLeft
		c.logger.Info().Msg("opponent left")

	default:
		c.logger.Debug().Str("event", env.Event).Msg("ignoring event")
	}
}

func (c *Client) decodeInGame(env pong.Envelope, v any) bool {
	if c.session == nil {
		return false
	}
	if err := env.Unmarshal(v); err != nil {
		c.logger.Debug().Err(err).Msg("dropping frame")
		return false
	}
	return true
}

func (c *Client) input(in Input) {
	if c.session == nil {
		return
	}

	switch in.Kind {
	case InputMove:
		if c.phase == PhasePlaying {
			c.session.MovePaddle(in.X)
		}
	case InputPlayAgain:
		if c.phase == PhaseOver {
			c.session.PlayAgain()
			c.phase = PhasePlaying
		}
	}
}

func (c *Client) readPump(ctx context.Context) {
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				err = ErrClosed
			}
			select {
			case c.readErr <- err:
			default:
			}
			return
		}

		env, err := pong.Decode(frame)
		if err != nil {
			c.logger.Debug().Err(err).Msg("dropping frame")
			continue
		}

		select {
		case c.inbound <- env:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.logger.Debug().Err(err).Msg("write failed")
		}
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
