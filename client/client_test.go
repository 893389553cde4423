package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Seednode/pong/pong"
	"github.com/Seednode/pong/relay"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUI struct {
	mu     sync.Mutex
	last   View
	inputs chan Input
}

func newFakeUI() *fakeUI {
	return &fakeUI{inputs: make(chan Input, 8)}
}

func (f *fakeUI) Render(v View) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = v
}

func (f *fakeUI) Input() <-chan Input { return f.inputs }

func (f *fakeUI) view() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func newOffline() *Client {
	return &Client{
		logger: zerolog.Nop(),
		send:   make(chan []byte, sendBuffer),
		phase:  PhaseConnecting,
	}
}

func envelope(t *testing.T, event string, payload any) pong.Envelope {
	t.Helper()

	frame, err := pong.Encode(event, payload)
	require.NoError(t, err)
	env, err := pong.Decode(frame)
	require.NoError(t, err)
	return env
}

func sent(t *testing.T, c *Client) []pong.Envelope {
	t.Helper()

	var out []pong.Envelope
	for {
		select {
		case frame := <-c.send:
			env, err := pong.Decode(frame)
			require.NoError(t, err)
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestClient_Election(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		referee string
		role    pong.Role
	}{
		{name: "referee", referee: "me", role: pong.RoleReferee},
		{name: "mirror", referee: "other", role: pong.RoleMirror},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := newOffline()
			c.handle(envelope(t, pong.EventConnect, "me"))
			assert.Equal(t, PhaseWaiting, c.View().Phase)
			assert.Equal(t, "me", c.View().ID)

			c.handle(envelope(t, pong.EventStartGame, tc.referee))

			v := c.View()
			assert.Equal(t, PhasePlaying, v.Phase)
			require.True(t, v.Playing)
			assert.Equal(t, tc.role, v.Game.Role)
		})
	}
}

func TestClient_RefereeTickBroadcasts(t *testing.T) {
	t.Parallel()

	c := newOffline()
	c.handle(envelope(t, pong.EventConnect, "me"))
	c.handle(envelope(t, pong.EventStartGame, "me"))

	c.tick()

	out := sent(t, c)
	require.Len(t, out, 1)
	assert.Equal(t, pong.EventBallMove, out[0].Event)

	var m pong.BallMove
	require.NoError(t, out[0].Unmarshal(&m))
	assert.Equal(t, 352.0, m.BallY)
}

func TestClient_MirrorFollowsReferee(t *testing.T) {
	t.Parallel()

	c := newOffline()
	c.handle(envelope(t, pong.EventConnect, "me"))
	c.handle(envelope(t, pong.EventStartGame, "other"))

	c.tick()
	assert.Empty(t, sent(t, c), "mirror never simulates")

	c.handle(envelope(t, pong.EventBallMove, pong.BallMove{BallX: 1, BallY: 2, Score: [2]int{5, 6}}))
	c.handle(envelope(t, pong.EventPaddleMove, pong.PaddleMove{XPosition: 77}))

	g := c.View().Game
	assert.Equal(t, 1.0, g.BallX)
	assert.Equal(t, 2.0, g.BallY)
	assert.Equal(t, [2]int{5, 6}, g.Score)
	assert.Equal(t, 77.0, g.PaddleX[0])

	c.handle(envelope(t, pong.EventGameOver, pong.GameOver{IsGameOver: true, Winner: "Top Player"}))
	assert.Equal(t, PhaseOver, c.View().Phase)
	assert.Equal(t, "Top Player", c.View().Game.Winner)

	c.input(Input{Kind: InputPlayAgain})
	assert.Equal(t, PhasePlaying, c.View().Phase)
	assert.Equal(t, [2]int{0, 0}, c.View().Game.Score)

	out := sent(t, c)
	require.Len(t, out, 1)
	assert.Equal(t, pong.EventPlayAgain, out[0].Event)
}

func TestClient_MoveOnlyWhilePlaying(t *testing.T) {
	t.Parallel()

	c := newOffline()
	c.input(Input{Kind: InputMove, X: 10})
	assert.Empty(t, sent(t, c))

	c.handle(envelope(t, pong.EventConnect, "me"))
	c.handle(envelope(t, pong.EventStartGame, "other"))
	c.input(Input{Kind: InputMove, X: 10})

	out := sent(t, c)
	require.Len(t, out, 1)
	assert.Equal(t, pong.EventPaddleMove, out[0].Event)
	assert.Equal(t, 10.0, c.View().Game.PaddleX[1])
}

func TestClient_RemotePlayAgainAndPeerLeft(t *testing.T) {
	t.Parallel()

	c := newOffline()
	c.handle(envelope(t, pong.EventConnect, "me"))
	c.handle(envelope(t, pong.EventStartGame, "me"))
	c.handle(envelope(t, pong.EventGameOver, pong.GameOver{IsGameOver: true, Winner: "Bottom Player"}))
	require.Equal(t, PhaseOver, c.View().Phase)

	c.handle(envelope(t, pong.EventPlayAgain, nil))
	assert.Equal(t, PhasePlaying, c.View().Phase)
	assert.Equal(t, pong.RoleReferee, c.View().Game.Role)

	c.handle(envelope(t, pong.EventPeerLeft, nil))
	assert.Equal(t, PhaseOpponentLeft, c.View().Phase)
	assert.False(t, c.View().Playing)

	c.handle(envelope(t, pong.EventBallMove, pong.BallMove{BallX: 9}))
	c.tick()
	assert.Empty(t, sent(t, c))
}

func startRelay(t *testing.T, ctx context.Context) (*relay.Hub, string) {
	t.Helper()

	hub := relay.New(zerolog.Nop())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_RunAgainstRelay(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	hub, url := startRelay(t, ctx)

	clockA, clockB := clockwork.NewFakeClock(), clockwork.NewFakeClock()

	a, err := Dial(ctx, Options{URL: url, Clock: clockA, Logger: zerolog.Nop()})
	require.NoError(t, err)
	uiA := newFakeUI()
	doneA := make(chan error, 1)
	go func() { doneA <- a.Run(ctx, uiA) }()

	require.Eventually(t, func() bool {
		s, err := hub.Stats(ctx)
		return err == nil && s.Waiting == 1
	}, 5*time.Second, 10*time.Millisecond)

	b, err := Dial(ctx, Options{URL: url, Clock: clockB, Logger: zerolog.Nop()})
	require.NoError(t, err)
	uiB := newFakeUI()
	doneB := make(chan error, 1)
	go func() { doneB <- b.Run(ctx, uiB) }()

	require.Eventually(t, func() bool {
		return uiA.view().Phase == PhasePlaying && uiB.view().Phase == PhasePlaying
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, pong.RoleReferee, uiA.view().Game.Role)
	assert.Equal(t, pong.RoleMirror, uiB.view().Game.Role)

	uiA.inputs <- Input{Kind: InputMove, X: 42}
	require.Eventually(t, func() bool {
		return uiB.view().Game.PaddleX[0] == 42
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, clockA.BlockUntilContext(ctx, 1))
	clockA.Advance(time.Second / defaultFPS)
	require.Eventually(t, func() bool {
		return uiB.view().Game.BallY > pong.Height/2
	}, 5*time.Second, 10*time.Millisecond)

	uiA.inputs <- Input{Kind: InputQuit}
	require.NoError(t, <-doneA)

	require.Eventually(t, func() bool {
		return uiB.view().Phase == PhaseOpponentLeft
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.Error(t, <-doneB)
}
