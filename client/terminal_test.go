package client

import (
	"testing"
	"time"

	"github.com/Seednode/pong/pong"
	"github.com/gdamore/tcell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimTerminal(t *testing.T, w, h int) (*Terminal, tcell.SimulationScreen) {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	term, err := NewTerminal(screen)
	require.NoError(t, err)
	screen.SetSize(w, h)
	t.Cleanup(term.Close)

	return term, screen
}

func cellAt(screen tcell.SimulationScreen, col, row int) rune {
	cells, w, _ := screen.GetContents()
	c := cells[row*w+col]
	if len(c.Runes) == 0 {
		return ' '
	}
	return c.Runes[0]
}

func rowText(screen tcell.SimulationScreen, row int) string {
	cells, w, _ := screen.GetContents()
	out := make([]rune, 0, w)
	for col := 0; col < w; col++ {
		c := cells[row*w+col]
		if len(c.Runes) == 0 {
			out = append(out, ' ')
			continue
		}
		out = append(out, c.Runes[0])
	}
	return string(out)
}

func TestTranslateKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ev   *tcell.EventKey
		want Input
		ok   bool
	}{
		{name: "quit rune", ev: tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), want: Input{Kind: InputQuit}, ok: true},
		{name: "escape", ev: tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), want: Input{Kind: InputQuit}, ok: true},
		{name: "play again", ev: tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone), want: Input{Kind: InputPlayAgain}, ok: true},
		{name: "left", ev: tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone), want: Input{Kind: InputMove, X: 75}, ok: true},
		{name: "right", ev: tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone), want: Input{Kind: InputMove, X: 125}, ok: true},
		{name: "other", ev: tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), ok: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := translateKey(tc.ev, 100)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestFieldMapping(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, fieldToColumn(-20, 100))
	assert.Equal(t, 50, fieldToColumn(250, 100))
	assert.Equal(t, 99, fieldToColumn(900, 100))
	assert.Equal(t, 35, fieldToRow(350, 70))
	assert.Equal(t, 250.0-pong.PaddleDiff, columnToField(50, 100))
	assert.Equal(t, 0.0, columnToField(10, 0))
}

func TestTerminal_RenderField(t *testing.T) {
	t.Parallel()

	term, screen := newSimTerminal(t, 100, 70)

	term.Render(View{
		Phase:   PhasePlaying,
		Playing: true,
		Game: pong.Snapshot{
			Role:    pong.RoleReferee,
			PaddleX: [2]float64{0, 450},
			BallX:   250,
			BallY:   350,
			Score:   [2]int{3, 4},
		},
	})

	assert.Equal(t, rune(paddleSymbol), cellAt(screen, 0, 68), "bottom paddle")
	assert.Equal(t, rune(paddleSymbol), cellAt(screen, 10, 68))
	assert.Equal(t, rune(paddleSymbol), cellAt(screen, 95, 1), "top paddle")
	assert.Equal(t, rune(ballSymbol), cellAt(screen, 50, 35))
	assert.Equal(t, '3', cellAt(screen, 1, 37))
	assert.Equal(t, '4', cellAt(screen, 1, 33))
	assert.Contains(t, rowText(screen, 69), "you: referee")
}

func TestTerminal_RenderMessages(t *testing.T) {
	t.Parallel()

	term, screen := newSimTerminal(t, 60, 20)

	term.Render(View{Phase: PhaseWaiting})
	assert.Contains(t, rowText(screen, 10), "Waiting for opponent...")

	term.Render(View{Phase: PhaseOver, Playing: true, Game: pong.Snapshot{Winner: "Top Player"}})
	assert.Contains(t, rowText(screen, 9), "Top Player Wins!")

	term.Render(View{Phase: PhaseOpponentLeft})
	assert.Contains(t, rowText(screen, 10), "Opponent left")
}

func TestTerminal_Input(t *testing.T) {
	t.Parallel()

	term, screen := newSimTerminal(t, 100, 70)

	term.Render(View{Phase: PhasePlaying, Playing: true, Game: pong.Snapshot{PaddleIndex: 1, PaddleX: [2]float64{0, 200}}})

	screen.InjectKey(tcell.KeyRight, 0, tcell.ModNone)
	select {
	case in := <-term.Input():
		assert.Equal(t, Input{Kind: InputMove, X: 225}, in)
	case <-time.After(5 * time.Second):
		t.Fatal("no input")
	}

	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	select {
	case in := <-term.Input():
		assert.Equal(t, InputQuit, in.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("no input")
	}
}
