package client

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/Seednode/pong/pong"
	"github.com/gdamore/tcell"
)

const (
	paddleSymbol = 0x2588
	ballSymbol   = 0x25CF
	lineSymbol   = '-'

	// arrow keys move the paddle by half its width
	nudge = pong.PaddleDiff
)

// Terminal renders the field with tcell, scaled to the terminal size.
// Mouse motion moves the paddle, arrows nudge it, r plays again and q quits.
type Terminal struct {
	screen tcell.Screen
	style  tcell.Style
	inputs chan Input

	mu     sync.Mutex
	localX float64
}

func NewTerminal(screen tcell.Screen) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}

	style := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite)
	screen.SetStyle(style)
	screen.EnableMouse()
	screen.HideCursor()

	t := &Terminal{
		screen: screen,
		style:  style,
		inputs: make(chan Input, 16),
	}

	go t.poll()

	return t, nil
}

// Close restores the terminal. Input is closed once polling stops.
func (t *Terminal) Close() {
	t.screen.Fini()
}

func (t *Terminal) Input() <-chan Input {
	return t.inputs
}

func (t *Terminal) poll() {
	defer close(t.inputs)

	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}

		switch ev := ev.(type) {
		case *tcell.EventKey:
			t.mu.Lock()
			x := t.localX
			t.mu.Unlock()

			if in, ok := translateKey(ev, x); ok {
				t.push(in)
				if in.Kind == InputQuit {
					return
				}
			}

		case *tcell.EventMouse:
			col, _ := ev.Position()
			w, _ := t.screen.Size()
			t.push(Input{Kind: InputMove, X: columnToField(col, w)})

		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func (t *Terminal) push(in Input) {
	select {
	case t.inputs <- in:
	default:
		// a newer move will follow; quit and play again are never dropped
		if in.Kind != InputMove {
			t.inputs <- in
		}
	}
}

func translateKey(ev *tcell.EventKey, localX float64) (Input, bool) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Input{Kind: InputQuit}, true
	case tcell.KeyLeft:
		return Input{Kind: InputMove, X: localX - nudge}, true
	case tcell.KeyRight:
		return Input{Kind: InputMove, X: localX + nudge}, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return Input{Kind: InputQuit}, true
		case 'r', 'R':
			return Input{Kind: InputPlayAgain}, true
		}
	}
	return Input{}, false
}

// columnToField maps a terminal column to the paddle's left edge, centring
// the paddle under the pointer.
func columnToField(col, width int) float64 {
	if width <= 0 {
		return 0
	}
	return float64(col)*pong.Width/float64(width) - pong.PaddleDiff
}

func fieldToColumn(x float64, width int) int {
	return clamp(int(x*float64(width)/pong.Width), 0, width-1)
}

func fieldToRow(y float64, height int) int {
	return clamp(int(y*float64(height)/pong.Height), 0, height-1)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func (t *Terminal) Render(v View) {
	if v.Playing {
		t.mu.Lock()
		t.localX = v.Game.PaddleX[v.Game.PaddleIndex]
		t.mu.Unlock()
	}

	t.screen.Clear()
	w, h := t.screen.Size()

	switch {
	case v.Phase == PhaseConnecting:
		t.text(2, h/2, "Connecting...")
	case v.Phase == PhaseWaiting:
		t.text(2, h/2, "Waiting for opponent...")
	case v.Phase == PhaseOpponentLeft:
		t.text(2, h/2, "Opponent left. Waiting for a new one...")
	case v.Phase == PhaseOver:
		t.text(2, h/2-1, v.Game.Winner+" Wins!")
		t.text(2, h/2+1, "Press r to play again, q to quit")
	default:
		t.field(v.Game, w, h)
	}

	t.screen.Show()
}

func (t *Terminal) field(g pong.Snapshot, w, h int) {
	for col := 0; col < w; col += 2 {
		t.screen.SetContent(col, h/2, lineSymbol, nil, t.style.Foreground(tcell.ColorGray))
	}

	rows := [2]int{h - 2, 1}
	for i, row := range rows {
		from := fieldToColumn(g.PaddleX[i], w)
		to := fieldToColumn(g.PaddleX[i]+pong.PaddleWidth, w)
		for col := from; col <= to; col++ {
			t.screen.SetContent(col, row, paddleSymbol, nil, t.style)
		}
	}

	t.screen.SetContent(fieldToColumn(g.BallX, w), fieldToRow(g.BallY, h), ballSymbol, nil, t.style)

	t.text(1, h/2+2, strconv.Itoa(g.Score[0]))
	t.text(1, h/2-2, strconv.Itoa(g.Score[1]))

	t.text(1, h-1, "you: "+g.Role.String())
}

func (t *Terminal) text(col, row int, s string) {
	for i, r := range s {
		t.screen.SetContent(col+i, row, r, nil, t.style)
	}
}
