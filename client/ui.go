package client

import "github.com/Seednode/pong/pong"

type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseWaiting
	PhasePlaying
	PhaseOver
	PhaseOpponentLeft
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseWaiting:
		return "waiting"
	case PhasePlaying:
		return "playing"
	case PhaseOver:
		return "over"
	case PhaseOpponentLeft:
		return "opponent left"
	}
	return "unknown"
}

// View is handed to the UI after every loop iteration.
type View struct {
	Phase   Phase
	ID      string
	Playing bool // a session exists and Game is meaningful
	Game    pong.Snapshot
}

type InputKind int

const (
	InputMove InputKind = iota
	InputPlayAgain
	InputQuit
)

// Input is a local player action. X is the paddle's left edge in field
// coordinates and only applies to InputMove.
type Input struct {
	Kind InputKind
	X    float64
}

// UI draws views and reports local input. Render is always called from the
// client loop goroutine.
type UI interface {
	Render(View)
	Input() <-chan Input
}
