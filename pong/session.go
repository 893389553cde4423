// Package pong holds the client-side game rules shared by every peer:
// referee election, the referee's physics step and the mirror's state sync.
//
// A Session is not safe for concurrent use. Callers drive it from a single
// loop that serializes frame ticks, inbound messages and local input.
package pong

// Field and rule constants.
const (
	Width        = 500.0
	Height       = 700.0
	PaddleWidth  = 50.0
	PaddleHeight = 10.0
	PaddleDiff   = 25.0 // half paddle width, also the depth of each bounce zone
	BallRadius   = 5.0
	WinningScore = 7

	initialPaddleX = 225.0
	initialSpeedY  = 2.0
	resetSpeedY    = 3.0
	maxSpeedY      = 5.0
	angleFactor    = 0.3
)

// Winner labels, indexed by paddle.
var winners = [2]string{"Bottom Player", "Top Player"}

// Emitter sends a named event to the opponent through the relay.
type Emitter interface {
	Emit(event string, payload any) error
}

type Role int

const (
	RoleMirror Role = iota
	RoleReferee
)

func (r Role) String() string {
	if r == RoleReferee {
		return "referee"
	}
	return "mirror"
}

// Session is the state of one match as seen by one peer.
type Session struct {
	out Emitter

	role        Role
	paddleIndex int
	playerMoved bool

	paddleX   [2]float64
	ballX     float64
	ballY     float64
	direction float64
	speedX    float64
	speedY    float64
	score     [2]int

	over   bool
	winner string
}

// Snapshot is a read-only copy of a session for renderers.
type Snapshot struct {
	Role        Role
	PaddleIndex int
	PaddleX     [2]float64
	BallX       float64
	BallY       float64
	Score       [2]int
	Over        bool
	Winner      string
}

// NewSession elects the local role from the referee identity announced by
// the relay and returns a freshly started match.
func NewSession(localID, refereeID string, out Emitter) *Session {
	s := &Session{
		out:       out,
		paddleX:   [2]float64{initialPaddleX, initialPaddleX},
		ballX:     Width / 2,
		ballY:     Height / 2,
		direction: 1,
		speedY:    initialSpeedY,
	}

	if localID != "" && localID == refereeID {
		s.role = RoleReferee
	}

	s.Restart()

	return s
}

// Restart clears the score and game-over flag and re-derives the paddle
// index from the role. Ball position and speeds carry over.
func (s *Session) Restart() {
	s.over = false
	s.winner = ""
	s.score = [2]int{}

	// referee owns the bottom paddle
	if s.role == RoleReferee {
		s.paddleIndex = 0
	} else {
		s.paddleIndex = 1
	}
}

func (s *Session) Role() Role { return s.role }

func (s *Session) Over() bool { return s.over }

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Role:        s.role,
		PaddleIndex: s.paddleIndex,
		PaddleX:     s.paddleX,
		BallX:       s.ballX,
		BallY:       s.ballY,
		Score:       s.score,
		Over:        s.over,
		Winner:      s.winner,
	}
}

// Frame runs one display frame. The referee steps the physics and checks
// for a winner; the mirror does nothing. It reports whether the frame loop
// should keep running.
func (s *Session) Frame() bool {
	if s.over {
		return false
	}

	if s.role == RoleReferee {
		s.Step()
		s.checkWinner()
	}

	return !s.over
}

// Step advances the ball, resolves walls, paddles and misses, then
// broadcasts the resulting ball state.
func (s *Session) Step() {
	s.ballY += s.speedY * s.direction
	if s.playerMoved {
		s.ballX += s.speedX
	}

	s.bounds()

	s.emit(EventBallMove, BallMove{
		BallX: s.ballX,
		BallY: s.ballY,
		Score: s.score,
	})
}

func (s *Session) bounds() {
	if s.ballX < 0 && s.speedX < 0 {
		s.speedX = -s.speedX
	}
	if s.ballX > Width && s.speedX > 0 {
		s.speedX = -s.speedX
	}

	if s.ballY > Height-PaddleDiff {
		s.defend(0)
	}
	if s.ballY < PaddleDiff {
		s.defend(1)
	}
}

// defend resolves the ball entering the bounce zone of paddle i.
func (s *Session) defend(i int) {
	left := s.paddleX[i]
	if s.ballX < left || s.ballX > left+PaddleWidth {
		s.score[1-i]++
		s.resetBall()
		return
	}

	if s.playerMoved {
		s.speedY = min(s.speedY+1, maxSpeedY)
	}
	s.direction = -s.direction
	s.speedX = (s.ballX - (left + PaddleDiff)) * angleFactor
}

// resetBall recentres the ball. speedX carries over into the next serve.
func (s *Session) resetBall() {
	s.ballX = Width / 2
	s.ballY = Height / 2
	s.speedY = resetSpeedY
}

func (s *Session) checkWinner() {
	for i, points := range s.score {
		if points == WinningScore {
			s.over = true
			s.winner = winners[i]
			s.emit(EventGameOver, GameOver{IsGameOver: true, Winner: s.winner})
			return
		}
	}
}

// MovePaddle places the local paddle at x, clamped to the field, and
// broadcasts the new position regardless of role.
func (s *Session) MovePaddle(x float64) {
	s.playerMoved = true
	x = max(0, min(x, Width-PaddleWidth))
	s.paddleX[s.paddleIndex] = x

	s.emit(EventPaddleMove, PaddleMove{XPosition: x})
}

// LocalPaddleX returns the position of the paddle this peer controls.
func (s *Session) LocalPaddleX() float64 {
	return s.paddleX[s.paddleIndex]
}

// ApplyPaddleMove overwrites the opponent's paddle.
func (s *Session) ApplyPaddleMove(m PaddleMove) {
	s.paddleX[1-s.paddleIndex] = m.XPosition
}

// ApplyBallMove overwrites ball position and score wholesale.
func (s *Session) ApplyBallMove(m BallMove) {
	s.ballX = m.BallX
	s.ballY = m.BallY
	s.score = m.Score
}

// ApplyGameOver ends the match with the winner announced by the opponent.
func (s *Session) ApplyGameOver(m GameOver) {
	s.over = true
	s.winner = m.Winner
}

// PlayAgain restarts the match locally and asks the opponent to do the same.
func (s *Session) PlayAgain() {
	s.Restart()
	s.emit(EventPlayAgain, nil)
}

func (s *Session) emit(event string, payload any) {
	if s.out == nil {
		return
	}
	// delivery is best effort; a lost frame is corrected by the next ballMove
	_ = s.out.Emit(event, payload)
}
