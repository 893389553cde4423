/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package pong

import (
	"encoding/json"
	"fmt"
)

// Event names carried in the "event" field of every frame.
const (
	EventConnect    = "connect"    // server -> client, data: peer id
	EventReady      = "ready"      // client -> server, no data
	EventStartGame  = "startGame"  // server -> clients, data: referee id
	EventPaddleMove = "paddleMove" // relayed
	EventBallMove   = "ballMove"   // relayed
	EventGameOver   = "gameOver"   // relayed
	EventPlayAgain  = "playAgain"  // relayed
	EventPeerLeft   = "peerLeft"   // server -> remaining client, no data
)

// IsRelayed reports whether the server forwards event to the opponent
// without looking at its payload.
func IsRelayed(event string) bool {
	switch event {
	case EventPaddleMove, EventBallMove, EventGameOver, EventPlayAgain:
		return true
	}
	return false
}

// Envelope is the JSON frame exchanged over the websocket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type PaddleMove struct {
	XPosition float64 `json:"xPosition"`
}

type BallMove struct {
	BallX float64 `json:"ballX"`
	BallY float64 `json:"ballY"`
	Score [2]int  `json:"score"`
}

type GameOver struct {
	IsGameOver bool   `json:"isGameOver"`
	Winner     string `json:"winner"`
}

// Encode builds a frame for event. A nil payload produces a frame without data.
func Encode(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		env.Data = data
	}

	return json.Marshal(env)
}

// Decode parses a frame. Only the envelope is validated; Data is left raw.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode frame: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("decode frame: missing event name")
	}
	return env, nil
}

// Unmarshal decodes the envelope payload into v.
func (e Envelope) Unmarshal(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: missing payload", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%s: %w", e.Event, err)
	}
	return nil
}
