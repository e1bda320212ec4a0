package game

import (
	"encoding/json"
	"errors"
)

// Info describes a game type for the lobby.
type Info struct {
	Name       string `json:"name"`
	MinPlayers int    `json:"minPlayers"`
	MaxPlayers int    `json:"maxPlayers"`
}

// Rules are the room-configurable settings shared by all engines.
// Engines read the fields they care about and ignore the rest.
type Rules struct {
	BoardSize        int  `json:"boardSize"`
	TimeLimit        int  `json:"timeLimit"` // seconds per turn
	NegativeDisabled bool `json:"negativeDisabled"`
}

// Action is the tagged inbound message envelope. Unknown types are a
// protocol error, not a crash.
type Action struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Outcome reports what an applied action did to the turn order.
type Outcome struct {
	// EndsTurn is true when the action consumes the seated player's turn.
	// Buying or playing an event card does not.
	EndsTurn bool
}

// ErrInvalidAction marks a validation failure: wrong turn, insufficient
// budget, shape out of bounds, occupied cell, card not in hand. These are
// logged and otherwise ignored; no state changes and no reply is sent.
var ErrInvalidAction = errors.New("invalid action")

// ErrUnknownAction marks an action type the engine does not recognize.
// The caller answers the offending connection with an error payload.
var ErrUnknownAction = errors.New("unknown action type")

// Engine is one game's rule plugin. The session actor owns the turn
// order, phases and timers; the engine owns the board, hands and any
// game-specific per-player state. All calls are serialized by the actor.
type Engine interface {
	// Initialize resets game-specific state for the given rules. Called
	// when the room is created and again when rules change in the lobby.
	Initialize(rules Rules)

	// StartGame deals boards and hands for the given participants, in
	// seat order.
	StartGame(participants []string)

	// ApplyAction validates and applies one player action. current is the
	// seated player's id. Validation failures return ErrInvalidAction;
	// any other error is an invariant violation that aborts the handler.
	ApplyAction(current, playerID string, action Action) (Outcome, error)

	// IsTerminal reports whether the round has ended.
	IsTerminal() bool

	// Winners returns the ids of winning participants in detection order,
	// or nil while the round is live.
	Winners() []string

	// TurnAdvanced is called once per turn advance with the player now
	// seated, after the scheduler has moved the turn index. Timed effects
	// decrement here.
	TurnAdvanced(next string)

	// MarshalJSON / UnmarshalJSON support persistence and broadcast.
	MarshalJSON() ([]byte, error)
	UnmarshalJSON(data []byte) error
}

// Game describes a registered game type.
type Game interface {
	Info() Info
	NewEngine() Engine
}
