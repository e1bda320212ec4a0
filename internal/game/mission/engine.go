package mission

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"puzzlerooms/internal/game"
)

const defaultBoardSize = 3

// Game registers the mission grid game.
type Game struct{}

func (Game) Info() game.Info {
	return game.Info{Name: "mission", MinPlayers: 2, MaxPlayers: 8}
}

func (Game) NewEngine() game.Engine {
	return NewEngine()
}

// Engine holds the mission game's state: a numeric grid, per-player
// number hands and one mission objective per participant.
type Engine struct {
	Rules        game.Rules          `json:"rules"`
	Board        [][]*int            `json:"board"`
	Hands        map[string][]int    `json:"hands"`
	Missions     map[string]Assigned `json:"missions"`
	WinCells     map[string][][]bool `json:"winCells"`
	Participants []string            `json:"participants"`
	Winner       []string            `json:"winners"`

	rng *rand.Rand
}

func NewEngine() *Engine {
	e := &Engine{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	e.Initialize(game.Rules{})
	return e
}

func (e *Engine) Initialize(rules game.Rules) {
	if rules.BoardSize <= 0 {
		rules.BoardSize = defaultBoardSize
	}
	e.Rules = rules
	e.Board = nil
	e.Hands = make(map[string][]int)
	e.Missions = make(map[string]Assigned)
	e.WinCells = make(map[string][][]bool)
	e.Participants = nil
	e.Winner = nil
}

func (e *Engine) StartGame(participants []string) {
	size := e.Rules.BoardSize
	e.Board = make([][]*int, size)
	for y := range e.Board {
		e.Board[y] = make([]*int, size)
	}
	e.Hands = make(map[string][]int, len(participants))
	e.Missions = make(map[string]Assigned, len(participants))
	e.WinCells = make(map[string][][]bool)
	e.Participants = append([]string(nil), participants...)
	e.Winner = nil

	for _, id := range participants {
		hand := make([]int, 3)
		for i := range hand {
			hand[i] = e.drawNumber()
		}
		e.Hands[id] = hand

		mid := CatalogIDs[e.rng.Intn(len(CatalogIDs))]
		e.Missions[id] = Assigned{ID: mid, Mission: Catalog[mid]}
	}
}

type movePayload struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Operation string `json:"operation"`
	Num       int    `json:"num"`
	NumIndex  int    `json:"numIndex"`
}

func (e *Engine) ApplyAction(current, playerID string, action game.Action) (game.Outcome, error) {
	if action.Type != "makeMove" {
		return game.Outcome{}, fmt.Errorf("%w: %s", game.ErrUnknownAction, action.Type)
	}
	if e.Board == nil {
		return game.Outcome{}, fmt.Errorf("game state is not initialized")
	}
	if e.Winner != nil {
		return game.Outcome{}, fmt.Errorf("%w: round already ended", game.ErrInvalidAction)
	}

	var mv movePayload
	if err := json.Unmarshal(action.Payload, &mv); err != nil {
		return game.Outcome{}, fmt.Errorf("%w: %v", game.ErrUnknownAction, err)
	}

	if playerID != current {
		return game.Outcome{}, fmt.Errorf("%w: not %s's turn", game.ErrInvalidAction, playerID)
	}
	size := e.Rules.BoardSize
	if mv.X < 0 || mv.Y < 0 || mv.X >= size || mv.Y >= size {
		return game.Outcome{}, fmt.Errorf("%w: cell (%d,%d) out of range", game.ErrInvalidAction, mv.X, mv.Y)
	}
	hand := e.Hands[playerID]
	if mv.NumIndex < 0 || mv.NumIndex >= len(hand) || hand[mv.NumIndex] != mv.Num {
		return game.Outcome{}, fmt.Errorf("%w: number %d not in hand", game.ErrInvalidAction, mv.Num)
	}

	value, err := e.computeCell(mv.X, mv.Y, mv.Num, mv.Operation)
	if err != nil {
		return game.Outcome{}, err
	}
	e.Board[mv.Y][mv.X] = &value

	// Replace the used number so a hand never runs dry.
	hand[mv.NumIndex] = e.drawNumber()

	e.sweepWinners()
	return game.Outcome{EndsTurn: true}, nil
}

// computeCell applies num to the cell's current value. Empty cells count
// as 0. When negative results are disabled and a subtraction would go
// below zero, the sign flips (n-v) instead.
func (e *Engine) computeCell(x, y, num int, operation string) (int, error) {
	prev := 0
	if cell := e.Board[y][x]; cell != nil {
		prev = *cell
	}
	switch operation {
	case "add":
		return prev + num, nil
	case "sub":
		if e.Rules.NegativeDisabled && num > prev {
			return num - prev, nil
		}
		return prev - num, nil
	}
	return 0, fmt.Errorf("%w: operation %q", game.ErrUnknownAction, operation)
}

// sweepWinners evaluates every participant's mission against the board,
// whoever just moved. Simultaneous winners are expected.
func (e *Engine) sweepWinners() {
	for _, id := range e.Participants {
		assigned, ok := e.Missions[id]
		if !ok {
			continue
		}
		cells := IsVictory(e.Board, assigned.Mission)
		if !anyTrue(cells) {
			continue
		}
		e.WinCells[id] = cells
		if !contains(e.Winner, id) {
			e.Winner = append(e.Winner, id)
		}
	}
}

func (e *Engine) IsTerminal() bool {
	return len(e.Winner) > 0
}

func (e *Engine) Winners() []string {
	return e.Winner
}

func (e *Engine) TurnAdvanced(next string) {}

func (e *Engine) MarshalJSON() ([]byte, error) {
	type alias Engine
	return json.Marshal((*alias)(e))
}

func (e *Engine) UnmarshalJSON(data []byte) error {
	type alias Engine
	if err := json.Unmarshal(data, (*alias)(e)); err != nil {
		return err
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return nil
}

// drawNumber draws 1-4 with the same weights the initial hand uses:
// 40% for 1, 20% each for 2-4.
func (e *Engine) drawNumber() int {
	r := e.rng.Float64()
	switch {
	case r < 0.4:
		return 1
	case r < 0.6:
		return 2
	case r < 0.8:
		return 3
	default:
		return 4
	}
}

func anyTrue(matrix [][]bool) bool {
	for _, row := range matrix {
		for _, v := range row {
			if v {
				return true
			}
		}
	}
	return false
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
