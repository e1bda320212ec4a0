package memory

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"puzzlerooms/internal/game"
)

const (
	defaultBoardSize = 6
	initialClock     = 10
	eventCardCost    = 3
)

var colorPalette = []string{
	"#00cc00", "#cccc00", "#00cccc", "#cc0000", "#0000cc",
	"#cc00cc", "#cc5600", "#80409c", "#512d10", "#000000",
}

// Game registers the memory placement game.
type Game struct{}

func (Game) Info() game.Info {
	return game.Info{Name: "memory", MinPlayers: 2, MaxPlayers: 8}
}

func (Game) NewEngine() game.Engine {
	return NewEngine()
}

// Hand is one player's cards, keyed by card instance id.
type Hand struct {
	Memory map[string]MemoryCard   `json:"memory"`
	Func   map[string]FunctionCard `json:"func"`
	Event  map[string]EventCard    `json:"event"`
}

// ActiveEffects tracks a player's running event effects. Frozen and
// DoublePoints count down per turn advance; UseAfterFree is consumed on
// use instead.
type ActiveEffects struct {
	Frozen       int `json:"frozen,omitempty"`
	DoublePoints int `json:"doublePoints,omitempty"`
	UseAfterFree int `json:"useAfterFree,omitempty"`
}

// Engine holds the placement game's state.
type Engine struct {
	Rules        game.Rules                `json:"rules"`
	Board        [][]Cell                  `json:"board"`
	Hands        map[string]*Hand          `json:"hands"`
	Clocks       map[string]int            `json:"clocks"`
	Points       map[string]int            `json:"points"`
	Colors       map[string]string         `json:"colors"`
	Effects      map[string]*ActiveEffects `json:"activeEffects"`
	Participants []string                  `json:"participants"`

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
	e.Hands = make(map[string]*Hand)
	e.Clocks = make(map[string]int)
	e.Points = make(map[string]int)
	e.Colors = make(map[string]string)
	e.Effects = make(map[string]*ActiveEffects)
	e.Participants = nil
}

func (e *Engine) StartGame(participants []string) {
	size := e.Rules.BoardSize
	e.Board = make([][]Cell, size)
	for y := range e.Board {
		e.Board[y] = make([]Cell, size)
		for x := range e.Board[y] {
			e.Board[y][x] = Cell{Status: CellFree}
		}
	}
	e.Hands = make(map[string]*Hand, len(participants))
	e.Clocks = make(map[string]int, len(participants))
	e.Points = make(map[string]int, len(participants))
	e.Colors = make(map[string]string, len(participants))
	e.Effects = make(map[string]*ActiveEffects, len(participants))
	e.Participants = append([]string(nil), participants...)

	for i, id := range participants {
		e.Hands[id] = e.drawInitialHand()
		e.Clocks[id] = initialClock
		e.Points[id] = 0
		e.Colors[id] = colorPalette[i%len(colorPalette)]
		e.Effects[id] = &ActiveEffects{}
	}
}

func (e *Engine) drawInitialHand() *Hand {
	hand := &Hand{
		Memory: make(map[string]MemoryCard),
		Func:   make(map[string]FunctionCard),
		Event:  make(map[string]EventCard),
	}
	for i := 0; i < 3; i++ {
		id, card := e.drawMemoryCard()
		hand.Memory[id] = card
	}
	id, card := e.drawFunctionCard()
	hand.Func[id] = card
	return hand
}

func (e *Engine) drawMemoryCard() (string, MemoryCard) {
	def := memoryCardIDs[e.rng.Intn(len(memoryCardIDs))]
	return uuid.NewString(), memoryCards[def]
}

func (e *Engine) drawFunctionCard() (string, FunctionCard) {
	def := functionCardIDs[e.rng.Intn(len(functionCardIDs))]
	return uuid.NewString(), functionCards[def]
}

func (e *Engine) drawEventCard() (string, EventCard) {
	def := eventCardIDs[e.rng.Intn(len(eventCardIDs))]
	return uuid.NewString(), eventCards[def]
}

type placePayload struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	CardID string `json:"cardId"`
}

type eventPayload struct {
	CardID         string `json:"cardId"`
	X              *int   `json:"x,omitempty"`
	Y              *int   `json:"y,omitempty"`
	TargetPlayerID string `json:"targetPlayerId,omitempty"`
}

func (e *Engine) ApplyAction(current, playerID string, action game.Action) (game.Outcome, error) {
	if e.Board == nil {
		return game.Outcome{}, fmt.Errorf("game state is not initialized")
	}
	if eff := e.Effects[playerID]; eff != nil && eff.Frozen > 0 {
		return game.Outcome{}, fmt.Errorf("%w: %s is frozen", game.ErrInvalidAction, playerID)
	}

	switch action.Type {
	case "reserveMemory":
		var p placePayload
		if err := json.Unmarshal(action.Payload, &p); err != nil {
			return game.Outcome{}, fmt.Errorf("%w: %v", game.ErrUnknownAction, err)
		}
		return e.reserveMemory(current, playerID, p)

	case "execFunction":
		var p placePayload
		if err := json.Unmarshal(action.Payload, &p); err != nil {
			return game.Outcome{}, fmt.Errorf("%w: %v", game.ErrUnknownAction, err)
		}
		return e.execFunction(current, playerID, p)

	case "execEvent":
		var p eventPayload
		if err := json.Unmarshal(action.Payload, &p); err != nil {
			return game.Outcome{}, fmt.Errorf("%w: %v", game.ErrUnknownAction, err)
		}
		return e.execEvent(playerID, p)

	case "buyEventCard":
		return e.buyEventCard(playerID)
	}
	return game.Outcome{}, fmt.Errorf("%w: %s", game.ErrUnknownAction, action.Type)
}

func (e *Engine) reserveMemory(current, playerID string, p placePayload) (game.Outcome, error) {
	if playerID != current {
		return game.Outcome{}, fmt.Errorf("%w: not %s's turn", game.ErrInvalidAction, playerID)
	}
	hand := e.Hands[playerID]
	if hand == nil {
		return game.Outcome{}, fmt.Errorf("no hand for player %s", playerID)
	}
	card, ok := hand.Memory[p.CardID]
	if !ok {
		return game.Outcome{}, fmt.Errorf("%w: memory card %s not in hand", game.ErrInvalidAction, p.CardID)
	}
	if !CanPlace(card.Shape, p.X, p.Y, e.Board, Requirement{Status: CellFree}, e.Clocks[playerID], card.Cost) {
		return game.Outcome{}, fmt.Errorf("%w: cannot reserve at (%d,%d)", game.ErrInvalidAction, p.X, p.Y)
	}

	Mutate(e.Board, card.Shape, p.X, p.Y, Cell{Status: CellReserved, OccupiedBy: playerID})
	e.Clocks[playerID] -= card.Cost

	delete(hand.Memory, p.CardID)
	id, next := e.drawMemoryCard()
	hand.Memory[id] = next

	return game.Outcome{EndsTurn: true}, nil
}

func (e *Engine) execFunction(current, playerID string, p placePayload) (game.Outcome, error) {
	if playerID != current {
		return game.Outcome{}, fmt.Errorf("%w: not %s's turn", game.ErrInvalidAction, playerID)
	}
	hand := e.Hands[playerID]
	if hand == nil {
		return game.Outcome{}, fmt.Errorf("no hand for player %s", playerID)
	}
	card, ok := hand.Func[p.CardID]
	if !ok {
		return game.Outcome{}, fmt.Errorf("%w: function card %s not in hand", game.ErrInvalidAction, p.CardID)
	}

	eff := e.Effects[playerID]
	allowance := 0
	if eff != nil {
		allowance = eff.UseAfterFree
	}
	req := Requirement{Status: CellReserved, By: playerID, FreeAllowance: allowance}
	if !CanPlace(card.Shape, p.X, p.Y, e.Board, req, e.Clocks[playerID], card.Cost) {
		return game.Outcome{}, fmt.Errorf("%w: cannot execute at (%d,%d)", game.ErrInvalidAction, p.X, p.Y)
	}

	Mutate(e.Board, card.Shape, p.X, p.Y, Cell{Status: CellUsed, OccupiedBy: playerID})
	e.Clocks[playerID] -= card.Cost

	// The allowance is single-use: cleared by the next execution.
	if eff != nil {
		eff.UseAfterFree = 0
	}

	points := card.Cost
	if eff != nil && eff.DoublePoints > 0 {
		points *= 2
	}
	e.Points[playerID] += points

	delete(hand.Func, p.CardID)
	id, next := e.drawFunctionCard()
	hand.Func[id] = next

	return game.Outcome{EndsTurn: true}, nil
}

func (e *Engine) buyEventCard(playerID string) (game.Outcome, error) {
	hand := e.Hands[playerID]
	if hand == nil {
		return game.Outcome{}, fmt.Errorf("no hand for player %s", playerID)
	}
	if e.Clocks[playerID] < eventCardCost {
		return game.Outcome{}, fmt.Errorf("%w: not enough clock to buy an event card", game.ErrInvalidAction)
	}
	e.Clocks[playerID] -= eventCardCost
	id, card := e.drawEventCard()
	hand.Event[id] = card
	return game.Outcome{}, nil
}

func (e *Engine) execEvent(playerID string, p eventPayload) (game.Outcome, error) {
	hand := e.Hands[playerID]
	if hand == nil {
		return game.Outcome{}, fmt.Errorf("no hand for player %s", playerID)
	}
	card, ok := hand.Event[p.CardID]
	if !ok {
		return game.Outcome{}, fmt.Errorf("%w: event card %s not in hand", game.ErrInvalidAction, p.CardID)
	}

	if err := e.applyEffect(playerID, card.Effect, p); err != nil {
		return game.Outcome{}, err
	}

	delete(hand.Event, p.CardID)
	return game.Outcome{}, nil
}

func (e *Engine) applyEffect(playerID string, effect Effect, p eventPayload) error {
	switch effect.Type {
	case EffectDestroyMemory, EffectFreeMemory:
		x, y, hasAnchor := 0, 0, false
		if p.X != nil && p.Y != nil {
			x, y, hasAnchor = *p.X, *p.Y, true
		}
		coords := areaCells(effect.Area, len(e.Board), x, y, hasAnchor)
		if coords == nil {
			return fmt.Errorf("%w: area %s needs an anchor", game.ErrInvalidAction, effect.Area)
		}
		for _, c := range coords {
			cx, cy := c[0], c[1]
			if cx < 0 || cy < 0 || cx >= len(e.Board) || cy >= len(e.Board) {
				continue
			}
			cell := e.Board[cy][cx]
			switch effect.Type {
			case EffectDestroyMemory:
				if cell.Status == CellReserved || cell.Status == CellUsed {
					e.Board[cy][cx] = Cell{Status: CellFree}
				}
			case EffectFreeMemory:
				if cell.Status == CellUsed {
					e.Board[cy][cx] = Cell{Status: CellFree}
				}
			}
		}

	case EffectResetMemory, EffectResetFunction:
		targets, err := e.targetPlayers(playerID, effect.Target, p.TargetPlayerID)
		if err != nil {
			return err
		}
		for _, id := range targets {
			hand := e.Hands[id]
			if hand == nil {
				continue
			}
			fresh := e.drawInitialHand()
			if effect.Type == EffectResetMemory {
				hand.Memory = fresh.Memory
			} else {
				hand.Func = fresh.Func
			}
		}

	case EffectDrawFunctions:
		hand := e.Hands[playerID]
		for i := 0; i < effect.Count; i++ {
			id, card := e.drawFunctionCard()
			hand.Func[id] = card
		}

	case EffectFreeze:
		targets, err := e.targetPlayers(playerID, effect.Target, p.TargetPlayerID)
		if err != nil {
			return err
		}
		for _, id := range targets {
			e.effectsFor(id).Frozen = effect.Turns
		}

	case EffectDoublePoints:
		if effect.Target == TargetSelf {
			e.effectsFor(playerID).DoublePoints = effect.Turns
		} else {
			for _, id := range e.Participants {
				e.effectsFor(id).DoublePoints = effect.Turns
			}
		}

	case EffectUseAfterFree:
		e.effectsFor(playerID).UseAfterFree = effect.Count

	default:
		return fmt.Errorf("%w: effect %s", game.ErrUnknownAction, effect.Type)
	}
	return nil
}

func (e *Engine) targetPlayers(playerID string, target Target, targetPlayerID string) ([]string, error) {
	switch target {
	case TargetSelf:
		return []string{playerID}, nil

	case TargetOneOpponent:
		if targetPlayerID == "" || targetPlayerID == playerID || !e.isParticipant(targetPlayerID) {
			return nil, fmt.Errorf("%w: bad target player %q", game.ErrInvalidAction, targetPlayerID)
		}
		return []string{targetPlayerID}, nil

	case TargetOpponents:
		var out []string
		for _, id := range e.Participants {
			if id != playerID {
				out = append(out, id)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: target %q", game.ErrInvalidAction, target)
}

func (e *Engine) isParticipant(id string) bool {
	for _, p := range e.Participants {
		if p == id {
			return true
		}
	}
	return false
}

func (e *Engine) effectsFor(id string) *ActiveEffects {
	eff := e.Effects[id]
	if eff == nil {
		eff = &ActiveEffects{}
		e.Effects[id] = eff
	}
	return eff
}

func (e *Engine) IsTerminal() bool { return false }

func (e *Engine) Winners() []string { return nil }

// TurnAdvanced credits the newly seated player one clock and counts down
// timed effects for everyone. The use-after-free allowance is consumed
// on use, not by turns.
func (e *Engine) TurnAdvanced(next string) {
	if _, ok := e.Clocks[next]; ok {
		e.Clocks[next]++
	}
	for _, eff := range e.Effects {
		if eff.Frozen > 0 {
			eff.Frozen--
		}
		if eff.DoublePoints > 0 {
			eff.DoublePoints--
		}
	}
}

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
