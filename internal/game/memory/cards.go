package memory

import "sort"

// Shape is a boolean matrix of the relative cells a card occupies.
type Shape [][]int

// MemoryCard reserves cells for its owner.
type MemoryCard struct {
	DefinitionID string `json:"definitionId"`
	Shape        Shape  `json:"shape"`
	Cost         int    `json:"cost"`
}

// FunctionCard executes on cells its owner has reserved, earning points.
type FunctionCard struct {
	DefinitionID string `json:"definitionId"`
	Shape        Shape  `json:"shape"`
	Cost         int    `json:"cost"`
}

// EventCard carries a typed effect instead of a shape.
type EventCard struct {
	DefinitionID string `json:"definitionId"`
	Description  string `json:"description"`
	Effect       Effect `json:"effect"`
}

// EffectType is the closed set of event-card effects.
type EffectType string

const (
	EffectDestroyMemory EffectType = "destroy-memory" // reserved and used -> free
	EffectFreeMemory    EffectType = "free-memory"    // used -> free
	EffectResetMemory   EffectType = "reset-memory-hand"
	EffectResetFunction EffectType = "reset-function-hand"
	EffectDrawFunctions EffectType = "draw-more-function-cards"
	EffectFreeze        EffectType = "freeze-player"
	EffectDoublePoints  EffectType = "double-points"
	EffectUseAfterFree  EffectType = "use-after-free"
)

// Area names a board region for destroy/free effects. The any-* areas
// anchor at a clicked cell; the rest derive purely from board size.
type Area string

const (
	AreaAnyOne     Area = "any-one"
	AreaAny2x2     Area = "any-2by2"
	AreaAny3x3     Area = "any-3by3"
	AreaCenter2x2  Area = "center-2by2"
	AreaCenter3x3  Area = "center-3by3"
	AreaPeripheral Area = "peripheral"
)

// Target names who an effect applies to.
type Target string

const (
	TargetSelf        Target = "self"
	TargetOneOpponent Target = "any-one-opponent"
	TargetOpponents   Target = "all-opponents"
	TargetAll         Target = "all"
)

// Effect is the tagged effect payload. Only the fields relevant to Type
// are set.
type Effect struct {
	Type   EffectType `json:"type"`
	Area   Area       `json:"area,omitempty"`
	Target Target     `json:"target,omitempty"`
	Count  int        `json:"count,omitempty"`
	Turns  int        `json:"turns,omitempty"`
}

// Fixed card catalogs, loaded once at process start and never mutated.

var memoryCards = map[string]MemoryCard{
	"mc1": {DefinitionID: "mc1", Shape: Shape{{1, 1, 0}, {0, 1, 0}}, Cost: 3},
	"mc2": {DefinitionID: "mc2", Shape: Shape{{1, 1, 1}, {0, 1, 0}}, Cost: 4},
	"mc3": {DefinitionID: "mc3", Shape: Shape{{0, 1}, {1, 1}, {1, 0}}, Cost: 4},
	"mc4": {DefinitionID: "mc4", Shape: Shape{{1, 1}, {1, 1}}, Cost: 4},
	"mc5": {DefinitionID: "mc5", Shape: Shape{{1, 1, 1}}, Cost: 3},
	"mc6": {DefinitionID: "mc6", Shape: Shape{{1}, {1}, {1}}, Cost: 3},
	"mc7": {DefinitionID: "mc7", Shape: Shape{{1, 0}, {1, 1}}, Cost: 3},
}

var functionCards = map[string]FunctionCard{
	"fc1": {DefinitionID: "fc1", Shape: Shape{{1, 1, 1}, {1, 1, 0}}, Cost: 4},
	"fc2": {DefinitionID: "fc2", Shape: Shape{{1, 1}, {1, 1}, {1, 0}}, Cost: 5},
}

var eventCards = map[string]EventCard{
	"ec1": {
		DefinitionID: "ec1",
		Description:  "destroy one chosen cell",
		Effect:       Effect{Type: EffectDestroyMemory, Area: AreaAnyOne},
	},
	"ec2": {
		DefinitionID: "ec2",
		Description:  "free one chosen used cell",
		Effect:       Effect{Type: EffectFreeMemory, Area: AreaAnyOne},
	},
	"ec3": {
		DefinitionID: "ec3",
		Description:  "destroy a 2x2 block anchored at a chosen cell",
		Effect:       Effect{Type: EffectDestroyMemory, Area: AreaAny2x2},
	},
	"ec4": {
		DefinitionID: "ec4",
		Description:  "free the used cells of the center 3x3 block",
		Effect:       Effect{Type: EffectFreeMemory, Area: AreaCenter3x3},
	},
	"ec5": {
		DefinitionID: "ec5",
		Description:  "destroy the board's outer ring",
		Effect:       Effect{Type: EffectDestroyMemory, Area: AreaPeripheral},
	},
	"ec6": {
		DefinitionID: "ec6",
		Description:  "one opponent discards and redraws memory cards",
		Effect:       Effect{Type: EffectResetMemory, Target: TargetOneOpponent},
	},
	"ec7": {
		DefinitionID: "ec7",
		Description:  "discard and redraw your function cards",
		Effect:       Effect{Type: EffectResetFunction, Target: TargetSelf},
	},
	"ec8": {
		DefinitionID: "ec8",
		Description:  "draw 2 extra function cards",
		Effect:       Effect{Type: EffectDrawFunctions, Count: 2},
	},
	"ec9": {
		DefinitionID: "ec9",
		Description:  "freeze one opponent for 2 turns",
		Effect:       Effect{Type: EffectFreeze, Target: TargetOneOpponent, Turns: 2},
	},
	"ec10": {
		DefinitionID: "ec10",
		Description:  "double your function points for 3 turns",
		Effect:       Effect{Type: EffectDoublePoints, Target: TargetSelf, Turns: 3},
	},
	"ec11": {
		DefinitionID: "ec11",
		Description:  "execute functions on up to 2 free cells",
		Effect:       Effect{Type: EffectUseAfterFree, Count: 2},
	},
}

// Map iteration order is not stable; draws index into sorted key lists
// so a seeded source is reproducible in tests.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	memoryCardIDs   = sortedKeys(memoryCards)
	functionCardIDs = sortedKeys(functionCards)
	eventCardIDs    = sortedKeys(eventCards)
)
