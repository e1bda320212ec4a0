package mission

import "fmt"

// Kind is the numeric pattern a mission asks for.
type Kind string

const (
	KindSum        Kind = "sum"
	KindMultiple   Kind = "multiple"
	KindArithmetic Kind = "arithmetic"
	KindGeometric  Kind = "geometric"
	KindPrime      Kind = "prime"
)

// Scope is where on the board the pattern must appear.
type Scope string

const (
	ScopeRow        Scope = "row"
	ScopeColumn     Scope = "column"
	ScopeDiagonal   Scope = "diagonal"
	ScopeAnyLine    Scope = "any-line"
	ScopeWholeBoard Scope = "whole-board"
)

// Mission is one per-participant objective.
type Mission struct {
	Kind        Kind   `json:"kind"`
	Scope       Scope  `json:"scope"`
	Target      int    `json:"target"`
	Description string `json:"description"`
}

// Assigned pairs a catalog id with its mission for broadcast.
type Assigned struct {
	ID      string  `json:"id"`
	Mission Mission `json:"mission"`
}

// Catalog is the full mission table, keyed by definition id. Built once
// at process start and read-only afterwards.
var Catalog = buildCatalog()

// CatalogIDs lists catalog keys in insertion order so random assignment
// is reproducible under a seeded source.
var CatalogIDs = buildCatalogIDs()

func buildCatalog() map[string]Mission {
	c := make(map[string]Mission)
	id := 0
	add := func(m Mission) {
		c[fmt.Sprintf("%d", id)] = m
		id++
	}

	lineScopes := []Scope{ScopeRow, ScopeColumn, ScopeDiagonal}
	for target := 11; target <= 20; target++ {
		for _, scope := range lineScopes {
			add(Mission{
				Kind:        KindSum,
				Scope:       scope,
				Target:      target,
				Description: fmt.Sprintf("some %s sums to %d", scope, target),
			})
		}
	}

	for _, target := range []int{3, 4, 5} {
		add(Mission{KindMultiple, ScopeRow, target, fmt.Sprintf("every number in some row is a multiple of %d", target)})
		add(Mission{KindMultiple, ScopeColumn, target, fmt.Sprintf("every number in some column is a multiple of %d", target)})
		add(Mission{KindMultiple, ScopeWholeBoard, target, fmt.Sprintf("the board holds at least 4 multiples of %d", target)})
	}

	for _, target := range []int{2, 3, 4} {
		add(Mission{KindArithmetic, ScopeRow, target, fmt.Sprintf("some row is an arithmetic progression with difference %d", target)})
		add(Mission{KindArithmetic, ScopeColumn, target, fmt.Sprintf("some column is an arithmetic progression with difference %d", target)})
	}

	for _, target := range []int{2, 3} {
		add(Mission{KindGeometric, ScopeAnyLine, target, fmt.Sprintf("some row, column or diagonal is a geometric progression with ratio %d", target)})
	}

	add(Mission{KindPrime, ScopeRow, 0, "every number in some row is prime"})
	add(Mission{KindPrime, ScopeColumn, 0, "every number in some column is prime"})
	add(Mission{KindPrime, ScopeWholeBoard, 0, "the board holds at least 4 primes"})

	return c
}

func buildCatalogIDs() []string {
	ids := make([]string, 0, len(Catalog))
	for i := 0; i < len(Catalog); i++ {
		ids = append(ids, fmt.Sprintf("%d", i))
	}
	return ids
}
