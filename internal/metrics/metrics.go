package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsTotal counts accepted room websocket connections.
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puzzlerooms_connections_total",
		Help: "Accepted room connections.",
	})

	// ActionsTotal counts inbound actions by message type.
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "puzzlerooms_actions_total",
		Help: "Inbound player actions by type.",
	}, []string{"type"})

	// MatchesStarted counts rounds that reached the playing phase.
	MatchesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puzzlerooms_matches_started_total",
		Help: "Rounds started.",
	})

	// PairsMatched counts matchmaking pairs that got a room provisioned.
	PairsMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puzzlerooms_pairs_matched_total",
		Help: "Matchmaking pairs provisioned into a room.",
	})
)
