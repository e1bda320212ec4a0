package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"puzzlerooms/internal/game"
	"puzzlerooms/internal/metrics"
)

// Phase is the match lifecycle. A finished round returns everyone to
// preparing for a rematch.
type Phase string

const (
	PhasePreparing Phase = "preparing"
	PhasePlaying   Phase = "playing"
	PhasePaused    Phase = "paused"
)

// Status is a player's per-match state.
type Status string

const (
	StatusPreparing       Status = "preparing"
	StatusReady           Status = "ready"
	StatusPlaying         Status = "playing"
	StatusFinished        Status = "finished"
	StatusSpectating      Status = "spectating"
	StatusSpectatingReady Status = "spectatingReady"
	StatusError           Status = "error"
)

// Role distinguishes seated participants from spectators.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleSpectator   Role = "spectator"
)

// Player is one member of the room. Identity is externally issued and
// stable for the match's lifetime.
type Player struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Conn is one live connection attached to a room.
type Conn struct {
	PlayerID string
	send     chan []byte
}

func NewConn(playerID string) *Conn {
	return &Conn{PlayerID: playerID, send: make(chan []byte, 64)}
}

// Outbound returns the channel the transport writer drains.
func (c *Conn) Outbound() <-chan []byte { return c.send }

func (c *Conn) push(msg []byte) {
	select {
	case c.send <- msg:
	default:
		// drop message if buffer full; slow receivers never block the actor
	}
}

// Store is the durable persistence boundary the actor writes through
// after every mutation.
type Store interface {
	SaveState(roomID, phase string, state []byte) error
	DeleteRoom(roomID string) error
}

// Room is the session actor for one match. Every handler locks the room
// mutex, so no two actions against the same match run concurrently;
// actions against different rooms run fully in parallel.
type Room struct {
	mu sync.Mutex

	ID       string
	GameType string
	Secret   string // non-empty when access requires a matchmaking secret

	phase    Phase
	players  []Player
	status   map[string]Status
	names    map[string]string
	rules    game.Rules
	turn     int
	round    int
	deadline time.Time
	winners  []string

	engine game.Engine
	conns  []*Conn
	timer  *time.Timer

	store Store
	log   *slog.Logger
}

func New(id, gameType string, engine game.Engine, rules game.Rules, store Store, log *slog.Logger) *Room {
	engine.Initialize(rules)
	return &Room{
		ID:       id,
		GameType: gameType,
		phase:    PhasePreparing,
		players:  nil,
		status:   make(map[string]Status),
		names:    make(map[string]string),
		rules:    rules,
		engine:   engine,
		store:    store,
		log:      log.With("room", id, "game", gameType),
	}
}

// snapshot is both the broadcast payload and the persisted state.
type snapshot struct {
	Phase        Phase             `json:"phase"`
	Players      []Player          `json:"players"`
	PlayerStatus map[string]Status `json:"playerStatus"`
	Names        map[string]string `json:"names"`
	Rules        game.Rules        `json:"rules"`
	Round        int               `json:"round"`
	Turn         int               `json:"turn"`
	Winners      []string          `json:"winners"`
	Deadline     int64             `json:"deadline"` // unix millis
	Game         json.RawMessage   `json:"game"`
}

// Connect attaches a connection and adds or restores its player. The
// returned error means the connection must be refused.
func (r *Room) Connect(playerID, displayName string, c *Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.findPlayer(playerID); existing != nil {
		if r.liveConns(playerID) > 0 && r.status[playerID] != StatusError {
			return fmt.Errorf("player %s is already connected", playerID)
		}
		switch r.phase {
		case PhasePreparing:
			r.status[playerID] = StatusPreparing
		case PhasePlaying:
			if existing.Role == RoleParticipant {
				// A participant cannot vanish mid-round without the match
				// entering paused first.
				return fmt.Errorf("participant %s reconnected while the round is live", playerID)
			}
			r.status[playerID] = StatusSpectating
		case PhasePaused:
			r.status[playerID] = StatusPlaying
			if r.allParticipantsPlaying() {
				r.log.Info("all players reconnected, resuming game")
				r.phase = PhasePlaying
			}
		}
	} else {
		switch r.phase {
		case PhasePreparing:
			r.players = append(r.players, Player{ID: playerID, Role: RoleParticipant})
			r.status[playerID] = StatusPreparing
		default:
			r.players = append(r.players, Player{ID: playerID, Role: RoleSpectator})
			r.status[playerID] = StatusSpectating
		}
		r.names[playerID] = displayName
	}

	r.conns = append(r.conns, c)
	metrics.ConnectionsTotal.Inc()
	r.persistLocked()
	r.broadcastLocked()
	return nil
}

// Disconnect detaches a connection. When the player's last connection
// drops, lobby members are removed outright; mid-round participants are
// marked errored and the match pauses; spectators are removed.
func (r *Room) Disconnect(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeConn(c)
	close(c.send)
	p := r.findPlayer(c.PlayerID)
	if p == nil || r.liveConns(c.PlayerID) > 0 {
		return
	}

	if r.phase == PhasePreparing || p.Role == RoleSpectator {
		r.removePlayerLocked(c.PlayerID)
	} else {
		r.status[c.PlayerID] = StatusError
		r.phase = PhasePaused
	}

	if len(r.players) > 0 {
		r.persistLocked()
		r.broadcastLocked()
	}
}

// Empty reports whether the room has no players left.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) == 0
}

// Phase returns the current match phase.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// HandleAction parses and applies one inbound message from a connection.
// Malformed messages get an error reply on the offending connection only;
// validation failures are logged and silently ignored.
func (r *Room) HandleAction(c *Conn, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var act game.Action
	if err := json.Unmarshal(data, &act); err != nil || act.Type == "" {
		r.replyInvalid(c)
		return
	}
	metrics.ActionsTotal.WithLabelValues(act.Type).Inc()

	switch act.Type {
	case "setReady":
		r.setReady(c.PlayerID)
	case "cancelReady":
		r.cancelReady(c.PlayerID)
	case "spectatorReady":
		r.spectatorReady(c.PlayerID)
	case "cancelSpectatorReady":
		r.cancelSpectatorReady(c.PlayerID)
	case "changeRule":
		r.changeRule(c, act.Payload)
	case "pass":
		r.clientPass(c.PlayerID)
	case "backToLobby":
		r.backToLobby(c.PlayerID)
	case "removePlayer":
		r.removePlayerAction(c.PlayerID)
	default:
		r.gameAction(c, act)
	}
}

func (r *Room) gameAction(c *Conn, act game.Action) {
	if r.phase != PhasePlaying {
		r.log.Warn("game action outside playing phase", "type", act.Type, "player", c.PlayerID)
		return
	}
	if r.turn >= len(r.players) {
		r.log.Warn("game action with no seated player", "type", act.Type, "player", c.PlayerID)
		return
	}
	current := r.players[r.turn].ID

	out, err := r.engine.ApplyAction(current, c.PlayerID, act)
	switch {
	case errors.Is(err, game.ErrUnknownAction):
		r.log.Warn("unknown action", "type", act.Type, "player", c.PlayerID, "err", err)
		r.replyInvalid(c)
		return
	case errors.Is(err, game.ErrInvalidAction):
		r.log.Warn("invalid move attempted", "type", act.Type, "player", c.PlayerID, "err", err)
		return
	case err != nil:
		// Invariant violation: abort this action only, not the actor.
		r.log.Error("action aborted", "type", act.Type, "player", c.PlayerID, "err", err)
		return
	}

	if out.EndsTurn {
		r.advanceTurnLocked()
	}
	if r.engine.IsTerminal() {
		r.finishRoundLocked()
	} else if out.EndsTurn && r.phase == PhasePlaying {
		r.armTimerLocked()
	}
	r.persistLocked()
	r.broadcastLocked()
}

// canDeclareReady allows a ready declaration from the lobby and straight
// out of a finished round, so a rematch needs no backToLobby first.
func (r *Room) canDeclareReady(playerID string) bool {
	if r.phase != PhasePreparing {
		return false
	}
	switch r.status[playerID] {
	case StatusPreparing, StatusFinished:
		return true
	}
	return false
}

func (r *Room) setReady(playerID string) {
	if !r.canDeclareReady(playerID) {
		return
	}
	r.status[playerID] = StatusReady
	if r.readyToStart() {
		r.startGameLocked()
	}
	r.persistLocked()
	r.broadcastLocked()
}

func (r *Room) cancelReady(playerID string) {
	if r.status[playerID] != StatusReady {
		return
	}
	r.status[playerID] = StatusPreparing
	r.persistLocked()
	r.broadcastLocked()
}

func (r *Room) spectatorReady(playerID string) {
	if !r.canDeclareReady(playerID) {
		return
	}
	r.status[playerID] = StatusSpectatingReady
	if r.readyToStart() {
		r.startGameLocked()
	}
	r.persistLocked()
	r.broadcastLocked()
}

func (r *Room) cancelSpectatorReady(playerID string) {
	if r.status[playerID] != StatusSpectatingReady {
		return
	}
	r.status[playerID] = StatusPreparing
	r.persistLocked()
	r.broadcastLocked()
}

// readyToStart requires at least two ready participants and nobody still
// undecided.
func (r *Room) readyToStart() bool {
	ready := 0
	for _, p := range r.players {
		switch r.status[p.ID] {
		case StatusReady:
			ready++
		case StatusSpectatingReady:
		default:
			return false
		}
	}
	return ready >= 2
}

func (r *Room) startGameLocked() {
	participants := make([]string, 0, len(r.players))
	for i := range r.players {
		p := &r.players[i]
		switch r.status[p.ID] {
		case StatusReady:
			r.status[p.ID] = StatusPlaying
			p.Role = RoleParticipant
			participants = append(participants, p.ID)
		case StatusSpectatingReady:
			r.status[p.ID] = StatusSpectating
			p.Role = RoleSpectator
		}
	}

	r.engine.StartGame(participants)
	r.round = 0
	r.winners = nil
	r.turn = r.firstPlayingIndex()
	r.phase = PhasePlaying
	r.armTimerLocked()
	metrics.MatchesStarted.Inc()
	r.log.Info("game started", "participants", len(participants))
}

func (r *Room) firstPlayingIndex() int {
	for i, p := range r.players {
		if r.status[p.ID] == StatusPlaying {
			return i
		}
	}
	return 0
}

// advanceTurnLocked moves the turn to the next player whose status is
// playing, in seat order. Wrapping to the first active player increments
// the round. With nobody active the match pauses.
func (r *Room) advanceTurnLocked() {
	var active []int
	for i, p := range r.players {
		if r.status[p.ID] == StatusPlaying {
			active = append(active, i)
		}
	}
	if len(active) == 0 {
		r.phase = PhasePaused
		return
	}

	next := active[0]
	wrapped := true
	for _, i := range active {
		if i > r.turn {
			next = i
			wrapped = false
			break
		}
	}
	r.turn = next
	if wrapped {
		r.round++
	}
	r.engine.TurnAdvanced(r.players[r.turn].ID)
}

func (r *Room) finishRoundLocked() {
	r.winners = r.engine.Winners()
	r.phase = PhasePreparing
	for id := range r.status {
		r.status[id] = StatusFinished
	}
	r.stopTimerLocked()
	r.log.Info("round finished", "winners", r.winners)
}

// armTimerLocked resets the turn deadline and (re)schedules the single
// pending timeout. At most one timer is ever live per room.
func (r *Room) armTimerLocked() {
	r.stopTimerLocked()
	limit := time.Duration(r.rules.TimeLimit) * time.Second
	r.deadline = time.Now().Add(limit)
	deadline := r.deadline
	r.timer = time.AfterFunc(limit, func() { r.timerFired(deadline) })
}

func (r *Room) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// timerFired is the forced pass. Cancellation is best-effort, so it
// re-checks phase and deadline: a stale fire against an already-advanced
// turn is a no-op.
func (r *Room) timerFired(deadline time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhasePlaying || !r.deadline.Equal(deadline) {
		return
	}
	r.advanceTurnLocked()
	if r.phase == PhasePlaying {
		r.armTimerLocked()
	}
	r.persistLocked()
	r.broadcastLocked()
}

// clientPass honors a pass only from the seated player. A player whose
// hand is empty or unplayable still acts through pass; the scheduler
// never auto-skips on its own.
func (r *Room) clientPass(playerID string) {
	if r.phase != PhasePlaying || r.turn >= len(r.players) || r.players[r.turn].ID != playerID {
		r.log.Warn("pass rejected", "player", playerID)
		return
	}
	r.advanceTurnLocked()
	if r.phase == PhasePlaying {
		r.armTimerLocked()
	}
	r.persistLocked()
	r.broadcastLocked()
}

func (r *Room) backToLobby(playerID string) {
	if _, ok := r.status[playerID]; !ok {
		return
	}
	r.status[playerID] = StatusPreparing
	r.persistLocked()
	r.broadcastLocked()
}

func (r *Room) removePlayerAction(playerID string) {
	r.removePlayerLocked(playerID)
	if len(r.players) > 0 {
		r.persistLocked()
		r.broadcastLocked()
	}
}

func (r *Room) removePlayerLocked(playerID string) {
	kept := r.players[:0]
	for _, p := range r.players {
		if p.ID != playerID {
			kept = append(kept, p)
		}
	}
	r.players = kept
	delete(r.status, playerID)
	delete(r.names, playerID)

	if len(r.players) == 0 {
		// An emptied room cannot stay mid-round; any connection still
		// attached sees a lobby.
		r.phase = PhasePreparing
		r.turn = 0
		r.stopTimerLocked()
		if err := r.store.DeleteRoom(r.ID); err != nil {
			r.log.Error("delete room state", "err", err)
		}
		return
	}
	if r.phase == PhasePlaying {
		if r.turn >= len(r.players) || r.status[r.players[r.turn].ID] != StatusPlaying {
			r.turn = min(r.turn, len(r.players)-1)
			r.advanceTurnLocked()
		}
	}
}

type rulePayload struct {
	Rule  string          `json:"rule"`
	State json.RawMessage `json:"state"`
}

func (r *Room) changeRule(c *Conn, payload json.RawMessage) {
	if r.phase != PhasePreparing {
		return
	}
	var p rulePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.replyInvalid(c)
		return
	}
	var err error
	switch p.Rule {
	case "boardSize":
		err = json.Unmarshal(p.State, &r.rules.BoardSize)
	case "timeLimit":
		err = json.Unmarshal(p.State, &r.rules.TimeLimit)
	case "negativeDisabled":
		err = json.Unmarshal(p.State, &r.rules.NegativeDisabled)
	default:
		r.replyInvalid(c)
		return
	}
	if err != nil {
		r.replyInvalid(c)
		return
	}
	r.engine.Initialize(r.rules)
	r.persistLocked()
	r.broadcastLocked()
}

// --- plumbing ---

func (r *Room) findPlayer(id string) *Player {
	for i := range r.players {
		if r.players[i].ID == id {
			return &r.players[i]
		}
	}
	return nil
}

func (r *Room) liveConns(playerID string) int {
	n := 0
	for _, c := range r.conns {
		if c.PlayerID == playerID {
			n++
		}
	}
	return n
}

func (r *Room) removeConn(c *Conn) {
	kept := r.conns[:0]
	for _, other := range r.conns {
		if other != c {
			kept = append(kept, other)
		}
	}
	r.conns = kept
}

func (r *Room) allParticipantsPlaying() bool {
	for _, p := range r.players {
		if p.Role == RoleParticipant && r.status[p.ID] != StatusPlaying {
			return false
		}
	}
	return true
}

func (r *Room) snapshotLocked() (snapshot, error) {
	gameState, err := r.engine.MarshalJSON()
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{
		Phase:        r.phase,
		Players:      r.players,
		PlayerStatus: r.status,
		Names:        r.names,
		Rules:        r.rules,
		Round:        r.round,
		Turn:         r.turn,
		Winners:      r.winners,
		Deadline:     r.deadline.UnixMilli(),
		Game:         gameState,
	}, nil
}

func (r *Room) persistLocked() {
	snap, err := r.snapshotLocked()
	if err != nil {
		r.log.Error("snapshot state", "err", err)
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		r.log.Error("marshal state", "err", err)
		return
	}
	if err := r.store.SaveState(r.ID, string(r.phase), data); err != nil {
		r.log.Error("persist state", "err", err)
	}
}

func (r *Room) broadcastLocked() {
	snap, err := r.snapshotLocked()
	if err != nil {
		r.log.Error("snapshot state", "err", err)
		return
	}
	payload, _ := json.Marshal(snap)
	msg, _ := json.Marshal(struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}{Type: "state", Payload: payload})
	for _, c := range r.conns {
		c.push(msg)
	}
}

func (r *Room) replyInvalid(c *Conn) {
	msg, _ := json.Marshal(map[string]string{"error": "Invalid message"})
	c.push(msg)
}

// restore rebuilds actor state from a persisted snapshot. The caller
// provides a fresh engine of the right game type.
func (r *Room) restore(snap snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.engine.UnmarshalJSON(snap.Game); err != nil {
		return fmt.Errorf("restore game state: %w", err)
	}
	r.phase = snap.Phase
	r.players = snap.Players
	r.status = snap.PlayerStatus
	r.names = snap.Names
	r.rules = snap.Rules
	r.round = snap.Round
	r.turn = snap.Turn
	r.winners = snap.Winners
	r.deadline = time.UnixMilli(snap.Deadline)
	if r.status == nil {
		r.status = make(map[string]Status)
	}
	if r.names == nil {
		r.names = make(map[string]string)
	}

	// Every connection died with the process; a live round waits for
	// everyone to come back.
	if r.phase == PhasePlaying {
		r.phase = PhasePaused
		for _, p := range r.players {
			if p.Role == RoleParticipant {
				r.status[p.ID] = StatusError
			}
		}
	}
	return nil
}
