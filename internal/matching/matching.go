package matching

import (
	"encoding/json"
	"log/slog"
	"sync"

	"puzzlerooms/internal/metrics"
)

// capacity is the waiting-list size that triggers a match.
const capacity = 2

// Provisioner creates a room plus access secret for a matched pair.
// Implemented by the room manager; mocked in tests.
type Provisioner interface {
	ProvisionMatch(gameType, hostID string, participantIDs []string) (roomID, secret string, err error)
}

// Store persists the waiting list across restarts.
type Store interface {
	SaveWaiting(playerIDs []string) error
	LoadWaiting() ([]string, error)
}

// Conn is one live connection to the matchmaker.
type Conn struct {
	PlayerID string
	send     chan []byte
}

func NewConn(playerID string) *Conn {
	return &Conn{PlayerID: playerID, send: make(chan []byte, 16)}
}

func (c *Conn) Outbound() <-chan []byte { return c.send }

func (c *Conn) push(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

// Matchmaker is the singleton queue actor. All handlers serialize behind
// the mutex; the waiting list is owned exclusively by this actor.
type Matchmaker struct {
	mu       sync.Mutex
	waiting  []string
	conns    []*Conn
	gameType string

	provisioner Provisioner
	store       Store
	log         *slog.Logger
}

func New(gameType string, provisioner Provisioner, store Store, log *slog.Logger) *Matchmaker {
	m := &Matchmaker{
		gameType:    gameType,
		provisioner: provisioner,
		store:       store,
		log:         log.With("actor", "matchmaker"),
	}
	if waiting, err := store.LoadWaiting(); err == nil {
		m.waiting = waiting
	} else {
		log.Warn("load waiting list", "err", err)
	}
	return m
}

// Join attaches a connection and queues its player. Reaching capacity
// snapshots and clears the list, provisions a room, and sends goRoom to
// exactly the matched players' connections.
func (m *Matchmaker) Join(c *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conns = append(m.conns, c)

	if !contains(m.waiting, c.PlayerID) && len(m.waiting) < capacity {
		m.waiting = append(m.waiting, c.PlayerID)
		m.persistLocked()
	}
	m.broadcastWaitingLocked()

	if len(m.waiting) < capacity {
		return
	}

	pair := append([]string(nil), m.waiting...)
	m.waiting = nil
	m.persistLocked()

	roomID, secret, err := m.provisioner.ProvisionMatch(m.gameType, pair[0], pair)
	if err != nil {
		// The pair's queue membership is lost for this attempt; the
		// players rejoin on their own.
		m.log.Error("provision match failed", "players", pair, "err", err)
		return
	}
	metrics.PairsMatched.Inc()
	m.log.Info("pair matched", "players", pair, "room", roomID)

	msg := marshalMsg("goRoom", map[string]string{"roomId": roomID, "secret": secret})
	for _, conn := range m.conns {
		if contains(pair, conn.PlayerID) {
			conn.push(msg)
		}
	}
}

// Leave detaches a connection; when it was the player's last one, the
// player drops off the waiting list.
func (m *Matchmaker) Leave(c *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.conns[:0]
	for _, other := range m.conns {
		if other != c {
			kept = append(kept, other)
		}
	}
	m.conns = kept
	close(c.send)

	for _, other := range m.conns {
		if other.PlayerID == c.PlayerID {
			return
		}
	}
	if !contains(m.waiting, c.PlayerID) {
		return
	}
	filtered := m.waiting[:0]
	for _, id := range m.waiting {
		if id != c.PlayerID {
			filtered = append(filtered, id)
		}
	}
	m.waiting = filtered
	m.persistLocked()
	m.broadcastWaitingLocked()
}

// Waiting returns a copy of the current waiting list.
func (m *Matchmaker) Waiting() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.waiting...)
}

// HandleMessage answers any inbound frame: the matchmaker accepts no
// client actions, so everything parseable is ignored and everything else
// is a protocol error.
func (m *Matchmaker) HandleMessage(c *Conn, data []byte) {
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		c.push(marshalErr())
	}
}

func (m *Matchmaker) persistLocked() {
	if err := m.store.SaveWaiting(m.waiting); err != nil {
		m.log.Error("persist waiting list", "err", err)
	}
}

func (m *Matchmaker) broadcastWaitingLocked() {
	msg := marshalMsg("userChange", m.waiting)
	for _, c := range m.conns {
		c.push(msg)
	}
}

func marshalMsg(msgType string, payload any) []byte {
	p, _ := json.Marshal(payload)
	msg, _ := json.Marshal(struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}{Type: msgType, Payload: p})
	return msg
}

func marshalErr() []byte {
	msg, _ := json.Marshal(map[string]string{"error": "Invalid message"})
	return msg
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
