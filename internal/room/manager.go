package room

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"puzzlerooms/internal/auth"
	"puzzlerooms/internal/game"
	"puzzlerooms/internal/storage"
)

// Manager owns all live room actors.
type Manager struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	registry *game.Registry
	store    *storage.Store
	secrets  *auth.Issuer
	log      *slog.Logger

	// DefaultRules seed provisioned rooms. Zero fields fall back to the
	// built-in defaults.
	DefaultRules game.Rules
}

func NewManager(registry *game.Registry, store *storage.Store, secrets *auth.Issuer, log *slog.Logger) *Manager {
	return &Manager{
		rooms:    make(map[string]*Room),
		registry: registry,
		store:    store,
		secrets:  secrets,
		log:      log,
	}
}

// Create makes a new room and persists it. withSecret rooms require the
// matchmaking access secret to connect.
func (m *Manager) Create(gameType string, rules game.Rules, withSecret bool) (*Room, error) {
	g, ok := m.registry.Get(gameType)
	if !ok {
		return nil, fmt.Errorf("unknown game type: %s", gameType)
	}
	id := generateID()

	secret := ""
	if withSecret {
		var err error
		secret, err = m.secrets.Issue(id)
		if err != nil {
			return nil, fmt.Errorf("issue secret: %w", err)
		}
	}

	if err := m.store.CreateRoom(id, gameType, secret); err != nil {
		return nil, fmt.Errorf("persist room: %w", err)
	}

	r := New(id, gameType, g.NewEngine(), rules, m.store, m.log)
	r.Secret = secret
	m.mu.Lock()
	m.rooms[id] = r
	m.mu.Unlock()
	return r, nil
}

// Get returns a room by id.
func (m *Manager) Get(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// VerifySecret checks a connection's access secret against the room.
func (m *Manager) VerifySecret(r *Room, secret string) error {
	if r.Secret == "" {
		return nil
	}
	return m.secrets.Verify(secret, r.ID)
}

// ProvisionMatch creates a secret-protected room for a matched pair and
// returns the id and access secret. It implements the matchmaker's
// provisioning boundary.
func (m *Manager) ProvisionMatch(gameType, hostID string, participantIDs []string) (roomID, secret string, err error) {
	rules := m.DefaultRules
	if rules.TimeLimit <= 0 {
		rules.TimeLimit = defaultTimeLimit
	}
	r, err := m.Create(gameType, rules, true)
	if err != nil {
		return "", "", fmt.Errorf("provision match for %s: %w", hostID, err)
	}
	return r.ID, r.Secret, nil
}

const defaultTimeLimit = 10 // seconds

// Restore loads rooms from the database on startup.
func (m *Manager) Restore() error {
	rows, err := m.store.ListRooms()
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	for _, row := range rows {
		g, ok := m.registry.Get(row.GameType)
		if !ok {
			m.log.Warn("skipping room: unknown game type", "room", row.ID, "game", row.GameType)
			continue
		}
		data, err := m.store.GetState(row.ID)
		if err != nil {
			m.log.Warn("skipping room: no state", "room", row.ID, "err", err)
			continue
		}
		var snap snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			m.log.Warn("skipping room: unmarshal state", "room", row.ID, "err", err)
			continue
		}

		r := New(row.ID, row.GameType, g.NewEngine(), snap.Rules, m.store, m.log)
		r.Secret = row.Secret
		if err := r.restore(snap); err != nil {
			m.log.Warn("skipping room: restore", "room", row.ID, "err", err)
			continue
		}
		m.mu.Lock()
		m.rooms[row.ID] = r
		m.mu.Unlock()
	}
	return nil
}

// Remove deletes a room from memory and storage.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.rooms, id)
	m.mu.Unlock()
	if err := m.store.DeleteRoom(id); err != nil {
		m.log.Error("delete room", "room", id, "err", err)
	}
}

// CleanupLoop removes stale rooms periodically.
func (m *Manager) CleanupLoop(interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		m.cleanup(maxAge)
	}
}

func (m *Manager) cleanup(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, r := range m.rooms {
		if !r.Empty() {
			continue
		}
		row, err := m.store.GetRoom(id)
		if err != nil || now.Sub(row.CreatedAt) > maxAge {
			m.log.Info("cleaning up room", "room", id)
			m.store.DeleteRoom(id)
			delete(m.rooms, id)
		}
	}
}

func generateID() string {
	b := make([]byte, 3) // 6 hex chars
	rand.Read(b)
	return hex.EncodeToString(b)
}
