package matching

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeProvisioner struct {
	roomID string
	secret string
	err    error
	calls  [][]string
}

func (f *fakeProvisioner) ProvisionMatch(gameType, hostID string, participantIDs []string) (string, string, error) {
	f.calls = append(f.calls, append([]string(nil), participantIDs...))
	return f.roomID, f.secret, f.err
}

type fakeStore struct {
	waiting []string
	saves   int
}

func (f *fakeStore) SaveWaiting(playerIDs []string) error {
	f.waiting = append([]string(nil), playerIDs...)
	f.saves++
	return nil
}

func (f *fakeStore) LoadWaiting() ([]string, error) {
	return append([]string(nil), f.waiting...), nil
}

func setupMatchmaker(t *testing.T) (*Matchmaker, *fakeProvisioner, *fakeStore) {
	t.Helper()
	prov := &fakeProvisioner{roomID: "room42", secret: "s3cret"}
	store := &fakeStore{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New("memory", prov, store, log), prov, store
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// drain empties a connection's outbound buffer into parsed envelopes.
func drain(t *testing.T, c *Conn) []envelope {
	t.Helper()
	var out []envelope
	for {
		select {
		case msg, ok := <-c.Outbound():
			if !ok {
				return out
			}
			var env envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				t.Fatalf("unmarshal %q: %v", msg, err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func lastOfType(msgs []envelope, msgType string) (envelope, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == msgType {
			return msgs[i], true
		}
	}
	return envelope{}, false
}

func TestJoinBroadcastsWaitingList(t *testing.T) {
	m, _, store := setupMatchmaker(t)

	c := NewConn("alice")
	m.Join(c)

	msgs := drain(t, c)
	env, ok := lastOfType(msgs, "userChange")
	if !ok {
		t.Fatalf("expected a userChange broadcast, got %v", msgs)
	}
	var waiting []string
	if err := json.Unmarshal(env.Payload, &waiting); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(waiting) != 1 || waiting[0] != "alice" {
		t.Fatalf("expected waiting [alice], got %v", waiting)
	}
	if store.saves == 0 {
		t.Fatal("expected the waiting list to be persisted")
	}
}

func TestSecondJoinProvisionsMatch(t *testing.T) {
	m, prov, store := setupMatchmaker(t)

	a := NewConn("alice")
	b := NewConn("bob")
	m.Join(a)
	m.Join(b)

	if len(prov.calls) != 1 {
		t.Fatalf("expected one provisioning call, got %d", len(prov.calls))
	}
	pair := prov.calls[0]
	if len(pair) != 2 || pair[0] != "alice" || pair[1] != "bob" {
		t.Fatalf("expected pair [alice bob], got %v", pair)
	}

	for _, c := range []*Conn{a, b} {
		env, ok := lastOfType(drain(t, c), "goRoom")
		if !ok {
			t.Fatalf("expected %s to receive goRoom", c.PlayerID)
		}
		var dest struct {
			RoomID string `json:"roomId"`
			Secret string `json:"secret"`
		}
		if err := json.Unmarshal(env.Payload, &dest); err != nil {
			t.Fatalf("unmarshal goRoom: %v", err)
		}
		if dest.RoomID != "room42" || dest.Secret != "s3cret" {
			t.Fatalf("expected room42/s3cret, got %+v", dest)
		}
	}

	if got := m.Waiting(); len(got) != 0 {
		t.Fatalf("expected an empty waiting list after the match, got %v", got)
	}
	if len(store.waiting) != 0 {
		t.Fatalf("expected the cleared list persisted, got %v", store.waiting)
	}
}

func TestGoRoomOnlyForMatchedPlayers(t *testing.T) {
	m, _, _ := setupMatchmaker(t)

	a := NewConn("alice")
	b := NewConn("bob")
	m.Join(a)
	// A second connection for a player already queued must not requeue them.
	a2 := NewConn("alice")
	m.Join(a2)
	if got := m.Waiting(); len(got) != 1 {
		t.Fatalf("expected alice queued once, got %v", got)
	}
	m.Join(b)

	for _, c := range []*Conn{a, a2, b} {
		if _, ok := lastOfType(drain(t, c), "goRoom"); !ok {
			t.Fatalf("expected %s's connections to receive goRoom", c.PlayerID)
		}
	}
}

func TestLeaveRemovesFromWaiting(t *testing.T) {
	m, _, store := setupMatchmaker(t)

	a := NewConn("alice")
	m.Join(a)
	m.Leave(a)

	if got := m.Waiting(); len(got) != 0 {
		t.Fatalf("expected an empty waiting list, got %v", got)
	}
	if len(store.waiting) != 0 {
		t.Fatalf("expected the removal persisted, got %v", store.waiting)
	}
}

func TestLeaveKeepsPlayerWithOtherConnection(t *testing.T) {
	m, _, _ := setupMatchmaker(t)

	a1 := NewConn("alice")
	a2 := NewConn("alice")
	m.Join(a1)
	m.Join(a2)
	m.Leave(a1)

	if got := m.Waiting(); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("expected alice still waiting, got %v", got)
	}
}

func TestLeaveClosesOutbound(t *testing.T) {
	m, _, _ := setupMatchmaker(t)

	a := NewConn("alice")
	m.Join(a)
	m.Leave(a)

	for {
		select {
		case _, ok := <-a.Outbound():
			if !ok {
				return
			}
		default:
			t.Fatal("expected the outbound channel closed on leave")
		}
	}
}

func TestProvisionFailureDropsPair(t *testing.T) {
	m, prov, _ := setupMatchmaker(t)
	prov.err = errors.New("database down")

	a := NewConn("alice")
	b := NewConn("bob")
	m.Join(a)
	m.Join(b)

	if _, ok := lastOfType(drain(t, a), "goRoom"); ok {
		t.Fatal("expected no goRoom after a provisioning failure")
	}
	if got := m.Waiting(); len(got) != 0 {
		t.Fatalf("expected the pair dropped from the list, got %v", got)
	}
}

func TestWaitingListRestoredFromStore(t *testing.T) {
	prov := &fakeProvisioner{roomID: "room42", secret: "s3cret"}
	store := &fakeStore{waiting: []string{"alice"}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := New("memory", prov, store, log)

	if got := m.Waiting(); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("expected restored waiting [alice], got %v", got)
	}

	// The restored entry counts toward the next match.
	b := NewConn("bob")
	m.Join(b)
	if len(prov.calls) != 1 {
		t.Fatal("expected the restored player to be matched")
	}
	if pair := prov.calls[0]; pair[0] != "alice" || pair[1] != "bob" {
		t.Fatalf("expected pair [alice bob], got %v", pair)
	}
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	m, _, _ := setupMatchmaker(t)
	c := NewConn("alice")
	m.Join(c)
	drain(t, c)

	m.HandleMessage(c, []byte("not json"))
	msgs := <-c.Outbound()
	if string(msgs) != `{"error":"Invalid message"}` {
		t.Fatalf("expected an error reply, got %s", msgs)
	}
}
