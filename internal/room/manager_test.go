package room

import (
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"puzzlerooms/internal/auth"
	"puzzlerooms/internal/game"
	"puzzlerooms/internal/game/memory"
	"puzzlerooms/internal/game/mission"
	"puzzlerooms/internal/storage"
)

func setupManager(t *testing.T) (*Manager, *storage.Store) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := game.NewRegistry()
	reg.Register(mission.Game{})
	reg.Register(memory.Game{})
	secrets := auth.NewIssuer("test-key", time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(reg, store, secrets, log), store
}

func TestManagerCreateAndGet(t *testing.T) {
	mgr, _ := setupManager(t)

	r, err := mgr.Create("mission", game.Rules{TimeLimit: 10}, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Secret != "" {
		t.Fatal("expected an open room to have no secret")
	}

	got, ok := mgr.Get(r.ID)
	if !ok || got != r {
		t.Fatal("expected to get the created room back")
	}
}

func TestManagerCreateUnknownGame(t *testing.T) {
	mgr, _ := setupManager(t)

	if _, err := mgr.Create("chess", game.Rules{}, false); err == nil {
		t.Fatal("expected an error for an unknown game type")
	}
}

func TestProvisionMatch(t *testing.T) {
	mgr, _ := setupManager(t)

	roomID, secret, err := mgr.ProvisionMatch("memory", "alice", []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if roomID == "" || secret == "" {
		t.Fatal("expected a room id and access secret")
	}

	r, ok := mgr.Get(roomID)
	if !ok {
		t.Fatal("expected the provisioned room to exist")
	}
	if err := mgr.VerifySecret(r, secret); err != nil {
		t.Fatalf("expected the issued secret to verify: %v", err)
	}
	if err := mgr.VerifySecret(r, "garbage"); err == nil {
		t.Fatal("expected a bogus secret to be rejected")
	}
}

func TestVerifySecretCrossRoom(t *testing.T) {
	mgr, _ := setupManager(t)

	_, secret1, err := mgr.ProvisionMatch("memory", "alice", []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	roomID2, _, err := mgr.ProvisionMatch("memory", "carol", []string{"carol", "dan"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	r2, _ := mgr.Get(roomID2)
	if err := mgr.VerifySecret(r2, secret1); err == nil {
		t.Fatal("expected a secret for another room to be rejected")
	}
}

func TestVerifySecretOpenRoom(t *testing.T) {
	mgr, _ := setupManager(t)

	r, err := mgr.Create("mission", game.Rules{}, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mgr.VerifySecret(r, ""); err != nil {
		t.Fatalf("expected an open room to accept any connection: %v", err)
	}
}

func TestManagerRestore(t *testing.T) {
	mgr, store := setupManager(t)

	r, err := mgr.Create("mission", game.Rules{TimeLimit: 10}, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	connect(t, r, "alice")

	// A new manager over the same store picks the room up.
	reg := game.NewRegistry()
	reg.Register(mission.Game{})
	reg.Register(memory.Game{})
	secrets := auth.NewIssuer("test-key", time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr2 := NewManager(reg, store, secrets, log)
	if err := mgr2.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}

	restored, ok := mgr2.Get(r.ID)
	if !ok {
		t.Fatal("expected the room to be restored")
	}
	if restored.Phase() != PhasePreparing {
		t.Fatalf("expected preparing phase, got %s", restored.Phase())
	}
	if restored.findPlayer("alice") == nil {
		t.Fatal("expected alice restored into the room")
	}
}

func TestManagerRemove(t *testing.T) {
	mgr, _ := setupManager(t)

	r, _ := mgr.Create("mission", game.Rules{}, false)
	mgr.Remove(r.ID)
	if _, ok := mgr.Get(r.ID); ok {
		t.Fatal("expected the room to be gone")
	}
}

func TestManagerCleanupKeepsFreshEmptyRoom(t *testing.T) {
	mgr, _ := setupManager(t)

	r, _ := mgr.Create("mission", game.Rules{}, false)
	mgr.cleanup(time.Hour)
	if _, ok := mgr.Get(r.ID); !ok {
		t.Fatal("expected a freshly created empty room to survive cleanup")
	}
}

func TestManagerCleanupRemovesStaleEmptyRoom(t *testing.T) {
	mgr, _ := setupManager(t)

	r, _ := mgr.Create("mission", game.Rules{}, false)
	mgr.cleanup(0)
	if _, ok := mgr.Get(r.ID); ok {
		t.Fatal("expected a stale empty room to be cleaned up")
	}
}

func TestGenerateIDFormat(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{6}$`)
	for i := 0; i < 20; i++ {
		id := generateID()
		if !re.MatchString(id) {
			t.Fatalf("expected 6 hex chars, got %q", id)
		}
	}
}
