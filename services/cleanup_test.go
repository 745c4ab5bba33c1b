package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"livetrivia/models"
	"livetrivia/store"
)

func TestSweepDeletesOnlyAgedGames(t *testing.T) {
	ctx := context.Background()
	engine, now := newTestEngine(t)
	st := engine.store

	old := &models.Game{Code: "OLDGME", HostName: "Quinn", CreatedAt: now.Add(-22 * 24 * time.Hour)}
	fresh := &models.Game{Code: "NEWGME", HostName: "Quinn", CreatedAt: now.Add(-time.Hour)}
	for _, game := range []*models.Game{old, fresh} {
		if err := st.CreateGame(ctx, game); err != nil {
			t.Fatalf("seed game: %v", err)
		}
	}
	player := &models.Player{GameID: old.ID, Name: "Ada"}
	if err := st.CreatePlayer(ctx, player); err != nil {
		t.Fatalf("seed player: %v", err)
	}

	sweeper := NewSweeper(engine, 21*24*time.Hour)
	sweeper.clock = engine.clock

	deleted, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", deleted)
	}
	if _, err := st.GameByID(ctx, old.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected aged game gone, got %v", err)
	}
	if _, err := st.PlayerByID(ctx, player.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected the game's players reclaimed with it, got %v", err)
	}
	if _, err := st.GameByID(ctx, fresh.ID); err != nil {
		t.Fatalf("expected fresh game kept, got %v", err)
	}
}

func TestSweepStopsPollingForDeletedGames(t *testing.T) {
	ctx := context.Background()
	fake := &fakeBroadcaster{}
	notifier := newTestNotifier(fake)

	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	engine := NewSessionEngine(store.NewMemStore(), nil, notifier)
	engine.clock = func() time.Time { return now }
	engine.timer = &TimerCoordinator{clock: engine.clock}

	game := createGame(t, engine)
	addChoiceQuestion(t, engine, game.ID, 1, 10, 1, 0)
	if err := engine.ActivateQuestion(ctx, game.ID, 0); err != nil {
		t.Fatalf("activate: %v", err)
	}

	notifier.mu.Lock()
	polling := len(notifier.polls)
	notifier.mu.Unlock()
	if polling != 1 {
		t.Fatalf("expected the active question to start a poll ticker, got %d", polling)
	}

	now = now.Add(22 * 24 * time.Hour)
	sweeper := NewSweeper(engine, 21*24*time.Hour)
	sweeper.clock = engine.clock

	deleted, err := sweeper.Sweep(ctx)
	if err != nil || deleted != 1 {
		t.Fatalf("sweep: deleted=%d err=%v", deleted, err)
	}

	notifier.mu.Lock()
	polling = len(notifier.polls)
	notifier.mu.Unlock()
	if polling != 0 {
		t.Fatalf("sweep must tear the game's poll ticker down, %d left", polling)
	}

	engine.locksMu.Lock()
	left := len(engine.locks)
	engine.locksMu.Unlock()
	if left != 0 {
		t.Fatalf("sweep must reclaim the game's lock-table entry, %d left", left)
	}
}

func TestSweepIsRepeatable(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	sweeper := NewSweeper(engine, 21*24*time.Hour)

	for i := 0; i < 2; i++ {
		if deleted, err := sweeper.Sweep(ctx); err != nil || deleted != 0 {
			t.Fatalf("sweep of empty store: deleted=%d err=%v", deleted, err)
		}
	}
}
