package services

import (
	"context"
	"log"
	"time"
)

// Sweeper deletes games that aged past the retention window. Expired games
// already read as gone (the engine checks age on every read); the sweeper
// reclaims their rows. Deletion goes through the engine so the game's poll
// ticker and lock-table entry are torn down with it.
type Sweeper struct {
	engine    *SessionEngine
	retention time.Duration
	interval  time.Duration
	clock     func() time.Time
}

func NewSweeper(engine *SessionEngine, retention time.Duration) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Sweeper{
		engine:    engine,
		retention: retention,
		interval:  time.Hour,
		clock:     time.Now,
	}
}

// Run sweeps on a fixed interval until the context is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.Sweep(ctx); err != nil {
				log.Printf("Expiry sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("Expiry sweep deleted %d games", n)
			}
		}
	}
}

// Sweep deletes every game past the retention window and reports how many
// went. A failure on one game does not stop the rest.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cutoff := s.clock().Add(-s.retention)
	games, err := s.engine.store.GamesCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, game := range games {
		if err := s.engine.DeleteGame(ctx, game.ID); err != nil {
			log.Printf("Expiry sweep could not delete game %s: %v", game.Code, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
