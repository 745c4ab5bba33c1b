package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Broadcaster pushes a typed message to every observer of a game. The
// websocket Hub is the production implementation.
type Broadcaster interface {
	BroadcastToGame(code string, messageType string, payload interface{})
}

// ChangeChannelPrefix is the redis pub/sub namespace for per-game change
// signals; the suffix is the game code.
const ChangeChannelPrefix = "livetrivia:changed:"

// Notifier fans "something changed, re-fetch" signals out to a game's
// observers. Signals are debounced to a minimum inter-notification interval
// so bursts of rapid submissions collapse into one re-fetch, and a polling
// fallback ticks while a question is active and unrevealed so observers
// never stall if the push path fails. Neither path ever blocks the command
// that triggered it.
type Notifier struct {
	broadcaster  Broadcaster
	redis        *redis.Client
	minInterval  time.Duration
	pollInterval time.Duration

	mu      sync.Mutex
	signals map[string]*changeSignal
	polls   map[string]chan struct{}
}

type changeSignal struct {
	lastSent time.Time
	pending  bool
}

func NewNotifier(broadcaster Broadcaster, redisClient *redis.Client) *Notifier {
	return &Notifier{
		broadcaster:  broadcaster,
		redis:        redisClient,
		minInterval:  250 * time.Millisecond,
		pollInterval: 3 * time.Second,
		signals:      make(map[string]*changeSignal),
		polls:        make(map[string]chan struct{}),
	}
}

// Changed records that the game's state moved. At least one signal reaches
// observers after the last call; calls closer together than the debounce
// window share one signal.
func (n *Notifier) Changed(code string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	sig := n.signals[code]
	if sig == nil {
		sig = &changeSignal{}
		n.signals[code] = sig
	}
	if sig.pending {
		n.mu.Unlock()
		return
	}
	now := time.Now()
	if now.Sub(sig.lastSent) >= n.minInterval {
		sig.lastSent = now
		n.mu.Unlock()
		n.emit(code, "changed")
		return
	}
	sig.pending = true
	delay := n.minInterval - now.Sub(sig.lastSent)
	n.mu.Unlock()

	time.AfterFunc(delay, func() {
		n.mu.Lock()
		sig.pending = false
		sig.lastSent = time.Now()
		n.mu.Unlock()
		n.emit(code, "changed")
	})
}

// Patch pushes an incremental event (player joined, score moved) directly,
// bypassing the debounce: patch payloads carry explicit before/after
// records, so consumers apply them without a full re-fetch.
func (n *Notifier) Patch(code string, event string, payload interface{}) {
	if n == nil || n.broadcaster == nil {
		return
	}
	n.broadcaster.BroadcastToGame(code, event, payload)
}

// SetPolling turns the fixed-interval fallback refresh on or off. The
// engine enables it when a question activates and disables it on reveal,
// deactivation, or game end.
func (n *Notifier) SetPolling(code string, active bool) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	stop, running := n.polls[code]
	if active == running {
		return
	}
	if !active {
		close(stop)
		delete(n.polls, code)
		return
	}
	stop = make(chan struct{})
	n.polls[code] = stop
	go n.runPoll(code, stop)
}

func (n *Notifier) runPoll(code string, stop chan struct{}) {
	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.emit(code, "poll")
		}
	}
}

// emit delivers one change signal. The redis publish carries it to every
// process bridging that channel (see Hub.RunRedisBridge); when redis is
// absent or down the hub is fed directly, so the signal still reaches
// local observers.
func (n *Notifier) emit(code string, reason string) {
	go func() {
		if n.redis != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := n.redis.Publish(ctx, ChangeChannelPrefix+code, reason).Err()
			if err == nil {
				return
			}
			log.Printf("Change publish failed for game %s, falling back to local dispatch: %v", code, err)
		}
		if n.broadcaster != nil {
			n.broadcaster.BroadcastToGame(code, "state_changed", map[string]interface{}{
				"reason": reason,
			})
		}
	}()
}
