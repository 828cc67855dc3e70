package solana

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// ActivityWatcher tracks on-chain activity per watched mint via log
// subscriptions. It records the timestamp of the last successful
// transaction mentioning each mint, which the position monitor reads
// to decide staleness.
type ActivityWatcher struct {
	ws     WSClient
	logger *log.Logger

	mu      sync.RWMutex
	watched map[string]*mintActivity

	wg     sync.WaitGroup
	cancel context.CancelFunc
	ctx    context.Context
}

type mintActivity struct {
	lastSeen int64 // unix ms of last successful tx, 0 if none observed
	events   int64
}

// NewActivityWatcher creates a watcher over the given WebSocket client.
func NewActivityWatcher(ws WSClient, logger *log.Logger) *ActivityWatcher {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ActivityWatcher{
		ws:      ws,
		logger:  logger,
		watched: make(map[string]*mintActivity),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Watch subscribes to logs mentioning the mint and starts recording
// activity. Watching an already watched mint is a no-op.
func (w *ActivityWatcher) Watch(ctx context.Context, mint string) error {
	w.mu.Lock()
	if _, ok := w.watched[mint]; ok {
		w.mu.Unlock()
		return nil
	}
	act := &mintActivity{}
	w.watched[mint] = act
	w.mu.Unlock()

	ch, err := w.ws.SubscribeLogs(ctx, LogsFilter{Mentions: []string{mint}})
	if err != nil {
		w.mu.Lock()
		delete(w.watched, mint)
		w.mu.Unlock()
		return fmt.Errorf("subscribe logs for %s: %w", mint, err)
	}

	w.wg.Add(1)
	go w.consume(act, ch)
	return nil
}

// consume records activity from the subscription channel until it closes.
func (w *ActivityWatcher) consume(act *mintActivity, ch <-chan LogNotification) {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case notif, ok := <-ch:
			if !ok {
				return
			}
			// Failed transactions do not count as trading activity.
			if notif.Err != nil {
				continue
			}
			w.mu.Lock()
			act.lastSeen = time.Now().UnixMilli()
			act.events++
			w.mu.Unlock()
		}
	}
}

// LastSeen returns the unix ms timestamp of the last observed activity
// for the mint. The second return is false when the mint is not watched.
func (w *ActivityWatcher) LastSeen(mint string) (int64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	act, ok := w.watched[mint]
	if !ok {
		return 0, false
	}
	return act.lastSeen, true
}

// EventCount returns the number of successful transactions observed for
// the mint since it was first watched.
func (w *ActivityWatcher) EventCount(mint string) int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	act, ok := w.watched[mint]
	if !ok {
		return 0
	}
	return act.events
}

// Stop terminates all consumers. The underlying WSClient is owned by the
// caller and is not closed here.
func (w *ActivityWatcher) Stop() {
	w.cancel()
	w.wg.Wait()
}
