// SPDX-License-Identifier: AGPL-3.0-only
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fluffyriot/bookshare/internal/feed"
)

// Worker periodically pulls the first page of every feed so that counts
// drift back to the server's values.
type Worker struct {
	Feeds      []*feed.Store
	Pending    func(postID int64) bool
	MaxRetries int
	Ticker     *time.Ticker
	StopChan   chan bool
	mu         sync.Mutex
	running    bool
	active     bool
}

// NewWorker builds a refresher. pending reports posts whose local state must
// not be overwritten, typically Reconciler.Pending.
func NewWorker(pending func(postID int64) bool, feeds ...*feed.Store) *Worker {
	return &Worker{
		Feeds:      feeds,
		Pending:    pending,
		MaxRetries: 3,
		StopChan:   make(chan bool),
	}
}

func (w *Worker) Start(interval time.Duration) {
	if interval <= 0 {
		log.Println("Worker: Refresh interval is zero, scheduler not started")
		return
	}

	w.mu.Lock()
	if w.active {
		w.mu.Unlock()
		log.Println("Worker: Scheduler already active, use Restart to change interval")
		return
	}
	w.active = true
	w.Ticker = time.NewTicker(interval)
	ticker := w.Ticker
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer func() {
			cancel()
			w.mu.Lock()
			w.active = false
			w.mu.Unlock()
		}()
		for {
			select {
			case <-ticker.C:
				w.RefreshAll(ctx)
			case <-w.StopChan:
				ticker.Stop()
				return
			}
		}
	}()
	log.Printf("Worker: Background refresher started with interval: %v", interval)
}

func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		log.Println("Worker: Scheduler not active")
		return
	}
	w.mu.Unlock()

	w.StopChan <- true
	log.Println("Worker: Background refresher stopped")
}

func (w *Worker) Restart(interval time.Duration) {
	if w.IsActive() {
		w.Stop()
		for w.IsActive() {
			time.Sleep(10 * time.Millisecond)
		}
	}
	w.Start(interval)
}

func (w *Worker) IsActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// RefreshAll runs one refresh pass unless one is already running. It
// returns the number of posts updated across all feeds.
func (w *Worker) RefreshAll(ctx context.Context) int {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		log.Println("Worker: Refresh already in progress, skipping...")
		return 0
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	return RunRefresh(ctx, w.Feeds, w.Pending, w.MaxRetries)
}
