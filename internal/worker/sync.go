// SPDX-License-Identifier: AGPL-3.0-only
package worker

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluffyriot/bookshare/internal/feed"
)

var baseDelay = 10 * time.Second

func backoffWithJitter(attempt int) time.Duration {
	const maxDelay = 5 * time.Minute

	delay := baseDelay * (1 << attempt)
	if delay > maxDelay {
		delay = maxDelay
	}

	var b [8]byte
	_, _ = rand.Read(b[:])
	jitter := time.Duration(binary.LittleEndian.Uint64(b[:]) % uint64(delay))

	return jitter
}

func RunRefresh(ctx context.Context, feeds []*feed.Store, pending func(int64) bool, maxRetries int) int {
	log.Println("Worker: Starting refresh...")

	var (
		wg      sync.WaitGroup
		updated atomic.Int64
	)

	for _, f := range feeds {
		wg.Add(1)
		go func(f *feed.Store) {
			defer wg.Done()
			updated.Add(int64(refreshFeedInternal(ctx, f, pending, maxRetries)))
		}(f)
	}

	wg.Wait()

	log.Printf("Worker: Completed refresh of %d feeds, %d posts updated", len(feeds), updated.Load())
	return int(updated.Load())
}

func refreshFeedInternal(ctx context.Context, f *feed.Store, pending func(int64) bool, maxRetries int) int {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		isLastRetry := attempt == maxRetries

		n, err := func() (n int, err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker Panic in feed refresh (feed=%s attempt=%d): %v", f.Name(), attempt+1, r)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return f.Refresh(ctx, pending)
		}()

		if err == nil {
			return n
		}
		if errors.Is(err, feed.ErrLoadInProgress) {
			log.Printf("Worker: Feed %s is loading, skipping refresh", f.Name())
			return 0
		}
		if isLastRetry {
			log.Printf("Worker Feed refresh FAILED after %d attempts (feed=%s): %v", attempt+1, f.Name(), err)
			return 0
		}

		delay := backoffWithJitter(attempt)
		log.Printf("Worker Feed refresh error (feed=%s attempt=%d). Retrying in %s: %v", f.Name(), attempt+1, delay, err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0
		}
	}
	return 0
}
