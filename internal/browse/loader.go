package browse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// maxConcurrentLoads caps how many audio loads run at once. Everything
// beyond the cap waits in the queue.
const maxConcurrentLoads = 3

// LoadResult is delivered for every placeholder the loader takes on,
// whether the load succeeded or not.
type LoadResult struct {
	Placeholder Placeholder
	Player      *Player
	Err         error
}

// Loader turns audio placeholders into ready players, at most
// maxConcurrentLoads at a time. Placeholders marked visible jump ahead
// of invisible ones; within each class the queue is FIFO.
type Loader struct {
	client *Client
	pool   *ants.Pool
	onDone func(LoadResult)

	mu     sync.Mutex
	queue  []*Placeholder
	active int
	closed bool
}

// NewLoader creates a loader delivering completions to onDone. onDone
// runs on a pool goroutine.
func NewLoader(client *Client, onDone func(LoadResult)) (*Loader, error) {
	pool, err := ants.NewPool(maxConcurrentLoads)
	if err != nil {
		return nil, fmt.Errorf("create load pool: %w", err)
	}
	return &Loader{client: client, pool: pool, onDone: onDone}, nil
}

// Enqueue queues a placeholder for loading. Dispatch happens
// immediately when a slot is free.
func (l *Loader) Enqueue(ph Placeholder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.queue = append(l.queue, &ph)
	l.dispatchLocked()
}

// MarkVisible flags queued placeholders for source as visible so they
// are picked before invisible ones. Loads already running are not
// affected.
func (l *Loader) MarkVisible(source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ph := range l.queue {
		if ph.Source == source {
			ph.Visible = true
		}
	}
}

// Pending reports how many placeholders wait in the queue.
func (l *Loader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Close drops the queue and releases the pool. Loads already running
// finish but their completions are discarded.
func (l *Loader) Close() {
	l.mu.Lock()
	l.closed = true
	l.queue = nil
	l.mu.Unlock()
	l.pool.Release()
}

// dispatchLocked fills free slots from the queue. Caller holds l.mu.
func (l *Loader) dispatchLocked() {
	for l.active < maxConcurrentLoads && len(l.queue) > 0 {
		ph := l.takeLocked()
		l.active++
		submitErr := l.pool.Submit(func() {
			l.load(*ph)
		})
		if submitErr != nil {
			l.active--
			slog.Warn("browse: load submit failed",
				slog.String("source", ph.Source),
				slog.Any("error", submitErr))
			return
		}
	}
}

// takeLocked pops the first visible placeholder, or the head when none
// is visible. Caller holds l.mu.
func (l *Loader) takeLocked() *Placeholder {
	pick := 0
	for i, ph := range l.queue {
		if ph.Visible {
			pick = i
			break
		}
	}
	ph := l.queue[pick]
	l.queue = append(l.queue[:pick], l.queue[pick+1:]...)
	return ph
}

func (l *Loader) load(ph Placeholder) {
	res := LoadResult{Placeholder: ph}
	if err := l.client.ProbeAudio(context.Background(), ph.Source); err != nil {
		res.Err = err
		slog.Warn("browse: audio load failed",
			slog.String("source", ph.Source),
			slog.Any("error", err))
	} else {
		res.Player = NewPlayer(ph, l.client.AudioURL(ph.Source, ph.StartSec))
	}

	l.mu.Lock()
	l.active--
	closed := l.closed
	if !closed {
		l.dispatchLocked()
	}
	l.mu.Unlock()

	if !closed && l.onDone != nil {
		l.onDone(res)
	}
}
