package engine

import (
	"sync"
	"time"

	"github.com/seeker-chess/seeker/internal/position"
)

// SearchResult is one item of a search's result stream: a snapshot after a
// completed depth, or the final answer when Final is set.
type SearchResult struct {
	Move     position.Move
	Score    int
	Depth    int
	Nodes    uint64
	Time     time.Duration
	PV       []position.Move
	HashFull int // Permille of hash table used, sampled by the worker
	Final    bool
}

// Controller runs searches in the background and serialises access to one
// engine. At most one search is active at a time; starting a new search or
// changing the position cancels and drains the previous one first, so the
// engine always has exactly one owner.
type Controller struct {
	mu     sync.Mutex
	engine *Engine
	cur    *position.Cursor

	done     chan struct{} // closed when the active search goroutine exits
	stopOnce *sync.Once
	stopCh   chan struct{} // closed by Stop; releases infinite searches
}

// NewController creates a controller around an engine, positioned at the
// standard starting position.
func NewController(engine *Engine) *Controller {
	return &Controller{engine: engine, cur: position.Start()}
}

// SetPosition replaces the current position, cancelling any active search.
func (c *Controller) SetPosition(cur *position.Cursor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()
	c.cur = cur
}

// Position returns an independent copy of the current position.
func (c *Controller) Position() *position.Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur.Clone()
}

// Running reports whether a search is active. A search that finished on its
// own counts as idle even before the next Start or SetPosition.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// NewGame clears the engine's caches, as on ucinewgame.
func (c *Controller) NewGame() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()
	c.engine.Clear()
}

// SetHashSize resizes the transposition table, cancelling any active
// search first.
func (c *Controller) SetHashSize(sizeMB int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()
	c.engine.SetHashSize(sizeMB)
}

// Start begins a search and returns its result stream: one SearchResult per
// completed depth, then the final result with Final set, then the channel
// closes. The channel is buffered for the whole stream, so a slow or absent
// reader never blocks the search. An active search is cancelled first.
func (c *Controller) Start(limits SearchLimits) <-chan SearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()

	results := make(chan SearchResult, MaxPly+1)
	done := make(chan struct{})
	stopCh := make(chan struct{})
	c.done = done
	c.stopOnce = &sync.Once{}
	c.stopCh = stopCh

	cur := c.cur.Clone()
	engine := c.engine
	start := time.Now()

	var last SearchResult
	engine.OnInfo = func(info SearchInfo) {
		move := position.NoMove
		if len(info.PV) > 0 {
			move = info.PV[0]
		}
		last = SearchResult{
			Move:     move,
			Score:    info.Score,
			Depth:    info.Depth,
			Nodes:    info.Nodes,
			Time:     info.Time,
			PV:       info.PV,
			HashFull: info.HashFull,
		}
		results <- last
	}

	go func() {
		defer close(done)
		defer close(results)

		move, score := engine.SearchWithLimits(cur, limits)

		// An infinite search that ran out of depth holds its answer until
		// it is told to stop.
		if limits.Infinite && !engine.searcher.IsStopped() {
			<-stopCh
		}

		final := last
		final.Move = move
		final.Score = score
		final.Time = time.Since(start)
		if final.Nodes == 0 {
			final.Nodes = engine.searcher.Nodes()
		}
		final.Final = true
		results <- final
	}()

	return results
}

// Stop cancels the active search. The search still delivers its final
// result before the stream closes. Calling Stop when idle, or twice, is
// harmless.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// WaitIdle blocks until the active search finishes or the timeout elapses.
// It reports whether the controller is idle.
func (c *Controller) WaitIdle(timeout time.Duration) bool {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (c *Controller) stopLocked() {
	if c.done == nil {
		return
	}
	c.engine.Stop()
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// abortLocked cancels the active search and waits for its goroutine to
// exit, so the caller may touch the engine afterwards.
func (c *Controller) abortLocked() {
	if c.done == nil {
		return
	}
	c.stopLocked()
	<-c.done
	c.done = nil
	c.stopOnce = nil
	c.stopCh = nil
}
