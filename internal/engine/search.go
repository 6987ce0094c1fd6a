package engine

import (
	"sync/atomic"

	"github.com/seeker-chess/seeker/internal/position"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// Heuristic tuning constants
const (
	deltaMargin     = 200  // Delta pruning margin in quiescence
	lmrMinDepth     = 3    // Minimum depth for late move reductions
	lmrMoveCount    = 4    // Moves searched at full depth before reducing
	checkInterval   = 4095 // Stop/deadline polling mask (every 4096 nodes)
	aspirationDepth = 5    // First depth using an aspiration window
	initialWindow   = 50   // Aspiration half-window in centipawns
)

// Evaluator scores a position in centipawns from the side to move's
// perspective. The engine is parameterised over this so evaluation terms can
// change without touching the search.
type Evaluator func(*position.Cursor) int

// PVTable stores the principal variation as a triangular table.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]position.Move
}

// Searcher performs the alpha-beta search over a single worker.
type Searcher struct {
	worker   *Worker
	stopFlag atomic.Bool
}

// NewSearcher creates a new searcher.
func NewSearcher(tt *TranspositionTable, eval Evaluator) *Searcher {
	s := &Searcher{}
	s.worker = NewWorker(tt, eval, &s.stopFlag)
	return s
}

// Stop signals the search to stop. Safe to call from any goroutine.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// Reset resets the searcher for a new search.
func (s *Searcher) Reset() {
	s.stopFlag.Store(false)
	s.worker.Reset()
}

// Nodes returns the number of nodes searched.
func (s *Searcher) Nodes() uint64 {
	return s.worker.Nodes()
}

// Search performs a full-window search at the given depth.
func (s *Searcher) Search(cur *position.Cursor, depth int) (position.Move, int) {
	return s.SearchWithBounds(cur, depth, -Infinity, Infinity)
}

// SearchWithBounds performs search with custom alpha/beta bounds (for
// aspiration windows).
func (s *Searcher) SearchWithBounds(cur *position.Cursor, depth, alpha, beta int) (position.Move, int) {
	s.worker.InitSearch(cur)
	return s.worker.SearchDepth(depth, alpha, beta)
}

// GetPV returns the principal variation from the last search.
func (s *Searcher) GetPV() []position.Move {
	return s.worker.GetPV()
}

// ClearOrderer clears the move orderer state.
func (s *Searcher) ClearOrderer() {
	s.worker.orderer.Clear()
}

// IsStopped returns true if the search has been stopped.
func (s *Searcher) IsStopped() bool {
	return s.stopFlag.Load()
}

// abs returns the absolute value of an integer.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
