// Package engine implements the search core: iterative deepening negamax
// with alpha-beta pruning, a transposition table, move ordering heuristics
// and quiescence. It is driven either directly (SearchWithLimits) or through
// the Controller, which adds asynchronous start/stop semantics.
package engine

import (
	"time"

	"github.com/seeker-chess/seeker/internal/position"
)

// SearchInfo contains information about the current search, reported after
// every completed iteration.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []position.Move
	HashFull int // Permille of hash table used
}

// SearchLimits specifies constraints on the search. Zero values mean
// unconstrained; Infinite overrides the clock fields.
type SearchLimits struct {
	Depth        int              // Maximum depth (0 = no limit)
	Nodes        uint64           // Maximum nodes (0 = no limit)
	MoveTime     time.Duration    // Fixed time for this move (0 = no limit)
	Clock        [2]time.Duration // Remaining time, white then black
	Inc          [2]time.Duration // Increment per move, white then black
	MovesToGo    int              // Moves until the next time control (0 = sudden death)
	MoveOverhead time.Duration    // Reserve for transport latency per move
	Infinite     bool             // Search until stopped
}

// Engine is the chess search engine. It is not safe for concurrent use; the
// Controller serialises access when searches run in the background.
type Engine struct {
	searcher *Searcher
	tt       *TranspositionTable
	eval     Evaluator

	// OnInfo, when set, receives a report after each completed depth.
	OnInfo func(SearchInfo)
}

// NewEngine creates an engine with the given transposition table size in MB
// and evaluator. Size 0 disables the transposition table.
func NewEngine(ttSizeMB int, eval Evaluator) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	return &Engine{
		searcher: NewSearcher(tt, eval),
		tt:       tt,
		eval:     eval,
	}
}

// SearchWithLimits runs an iterative deepening search from the cursor's
// position and returns the best move with its score. The cursor is restored
// to its starting state before returning. Some move is always returned when
// the position has one, however small the budget: the first legal move
// stands in until the first iteration completes.
func (e *Engine) SearchWithLimits(cur *position.Cursor, limits SearchLimits) (position.Move, int) {
	e.searcher.Reset()
	e.tt.NewSearch()

	tm := NewTimeManager()
	tm.Init(limits, cur.Turn(), cur.GamePly())
	e.searcher.worker.SetDeadline(tm.Deadline())
	e.searcher.worker.SetNodeLimit(limits.Nodes)

	bestMove := position.NoMove
	bestScore := 0
	if legal := cur.LegalMoves(); len(legal) > 0 {
		bestMove = legal[0]
	}

	maxDepth := MaxPly - 1
	if limits.Depth > 0 && limits.Depth < maxDepth {
		maxDepth = limits.Depth
	}

	stability := 0

	for depth := 1; depth <= maxDepth; depth++ {
		var move position.Move
		var score int

		if depth >= aspirationDepth {
			move, score = aspirate(bestScore, e.searcher.IsStopped,
				func(alpha, beta int) (position.Move, int) {
					return e.searcher.SearchWithBounds(cur, depth, alpha, beta)
				})
		} else {
			move, score = e.searcher.Search(cur, depth)
		}

		// An interrupted iteration searched an arbitrary subset of the root
		// moves; its result is discarded, never merged.
		if e.searcher.IsStopped() {
			break
		}

		if move != position.NoMove {
			if move == bestMove {
				stability++
			} else {
				stability = 0
			}
			bestMove = move
			bestScore = score
		}

		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    depth,
				Score:    bestScore,
				Nodes:    e.searcher.Nodes(),
				Time:     tm.Elapsed(),
				PV:       e.searcher.GetPV(),
				HashFull: e.tt.HashFull(),
			})
		}

		// A forced mate does not get better with depth
		if abs(bestScore) > MateScore-MaxPly {
			break
		}

		if !limits.Infinite {
			tm.ScaleForStability(stability)
			if tm.PastOptimum() {
				break
			}
		}
	}

	return bestMove, bestScore
}

// aspirate searches with a window around the previous iteration's score,
// widening the failed side on each miss. A score outside the window is only
// a bound, so the search repeats until the result is exact; after both sides
// have failed the final search runs with the full window, which cannot fail.
func aspirate(prev int, stopped func() bool, search func(alpha, beta int) (position.Move, int)) (position.Move, int) {
	alpha := prev - initialWindow
	beta := prev + initialWindow
	for {
		move, score := search(alpha, beta)
		switch {
		case stopped():
			return move, score
		case score <= alpha:
			alpha = -Infinity
		case score >= beta:
			beta = Infinity
		default:
			return move, score
		}
	}
}

// Stop stops the current search. Safe to call from another goroutine and
// when no search is running.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// Clear clears the transposition table and ordering heuristics, as on
// ucinewgame.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.searcher.ClearOrderer()
}

// SetHashSize replaces the transposition table with one of the given size
// in MB. Must not be called while a search is running.
func (e *Engine) SetHashSize(sizeMB int) {
	e.tt = NewTranspositionTable(sizeMB)
	e.searcher = NewSearcher(e.tt, e.eval)
}

// HashFull reports how full the transposition table is, in permille.
func (e *Engine) HashFull() int {
	return e.tt.HashFull()
}

// ProbeTT looks up the cursor's position in the transposition table.
func (e *Engine) ProbeTT(cur *position.Cursor) (TTEntry, bool) {
	return e.tt.Probe(cur.Key())
}

// Perft counts leaf nodes of the move generation tree to the given depth,
// for validating the move generator.
func (e *Engine) Perft(cur *position.Cursor, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := cur.LegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}

	var nodes uint64
	for _, m := range moves {
		if !cur.Make(m) {
			continue
		}
		nodes += e.Perft(cur, depth-1)
		cur.Unmake()
	}
	return nodes
}

// Evaluate returns the static evaluation of the cursor's position.
func (e *Engine) Evaluate(cur *position.Cursor) int {
	return e.eval(cur)
}

// IsMateScore reports whether a score encodes a forced mate.
func IsMateScore(score int) bool {
	return abs(score) > MateScore-MaxPly
}

// MovesToMate converts a mate score to full moves until mate, signed for
// the losing side.
func MovesToMate(score int) int {
	if score > 0 {
		return (MateScore - score + 1) / 2
	}
	return -(MateScore + score + 1) / 2
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if IsMateScore(score) {
		if score > 0 {
			return "Mate in " + itoa(MovesToMate(score))
		}
		return "Mated in " + itoa(-MovesToMate(score))
	}

	// Centipawns to pawns
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return sign + itoa(score/100) + "." + itoa(score%100)
}

// Simple integer to string (avoid fmt import)
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	s := ""
	for n > 0 {
		s = string('0'+byte(n%10)) + s
		n /= 10
	}
	return s
}
