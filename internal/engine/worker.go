package engine

import (
	"sync/atomic"
	"time"

	"github.com/seeker-chess/seeker/internal/position"
)

// Worker owns the state of one search: the cursor it explores, the PV table,
// the ordering heuristics and the node counter. A worker is driven by exactly
// one goroutine; cancellation arrives through the shared stop flag.
type Worker struct {
	cur      *position.Cursor
	tt       *TranspositionTable
	eval     Evaluator
	orderer  *MoveOrderer
	stopFlag *atomic.Bool

	pv        PVTable
	nodes     uint64
	nodeLimit uint64
	deadline  time.Time
}

// NewWorker creates a worker bound to a transposition table and evaluator.
func NewWorker(tt *TranspositionTable, eval Evaluator, stopFlag *atomic.Bool) *Worker {
	return &Worker{
		tt:       tt,
		eval:     eval,
		orderer:  NewMoveOrderer(),
		stopFlag: stopFlag,
	}
}

// Nodes returns the number of nodes searched.
func (w *Worker) Nodes() uint64 {
	return w.nodes
}

// Reset prepares the worker for a new search.
func (w *Worker) Reset() {
	w.nodes = 0
	w.nodeLimit = 0
	w.deadline = time.Time{}
	w.pv.length[0] = 0
}

// SetDeadline sets the hard wall-clock deadline for the search. The zero
// time means no deadline.
func (w *Worker) SetDeadline(t time.Time) {
	w.deadline = t
}

// SetNodeLimit caps the number of nodes searched. Zero means no limit.
func (w *Worker) SetNodeLimit(n uint64) {
	w.nodeLimit = n
}

// InitSearch binds the worker to the cursor for the coming search.
func (w *Worker) InitSearch(cur *position.Cursor) {
	w.cur = cur
	w.pv.length[0] = 0
}

// SearchDepth searches to the given depth within [alpha, beta] and returns
// the best root move with its score. The move is NoMove when the search was
// aborted before the first root move completed.
func (w *Worker) SearchDepth(depth, alpha, beta int) (position.Move, int) {
	score := w.negamax(depth, 0, alpha, beta)

	bestMove := position.NoMove
	if w.pv.length[0] > 0 {
		bestMove = w.pv.moves[0][0]
	}
	return bestMove, score
}

// GetPV returns the principal variation from the last search.
func (w *Worker) GetPV() []position.Move {
	pv := make([]position.Move, w.pv.length[0])
	for i := 0; i < w.pv.length[0]; i++ {
		pv[i] = w.pv.moves[0][i]
	}
	return pv
}

// checkUp polls the stop flag, deadline and node limit. It promotes deadline
// and node-limit expiry into the stop flag so the whole tree unwinds.
func (w *Worker) checkUp() bool {
	if w.stopFlag.Load() {
		return true
	}
	if !w.deadline.IsZero() && time.Now().After(w.deadline) {
		w.stopFlag.Store(true)
		return true
	}
	if w.nodeLimit > 0 && w.nodes >= w.nodeLimit {
		w.stopFlag.Store(true)
		return true
	}
	return false
}

// negamax is the main alpha-beta search. Scores are relative to the side to
// move. An aborted subtree returns 0; the caller discards the result by
// checking the stop flag, so the bogus score never reaches the root.
func (w *Worker) negamax(depth, ply, alpha, beta int) int {
	// MaxPly-1 because pv.length[ply+1] is read below
	if ply >= MaxPly-1 {
		return w.eval(w.cur)
	}

	w.nodes++
	if w.nodes&checkInterval == 0 && w.checkUp() {
		return 0
	}

	// The parent copies pv.length[ply] even when this node drops into
	// quiescence, so it is initialised before anything can return.
	w.pv.length[ply] = ply

	inCheck := w.cur.InCheck()

	// Check extension: never enter quiescence while in check
	if inCheck {
		depth++
	}

	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}

	isRoot := ply == 0

	if !isRoot && w.cur.IsDraw() {
		return 0
	}

	// Transposition table probe. The stored move seeds ordering at every
	// node; cutoffs are only taken away from the root so the root always
	// produces a PV.
	key := w.cur.Key()
	ttMove := position.NoMove
	if entry, ok := w.tt.Probe(key); ok {
		ttMove = entry.BestMove
		if !isRoot && int(entry.Depth) >= depth {
			score := AdjustScoreFromTT(int(entry.Score), ply)
			switch entry.Flag {
			case TTExact:
				return score
			case TTLowerBound:
				if score >= beta {
					return score
				}
			case TTUpperBound:
				if score <= alpha {
					return score
				}
			}
		}
	}

	moves := w.cur.LegalMoves()
	if len(moves) == 0 {
		if inCheck {
			return -MateScore + ply // mated here, later mates score worse
		}
		return 0 // stalemate
	}

	scores := w.orderer.ScoreMoves(moves, ply, ttMove)

	bestScore := -Infinity
	bestMove := position.NoMove
	flag := TTUpperBound
	searched := 0

	for i := range moves {
		PickMove(moves, scores, i)
		move := moves[i]
		if !w.cur.Make(move) {
			continue
		}

		var score int
		if searched == 0 {
			// Principal variation: full window
			score = -w.negamax(depth-1, ply+1, -beta, -alpha)
		} else {
			// Late move reductions for quiet moves ordered far down
			reduction := 0
			if searched > lmrMoveCount && depth >= lmrMinDepth &&
				!inCheck && !move.IsCapture() && !move.IsPromotion() {
				reduction = 1
			}

			// Null-window scout, re-search on improvement
			score = -w.negamax(depth-1-reduction, ply+1, -alpha-1, -alpha)
			if score > alpha && (reduction > 0 || score < beta) {
				score = -w.negamax(depth-1, ply+1, -beta, -alpha)
			}
		}
		w.cur.Unmake()
		searched++

		if w.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move
		}
		if score > alpha {
			alpha = score
			flag = TTExact

			// Extend the PV with this move
			w.pv.moves[ply][ply] = move
			for j := ply + 1; j < w.pv.length[ply+1]; j++ {
				w.pv.moves[ply][j] = w.pv.moves[ply+1][j]
			}
			w.pv.length[ply] = w.pv.length[ply+1]

			if score >= beta {
				flag = TTLowerBound
				if !move.IsCapture() && !move.IsPromotion() {
					w.orderer.UpdateKillers(move, ply)
					w.orderer.UpdateHistory(move, depth, true)
				}
				break
			}
		}
	}

	w.tt.Store(key, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)
	return bestScore
}

// quiescence searches captures and promotions until the position is quiet,
// so the evaluation is never taken in the middle of an exchange.
func (w *Worker) quiescence(ply, alpha, beta int) int {
	w.nodes++
	if w.nodes&checkInterval == 0 && w.checkUp() {
		return 0
	}

	standPat := w.eval(w.cur)
	if ply >= MaxPly-1 {
		return standPat
	}
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}

	moves := w.cur.Captures()
	scores := w.orderer.ScoreMoves(moves, ply, position.NoMove)

	for i := range moves {
		PickMove(moves, scores, i)
		move := moves[i]

		// Delta pruning: skip captures that cannot raise alpha even with
		// a generous margin. Promotions change material too much to prune.
		if !move.IsPromotion() &&
			standPat+pieceValues[move.Victim()]+deltaMargin <= alpha {
			continue
		}

		if !w.cur.Make(move) {
			continue
		}
		score := -w.quiescence(ply+1, -beta, -alpha)
		w.cur.Unmake()

		if w.stopFlag.Load() {
			return 0
		}

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}

	return alpha
}
