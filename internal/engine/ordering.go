package engine

import (
	"github.com/notnil/chess"

	"github.com/seeker-chess/seeker/internal/position"
)

// Move ordering priorities
const (
	TTMoveScore     = 10000000 // TT move gets highest priority
	GoodCaptureBase = 1000000  // Base score for captures
	PromotionBase   = 999000   // Non-capture promotions, just below captures
	KillerScore1    = 900000   // First killer move
	KillerScore2    = 800000   // Second killer move
)

// Material values indexed by chess.PieceType, used for MVV-LVA ordering and
// delta pruning in quiescence.
var pieceValues = [7]int{0, 20000, 900, 500, 330, 320, 100}

// MoveOrderer handles move ordering for the search.
type MoveOrderer struct {
	// Killer moves (quiet moves that caused beta cutoffs)
	killers [MaxPly][2]position.Move

	// History heuristic (indexed by [from][to])
	history [64][64]int
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets the move orderer for a new search.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = position.NoMove
		mo.killers[i][1] = position.NoMove
	}

	// Age history scores (divide by 2 to prevent overflow)
	for i := range mo.history {
		for j := range mo.history[i] {
			mo.history[i][j] /= 2
		}
	}
}

// ScoreMoves assigns scores to moves for ordering.
func (mo *MoveOrderer) ScoreMoves(moves []position.Move, ply int, ttMove position.Move) []int {
	scores := make([]int, len(moves))
	for i, m := range moves {
		scores[i] = mo.scoreMove(m, ply, ttMove)
	}
	return scores
}

// scoreMove returns the ordering score for a single move.
func (mo *MoveOrderer) scoreMove(m position.Move, ply int, ttMove position.Move) int {
	// TT move gets highest priority
	if m != position.NoMove && m == ttMove {
		return TTMoveScore
	}

	// Captures: MVV-LVA (most valuable victim, least valuable attacker)
	if m.IsCapture() {
		score := GoodCaptureBase + pieceValues[m.Victim()]*10 - pieceValues[m.Attacker()]
		if m.IsPromotion() {
			score += pieceValues[m.Promo()]
		}
		return score
	}

	// Promotions (non-capture)
	if m.IsPromotion() {
		return PromotionBase + pieceValues[m.Promo()]
	}

	// Killer moves
	if m == mo.killers[ply][0] {
		return KillerScore1
	}
	if m == mo.killers[ply][1] {
		return KillerScore2
	}

	// History heuristic for quiet moves
	return mo.history[m.From()][m.To()]
}

// PickMove selects the best remaining move and swaps it to position index.
// This allows lazy move sorting (only sort as much as needed). Ties keep the
// generator's order, so ordering is deterministic for identical positions.
func PickMove(moves []position.Move, scores []int, index int) {
	best := index
	for j := index + 1; j < len(moves); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves[index], moves[best] = moves[best], moves[index]
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers adds a killer move at the given ply. Captures are never
// stored; the caller filters them.
func (mo *MoveOrderer) UpdateKillers(m position.Move, ply int) {
	if ply >= MaxPly {
		return
	}

	// Don't store if it's already the first killer
	if mo.killers[ply][0] == m {
		return
	}

	// Shift killers
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory updates the history score for a move.
func (mo *MoveOrderer) UpdateHistory(m position.Move, depth int, isGood bool) {
	from := m.From()
	to := m.To()

	bonus := depth * depth
	if isGood {
		mo.history[from][to] += bonus
		if mo.history[from][to] > 400000 {
			// Scale down all history scores to prevent overflow
			for i := range mo.history {
				for j := range mo.history[i] {
					mo.history[i][j] /= 2
				}
			}
		}
	} else {
		mo.history[from][to] -= bonus
		if mo.history[from][to] < -400000 {
			mo.history[from][to] = -400000
		}
	}
}

// GetHistoryScore returns the history score for a move.
func (mo *MoveOrderer) GetHistoryScore(m position.Move) int {
	return mo.history[m.From()][m.To()]
}

// PieceValue returns the material value of a piece type in centipawns.
func PieceValue(t chess.PieceType) int {
	return pieceValues[t]
}
