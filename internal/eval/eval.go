// Package eval provides the default static evaluator: material plus
// piece-square tables, with a separate king table for the endgame. Scores
// are centipawns from the side to move's perspective.
package eval

import (
	"github.com/notnil/chess"

	"github.com/seeker-chess/seeker/internal/position"
)

// Material values indexed by chess.PieceType (King, Queen, Rook, Bishop,
// Knight, Pawn). The king carries no material value.
var pieceValues = [7]int{0, 0, 900, 500, 330, 320, 100}

var pawnTable = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, -20, -20, 10, 10, 5,
	5, -5, -10, 0, 0, -10, -5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, 5, 10, 25, 25, 10, 5, 5,
	10, 10, 20, 30, 30, 20, 10, 10,
	50, 50, 50, 50, 50, 50, 50, 50,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightTable = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopTable = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookTable = [64]int{
	0, 0, 0, 5, 5, 0, 0, 0,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	5, 10, 10, 10, 10, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var queenTable = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-10, 5, 5, 5, 5, 5, 0, -10,
	0, 0, 5, 5, 5, 5, 0, -5,
	-5, 0, 5, 5, 5, 5, 0, -5,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidTable = [64]int{
	20, 30, 10, 0, 0, 10, 30, 20,
	20, 20, 0, 0, 0, 0, 20, 20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
}

var kingEndTable = [64]int{
	-50, -30, -30, -30, -30, -30, -30, -50,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-50, -40, -30, -20, -20, -30, -40, -50,
}

// endgameMaterial is the non-pawn material threshold below which the king
// is scored with the endgame table.
const endgameMaterial = 1600

// Evaluate returns the static score of the cursor's position, relative to
// the side to move.
func Evaluate(cur *position.Cursor) int {
	squares := cur.Position().Board().SquareMap()

	nonPawnMaterial := 0
	for _, p := range squares {
		t := p.Type()
		if t != chess.Pawn && t != chess.King {
			nonPawnMaterial += pieceValues[t]
		}
	}
	endgame := nonPawnMaterial <= endgameMaterial

	score := 0
	for sq, p := range squares {
		s := pieceScore(int(sq), p, endgame)
		if p.Color() == chess.White {
			score += s
		} else {
			score -= s
		}
	}

	if cur.Turn() == chess.Black {
		return -score
	}
	return score
}

func pieceScore(sq int, p chess.Piece, endgame bool) int {
	if p.Color() == chess.Black {
		sq ^= 56 // mirror ranks so tables read from white's side
	}
	switch p.Type() {
	case chess.Pawn:
		return pieceValues[chess.Pawn] + pawnTable[sq]
	case chess.Knight:
		return pieceValues[chess.Knight] + knightTable[sq]
	case chess.Bishop:
		return pieceValues[chess.Bishop] + bishopTable[sq]
	case chess.Rook:
		return pieceValues[chess.Rook] + rookTable[sq]
	case chess.Queen:
		return pieceValues[chess.Queen] + queenTable[sq]
	case chess.King:
		if endgame {
			return kingEndTable[sq]
		}
		return kingMidTable[sq]
	}
	return 0
}
