package position

import (
	"github.com/notnil/chess"
)

var (
	knightDeltas = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingDeltas   = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookDirs     = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirs   = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// kingAttacked reports whether the side to move's king is attacked. The
// generator tags check on moves it produces; this scan covers positions
// entered directly from a FEN, where no generating move exists.
func kingAttacked(pos *chess.Position) bool {
	var occ [64]chess.Piece
	us := pos.Turn()
	kingSq := -1
	for sq, p := range pos.Board().SquareMap() {
		occ[int(sq)] = p
		if p.Type() == chess.King && p.Color() == us {
			kingSq = int(sq)
		}
	}
	if kingSq < 0 {
		return false
	}
	return squareAttacked(&occ, kingSq, us.Other())
}

// squareAttacked reports whether sq is attacked by any piece of color by.
func squareAttacked(occ *[64]chess.Piece, sq int, by chess.Color) bool {
	f, r := sq%8, sq/8

	// Pawns attack one rank toward the enemy.
	pawnRank := r - 1
	if by == chess.Black {
		pawnRank = r + 1
	}
	for _, df := range [2]int{-1, 1} {
		if p, ok := pieceAt(occ, f+df, pawnRank); ok && p.Color() == by && p.Type() == chess.Pawn {
			return true
		}
	}

	for _, d := range knightDeltas {
		if p, ok := pieceAt(occ, f+d[0], r+d[1]); ok && p.Color() == by && p.Type() == chess.Knight {
			return true
		}
	}

	for _, d := range kingDeltas {
		if p, ok := pieceAt(occ, f+d[0], r+d[1]); ok && p.Color() == by && p.Type() == chess.King {
			return true
		}
	}

	if slideAttacked(occ, f, r, by, rookDirs, chess.Rook) {
		return true
	}
	return slideAttacked(occ, f, r, by, bishopDirs, chess.Bishop)
}

func slideAttacked(occ *[64]chess.Piece, f, r int, by chess.Color, dirs [4][2]int, slider chess.PieceType) bool {
	for _, d := range dirs {
		cf, cr := f+d[0], r+d[1]
		for cf >= 0 && cf <= 7 && cr >= 0 && cr <= 7 {
			if p := occ[cr*8+cf]; p != chess.NoPiece {
				if p.Color() == by && (p.Type() == slider || p.Type() == chess.Queen) {
					return true
				}
				break
			}
			cf += d[0]
			cr += d[1]
		}
	}
	return false
}

func pieceAt(occ *[64]chess.Piece, f, r int) (chess.Piece, bool) {
	if f < 0 || f > 7 || r < 0 || r > 7 {
		return chess.NoPiece, false
	}
	if p := occ[r*8+f]; p != chess.NoPiece {
		return p, true
	}
	return chess.NoPiece, false
}

// insufficientMaterial reports positions where no mate can be forced:
// bare kings, a lone minor piece, or same-coloured bishops only.
func insufficientMaterial(board *chess.Board) bool {
	minors := 0
	bishopsDark, bishopsLight := 0, 0
	total := 0
	for sq, p := range board.SquareMap() {
		total++
		switch p.Type() {
		case chess.King:
		case chess.Knight:
			minors++
		case chess.Bishop:
			minors++
			if (int(sq)/8+int(sq)%8)%2 == 0 {
				bishopsDark++
			} else {
				bishopsLight++
			}
		default:
			return false // pawn, rook or queen on the board
		}
	}
	switch total {
	case 2:
		return true
	case 3:
		return minors == 1
	case 4:
		// Two bishops on the same colour cannot mate.
		return bishopsDark+bishopsLight == 2 && (bishopsDark == 0 || bishopsLight == 0)
	}
	return false
}
