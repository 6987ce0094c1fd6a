package position

import (
	"github.com/notnil/chess"
)

// Move is a compact move encoding: from and to squares, promotion piece and
// a few flags captured at generation time so the search never has to ask the
// board about a move it is merely ordering.
//
// Layout (low to high bits):
//
//	0-5   from square
//	6-11  to square
//	12-14 promotion piece type
//	15-17 moving piece type
//	18-20 captured piece type (0 = quiet move)
//	21    en passant
//	22    gives check
type Move uint32

// NoMove is the zero Move, used as a sentinel everywhere.
const NoMove Move = 0

func packMove(m *chess.Move, attacker, victim chess.PieceType) Move {
	mv := Move(m.S1()) | Move(m.S2())<<6 | Move(m.Promo())<<12 |
		Move(attacker)<<15 | Move(victim)<<18
	if m.HasTag(chess.EnPassant) {
		mv |= 1 << 21
	}
	if m.HasTag(chess.Check) {
		mv |= 1 << 22
	}
	return mv
}

// From returns the origin square (0..63, a1=0).
func (m Move) From() int { return int(m & 0x3f) }

// To returns the destination square (0..63).
func (m Move) To() int { return int(m>>6) & 0x3f }

// Promo returns the promotion piece type, or chess.NoPieceType.
func (m Move) Promo() chess.PieceType { return chess.PieceType(m>>12) & 0x7 }

// Attacker returns the type of the moving piece.
func (m Move) Attacker() chess.PieceType { return chess.PieceType(m>>15) & 0x7 }

// Victim returns the type of the captured piece, or chess.NoPieceType for a
// quiet move. En passant captures report a pawn victim.
func (m Move) Victim() chess.PieceType { return chess.PieceType(m>>18) & 0x7 }

// IsCapture reports whether the move captures a piece.
func (m Move) IsCapture() bool { return m.Victim() != chess.NoPieceType }

// IsEnPassant reports whether the move is an en passant capture.
func (m Move) IsEnPassant() bool { return m&(1<<21) != 0 }

// GivesCheck reports whether the move checks the opponent.
func (m Move) GivesCheck() bool { return m&(1<<22) != 0 }

// IsPromotion reports whether the move promotes a pawn.
func (m Move) IsPromotion() bool { return m.Promo() != chess.NoPieceType }

var promoLetters = map[chess.PieceType]string{
	chess.Queen:  "q",
	chess.Rook:   "r",
	chess.Bishop: "b",
	chess.Knight: "n",
}

// String renders the move in UCI long algebraic form (e2e4, e7e8q).
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	return squareName(m.From()) + squareName(m.To()) + promoLetters[m.Promo()]
}

func squareName(sq int) string {
	return string([]byte{byte('a' + sq%8), byte('1' + sq/8)})
}
