// Package position adapts the notnil/chess move generation library to the
// search engine: a mutable cursor over one board state with stack-disciplined
// make/unmake, a 64-bit transposition key, and draw detection.
package position

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/notnil/chess"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// frame is one level of the make/unmake stack. Positions produced by the
// move generator are never mutated, so frames share them freely.
type frame struct {
	pos     *chess.Position
	key     uint64
	clock   int // halfmove clock for the fifty-move rule
	inCheck bool
}

// Cursor is a mutable cursor over a single board state. Make pushes the
// updated position, Unmake pops it, so the position is restored exactly on
// every exit path. A cursor is owned by one goroutine at a time.
type Cursor struct {
	stack   []frame
	basePly int // game ply at the root, from the FEN fullmove counter
}

// NewCursor creates a cursor from a FEN string.
func NewCursor(fen string) (*Cursor, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	game := chess.NewGame(opt)
	pos := game.Position()

	clock := 0
	fullmove := 1
	fields := strings.Fields(fen)
	if len(fields) >= 6 {
		if n, err := strconv.Atoi(fields[4]); err == nil {
			clock = n
		}
		if n, err := strconv.Atoi(fields[5]); err == nil && n >= 1 {
			fullmove = n
		}
	}
	base := (fullmove - 1) * 2
	if pos.Turn() == chess.Black {
		base++
	}

	c := &Cursor{basePly: base}
	c.stack = append(c.stack, frame{
		pos:     pos,
		key:     keyOf(pos),
		clock:   clock,
		inCheck: kingAttacked(pos),
	})
	return c, nil
}

// Start returns a cursor at the standard initial position.
func Start() *Cursor {
	c, err := NewCursor(StartFEN)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Cursor) top() *frame { return &c.stack[len(c.stack)-1] }

// Position exposes the underlying position, primarily for the evaluator.
func (c *Cursor) Position() *chess.Position { return c.top().pos }

// Turn returns the side to move.
func (c *Cursor) Turn() chess.Color { return c.top().pos.Turn() }

// Key returns the 64-bit transposition key of the current position, derived
// from the generator's 16-byte position hash.
func (c *Cursor) Key() uint64 { return c.top().key }

// InCheck reports whether the side to move is in check.
func (c *Cursor) InCheck() bool { return c.top().inCheck }

// FEN returns the current position in FEN notation.
func (c *Cursor) FEN() string { return c.top().pos.String() }

// GamePly returns the game ply of the current position, counting from the
// root FEN's move counter. Used for time allocation heuristics.
func (c *Cursor) GamePly() int { return c.basePly + len(c.stack) - 1 }

// Height returns the number of moves made on this cursor since its root.
func (c *Cursor) Height() int { return len(c.stack) - 1 }

// LegalMoves returns the legal moves of the current position in the
// generator's order, which is stable for identical positions.
func (c *Cursor) LegalMoves() []Move {
	pos := c.top().pos
	board := pos.Board()
	valid := pos.ValidMoves()
	moves := make([]Move, 0, len(valid))
	for _, vm := range valid {
		attacker := chess.NoPieceType
		if p := board.Piece(vm.S1()); p != chess.NoPiece {
			attacker = p.Type()
		}
		victim := chess.NoPieceType
		if vm.HasTag(chess.EnPassant) {
			victim = chess.Pawn
		} else if p := board.Piece(vm.S2()); p != chess.NoPiece {
			victim = p.Type()
		}
		moves = append(moves, packMove(vm, attacker, victim))
	}
	return moves
}

// Captures returns the legal captures and promotions, for quiescence.
func (c *Cursor) Captures() []Move {
	all := c.LegalMoves()
	moves := make([]Move, 0, len(all))
	for _, m := range all {
		if m.IsCapture() || m.IsPromotion() {
			moves = append(moves, m)
		}
	}
	return moves
}

// findValid matches a compact move against the generator's legal moves.
// A nil result means the move is not legal in the current position.
func (c *Cursor) findValid(m Move) *chess.Move {
	for _, vm := range c.top().pos.ValidMoves() {
		if int(vm.S1()) == m.From() && int(vm.S2()) == m.To() && vm.Promo() == m.Promo() {
			return vm
		}
	}
	return nil
}

// Make applies a move and pushes the resulting position. It returns false,
// leaving the cursor unchanged, when the generator rejects the move.
func (c *Cursor) Make(m Move) bool {
	vm := c.findValid(m)
	if vm == nil {
		return false
	}
	t := c.top()
	next := t.pos.Update(vm)

	clock := t.clock + 1
	if m.IsCapture() || m.Attacker() == chess.Pawn {
		clock = 0
	}
	c.stack = append(c.stack, frame{
		pos:     next,
		key:     keyOf(next),
		clock:   clock,
		inCheck: vm.HasTag(chess.Check),
	})
	return true
}

// Unmake pops the last made move. Unmaking past the root is a no-op.
func (c *Cursor) Unmake() {
	if len(c.stack) > 1 {
		c.stack = c.stack[:len(c.stack)-1]
	}
}

// IsDraw reports a draw by the fifty-move rule, repetition within this
// cursor's history, or insufficient mating material. A single repetition
// counts as a draw, the usual search pragmatism.
func (c *Cursor) IsDraw() bool {
	t := c.top()
	if t.clock >= 100 {
		return true
	}
	count := 0
	for i := range c.stack {
		if c.stack[i].key == t.key {
			count++
			if count >= 2 {
				return true
			}
		}
	}
	return insufficientMaterial(t.pos.Board())
}

// Terminal reports checkmate or stalemate in the current position.
func (c *Cursor) Terminal() (checkmate, stalemate bool) {
	switch c.top().pos.Status() {
	case chess.Checkmate:
		return true, false
	case chess.Stalemate:
		return false, true
	}
	return false, false
}

// ApplyUCI makes a move given in UCI long algebraic notation.
func (c *Cursor) ApplyUCI(s string) error {
	if len(s) < 4 {
		return fmt.Errorf("invalid move %q", s)
	}
	from, ok1 := parseSquare(s[0:2])
	to, ok2 := parseSquare(s[2:4])
	if !ok1 || !ok2 {
		return fmt.Errorf("invalid move %q", s)
	}
	promo := chess.NoPieceType
	if len(s) >= 5 {
		switch s[4] {
		case 'q':
			promo = chess.Queen
		case 'r':
			promo = chess.Rook
		case 'b':
			promo = chess.Bishop
		case 'n':
			promo = chess.Knight
		default:
			return fmt.Errorf("invalid promotion in %q", s)
		}
	}
	for _, m := range c.LegalMoves() {
		if m.From() == from && m.To() == to && m.Promo() == promo {
			if !c.Make(m) {
				return fmt.Errorf("move %q rejected", s)
			}
			return nil
		}
	}
	return fmt.Errorf("illegal move %q", s)
}

func parseSquare(s string) (int, bool) {
	f := int(s[0] - 'a')
	r := int(s[1] - '1')
	if f < 0 || f > 7 || r < 0 || r > 7 {
		return 0, false
	}
	return r*8 + f, true
}

// Clone returns an independent cursor at the same position with the same
// history. Frames share immutable positions, so this is cheap.
func (c *Cursor) Clone() *Cursor {
	stack := make([]frame, len(c.stack))
	copy(stack, c.stack)
	return &Cursor{stack: stack, basePly: c.basePly}
}

func keyOf(pos *chess.Position) uint64 {
	h := pos.Hash()
	return xxhash.Sum64(h[:])
}
