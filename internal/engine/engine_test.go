package engine

import (
	"testing"
	"time"

	"github.com/seeker-chess/seeker/internal/eval"
	"github.com/seeker-chess/seeker/internal/position"
)

func newTestEngine(t *testing.T, ttMB int) *Engine {
	t.Helper()
	return NewEngine(ttMB, eval.Evaluate)
}

func mustCursor(t *testing.T, fen string) *position.Cursor {
	t.Helper()
	cur, err := position.NewCursor(fen)
	if err != nil {
		t.Fatalf("%s: %v", fen, err)
	}
	return cur
}

func isLegal(cur *position.Cursor, m position.Move) bool {
	for _, lm := range cur.LegalMoves() {
		if lm == m {
			return true
		}
	}
	return false
}

func TestSearchBasic(t *testing.T) {
	eng := newTestEngine(t, 16)
	cur := position.Start()

	move, score := eng.SearchWithLimits(cur, SearchLimits{Depth: 4})
	if move == position.NoMove {
		t.Fatal("search returned NoMove for the starting position")
	}
	if !isLegal(cur, move) {
		t.Fatalf("search returned illegal move %s", move)
	}
	if cur.Height() != 0 {
		t.Error("search left the cursor off its root")
	}
	t.Logf("best move: %s (score %d, %d nodes)", move, score, eng.searcher.Nodes())
}

func TestMateInOne(t *testing.T) {
	eng := newTestEngine(t, 16)
	cur := mustCursor(t, "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1")

	move, score := eng.SearchWithLimits(cur, SearchLimits{Depth: 4})
	if move.String() != "a1a8" {
		t.Errorf("best move = %s, want a1a8", move)
	}
	if score != MateScore-1 {
		t.Errorf("score = %d, want %d", score, MateScore-1)
	}
	if !IsMateScore(score) || MovesToMate(score) != 1 {
		t.Errorf("score %d not reported as mate in 1", score)
	}
}

func TestMateInTwoScoredShorterFirst(t *testing.T) {
	eng := newTestEngine(t, 16)
	cur := mustCursor(t, "k7/8/8/8/8/8/7R/6RK w - - 0 1")

	move, score := eng.SearchWithLimits(cur, SearchLimits{Depth: 6})
	if score != MateScore-3 {
		t.Errorf("score = %d, want %d (mate in 2)", score, MateScore-3)
	}
	if MovesToMate(score) != 2 {
		t.Errorf("MovesToMate(%d) = %d, want 2", score, MovesToMate(score))
	}
	if !isLegal(cur, move) {
		t.Errorf("returned illegal move %s", move)
	}

	// A mate in 1 must score strictly better than this mate in 2
	if MateScore-1 <= score {
		t.Error("mate distance not reflected in score")
	}
}

func TestFixedDepthDeterminism(t *testing.T) {
	fen := "r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4"

	m1, s1 := newTestEngine(t, 16).SearchWithLimits(mustCursor(t, fen), SearchLimits{Depth: 5})
	m2, s2 := newTestEngine(t, 16).SearchWithLimits(mustCursor(t, fen), SearchLimits{Depth: 5})

	if m1 != m2 || s1 != s2 {
		t.Errorf("fixed-depth search not deterministic: %s/%d vs %s/%d", m1, s1, m2, s2)
	}
}

func TestDisabledTableStillFindsMate(t *testing.T) {
	fen := "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"

	withTT, sWith := newTestEngine(t, 16).SearchWithLimits(mustCursor(t, fen), SearchLimits{Depth: 4})
	noTT, sNone := newTestEngine(t, 0).SearchWithLimits(mustCursor(t, fen), SearchLimits{Depth: 4})

	if withTT != noTT {
		t.Errorf("best move differs with table disabled: %s vs %s", withTT, noTT)
	}
	if sWith != sNone {
		t.Errorf("score differs with table disabled: %d vs %d", sWith, sNone)
	}
}

func TestNodeLimit(t *testing.T) {
	eng := newTestEngine(t, 16)
	cur := position.Start()

	const limit = 20000
	move, _ := eng.SearchWithLimits(cur, SearchLimits{Nodes: limit})
	if move == position.NoMove {
		t.Fatal("node-limited search returned NoMove")
	}

	// The limit is polled, not exact; allow one polling interval of overshoot
	if nodes := eng.searcher.Nodes(); nodes > limit+checkInterval+1 {
		t.Errorf("searched %d nodes with limit %d", nodes, limit)
	}
}

func TestTinyBudgetStillMoves(t *testing.T) {
	eng := newTestEngine(t, 16)
	cur := position.Start()

	move, _ := eng.SearchWithLimits(cur, SearchLimits{MoveTime: time.Millisecond})
	if move == position.NoMove {
		t.Error("1ms budget returned NoMove")
	}
	if !isLegal(cur, move) {
		t.Errorf("1ms budget returned illegal move %s", move)
	}
}

func TestPVIsPlayable(t *testing.T) {
	eng := newTestEngine(t, 16)
	cur := mustCursor(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")

	var lastPV []position.Move
	eng.OnInfo = func(info SearchInfo) {
		if len(info.PV) > 0 {
			lastPV = info.PV
		}
	}
	eng.SearchWithLimits(cur, SearchLimits{Depth: 4})

	if len(lastPV) == 0 {
		t.Fatal("no PV reported")
	}
	replay := cur.Clone()
	for i, m := range lastPV {
		if !replay.Make(m) {
			t.Fatalf("PV move %d (%s) is not legal in its position", i, m)
		}
	}
}

func TestInfoPerDepth(t *testing.T) {
	eng := newTestEngine(t, 16)
	cur := position.Start()

	var depths []int
	eng.OnInfo = func(info SearchInfo) {
		depths = append(depths, info.Depth)
	}
	eng.SearchWithLimits(cur, SearchLimits{Depth: 4})

	if len(depths) != 4 {
		t.Fatalf("got %d info reports, want 4: %v", len(depths), depths)
	}
	for i, d := range depths {
		if d != i+1 {
			t.Errorf("report %d has depth %d, want %d", i, d, i+1)
		}
	}
}

func TestSearchStalematePosition(t *testing.T) {
	eng := newTestEngine(t, 16)
	cur := mustCursor(t, "k7/8/1Q6/8/8/8/8/4K3 b - - 0 1")

	move, _ := eng.SearchWithLimits(cur, SearchLimits{Depth: 3})
	if move != position.NoMove {
		t.Errorf("stalemated position returned move %s", move)
	}
}

func TestPerft(t *testing.T) {
	eng := newTestEngine(t, 1)

	cases := []struct {
		fen   string
		depth int
		nodes uint64
	}{
		{position.StartFEN, 1, 20},
		{position.StartFEN, 2, 400},
		{position.StartFEN, 3, 8902},
		{"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", 1, 48},
		{"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", 2, 2039},
	}
	for _, c := range cases {
		cur := mustCursor(t, c.fen)
		if got := eng.Perft(cur, c.depth); got != c.nodes {
			t.Errorf("perft(%d) of %q = %d, want %d", c.depth, c.fen, got, c.nodes)
		}
	}
}

func TestAspirationWindowDoubleFail(t *testing.T) {
	var windows [][2]int
	search := func(alpha, beta int) (position.Move, int) {
		windows = append(windows, [2]int{alpha, beta})
		switch len(windows) {
		case 1:
			return position.Move(1), alpha - 10 // fail low
		case 2:
			return position.Move(2), beta + 10 // then fail high
		default:
			return position.Move(3), 42
		}
	}

	move, score := aspirate(100, func() bool { return false }, search)

	// Low fail, high fail, then a mandatory full-window search whose result
	// is the one reported; a bound from a partial window is never returned
	if len(windows) != 3 {
		t.Fatalf("searched %d times, want 3: %v", len(windows), windows)
	}
	if windows[0] != [2]int{100 - initialWindow, 100 + initialWindow} {
		t.Errorf("first window = %v", windows[0])
	}
	if windows[1] != [2]int{-Infinity, 100 + initialWindow} {
		t.Errorf("window after fail low = %v", windows[1])
	}
	if windows[2] != [2]int{-Infinity, Infinity} {
		t.Errorf("window after both fails = %v, want full", windows[2])
	}
	if move != position.Move(3) || score != 42 {
		t.Errorf("returned %v/%d, want the full-window result", move, score)
	}
}

func TestAspirationReturnsOnStop(t *testing.T) {
	calls := 0
	search := func(alpha, beta int) (position.Move, int) {
		calls++
		return position.NoMove, 0
	}

	aspirate(0, func() bool { return true }, search)
	if calls != 1 {
		t.Errorf("stopped aspiration searched %d times, want 1", calls)
	}
}

func TestScoreToString(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{0, "0.0"},
		{150, "1.50"},
		{-321, "-3.21"},
		{MateScore - 1, "Mate in 1"},
		{MateScore - 5, "Mate in 3"},
		{-(MateScore - 2), "Mated in 1"},
	}
	for _, c := range cases {
		if got := ScoreToString(c.score); got != c.want {
			t.Errorf("ScoreToString(%d) = %q, want %q", c.score, got, c.want)
		}
	}
}
