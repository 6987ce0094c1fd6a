package uci

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/seeker-chess/seeker/internal/engine"
	"github.com/seeker-chess/seeker/internal/eval"
	"github.com/seeker-chess/seeker/internal/storage"
)

func newTestUCI(t *testing.T) (*UCI, *bytes.Buffer) {
	t.Helper()
	eng := engine.NewEngine(1, eval.Evaluate)
	u := New(eng, nil, storage.DefaultConfig())
	var out bytes.Buffer
	u.SetOutput(&out)
	return u, &out
}

func TestHandshake(t *testing.T) {
	u, out := newTestUCI(t)

	u.Run(strings.NewReader("uci\nisready\nquit\n"))

	text := out.String()
	for _, want := range []string{"id name Seeker", "option name Hash", "uciok", "readyok"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestParseGoOptions(t *testing.T) {
	u, _ := newTestUCI(t)

	limits := u.parseGoOptions(strings.Fields(
		"depth 6 nodes 5000 wtime 60000 btime 50000 winc 100 binc 200 movestogo 30"))

	if limits.Depth != 6 || limits.Nodes != 5000 {
		t.Errorf("Depth=%d Nodes=%d", limits.Depth, limits.Nodes)
	}
	if limits.Clock[0] != time.Minute || limits.Clock[1] != 50*time.Second {
		t.Errorf("Clock = %v", limits.Clock)
	}
	if limits.Inc[0] != 100*time.Millisecond || limits.Inc[1] != 200*time.Millisecond {
		t.Errorf("Inc = %v", limits.Inc)
	}
	if limits.MovesToGo != 30 || limits.Infinite {
		t.Errorf("MovesToGo=%d Infinite=%v", limits.MovesToGo, limits.Infinite)
	}

	limits = u.parseGoOptions(strings.Fields("movetime 2500"))
	if limits.MoveTime != 2500*time.Millisecond {
		t.Errorf("MoveTime = %v", limits.MoveTime)
	}

	limits = u.parseGoOptions([]string{"infinite"})
	if !limits.Infinite {
		t.Error("infinite not parsed")
	}
}

func TestPositionCommand(t *testing.T) {
	u, _ := newTestUCI(t)

	u.handlePosition(strings.Fields("startpos moves e2e4 e7e5"))
	fen := u.ctrl.Position().FEN()
	if !strings.Contains(fen, "4p3/4P3") || !strings.Contains(fen, " w ") {
		t.Errorf("position after e2e4 e7e5: %s", fen)
	}

	u.handlePosition(strings.Fields("fen 6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"))
	if got := u.ctrl.Position().FEN(); got != "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1" {
		t.Errorf("fen position: %s", got)
	}

	// An illegal move aborts setup without replacing the position
	before := u.ctrl.Position().FEN()
	u.handlePosition(strings.Fields("startpos moves e2e5"))
	if got := u.ctrl.Position().FEN(); got != before {
		t.Errorf("illegal move list replaced the position: %s", got)
	}
}

// runScript feeds commands to Run one line at a time with a pause between
// them, so searches get wall-clock time before the next command lands.
func runScript(t *testing.T, u *UCI, pause time.Duration, lines ...string) {
	t.Helper()

	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		u.Run(pr)
	}()

	for _, line := range lines {
		if _, err := io.WriteString(pw, line+"\n"); err != nil {
			t.Fatalf("write %q: %v", line, err)
		}
		time.Sleep(pause)
	}
	pw.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestGoProducesBestMove(t *testing.T) {
	u, out := newTestUCI(t)

	runScript(t, u, 300*time.Millisecond,
		"position fen 6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1",
		"go depth 3",
		"quit")

	text := out.String()
	if !strings.Contains(text, "bestmove a1a8") {
		t.Errorf("expected bestmove a1a8, got:\n%s", text)
	}
	if !strings.Contains(text, "score mate 1") {
		t.Errorf("expected a mate score in info, got:\n%s", text)
	}
}

func TestGoInfiniteThenStop(t *testing.T) {
	u, out := newTestUCI(t)

	runScript(t, u, 100*time.Millisecond,
		"position startpos",
		"go infinite",
		"stop",
		"quit")

	if !strings.Contains(out.String(), "bestmove ") {
		t.Errorf("no bestmove after stop:\n%s", out.String())
	}
}

func TestGoMovetimeStreamsInfo(t *testing.T) {
	u, out := newTestUCI(t)

	// A timed search emits info lines while the worker is still storing into
	// the hash table; the info path must only use the streamed snapshots
	runScript(t, u, 700*time.Millisecond,
		"position startpos",
		"go movetime 400",
		"quit")

	text := out.String()
	if !strings.Contains(text, "info depth") {
		t.Errorf("no info lines during timed search:\n%s", text)
	}
	if !strings.Contains(text, "bestmove ") {
		t.Errorf("no bestmove after timed search:\n%s", text)
	}
}

func TestProbeOnlyWhenIdle(t *testing.T) {
	u, out := newTestUCI(t)

	runScript(t, u, 200*time.Millisecond,
		"position startpos",
		"go infinite",
		"probe",
		"stop",
		"probe",
		"quit")

	text := out.String()
	if !strings.Contains(text, "probe unavailable") {
		t.Errorf("probe during search was not rejected:\n%s", text)
	}
	// Once the search has stopped, the table is ours to read again
	if !strings.Contains(text, "tt hit") {
		t.Errorf("probe after stop found nothing:\n%s", text)
	}
}

func TestSetOptionHash(t *testing.T) {
	u, _ := newTestUCI(t)

	u.handleSetOption(strings.Fields("name Hash value 8"))
	if u.hashMB != 8 {
		t.Errorf("hashMB = %d, want 8", u.hashMB)
	}

	u.handleSetOption(strings.Fields("name Move Overhead value 250"))
	if u.moveOverhead != 250*time.Millisecond {
		t.Errorf("moveOverhead = %v, want 250ms", u.moveOverhead)
	}

	// Bad values are rejected without changing state
	u.handleSetOption(strings.Fields("name Hash value ten"))
	if u.hashMB != 8 {
		t.Errorf("hashMB changed on invalid value: %d", u.hashMB)
	}
}

func TestStalematedPositionSendsNullMove(t *testing.T) {
	u, out := newTestUCI(t)

	runScript(t, u, 200*time.Millisecond,
		"position fen k7/8/1Q6/8/8/8/8/4K3 b - - 0 1",
		"go depth 3",
		"quit")

	if !strings.Contains(out.String(), "bestmove 0000") {
		t.Errorf("expected bestmove 0000 for stalemate, got:\n%s", out.String())
	}
}
