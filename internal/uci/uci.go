// Package uci implements the Universal Chess Interface protocol on top of
// the search controller. Protocol output goes to the writer (stdout in
// production); diagnostics go to the standard logger on stderr.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/seeker-chess/seeker/internal/engine"
	"github.com/seeker-chess/seeker/internal/position"
	"github.com/seeker-chess/seeker/internal/storage"
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	eng   *engine.Engine
	ctrl  *engine.Controller
	store *storage.Storage // nil when persistence is unavailable

	hashMB       int
	moveOverhead time.Duration

	out io.Writer

	// Session statistics, recorded on quit
	sessionStart time.Time
	searches     int
	totalNodes   uint64
	maxDepth     int
	thinkTime    time.Duration

	// Closed when the goroutine draining the current search exits
	searchDone chan struct{}

	// CPU profiling
	profileFile *os.File
}

// New creates a UCI protocol handler. store may be nil.
func New(eng *engine.Engine, store *storage.Storage, cfg *storage.Config) *UCI {
	return &UCI{
		eng:          eng,
		ctrl:         engine.NewController(eng),
		store:        store,
		hashMB:       cfg.HashMB,
		moveOverhead: cfg.MoveOverhead(),
		out:          os.Stdout,
		sessionStart: time.Now(),
	}
}

// SetOutput redirects protocol output, used by tests.
func (u *UCI) SetOutput(w io.Writer) {
	u.out = w
}

// Run reads commands from r until quit or EOF.
func (u *UCI) Run(r io.Reader) {
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			fmt.Fprintln(u.out, "readyok")
		case "ucinewgame":
			u.ctrl.NewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.ctrl.Stop()
		case "quit":
			u.handleQuit()
			return
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d":
			u.handleDisplay()
		case "eval":
			u.handleEval()
		case "probe":
			u.handleProbe()
		case "perft":
			u.handlePerft(args)
		}
	}
	u.handleQuit()
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	fmt.Fprintln(u.out, "id name Seeker")
	fmt.Fprintln(u.out, "id author the Seeker developers")
	fmt.Fprintln(u.out)
	fmt.Fprintf(u.out, "option name Hash type spin default %d min 0 max 4096\n", u.hashMB)
	fmt.Fprintf(u.out, "option name Move Overhead type spin default %d min 0 max 5000\n", u.moveOverhead.Milliseconds())
	fmt.Fprintln(u.out, "uciok")
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	var cur *position.Cursor
	movesIdx := -1
	for i, arg := range args {
		if arg == "moves" {
			movesIdx = i
			break
		}
	}

	switch args[0] {
	case "startpos":
		cur = position.Start()
	case "fen":
		fenEnd := len(args)
		if movesIdx >= 0 {
			fenEnd = movesIdx
		}
		fen := strings.Join(args[1:fenEnd], " ")
		var err error
		cur, err = position.NewCursor(fen)
		if err != nil {
			log.Printf("invalid fen %q: %v", fen, err)
			return
		}
	default:
		return
	}

	// The moves become the cursor's root history, so repetitions across the
	// game/search boundary are seen by draw detection.
	if movesIdx >= 0 {
		for _, moveStr := range args[movesIdx+1:] {
			if err := cur.ApplyUCI(moveStr); err != nil {
				log.Printf("position: %v", err)
				return
			}
		}
	}

	u.ctrl.SetPosition(cur)
}

// handleGo starts a search and streams its results.
func (u *UCI) handleGo(args []string) {
	// Drain the previous search's goroutine so the stats fields have a
	// single writer at a time.
	u.ctrl.Stop()
	if u.searchDone != nil {
		<-u.searchDone
	}

	limits := u.parseGoOptions(args)
	results := u.ctrl.Start(limits)
	root := u.ctrl.Position()

	u.searches++
	done := make(chan struct{})
	u.searchDone = done

	go func() {
		defer close(done)
		for r := range results {
			if !r.Final {
				u.sendInfo(root, r)
				continue
			}

			u.totalNodes += r.Nodes
			u.thinkTime += r.Time
			if r.Depth > u.maxDepth {
				u.maxDepth = r.Depth
			}

			u.sendBestMove(root, r.Move)
		}
	}()
}

// sendBestMove emits the final move, falling back to the first legal move
// if the search produced nothing usable.
func (u *UCI) sendBestMove(root *position.Cursor, move position.Move) {
	legal := root.LegalMoves()

	if move != position.NoMove {
		for _, m := range legal {
			if m == move {
				fmt.Fprintf(u.out, "bestmove %s\n", move)
				return
			}
		}
		log.Printf("search returned illegal move %s, using fallback", move)
	}

	if len(legal) > 0 {
		fmt.Fprintf(u.out, "bestmove %s\n", legal[0])
		return
	}
	// No legal moves: checkmate or stalemate
	fmt.Fprintln(u.out, "bestmove 0000")
}

// parseGoOptions parses "go" command arguments into search limits.
func (u *UCI) parseGoOptions(args []string) engine.SearchLimits {
	limits := engine.SearchLimits{MoveOverhead: u.moveOverhead}

	ms := func(s string) time.Duration {
		n, _ := strconv.Atoi(s)
		return time.Duration(n) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		if args[i] == "infinite" {
			limits.Infinite = true
			continue
		}
		if i+1 >= len(args) {
			break
		}
		switch args[i] {
		case "depth":
			limits.Depth, _ = strconv.Atoi(args[i+1])
			i++
		case "nodes":
			limits.Nodes, _ = strconv.ParseUint(args[i+1], 10, 64)
			i++
		case "movetime":
			limits.MoveTime = ms(args[i+1])
			i++
		case "wtime":
			limits.Clock[0] = ms(args[i+1])
			i++
		case "btime":
			limits.Clock[1] = ms(args[i+1])
			i++
		case "winc":
			limits.Inc[0] = ms(args[i+1])
			i++
		case "binc":
			limits.Inc[1] = ms(args[i+1])
			i++
		case "movestogo":
			limits.MovesToGo, _ = strconv.Atoi(args[i+1])
			i++
		}
	}

	return limits
}

// sendInfo outputs one search iteration in UCI format.
func (u *UCI) sendInfo(root *position.Cursor, r engine.SearchResult) {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", r.Depth))

	if engine.IsMateScore(r.Score) {
		parts = append(parts, fmt.Sprintf("score mate %d", engine.MovesToMate(r.Score)))
	} else {
		parts = append(parts, fmt.Sprintf("score cp %d", r.Score))
	}

	parts = append(parts, fmt.Sprintf("nodes %d", r.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", r.Time.Milliseconds()))

	if r.Time > 0 {
		nps := uint64(float64(r.Nodes) / r.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}

	// The worker samples hashfull itself; querying the table from here would
	// race with its stores.
	if r.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", r.HashFull))
	}

	// Replay the PV so an ordering bug can never leak an illegal line
	if len(r.PV) > 0 {
		test := root.Clone()
		valid := make([]string, 0, len(r.PV))
		for _, m := range r.PV {
			if !test.Make(m) {
				break
			}
			valid = append(valid, m.String())
		}
		if len(valid) > 0 {
			parts = append(parts, "pv "+strings.Join(valid, " "))
		}
	}

	fmt.Fprintf(u.out, "info %s\n", strings.Join(parts, " "))
}

// handleQuit cancels any running search and records the session.
func (u *UCI) handleQuit() {
	u.ctrl.Stop()
	if !u.ctrl.WaitIdle(2 * time.Second) {
		log.Printf("search did not stop before shutdown")
	}
	if u.searchDone != nil {
		<-u.searchDone
		u.searchDone = nil
	}

	if u.profileFile != nil {
		pprof.StopCPUProfile()
		u.profileFile.Close()
		u.profileFile = nil
	}

	if u.store != nil && u.searches > 0 {
		_, err := u.store.RecordSession(storage.SessionStats{
			Started:   u.sessionStart,
			Ended:     time.Now(),
			Searches:  u.searches,
			Nodes:     u.totalNodes,
			MaxDepth:  u.maxDepth,
			ThinkTime: u.thinkTime,
		})
		if err != nil {
			log.Printf("record session: %v", err)
		}
	}
}

// handleSetOption processes "setoption name <name> value <value>".
func (u *UCI) handleSetOption(args []string) {
	var name, value string
	readingName := false
	readingValue := false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName = true
			readingValue = false
		case "value":
			readingName = false
			readingValue = true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		mb, err := strconv.Atoi(value)
		if err != nil || mb < 0 {
			log.Printf("invalid Hash value %q", value)
			return
		}
		u.hashMB = mb
		u.ctrl.SetHashSize(mb)
		u.saveConfig()
	case "move overhead":
		overheadMS, err := strconv.Atoi(value)
		if err != nil || overheadMS < 0 {
			log.Printf("invalid Move Overhead value %q", value)
			return
		}
		u.moveOverhead = time.Duration(overheadMS) * time.Millisecond
		u.saveConfig()
	case "cpuprofile":
		u.setProfile(value)
	}
}

func (u *UCI) saveConfig() {
	if u.store == nil {
		return
	}
	err := u.store.SaveConfig(&storage.Config{
		HashMB:         u.hashMB,
		MoveOverheadMS: int(u.moveOverhead.Milliseconds()),
	})
	if err != nil {
		log.Printf("save config: %v", err)
	}
}

func (u *UCI) setProfile(path string) {
	if u.profileFile != nil {
		pprof.StopCPUProfile()
		u.profileFile.Close()
		u.profileFile = nil
		log.Printf("cpu profile stopped")
	}
	if path == "" || path == "stop" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		log.Printf("create profile: %v", err)
		return
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		log.Printf("start profile: %v", err)
		return
	}
	u.profileFile = f
	log.Printf("cpu profiling to %s", path)
}

// handleDisplay prints the current board, for debugging.
func (u *UCI) handleDisplay() {
	cur := u.ctrl.Position()
	fmt.Fprint(u.out, cur.Position().Board().Draw())
	fmt.Fprintf(u.out, "fen: %s\n", cur.FEN())
	fmt.Fprintf(u.out, "key: %016x\n", cur.Key())
	fmt.Fprintf(u.out, "checkers: %v\n", cur.InCheck())
}

// handleEval prints the static evaluation of the current position.
func (u *UCI) handleEval() {
	cur := u.ctrl.Position()
	score := u.eng.Evaluate(cur)
	fmt.Fprintf(u.out, "eval %d cp (%s)\n", score, engine.ScoreToString(score))
}

// handleProbe prints the transposition table entry for the current position.
// The table belongs to the running search, so probing is idle-only.
func (u *UCI) handleProbe() {
	if u.ctrl.Running() {
		fmt.Fprintln(u.out, "info string probe unavailable while searching")
		return
	}
	cur := u.ctrl.Position()
	entry, ok := u.eng.ProbeTT(cur)
	if !ok {
		fmt.Fprintln(u.out, "tt miss")
		return
	}
	flag := "exact"
	switch entry.Flag {
	case engine.TTLowerBound:
		flag = "lower"
	case engine.TTUpperBound:
		flag = "upper"
	}
	fmt.Fprintf(u.out, "tt hit depth %d score %d bound %s move %s\n",
		entry.Depth, entry.Score, flag, entry.BestMove)
}

// handlePerft runs a perft count from the current position.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	cur := u.ctrl.Position()
	start := time.Now()
	nodes := u.eng.Perft(cur, depth)
	elapsed := time.Since(start)

	fmt.Fprintf(u.out, "nodes %d\n", nodes)
	fmt.Fprintf(u.out, "time %v\n", elapsed)
	if elapsed > 0 {
		fmt.Fprintf(u.out, "nps %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}
