package engine

import (
	"time"

	"github.com/notnil/chess"
)

// TimeManager handles time allocation for searches.
type TimeManager struct {
	baseOptimum time.Duration // Allocation before stability scaling
	optimumTime time.Duration // Target time for this move
	maximumTime time.Duration // Maximum time allowed
	startTime   time.Time     // When search started
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init initializes the time manager for a new search.
// ply is the current game ply (half-move number).
func (tm *TimeManager) Init(limits SearchLimits, us chess.Color, ply int) {
	tm.startTime = time.Now()

	// Fixed move time mode
	if limits.MoveTime > 0 {
		budget := limits.MoveTime - limits.MoveOverhead
		if budget < time.Millisecond {
			budget = time.Millisecond
		}
		tm.baseOptimum = budget
		tm.optimumTime = budget
		tm.maximumTime = budget
		return
	}

	// Infinite or depth/node-limited mode
	if limits.Infinite || limits.Clock[colorIndex(us)] == 0 {
		tm.baseOptimum = time.Hour
		tm.optimumTime = time.Hour
		tm.maximumTime = time.Hour
		return
	}

	// Calculate time allocation based on remaining time and increment
	timeLeft := limits.Clock[colorIndex(us)] - limits.MoveOverhead
	if timeLeft < time.Millisecond {
		timeLeft = time.Millisecond
	}
	inc := limits.Inc[colorIndex(us)]

	// Estimate moves to go
	mtg := limits.MovesToGo
	if mtg == 0 {
		// Sudden death: estimate moves remaining based on game phase
		mtg = 50 - ply/4
		if mtg < 10 {
			mtg = 10
		}
		if mtg > 50 {
			mtg = 50
		}
	}

	// Base time per move plus most of the increment
	baseTime := timeLeft / time.Duration(mtg)
	baseTime += inc * 9 / 10

	tm.optimumTime = baseTime

	// Slight reduction for very early moves
	if ply < 8 {
		tm.optimumTime = baseTime * 85 / 100
	}

	// Maximum time: 5x optimum or 80% of remaining, whichever is smaller
	maxFromOptimum := tm.optimumTime * 5
	maxFromRemaining := timeLeft * 8 / 10

	if maxFromOptimum < maxFromRemaining {
		tm.maximumTime = maxFromOptimum
	} else {
		tm.maximumTime = maxFromRemaining
	}

	// Never use more than 95% of remaining time
	safetyMargin := timeLeft * 95 / 100
	if tm.maximumTime > safetyMargin {
		tm.maximumTime = safetyMargin
	}

	// Minimum times
	if tm.optimumTime < 10*time.Millisecond {
		tm.optimumTime = 10 * time.Millisecond
	}
	if tm.maximumTime < 50*time.Millisecond {
		tm.maximumTime = 50 * time.Millisecond
	}
	tm.baseOptimum = tm.optimumTime
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the maximum time allowed.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// Deadline returns the hard wall-clock deadline for this search, or the zero
// time when the search is unbounded.
func (tm *TimeManager) Deadline() time.Time {
	if tm.maximumTime >= time.Hour {
		return time.Time{}
	}
	return tm.startTime.Add(tm.maximumTime)
}

// PastOptimum returns true if we've exceeded the optimum time.
func (tm *TimeManager) PastOptimum() bool {
	return tm.Elapsed() >= tm.optimumTime
}

// ScaleForStability shrinks the optimum time when the best move has been
// stable across consecutive depths. Scaling is always relative to the
// original allocation so repeated calls do not compound.
func (tm *TimeManager) ScaleForStability(stability int) {
	switch {
	case stability >= 6:
		tm.optimumTime = tm.baseOptimum * 40 / 100
	case stability >= 4:
		tm.optimumTime = tm.baseOptimum * 60 / 100
	case stability >= 2:
		tm.optimumTime = tm.baseOptimum * 80 / 100
	default:
		tm.optimumTime = tm.baseOptimum
	}
}

func colorIndex(c chess.Color) int {
	if c == chess.Black {
		return 1
	}
	return 0
}
