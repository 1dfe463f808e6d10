package forecast

import (
	"fmt"
	"math"
	"sync"
)

// State is the planner workflow state.
type State string

const (
	StateEmpty           State = "empty"
	StateLoaded          State = "loaded"
	StateScenarioApplied State = "scenario_applied"
)

// ViewMode selects which column of the staffing table a client renders.
type ViewMode string

const (
	ViewBaseline  ViewMode = "baseline"
	ViewScheduled ViewMode = "scheduled"
	ViewCapacity  ViewMode = "capacity"
)

// MaxConcurrentMin and MaxConcurrentMax bound the operator-supplied agent cap.
const (
	MaxConcurrentMin = 1
	MaxConcurrentMax = 250
)

// ErrNotLoaded is returned when an operation needs a baseline table but none
// has been loaded.
var ErrNotLoaded = fmt.Errorf("planner: no baseline table loaded")

// ErrScenarioBounds is returned for a maxConcurrent outside [1, 250].
type ErrScenarioBounds struct {
	Value int
}

func (e ErrScenarioBounds) Error() string {
	return fmt.Sprintf("planner: maxConcurrent %d outside [%d, %d]", e.Value, MaxConcurrentMin, MaxConcurrentMax)
}

// ViewStats carries per-view display normalization bounds and day totals.
type ViewStats struct {
	Min       int   `json:"min"`
	Max       int   `json:"max"`
	DayTotals []int `json:"dayTotals"` // index = day of week, Sunday first
}

// Snapshot is the planner's full externally visible state.
type Snapshot struct {
	State         State      `json:"state"`
	View          ViewMode   `json:"view"`
	Intervals     []Interval `json:"intervals"`
	MaxConcurrent int        `json:"maxConcurrent,omitempty"`
	Stats         ViewStats  `json:"stats"`
}

// Planner holds the staffing table through the upload / scenario / view
// workflow. All methods are safe for concurrent use.
type Planner struct {
	mu            sync.Mutex
	state         State
	view          ViewMode
	intervals     []Interval
	maxConcurrent int
}

func NewPlanner() *Planner {
	return &Planner{state: StateEmpty, view: ViewBaseline}
}

// Load replaces the baseline table with a freshly imported one. Any applied
// scenario is discarded and the view returns to baseline.
func (p *Planner) Load(cells []DemandCell) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.intervals = BuildBaseline(cells)
	p.state = StateLoaded
	p.view = ViewBaseline
	p.maxConcurrent = 0
	return p.snapshotLocked()
}

// ApplyScenario rescales the baseline linearly so the peak interval fits
// under maxConcurrent agents, then derives per-interval call capacity. A
// zero-demand table is left untouched.
func (p *Planner) ApplyScenario(maxConcurrent int) (Snapshot, error) {
	if maxConcurrent < MaxConcurrentMin || maxConcurrent > MaxConcurrentMax {
		return Snapshot{}, ErrScenarioBounds{Value: maxConcurrent}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateEmpty {
		return Snapshot{}, ErrNotLoaded
	}

	peak := 0
	for _, iv := range p.intervals {
		if iv.RequiredAgents > peak {
			peak = iv.RequiredAgents
		}
	}
	if peak == 0 {
		return p.snapshotLocked(), nil
	}

	multiplier := float64(maxConcurrent) / float64(peak)
	for i := range p.intervals {
		iv := &p.intervals[i]

		scheduled := int(math.Ceil(float64(iv.RequiredAgents) * multiplier))
		iv.ScheduledAgents = &scheduled

		aht := iv.AvgAHT
		if aht <= 0 {
			aht = DefaultAHTSeconds
		}
		maxCallsPerAgent := 3600 * Utilization / aht

		capacity := 0
		if iv.AvgAHT > 0 {
			capacity = int(math.Floor(float64(scheduled) * maxCallsPerAgent))
		}
		iv.Capacity = &capacity
	}

	p.state = StateScenarioApplied
	p.view = ViewScheduled
	p.maxConcurrent = maxConcurrent
	return p.snapshotLocked(), nil
}

// SetView switches the active view and recomputes its normalization stats.
// The scheduled and capacity views need an applied scenario.
func (p *Planner) SetView(mode ViewMode) (Snapshot, error) {
	switch mode {
	case ViewBaseline, ViewScheduled, ViewCapacity:
	default:
		return Snapshot{}, fmt.Errorf("planner: unknown view %q", mode)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateEmpty {
		return Snapshot{}, ErrNotLoaded
	}
	if mode != ViewBaseline && p.state != StateScenarioApplied {
		return Snapshot{}, fmt.Errorf("planner: view %q needs an applied scenario", mode)
	}

	p.view = mode
	return p.snapshotLocked(), nil
}

// View returns the current snapshot without changing anything.
func (p *Planner) View() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Reset clears all state back to Empty.
func (p *Planner) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateEmpty
	p.view = ViewBaseline
	p.intervals = nil
	p.maxConcurrent = 0
}

// snapshotLocked copies the table and computes stats for the active view.
// Callers must hold p.mu.
func (p *Planner) snapshotLocked() Snapshot {
	intervals := make([]Interval, len(p.intervals))
	copy(intervals, p.intervals)

	return Snapshot{
		State:         p.state,
		View:          p.view,
		Intervals:     intervals,
		MaxConcurrent: p.maxConcurrent,
		Stats:         viewStats(p.intervals, p.view),
	}
}

func viewValue(iv Interval, mode ViewMode) int {
	switch mode {
	case ViewScheduled:
		if iv.ScheduledAgents != nil {
			return *iv.ScheduledAgents
		}
	case ViewCapacity:
		if iv.Capacity != nil {
			return *iv.Capacity
		}
	default:
		return iv.RequiredAgents
	}
	return 0
}

func viewStats(intervals []Interval, mode ViewMode) ViewStats {
	stats := ViewStats{DayTotals: make([]int, 7)}
	if len(intervals) == 0 {
		return stats
	}

	stats.Min = math.MaxInt
	for _, iv := range intervals {
		v := viewValue(iv, mode)
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		if iv.DayOfWeek >= 0 && iv.DayOfWeek < 7 {
			stats.DayTotals[iv.DayOfWeek] += v
		}
	}
	return stats
}
