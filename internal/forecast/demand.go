package forecast

import (
	"math"
	"time"

	"github.com/mawsool/insights-backend/internal/biztime"
	"github.com/mawsool/insights-backend/internal/genesys"
)

// comparableWeeks divides summed answered counts into a per-day average. The
// 15-day lookback window contains two comparable instances of each weekday;
// if the window length ever changes this divisor must change with it.
const comparableWeeks = 2

// Interval is one cell of the staffing table: an operating hour on a day of
// week. ScheduledAgents and Capacity are populated only after a scenario has
// been applied.
type Interval struct {
	Hour            int     `json:"hour"`
	DayOfWeek       int     `json:"dayOfWeek"` // Sunday = 0
	RequiredAgents  int     `json:"requiredAgents"`
	ScheduledAgents *int    `json:"scheduledAgents,omitempty"`
	Capacity        *int    `json:"capacity,omitempty"`
	AvgCalls        float64 `json:"avgCalls"`
	AvgAHT          float64 `json:"avgAht"` // seconds
}

// DemandCell is an hour-of-day x day-of-week demand observation: average
// answered calls per hour and average handle time in seconds.
type DemandCell struct {
	Hour      int
	DayOfWeek int
	AvgCalls  float64
	AvgAHT    float64
}

// demandKey addresses one (day-of-week, hour) accumulator.
type demandKey struct {
	dow  int
	hour int
}

type demandAccum struct {
	answered    int
	handleSumMs float64
	handleCount int
}

// FoldAggregates folds raw hourly aggregate buckets from the lookback window
// into the canonical hour-of-day x day-of-week demand table. Buckets inside
// the maintenance window or with unparsable intervals are skipped.
func FoldAggregates(results []genesys.AggregateResult) []DemandCell {
	table := make(map[demandKey]*demandAccum)

	for _, group := range results {
		for _, b := range group.Data {
			start, err := b.Start()
			if err != nil {
				continue
			}

			info := biztime.Resolve(start)
			if !biztime.InOperatingHours(info.Hour) {
				continue
			}
			dow := biztime.BusinessDayOfWeek(start)

			key := demandKey{dow: dow, hour: info.Hour}
			acc := table[key]
			if acc == nil {
				acc = &demandAccum{}
				table[key] = acc
			}

			acc.answered += b.MetricStats("nAnswered").Count
			handle := b.MetricStats("tHandle")
			acc.handleSumMs += handle.Sum
			acc.handleCount += handle.Count
		}
	}

	cells := make([]DemandCell, 0, 7*len(biztime.OperatingHours))
	for dow := 0; dow < 7; dow++ {
		for _, hour := range biztime.OperatingHours {
			cell := DemandCell{Hour: hour, DayOfWeek: dow}
			if acc := table[demandKey{dow: dow, hour: hour}]; acc != nil {
				cell.AvgCalls = float64(acc.answered) / comparableWeeks
				if acc.handleCount > 0 {
					cell.AvgAHT = acc.handleSumMs / 1000 / float64(acc.handleCount)
				}
			}
			cells = append(cells, cell)
		}
	}
	return cells
}

// IntervalForecast is the interval-forecast API payload.
type IntervalForecast struct {
	Intervals   []Interval `json:"intervals"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

// BuildIntervalForecast produces the rolling 14-day forecast from raw
// aggregate results, using the simplified single-factor staffing model.
func BuildIntervalForecast(results []genesys.AggregateResult, now time.Time) IntervalForecast {
	cells := FoldAggregates(results)

	intervals := make([]Interval, 0, len(cells))
	for _, cell := range cells {
		intervals = append(intervals, Interval{
			Hour:           cell.Hour,
			DayOfWeek:      cell.DayOfWeek,
			RequiredAgents: intervalRequiredAgents(cell.AvgCalls, cell.AvgAHT),
			AvgCalls:       math.Round(cell.AvgCalls*10) / 10,
			AvgAHT:         math.Round(cell.AvgAHT),
		})
	}

	return IntervalForecast{Intervals: intervals, GeneratedAt: now}
}

// BuildBaseline converts demand cells into a baseline staffing table using
// the full two-factor model. This is the planner's Loaded table.
func BuildBaseline(cells []DemandCell) []Interval {
	intervals := make([]Interval, 0, len(cells))
	for _, cell := range cells {
		intervals = append(intervals, Interval{
			Hour:           cell.Hour,
			DayOfWeek:      cell.DayOfWeek,
			RequiredAgents: RequiredAgents(cell.AvgCalls, cell.AvgAHT),
			AvgCalls:       cell.AvgCalls,
			AvgAHT:         cell.AvgAHT,
		})
	}
	return intervals
}
