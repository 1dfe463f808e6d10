// Package forecast converts historical call volume into hourly staffing
// plans: a baseline demand table, a capacity-capped schedule, and the call
// capacity the capped schedule can absorb.
package forecast

import "math"

const (
	// Utilization is the fixed efficiency model: agents are productive for
	// 75% of their staffed time.
	Utilization = 0.75

	// Availability is the fixed shrinkage buffer: 12.5% of headcount is
	// absorbed by breaks and off-phone work.
	Availability = 0.875

	// MinAgents is the staffing floor. Every operating hour is covered by at
	// least two agents even with no historical signal.
	MinAgents = 2

	// DefaultAHTSeconds substitutes for cells with no handle-time signal
	// when deriving call capacity.
	DefaultAHTSeconds = 300

	// intervalMultiplier is the simplified single-factor model used only by
	// the rolling interval forecast. It intentionally differs from the
	// Utilization/Availability pair used by the planner; the two call sites
	// model different products and must not be unified.
	intervalMultiplier = 1.3
)

// RequiredAgents maps an hourly call volume and average handle time (seconds)
// to the headcount needed to serve it: Erlang-style traffic intensity divided
// by utilization, then grossed up for availability shrinkage. Non-positive
// inputs yield the floor.
func RequiredAgents(callsPerHour, aht float64) int {
	if callsPerHour <= 0 || aht <= 0 {
		return MinAgents
	}
	intensity := callsPerHour * aht / 3600
	headcount := int(math.Ceil(intensity / Utilization / Availability))
	if headcount < MinAgents {
		return MinAgents
	}
	return headcount
}

// intervalRequiredAgents is the simplified variant serving the rolling
// interval forecast route.
func intervalRequiredAgents(callsPerHour, aht float64) int {
	intensity := callsPerHour * aht / 3600
	required := int(math.Ceil(intensity * intervalMultiplier))
	if required < MinAgents {
		return MinAgents
	}
	return required
}
