// Package telemetry turns raw conversation records into time-bucketed
// operational metrics, per-agent activity summaries, and customer recovery
// analysis. All aggregation is a pure single pass over already-fetched data;
// accumulator state is local to each call and returned, never shared.
package telemetry

import (
	"sort"
	"time"

	"github.com/mawsool/insights-backend/internal/biztime"
	"github.com/mawsool/insights-backend/internal/genesys"
)

// SLThreshold is the service-level threshold: an interact segment must begin
// within this window of conversation start for the conversation to count as
// answered in SL.
const SLThreshold = 10 * time.Second

// topCallerLimit caps the returned top-callers list.
const topCallerLimit = 10

// handledSegments are the segment types that mark a conversation as answered
// and contribute to handle time.
var handledSegments = map[string]bool{
	"interact": true,
	"talk":     true,
	"hold":     true,
}

// DataPoint is one half-hour interval bucket of the dashboard history.
// Ratio fields are nil when the bucket has no samples for them.
type DataPoint struct {
	Timestamp          string   `json:"timestamp"` // bucket key, business-local
	Offered            int      `json:"offered"`
	Answered           int      `json:"answered"`
	Abandoned          int      `json:"abandoned"`
	SLPercent          *float64 `json:"slPercent"`
	MOS                *float64 `json:"mos"`
	AHT                *float64 `json:"aht"` // seconds
	ConversationsCount int      `json:"conversationsCount"`
}

// AgentSummary accumulates one agent's activity across the query window.
type AgentSummary struct {
	UserID        string     `json:"userId"`
	Answered      int        `json:"answered"`
	HandleTimeMs  int64      `json:"handleTimeMs"`
	FirstActivity *time.Time `json:"firstActivity"`
	LastActivity  *time.Time `json:"lastActivity"`
}

// WrapUpCount is a wrap-up classification tally across all buckets.
type WrapUpCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CallerCount is a per-caller conversation tally.
type CallerCount struct {
	Number string `json:"number"`
	Count  int    `json:"count"`
}

// Result is the complete output of one aggregation pass.
type Result struct {
	History    []DataPoint    `json:"history"`
	Agents     []AgentSummary `json:"agents"`
	WrapUps    []WrapUpCount  `json:"wrapUpData"`
	TopCallers []CallerCount  `json:"topCallers"`
}

// bucket is the mutable per-interval accumulator. It lives only for the
// duration of one Aggregate call.
type bucket struct {
	offered   int
	answered  int
	abandoned int
	slMet     int
	mosSum    float64
	mosCount  int
	hSumMs    int64
	hCount    int
}

// Aggregate folds a list of conversation records into interval buckets, agent
// summaries, wrap-up tallies and top callers. Input order does not matter;
// the output is fully deterministic. now bounds the duration of segments that
// have not ended yet.
func Aggregate(convs []genesys.Conversation, now time.Time) Result {
	buckets := make(map[string]*bucket)
	agents := make(map[string]*AgentSummary)
	wrapUps := make(map[string]int)
	callers := make(map[string]int)

	for _, conv := range convs {
		info := biztime.Resolve(conv.ConversationStart)
		if !biztime.InOperatingHours(info.Hour) {
			continue
		}

		b := buckets[info.BucketKey]
		if b == nil {
			b = &bucket{}
			buckets[info.BucketKey] = b
		}
		b.offered++

		if ani := callerANI(conv); ani != "" {
			callers[ani]++
		}

		for _, p := range conv.Participants {
			for _, s := range p.Sessions {
				if s.MediaType != "voice" {
					continue
				}
				for _, stat := range s.MediaEndpointStat {
					if score := stat.Score(); score > 0 {
						b.mosSum += score
						b.mosCount++
					}
				}
			}
		}

		answered := false
		slMet := false

		for _, p := range conv.Participants {
			if (p.Purpose != "agent" && p.Purpose != "user") || p.UserID == "" {
				continue
			}

			rec := agents[p.UserID]
			if rec == nil {
				rec = &AgentSummary{UserID: p.UserID}
				agents[p.UserID] = rec
			}

			for _, s := range p.Sessions {
				for _, seg := range s.Segments {
					if seg.WrapUpCode != "" {
						wrapUps[seg.WrapUpCode]++
					}
					if !handledSegments[seg.SegmentType] {
						continue
					}

					answered = true
					end := now
					if seg.SegmentEnd != nil {
						end = *seg.SegmentEnd
					}
					dur := end.Sub(seg.SegmentStart)
					b.hSumMs += dur.Milliseconds()
					rec.HandleTimeMs += dur.Milliseconds()
					rec.observe(seg.SegmentStart, end)

					if seg.SegmentType == "interact" && seg.SegmentStart.Sub(conv.ConversationStart) <= SLThreshold {
						slMet = true
					}
				}
			}
			rec.Answered++
		}

		if answered {
			b.answered++
			b.hCount++
			if slMet {
				b.slMet++
			}
		} else {
			b.abandoned++
		}
	}

	return Result{
		History:    buildHistory(buckets),
		Agents:     buildAgents(agents),
		WrapUps:    buildWrapUps(wrapUps),
		TopCallers: buildTopCallers(callers),
	}
}

// callerANI returns the caller number of the first external or customer
// leg. A first leg without a number identifies no caller; later legs are
// never consulted.
func callerANI(conv genesys.Conversation) string {
	for _, p := range conv.Participants {
		if p.Purpose == "external" || p.Purpose == "customer" {
			return p.ANI
		}
	}
	return ""
}

// observe widens the agent's first/last activity window.
func (a *AgentSummary) observe(start, end time.Time) {
	if a.FirstActivity == nil || start.Before(*a.FirstActivity) {
		s := start
		a.FirstActivity = &s
	}
	if a.LastActivity == nil || end.After(*a.LastActivity) {
		e := end
		a.LastActivity = &e
	}
}

func buildHistory(buckets map[string]*bucket) []DataPoint {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	history := make([]DataPoint, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		dp := DataPoint{
			Timestamp:          k,
			Offered:            b.offered,
			Answered:           b.answered,
			Abandoned:          b.abandoned,
			ConversationsCount: b.offered,
		}
		if b.offered > 0 {
			sl := float64(b.slMet) / float64(b.offered) * 100
			dp.SLPercent = &sl
		}
		if b.mosCount > 0 {
			mos := b.mosSum / float64(b.mosCount)
			dp.MOS = &mos
		}
		if b.hCount > 0 {
			aht := float64(b.hSumMs) / 1000 / float64(b.hCount)
			dp.AHT = &aht
		}
		history = append(history, dp)
	}
	return history
}

func buildAgents(agents map[string]*AgentSummary) []AgentSummary {
	out := make([]AgentSummary, 0, len(agents))
	for _, a := range agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func buildWrapUps(wrapUps map[string]int) []WrapUpCount {
	out := make([]WrapUpCount, 0, len(wrapUps))
	for name, count := range wrapUps {
		out = append(out, WrapUpCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func buildTopCallers(callers map[string]int) []CallerCount {
	out := make([]CallerCount, 0, len(callers))
	for number, count := range callers {
		out = append(out, CallerCount{Number: number, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Number < out[j].Number
	})
	if len(out) > topCallerLimit {
		out = out[:topCallerLimit]
	}
	return out
}

// Interaction is a recent-interaction list row.
type Interaction struct {
	ID         string    `json:"id"`
	StartTime  time.Time `json:"startTime"`
	Direction  string    `json:"direction"`
	DurationMs int64     `json:"durationMs"`
}

// recentWindow bounds the recent-interactions list.
const recentWindow = time.Hour

// Interactions maps conversations started within the last hour to the
// recent-interactions list.
func Interactions(convs []genesys.Conversation, now time.Time) []Interaction {
	cutoff := now.Add(-recentWindow)
	out := make([]Interaction, 0, len(convs))
	for _, conv := range convs {
		if conv.ConversationStart.Before(cutoff) {
			continue
		}
		rec := Interaction{
			ID:        conv.ConversationID,
			StartTime: conv.ConversationStart,
			Direction: "Inbound",
		}
		if conv.ConversationEnd != nil {
			rec.DurationMs = conv.ConversationEnd.Sub(conv.ConversationStart).Milliseconds()
		}
		out = append(out, rec)
	}
	return out
}
