package genesys

import "time"

// Conversation is one conversation record from the analytics details query.
// Only the fields the aggregation pipeline reads are decoded; everything else
// in the upstream payload is ignored at the boundary.
type Conversation struct {
	ConversationID    string        `json:"conversationId"`
	ConversationStart time.Time     `json:"conversationStart"`
	ConversationEnd   *time.Time    `json:"conversationEnd,omitempty"`
	Participants      []Participant `json:"participants"`
}

// Participant is one leg of a conversation.
type Participant struct {
	Purpose  string    `json:"purpose"` // agent, user, external, customer
	UserID   string    `json:"userId,omitempty"`
	ANI      string    `json:"ani,omitempty"`
	Sessions []Session `json:"sessions,omitempty"`
}

// Session is a media session within a participant leg.
type Session struct {
	MediaType         string              `json:"mediaType"`
	Segments          []Segment           `json:"segments,omitempty"`
	MediaEndpointStat []MediaEndpointStat `json:"mediaEndpointStats,omitempty"`
}

// Segment is a timed slice of a session (interact, hold, alert, wrapup, ...).
type Segment struct {
	SegmentType  string     `json:"segmentType"`
	SegmentStart time.Time  `json:"segmentStart"`
	SegmentEnd   *time.Time `json:"segmentEnd,omitempty"`
	WrapUpCode   string     `json:"wrapUpCode,omitempty"`
}

// MediaEndpointStat carries voice-quality samples for a voice session.
type MediaEndpointStat struct {
	MOS    float64 `json:"mos,omitempty"`
	MinMOS float64 `json:"minMos,omitempty"`
}

// Score returns the usable voice-quality reading of a sample: the mean
// opinion score when present, otherwise the minimum. Zero means no reading.
func (s MediaEndpointStat) Score() float64 {
	if s.MOS > 0 {
		return s.MOS
	}
	return s.MinMOS
}

// conversationsResponse is the paginated details-query envelope.
type conversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	TotalHits     int            `json:"totalHits,omitempty"`
}

// AggregateResult is one group of the aggregates query response.
type AggregateResult struct {
	Group map[string]string `json:"group,omitempty"`
	Data  []AggregateBucket `json:"data"`
}

// AggregateBucket is one time bucket within an aggregate group.
type AggregateBucket struct {
	Interval string            `json:"interval"` // "start/end" ISO interval
	Metrics  []AggregateMetric `json:"metrics"`
}

// AggregateMetric is a named metric with its statistics.
type AggregateMetric struct {
	Metric string         `json:"metric"` // e.g. nAnswered, tHandle
	Stats  AggregateStats `json:"stats"`
}

// AggregateStats holds the statistic values the forecast reads.
type AggregateStats struct {
	Count int     `json:"count,omitempty"`
	Sum   float64 `json:"sum,omitempty"`
}

// Start returns the bucket's start timestamp parsed from its interval.
func (b AggregateBucket) Start() (time.Time, error) {
	raw := b.Interval
	for i := 0; i < len(raw); i++ {
		if raw[i] == '/' {
			raw = raw[:i]
			break
		}
	}
	return time.Parse(time.RFC3339, raw)
}

// MetricStats returns the stats for a named metric, or zero stats when the
// bucket does not carry it.
func (b AggregateBucket) MetricStats(name string) AggregateStats {
	for _, m := range b.Metrics {
		if m.Metric == name {
			return m.Stats
		}
	}
	return AggregateStats{}
}

// aggregatesResponse is the aggregates query envelope.
type aggregatesResponse struct {
	Results []AggregateResult `json:"results"`
}

// queueEntity is one routing queue from the queue lookup.
type queueEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type queuesResponse struct {
	Entities []queueEntity `json:"entities"`
}
