package telemetry

import (
	"sort"
	"time"

	"github.com/mawsool/insights-backend/internal/biztime"
	"github.com/mawsool/insights-backend/internal/genesys"
)

// CustomerConversation is the per-caller view of one conversation, derived
// once per fetch and immutable afterwards.
type CustomerConversation struct {
	ID          string    `json:"id"`
	StartTime   time.Time `json:"startTime"`
	ANI         string    `json:"ani"`
	Abandoned   bool      `json:"abandoned"`
	BusinessDay string    `json:"businessDay"`
}

// CustomerDaySummary rolls up one business day of customer activity.
type CustomerDaySummary struct {
	BusinessDay     string `json:"businessDay"`
	Offered         int    `json:"offered"`
	Answered        int    `json:"answered"`
	Abandoned       int    `json:"abandoned"`
	UniqueTotal     int    `json:"uniqueTotal"`
	UniqueAnswered  int    `json:"uniqueAnswered"`
	UniqueAbandoned int    `json:"uniqueAbandoned"`
	Recovered       int    `json:"recovered"`
	Lost            int    `json:"lost"`
}

// AbandonedCustomerDetail is one unique abandoning caller within a business
// day, classified as recovered or lost.
type AbandonedCustomerDetail struct {
	BusinessDay    string    `json:"businessDay"`
	MobileNumber   string    `json:"mobileNumber"`
	AbandonedCount int       `json:"abandonedCount"`
	AbandonedTime  string    `json:"abandonedTime"` // business-local HH:MM:SS
	RawAbandoned   time.Time `json:"-"`
	Recovered      bool      `json:"recovered"`
	RecoveredTime  string    `json:"recoveredTime,omitempty"`
}

// CustomerAnalysis is the combined output of AnalyzeCustomers.
type CustomerAnalysis struct {
	Summary []CustomerDaySummary      `json:"summary"`
	Details []AbandonedCustomerDetail `json:"details"`
}

// CustomerConversations derives per-caller conversation rows from raw
// records. Conversations without a caller number or outside operating hours
// are dropped. The result is sorted ascending by start time, which
// AnalyzeCustomers requires.
func CustomerConversations(convs []genesys.Conversation) []CustomerConversation {
	out := make([]CustomerConversation, 0, len(convs))
	for _, conv := range convs {
		info := biztime.Resolve(conv.ConversationStart)
		if !biztime.InOperatingHours(info.Hour) {
			continue
		}
		ani := callerANI(conv)
		if ani == "" {
			continue
		}
		out = append(out, CustomerConversation{
			ID:          conv.ConversationID,
			StartTime:   conv.ConversationStart,
			ANI:         ani,
			Abandoned:   !isAnswered(conv),
			BusinessDay: biztime.BusinessDay(conv.ConversationStart),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

// isAnswered reports whether any agent leg carries a handled segment.
func isAnswered(conv genesys.Conversation) bool {
	for _, p := range conv.Participants {
		if (p.Purpose != "agent" && p.Purpose != "user") || p.UserID == "" {
			continue
		}
		for _, s := range p.Sessions {
			for _, seg := range s.Segments {
				if handledSegments[seg.SegmentType] {
					return true
				}
			}
		}
	}
	return false
}

// AnalyzeCustomers groups conversations by business day and caller, and
// classifies each unique abandoning caller as recovered or lost.
//
// Precondition: convs must be sorted ascending by start time. The analyzer
// does not sort internally; CustomerConversations already returns sorted
// input.
//
// For each caller with at least one abandoned conversation in a day, the
// first abandoned conversation is the anchor. The caller is recovered when
// an answered conversation from the same caller exists strictly after the
// anchor within the same business day; otherwise the caller is lost.
func AnalyzeCustomers(convs []CustomerConversation) CustomerAnalysis {
	byDay := make(map[string]map[string][]CustomerConversation)
	for _, conv := range convs {
		callers := byDay[conv.BusinessDay]
		if callers == nil {
			callers = make(map[string][]CustomerConversation)
			byDay[conv.BusinessDay] = callers
		}
		callers[conv.ANI] = append(callers[conv.ANI], conv)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	var summaries []CustomerDaySummary
	var details []AbandonedCustomerDetail

	for _, day := range days {
		callers := byDay[day]

		anis := make([]string, 0, len(callers))
		for ani := range callers {
			anis = append(anis, ani)
		}
		sort.Strings(anis)

		sum := CustomerDaySummary{BusinessDay: day, UniqueTotal: len(callers)}

		for _, ani := range anis {
			calls := callers[ani]
			sum.Offered += len(calls)

			var firstAbandoned *CustomerConversation
			abandonedCount := 0
			for i := range calls {
				if calls[i].Abandoned {
					abandonedCount++
					if firstAbandoned == nil {
						firstAbandoned = &calls[i]
					}
				} else {
					sum.Answered++
				}
			}
			sum.Abandoned += abandonedCount

			if firstAbandoned == nil {
				continue
			}
			sum.UniqueAbandoned++

			detail := AbandonedCustomerDetail{
				BusinessDay:    day,
				MobileNumber:   ani,
				AbandonedCount: abandonedCount,
				AbandonedTime:  formatLocalTime(firstAbandoned.StartTime),
				RawAbandoned:   firstAbandoned.StartTime,
			}

			for i := range calls {
				if !calls[i].Abandoned && calls[i].StartTime.After(firstAbandoned.StartTime) {
					detail.Recovered = true
					detail.RecoveredTime = formatLocalTime(calls[i].StartTime)
					break
				}
			}

			if detail.Recovered {
				sum.Recovered++
			} else {
				sum.Lost++
			}
			details = append(details, detail)
		}

		sum.UniqueAnswered = sum.UniqueTotal - sum.UniqueAbandoned
		summaries = append(summaries, sum)
	}

	// Display order: newest business day first, newest abandonment first.
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].BusinessDay > summaries[j].BusinessDay })
	sort.Slice(details, func(i, j int) bool { return details[i].RawAbandoned.After(details[j].RawAbandoned) })

	return CustomerAnalysis{Summary: summaries, Details: details}
}

func formatLocalTime(t time.Time) string {
	return t.In(biztime.Zone).Format("15:04:05")
}
