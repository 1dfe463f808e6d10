package telemetry

import (
	"testing"
	"time"

	"github.com/mawsool/insights-backend/internal/genesys"
)

func TestCustomerConversationsFilterAndSort(t *testing.T) {
	// 04:30 business-local (maintenance) and a record without a caller
	// number must both be dropped; the rest come back sorted ascending.
	convs := []genesys.Conversation{
		answeredConv("late", "+9642222", "agent-1", time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC), 2*time.Second, time.Minute),
		answeredConv("night", "+9641111", "agent-1", time.Date(2026, 8, 3, 1, 30, 0, 0, time.UTC), 2*time.Second, time.Minute),
		answeredConv("early", "+9643333", "agent-1", time.Date(2026, 8, 3, 7, 0, 0, 0, time.UTC), 2*time.Second, time.Minute),
		{ConversationID: "anon", ConversationStart: time.Date(2026, 8, 3, 8, 0, 0, 0, time.UTC)},
		// Withheld number on the first external leg; the second leg's
		// number does not identify the caller.
		{
			ConversationID:    "withheld",
			ConversationStart: time.Date(2026, 8, 3, 8, 30, 0, 0, time.UTC),
			Participants: []genesys.Participant{
				{Purpose: "external"},
				{Purpose: "external", ANI: "+9644444"},
			},
		},
	}

	got := CustomerConversations(convs)
	if len(got) != 2 {
		t.Fatalf("conversation count = %d, want 2", len(got))
	}
	if got[0].ID != "early" || got[1].ID != "late" {
		t.Errorf("order = %s, %s; want early, late", got[0].ID, got[1].ID)
	}
	if got[0].Abandoned {
		t.Error("answered conversation marked abandoned")
	}
	if got[0].BusinessDay != "2026-08-03" {
		t.Errorf("business day = %s, want 2026-08-03", got[0].BusinessDay)
	}
}

func TestRecoveryClassification(t *testing.T) {
	day := "2026-08-03"
	mk := func(id, ani string, start time.Time, abandoned bool) CustomerConversation {
		return CustomerConversation{
			ID: id, ANI: ani, StartTime: start,
			Abandoned: abandoned, BusinessDay: day,
		}
	}
	// 10:00:00 and 11:15:30 business-local.
	t1 := time.Date(2026, 8, 3, 7, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 8, 3, 8, 15, 30, 0, time.UTC)

	convs := []CustomerConversation{
		// Caller X abandons, then gets answered later: recovered.
		mk("x1", "X", t1, true),
		mk("x2", "X", t2, false),
		// Caller Y abandons twice, never answered: lost.
		mk("y1", "Y", t1.Add(5*time.Minute), true),
		mk("y2", "Y", t1.Add(30*time.Minute), true),
		// Caller Z answered before abandoning: the earlier answer does not
		// recover the later abandonment.
		mk("z1", "Z", t1.Add(time.Minute), false),
		mk("z2", "Z", t1.Add(10*time.Minute), true),
	}

	res := AnalyzeCustomers(convs)
	if len(res.Summary) != 1 {
		t.Fatalf("summary days = %d, want 1", len(res.Summary))
	}
	sum := res.Summary[0]
	if sum.Recovered != 1 || sum.Lost != 2 {
		t.Errorf("recovered/lost = %d/%d, want 1/2", sum.Recovered, sum.Lost)
	}

	byANI := make(map[string]AbandonedCustomerDetail)
	for _, d := range res.Details {
		byANI[d.MobileNumber] = d
	}
	x := byANI["X"]
	if !x.Recovered {
		t.Error("caller X should be recovered")
	}
	if x.RecoveredTime != "11:15:30" {
		t.Errorf("caller X recoveredTime = %q, want 11:15:30", x.RecoveredTime)
	}
	if x.AbandonedTime != "10:00:00" {
		t.Errorf("caller X abandonedTime = %q, want 10:00:00", x.AbandonedTime)
	}
	y := byANI["Y"]
	if y.Recovered {
		t.Error("caller Y should be lost")
	}
	if y.AbandonedCount != 2 {
		t.Errorf("caller Y abandonedCount = %d, want 2", y.AbandonedCount)
	}
	z := byANI["Z"]
	if z.Recovered {
		t.Error("caller Z answered only before abandoning, should be lost")
	}
}

func TestRecoveryAcrossMidnightSameBusinessDay(t *testing.T) {
	// 23:30 local on Aug 3 and 01:00 local on Aug 4 share business day
	// Aug 3, so the later answer recovers the abandonment.
	abandon := time.Date(2026, 8, 3, 20, 30, 0, 0, time.UTC) // 23:30 local Aug 3
	answer := time.Date(2026, 8, 3, 22, 0, 0, 0, time.UTC)   // 01:00 local Aug 4

	raw := []genesys.Conversation{
		abandonedConv("a", "+964555", abandon),
		answeredConv("b", "+964555", "agent-1", answer, 2*time.Second, time.Minute),
	}
	convs := CustomerConversations(raw)
	if len(convs) != 2 {
		t.Fatalf("conversation count = %d, want 2", len(convs))
	}
	if convs[0].BusinessDay != convs[1].BusinessDay {
		t.Fatalf("business days differ: %s vs %s", convs[0].BusinessDay, convs[1].BusinessDay)
	}

	res := AnalyzeCustomers(convs)
	if len(res.Details) != 1 {
		t.Fatalf("detail count = %d, want 1", len(res.Details))
	}
	if !res.Details[0].Recovered {
		t.Error("cross-midnight answer should recover the caller")
	}
	if res.Details[0].RecoveredTime != "01:00:00" {
		t.Errorf("recoveredTime = %q, want 01:00:00", res.Details[0].RecoveredTime)
	}
}

func TestCustomerSummaryCounts(t *testing.T) {
	d1 := time.Date(2026, 8, 3, 7, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 8, 4, 7, 0, 0, 0, time.UTC)
	raw := []genesys.Conversation{
		answeredConv("a1", "+1", "agent-1", d1, 2*time.Second, time.Minute),
		abandonedConv("a2", "+2", d1.Add(time.Minute)),
		answeredConv("a3", "+3", "agent-1", d1.Add(2*time.Minute), 2*time.Second, time.Minute),
		abandonedConv("b1", "+1", d2),
	}

	res := AnalyzeCustomers(CustomerConversations(raw))
	if len(res.Summary) != 2 {
		t.Fatalf("summary days = %d, want 2", len(res.Summary))
	}
	// Newest business day first.
	if res.Summary[0].BusinessDay != "2026-08-04" {
		t.Errorf("first summary day = %s, want 2026-08-04", res.Summary[0].BusinessDay)
	}

	day1 := res.Summary[1]
	if day1.Offered != 3 || day1.Answered != 2 || day1.Abandoned != 1 {
		t.Errorf("day1 offered/answered/abandoned = %d/%d/%d, want 3/2/1", day1.Offered, day1.Answered, day1.Abandoned)
	}
	if day1.UniqueTotal != 3 || day1.UniqueAbandoned != 1 {
		t.Errorf("day1 uniques = %d total, %d abandoned", day1.UniqueTotal, day1.UniqueAbandoned)
	}
	if day1.UniqueAnswered != day1.UniqueTotal-day1.UniqueAbandoned {
		t.Errorf("uniqueAnswered %d != uniqueTotal %d - uniqueAbandoned %d",
			day1.UniqueAnswered, day1.UniqueTotal, day1.UniqueAbandoned)
	}

	// Details sorted by abandonment time, newest first.
	if len(res.Details) != 2 {
		t.Fatalf("detail count = %d, want 2", len(res.Details))
	}
	if res.Details[0].BusinessDay != "2026-08-04" {
		t.Errorf("first detail day = %s, want 2026-08-04", res.Details[0].BusinessDay)
	}
}
