// Package refresh drives the fetch-and-aggregate pipeline: a fixed-interval
// timer and an on-demand trigger both run the same cycle against the
// upstream API, and completed snapshots fan out to websocket clients and
// the store.
package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mawsool/insights-backend/internal/biztime"
	"github.com/mawsool/insights-backend/internal/forecast"
	"github.com/mawsool/insights-backend/internal/genesys"
	"github.com/mawsool/insights-backend/internal/metrics"
	"github.com/mawsool/insights-backend/internal/storage"
	"github.com/mawsool/insights-backend/internal/telemetry"
)

// Upstream is the slice of the Genesys client the pipeline needs.
type Upstream interface {
	QueueIDByName(ctx context.Context, name string) (string, error)
	Conversations(ctx context.Context, queueID, interval string) ([]genesys.Conversation, error)
	Aggregates(ctx context.Context, interval string) ([]genesys.AggregateResult, error)
}

// Broadcaster fans a completed snapshot out to connected clients.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Snapshot is the complete output of one refresh cycle.
type Snapshot struct {
	Dashboard    telemetry.Result           `json:"dashboard"`
	Customers    telemetry.CustomerAnalysis `json:"customers"`
	Interactions []telemetry.Interaction    `json:"interactions"`
	Forecast     forecast.IntervalForecast  `json:"forecast"`
	RefreshedAt  time.Time                  `json:"refreshedAt"`
}

// Service owns the current snapshot and refreshes it periodically and on
// demand. Overlapping cycles are allowed; a generation counter makes sure a
// slow cycle never overwrites a newer one's snapshot.
type Service struct {
	upstream  Upstream
	store     storage.Store
	hub       Broadcaster
	queueName string
	interval  time.Duration
	logger    zerolog.Logger
	now       func() time.Time

	started atomic.Uint64 // generation ticket counter

	mu       sync.RWMutex
	snapshot *Snapshot
	applied  uint64 // generation of the current snapshot
	queueID  string
}

// NewService wires the pipeline. hub may be nil when no fan-out is wanted.
func NewService(upstream Upstream, store storage.Store, hub Broadcaster, queueName string, interval time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		upstream:  upstream,
		store:     store,
		hub:       hub,
		queueName: queueName,
		interval:  interval,
		logger:    logger.With().Str("component", "refresh").Logger(),
		now:       time.Now,
	}
}

// WithClock overrides the clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run performs an initial refresh, then re-runs the pipeline on a fixed
// interval until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	if err := s.Refresh(ctx, "timer"); err != nil {
		s.logger.Error().Err(err).Msg("initial refresh failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx, "timer"); err != nil {
				s.logger.Error().Err(err).Msg("scheduled refresh failed")
			}
		}
	}
}

// Snapshot returns the current snapshot, or false when no cycle has
// completed yet.
func (s *Service) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return Snapshot{}, false
	}
	return *s.snapshot, true
}

// QueueID returns the resolved queue id, empty until first resolution.
func (s *Service) QueueID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queueID
}

// Refresh runs one full fetch-and-aggregate cycle. trigger is "timer" or
// "manual" and only labels metrics and logs.
func (s *Service) Refresh(ctx context.Context, trigger string) error {
	gen := s.started.Add(1)
	start := s.now()

	err := s.refresh(ctx, gen, start)

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.RefreshCyclesTotal.WithLabelValues(trigger, result).Inc()
	metrics.RefreshDurationSeconds.Observe(time.Since(start).Seconds())
	return err
}

func (s *Service) refresh(ctx context.Context, gen uint64, now time.Time) error {
	queueID, err := s.resolveQueue(ctx)
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues("queues").Inc()
		return fmt.Errorf("resolve queue: %w", err)
	}

	shiftDate, err := time.ParseInLocation("2006-01-02", biztime.BusinessDay(now), biztime.Zone)
	if err != nil {
		return fmt.Errorf("parse business day: %w", err)
	}

	convs, err := s.upstream.Conversations(ctx, queueID, biztime.ShiftInterval(shiftDate))
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues("conversations").Inc()
		return fmt.Errorf("fetch conversations: %w", err)
	}

	aggs, err := s.upstream.Aggregates(ctx, biztime.LookbackInterval(now))
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues("aggregates").Inc()
		return fmt.Errorf("fetch aggregates: %w", err)
	}

	snap := &Snapshot{
		Dashboard:    telemetry.Aggregate(convs, now),
		Customers:    telemetry.AnalyzeCustomers(telemetry.CustomerConversations(convs)),
		Interactions: telemetry.Interactions(convs, now),
		Forecast:     forecast.BuildIntervalForecast(aggs, now),
		RefreshedAt:  now,
	}
	metrics.ConversationsAggregatedTotal.Add(float64(len(convs)))

	s.mu.Lock()
	if gen <= s.applied {
		// A newer cycle already committed; this result is stale.
		s.mu.Unlock()
		metrics.RefreshesDiscardedTotal.Inc()
		s.logger.Warn().Uint64("generation", gen).Msg("discarding stale refresh result")
		return nil
	}
	s.snapshot = snap
	s.applied = gen
	s.mu.Unlock()

	s.persist(queueID, snap)
	s.broadcast(snap)

	s.logger.Info().
		Uint64("generation", gen).
		Int("conversations", len(convs)).
		Int("buckets", len(snap.Dashboard.History)).
		Msg("snapshot refreshed")
	return nil
}

// resolveQueue resolves and caches the queue id.
func (s *Service) resolveQueue(ctx context.Context) (string, error) {
	s.mu.RLock()
	id := s.queueID
	s.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	id, err := s.upstream.QueueIDByName(ctx, s.queueName)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.queueID = id
	s.mu.Unlock()
	return id, nil
}

// persist writes the snapshot's bucket history and forecast to the store.
// Storage failures are logged, never fatal to the cycle.
func (s *Service) persist(queueID string, snap *Snapshot) {
	for _, dp := range snap.Dashboard.History {
		rec := storage.IntervalMetricRecord{
			DateKey:    dateKeyOf(dp.Timestamp),
			BucketKey:  dp.Timestamp,
			QueueID:    queueID,
			Offered:    dp.Offered,
			Answered:   dp.Answered,
			Abandoned:  dp.Abandoned,
			SLPercent:  dp.SLPercent,
			MOS:        dp.MOS,
			AHTSeconds: dp.AHT,
		}
		if err := s.store.SaveIntervalMetric(rec); err != nil {
			s.logger.Error().Err(err).Str("bucket", dp.Timestamp).Msg("failed to persist interval metric")
			return
		}
	}

	payload, err := json.Marshal(snap.Forecast)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal forecast snapshot")
		return
	}
	rec := storage.ForecastSnapshotRecord{
		QueueID:     queueID,
		GeneratedAt: snap.Forecast.GeneratedAt.UTC().Format(time.RFC3339),
		Generated:   snap.Forecast.GeneratedAt,
		Payload:     payload,
	}
	if err := s.store.SaveForecastSnapshot(rec); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist forecast snapshot")
	}
}

// broadcast pushes the new snapshot to websocket clients.
func (s *Service) broadcast(snap *Snapshot) {
	if s.hub == nil {
		return
	}
	msg, err := json.Marshal(map[string]interface{}{
		"type": "snapshot",
		"data": snap,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal snapshot broadcast")
		return
	}
	s.hub.Broadcast(msg)
}

// dateKeyOf maps a bucket key "YYYY-MM-DD HH:MM" to its business day.
// Buckets before 03:00 belong to the previous day's shift, so their date
// key differs from the bucket's calendar date.
func dateKeyOf(bucketKey string) string {
	t, err := time.ParseInLocation("2006-01-02 15:04", bucketKey, biztime.Zone)
	if err != nil {
		return bucketKey
	}
	return biztime.BusinessDay(t)
}
