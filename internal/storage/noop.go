package storage

import "time"

// IntervalMetricRecord is one persisted dashboard bucket, keyed by business
// day and bucket for per-day history queries.
type IntervalMetricRecord struct {
	DateKey    string   `dynamodbav:"DateKey"` // business day YYYY-MM-DD
	BucketKey  string   `dynamodbav:"BucketKey"`
	QueueID    string   `dynamodbav:"QueueID"`
	Offered    int      `dynamodbav:"Offered"`
	Answered   int      `dynamodbav:"Answered"`
	Abandoned  int      `dynamodbav:"Abandoned"`
	SLPercent  *float64 `dynamodbav:"SLPercent,omitempty"`
	MOS        *float64 `dynamodbav:"MOS,omitempty"`
	AHTSeconds *float64 `dynamodbav:"AHTSeconds,omitempty"`
}

// ForecastSnapshotRecord is one persisted staffing forecast run.
type ForecastSnapshotRecord struct {
	QueueID     string    `dynamodbav:"QueueID"`
	GeneratedAt string    `dynamodbav:"GeneratedAt"` // RFC3339, range key
	Generated   time.Time `dynamodbav:"Generated"`
	Payload     []byte    `dynamodbav:"Payload"` // forecast JSON as produced by the API
}

// Store defines the storage interface
type Store interface {
	SaveIntervalMetric(record IntervalMetricRecord) error
	GetIntervalMetrics(dateKey string) ([]IntervalMetricRecord, error)
	SaveForecastSnapshot(record ForecastSnapshotRecord) error
	GetForecastSnapshots(queueID string) ([]ForecastSnapshotRecord, error)
	TruncateAll() error
}

// NoopStore is a no-op implementation when DynamoDB is disabled
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) SaveIntervalMetric(_ IntervalMetricRecord) error { return nil }
func (s *NoopStore) GetIntervalMetrics(_ string) ([]IntervalMetricRecord, error) {
	return nil, nil
}
func (s *NoopStore) SaveForecastSnapshot(_ ForecastSnapshotRecord) error { return nil }
func (s *NoopStore) GetForecastSnapshots(_ string) ([]ForecastSnapshotRecord, error) {
	return nil, nil
}
func (s *NoopStore) TruncateAll() error { return nil }
