package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

// DynamoDBStore implements Store using AWS DynamoDB
type DynamoDBStore struct {
	client *dynamodb.Client
	config DynamoConfig
	logger zerolog.Logger
}

// NewDynamoDBStore creates a new DynamoDB store
func NewDynamoDBStore(ctx context.Context, cfg DynamoConfig, logger zerolog.Logger) (*DynamoDBStore, error) {
	var client *dynamodb.Client

	if cfg.Mode == DynamoModeLocal {
		// For local mode, build the client directly without LoadDefaultConfig.
		// LoadDefaultConfig probes the EC2 IMDS endpoint which hangs on EC2
		// instances when static credentials are intended.
		client = dynamodb.New(dynamodb.Options{
			Region:       cfg.Region,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	store := &DynamoDBStore{
		client: client,
		config: cfg,
		logger: logger,
	}

	// Create tables in local mode
	if cfg.Mode == DynamoModeLocal {
		if err := CreateTablesIfNotExist(ctx, client, cfg, logger); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("mode", string(cfg.Mode)).
		Str("region", cfg.Region).
		Msg("DynamoDB store initialized")

	return store, nil
}

func (s *DynamoDBStore) SaveIntervalMetric(record IntervalMetricRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal interval metric: %w", err)
	}

	_, err = s.client.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String(s.config.IntervalsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save interval metric: %w", err)
	}
	return nil
}

func (s *DynamoDBStore) GetIntervalMetrics(dateKey string) ([]IntervalMetricRecord, error) {
	keyCond := expression.Key("DateKey").Equal(expression.Value(dateKey))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := s.client.Query(context.Background(), &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.IntervalsTable),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query interval metrics: %w", err)
	}

	var records []IntervalMetricRecord
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal interval metrics: %w", err)
	}
	return records, nil
}

func (s *DynamoDBStore) SaveForecastSnapshot(record ForecastSnapshotRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal forecast snapshot: %w", err)
	}

	_, err = s.client.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String(s.config.ForecastsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save forecast snapshot: %w", err)
	}
	return nil
}

func (s *DynamoDBStore) GetForecastSnapshots(queueID string) ([]ForecastSnapshotRecord, error) {
	keyCond := expression.Key("QueueID").Equal(expression.Value(queueID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := s.client.Query(context.Background(), &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.ForecastsTable),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast snapshots: %w", err)
	}

	var records []ForecastSnapshotRecord
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal forecast snapshots: %w", err)
	}
	return records, nil
}

// NewStore creates the appropriate store based on configuration
func NewStore(ctx context.Context, logger zerolog.Logger) (Store, error) {
	cfg := LoadDynamoConfig()

	switch cfg.Mode {
	case DynamoModeLocal, DynamoModeAWS:
		return NewDynamoDBStore(ctx, cfg, logger)
	default:
		logger.Info().Msg("DynamoDB disabled (DYNAMO_MODE=none)")
		return NewNoopStore(), nil
	}
}

// TruncateAll deletes all items from both DynamoDB tables (scan + batch delete)
func (s *DynamoDBStore) TruncateAll() error {
	tables := []struct {
		name string
		pk   string
		sk   string
	}{
		{s.config.IntervalsTable, "DateKey", "BucketKey"},
		{s.config.ForecastsTable, "QueueID", "GeneratedAt"},
	}

	for _, table := range tables {
		if err := s.truncateTable(table.name, table.pk, table.sk); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table.name, err)
		}
	}
	return nil
}

func (s *DynamoDBStore) truncateTable(tableName, pk, sk string) error {
	var lastKey map[string]dbtypes.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName:            aws.String(tableName),
			ProjectionExpression: aws.String("#pk, #sk"),
			ExpressionAttributeNames: map[string]string{
				"#pk": pk,
				"#sk": sk,
			},
			Limit: aws.Int32(500),
		}
		if lastKey != nil {
			input.ExclusiveStartKey = lastKey
		}

		result, err := s.client.Scan(context.Background(), input)
		if err != nil {
			return err
		}

		// Batch delete in groups of 25
		for i := 0; i < len(result.Items); i += 25 {
			end := i + 25
			if end > len(result.Items) {
				end = len(result.Items)
			}

			requests := make([]dbtypes.WriteRequest, 0, end-i)
			for _, item := range result.Items[i:end] {
				requests = append(requests, dbtypes.WriteRequest{
					DeleteRequest: &dbtypes.DeleteRequest{
						Key: map[string]dbtypes.AttributeValue{
							pk: item[pk],
							sk: item[sk],
						},
					},
				})
			}

			_, err := s.client.BatchWriteItem(context.Background(), &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]dbtypes.WriteRequest{
					tableName: requests,
				},
			})
			if err != nil {
				return err
			}
		}

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	s.logger.Info().Str("table", tableName).Msg("table truncated")
	return nil
}
