package cloud

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

const (
	batchSize           = 25 // DynamoDB batch write limit
	maxUnprocessedTries = 5
)

// DynamoDBClient archives realtime samples. The table is keyed by plantId
// (partition) and timestamp in unix seconds (sort).
type DynamoDBClient struct {
	svc   *dynamodb.Client
	table string
}

// NewDynamoDBClient creates a new DynamoDB client instance
func NewDynamoDBClient(ctx context.Context, region, table string) (*DynamoDBClient, error) {
	if table == "" {
		return nil, fmt.Errorf("DynamoDB table cannot be empty")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &DynamoDBClient{
		svc:   dynamodb.NewFromConfig(cfg),
		table: table,
	}, nil
}

// SampleItem is the DynamoDB structure of a realtime sample.
type SampleItem struct {
	PlantID             string  `dynamodbav:"plantId"`
	Timestamp           int64   `dynamodbav:"timestamp"`
	PowerKW             float64 `dynamodbav:"powerKw"`
	IntervalEnergyKWh   float64 `dynamodbav:"intervalEnergyKwh"`
	Irradiance          float64 `dynamodbav:"irradiance"`
	ModuleTempC         float64 `dynamodbav:"moduleTempC"`
	InvertersHealthyPct float64 `dynamodbav:"invertersHealthyPct"`
}

func toItem(s domain.RealtimeSample) SampleItem {
	return SampleItem{
		PlantID:             s.PlantID,
		Timestamp:           s.Timestamp.Unix(),
		PowerKW:             s.PowerKW,
		IntervalEnergyKWh:   s.IntervalEnergyKWh,
		Irradiance:          s.Irradiance,
		ModuleTempC:         s.ModuleTempC,
		InvertersHealthyPct: s.InvertersHealthyPct,
	}
}

func (i SampleItem) sample() domain.RealtimeSample {
	return domain.RealtimeSample{
		PlantID:             i.PlantID,
		Timestamp:           time.Unix(i.Timestamp, 0).UTC(),
		PowerKW:             i.PowerKW,
		IntervalEnergyKWh:   i.IntervalEnergyKWh,
		Irradiance:          i.Irradiance,
		ModuleTempC:         i.ModuleTempC,
		InvertersHealthyPct: i.InvertersHealthyPct,
	}
}

// PutSamples stores samples in batches, retrying unprocessed items.
func (c *DynamoDBClient) PutSamples(ctx context.Context, samples []domain.RealtimeSample) error {
	for _, batch := range chunk(samples, batchSize) {
		writeRequests := make([]types.WriteRequest, len(batch))
		for j, s := range batch {
			item, err := attributevalue.MarshalMap(toItem(s))
			if err != nil {
				return fmt.Errorf("failed to marshal sample %d: %w", j, err)
			}
			writeRequests[j] = types.WriteRequest{PutRequest: &types.PutRequest{Item: item}}
		}

		pending := map[string][]types.WriteRequest{c.table: writeRequests}
		for try := 0; len(pending) > 0; try++ {
			if try == maxUnprocessedTries {
				return fmt.Errorf("failed to batch write items: %d left unprocessed", len(pending[c.table]))
			}
			out, err := c.svc.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return fmt.Errorf("failed to batch write items: %w", err)
			}
			pending = out.UnprocessedItems
			if len(pending) > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Duration(try+1) * 100 * time.Millisecond):
				}
			}
		}
	}
	return nil
}

// RecentSamples returns the samples of plantID newer than since, oldest
// first.
func (c *DynamoDBClient) RecentSamples(ctx context.Context, plantID string, since time.Time) ([]domain.RealtimeSample, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String("plantId = :pid AND #ts > :since"),
		ExpressionAttributeNames: map[string]string{
			"#ts": "timestamp",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid":   &types.AttributeValueMemberS{Value: plantID},
			":since": &types.AttributeValueMemberN{Value: strconv.FormatInt(since.Unix(), 10)},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var samples []domain.RealtimeSample
	paginator := dynamodb.NewQueryPaginator(c.svc, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB: %w", err)
		}
		var items []SampleItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal samples: %w", err)
		}
		for _, it := range items {
			samples = append(samples, it.sample())
		}
	}
	return samples, nil
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for i := 0; i < len(items); i += size {
		out = append(out, items[i:min(i+size, len(items))])
	}
	return out
}
