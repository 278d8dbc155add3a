package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-careauth/internal/domain"
)

// sortableTime is RFC3339 with a fixed nine-digit fraction, so created_at
// sorts lexically in time order on the email-created_at index.
const sortableTime = "2006-01-02T15:04:05.000000000Z"

type PredictionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPredictionRepo(client *dynamodb.Client, tableName string) *PredictionRepo {
	return &PredictionRepo{client: client, tableName: tableName}
}

func marshalPrediction(p *domain.Prediction) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return nil, fmt.Errorf("marshal prediction: %w", err)
	}
	item[fieldCreatedAt] = &types.AttributeValueMemberS{Value: p.CreatedAt.UTC().Format(sortableTime)}
	return item, nil
}

func (r *PredictionRepo) Put(ctx context.Context, p *domain.Prediction) error {
	item, err := marshalPrediction(p)
	if err != nil {
		return err
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return storeErr("put prediction", err)
	}
	return nil
}

// ListByEmail returns the predictions owned by email, newest first.
func (r *PredictionRepo) ListByEmail(ctx context.Context, email string) ([]domain.Prediction, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexEmailCreated),
		KeyConditionExpression:    aws.String("#e = :e"),
		ExpressionAttributeNames:  map[string]string{"#e": fieldEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": &types.AttributeValueMemberS{Value: email}},
		ScanIndexForward:          aws.Bool(false),
	})
	out := []domain.Prediction{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, storeErr("query predictions", err)
		}
		var batch []domain.Prediction
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal predictions: %w", err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

// Recent returns the n newest predictions across all owners.
func (r *PredictionRepo) Recent(ctx context.Context, n int) ([]domain.Prediction, error) {
	all, err := r.scanAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// List returns every prediction, newest first.
func (r *PredictionRepo) List(ctx context.Context) ([]domain.Prediction, error) {
	return r.scanAll(ctx)
}

func (r *PredictionRepo) Count(ctx context.Context) (int, error) {
	return countItems(ctx, r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
}

func (r *PredictionRepo) scanAll(ctx context.Context) ([]domain.Prediction, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	all := []domain.Prediction{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, storeErr("scan predictions", err)
		}
		var batch []domain.Prediction
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal predictions: %w", err)
		}
		all = append(all, batch...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all, nil
}
