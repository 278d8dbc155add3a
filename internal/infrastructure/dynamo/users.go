package dynamo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-careauth/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
// The table is keyed by email; user_id and username are served by GSIs.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, now: time.Now}
}

// Insert stores u if no user with the same email exists and returns its id.
func (r *UserRepo) Insert(ctx context.Context, u *domain.User) (string, error) {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return "", fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#e)"),
		ExpressionAttributeNames: map[string]string{"#e": fieldEmail},
	})
	if isConditionFailed(err) {
		return "", fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	if err != nil {
		return "", storeErr("put user", err)
	}
	return u.UserID, nil
}

// FindByEmail returns nil, nil when no user has that email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeErr("get user", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.queryGSI(ctx, indexUsername, fieldUsername, username)
}

func (r *UserRepo) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	return r.queryGSI(ctx, indexUserID, fieldUserID, userID)
}

// FindByEmailOrUsername treats identifiers containing "@" as emails and
// falls back to the username index otherwise or when the email misses.
func (r *UserRepo) FindByEmailOrUsername(ctx context.Context, identifier string) (*domain.User, error) {
	if strings.Contains(identifier, "@") {
		u, err := r.FindByEmail(ctx, identifier)
		if err != nil || u != nil {
			return u, err
		}
	}
	return r.FindByUsername(ctx, identifier)
}

// UpdateVerification sets the verified flag and reports how many users matched.
func (r *UserRepo) UpdateVerification(ctx context.Context, email string, verified bool) (int, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldVerified:  verified,
		fieldUpdatedAt: r.now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	ue.Names["#k"] = fieldEmail
	return r.update(ctx, "update verification", strKey(fieldEmail, email), ue, "attribute_exists(#k)")
}

// UpdateRole sets the role of the user with userID and reports how many matched.
func (r *UserRepo) UpdateRole(ctx context.Context, userID string, role domain.Role) (int, error) {
	u, err := r.GetByID(ctx, userID)
	if err != nil || u == nil {
		return 0, err
	}
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldRole:      string(role),
		fieldUpdatedAt: r.now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	// The id is re-checked on write so a concurrent delete and re-register
	// under the same email is never updated.
	cond := ue.withCondition(fieldUserID, userID)
	return r.update(ctx, "update role", strKey(fieldEmail, u.Email), ue, cond)
}

// Delete removes the user with userID and reports how many were deleted.
func (r *UserRepo) Delete(ctx context.Context, userID string) (int, error) {
	u, err := r.GetByID(ctx, userID)
	if err != nil || u == nil {
		return 0, err
	}
	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldEmail, u.Email),
		ConditionExpression:       aws.String("#c = :c"),
		ExpressionAttributeNames:  map[string]string{"#c": fieldUserID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":c": &types.AttributeValueMemberS{Value: userID}},
	})
	if isConditionFailed(err) {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr("delete user", err)
	}
	return 1, nil
}

// List returns a page of users. cursor is a base64-encoded email used as
// ExclusiveStartKey; the returned cursor is empty on the last page.
func (r *UserRepo) List(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
		Limit:     aws.Int32(limit),
	}
	if cursor != "" {
		email, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey(fieldEmail, email)
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", storeErr("scan users", err)
	}
	users := []domain.User{}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &users); err != nil {
		return nil, "", fmt.Errorf("unmarshal users: %w", err)
	}
	next := ""
	if v, ok := out.LastEvaluatedKey[fieldEmail].(*types.AttributeValueMemberS); ok {
		next = encodeCursor(v.Value)
	}
	return users, next, nil
}

// ListByRole returns every user holding role.
func (r *UserRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String("#r = :r"),
		ExpressionAttributeNames:  map[string]string{"#r": fieldRole},
		ExpressionAttributeValues: map[string]types.AttributeValue{":r": &types.AttributeValueMemberS{Value: string(role)}},
	})
	users := []domain.User{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, storeErr("scan users by role", err)
		}
		var batch []domain.User
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal users: %w", err)
		}
		users = append(users, batch...)
	}
	return users, nil
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	return countItems(ctx, r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
}

func (r *UserRepo) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	return countItems(ctx, r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String("#r = :r"),
		ExpressionAttributeNames:  map[string]string{"#r": fieldRole},
		ExpressionAttributeValues: map[string]types.AttributeValue{":r": &types.AttributeValueMemberS{Value: string(role)}},
	})
}

func (r *UserRepo) update(ctx context.Context, op string, key map[string]types.AttributeValue, ue *updateExpr, cond string) (int, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       key,
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr(op, err)
	}
	return 1, nil
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
	if value == "" {
		return nil, nil
	}
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, storeErr("query "+index, err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// countItems runs a COUNT scan across every page of input.
func countItems(ctx context.Context, client *dynamodb.Client, input *dynamodb.ScanInput) (int, error) {
	input.Select = types.SelectCount
	p := dynamodb.NewScanPaginator(client, input)
	total := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, storeErr("count "+aws.ToString(input.TableName), err)
		}
		total += int(page.Count)
	}
	return total, nil
}
