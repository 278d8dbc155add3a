package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-careauth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"role": "Doctor"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": "role"}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"verified":   true,
		"role":       "Doctor",
		"updated_at": "2026-01-01T00:00:00Z",
	}
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)
	assert.Equal(t, "role", ue1.Names["#f0"])
	assert.Equal(t, "updated_at", ue1.Names["#f1"])
	assert.Equal(t, "verified", ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"verified": true})
	require.NoError(t, err)
	av, ok := ue.Values[":v0"]
	require.True(t, ok)
	boolVal, isBool := av.(*types.AttributeValueMemberBOOL)
	require.True(t, isBool)
	assert.True(t, boolVal.Value)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestWithCondition(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"role": "Admin"})
	require.NoError(t, err)
	cond := ue.withCondition("user_id", "u1")
	assert.Equal(t, "#c = :c", cond)
	assert.Equal(t, "user_id", ue.Names["#c"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "u1"}, ue.Values[":c"])
}

func TestCursor_RoundTrip(t *testing.T) {
	got, err := decodeCursor(encodeCursor("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got)
	_, err = decodeCursor("%%%")
	assert.Error(t, err)
}

func TestStoreErr_Transient(t *testing.T) {
	for _, err := range []error{
		context.DeadlineExceeded,
		fmt.Errorf("op: %w", &types.ProvisionedThroughputExceededException{}),
		&types.RequestLimitExceeded{},
		&types.InternalServerError{},
	} {
		assert.True(t, errors.Is(storeErr("get", err), domain.ErrTransient), err.Error())
	}
	assert.False(t, errors.Is(storeErr("get", errors.New("validation")), domain.ErrTransient))
}

func TestIsConditionFailed(t *testing.T) {
	assert.True(t, isConditionFailed(fmt.Errorf("put: %w", &types.ConditionalCheckFailedException{})))
	assert.False(t, isConditionFailed(errors.New("boom")))
}

func TestMarshalPrediction_CreatedAtSortsInTimeOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(100 * time.Millisecond), // .1
		base.Add(120 * time.Millisecond), // .12
		base.Add(time.Second),
	}
	var keys []string
	for _, ts := range times {
		item, err := marshalPrediction(&domain.Prediction{PredictionID: "p", Email: "a@x.com", CreatedAt: ts})
		require.NoError(t, err)
		s, ok := item[fieldCreatedAt].(*types.AttributeValueMemberS)
		require.True(t, ok)
		assert.Len(t, s.Value, len(sortableTime))
		keys = append(keys, s.Value)
	}
	assert.True(t, sort.StringsAreSorted(keys), "keys %v", keys)
}

func TestMarshalPrediction_CreatedAtDecodes(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 5, 100_000_000, time.FixedZone("CET", 3600))
	item, err := marshalPrediction(&domain.Prediction{PredictionID: "p", Email: "a@x.com", CreatedAt: created})
	require.NoError(t, err)

	var got domain.Prediction
	require.NoError(t, attributevalue.UnmarshalMap(item, &got))
	assert.True(t, created.Equal(got.CreatedAt))
}
