package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-careauth/internal/domain"
)

// storeErr wraps a DynamoDB failure. Deadlines and throttling are marked
// with domain.ErrTransient so callers can retry them.
func storeErr(op string, err error) error {
	if isTransient(err) {
		return fmt.Errorf("dynamo %s: %w: %w", op, domain.ErrTransient, err)
	}
	return fmt.Errorf("dynamo %s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var (
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
		internal   *types.InternalServerError
	)
	return errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &internal)
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
