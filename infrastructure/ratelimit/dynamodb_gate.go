// Package ratelimit holds the shared-store implementation of the cooldown
// gate for deployments that run more than one instance.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// DefaultTTL is how long a gate item lives after its last use.
const DefaultTTL = time.Hour

// DynamoDBAPI is the subset of the DynamoDB client the gate uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// gateEntry is the stored item.
type gateEntry struct {
	PK           string `dynamodbav:"PK"`
	LastActionAt int64  `dynamodbav:"LastActionAt"` // unix milliseconds
	TTL          int64  `dynamodbav:"TTL"`
}

// DynamoDBGate is a ratelimit.Gate shared by every instance through a
// DynamoDB table. It fails open: on a store error the key is reported as not
// limited and the error is returned for logging.
type DynamoDBGate struct {
	client    DynamoDBAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewDynamoDBGate creates a gate on tableName.
func NewDynamoDBGate(client DynamoDBAPI, tableName string, ttl time.Duration, logger *zap.Logger) *DynamoDBGate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DynamoDBGate{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger.Named("dynamodb_gate"),
	}
}

func pk(key string) string { return "GATE#" + key }

// IsLimited reports whether key was used less than window ago.
func (g *DynamoDBGate) IsLimited(ctx context.Context, key string, window time.Duration) (bool, error) {
	last, ok, err := g.lastAction(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return g.now().Sub(last) < window, nil
}

// MarkUsed records now as the last action time for key.
func (g *DynamoDBGate) MarkUsed(ctx context.Context, key string) error {
	now := g.now()
	update := expression.
		Set(expression.Name("LastActionAt"), expression.Value(now.UnixMilli())).
		Set(expression.Name("TTL"), expression.Value(now.Add(g.ttl).Unix()))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("build gate update: %w", err)
	}

	_, err = g.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(g.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk(key)},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return g.storeError("UpdateItem", key, err)
	}
	return nil
}

// RemainingSeconds returns the whole seconds left in the cooldown, rounded up.
func (g *DynamoDBGate) RemainingSeconds(ctx context.Context, key string, window time.Duration) (int, error) {
	last, ok, err := g.lastAction(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	left := window - g.now().Sub(last)
	if left <= 0 {
		return 0, nil
	}
	return int(math.Ceil(left.Seconds())), nil
}

func (g *DynamoDBGate) lastAction(ctx context.Context, key string) (time.Time, bool, error) {
	out, err := g.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(g.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk(key)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return time.Time{}, false, g.storeError("GetItem", key, err)
	}
	if out.Item == nil {
		return time.Time{}, false, nil
	}

	var entry gateEntry
	if err := attributevalue.UnmarshalMap(out.Item, &entry); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse gate entry (failing open): %w", err)
	}
	return time.UnixMilli(entry.LastActionAt), true, nil
}

func (g *DynamoDBGate) storeError(op, key string, err error) error {
	fields := []zap.Field{zap.String("operation", op), zap.String("key", key), zap.Error(err)}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields, zap.String("error_code", apiErr.ErrorCode()))
	}
	g.logger.Warn("Gate store error, failing open", fields...)
	return fmt.Errorf("gate %s (failing open): %w", op, err)
}
