package data

import (
	"context"
	"fmt"

	"link-runtime/internal/conf"
	"link-runtime/internal/domain"
	"link-runtime/internal/infra/awsconf"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// dynamoStore reads runtime records from the DynamoDB table the publisher writes.
type dynamoStore struct {
	client DynamoAPI
	table  string
}

// NewDynamoClient creates a DynamoDB client for the configured region and endpoint.
func NewDynamoClient(ctx context.Context, c *conf.Store) (*dynamodb.Client, error) {
	cfg, err := awsconf.Load(ctx, c.Region, c.Endpoint)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = awsconf.Endpoint(c.Endpoint)
	}), nil
}

// NewDynamoStore creates a RecordStore backed by a DynamoDB table.
func NewDynamoStore(client DynamoAPI, table string) RecordStore {
	return &dynamoStore{client: client, table: table}
}

func (s *dynamoStore) GetRecord(ctx context.Context, domainName, slug string) (*domain.RuntimeRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: domain.PartitionKey(domainName)},
			attrSK: &types.AttributeValueMemberS{Value: domain.SortKey(slug)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, domain.ErrRecordNotFound
	}

	var item map[string]any
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("dynamodb decode item: %w", err)
	}
	return decodeRecord(domainName, slug, item), nil
}
