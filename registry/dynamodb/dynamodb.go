// Package dynamodb implements registry.Registry on Amazon DynamoDB.
//
// Each commit is one item. A conditional PutItem makes version numbers
// unique, so concurrent writers in separate processes never overwrite
// each other: the loser gets registry.ErrConcurrentModification and can
// retry on top of the new latest version.
//
// Table schema:
//   - Partition key: registry (string) - the registry name
//   - Sort key: version (number) - monotonically increasing version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name flowsig-registry \
//	  --attribute-definitions AttributeName=registry,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=registry,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	json "github.com/goccy/go-json"
	"github.com/hupe1980/flowsig/registry"
)

const (
	attrRegistry = "registry"
	attrVersion  = "version"
	attrManifest = "manifest"
)

// Client is the interface for DynamoDB operations.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// Registry stores manifests in a DynamoDB table.
type Registry struct {
	client Client
	table  string
	name   string
	now    func() time.Time
}

// New creates a registry for name inside table.
func New(client Client, table, name string) *Registry {
	return &Registry{
		client: client,
		table:  table,
		name:   name,
		now:    time.Now,
	}
}

// NewFromConfig creates a client from the default AWS configuration chain.
// region may be empty.
func NewFromConfig(ctx context.Context, table, name, region string) (*Registry, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: load aws config: %w", err)
	}
	return New(dynamodb.NewFromConfig(cfg), table, name), nil
}

// Commit implements registry.Registry.
func (r *Registry) Commit(ctx context.Context, m *registry.Manifest) (*registry.Manifest, error) {
	var next uint64 = 1
	latest, err := r.Latest(ctx)
	switch {
	case err == nil:
		next = latest.Version + 1
	case errors.Is(err, registry.ErrNoManifest):
	default:
		return nil, err
	}

	c, err := registry.Prepare(m, next, r.now())
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}

	// Conditional put: only succeed if this version doesn't exist yet
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item: map[string]types.AttributeValue{
			attrRegistry: &types.AttributeValueMemberS{Value: r.name},
			attrVersion:  &types.AttributeValueMemberN{Value: strconv.FormatUint(c.Version, 10)},
			attrManifest: &types.AttributeValueMemberS{Value: string(data)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, fmt.Errorf("%w: version %d", registry.ErrConcurrentModification, c.Version)
		}
		return nil, fmt.Errorf("dynamodb: commit version %d: %w", c.Version, err)
	}
	return c, nil
}

// Latest implements registry.Registry.
func (r *Registry) Latest(ctx context.Context) (*registry.Manifest, error) {
	resp, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("#r = :name"),
		ExpressionAttributeNames: map[string]string{
			"#r": attrRegistry,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: r.name},
		},
		ScanIndexForward: aws.Bool(false), // Descending order
		Limit:            aws.Int32(1),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: query latest: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, registry.ErrNoManifest
	}
	return decodeItem(resp.Items[0])
}

// Get implements registry.Registry.
func (r *Registry) Get(ctx context.Context, version uint64) (*registry.Manifest, error) {
	resp, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			attrRegistry: &types.AttributeValueMemberS{Value: r.name},
			attrVersion:  &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: get version %d: %w", version, err)
	}
	if len(resp.Item) == 0 {
		return nil, fmt.Errorf("dynamodb: version %d: %w", version, registry.ErrNoManifest)
	}
	return decodeItem(resp.Item)
}

func decodeItem(item map[string]types.AttributeValue) (*registry.Manifest, error) {
	attr, ok := item[attrManifest].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s attribute", registry.ErrInvalidManifest, attrManifest)
	}

	var m registry.Manifest
	if err := json.Unmarshal([]byte(attr.Value), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", registry.ErrInvalidManifest, err)
	}

	if v, ok := item[attrVersion].(*types.AttributeValueMemberN); ok {
		version, err := strconv.ParseUint(v.Value, 10, 64)
		if err != nil || version != m.Version {
			return nil, fmt.Errorf("%w: version attribute %q does not match manifest version %d", registry.ErrInvalidManifest, v.Value, m.Version)
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

var _ registry.Registry = (*Registry)(nil)
