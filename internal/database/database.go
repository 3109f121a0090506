package database

import (
	"context"
	"fmt"

	"livechat-backend/internal/env"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoDBClient wraps the SDK client behind the item helpers in
// functions.go; the chat and catalog repositories never touch the SDK
// directly.
type DynamoDBClient struct {
	svc *dynamodb.Client
}

// NewDynamoDBClient builds the client from the environment. Static
// credentials are optional; without them the default AWS provider chain
// applies. DYNAMODB_ENDPOINT points the client at a local instance for
// self-hosted and test setups.
func NewDynamoDBClient() (*DynamoDBClient, error) {
	accessKey := env.Get(env.AWSID)
	secretKey := env.Get(env.AWSSecret)
	sessionToken := env.Get(env.AWSToken)

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(env.Get(env.AWSRegion)),
	}
	if accessKey != "" && secretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(accessKey, secretKey, sessionToken)),
		))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var clientOpts []func(*dynamodb.Options)
	if endpoint := env.Get(env.DynamoDBEndpoint); endpoint != "" {
		clientOpts = append(clientOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	return &DynamoDBClient{svc: dynamodb.NewFromConfig(cfg, clientOpts...)}, nil
}

// Database is the storage handle main hands to the repositories.
type Database struct {
	Client *DynamoDBClient
}

func NewDatabase() (*Database, error) {
	client, err := NewDynamoDBClient()
	if err != nil {
		return nil, fmt.Errorf("init dynamodb client: %w", err)
	}
	return &Database{Client: client}, nil
}
