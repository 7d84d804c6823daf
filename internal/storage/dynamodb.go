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
	"github.com/dmeyerson/repboard/internal/types"
	"github.com/rs/zerolog"
)

// DynamoDBStore implements Store using AWS DynamoDB. Upserts map to
// PutItem, which replaces the full item under the (ReportDate, UserID)
// key. Last write wins, matching the natural-key upsert semantics.
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

func (s *DynamoDBStore) putItem(table string, v any) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("failed to marshal item for %s: %w", table, err)
	}

	_, err = s.client.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item into %s: %w", table, err)
	}
	return nil
}

func (s *DynamoDBStore) queryByDate(table, date string) ([]map[string]dbtypes.AttributeValue, error) {
	keyCond := expression.Key("ReportDate").Equal(expression.Value(date))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	var items []map[string]dbtypes.AttributeValue
	var lastKey map[string]dbtypes.AttributeValue

	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(table),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}
		if lastKey != nil {
			input.ExclusiveStartKey = lastKey
		}

		result, err := s.client.Query(context.Background(), input)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", table, err)
		}
		items = append(items, result.Items...)

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	return items, nil
}

func (s *DynamoDBStore) getItem(table string, key map[string]dbtypes.AttributeValue) (map[string]dbtypes.AttributeValue, error) {
	result, err := s.client.GetItem(context.Background(), &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from %s: %w", table, err)
	}
	return result.Item, nil
}

func statsKey(userID, date string) map[string]dbtypes.AttributeValue {
	return map[string]dbtypes.AttributeValue{
		"ReportDate": &dbtypes.AttributeValueMemberS{Value: date},
		"UserID":     &dbtypes.AttributeValueMemberS{Value: userID},
	}
}

func (s *DynamoDBStore) UpsertCallStats(stats types.CallStats) error {
	return s.putItem(s.config.CallStatsTable, stats)
}

func (s *DynamoDBStore) UpsertEmailStats(stats types.EmailStats) error {
	return s.putItem(s.config.EmailStatsTable, stats)
}

func (s *DynamoDBStore) UpsertB2BStats(stats types.B2BStats) error {
	return s.putItem(s.config.B2BStatsTable, stats)
}

func (s *DynamoDBStore) GetCallStatsByDate(date string) ([]types.CallStats, error) {
	items, err := s.queryByDate(s.config.CallStatsTable, date)
	if err != nil {
		return nil, err
	}

	var rows []types.CallStats
	if err := attributevalue.UnmarshalListOfMaps(items, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal call stats: %w", err)
	}
	return rows, nil
}

func (s *DynamoDBStore) GetEmailStatsByDate(date string) ([]types.EmailStats, error) {
	items, err := s.queryByDate(s.config.EmailStatsTable, date)
	if err != nil {
		return nil, err
	}

	var rows []types.EmailStats
	if err := attributevalue.UnmarshalListOfMaps(items, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal email stats: %w", err)
	}
	return rows, nil
}

func (s *DynamoDBStore) GetB2BStatsByDate(date string) ([]types.B2BStats, error) {
	items, err := s.queryByDate(s.config.B2BStatsTable, date)
	if err != nil {
		return nil, err
	}

	var rows []types.B2BStats
	if err := attributevalue.UnmarshalListOfMaps(items, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal b2b stats: %w", err)
	}
	return rows, nil
}

func (s *DynamoDBStore) GetUserCallStats(userID, date string) (*types.CallStats, error) {
	item, err := s.getItem(s.config.CallStatsTable, statsKey(userID, date))
	if err != nil || item == nil {
		return nil, err
	}

	var row types.CallStats
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal call stats: %w", err)
	}
	return &row, nil
}

func (s *DynamoDBStore) GetUserEmailStats(userID, date string) (*types.EmailStats, error) {
	item, err := s.getItem(s.config.EmailStatsTable, statsKey(userID, date))
	if err != nil || item == nil {
		return nil, err
	}

	var row types.EmailStats
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal email stats: %w", err)
	}
	return &row, nil
}

func (s *DynamoDBStore) GetUserB2BStats(userID, date string) (*types.B2BStats, error) {
	item, err := s.getItem(s.config.B2BStatsTable, statsKey(userID, date))
	if err != nil || item == nil {
		return nil, err
	}

	var row types.B2BStats
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal b2b stats: %w", err)
	}
	return &row, nil
}

func (s *DynamoDBStore) GetAverageRep(date string) (*types.AverageRep, error) {
	item, err := s.getItem(s.config.AverageRepTable, map[string]dbtypes.AttributeValue{
		"ReportDate": &dbtypes.AttributeValueMemberS{Value: date},
	})
	if err != nil || item == nil {
		return nil, err
	}

	var row types.AverageRep
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal average rep row: %w", err)
	}
	return &row, nil
}

func (s *DynamoDBStore) UpsertAverageRep(avg types.AverageRep) error {
	return s.putItem(s.config.AverageRepTable, avg)
}

func (s *DynamoDBStore) DeleteAverageRep(date string) error {
	_, err := s.client.DeleteItem(context.Background(), &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.AverageRepTable),
		Key: map[string]dbtypes.AttributeValue{
			"ReportDate": &dbtypes.AttributeValueMemberS{Value: date},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete average rep row: %w", err)
	}
	return nil
}

func (s *DynamoDBStore) ListUsers() ([]types.User, error) {
	var users []types.User
	var lastKey map[string]dbtypes.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName: aws.String(s.config.UsersTable),
		}
		if lastKey != nil {
			input.ExclusiveStartKey = lastKey
		}

		result, err := s.client.Scan(context.Background(), input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan users: %w", err)
		}

		var page []types.User
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal users: %w", err)
		}
		users = append(users, page...)

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	return users, nil
}

func (s *DynamoDBStore) GetUser(email string) (*types.User, error) {
	item, err := s.getItem(s.config.UsersTable, map[string]dbtypes.AttributeValue{
		"Email": &dbtypes.AttributeValueMemberS{Value: email},
	})
	if err != nil || item == nil {
		return nil, err
	}

	var user types.User
	if err := attributevalue.UnmarshalMap(item, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

func (s *DynamoDBStore) UpsertUser(user types.User) error {
	return s.putItem(s.config.UsersTable, user)
}

func (s *DynamoDBStore) GetTokens(provider string) (*types.ProviderTokens, error) {
	item, err := s.getItem(s.config.TokensTable, map[string]dbtypes.AttributeValue{
		"Provider": &dbtypes.AttributeValueMemberS{Value: provider},
	})
	if err != nil || item == nil {
		return nil, err
	}

	var tokens types.ProviderTokens
	if err := attributevalue.UnmarshalMap(item, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tokens: %w", err)
	}
	return &tokens, nil
}

func (s *DynamoDBStore) SaveTokens(tokens types.ProviderTokens) error {
	return s.putItem(s.config.TokensTable, tokens)
}

// NewStore creates the appropriate store based on configuration
func NewStore(ctx context.Context, logger zerolog.Logger) (Store, error) {
	cfg := LoadDynamoConfig()

	switch cfg.Mode {
	case DynamoModeLocal, DynamoModeAWS:
		return NewDynamoDBStore(ctx, cfg, logger)
	default:
		logger.Info().Msg("using in-memory store (DYNAMO_MODE=memory)")
		return NewMemoryStore(), nil
	}
}
