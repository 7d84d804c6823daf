package storage

import "os"

// DynamoMode represents the DynamoDB connection mode
type DynamoMode string

const (
	DynamoModeLocal  DynamoMode = "local"
	DynamoModeAWS    DynamoMode = "aws"
	DynamoModeMemory DynamoMode = "memory"
)

// DynamoConfig holds DynamoDB configuration
type DynamoConfig struct {
	Mode            DynamoMode
	Endpoint        string // for local mode
	Region          string
	CallStatsTable  string
	EmailStatsTable string
	B2BStatsTable   string
	AverageRepTable string
	UsersTable      string
	TokensTable     string
}

// LoadDynamoConfig loads DynamoDB config from environment
func LoadDynamoConfig() DynamoConfig {
	mode := DynamoMode(getEnv("DYNAMO_MODE", "memory"))
	if mode != DynamoModeLocal && mode != DynamoModeAWS {
		mode = DynamoModeMemory
	}

	return DynamoConfig{
		Mode:            mode,
		Endpoint:        getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
		Region:          getEnv("DYNAMO_REGION", "us-east-1"),
		CallStatsTable:  getEnv("DYNAMO_CALL_STATS_TABLE", "repboard-call-statistics"),
		EmailStatsTable: getEnv("DYNAMO_EMAIL_STATS_TABLE", "repboard-outlook-statistics"),
		B2BStatsTable:   getEnv("DYNAMO_B2B_STATS_TABLE", "repboard-b2b-statistics"),
		AverageRepTable: getEnv("DYNAMO_AVERAGE_REP_TABLE", "repboard-average-rep"),
		UsersTable:      getEnv("DYNAMO_USERS_TABLE", "repboard-users"),
		TokensTable:     getEnv("DYNAMO_TOKENS_TABLE", "repboard-tokens"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
