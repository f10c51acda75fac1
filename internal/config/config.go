// Package config provides configuration parsing and validation for the
// service.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

// Config holds all configuration parameters for the service.
type Config struct {
	DatabaseDSN       string
	KafkaBrokers      string
	MailInboundTopic  string
	RecordsTopic      string
	ConsumerGroupID   string
	RedisAddr         string
	HTTPPort          string
	AlertFromAddress  string
	AlertEmailEnabled bool
}

// Validate checks that all required configuration fields are set and have
// valid values. Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("db-dsn cannot be empty")
	}
	if c.KafkaBrokers == "" {
		return fmt.Errorf("kafka-brokers cannot be empty")
	}
	if c.MailInboundTopic == "" {
		return fmt.Errorf("mail-inbound-topic cannot be empty")
	}
	if c.RecordsTopic == "" {
		return fmt.Errorf("records-matched-topic cannot be empty")
	}
	if c.ConsumerGroupID == "" {
		return fmt.Errorf("consumer-group-id cannot be empty")
	}
	if c.HTTPPort == "" {
		return fmt.Errorf("http-port cannot be empty")
	}
	return nil
}

// GetEnvOrDefault returns the environment variable value or a default if not
// set.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// MaskDSN masks sensitive information in a DSN for logging.
func MaskDSN(dsn string) string {
	if len(dsn) > 50 {
		return dsn[:20] + "***" + dsn[len(dsn)-20:]
	}
	return "***"
}

// ConnectRedis creates and validates a Redis connection.
// Returns the client and nil on success, or nil and an error on failure.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return client, nil
}
