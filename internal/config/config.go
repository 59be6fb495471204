package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Mongo    MongoConfig    `json:"mongo"`
	Auth     AuthConfig     `json:"auth"`
	AI       AIConfig       `json:"ai"`
	Mail     MailConfig     `json:"mail"`
	Storage  StorageConfig  `json:"storage"`
	Search   SearchConfig   `json:"search"`
	Payments PaymentsConfig `json:"payments"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// MongoConfig represents the document store configuration
type MongoConfig struct {
	URI      string        `json:"uri"`
	Database string        `json:"database"`
	Timeout  time.Duration `json:"timeout"`
}

// AuthConfig holds JWT settings
type AuthConfig struct {
	AccessSecret  string        `json:"access_secret"`
	RefreshSecret string        `json:"refresh_secret"`
	AccessTTL     time.Duration `json:"access_ttl"`
	RefreshTTL    time.Duration `json:"refresh_ttl"`
}

// AIConfig holds the external verification service settings
type AIConfig struct {
	BaseURL             string        `json:"base_url"`
	ConfidenceThreshold float64       `json:"confidence_threshold"`
	Timeout             time.Duration `json:"timeout"`
	SweepInterval       time.Duration `json:"sweep_interval"`
	SweepBatchSize      int           `json:"sweep_batch_size"`
}

// MailConfig holds SES settings
type MailConfig struct {
	Region string `json:"region"`
	Sender string `json:"sender"`
}

// StorageConfig holds S3 settings for project media
type StorageConfig struct {
	Region        string `json:"region"`
	Bucket        string `json:"bucket"`
	PublicBaseURL string `json:"public_base_url"`
}

// SearchConfig holds Elasticsearch settings
type SearchConfig struct {
	Enabled   bool     `json:"enabled"`
	Addresses []string `json:"addresses"`
}

// PaymentsConfig holds the payment gateway settings
type PaymentsConfig struct {
	GatewaySecret string `json:"gateway_secret"`
	Currency      string `json:"currency"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "communifund",
			Timeout:  10 * time.Second,
		},
		Auth: AuthConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		AI: AIConfig{
			BaseURL:             "http://localhost:5001",
			ConfidenceThreshold: 0.5,
			Timeout:             3 * time.Second,
			SweepInterval:       10 * time.Minute,
			SweepBatchSize:      25,
		},
		Mail: MailConfig{
			Region: "us-east-1",
		},
		Storage: StorageConfig{
			Region: "us-east-1",
			Bucket: "communifund-media",
		},
		Search: SearchConfig{
			Addresses: []string{"http://localhost:9200"},
		},
		Payments: PaymentsConfig{
			Currency: "INR",
		},
		Logging: LoggingConfig{Level: "info"},
	}

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		config.Mongo.URI = uri
	}
	if db := os.Getenv("MONGO_DATABASE"); db != "" {
		config.Mongo.Database = db
	}
	if s := os.Getenv("ACCESS_TOKEN_SECRET"); s != "" {
		config.Auth.AccessSecret = s
	}
	if s := os.Getenv("REFRESH_TOKEN_SECRET"); s != "" {
		config.Auth.RefreshSecret = s
	}
	if url := os.Getenv("AI_SERVICE_URL"); url != "" {
		config.AI.BaseURL = url
	}
	if t := os.Getenv("AI_CONFIDENCE_THRESHOLD"); t != "" {
		if v, err := strconv.ParseFloat(t, 64); err == nil {
			config.AI.ConfidenceThreshold = v
		}
	}
	if t := os.Getenv("AI_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			config.AI.Timeout = d
		}
	}
	if t := os.Getenv("AI_SWEEP_INTERVAL"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			config.AI.SweepInterval = d
		}
	}
	if sender := os.Getenv("MAIL_SENDER"); sender != "" {
		config.Mail.Sender = sender
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Mail.Region = region
		config.Storage.Region = region
	}
	if bucket := os.Getenv("MEDIA_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}
	if base := os.Getenv("MEDIA_PUBLIC_BASE_URL"); base != "" {
		config.Storage.PublicBaseURL = base
	}
	if urls := os.Getenv("ELASTIC_URL"); urls != "" {
		config.Search.Addresses = strings.Split(urls, ",")
		config.Search.Enabled = true
	}
	if s := os.Getenv("PAYMENT_GATEWAY_SECRET"); s != "" {
		config.Payments.GatewaySecret = s
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
