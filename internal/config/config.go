package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `json:"server"`
	Database      DatabaseConfig      `json:"database"`
	Security      SecurityConfig      `json:"security"`
	Logging       LoggingConfig       `json:"logging"`
	Notifications NotificationsConfig `json:"notifications"`
	Workflow      WorkflowConfig      `json:"workflow"`
	Documents     DocumentsConfig     `json:"documents"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	IdleTimeout    time.Duration `json:"idle_timeout"`
	AllowedOrigins []string      `json:"allowed_origins"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string        `json:"jwt_secret"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// NotificationsConfig controls the dispatcher queue and its optional channels.
type NotificationsConfig struct {
	QueueSize     int           `json:"queue_size"`
	SNSTopicARN   string        `json:"sns_topic_arn"`
	AWSRegion     string        `json:"aws_region"`
	Retention     time.Duration `json:"retention"`
	PurgeInterval time.Duration `json:"purge_interval"`
}

// WorkflowConfig tunes the stage catalog and transaction retries.
type WorkflowConfig struct {
	StageCacheTTL    time.Duration `json:"stage_cache_ttl"`
	StageRefreshCron string        `json:"stage_refresh_cron"`
	TxMaxElapsed     time.Duration `json:"tx_max_elapsed"`
	TxMaxRetries     uint64        `json:"tx_max_retries"`
}

// DocumentsConfig
type DocumentsConfig struct {
	Letterhead   string `json:"letterhead"`
	SignatoryRef string `json:"signatory_ref"`
	// S3Bucket stores generated letters in S3. Empty keeps them in the database.
	S3Bucket     string `json:"s3_bucket"`
	S3Region     string `json:"s3_region"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "baaseteen",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    30 * time.Minute,
		},
		Security: SecurityConfig{
			TokenTTL: 12 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Notifications: NotificationsConfig{
			QueueSize:     256,
			AWSRegion:     "us-east-1",
			Retention:     90 * 24 * time.Hour,
			PurgeInterval: time.Hour,
		},
		Workflow: WorkflowConfig{
			StageCacheTTL:    5 * time.Minute,
			StageRefreshCron: "0 */5 * * * *",
			TxMaxElapsed:     5 * time.Second,
			TxMaxRetries:     5,
		},
		Documents: DocumentsConfig{
			Letterhead: "Baaseteen Welfare Committee",
		},
	}
}

// LoadConfig loads configuration from file and environment variables.
// Variables in a .env file next to the process are loaded first; variables
// already set in the environment win.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

func overrideWithEnv(config *Config) error {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT %q: %w", port, err)
		}
		config.Server.Port = p
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		p, err := strconv.Atoi(dbPort)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_PORT %q: %w", dbPort, err)
		}
		config.Database.Port = p
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		config.Database.SSLMode = sslMode
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if topic := os.Getenv("SNS_TOPIC_ARN"); topic != "" {
		config.Notifications.SNSTopicARN = topic
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Notifications.AWSRegion = region
	}
	if retention := os.Getenv("NOTIFICATION_RETENTION"); retention != "" {
		d, err := time.ParseDuration(retention)
		if err != nil {
			return fmt.Errorf("invalid NOTIFICATION_RETENTION %q: %w", retention, err)
		}
		config.Notifications.Retention = d
	}
	if ttl := os.Getenv("STAGE_CACHE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid STAGE_CACHE_TTL %q: %w", ttl, err)
		}
		config.Workflow.StageCacheTTL = d
	}
	if schedule := os.Getenv("STAGE_REFRESH_CRON"); schedule != "" {
		config.Workflow.StageRefreshCron = schedule
	}
	if bucket := os.Getenv("DOCUMENTS_S3_BUCKET"); bucket != "" {
		config.Documents.S3Bucket = bucket
	}
	if region := os.Getenv("DOCUMENTS_S3_REGION"); region != "" {
		config.Documents.S3Region = region
	}
	return nil
}

// Validate reports configuration that would prevent the API from serving.
func (c *Config) Validate() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if c.Notifications.QueueSize <= 0 {
		return fmt.Errorf("notifications.queue_size must be positive")
	}
	return nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
