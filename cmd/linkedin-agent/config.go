package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Log      LogConfig
	Paths    PathsConfig
	Storage  StorageConfig
	History  HistoryConfig
	Database DatabaseConfig
	Chrome   ChromeConfig
	Agent    AgentConfig
	Review   ReviewConfig
	LLM      LLMConfig
}

// LogConfig holds logging configuration. With Dir set, each command also
// appends to <Dir>/<name>.log.
type LogConfig struct {
	Level string
	Dir   string
}

// PathsConfig names the documents kept in blob storage.
type PathsConfig struct {
	Config   string
	History  string
	DebugDir string
	// DebugKeep caps screenshots kept per agent type; 0 keeps all.
	DebugKeep int
}

// StorageConfig holds blob storage configuration.
type StorageConfig struct {
	Type            string // "local" or "s3"
	BaseDir         string
	S3Bucket        string
	S3Region        string
	S3PresignExpiry time.Duration
}

// HistoryConfig selects where run history is kept: "json", "sqlite" or
// "mysql".
type HistoryConfig struct {
	Backend string
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Path         string
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
}

// ChromeConfig holds the persistent browser settings.
type ChromeConfig struct {
	DebugPort   int
	Path        string
	UserDataDir string
	Headless    bool
	ReadyWait   time.Duration
}

// AgentConfig holds run settings.
type AgentConfig struct {
	TimeLimit      time.Duration
	SelfProfileURL string
}

// ReviewConfig holds the review server configuration.
type ReviewConfig struct {
	Host            string
	Port            int
	CookieSecret    string
	SessionDuration time.Duration
	MaxSessions     int
	PostsPath       string
	ItemsPath       string
	ApprovedPath    string
}

// LLMConfig holds the Bedrock classifier configuration.
type LLMConfig struct {
	Enabled       bool
	BedrockRegion string
	BedrockModel  string
}

// LoadConfig loads configuration from file and LINKEDIN_AGENT_* environment
// variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("linkedin-agent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("LINKEDIN_AGENT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "logs")

	v.SetDefault("paths.config", "config.json")
	v.SetDefault("paths.history", "agent_history.json")
	v.SetDefault("paths.debug_dir", "debug")
	v.SetDefault("paths.debug_keep", 20)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_dir", ".")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_presign_expiry", "15m")

	v.SetDefault("history.backend", "json")

	v.SetDefault("database.path", "agent_history.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "linkedin_agent")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)

	v.SetDefault("chrome.debug_port", 9222)
	v.SetDefault("chrome.path", "")
	v.SetDefault("chrome.user_data_dir", "chrome_profile")
	v.SetDefault("chrome.headless", false)
	v.SetDefault("chrome.ready_wait", "15s")

	v.SetDefault("agent.time_limit", "2h")
	v.SetDefault("agent.self_profile_url", "")

	v.SetDefault("review.host", "127.0.0.1")
	v.SetDefault("review.port", 8080)
	v.SetDefault("review.cookie_secret", "")
	v.SetDefault("review.session_duration", "2h")
	v.SetDefault("review.max_sessions", 8)
	v.SetDefault("review.posts_path", "collected_posts.json")
	v.SetDefault("review.items_path", "pending_comments.json")
	v.SetDefault("review.approved_path", "approved_comments.json")

	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.bedrock_region", "us-east-1")
	v.SetDefault("llm.bedrock_model", "anthropic.claude-3-haiku-20240307-v1:0")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config

	config.Log.Level = v.GetString("log.level")
	config.Log.Dir = v.GetString("log.dir")

	config.Paths.Config = v.GetString("paths.config")
	config.Paths.History = v.GetString("paths.history")
	config.Paths.DebugDir = v.GetString("paths.debug_dir")
	config.Paths.DebugKeep = v.GetInt("paths.debug_keep")

	config.Storage.Type = v.GetString("storage.type")
	config.Storage.BaseDir = v.GetString("storage.base_dir")
	config.Storage.S3Bucket = v.GetString("storage.s3_bucket")
	config.Storage.S3Region = v.GetString("storage.s3_region")
	config.Storage.S3PresignExpiry = v.GetDuration("storage.s3_presign_expiry")

	config.History.Backend = v.GetString("history.backend")

	config.Database.Path = v.GetString("database.path")
	config.Database.Host = v.GetString("database.host")
	config.Database.Port = v.GetInt("database.port")
	config.Database.User = v.GetString("database.user")
	config.Database.Password = v.GetString("database.password")
	config.Database.Database = v.GetString("database.database")
	config.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	config.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")

	config.Chrome.DebugPort = v.GetInt("chrome.debug_port")
	config.Chrome.Path = v.GetString("chrome.path")
	config.Chrome.UserDataDir = v.GetString("chrome.user_data_dir")
	config.Chrome.Headless = v.GetBool("chrome.headless")
	config.Chrome.ReadyWait = v.GetDuration("chrome.ready_wait")

	config.Agent.TimeLimit = v.GetDuration("agent.time_limit")
	config.Agent.SelfProfileURL = v.GetString("agent.self_profile_url")

	config.Review.Host = v.GetString("review.host")
	config.Review.Port = v.GetInt("review.port")
	config.Review.CookieSecret = v.GetString("review.cookie_secret")
	config.Review.SessionDuration = v.GetDuration("review.session_duration")
	config.Review.MaxSessions = v.GetInt("review.max_sessions")
	config.Review.PostsPath = v.GetString("review.posts_path")
	config.Review.ItemsPath = v.GetString("review.items_path")
	config.Review.ApprovedPath = v.GetString("review.approved_path")

	config.LLM.Enabled = v.GetBool("llm.enabled")
	config.LLM.BedrockRegion = v.GetString("llm.bedrock_region")
	config.LLM.BedrockModel = v.GetString("llm.bedrock_model")

	return &config, nil
}
