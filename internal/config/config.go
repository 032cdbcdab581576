package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	DefaultConfigFile = "config.json"
	DefaultEnvFile    = ".env"
	DefaultDBFile     = "prforum.db"
)

var (
	// ErrMissing marks a required value that is not set.
	ErrMissing = errors.New("missing required value")
	// ErrInvalid marks a value that is set but unusable.
	ErrInvalid = errors.New("invalid value")
)

// envKeys maps config keys to the environment variables that set them.
var envKeys = map[string]string{
	"discord.token":              "TOKEN",
	"discord.guild_id":           "GUILD",
	"discord.forum_channel_id":   "PR_CHANNEL",
	"discord.tags.draft":         "FORUM_TAG_DRAFT",
	"discord.tags.review_needed": "FORUM_TAG_REVIEW_NEEDED",
	"discord.tags.approved":      "FORUM_TAG_APPROVED",
	"discord.tags.merged":        "FORUM_TAG_MERGED",
	"discord.tags.closed":        "FORUM_TAG_CLOSED",
	"discord.member_role_id":     "MEMBER_ROLE",
	"discord.maintainer_role_id": "MAINTAINER_ROLE",
	"github.owner":               "REPO_OWNER",
	"github.repo":                "REPO",
	"github.token":               "GITHUB_TOKEN",
	"github.webhook_hmac_secret": "GITHUB_WEBHOOK_SECRET",
	"webhook.secret":             "WEBHOOK_SECRET",
	"server.addr":                "SERVER_ADDR",
	"server.shutdown_timeout":    "SERVER_SHUTDOWN_TIMEOUT",
	"queue.capacity":             "QUEUE_CAPACITY",
	"queue.restart_delay":        "QUEUE_RESTART_DELAY",
	"search.repo_path":           "SEARCH_REPO_PATH",
	"search.clone_url":           "SEARCH_CLONE_URL",
	"search.branch":              "SEARCH_BRANCH",
	"search.refresh_schedule":    "SEARCH_REFRESH_SCHEDULE",
	"database.driver":            "DATABASE_DRIVER",
	"database.path":              "DATABASE_PATH",
	"database.dsn":               "DATABASE_DSN",
}

// EnvName returns the environment variable bound to key, if any.
func EnvName(key string) string {
	return envKeys[key]
}

// Load seeds the environment from envFile (when present), then reads the
// config file and environment into a Config. An empty configPath looks for
// config.json in the working directory; a missing file is not an error.
// Load does not validate; call Validate before relying on required values.
func Load(configPath, envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	setDefaults(v)
	bindEnvs(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile exports every variable in path that is not already set in the
// process environment.
func loadEnvFile(path string) error {
	envMap, err := godotenv.Read(path)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	for k, val := range envMap {
		if _, exists := os.LookupEnv(k); !exists {
			_ = os.Setenv(k, val)
		}
	}
	return nil
}

// Save writes the config to disk as JSON.
func Save(cfg *Config, configPath string) error {
	if configPath == "" {
		configPath = DefaultConfigFile
	}
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("serialising config: %w", err)
	}
	return os.WriteFile(configPath, data, 0o600)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("queue.capacity", 16)
	v.SetDefault("queue.restart_delay", 100*time.Millisecond)

	v.SetDefault("search.repo_path", "./repo")
	v.SetDefault("search.clone_url", "")
	v.SetDefault("search.branch", "")
	v.SetDefault("search.refresh_schedule", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", DefaultDBFile)
	v.SetDefault("database.dsn", "")

	v.SetDefault("github.webhook_hmac_secret", "")
}

func bindEnvs(v *viper.Viper) {
	for key, env := range envKeys {
		_ = v.BindEnv(key, env)
	}
}

// Problems lists every missing or invalid value. Each error wraps ErrMissing
// or ErrInvalid.
func (c *Config) Problems() []error {
	var errs []error
	required := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			errs = append(errs, fmt.Errorf("%s (%s): %w", key, envKeys[key], ErrMissing))
		}
	}
	snowflake := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			required(key, val)
			return
		}
		if _, err := strconv.ParseUint(val, 10, 64); err != nil {
			errs = append(errs, fmt.Errorf("%s (%s) must be a snowflake id, got %q: %w", key, envKeys[key], val, ErrInvalid))
		}
	}

	required("discord.token", c.Discord.Token)
	snowflake("discord.guild_id", c.Discord.GuildID)
	snowflake("discord.forum_channel_id", c.Discord.ForumChannelID)
	snowflake("discord.tags.draft", c.Discord.Tags.Draft)
	snowflake("discord.tags.review_needed", c.Discord.Tags.ReviewNeeded)
	snowflake("discord.tags.approved", c.Discord.Tags.Approved)
	snowflake("discord.tags.merged", c.Discord.Tags.Merged)
	snowflake("discord.tags.closed", c.Discord.Tags.Closed)
	snowflake("discord.member_role_id", c.Discord.MemberRoleID)
	snowflake("discord.maintainer_role_id", c.Discord.MaintainerRoleID)
	required("github.owner", c.GitHub.Owner)
	required("github.repo", c.GitHub.Repo)
	required("github.token", c.GitHub.Token)
	required("webhook.secret", c.Webhook.Secret)

	if c.Queue.Capacity < 1 {
		errs = append(errs, fmt.Errorf("queue.capacity must be at least 1, got %d: %w", c.Queue.Capacity, ErrInvalid))
	}
	if expr := c.Search.RefreshSchedule; expr != "" {
		if _, err := cron.ParseStandard(expr); err != nil {
			errs = append(errs, fmt.Errorf("search.refresh_schedule %q is not a cron expression: %w", expr, ErrInvalid))
		}
	}
	switch c.Database.Driver {
	case "sqlite", "none":
	case "mysql":
		if c.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("database.dsn (%s) is required for mysql: %w", envKeys["database.dsn"], ErrMissing))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of sqlite, mysql, none: %w", c.Database.Driver, ErrInvalid))
	}
	return errs
}

// Validate returns every problem joined into one error, or nil.
func (c *Config) Validate() error {
	return errors.Join(c.Problems()...)
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file")
}
