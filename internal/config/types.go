package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure for prforum.
// Values come from the environment (optionally seeded from .env) and an
// optional JSON config file.
type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"  json:"discord" yaml:"discord"`
	GitHub   GitHubConfig   `mapstructure:"github"   json:"github" yaml:"github"`
	Webhook  WebhookConfig  `mapstructure:"webhook"  json:"webhook" yaml:"webhook"`
	Server   ServerConfig   `mapstructure:"server"   json:"server" yaml:"server"`
	Queue    QueueConfig    `mapstructure:"queue"    json:"queue" yaml:"queue"`
	Search   SearchConfig   `mapstructure:"search"   json:"search" yaml:"search"`
	Database DatabaseConfig `mapstructure:"database" json:"database" yaml:"database"`
}

// DiscordConfig identifies the bot, its guild and the pull request forum.
// Every id is a snowflake.
type DiscordConfig struct {
	Token            string     `mapstructure:"token"              json:"token" yaml:"token"`
	GuildID          string     `mapstructure:"guild_id"           json:"guild_id" yaml:"guild_id"`
	ForumChannelID   string     `mapstructure:"forum_channel_id"   json:"forum_channel_id" yaml:"forum_channel_id"`
	Tags             TagsConfig `mapstructure:"tags"               json:"tags" yaml:"tags"`
	MemberRoleID     string     `mapstructure:"member_role_id"     json:"member_role_id" yaml:"member_role_id"`
	MaintainerRoleID string     `mapstructure:"maintainer_role_id" json:"maintainer_role_id" yaml:"maintainer_role_id"`
}

// TagsConfig holds the forum tag id for each lifecycle state.
type TagsConfig struct {
	Draft        string `mapstructure:"draft"         json:"draft" yaml:"draft"`
	ReviewNeeded string `mapstructure:"review_needed" json:"review_needed" yaml:"review_needed"`
	Approved     string `mapstructure:"approved"      json:"approved" yaml:"approved"`
	Merged       string `mapstructure:"merged"        json:"merged" yaml:"merged"`
	Closed       string `mapstructure:"closed"        json:"closed" yaml:"closed"`
}

// GitHubConfig identifies the mirrored repository.
type GitHubConfig struct {
	Owner string `mapstructure:"owner" json:"owner" yaml:"owner"`
	Repo  string `mapstructure:"repo"  json:"repo" yaml:"repo"`
	Token string `mapstructure:"token" json:"token" yaml:"token"`
	// WebhookHMACSecret enables X-Hub-Signature-256 verification when set.
	WebhookHMACSecret string `mapstructure:"webhook_hmac_secret" json:"webhook_hmac_secret" yaml:"webhook_hmac_secret"`
}

// FullName returns "owner/repo".
func (g GitHubConfig) FullName() string {
	return g.Owner + "/" + g.Repo
}

// WebhookConfig controls webhook intake.
type WebhookConfig struct {
	// Secret is the path segment expected in POST /push/{secret}.
	Secret string `mapstructure:"secret" json:"secret" yaml:"secret"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"             json:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// QueueConfig sizes the event queue between intake and projection.
type QueueConfig struct {
	Capacity     int           `mapstructure:"capacity"      json:"capacity" yaml:"capacity"`
	RestartDelay time.Duration `mapstructure:"restart_delay" json:"restart_delay" yaml:"restart_delay"`
}

// SearchConfig controls the local repository mirror used by the files and
// grep commands.
type SearchConfig struct {
	RepoPath string `mapstructure:"repo_path" json:"repo_path" yaml:"repo_path"`
	// CloneURL defaults to the GitHub repository's HTTPS URL.
	CloneURL string `mapstructure:"clone_url" json:"clone_url" yaml:"clone_url"`
	// Branch is optional; the remote HEAD is used when empty.
	Branch string `mapstructure:"branch" json:"branch" yaml:"branch"`
	// RefreshSchedule is a cron expression; empty disables background refresh.
	RefreshSchedule string `mapstructure:"refresh_schedule" json:"refresh_schedule" yaml:"refresh_schedule"`
}

// EffectiveCloneURL returns CloneURL, or the GitHub repository's URL.
func (c *Config) EffectiveCloneURL() string {
	if c.Search.CloneURL != "" {
		return c.Search.CloneURL
	}
	return fmt.Sprintf("https://github.com/%s/%s.git", c.GitHub.Owner, c.GitHub.Repo)
}

// DatabaseConfig controls the delivery log backend.
type DatabaseConfig struct {
	// Driver is "sqlite" (default), "mysql", or "none" to disable the log.
	Driver string `mapstructure:"driver" json:"driver" yaml:"driver"`
	// Path is the SQLite file path.
	Path string `mapstructure:"path"   json:"path" yaml:"path"`
	// DSN is the MySQL data source name (used when Driver == "mysql").
	DSN string `mapstructure:"dsn"    json:"dsn" yaml:"dsn"`
}
