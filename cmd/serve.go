package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/temper-mc/prforum/internal/commands"
	"github.com/temper-mc/prforum/internal/discord"
	"github.com/temper-mc/prforum/internal/discussion"
	"github.com/temper-mc/prforum/internal/events"
	"github.com/temper-mc/prforum/internal/gateway"
	"github.com/temper-mc/prforum/internal/logging"
	"github.com/temper-mc/prforum/internal/repository"
)

var serveLogDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook gateway and Discord bot",
	Long: `Starts the long-running process: an HTTP server accepting GitHub webhooks
on POST /push/{secret}, and a Discord bot that projects every accepted
pull request event onto the forum.

Point the repository's webhook at http://<host>:8080/push/<WEBHOOK_SECRET>
with content type application/json and these events: pull requests,
pull request reviews, pull request review comments, review threads and
issue comments.

Quick API reference:
  POST /push/{secret}      webhook intake
  GET  /health             liveness check
  GET  /api/status         queue depth, projector state, outcome counters
  GET  /api/deliveries     recent delivery log rows (?limit=)
  GET  /events             SSE stream of deliveries and mirror refreshes`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveLogDir, "log-dir", "",
		"also write logs to files in this directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveLogDir != "" {
		logFilePath, closeLog, err := setupFileLogger(serveLogDir)
		if err != nil {
			return fmt.Errorf("initialising file logger: %w", err)
		}
		defer closeLog()
		slog.Info("Logging to file", "file", logFilePath)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration (run 'prforum doctor'):\n%w", err)
	}

	deliveries, closeDB, err := openDeliveryLog(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB()
	var store gateway.DeliveryStore
	if deliveries != nil {
		store = deliveries
	}

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}
	surface := discord.NewSurface(session, cfg.Discord.GuildID)

	queue := events.NewQueue(cfg.Queue.Capacity)
	defer queue.Close()

	recorder := gateway.NewRecorder(store, gateway.NewBroadcaster())
	projector := discussion.NewProjector(surface, cfg.Discord.ForumChannelID, forumTags(cfg.Discord.Tags), recorder)
	supervisor := discussion.NewSupervisor(projector, queue, cfg.Queue.RestartDelay)

	gh := repository.NewGitHub(cfg.GitHub)
	mirror := newMirror(cfg)
	router := commands.NewRouter(
		&commands.Merge{
			Threads:          surface,
			Roles:            surface,
			GitHub:           gh,
			ForumID:          cfg.Discord.ForumChannelID,
			MaintainerRoleID: cfg.Discord.MaintainerRoleID,
		},
		&commands.Files{Mirror: mirror},
		&commands.Grep{Mirror: mirror},
	)

	bot := discord.NewBot(session, discord.BotConfig{
		GuildID:      cfg.Discord.GuildID,
		MemberRoleID: cfg.Discord.MemberRoleID,
	}, supervisor, router)
	if err := bot.Open(ctx); err != nil {
		return err
	}
	defer bot.Close()

	fmt.Printf("prforum starting\n")
	fmt.Printf("  Repository : %s\n", gh.FullName())
	fmt.Printf("  Webhook    : http://%s/push/<secret>\n", cfg.Server.Addr)
	fmt.Printf("  Events     : http://%s/events\n", cfg.Server.Addr)
	fmt.Printf("  Database   : %s\n\n", cfg.Database.Driver)
	fmt.Println("Press Ctrl+C to stop gracefully.")
	fmt.Println()

	gw := gateway.New(gateway.Options{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Secret:          cfg.Webhook.Secret,
		HMACSecret:      cfg.GitHub.WebhookHMACSecret,
		Queue:           queue,
		Projector:       supervisor,
		Recorder:        recorder,
		Store:           store,
		Mirror:          mirror,
		RefreshSchedule: cfg.Search.RefreshSchedule,
	})
	if err := gw.Start(ctx); err != nil {
		return err
	}
	slog.Info("Shutting down")
	return nil
}

// setupFileLogger tees the process log into a per-run file plus a rolling
// latest file under logDir.
func setupFileLogger(logDir string) (string, func(), error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating log dir %s: %w", logDir, err)
	}

	ts := time.Now().UTC().Format("20060102-150405")
	runLogPath := filepath.Join(logDir, fmt.Sprintf("prforum-%s.log", ts))
	runFile, err := os.OpenFile(runLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", nil, fmt.Errorf("opening run log file: %w", err)
	}

	latestPath := filepath.Join(logDir, "prforum.log")
	latestFile, err := os.OpenFile(latestPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = runFile.Close()
		return "", nil, fmt.Errorf("opening latest log file: %w", err)
	}

	logging.Setup(io.MultiWriter(os.Stderr, runFile, latestFile), verbose, trace)

	cleanup := func() {
		_ = latestFile.Close()
		_ = runFile.Close()
	}
	return runLogPath, cleanup, nil
}
