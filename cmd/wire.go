package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/temper-mc/prforum/internal/config"
	"github.com/temper-mc/prforum/internal/database"
	"github.com/temper-mc/prforum/internal/discussion"
	"github.com/temper-mc/prforum/internal/repository"
)

// openDeliveryLog opens and migrates the configured database. It returns a
// nil log when the driver is "none".
func openDeliveryLog(ctx context.Context, cfg config.DatabaseConfig) (*database.DeliveryLog, func(), error) {
	if cfg.Driver == "none" {
		slog.Info("Delivery log disabled")
		return nil, func() {}, nil
	}
	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	return database.NewDeliveryLog(db), func() { _ = db.Close() }, nil
}

func newMirror(cfg *config.Config) *repository.Mirror {
	return repository.NewMirror(repository.MirrorOptions{
		Path:     cfg.Search.RepoPath,
		CloneURL: cfg.EffectiveCloneURL(),
		Branch:   cfg.Search.Branch,
		Token:    cfg.GitHub.Token,
		Depth:    1,
		WebURL:   "https://github.com/" + cfg.GitHub.FullName(),
	})
}

func forumTags(cfg config.TagsConfig) discussion.Tags {
	return discussion.Tags{
		Draft:        cfg.Draft,
		ReviewNeeded: cfg.ReviewNeeded,
		Approved:     cfg.Approved,
		Merged:       cfg.Merged,
		Closed:       cfg.Closed,
	}
}
