// Package main is the entry point for the branchkeeper CLI application.
// branchkeeper reconciles a pull request branch from a repository's working
// tree and workflow commits, optionally pushing and publishing it.
package main

import (
	"context"
	"os"

	ch "github.com/MyCarrier-DevOps/goLibMyCarrier/clickhouse"

	"github.com/MyCarrier-DevOps/branchkeeper/cmd"
	"github.com/MyCarrier-DevOps/branchkeeper/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/branchkeeper/internal/audit"
	"github.com/MyCarrier-DevOps/branchkeeper/internal/domain"
	"github.com/MyCarrier-DevOps/branchkeeper/internal/forge"
	"github.com/MyCarrier-DevOps/branchkeeper/internal/infrastructure/config"
	"github.com/MyCarrier-DevOps/branchkeeper/internal/reconcile"
	"github.com/MyCarrier-DevOps/branchkeeper/internal/vcsdriver"
)

func main() {
	// Create a single shared logger instance for the application.
	zapLog, err := logger.NewZapLogger(os.Getenv(config.EnvLogLevel))
	if err != nil {
		os.Exit(1)
	}

	deps := &cmd.Dependencies{
		LoggerFactory: func() cmd.Logger {
			// --verbose sets LOG_LEVEL=debug after zapLog was built above.
			if os.Getenv(config.EnvLogLevel) == "debug" {
				if debugLog, err := logger.NewZapLogger("debug"); err == nil {
					return debugLog
				}
			}
			return zapLog
		},

		ConfigLoader: func() (*cmd.AppConfig, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			return &cmd.AppConfig{
				AuthorName:  cfg.Vcs.AuthorName,
				AuthorEmail: cfg.Vcs.AuthorEmail,
				Signoff:     cfg.Vcs.Signoff,
				ForgeToken:  cfg.Forge.Token,
				ForgeOwner:  cfg.Forge.Owner,
				ForgeRepo:   cfg.Forge.Repo,
				LogLevel:    cfg.LogLevel,
			}, nil
		},

		VcsDriverFactory: func(path string) (domain.VcsDriver, error) {
			return vcsdriver.New(path)
		},

		ReconcilerFactory: func(driver domain.VcsDriver, appCfg *cmd.AppConfig) domain.Reconciler {
			fetcher := reconcile.NewFetcher(driver)
			staging := reconcile.NewStaging(driver, appCfg.AuthorName, appCfg.AuthorEmail)
			return reconcile.NewReconciler(driver, fetcher, staging)
		},

		PublisherFactory: func(appCfg *cmd.AppConfig) cmd.Publisher {
			if appCfg.ForgeToken == "" {
				return nil
			}
			return &forgePublisher{client: forge.New(context.Background(), appCfg.ForgeToken)}
		},

		RecorderFactory: func(_ *cmd.AppConfig) (cmd.OutcomeRecorder, error) {
			auditTable := os.Getenv(config.EnvAuditTable)
			if auditTable == "" {
				return nil, nil
			}
			chConfig, err := ch.ClickhouseLoadConfig()
			if err != nil {
				return nil, err
			}
			return audit.New(chConfig, auditTable)
		},

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	cmd.SetDefaultDependencies(deps)
	cmd.Execute()
}

// forgePublisher adapts *forge.Client to cmd.Publisher.
type forgePublisher struct {
	client *forge.Client
}

func (p *forgePublisher) OpenOrUpdate(ctx context.Context, owner, repo, base, head, title string) (int, error) {
	return p.client.OpenOrUpdate(ctx, forge.PullRequest{
		Owner: owner,
		Repo:  repo,
		Base:  base,
		Head:  head,
		Title: title,
	})
}
