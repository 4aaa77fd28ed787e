package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/songbridge/internal/auth"
	"github.com/desertthunder/songbridge/internal/repositories"
	"github.com/desertthunder/songbridge/internal/server"
	"github.com/desertthunder/songbridge/internal/shared"
	"github.com/desertthunder/songbridge/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	codec, err := auth.NewSessionCodec(config.Session.Secret, config.Session.Issuer, config.Session.TTL.Duration)
	if err != nil {
		return fmt.Errorf("failed to create session codec: %w", err)
	}

	configs, err := r.oauthConfigs(config)
	if err != nil {
		return err
	}

	client := r.upstreamClient(config)
	factory := r.newFactory(client)
	users := repositories.NewUserRepository(db)
	accounts := repositories.NewAccountRepository(db)

	manager := r.newManager(config, accounts, configs, client)
	sessions := server.NewSessions(codec, manager, config.Session, r.logger)
	links := server.NewLinkHandler(configs, users, accounts, sessions, factory, r.logger)
	classifier := tasks.NewClassifier(tasks.ClassifierConfig{
		SampleSize:  config.Transfer.ClassifySampleSize,
		Concurrency: config.Transfer.ClassifyConcurrency,
		CacheTTL:    config.Transfer.ClassifyCacheTTL.Duration,
	}, r.logger)

	srv := server.New(server.Options{
		Sessions:   sessions,
		Links:      links,
		Factory:    factory,
		Pipeline:   r.newPipeline(config),
		Classifier: classifier,
		Logger:     r.logger,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseURL := config.Server.BaseURL
	if baseURL == "" {
		baseURL = "http://" + config.Server.Addr()
	}
	r.logger.Info("starting server", "addr", config.Server.Addr(), "url", baseURL, "providers", len(configs))

	if cmd.Bool("open") {
		go func() {
			if err := shared.OpenBrowser(baseURL); err != nil {
				r.logger.Warn("failed to open browser", "url", baseURL, "error", err)
			}
		}()
	}

	return srv.ListenAndServe(ctx, config.Server.Addr())
}
