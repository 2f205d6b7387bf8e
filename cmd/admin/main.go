// Command admin runs schema migrations and bootstraps administrator accounts.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/repository"
	"github.com/noah-isme/coursehub-api/internal/service"
	"github.com/noah-isme/coursehub-api/migrations"
	"github.com/noah-isme/coursehub-api/pkg/cache"
	"github.com/noah-isme/coursehub-api/pkg/config"
	"github.com/noah-isme/coursehub-api/pkg/database"
	"github.com/noah-isme/coursehub-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	provider := service.NewLocalIdentityProvider(
		repository.NewPrincipalRepository(db),
		repository.NewSessionRepository(redisClient),
		logr,
		service.LocalIdentityConfig{Secret: cfg.Session.Secret, TTL: cfg.Session.TTL, Issuer: cfg.Session.Issuer},
	)
	compensator := service.NewPrincipalCompensator(provider, nil, logr)

	cli := &commandLine{
		admins: service.NewAdminService(repository.NewAdminRepository(db), provider, compensator, logr),
		migrate: func(command string, args ...string) error {
			return database.Migrate(db, migrations.FS, command, args...)
		},
		out: os.Stdout,
	}
	if err := cli.run(context.Background(), os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		logr.Fatal("command failed", zap.Error(err))
	}
}
