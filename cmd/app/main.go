package main

import (
	"context"
	"embed"

	"gatewarden/internal/application"
	"gatewarden/internal/delivery/discord"
	"gatewarden/internal/delivery/game"
	"gatewarden/internal/delivery/telegram"
	"gatewarden/internal/repository"
	"gatewarden/pkg/config"
	"gatewarden/pkg/logger"
	service "gatewarden/pkg/services"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	flag "github.com/spf13/pflag"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

func main() {
	rulesPath := flag.String("rules", "rules.yml", "path to the gate rules file")
	envPath := flag.String("env", "", "path to an env file (optional)")
	flag.Parse()

	if *envPath != "" {
		_ = godotenv.Load(*envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := config.Config{}
	if err := config.ReadEnvConfig(&cfg); err != nil {
		panic(err)
	}

	log := logger.NewLogger(&logger.Config{Level: cfg.LogLevel})

	rules, err := config.LoadRules(*rulesPath)
	if err != nil {
		log.Error("failed to load rules: %s", err.Error())
		return
	}

	db, err := repository.NewPostgresDB(&cfg.Repo)
	if err != nil {
		log.Error("failed to init db: %s", err.Error())
		return
	}
	defer db.Close()

	log.Info("Running migrations...")
	if err := repository.RunMigrations(db, migrationFS); err != nil {
		log.Error("failed to run migrations: %s", err.Error())
		return
	}
	log.Info("Migrations applied successfully")

	repos := repository.NewRepository(db)

	var notifier application.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tn, err := telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Error("failed to init telegram notifier: %s", err.Error())
			return
		}
		notifier = tn
	}

	// The bridge is both the inbound game hook and the outbound sinks, so it
	// exists before the services and gets them attached afterwards.
	bridge := game.NewBridge(cfg.BridgeAddr, cfg.BridgeToken, log)

	services, err := application.NewService(repos, rules, bridge, bridge, bridge, notifier, log)
	if err != nil {
		log.Error("failed to init services: %s", err.Error())
		return
	}
	bridge.Attach(services)

	bot := discord.NewBot(&cfg, rules, services, bridge, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := service.NewManager(log)
	manager.AddService(bridge, bot)

	if err := manager.Run(ctx); err != nil {
		log.Error("run error: %s", err.Error())
	}
	log.Info("Stopped")
}
