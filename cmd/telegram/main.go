package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/arashthr/shelfmark/integrations/telegram"
	"github.com/arashthr/shelfmark/internal/config"
	"github.com/arashthr/shelfmark/internal/logging"
)

func main() {
	configs, err := config.LoadEnvConfig()
	if err != nil {
		panic(err)
	}

	logging.Init(configs)
	defer logging.Sync()

	if configs.Telegram.Token == "" {
		logging.Logger.Fatalw("TELEGRAM_BOT_TOKEN is not set")
	}
	logging.Logger.Infow("Starting Telegram bot", "endpoint", configs.Telegram.APIEndpoint)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := telegram.NewAPIClient(configs.Telegram.APIEndpoint)
	if err := telegram.StartBot(ctx, configs.Telegram.Token, api); err != nil {
		logging.Logger.Fatalw("telegram bot stopped", "error", err)
	}
}
