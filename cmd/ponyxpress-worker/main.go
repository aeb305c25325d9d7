package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/ponyxpress/ponyxpress/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, using process environment")
	}

	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = RunPonyXpressWorker(ctx, cfg, defaultWorkerFactories(), workerHTTPOpts{
		swaggerPath: os.Getenv("workerSwaggerPath"),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}
