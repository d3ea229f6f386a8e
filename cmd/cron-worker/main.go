package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/app"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/config"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/instance"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
)

// cron-worker runs one job and exits, for platform schedulers that launch a
// process instead of calling the HTTP trigger.
func main() {
	job := flag.String("job", "", "job to run (nightly-sync|weekly-reports|all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	name := strings.TrimSpace(*job)
	if name == "" {
		fmt.Fprintln(os.Stderr, "missing -job")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
	})

	a, err := app.New(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap app", err)
		os.Exit(1)
	}
	defer a.Close(context.Background())

	if name == "all" {
		outcomes := a.Cron.RunAll(ctx)
		_ = json.NewEncoder(os.Stdout).Encode(outcomes)
		return
	}

	outcome, err := a.Cron.RunJob(ctx, name)
	if err != nil {
		logg.Error(ctx, "cron job failed", err)
		a.Close(context.Background())
		os.Exit(1)
	}
	_ = json.NewEncoder(os.Stdout).Encode(outcome)
}
