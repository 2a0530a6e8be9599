package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"credit-sales/internal/adapters/cli"
	"credit-sales/internal/adapters/repl"
	"credit-sales/internal/ai"
	"credit-sales/internal/app"
	"credit-sales/internal/config"
	"credit-sales/internal/core"
	"credit-sales/internal/db"
	"credit-sales/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// Keep the terminal readable: only warnings and errors, as console text.
	logger, err := observability.NewLogger("warn", "console")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	deps := app.PostgresDeps(pool, core.SystemClock{})
	deps.Logger = logger
	deps.CompanyCode = cfg.CompanyCode
	if cfg.OpenAIAPIKey != "" {
		deps.Interpreter = ai.NewAgent(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	svc := app.NewAppService(deps)

	if len(os.Args) > 1 {
		if err := cli.Run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
			if errors.Is(err, cli.ErrUsage) {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			log.Fatal(err)
		}
		return
	}
	if err := repl.Run(ctx, svc, bufio.NewReader(os.Stdin), os.Stdout); err != nil {
		log.Fatal(err)
	}
}
