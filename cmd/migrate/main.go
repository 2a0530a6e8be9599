// migrate applies or rolls back the SQL migrations in MIGRATIONS_DIR.
//
// Usage: go run ./cmd/migrate [up|down|version]
package main

import (
	"fmt"
	"log"
	"os"

	"credit-sales/internal/config"
	"credit-sales/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up", "down":
		if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir, cmd == "up"); err != nil {
			log.Fatalf("[MIGRATE] %s failed: %v", cmd, err)
		}
		log.Printf("[DONE] migrations %s.", cmd)
	case "version":
		version, dirty, err := db.MigrationVersion(cfg.DatabaseURL, cfg.MigrationsDir)
		if err != nil {
			log.Fatalf("[MIGRATE] version: %v", err)
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
	default:
		log.Fatalf("Unknown command: %s\nAvailable: up, down, version", cmd)
	}
}
