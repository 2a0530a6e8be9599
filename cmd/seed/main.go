// seed bootstraps an empty database with a company, its admin user and the
// MAIN warehouse. Run it once after migrating.
//
// Usage: go run ./cmd/seed <company-code> <company-name> <admin-username> <admin-password>
package main

import (
	"context"
	"log"
	"os"

	"credit-sales/internal/config"
	"credit-sales/internal/core"
	"credit-sales/internal/db"
)

func main() {
	if len(os.Args) < 5 {
		log.Fatal("Usage: seed <company-code> <company-name> <admin-username> <admin-password>")
	}
	code, name, username, password := os.Args[1], os.Args[2], os.Args[3], os.Args[4]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	log.Println("Creating company...")
	company, err := core.NewCompanyService(pool).CreateCompany(ctx, code, name, "USD")
	if err != nil {
		log.Fatalf("Failed to create company: %v", err)
	}

	log.Println("Creating admin user...")
	if _, err := core.NewUserService(pool).CreateUser(ctx, company.ID, username, "", password, core.RoleAdmin); err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	log.Println("Creating default warehouse...")
	if _, err := core.NewInventoryService(pool).CreateWarehouse(ctx, company.CompanyCode, "MAIN", "Main Warehouse"); err != nil {
		log.Fatalf("Failed to create warehouse: %v", err)
	}

	log.Printf("Seed complete. Company %s is ready; log in as %s.", company.CompanyCode, username)
}
