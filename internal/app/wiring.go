package app

import (
	"credit-sales/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDeps wires every PostgreSQL-backed service over one pool. The
// caller fills in Interpreter, Metrics, Logger and CompanyCode.
func PostgresDeps(pool *pgxpool.Pool, clock core.Clock) Deps {
	docs := core.NewDocumentService(pool)
	inventory := core.NewInventoryService(pool)
	store := core.NewPostgresCreditStore(pool, docs)
	return Deps{
		Companies:   core.NewCompanyService(pool),
		Customers:   core.NewCustomerService(pool),
		Salespeople: core.NewSalespersonService(pool),
		Inventory:   inventory,
		Credits:     core.NewCreditService(pool, docs, inventory, store),
		Ledger:      core.NewPaymentLedger(store, clock),
		Reports:     core.NewReportingService(pool),
		Users:       core.NewUserService(pool),
		Clock:       clock,
	}
}
