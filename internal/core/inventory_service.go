package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InventoryService manages warehouse stock levels and goods movements.
type InventoryService interface {
	// Standalone operations (manage their own transactions).
	CreateWarehouse(ctx context.Context, companyCode, code, name string) (*Warehouse, error)
	GetWarehouses(ctx context.Context, companyCode string) ([]Warehouse, error)
	GetDefaultWarehouse(ctx context.Context, companyCode string) (*Warehouse, error)
	GetStockLevels(ctx context.Context, companyCode string) ([]StockLevel, error)
	// ReceiveStock records a goods receipt and re-averages the item's unit cost.
	ReceiveStock(ctx context.Context, companyCode string, receipt StockReceipt) error
	// GetMovements lists movements newest first, for one product when productCode is set.
	GetMovements(ctx context.Context, companyCode, productCode string, limit int) ([]StockMovement, error)

	// TX-scoped operations: work within a caller-provided transaction.
	// Used by CreditService to keep stock changes atomic with the credit itself.

	// IssueStockTx deducts the sold quantities when a credit is opened.
	// Products without an inventory_item record are silently skipped (service items).
	IssueStockTx(ctx context.Context, tx pgx.Tx, companyID, creditID int, lines []CreditLine, date time.Time) error
	// ReturnStockTx puts back everything IssueStockTx took for the credit.
	ReturnStockTx(ctx context.Context, tx pgx.Tx, companyID, creditID int, date time.Time) error
}

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (s *inventoryService) CreateWarehouse(ctx context.Context, companyCode, code, name string) (*Warehouse, error) {
	if code == "" || name == "" {
		return nil, fmt.Errorf("warehouse code and name are required")
	}
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	var w Warehouse
	err = s.pool.QueryRow(ctx, `
		INSERT INTO warehouses (company_id, code, name)
		VALUES ($1, $2, $3)
		RETURNING id, company_id, code, name, is_active, created_at
	`, companyID, code, name).Scan(&w.ID, &w.CompanyID, &w.Code, &w.Name, &w.IsActive, &w.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("warehouse %s: %w", code, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create warehouse: %w", err)
	}
	return &w, nil
}

func (s *inventoryService) GetWarehouses(ctx context.Context, companyCode string) ([]Warehouse, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, is_active, created_at
		FROM warehouses
		WHERE company_id = $1 AND is_active = true
		ORDER BY code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.CompanyID, &w.Code, &w.Name, &w.IsActive, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse: %w", err)
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

func (s *inventoryService) GetDefaultWarehouse(ctx context.Context, companyCode string) (*Warehouse, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	var w Warehouse
	err = s.pool.QueryRow(ctx, `
		SELECT id, company_id, code, name, is_active, created_at
		FROM warehouses
		WHERE company_id = $1 AND is_active = true
		ORDER BY id
		LIMIT 1
	`, companyID).Scan(&w.ID, &w.CompanyID, &w.Code, &w.Name, &w.IsActive, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("active warehouse for company %s: %w", companyCode, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch default warehouse: %w", err)
	}
	return &w, nil
}

func (s *inventoryService) GetStockLevels(ctx context.Context, companyCode string) ([]StockLevel, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT p.code, p.name, w.code, w.name, ii.qty_on_hand, ii.unit_cost
		FROM inventory_items ii
		JOIN products p   ON p.id = ii.product_id
		JOIN warehouses w ON w.id = ii.warehouse_id
		WHERE ii.company_id = $1
		ORDER BY p.code, w.code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var sl StockLevel
		if err := rows.Scan(
			&sl.ProductCode, &sl.ProductName,
			&sl.WarehouseCode, &sl.WarehouseName,
			&sl.OnHand, &sl.UnitCost,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		sl.StockValue = RoundMoney(sl.OnHand.Mul(sl.UnitCost))
		levels = append(levels, sl)
	}
	return levels, rows.Err()
}

func (s *inventoryService) ReceiveStock(ctx context.Context, companyCode string, receipt StockReceipt) error {
	qty, unitCost := receipt.Quantity, receipt.UnitCost
	if !qty.IsPositive() {
		return fmt.Errorf("receive quantity must be positive, got %s", qty)
	}
	if unitCost.IsNegative() {
		return fmt.Errorf("unit cost cannot be negative, got %s", unitCost)
	}
	movementDate := receipt.MovementDate
	if movementDate.IsZero() {
		movementDate = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	companyID, err := resolveCompanyID(ctx, tx, companyCode)
	if err != nil {
		return err
	}

	var warehouseID int
	if err := tx.QueryRow(ctx,
		"SELECT id FROM warehouses WHERE company_id = $1 AND code = $2 AND is_active = true",
		companyID, receipt.WarehouseCode,
	).Scan(&warehouseID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("warehouse %s: %w", receipt.WarehouseCode, ErrNotFound)
		}
		return fmt.Errorf("failed to resolve warehouse: %w", err)
	}

	var productID int
	if err := tx.QueryRow(ctx,
		"SELECT id FROM products WHERE company_id = $1 AND code = $2 AND is_active = true",
		companyID, receipt.ProductCode,
	).Scan(&productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("product %s: %w", receipt.ProductCode, ErrNotFound)
		}
		return fmt.Errorf("failed to resolve product: %w", err)
	}

	// Create the item on first receipt, then lock it.
	var itemID int
	err = tx.QueryRow(ctx, `
		INSERT INTO inventory_items (company_id, product_id, warehouse_id, qty_on_hand, unit_cost)
		VALUES ($1, $2, $3, 0, 0)
		ON CONFLICT (company_id, product_id, warehouse_id) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, companyID, productID, warehouseID).Scan(&itemID)
	if err != nil {
		return fmt.Errorf("failed to upsert inventory item: %w", err)
	}

	var oldQty, oldCost decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT qty_on_hand, unit_cost FROM inventory_items WHERE id = $1 FOR UPDATE",
		itemID,
	).Scan(&oldQty, &oldCost)
	if err != nil {
		return fmt.Errorf("failed to lock inventory item: %w", err)
	}

	newCost := WeightedAverageCost(oldQty, oldCost, qty, unitCost)
	_, err = tx.Exec(ctx, `
		UPDATE inventory_items
		SET qty_on_hand = $1, unit_cost = $2, updated_at = NOW()
		WHERE id = $3
	`, oldQty.Add(qty), newCost, itemID)
	if err != nil {
		return fmt.Errorf("failed to update inventory item: %w", err)
	}

	notes := receipt.Notes
	if notes == "" {
		notes = fmt.Sprintf("Goods receipt: %s × %s units @ %s", receipt.ProductCode, qty.String(), unitCost.String())
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO inventory_movements (company_id, inventory_item_id, movement_type, quantity, unit_cost, total_cost, movement_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, companyID, itemID, string(MovementReceipt), qty, unitCost, RoundMoney(qty.Mul(unitCost)), DateOf(movementDate), notes)
	if err != nil {
		return fmt.Errorf("failed to insert inventory movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit goods receipt: %w", err)
	}
	return nil
}

func (s *inventoryService) GetMovements(ctx context.Context, companyCode, productCode string, limit int) ([]StockMovement, error) {
	companyID, err := resolveCompanyID(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT im.id, im.movement_type, p.code, w.code, im.quantity, im.unit_cost, im.total_cost,
		       im.movement_date, COALESCE(cr.credit_number, ''), im.notes, im.created_at
		FROM inventory_movements im
		JOIN inventory_items ii ON ii.id = im.inventory_item_id
		JOIN products p         ON p.id = ii.product_id
		JOIN warehouses w       ON w.id = ii.warehouse_id
		LEFT JOIN credits cr    ON cr.id = im.credit_id
		WHERE im.company_id = $1`
	args := []any{companyID}
	if productCode != "" {
		query += " AND p.code = $2"
		args = append(args, productCode)
	}
	query += fmt.Sprintf(" ORDER BY im.id DESC LIMIT %d", limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory movements: %w", err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		var movementType string
		if err := rows.Scan(
			&m.ID, &movementType, &m.ProductCode, &m.WarehouseCode, &m.Quantity, &m.UnitCost, &m.TotalCost,
			&m.MovementDate, &m.CreditNumber, &m.Notes, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan inventory movement: %w", err)
		}
		m.MovementType = MovementType(movementType)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

func (s *inventoryService) IssueStockTx(ctx context.Context, tx pgx.Tx, companyID, creditID int, lines []CreditLine, date time.Time) error {
	for _, line := range lines {
		var itemID int
		var onHand, unitCost decimal.Decimal
		err := tx.QueryRow(ctx, `
			SELECT ii.id, ii.qty_on_hand, ii.unit_cost
			FROM inventory_items ii
			JOIN warehouses w ON w.id = ii.warehouse_id
			WHERE ii.company_id = $1
			  AND ii.product_id = $2
			  AND w.is_active = true
			ORDER BY w.id
			LIMIT 1
			FOR UPDATE OF ii
		`, companyID, line.ProductID).Scan(&itemID, &onHand, &unitCost)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to lock inventory item for product %s: %w", lineRef(line), err)
		}

		if onHand.LessThan(line.Quantity) {
			return fmt.Errorf("%w: product %s has %s on hand, need %s", ErrInsufficientStock,
				lineRef(line), onHand.StringFixed(4), line.Quantity.StringFixed(4))
		}

		_, err = tx.Exec(ctx, `
			UPDATE inventory_items SET qty_on_hand = qty_on_hand - $1, updated_at = NOW()
			WHERE id = $2
		`, line.Quantity, itemID)
		if err != nil {
			return fmt.Errorf("failed to issue stock for product %s: %w", lineRef(line), err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO inventory_movements (company_id, inventory_item_id, movement_type, quantity, unit_cost, total_cost, movement_date, credit_id, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, companyID, itemID, string(MovementSale), line.Quantity, unitCost, RoundMoney(line.Quantity.Mul(unitCost)),
			DateOf(date), creditID, fmt.Sprintf("Sold on credit ID %d", creditID),
		)
		if err != nil {
			return fmt.Errorf("failed to insert sale movement for product %s: %w", lineRef(line), err)
		}
	}
	return nil
}

func (s *inventoryService) ReturnStockTx(ctx context.Context, tx pgx.Tx, companyID, creditID int, date time.Time) error {
	rows, err := tx.Query(ctx, `
		SELECT inventory_item_id, quantity, unit_cost
		FROM inventory_movements
		WHERE credit_id = $1 AND movement_type = $2
		ORDER BY id
	`, creditID, string(MovementSale))
	if err != nil {
		return fmt.Errorf("failed to fetch sale movements for credit %d: %w", creditID, err)
	}

	type saleRow struct {
		itemID   int
		quantity decimal.Decimal
		unitCost decimal.Decimal
	}
	var sales []saleRow
	for rows.Next() {
		var r saleRow
		if err := rows.Scan(&r.itemID, &r.quantity, &r.unitCost); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan sale movement: %w", err)
		}
		sales = append(sales, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating sale movements: %w", err)
	}

	for _, r := range sales {
		_, err = tx.Exec(ctx, `
			UPDATE inventory_items SET qty_on_hand = qty_on_hand + $1, updated_at = NOW()
			WHERE id = $2
		`, r.quantity, r.itemID)
		if err != nil {
			return fmt.Errorf("failed to return stock for item %d: %w", r.itemID, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO inventory_movements (company_id, inventory_item_id, movement_type, quantity, unit_cost, total_cost, movement_date, credit_id, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, companyID, r.itemID, string(MovementReturn), r.quantity, r.unitCost, RoundMoney(r.quantity.Mul(r.unitCost)),
			DateOf(date), creditID, fmt.Sprintf("Returned from cancelled credit ID %d", creditID),
		)
		if err != nil {
			return fmt.Errorf("failed to insert return movement for item %d: %w", r.itemID, err)
		}
	}
	return nil
}
