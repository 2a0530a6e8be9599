package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Warehouse represents a physical storage location within a company.
type Warehouse struct {
	ID        int       `json:"id"`
	CompanyID int       `json:"company_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// StockLevel is a read view of an inventory_item joined with product and warehouse info.
type StockLevel struct {
	ProductCode   string          `json:"product_code"`
	ProductName   string          `json:"product_name"`
	WarehouseCode string          `json:"warehouse_code"`
	WarehouseName string          `json:"warehouse_name"`
	OnHand        decimal.Decimal `json:"on_hand"`
	UnitCost      decimal.Decimal `json:"unit_cost"` // weighted average purchase cost
	StockValue    decimal.Decimal `json:"stock_value"`
}

// MovementType classifies an inventory movement.
type MovementType string

const (
	MovementReceipt MovementType = "RECEIPT" // goods received into a warehouse
	MovementSale    MovementType = "SALE"    // goods handed over on a credit sale
	MovementReturn  MovementType = "RETURN"  // goods taken back when a credit is cancelled
)

// StockMovement is one row of the append-only inventory movement history.
type StockMovement struct {
	ID            int             `json:"id"`
	MovementType  MovementType    `json:"movement_type"`
	ProductCode   string          `json:"product_code"`
	WarehouseCode string          `json:"warehouse_code"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	MovementDate  time.Time       `json:"movement_date"`
	CreditNumber  string          `json:"credit_number,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StockReceipt is a goods receipt into a warehouse. A zero MovementDate means today.
type StockReceipt struct {
	WarehouseCode string
	ProductCode   string
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	MovementDate  time.Time
	Notes         string
}

// WeightedAverageCost blends the cost of stock on hand with an incoming receipt:
//
//	(oldQty × oldCost + qty × unitCost) / (oldQty + qty)
func WeightedAverageCost(oldQty, oldCost, qty, unitCost decimal.Decimal) decimal.Decimal {
	newQty := oldQty.Add(qty)
	if newQty.IsZero() {
		return unitCost
	}
	return oldQty.Mul(oldCost).Add(qty.Mul(unitCost)).DivRound(newQty, 6)
}
