package app

import (
	"credit-sales/internal/ai"
	"credit-sales/internal/core"

	"github.com/shopspring/decimal"
)

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID      int    `json:"user_id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	CompanyID   int    `json:"company_id"`
	CompanyCode string `json:"company_code"`
}

// UserResult is returned by GetUser.
type UserResult struct {
	UserID      int    `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	CompanyCode string `json:"company_code"`
}

// PlanResult is returned by PlanCredit.
type PlanResult struct {
	Principal         decimal.Decimal       `json:"principal"`
	Frequency         core.Frequency        `json:"frequency"`
	InstallmentCount  int                   `json:"installment_count"`
	InstallmentAmount decimal.Decimal       `json:"installment_amount"`
	Plan              *core.InstallmentPlan `json:"plan"`
}

// CreditResult is a credit with its schedule and progress as of today.
type CreditResult struct {
	Credit   *core.Credit                `json:"credit"`
	Schedule []core.ScheduledInstallment `json:"schedule"`
	Progress *core.CreditProgress        `json:"progress"`
}

// PaymentResult is returned by RecordPayment.
type PaymentResult struct {
	Payment *core.Payment `json:"payment"`
	Credit  *core.Credit  `json:"credit"`
}

// DistributionLine is one product's share of a previewed distribution.
type DistributionLine struct {
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Remaining   decimal.Decimal `json:"remaining"`
	Amount      decimal.Decimal `json:"amount"`
}

// DistributionResult is returned by PreviewDistribution.
type DistributionResult struct {
	CreditNumber string             `json:"credit_number"`
	Amount       decimal.Decimal    `json:"amount"`
	Lines        []DistributionLine `json:"lines"`
}

// AssistantResult is returned by InterpretPayment. Exactly one of Proposal
// (with Credit) or ClarificationMessage is meaningful.
type AssistantResult struct {
	IsClarification      bool                 `json:"is_clarification"`
	ClarificationMessage string               `json:"clarification_message,omitempty"`
	Proposal             *ai.PaymentProposal  `json:"proposal,omitempty"`
	Credit               *core.Credit         `json:"credit,omitempty"`
	Request              *RecordPaymentRequest `json:"-"`
}
