package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"credit-sales/internal/ai"
	"credit-sales/internal/core"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrAssistantUnavailable is returned by InterpretPayment when no model is configured.
var ErrAssistantUnavailable = errors.New("payment assistant is not configured")

// Metrics receives business events. observability.Metrics implements it.
type Metrics interface {
	RecordPayment(err error, reasons map[error]string)
	CreditOpened()
	CreditCancelled()
}

type nopMetrics struct{}

func (nopMetrics) RecordPayment(error, map[error]string) {}
func (nopMetrics) CreditOpened()                         {}
func (nopMetrics) CreditCancelled()                      {}

// RejectionReasons labels the payment failures worth counting separately.
var RejectionReasons = map[error]string{
	core.ErrCreditClosed:        "credit_closed",
	core.ErrOverpaymentRejected: "overpayment",
	core.ErrLineOverpayment:     "line_overpayment",
	core.ErrDetailSumMismatch:   "detail_mismatch",
	core.ErrInvalidAmount:       "invalid_amount",
	core.ErrUnknownLine:         "unknown_line",
	core.ErrCreditNotFound:      "not_found",
}

// Deps wires the services behind ApplicationService. Interpreter may be nil,
// which disables the assistant; Clock, Metrics and Logger have defaults.
type Deps struct {
	Companies   core.CompanyService
	Customers   core.CustomerService
	Salespeople core.SalespersonService
	Inventory   core.InventoryService
	Credits     core.CreditService
	Ledger      *core.PaymentLedger
	Reports     core.ReportingService
	Users       core.UserService
	Interpreter ai.PaymentInterpreter
	Clock       core.Clock
	Metrics     Metrics
	Logger      *zap.Logger
	// CompanyCode is the default company; empty means the only one in the database.
	CompanyCode string
}

type appService struct {
	companies   core.CompanyService
	customers   core.CustomerService
	salespeople core.SalespersonService
	inventory   core.InventoryService
	credits     core.CreditService
	ledger      *core.PaymentLedger
	reports     core.ReportingService
	users       core.UserService
	interpreter ai.PaymentInterpreter
	clock       core.Clock
	metrics     Metrics
	logger      *zap.Logger
	companyCode string
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(d Deps) ApplicationService {
	s := &appService{
		companies:   d.Companies,
		customers:   d.Customers,
		salespeople: d.Salespeople,
		inventory:   d.Inventory,
		credits:     d.Credits,
		ledger:      d.Ledger,
		reports:     d.Reports,
		users:       d.Users,
		interpreter: d.Interpreter,
		clock:       d.Clock,
		metrics:     d.Metrics,
		logger:      d.Logger,
		companyCode: d.CompanyCode,
	}
	if s.clock == nil {
		s.clock = core.SystemClock{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// ── Company and users ─────────────────────────────────────────────────────────

func (s *appService) LoadDefaultCompany(ctx context.Context) (*core.Company, error) {
	return s.companies.GetDefaultCompany(ctx, s.companyCode)
}

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		s.logger.Warn("login failed", zap.String("op", "AuthenticateUser"), zap.String("username", username))
		return nil, err
	}
	company, err := s.companies.GetCompanyByID(ctx, user.CompanyID)
	if err != nil {
		return nil, err
	}
	return &UserSession{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		CompanyID:   user.CompanyID,
		CompanyCode: company.CompanyCode,
	}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	company, err := s.companies.GetCompanyByID(ctx, user.CompanyID)
	if err != nil {
		return nil, err
	}
	return &UserResult{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        user.Role,
		CompanyCode: company.CompanyCode,
	}, nil
}

// ── Planner ───────────────────────────────────────────────────────────────────

func (s *appService) PlanCredit(_ context.Context, req PlanRequest) (*PlanResult, error) {
	freq, err := core.ParseFrequency(req.Frequency)
	if err != nil {
		return nil, err
	}
	start, err := s.dateOrToday(req.StartDate)
	if err != nil {
		return nil, err
	}
	if !core.IsMoney(req.Principal) {
		return nil, wrapf(core.ErrInvalidAmount, "principal %s", req.Principal)
	}

	plan, err := core.PlanInstallments(req.Principal, req.InstallmentCount, freq, start)
	if err != nil {
		return nil, err
	}
	return &PlanResult{
		Principal:         req.Principal,
		Frequency:         freq,
		InstallmentCount:  req.InstallmentCount,
		InstallmentAmount: core.ResolveInstallmentAmount(plan, req.InstallmentAmount),
		Plan:              plan,
	}, nil
}

// ── Master data ───────────────────────────────────────────────────────────────

func (s *appService) ListRoutes(ctx context.Context, companyCode string) ([]core.Route, error) {
	return s.customers.GetRoutes(ctx, companyCode)
}

func (s *appService) CreateRoute(ctx context.Context, companyCode string, input core.RouteInput) (*core.Route, error) {
	return s.customers.CreateRoute(ctx, companyCode, input)
}

func (s *appService) ListCustomers(ctx context.Context, companyCode, routeCode string) ([]core.Customer, error) {
	return s.customers.GetCustomers(ctx, companyCode, routeCode)
}

func (s *appService) CreateCustomer(ctx context.Context, companyCode string, input core.CustomerInput) (*core.Customer, error) {
	return s.customers.CreateCustomer(ctx, companyCode, input)
}

func (s *appService) ListSalespeople(ctx context.Context, companyCode string) ([]core.Salesperson, error) {
	company, err := s.companies.GetCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.salespeople.GetSalespeople(ctx, company.ID)
}

func (s *appService) CreateSalesperson(ctx context.Context, companyCode string, input core.SalespersonInput) (*core.Salesperson, error) {
	company, err := s.companies.GetCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.salespeople.CreateSalesperson(ctx, company.ID, input)
}

func (s *appService) ListProducts(ctx context.Context, companyCode string) ([]core.Product, error) {
	return s.customers.GetProducts(ctx, companyCode)
}

func (s *appService) CreateProduct(ctx context.Context, companyCode string, input core.ProductInput) (*core.Product, error) {
	return s.customers.CreateProduct(ctx, companyCode, input)
}

// ── Inventory ─────────────────────────────────────────────────────────────────

func (s *appService) GetStockLevels(ctx context.Context, companyCode string) ([]core.StockLevel, error) {
	return s.inventory.GetStockLevels(ctx, companyCode)
}

func (s *appService) ReceiveStock(ctx context.Context, companyCode string, receipt core.StockReceipt) error {
	if receipt.WarehouseCode == "" {
		wh, err := s.inventory.GetDefaultWarehouse(ctx, companyCode)
		if err != nil {
			return err
		}
		receipt.WarehouseCode = wh.Code
	}
	if receipt.MovementDate.IsZero() {
		receipt.MovementDate = core.Today(s.clock)
	}
	return s.inventory.ReceiveStock(ctx, companyCode, receipt)
}

func (s *appService) ListMovements(ctx context.Context, companyCode, productCode string, limit int) ([]core.StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.inventory.GetMovements(ctx, companyCode, productCode, limit)
}

// ── Credits ───────────────────────────────────────────────────────────────────

func (s *appService) ListCredits(ctx context.Context, companyCode string, status core.CreditStatus, customerCode string) ([]core.Credit, error) {
	today := core.Today(s.clock)
	credits, err := s.credits.GetCredits(ctx, companyCode, core.CreditFilter{
		Status:       status,
		CustomerCode: customerCode,
		Today:        today,
	})
	if err != nil {
		return nil, err
	}

	out := credits[:0]
	for _, c := range credits {
		classified, err := core.ClassifyStatus(c, today)
		if err != nil {
			return nil, err
		}
		// An ACTIVE filter excludes credits that have since fallen overdue.
		if status == core.CreditStatusActive && classified != core.CreditStatusActive {
			continue
		}
		c.Status = classified
		out = append(out, c)
	}
	return out, nil
}

func (s *appService) GetCredit(ctx context.Context, companyCode, ref string) (*CreditResult, error) {
	c, err := s.resolveCredit(ctx, companyCode, ref)
	if err != nil {
		return nil, err
	}
	return s.creditResult(c)
}

func (s *appService) CreateCredit(ctx context.Context, req CreateCreditRequest) (*CreditResult, error) {
	freq, err := core.ParseFrequency(req.Frequency)
	if err != nil {
		return nil, err
	}
	start, err := s.dateOrToday(req.StartDate)
	if err != nil {
		return nil, err
	}

	lines := make([]core.CreditLineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = core.CreditLineInput{
			ProductCode: l.ProductCode,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		}
	}

	credit, err := s.credits.CreateCredit(ctx, req.CompanyCode, core.CreditInput{
		CustomerCode:      req.CustomerCode,
		SalespersonCode:   req.SalespersonCode,
		StartDate:         start,
		Frequency:         freq,
		InstallmentCount:  req.InstallmentCount,
		InstallmentAmount: req.InstallmentAmount,
		Lines:             lines,
		Notes:             req.Notes,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CreditOpened()
	s.logger.Info("credit opened",
		zap.String("op", "CreateCredit"),
		zap.String("credit", credit.CreditNumber),
		zap.String("customer", credit.CustomerCode),
		zap.String("principal", credit.Principal.StringFixed(2)))
	return s.creditResult(credit)
}

func (s *appService) CancelCredit(ctx context.Context, companyCode, ref string) (*CreditResult, error) {
	c, err := s.resolveCredit(ctx, companyCode, ref)
	if err != nil {
		return nil, err
	}
	cancelled, err := s.credits.CancelCredit(ctx, c.ID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.metrics.CreditCancelled()
	s.logger.Info("credit cancelled", zap.String("op", "CancelCredit"), zap.String("credit", cancelled.CreditNumber))
	return s.creditResult(cancelled)
}

func (s *appService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	result, err := s.recordPayment(ctx, req)
	s.metrics.RecordPayment(err, RejectionReasons)
	if err != nil {
		s.logger.Info("payment rejected",
			zap.String("op", "RecordPayment"), zap.String("credit", req.CreditRef),
			zap.String("amount", req.Amount), zap.Error(err))
		return nil, err
	}
	s.logger.Info("payment recorded",
		zap.String("op", "RecordPayment"),
		zap.String("credit", result.Credit.CreditNumber),
		zap.String("receipt", result.Payment.ReceiptNumber),
		zap.String("amount", result.Payment.Amount.StringFixed(2)),
		zap.String("status", string(result.Credit.Status)))
	return result, nil
}

func (s *appService) recordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	c, err := s.resolveCredit(ctx, req.CompanyCode, req.CreditRef)
	if err != nil {
		return nil, err
	}
	payReq, err := req.toCore(c)
	if err != nil {
		return nil, err
	}

	updated, payment, err := s.ledger.ApplyPayment(ctx, c.ID, payReq, req.AutoDistribute)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Payment: payment, Credit: updated}, nil
}

func (s *appService) PreviewDistribution(ctx context.Context, companyCode, ref string, amount string) (*DistributionResult, error) {
	c, err := s.resolveCredit(ctx, companyCode, ref)
	if err != nil {
		return nil, err
	}
	amt, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	detail, err := s.ledger.PreviewDistribution(ctx, c.ID, amt)
	if err != nil {
		return nil, err
	}

	shares := make(map[int]decimal.Decimal, len(detail))
	for _, d := range detail {
		shares[d.ProductID] = d.Amount
	}
	res := &DistributionResult{CreditNumber: c.CreditNumber, Amount: amt}
	for _, l := range c.Lines {
		share, ok := shares[l.ProductID]
		if !ok {
			share = decimal.Zero
		}
		res.Lines = append(res.Lines, DistributionLine{
			ProductCode: l.ProductCode,
			ProductName: l.ProductName,
			Remaining:   l.Remaining(),
			Amount:      share,
		})
	}
	return res, nil
}

func (s *appService) GetProgress(ctx context.Context, companyCode, ref string) (*core.CreditProgress, error) {
	c, err := s.resolveCredit(ctx, companyCode, ref)
	if err != nil {
		return nil, err
	}
	return s.ledger.Progress(ctx, c.ID)
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (s *appService) GetPortfolio(ctx context.Context, companyCode string) (*core.PortfolioSummary, error) {
	return s.reports.GetPortfolio(ctx, companyCode, core.Today(s.clock))
}

func (s *appService) GetCollections(ctx context.Context, companyCode string, from, to time.Time) ([]core.DailyCollection, error) {
	from, to, err := s.period(from, to)
	if err != nil {
		return nil, err
	}
	return s.reports.GetCollections(ctx, companyCode, from, to)
}

func (s *appService) GetCollectionsByRoute(ctx context.Context, companyCode string, from, to time.Time) ([]core.GroupCollection, error) {
	from, to, err := s.period(from, to)
	if err != nil {
		return nil, err
	}
	return s.reports.GetCollectionsByRoute(ctx, companyCode, from, to)
}

func (s *appService) GetCollectionsBySalesperson(ctx context.Context, companyCode string, from, to time.Time) ([]core.GroupCollection, error) {
	from, to, err := s.period(from, to)
	if err != nil {
		return nil, err
	}
	return s.reports.GetCollectionsBySalesperson(ctx, companyCode, from, to)
}

func (s *appService) GetOverdueCredits(ctx context.Context, companyCode string) ([]core.OverdueCredit, error) {
	return s.reports.GetOverdueCredits(ctx, companyCode, core.Today(s.clock))
}

func (s *appService) GetCustomerStatement(ctx context.Context, companyCode, customerCode string) (*core.CustomerStatement, error) {
	st, err := s.reports.GetCustomerStatement(ctx, companyCode, customerCode)
	if err != nil {
		return nil, err
	}
	today := core.Today(s.clock)
	for i := range st.Credits {
		status, err := core.ClassifyStatus(st.Credits[i], today)
		if err != nil {
			return nil, err
		}
		st.Credits[i].Status = status
	}
	return st, nil
}

func (s *appService) RefreshViews(ctx context.Context) error {
	return s.reports.RefreshViews(ctx)
}

// ── Assistant ─────────────────────────────────────────────────────────────────

func (s *appService) InterpretPayment(ctx context.Context, companyCode, note string) (*AssistantResult, error) {
	if s.interpreter == nil {
		return nil, ErrAssistantUnavailable
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, fmt.Errorf("note is required")
	}

	open, err := s.credits.GetCredits(ctx, companyCode, core.CreditFilter{Status: core.CreditStatusActive})
	if err != nil {
		return nil, err
	}
	hints := make([]ai.CreditHint, len(open))
	for i, c := range open {
		hints[i] = ai.CreditHint{
			CreditNumber:      c.CreditNumber,
			CustomerName:      c.CustomerName,
			InstallmentAmount: c.InstallmentAmount.StringFixed(2),
			RemainingBalance:  c.RemainingBalance.StringFixed(2),
		}
	}

	today := core.Today(s.clock)
	proposal, err := s.interpreter.InterpretPayment(ctx, note, hints, today)
	if err != nil {
		return nil, err
	}
	if proposal.IsClarification {
		return &AssistantResult{IsClarification: true, ClarificationMessage: proposal.ClarificationMessage}, nil
	}

	// The model may only pick from the credits it was shown.
	credit, err := s.credits.GetCreditByNumber(ctx, companyCode, proposal.CreditNumber)
	if err != nil && !errors.Is(err, core.ErrCreditNotFound) {
		return nil, err
	}
	if err != nil || credit.Status.IsClosed() {
		return &AssistantResult{
			IsClarification:      true,
			ClarificationMessage: fmt.Sprintf("I could not find an open credit %s. Which credit was this payment for?", proposal.CreditNumber),
		}, nil
	}

	payReq, err := proposal.ToRequest(today)
	if err != nil {
		return nil, err
	}
	return &AssistantResult{
		Proposal: proposal,
		Credit:   credit,
		Request: &RecordPaymentRequest{
			CompanyCode:    companyCode,
			CreditRef:      credit.CreditNumber,
			Amount:         payReq.Amount.StringFixed(2),
			Method:         string(payReq.Method),
			PaidAt:         payReq.PaidAt,
			Notes:          payReq.Notes,
			AutoDistribute: true,
		},
	}, nil
}

// ── private helpers ───────────────────────────────────────────────────────────

// resolveCredit looks up a credit by numeric ID or credit number and checks
// it belongs to companyCode.
func (s *appService) resolveCredit(ctx context.Context, companyCode, ref string) (*core.Credit, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		c, err := s.credits.GetCredit(ctx, id)
		if err != nil {
			return nil, err
		}
		company, err := s.companies.GetCompany(ctx, companyCode)
		if err != nil {
			return nil, err
		}
		if c.CompanyID != company.ID {
			return nil, fmt.Errorf("%w: %s", core.ErrCreditNotFound, ref)
		}
		return c, nil
	}
	return s.credits.GetCreditByNumber(ctx, companyCode, strings.ToUpper(ref))
}

func (s *appService) creditResult(c *core.Credit) (*CreditResult, error) {
	today := core.Today(s.clock)
	schedule, err := core.BuildSchedule(*c, today)
	if err != nil {
		return nil, err
	}
	progress, err := core.EstimateCreditProgress(*c, today)
	if err != nil {
		return nil, err
	}
	c.Status = progress.Status
	return &CreditResult{Credit: c, Schedule: schedule, Progress: &progress}, nil
}

func (s *appService) dateOrToday(v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return core.Today(s.clock), nil
	}
	return core.ParseDate(v)
}

// period defaults an open range to the current month to date.
func (s *appService) period(from, to time.Time) (time.Time, time.Time, error) {
	today := core.Today(s.clock)
	if to.IsZero() {
		to = today
	}
	if from.IsZero() {
		from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if from.After(to) {
		return from, to, fmt.Errorf("from %s is after to %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return from, to, nil
}

func parseAmount(v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero, wrapf(core.ErrInvalidAmount, "%q", v)
	}
	if !d.IsPositive() || !core.IsMoney(d) {
		return decimal.Zero, wrapf(core.ErrInvalidAmount, "%s", d)
	}
	return d, nil
}

func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
