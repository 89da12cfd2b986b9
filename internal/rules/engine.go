package rules

import (
	"fmt"

	"LedgerSentinel/internal/config"
	"LedgerSentinel/internal/model"
	"LedgerSentinel/internal/warehouse"
)

// Engine feeds warehouse facts into the pure rule functions. It only reads.
type Engine struct {
	Store      *warehouse.Store
	Thresholds config.Thresholds
}

// NewEngine creates a rule engine over the store.
func NewEngine(store *warehouse.Store, th config.Thresholds) *Engine {
	return &Engine{Store: store, Thresholds: th}
}

// Anomalies runs every anomaly rule for the period and returns candidates
// grouped by rule family. monthID must reference the period's month row.
func (e *Engine) Anomalies(year, month int, monthID int64) (map[string][]model.Anomaly, error) {
	th := e.Thresholds
	buckets := map[string][]model.Anomaly{}

	sales, err := e.Store.SalesForMonth(year, month)
	if err != nil {
		return nil, fmt.Errorf("rule ventes: %w", err)
	}
	buckets["ventes"] = SalesOutliers(sales, th)

	expenses, err := e.Store.ExpenseTotals(monthID)
	if err != nil {
		return nil, fmt.Errorf("rule depenses: %w", err)
	}
	prevIDs, err := e.Store.PreviousMonthIDs(year, month, th.ExpenseHistoryMonths)
	if err != nil {
		return nil, fmt.Errorf("rule depenses: %w", err)
	}
	expenseHist, err := e.Store.ExpenseHistory(prevIDs)
	if err != nil {
		return nil, fmt.Errorf("rule depenses: %w", err)
	}
	buckets["depenses"] = ExpenseSpikes(expenses, expenseHist, monthID, th)

	stock, err := e.Store.StockForMonth(year, month)
	if err != nil {
		return nil, fmt.Errorf("rule stock: %w", err)
	}
	buckets["stock"] = StockGaps(stock, th)

	margins, err := e.Store.MarginRows(monthID)
	if err != nil {
		return nil, fmt.Errorf("rule marge: %w", err)
	}
	marginPrev, err := e.Store.PreviousMonthIDs(year, month, th.MarginHistoryMonths)
	if err != nil {
		return nil, fmt.Errorf("rule marge: %w", err)
	}
	marginHist, err := e.Store.MarginPctHistory(marginPrev)
	if err != nil {
		return nil, fmt.Errorf("rule marge: %w", err)
	}
	buckets["marge"] = MarginDeterioration(margins, marginHist, monthID, th)

	banks, err := e.Store.BankRows(monthID)
	if err != nil {
		return nil, fmt.Errorf("rule banque_caisse: %w", err)
	}
	cash, err := e.Store.CashRows(monthID)
	if err != nil {
		return nil, fmt.Errorf("rule banque_caisse: %w", err)
	}
	buckets["banque_caisse"] = append(BankGaps(banks, monthID, th), CashGaps(cash, monthID, th)...)

	clients, err := e.Store.ClientRows(monthID)
	if err != nil {
		return nil, fmt.Errorf("rule clients: %w", err)
	}
	buckets["clients"] = ClientGaps(clients, monthID, th)

	return buckets, nil
}

// Alerts runs every business recommendation rule for the period and returns
// the concatenated candidates.
func (e *Engine) Alerts(year, month int, monthID int64) ([]model.Alert, error) {
	th := e.Thresholds
	var out []model.Alert

	coverage, err := e.Store.CoverageRows(year, month)
	if err != nil {
		return nil, fmt.Errorf("reco reappro: %w", err)
	}
	out = append(out, RestockAlerts(coverage, monthID, th)...)

	expenses, err := e.Store.ExpenseTotals(monthID)
	if err != nil {
		return nil, fmt.Errorf("reco depenses: %w", err)
	}
	prevIDs, err := e.Store.PreviousMonthIDs(year, month, th.OverheatHistoryMonths)
	if err != nil {
		return nil, fmt.Errorf("reco depenses: %w", err)
	}
	hist, err := e.Store.ExpenseHistory(prevIDs)
	if err != nil {
		return nil, fmt.Errorf("reco depenses: %w", err)
	}
	out = append(out, ExpenseOverheatAlerts(expenses, hist, monthID, th)...)

	margins, err := e.Store.MarginRows(monthID)
	if err != nil {
		return nil, fmt.Errorf("reco marge: %w", err)
	}
	out = append(out, LowMarginAlerts(margins, monthID, th)...)

	treasury, err := e.Store.BankCashFinTotal(monthID)
	if err != nil {
		return nil, fmt.Errorf("reco tresorerie: %w", err)
	}
	out = append(out, LowTreasuryAlert(treasury, monthID, th)...)

	return out, nil
}
