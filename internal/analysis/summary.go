package analysis

import (
	"fmt"
	"math"

	"LedgerSentinel/internal/filespec"
	"LedgerSentinel/internal/model"
	"LedgerSentinel/internal/warehouse"
)

// KPIs are the monthly headline figures. MargePct and StockCoverageDays are
// nil when the denominator is missing (no revenue, no sales).
type KPIs struct {
	CATotal           float64  `json:"ca_total"`
	DepensesTotal     float64  `json:"depenses_total"`
	MargePct          *float64 `json:"marge_pct"`
	StockCoverageDays *float64 `json:"stock_coverage_days"`
	BanqueEcartTotal  float64  `json:"banque_ecart_total"`
	CaisseEcartTotal  float64  `json:"caisse_ecart_total"`
	ClientsEcartTotal float64  `json:"clients_ecart_total"`
}

// Top lists the five largest products by revenue and expense categories by
// amount.
type Top struct {
	VentesParProduit     []warehouse.TopRow `json:"ventes_par_produit"`
	DepensesParCategorie []warehouse.TopRow `json:"depenses_par_categorie"`
}

// MonthSummary is the read-only analytic digest of one period.
type MonthSummary struct {
	Mois       string   `json:"mois"`
	Annee      int      `json:"annee"`
	MonthID    int64    `json:"month_id"`
	KPIs       KPIs     `json:"kpis"`
	Top        Top      `json:"top"`
	Highlights []string `json:"highlights"`
}

const maxHighlights = 5

// Summarize composes the monthly summary. Purely read-only: a period that was
// never loaded yields zeroed figures, not an error.
func Summarize(store *warehouse.Store, annee int, mois string) (*MonthSummary, error) {
	month, err := filespec.MonthNumber(mois)
	if err != nil {
		return nil, err
	}
	monthID, _, err := store.MonthID(annee, month)
	if err != nil {
		return nil, err
	}

	out := &MonthSummary{Mois: mois, Annee: annee, MonthID: monthID, Highlights: []string{}}

	if out.KPIs.CATotal, err = store.CATotalForMonth(annee, month); err != nil {
		return nil, err
	}
	expenses, err := store.ExpenseTotals(monthID)
	if err != nil {
		return nil, err
	}
	for _, ct := range expenses {
		out.KPIs.DepensesTotal += ct.Montant
	}

	caSum, margeSum, err := store.MargeTotals(monthID)
	if err != nil {
		return nil, err
	}
	if caSum > 0 {
		pct := round2(margeSum / caSum * 100)
		out.KPIs.MargePct = &pct
	}

	soldQty, soldDays, err := store.SalesQuantityStats(annee, month)
	if err != nil {
		return nil, err
	}
	stockFin, hasStock, err := store.LastStockSnapshot(annee, month)
	if err != nil {
		return nil, err
	}
	if hasStock && soldDays > 0 && soldQty > 0 {
		coverage := math.Round(stockFin/(soldQty/float64(soldDays))*10) / 10
		out.KPIs.StockCoverageDays = &coverage
	}

	banks, err := store.BankRows(monthID)
	if err != nil {
		return nil, err
	}
	out.KPIs.BanqueEcartTotal = round2(sumBalanceGaps(banks))
	cash, err := store.CashRows(monthID)
	if err != nil {
		return nil, err
	}
	out.KPIs.CaisseEcartTotal = round2(sumBalanceGaps(cash))
	clients, err := store.ClientRows(monthID)
	if err != nil {
		return nil, err
	}
	out.KPIs.ClientsEcartTotal = round2(sumClientGaps(clients))

	if out.Top.VentesParProduit, err = store.TopProductsByCA(annee, month, 5); err != nil {
		return nil, err
	}
	if out.Top.DepensesParCategorie, err = store.TopExpenseCategories(monthID, 5); err != nil {
		return nil, err
	}

	anomalies, err := store.AnomaliesForMonth(monthID, annee, month, maxHighlights)
	if err != nil {
		return nil, err
	}
	for _, a := range anomalies {
		out.Highlights = append(out.Highlights, formatHighlight(a))
	}
	return out, nil
}

func formatHighlight(a model.Anomaly) string {
	obj := ""
	if a.ObjectType != "" && a.ObjectName != "" {
		obj = fmt.Sprintf("%s %s", a.ObjectType, a.ObjectName)
	}
	return fmt.Sprintf("[%s] %s - %s: %s", a.Severity.Label(), a.Type, obj, a.Message)
}

func sumBalanceGaps(rows []model.BalanceRow) float64 {
	total := 0.0
	for _, r := range rows {
		theo := r.SoldeDebut + r.Encaissements - r.Decaissements
		total += math.Abs(theo - r.SoldeFin)
	}
	return total
}

func sumClientGaps(rows []model.ClientBalance) float64 {
	total := 0.0
	for _, r := range rows {
		theo := r.EncoursDebut + r.Facture - r.Regle
		total += math.Abs(theo - r.EncoursFin)
	}
	return total
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
