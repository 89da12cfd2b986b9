package rules

import (
	"fmt"
	"math"

	"LedgerSentinel/internal/config"
	"LedgerSentinel/internal/model"
)

// Source-rule identifiers carried by persisted alerts.
const (
	RuleRestock         = "RECO_REAPPRO"
	RuleExpenses        = "RECO_DEPENSES"
	RuleMargin          = "RECO_MARGE"
	RuleTreasury        = "RECO_TREASURY"
	RuleSummary         = "SUMMARY"
	RuleCriticalSummary = "CRITICAL_SUMMARY"
)

// RestockAlerts recommends restocking products whose coverage drops below
// th.RestockCoverageDays (critical below th.RestockCriticalDays). Coverage is
// the last reported stock on hand divided by the average daily sold quantity;
// products without recorded sales are skipped.
func RestockAlerts(rows []model.CoverageRow, monthID int64, th config.Thresholds) []model.Alert {
	var out []model.Alert
	for _, r := range rows {
		if r.AvgDailySales <= 0 {
			continue
		}
		coverage := r.LastStockFin / r.AvgDailySales
		if coverage >= th.RestockCoverageDays {
			continue
		}
		sev := model.SeverityWarning
		if coverage < th.RestockCriticalDays {
			sev = model.SeverityCritical
		}
		out = append(out, model.Alert{
			Severity:   sev,
			Status:     model.AlertOpen,
			Audience:   model.AudienceBoth,
			Title:      fmt.Sprintf("Réapprovisionnement recommandé : %s", r.Produit),
			Body:       fmt.Sprintf("Couverture %.1f j : stock final %.0f vs ventes moy. %.1f/j.", coverage, r.LastStockFin, r.AvgDailySales),
			MonthID:    monthID,
			EntityType: "produit",
			EntityName: r.Produit,
			SourceRule: RuleRestock,
		})
	}
	return out
}

// ExpenseOverheatAlerts flags categories spending well above their trailing
// three-month median and the fixed floor.
func ExpenseOverheatAlerts(current []model.CategoryTotal, history map[string][]float64, monthID int64, th config.Thresholds) []model.Alert {
	var out []model.Alert
	for _, ct := range current {
		med := Median(history[ct.Categorie])
		if ct.Montant < math.Max(th.ExpenseSpikeFloor, med*th.OverheatRatio) {
			continue
		}
		sev := model.SeverityCritical
		if ct.Montant < med*th.ExpenseCriticalRatio {
			sev = model.SeverityWarning
		}
		out = append(out, model.Alert{
			Severity:   sev,
			Status:     model.AlertOpen,
			Audience:   model.AudienceBoth,
			Title:      "Dépenses élevées",
			Body:       fmt.Sprintf("Catégorie '%s' : %.0f FCFA vs médiane 3m ≈ %.0f.", ct.Categorie, ct.Montant, med),
			MonthID:    monthID,
			EntityType: "categorie",
			EntityName: ct.Categorie,
			SourceRule: RuleExpenses,
		})
	}
	return out
}

// LowMarginAlerts notifies management of products under the margin floor.
func LowMarginAlerts(rows []model.MarginRow, monthID int64, th config.Thresholds) []model.Alert {
	var out []model.Alert
	for _, r := range rows {
		if r.MargePct >= th.MarginLowPct {
			continue
		}
		out = append(out, model.Alert{
			Severity:   model.SeverityWarning,
			Status:     model.AlertOpen,
			Audience:   model.AudienceDG,
			Title:      fmt.Sprintf("Marge faible : %s", r.Produit),
			Body:       fmt.Sprintf("Marge %.1f%% (< %.0f%%).", r.MargePct, th.MarginLowPct),
			MonthID:    monthID,
			EntityType: "produit",
			EntityName: r.Produit,
			SourceRule: RuleMargin,
		})
	}
	return out
}

// LowTreasuryAlert warns management when the combined month-end bank and cash
// balances fall under the configured floor. Returns at most one alert.
func LowTreasuryAlert(total float64, monthID int64, th config.Thresholds) []model.Alert {
	if total >= th.TreasuryLowTotal {
		return nil
	}
	return []model.Alert{{
		Severity:   model.SeverityWarning,
		Status:     model.AlertOpen,
		Audience:   model.AudienceDG,
		Title:      "Trésorerie basse",
		Body:       fmt.Sprintf("Solde fin cumulé ≈ %.0f FCFA.", total),
		MonthID:    monthID,
		EntityType: "tresorerie",
		SourceRule: RuleTreasury,
	}}
}
