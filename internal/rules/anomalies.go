package rules

import (
	"fmt"
	"math"

	"LedgerSentinel/internal/config"
	"LedgerSentinel/internal/model"
)

// SalesOutliers flags unusual daily sold quantities per product. A product
// needs at least th.SalesMinObs observations in the month; a day is flagged
// when |z| crosses th.SalesZScore (critical) or, failing that, when the
// day-over-day change reaches th.SalesDayChange (warning).
func SalesOutliers(series []model.SalesDay, th config.Thresholds) []model.Anomaly {
	var out []model.Anomaly

	byProduct := map[string][]model.SalesDay{}
	var order []string
	for _, row := range series {
		if _, seen := byProduct[row.Produit]; !seen {
			order = append(order, row.Produit)
		}
		byProduct[row.Produit] = append(byProduct[row.Produit], row)
	}

	for _, prod := range order {
		days := byProduct[prod]
		if len(days) < th.SalesMinObs {
			continue
		}
		values := make([]float64, len(days))
		for i, d := range days {
			values[i] = d.Quantite
		}
		mu := Mean(values)
		sigma := PStdDev(values)

		var prev *float64
		for _, d := range days {
			z := 0.0
			if sigma > 0 {
				z = (d.Quantite - mu) / sigma
			}
			bigChange := false
			if prev != nil && *prev > 0 {
				bigChange = math.Abs(d.Quantite-*prev)/(*prev) >= th.SalesDayChange
			}
			v := d.Quantite
			prev = &v

			if math.Abs(z) < th.SalesZScore && !bigChange {
				continue
			}
			sev := model.SeverityWarning
			if math.Abs(z) >= th.SalesZScore {
				sev = model.SeverityCritical
			}
			out = append(out, model.Anomaly{
				Type:       model.AnomalyVentes,
				Severity:   sev,
				ObjectType: "produit",
				ObjectName: prod,
				DateID:     d.DateID,
				Metric:     "zscore_quantite",
				Value:      z,
				Threshold:  th.SalesZScore,
				Message:    fmt.Sprintf("Ventes %s le %s inhabituelles (z=%.2f).", prod, d.Date.Format("2006-01-02"), z),
			})
		}
	}
	return out
}

// ExpenseSpikes flags categories whose monthly total crosses both the fixed
// floor and a multiple of their trailing-median. history maps category name
// to the prior months' per-row amounts.
func ExpenseSpikes(current []model.CategoryTotal, history map[string][]float64, monthID int64, th config.Thresholds) []model.Anomaly {
	var out []model.Anomaly
	for _, ct := range current {
		med := Median(history[ct.Categorie])
		if ct.Montant < math.Max(th.ExpenseSpikeFloor, med*th.ExpenseSpikeRatio) {
			continue
		}
		sev := model.SeverityCritical
		if ct.Montant < med*th.ExpenseCriticalRatio {
			sev = model.SeverityWarning
		}
		out = append(out, model.Anomaly{
			Type:       model.AnomalyDepenses,
			Severity:   sev,
			ObjectType: "categorie",
			ObjectName: ct.Categorie,
			MonthID:    monthID,
			Metric:     "depense_vs_median_12m",
			Value:      ct.Montant,
			Threshold:  med * th.ExpenseSpikeRatio,
			Message:    fmt.Sprintf("Dépenses '%s' élevées ce mois (val=%.0f, ref≈%.0f).", ct.Categorie, ct.Montant, med),
		})
	}
	return out
}

// StockGaps checks the daily stock equation per product:
// initial + reception - vente - pertes - regul must match the reported final
// within max(th.StockTolerancePct of |theoretical|, th.StockToleranceMin).
func StockGaps(rows []model.StockDay, th config.Thresholds) []model.Anomaly {
	var out []model.Anomaly
	for _, r := range rows {
		theo := r.StockInitial + r.Reception - r.Vente - r.Pertes - r.RegulSCDP
		gap := math.Abs(theo - r.StockFinal)
		tol := math.Max(math.Abs(theo)*th.StockTolerancePct, th.StockToleranceMin)
		if gap <= tol {
			continue
		}
		sev := model.SeverityWarning
		if gap > tol*2 {
			sev = model.SeverityCritical
		}
		out = append(out, model.Anomaly{
			Type:       model.AnomalyStock,
			Severity:   sev,
			ObjectType: "produit",
			ObjectName: r.Produit,
			DateID:     r.DateID,
			Metric:     "stock_equation_gap",
			Value:      gap,
			Threshold:  tol,
			Message:    fmt.Sprintf("Incohérence stock %s le %s (écart %.2f > tol %.2f).", r.Produit, r.Date.Format("2006-01-02"), gap, tol),
		})
	}
	return out
}

// MarginDeterioration flags products with a low margin percentage (warning)
// or one that dropped sharply versus its trailing median (info). Only one
// anomaly per product is emitted; the low branch takes priority. With no
// history the median defaults to the current value, so a product can never be
// flagged for dropping against itself.
func MarginDeterioration(rows []model.MarginRow, history map[string][]float64, monthID int64, th config.Thresholds) []model.Anomaly {
	var out []model.Anomaly
	for _, r := range rows {
		serie := history[r.Produit]
		med := r.MargePct
		if len(serie) > 0 {
			med = Median(serie)
		}
		low := r.MargePct < th.MarginLowPct
		drop := med-r.MargePct >= th.MarginDropPts
		if !low && !drop {
			continue
		}
		sev := model.SeverityInfo
		if low {
			sev = model.SeverityWarning
		}
		out = append(out, model.Anomaly{
			Type:       model.AnomalyMarge,
			Severity:   sev,
			ObjectType: "produit",
			ObjectName: r.Produit,
			MonthID:    monthID,
			Metric:     "marge_pct",
			Value:      r.MargePct,
			Threshold:  th.MarginLowPct,
			Message:    fmt.Sprintf("Marge %s faible (%.1f%%) vs réf %.1f%%.", r.Produit, r.MargePct, med),
		})
	}
	return out
}

// reconcileSeverity tiers a ledger gap: warning below the critical cutoff,
// critical at or above it.
func reconcileSeverity(gap float64, th config.Thresholds) model.Severity {
	if gap < th.ReconcileCritical {
		return model.SeverityWarning
	}
	return model.SeverityCritical
}

// BankGaps reconciles each bank's monthly ledger: opening + inflows - outflows
// must match the reported closing balance within th.ReconcileTolerance.
func BankGaps(rows []model.BalanceRow, monthID int64, th config.Thresholds) []model.Anomaly {
	var out []model.Anomaly
	for _, r := range rows {
		theo := r.SoldeDebut + r.Encaissements - r.Decaissements
		gap := math.Abs(theo - r.SoldeFin)
		if gap <= th.ReconcileTolerance {
			continue
		}
		out = append(out, model.Anomaly{
			Type:       model.AnomalyBanque,
			Severity:   reconcileSeverity(gap, th),
			ObjectType: "banque",
			ObjectName: r.Name,
			MonthID:    monthID,
			Metric:     "reconcile_ecart",
			Value:      gap,
			Threshold:  th.ReconcileTolerance,
			Message:    fmt.Sprintf("Réconciliation banque '%s' : écart %.0f.", r.Name, gap),
		})
	}
	return out
}

// CashGaps reconciles the monthly cash ledger with the same tolerance tiers
// as the banks.
func CashGaps(rows []model.BalanceRow, monthID int64, th config.Thresholds) []model.Anomaly {
	var out []model.Anomaly
	for _, r := range rows {
		theo := r.SoldeDebut + r.Encaissements - r.Decaissements
		gap := math.Abs(theo - r.SoldeFin)
		if gap <= th.ReconcileTolerance {
			continue
		}
		out = append(out, model.Anomaly{
			Type:       model.AnomalyCaisse,
			Severity:   reconcileSeverity(gap, th),
			ObjectType: "caisse",
			ObjectName: "caisse",
			MonthID:    monthID,
			Metric:     "reconcile_ecart",
			Value:      gap,
			Threshold:  th.ReconcileTolerance,
			Message:    fmt.Sprintf("Réconciliation caisse : écart %.0f.", gap),
		})
	}
	return out
}

// ClientGaps reconciles each client's receivables: opening + invoiced -
// collected must match the reported closing balance.
func ClientGaps(rows []model.ClientBalance, monthID int64, th config.Thresholds) []model.Anomaly {
	var out []model.Anomaly
	for _, r := range rows {
		theo := r.EncoursDebut + r.Facture - r.Regle
		gap := math.Abs(theo - r.EncoursFin)
		if gap <= th.ReconcileTolerance {
			continue
		}
		out = append(out, model.Anomaly{
			Type:       model.AnomalyClients,
			Severity:   reconcileSeverity(gap, th),
			ObjectType: "client",
			ObjectName: r.Client,
			MonthID:    monthID,
			Metric:     "reconcile_ecart",
			Value:      gap,
			Threshold:  th.ReconcileTolerance,
			Message:    fmt.Sprintf("Incohérence client '%s' : écart %.0f.", r.Client, gap),
		})
	}
	return out
}
