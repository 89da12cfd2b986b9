package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LedgerSentinel/internal/config"
	"LedgerSentinel/internal/model"
)

func TestRestockAlerts(t *testing.T) {
	th := config.DefaultThresholds()
	rows := []model.CoverageRow{
		{Produit: "super", AvgDailySales: 100, LastStockFin: 1000},  // 10 days, fine
		{Produit: "gasoil", AvgDailySales: 100, LastStockFin: 400},  // 4 days, warning
		{Produit: "petrole", AvgDailySales: 100, LastStockFin: 150}, // 1.5 days, critical
		{Produit: "lubrifiants", AvgDailySales: 0, LastStockFin: 0}, // no sales, skipped
	}
	out := RestockAlerts(rows, 3, th)
	require.Len(t, out, 2)

	assert.Equal(t, "gasoil", out[0].EntityName)
	assert.Equal(t, model.SeverityWarning, out[0].Severity)
	assert.Equal(t, RuleRestock, out[0].SourceRule)
	assert.Equal(t, model.AudienceBoth, out[0].Audience)

	assert.Equal(t, "petrole", out[1].EntityName)
	assert.Equal(t, model.SeverityCritical, out[1].Severity)
	assert.Contains(t, out[1].Title, "petrole")
}

func TestExpenseOverheatAlerts(t *testing.T) {
	th := config.DefaultThresholds()
	current := []model.CategoryTotal{
		{Categorie: "transport_et_logistique", Montant: 180000},
		{Categorie: "frais_de_personnel", Montant: 95000},
	}
	history := map[string][]float64{
		"transport_et_logistique": {100000, 110000, 120000}, // median 110k, 1.5x = 165k
	}
	out := ExpenseOverheatAlerts(current, history, 2, th)
	require.Len(t, out, 1)
	assert.Equal(t, "Dépenses élevées", out[0].Title)
	assert.Equal(t, model.SeverityWarning, out[0].Severity)
	assert.Equal(t, RuleExpenses, out[0].SourceRule)
	assert.Equal(t, "transport_et_logistique", out[0].EntityName)
}

func TestLowMarginAlerts(t *testing.T) {
	th := config.DefaultThresholds()
	rows := []model.MarginRow{
		{Produit: "super", MargePct: 12},
		{Produit: "gasoil", MargePct: 8}, // at the floor, not below
		{Produit: "petrole", MargePct: 6.5},
	}
	out := LowMarginAlerts(rows, 5, th)
	require.Len(t, out, 1)
	assert.Equal(t, "petrole", out[0].EntityName)
	assert.Equal(t, model.AudienceDG, out[0].Audience)
	assert.Equal(t, RuleMargin, out[0].SourceRule)
}

func TestLowTreasuryAlert(t *testing.T) {
	th := config.DefaultThresholds()
	assert.Empty(t, LowTreasuryAlert(500000, 1, th), "at the floor is fine")

	out := LowTreasuryAlert(480000, 1, th)
	require.Len(t, out, 1)
	assert.Equal(t, "Trésorerie basse", out[0].Title)
	assert.Equal(t, model.AudienceDG, out[0].Audience)
	assert.Equal(t, model.SeverityWarning, out[0].Severity)
	assert.Equal(t, RuleTreasury, out[0].SourceRule)
}

func TestStats(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, PStdDev([]float64{5}))
	assert.InDelta(t, 0.8165, PStdDev([]float64{1, 2, 3}), 1e-4)
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{1, 2, 3, 4}))
}
