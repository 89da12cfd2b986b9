package warehouse

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"LedgerSentinel/internal/model"
)

func unixTime(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}

// MonthID looks up dim_month for (year, month) without creating it.
func (s *Store) MonthID(year, month int) (int64, bool, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM dim_month WHERE year = ? AND month = ?`, year, month).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup month: %w", err)
	}
	return id, true, nil
}

// PreviousMonthIDs returns the ids of up to limit months strictly before
// (year, month), most recent first.
func (s *Store) PreviousMonthIDs(year, month, limit int) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT id FROM dim_month
		 WHERE year < ? OR (year = ? AND month < ?)
		 ORDER BY year DESC, month DESC LIMIT ?`,
		year, year, month, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("previous months: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SalesForMonth returns every daily sales observation of the month, ordered
// by product then date.
func (s *Store) SalesForMonth(year, month int) ([]model.SalesDay, error) {
	rows, err := s.db.Query(
		`SELECT d.id, d.date, p.name, f.quantite
		 FROM fact_ventes_journalieres f
		 JOIN dim_date d ON f.date_id = d.id
		 JOIN dim_produit p ON f.produit_id = p.id
		 WHERE d.year = ? AND d.month = ?
		 ORDER BY p.name, d.date`,
		year, month,
	)
	if err != nil {
		return nil, fmt.Errorf("sales for month: %w", err)
	}
	defer rows.Close()

	var out []model.SalesDay
	for rows.Next() {
		var sd model.SalesDay
		var ds string
		if err := rows.Scan(&sd.DateID, &ds, &sd.Produit, &sd.Quantite); err != nil {
			return nil, err
		}
		sd.Date, _ = time.Parse("2006-01-02", ds)
		out = append(out, sd)
	}
	return out, rows.Err()
}

// ExpenseTotals sums the month's expenses per category.
func (s *Store) ExpenseTotals(monthID int64) ([]model.CategoryTotal, error) {
	rows, err := s.db.Query(
		`SELECT c.name, COALESCE(SUM(f.montant), 0)
		 FROM fact_depenses_mensuelles f
		 JOIN dim_categorie_depense c ON f.categorie_id = c.id
		 WHERE f.month_id = ?
		 GROUP BY c.name
		 ORDER BY c.name`,
		monthID,
	)
	if err != nil {
		return nil, fmt.Errorf("expense totals: %w", err)
	}
	defer rows.Close()

	var out []model.CategoryTotal
	for rows.Next() {
		var ct model.CategoryTotal
		if err := rows.Scan(&ct.Categorie, &ct.Montant); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func inClause(ids []int64) (string, []any) {
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = "?"
		args[i] = id
	}
	return strings.Join(ph, ","), args
}

// ExpenseHistory collects per-category expense amounts across the given
// months, one value per fact row.
func (s *Store) ExpenseHistory(monthIDs []int64) (map[string][]float64, error) {
	if len(monthIDs) == 0 {
		return map[string][]float64{}, nil
	}
	ph, args := inClause(monthIDs)
	rows, err := s.db.Query(
		`SELECT c.name, f.montant
		 FROM fact_depenses_mensuelles f
		 JOIN dim_categorie_depense c ON f.categorie_id = c.id
		 WHERE f.month_id IN (`+ph+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("expense history: %w", err)
	}
	defer rows.Close()

	hist := map[string][]float64{}
	for rows.Next() {
		var name string
		var v float64
		if err := rows.Scan(&name, &v); err != nil {
			return nil, err
		}
		hist[name] = append(hist[name], v)
	}
	return hist, rows.Err()
}

// StockForMonth returns the month's daily stock equations.
func (s *Store) StockForMonth(year, month int) ([]model.StockDay, error) {
	rows, err := s.db.Query(
		`SELECT d.id, d.date, p.name,
		        f.stock_initial, f.reception, f.vente, f.pertes, f.regul_scdp, f.stock_final
		 FROM fact_stock_journalier f
		 JOIN dim_date d ON f.date_id = d.id
		 JOIN dim_produit p ON f.produit_id = p.id
		 WHERE d.year = ? AND d.month = ?
		 ORDER BY p.name, d.date`,
		year, month,
	)
	if err != nil {
		return nil, fmt.Errorf("stock for month: %w", err)
	}
	defer rows.Close()

	var out []model.StockDay
	for rows.Next() {
		var sd model.StockDay
		var ds string
		if err := rows.Scan(&sd.DateID, &ds, &sd.Produit,
			&sd.StockInitial, &sd.Reception, &sd.Vente, &sd.Pertes, &sd.RegulSCDP, &sd.StockFinal); err != nil {
			return nil, err
		}
		sd.Date, _ = time.Parse("2006-01-02", ds)
		out = append(out, sd)
	}
	return out, rows.Err()
}

// MarginRows returns the month's per-product margin snapshots.
func (s *Store) MarginRows(monthID int64) ([]model.MarginRow, error) {
	rows, err := s.db.Query(
		`SELECT p.name, f.ca, f.marge, COALESCE(f.marge_pct, 0)
		 FROM fact_marge_produit_mensuelle f
		 JOIN dim_produit p ON f.produit_id = p.id
		 WHERE f.month_id = ?
		 ORDER BY p.name`,
		monthID,
	)
	if err != nil {
		return nil, fmt.Errorf("margin rows: %w", err)
	}
	defer rows.Close()

	var out []model.MarginRow
	for rows.Next() {
		var mr model.MarginRow
		if err := rows.Scan(&mr.Produit, &mr.CA, &mr.Marge, &mr.MargePct); err != nil {
			return nil, err
		}
		out = append(out, mr)
	}
	return out, rows.Err()
}

// MarginPctHistory collects per-product margin percentages across the given
// months, skipping rows without a recorded percentage.
func (s *Store) MarginPctHistory(monthIDs []int64) (map[string][]float64, error) {
	if len(monthIDs) == 0 {
		return map[string][]float64{}, nil
	}
	ph, args := inClause(monthIDs)
	rows, err := s.db.Query(
		`SELECT p.name, f.marge_pct
		 FROM fact_marge_produit_mensuelle f
		 JOIN dim_produit p ON f.produit_id = p.id
		 WHERE f.month_id IN (`+ph+`) AND f.marge_pct IS NOT NULL`, args...)
	if err != nil {
		return nil, fmt.Errorf("margin history: %w", err)
	}
	defer rows.Close()

	hist := map[string][]float64{}
	for rows.Next() {
		var name string
		var v float64
		if err := rows.Scan(&name, &v); err != nil {
			return nil, err
		}
		hist[name] = append(hist[name], v)
	}
	return hist, rows.Err()
}

// BankRows returns the month's bank ledger lines.
func (s *Store) BankRows(monthID int64) ([]model.BalanceRow, error) {
	rows, err := s.db.Query(
		`SELECT b.name, f.solde_debut, f.encaissements, f.decaissements, f.solde_fin
		 FROM fact_banque_mensuelle f
		 JOIN dim_banque b ON f.banque_id = b.id
		 WHERE f.month_id = ?
		 ORDER BY b.name`,
		monthID,
	)
	if err != nil {
		return nil, fmt.Errorf("bank rows: %w", err)
	}
	defer rows.Close()
	return scanBalances(rows)
}

// CashRows returns the month's cash ledger lines.
func (s *Store) CashRows(monthID int64) ([]model.BalanceRow, error) {
	rows, err := s.db.Query(
		`SELECT 'caisse', f.solde_debut, f.encaissements, f.decaissements, f.solde_fin
		 FROM fact_caisse_mensuelle f
		 WHERE f.month_id = ?`,
		monthID,
	)
	if err != nil {
		return nil, fmt.Errorf("cash rows: %w", err)
	}
	defer rows.Close()
	return scanBalances(rows)
}

func scanBalances(rows *sql.Rows) ([]model.BalanceRow, error) {
	var out []model.BalanceRow
	for rows.Next() {
		var br model.BalanceRow
		if err := rows.Scan(&br.Name, &br.SoldeDebut, &br.Encaissements, &br.Decaissements, &br.SoldeFin); err != nil {
			return nil, err
		}
		out = append(out, br)
	}
	return out, rows.Err()
}

// ClientRows returns the month's client balance lines.
func (s *Store) ClientRows(monthID int64) ([]model.ClientBalance, error) {
	rows, err := s.db.Query(
		`SELECT c.name, f.encours_debut, f.facture, f.regle, f.encours_fin
		 FROM fact_clients_mensuelle f
		 JOIN dim_client c ON f.client_id = c.id
		 WHERE f.month_id = ?
		 ORDER BY c.name`,
		monthID,
	)
	if err != nil {
		return nil, fmt.Errorf("client rows: %w", err)
	}
	defer rows.Close()

	var out []model.ClientBalance
	for rows.Next() {
		var cb model.ClientBalance
		if err := rows.Scan(&cb.Client, &cb.EncoursDebut, &cb.Facture, &cb.Regle, &cb.EncoursFin); err != nil {
			return nil, err
		}
		out = append(out, cb)
	}
	return out, rows.Err()
}

// CoverageRows combines, per product, the month's average daily sold
// quantity (over days with recorded sales) with the most recent reported
// stock on hand. Products without sales in the month are omitted.
func (s *Store) CoverageRows(year, month int) ([]model.CoverageRow, error) {
	rows, err := s.db.Query(
		`SELECT p.name, COALESCE(SUM(f.quantite), 0), COUNT(DISTINCT d.date)
		 FROM fact_ventes_journalieres f
		 JOIN dim_date d ON f.date_id = d.id
		 JOIN dim_produit p ON f.produit_id = p.id
		 WHERE d.year = ? AND d.month = ?
		 GROUP BY p.name
		 ORDER BY p.name`,
		year, month,
	)
	if err != nil {
		return nil, fmt.Errorf("coverage sales: %w", err)
	}
	defer rows.Close()

	var out []model.CoverageRow
	for rows.Next() {
		var cr model.CoverageRow
		var total float64
		var days int
		if err := rows.Scan(&cr.Produit, &total, &days); err != nil {
			return nil, err
		}
		if days > 0 {
			cr.AvgDailySales = total / float64(days)
		}
		out = append(out, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		err := s.db.QueryRow(
			`SELECT f.stock_final
			 FROM fact_stock_journalier f
			 JOIN dim_date d ON f.date_id = d.id
			 JOIN dim_produit p ON f.produit_id = p.id
			 WHERE d.year = ? AND d.month = ? AND p.name = ?
			 ORDER BY d.date DESC LIMIT 1`,
			year, month, out[i].Produit,
		).Scan(&out[i].LastStockFin)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("coverage stock for %s: %w", out[i].Produit, err)
		}
	}
	return out, nil
}

// BankCashFinTotal sums month-end bank and cash balances.
func (s *Store) BankCashFinTotal(monthID int64) (float64, error) {
	var bank, cash float64
	if err := s.db.QueryRow(
		`SELECT COALESCE(SUM(solde_fin), 0) FROM fact_banque_mensuelle WHERE month_id = ?`, monthID,
	).Scan(&bank); err != nil {
		return 0, fmt.Errorf("bank balances: %w", err)
	}
	if err := s.db.QueryRow(
		`SELECT COALESCE(SUM(solde_fin), 0) FROM fact_caisse_mensuelle WHERE month_id = ?`, monthID,
	).Scan(&cash); err != nil {
		return 0, fmt.Errorf("cash balances: %w", err)
	}
	return bank + cash, nil
}

// caExpr approximates revenue by quantity x unit price when ca is absent.
const caExpr = `COALESCE(f.ca, f.quantite * COALESCE(f.prix_unitaire, 0))`

// CATotalForMonth sums the month's revenue across daily sales.
func (s *Store) CATotalForMonth(year, month int) (float64, error) {
	var total float64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(`+caExpr+`), 0)
		 FROM fact_ventes_journalieres f
		 JOIN dim_date d ON f.date_id = d.id
		 WHERE d.year = ? AND d.month = ?`,
		year, month,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ca total: %w", err)
	}
	return total, nil
}

// SalesQuantityStats returns the month's total sold quantity and the number
// of distinct days with recorded sales.
func (s *Store) SalesQuantityStats(year, month int) (total float64, days int, err error) {
	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(f.quantite), 0), COUNT(DISTINCT d.date)
		 FROM fact_ventes_journalieres f
		 JOIN dim_date d ON f.date_id = d.id
		 WHERE d.year = ? AND d.month = ?`,
		year, month,
	).Scan(&total, &days)
	if err != nil {
		return 0, 0, fmt.Errorf("sales stats: %w", err)
	}
	return total, days, nil
}

// LastStockSnapshot sums stock_final across products at the most recent date
// of the month carrying stock facts. ok is false when the month has none.
func (s *Store) LastStockSnapshot(year, month int) (total float64, ok bool, err error) {
	var dateID int64
	err = s.db.QueryRow(
		`SELECT d.id
		 FROM fact_stock_journalier f
		 JOIN dim_date d ON f.date_id = d.id
		 WHERE d.year = ? AND d.month = ?
		 ORDER BY d.date DESC LIMIT 1`,
		year, month,
	).Scan(&dateID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("last stock date: %w", err)
	}
	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(stock_final), 0) FROM fact_stock_journalier WHERE date_id = ?`, dateID,
	).Scan(&total)
	if err != nil {
		return 0, false, fmt.Errorf("last stock snapshot: %w", err)
	}
	return total, true, nil
}

// MargeTotals sums the month's margin facts (revenue and margin), used for
// the revenue-weighted margin percentage.
func (s *Store) MargeTotals(monthID int64) (caSum, margeSum float64, err error) {
	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(ca), 0), COALESCE(SUM(marge), 0)
		 FROM fact_marge_produit_mensuelle WHERE month_id = ?`,
		monthID,
	).Scan(&caSum, &margeSum)
	if err != nil {
		return 0, 0, fmt.Errorf("margin totals: %w", err)
	}
	return caSum, margeSum, nil
}

// TopRow is one line of a top-N ranking.
type TopRow struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// TopProductsByCA ranks the month's products by revenue.
func (s *Store) TopProductsByCA(year, month, limit int) ([]TopRow, error) {
	rows, err := s.db.Query(
		`SELECT p.name, COALESCE(SUM(`+caExpr+`), 0) AS ca
		 FROM fact_ventes_journalieres f
		 JOIN dim_date d ON f.date_id = d.id
		 JOIN dim_produit p ON f.produit_id = p.id
		 WHERE d.year = ? AND d.month = ?
		 GROUP BY p.name
		 ORDER BY ca DESC LIMIT ?`,
		year, month, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()
	return scanTop(rows)
}

// TopExpenseCategories ranks the month's expense categories by amount.
func (s *Store) TopExpenseCategories(monthID int64, limit int) ([]TopRow, error) {
	rows, err := s.db.Query(
		`SELECT c.name, COALESCE(SUM(f.montant), 0) AS mnt
		 FROM fact_depenses_mensuelles f
		 JOIN dim_categorie_depense c ON f.categorie_id = c.id
		 WHERE f.month_id = ?
		 GROUP BY c.name
		 ORDER BY mnt DESC LIMIT ?`,
		monthID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top expenses: %w", err)
	}
	defer rows.Close()
	return scanTop(rows)
}

func scanTop(rows *sql.Rows) ([]TopRow, error) {
	var out []TopRow
	for rows.Next() {
		var tr TopRow
		if err := rows.Scan(&tr.Name, &tr.Value); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
