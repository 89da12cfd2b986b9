package warehouse

import (
	"database/sql"
	"fmt"
	"time"

	"LedgerSentinel/internal/model"
)

// Dimension rows are created on first reference and never updated or
// deleted; every lookup-or-insert returns the stable row id.

// EnsureDate returns the dim_date id for a calendar date, creating the row
// on first reference.
func (t *Tx) EnsureDate(d time.Time) (int64, error) {
	key := d.Format("2006-01-02")
	var id int64
	err := t.tx.QueryRow(`SELECT id FROM dim_date WHERE date = ?`, key).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup dim_date %s: %w", key, err)
	}
	res, err := t.tx.Exec(
		`INSERT INTO dim_date (date, year, month, day, weekday) VALUES (?,?,?,?,?)`,
		key, d.Year(), int(d.Month()), d.Day(), int(d.Weekday()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert dim_date %s: %w", key, err)
	}
	return res.LastInsertId()
}

// EnsureMonth returns the dim_month id for (year, month), creating the row
// on first reference.
func (t *Tx) EnsureMonth(year, month int) (int64, error) {
	var id int64
	err := t.tx.QueryRow(`SELECT id FROM dim_month WHERE year = ? AND month = ?`, year, month).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup dim_month %d-%d: %w", year, month, err)
	}
	res, err := t.tx.Exec(`INSERT INTO dim_month (year, month) VALUES (?,?)`, year, month)
	if err != nil {
		return 0, fmt.Errorf("insert dim_month %d-%d: %w", year, month, err)
	}
	return res.LastInsertId()
}

func (t *Tx) ensureNamed(table, name, fallback string) (int64, error) {
	if name == "" {
		name = fallback
	}
	var id int64
	err := t.tx.QueryRow(`SELECT id FROM `+table+` WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup %s %q: %w", table, name, err)
	}
	res, err := t.tx.Exec(`INSERT INTO `+table+` (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert %s %q: %w", table, name, err)
	}
	return res.LastInsertId()
}

// EnsureProduit looks up or creates a product dimension row by its
// normalized name.
func (t *Tx) EnsureProduit(name string) (int64, error) {
	return t.ensureNamed("dim_produit", name, "inconnu")
}

// EnsureClient looks up or creates a client dimension row.
func (t *Tx) EnsureClient(name string) (int64, error) {
	return t.ensureNamed("dim_client", name, "inconnu")
}

// EnsureBanque looks up or creates a bank dimension row.
func (t *Tx) EnsureBanque(name string) (int64, error) {
	return t.ensureNamed("dim_banque", name, "inconnue")
}

// EnsureCategorie looks up or creates an expense-category dimension row.
func (t *Tx) EnsureCategorie(name string) (int64, error) {
	return t.ensureNamed("dim_categorie_depense", name, "autres")
}

// EnsureFichier returns the dim_fichier id for an artifact, creating it
// exactly once per artifact id. Reloads reuse the same load record.
func (t *Tx) EnsureFichier(a *model.Artifact) (int64, error) {
	var id int64
	err := t.tx.QueryRow(`SELECT id FROM dim_fichier WHERE fichier_id = ?`, a.ID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup dim_fichier for artifact %d: %w", a.ID, err)
	}
	up := a.UploadDate
	if up.IsZero() {
		up = t.now()
	}
	res, err := t.tx.Exec(
		`INSERT INTO dim_fichier (fichier_id, type_fichier, mois, annee, uploaded_by, upload_date)
		 VALUES (?,?,?,?,?,?)`,
		a.ID, a.Type, a.Mois, a.Annee, a.UploadedBy, up.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert dim_fichier for artifact %d: %w", a.ID, err)
	}
	return res.LastInsertId()
}
