// Package warehouse owns the star schema: source artifact registry, conformed
// dimensions, fact tables, anomalies and alerts, all persisted in SQLite.
package warehouse

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists the warehouse to a SQLite database.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboard reads do not block loads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] warehouse opened: %s", dbPath)
	return s, nil
}

// SetClock replaces the timestamp source for creation-time fields.
func (s *Store) SetClock(fn func() time.Time) { s.now = fn }

// Close closes the underlying database.
func (s *Store) Close() error {
	log.Println("[INFO] closing warehouse")
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fichiers_excel (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			filename     TEXT NOT NULL,
			nom_stocke   TEXT NOT NULL,
			uploaded_by  TEXT NOT NULL,
			upload_date  INTEGER NOT NULL,
			type_fichier TEXT NOT NULL,
			mois         TEXT NOT NULL,
			annee        INTEGER NOT NULL,
			file_hash    TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_fichiers_type_periode_hash
			ON fichiers_excel(type_fichier, mois, annee, file_hash)`,
		`CREATE INDEX IF NOT EXISTS ix_fichiers_periode ON fichiers_excel(annee, mois)`,

		`CREATE TABLE IF NOT EXISTS dim_date (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			date    TEXT NOT NULL UNIQUE,
			year    INTEGER NOT NULL,
			month   INTEGER NOT NULL,
			day     INTEGER NOT NULL,
			weekday INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_dim_date_year_month ON dim_date(year, month)`,

		`CREATE TABLE IF NOT EXISTS dim_month (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			year  INTEGER NOT NULL,
			month INTEGER NOT NULL,
			UNIQUE(year, month)
		)`,

		`CREATE TABLE IF NOT EXISTS dim_produit (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS dim_client (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS dim_banque (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS dim_categorie_depense (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,

		`CREATE TABLE IF NOT EXISTS dim_fichier (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			fichier_id   INTEGER NOT NULL,
			type_fichier TEXT NOT NULL,
			mois         TEXT NOT NULL,
			annee        INTEGER NOT NULL,
			uploaded_by  TEXT,
			upload_date  INTEGER NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_dim_fichier_fichier ON dim_fichier(fichier_id)`,
		`CREATE INDEX IF NOT EXISTS ix_dim_fichier_periode ON dim_fichier(type_fichier, mois, annee)`,

		`CREATE TABLE IF NOT EXISTS fact_ventes_journalieres (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			date_id       INTEGER NOT NULL,
			produit_id    INTEGER NOT NULL,
			quantite      REAL NOT NULL,
			prix_unitaire REAL,
			ca            REAL,
			fichier_id    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_vj_date_prod ON fact_ventes_journalieres(date_id, produit_id)`,
		`CREATE INDEX IF NOT EXISTS ix_vj_fichier ON fact_ventes_journalieres(fichier_id)`,

		`CREATE TABLE IF NOT EXISTS fact_achats_journaliers (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			date_id       INTEGER NOT NULL,
			produit_id    INTEGER NOT NULL,
			quantite      REAL NOT NULL,
			cout_unitaire REAL,
			cout_total    REAL,
			fichier_id    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_aj_date_prod ON fact_achats_journaliers(date_id, produit_id)`,
		`CREATE INDEX IF NOT EXISTS ix_aj_fichier ON fact_achats_journaliers(fichier_id)`,

		`CREATE TABLE IF NOT EXISTS fact_stock_journalier (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			date_id       INTEGER NOT NULL,
			produit_id    INTEGER NOT NULL,
			stock_initial REAL NOT NULL,
			reception     REAL NOT NULL,
			vente         REAL NOT NULL,
			pertes        REAL NOT NULL,
			regul_scdp    REAL NOT NULL,
			stock_final   REAL NOT NULL,
			fichier_id    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_sj_date_prod ON fact_stock_journalier(date_id, produit_id)`,
		`CREATE INDEX IF NOT EXISTS ix_sj_fichier ON fact_stock_journalier(fichier_id)`,

		`CREATE TABLE IF NOT EXISTS fact_depenses_mensuelles (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			month_id     INTEGER NOT NULL,
			categorie_id INTEGER NOT NULL,
			montant      REAL NOT NULL,
			fichier_id   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_dep_mois_cat ON fact_depenses_mensuelles(month_id, categorie_id)`,
		`CREATE INDEX IF NOT EXISTS ix_dep_fichier ON fact_depenses_mensuelles(fichier_id)`,

		`CREATE TABLE IF NOT EXISTS fact_marge_produit_mensuelle (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			month_id   INTEGER NOT NULL,
			produit_id INTEGER NOT NULL,
			ca         REAL NOT NULL,
			cogs       REAL NOT NULL,
			marge      REAL NOT NULL,
			marge_pct  REAL,
			fichier_id INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_marge_mois_prod ON fact_marge_produit_mensuelle(month_id, produit_id)`,
		`CREATE INDEX IF NOT EXISTS ix_marge_fichier ON fact_marge_produit_mensuelle(fichier_id)`,

		`CREATE TABLE IF NOT EXISTS fact_clients_mensuelle (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			month_id      INTEGER NOT NULL,
			client_id     INTEGER NOT NULL,
			encours_debut REAL NOT NULL,
			facture       REAL NOT NULL,
			regle         REAL NOT NULL,
			encours_fin   REAL NOT NULL,
			fichier_id    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_clients_mois_client ON fact_clients_mensuelle(month_id, client_id)`,
		`CREATE INDEX IF NOT EXISTS ix_clients_fichier ON fact_clients_mensuelle(fichier_id)`,

		`CREATE TABLE IF NOT EXISTS fact_banque_mensuelle (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			month_id      INTEGER NOT NULL,
			banque_id     INTEGER NOT NULL,
			solde_debut   REAL NOT NULL,
			encaissements REAL NOT NULL,
			decaissements REAL NOT NULL,
			solde_fin     REAL NOT NULL,
			fichier_id    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_banque_mois ON fact_banque_mensuelle(month_id, banque_id)`,
		`CREATE INDEX IF NOT EXISTS ix_banque_fichier ON fact_banque_mensuelle(fichier_id)`,

		`CREATE TABLE IF NOT EXISTS fact_caisse_mensuelle (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			month_id      INTEGER NOT NULL,
			solde_debut   REAL NOT NULL,
			encaissements REAL NOT NULL,
			decaissements REAL NOT NULL,
			solde_fin     REAL NOT NULL,
			fichier_id    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_caisse_mois ON fact_caisse_mensuelle(month_id)`,
		`CREATE INDEX IF NOT EXISTS ix_caisse_fichier ON fact_caisse_mensuelle(fichier_id)`,

		`CREATE TABLE IF NOT EXISTS anomalies (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at  INTEGER NOT NULL,
			type        TEXT NOT NULL,
			severity    TEXT NOT NULL,
			object_type TEXT,
			object_name TEXT,
			date_id     INTEGER,
			month_id    INTEGER,
			metric      TEXT,
			value       REAL,
			threshold   REAL,
			message     TEXT NOT NULL,
			fichier_id  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS ix_anom_type_sev_month ON anomalies(type, severity, month_id)`,
		`CREATE INDEX IF NOT EXISTS ix_anom_type_date ON anomalies(type, date_id)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at  INTEGER NOT NULL,
			severity    TEXT NOT NULL,
			status      TEXT NOT NULL,
			audience    TEXT NOT NULL,
			title       TEXT NOT NULL,
			body        TEXT,
			month_id    INTEGER,
			entity_type TEXT,
			entity_name TEXT,
			source_rule TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS ix_alerts_sev_status_month ON alerts(severity, status, month_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Tx groups the warehouse's mutating operations inside one transaction.
type Tx struct {
	tx  *sql.Tx
	now func() time.Time
}

// WithTx runs fn inside a transaction. On error every write is rolled back;
// otherwise all writes commit together. Writers are serialized, matching the
// single-writer-per-request model.
func (s *Store) WithTx(fn func(*Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Tx{tx: tx, now: s.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("[ERROR] rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
