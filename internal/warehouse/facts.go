package warehouse

import (
	"fmt"

	"LedgerSentinel/internal/filespec"
)

var factTables = []string{
	"fact_ventes_journalieres",
	"fact_achats_journaliers",
	"fact_stock_journalier",
	"fact_depenses_mensuelles",
	"fact_marge_produit_mensuelle",
	"fact_clients_mensuelle",
	"fact_banque_mensuelle",
	"fact_caisse_mensuelle",
}

func factTableFor(ft filespec.FileType) (string, error) {
	switch ft {
	case filespec.VentesJournalieres:
		return "fact_ventes_journalieres", nil
	case filespec.AchatsJournaliers:
		return "fact_achats_journaliers", nil
	case filespec.StockJournalier:
		return "fact_stock_journalier", nil
	case filespec.DepensesMensuelles:
		return "fact_depenses_mensuelles", nil
	case filespec.MargeProduitsMensuelle:
		return "fact_marge_produit_mensuelle", nil
	case filespec.SituationClientsMensuelle:
		return "fact_clients_mensuelle", nil
	case filespec.TransactionsBancaires:
		return "fact_banque_mensuelle", nil
	case filespec.SoldeCaisseMensuelle:
		return "fact_caisse_mensuelle", nil
	}
	return "", fmt.Errorf("type non géré: %s", ft)
}

// DeleteFacts removes every fact row of the given kind that references this
// load record. Reload idempotence: delete before insert, same transaction.
func (t *Tx) DeleteFacts(ft filespec.FileType, fichierID int64) error {
	table, err := factTableFor(ft)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(`DELETE FROM `+table+` WHERE fichier_id = ?`, fichierID); err != nil {
		return fmt.Errorf("delete %s for load record %d: %w", table, fichierID, err)
	}
	return nil
}

// Nullable numeric fields use *float64: nil maps to SQL NULL.

// VenteRow is one daily sales fact.
type VenteRow struct {
	DateID       int64
	ProduitID    int64
	Quantite     float64
	PrixUnitaire *float64
	CA           *float64
}

// InsertVente inserts one daily sales fact for a load record.
func (t *Tx) InsertVente(r VenteRow, fichierID int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO fact_ventes_journalieres (date_id, produit_id, quantite, prix_unitaire, ca, fichier_id)
		 VALUES (?,?,?,?,?,?)`,
		r.DateID, r.ProduitID, r.Quantite, nullable(r.PrixUnitaire), nullable(r.CA), fichierID,
	)
	if err != nil {
		return fmt.Errorf("insert vente: %w", err)
	}
	return nil
}

// AchatRow is one daily purchases fact.
type AchatRow struct {
	DateID       int64
	ProduitID    int64
	Quantite     float64
	CoutUnitaire *float64
	CoutTotal    *float64
}

// InsertAchat inserts one daily purchases fact for a load record.
func (t *Tx) InsertAchat(r AchatRow, fichierID int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO fact_achats_journaliers (date_id, produit_id, quantite, cout_unitaire, cout_total, fichier_id)
		 VALUES (?,?,?,?,?,?)`,
		r.DateID, r.ProduitID, r.Quantite, nullable(r.CoutUnitaire), nullable(r.CoutTotal), fichierID,
	)
	if err != nil {
		return fmt.Errorf("insert achat: %w", err)
	}
	return nil
}

// StockRow is one daily stock movement fact.
type StockRow struct {
	DateID       int64
	ProduitID    int64
	StockInitial float64
	Reception    float64
	Vente        float64
	Pertes       float64
	RegulSCDP    float64
	StockFinal   float64
}

// InsertStock inserts one daily stock fact for a load record.
func (t *Tx) InsertStock(r StockRow, fichierID int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO fact_stock_journalier
			(date_id, produit_id, stock_initial, reception, vente, pertes, regul_scdp, stock_final, fichier_id)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		r.DateID, r.ProduitID, r.StockInitial, r.Reception, r.Vente, r.Pertes, r.RegulSCDP, r.StockFinal, fichierID,
	)
	if err != nil {
		return fmt.Errorf("insert stock: %w", err)
	}
	return nil
}

// InsertDepense inserts one monthly expense fact.
func (t *Tx) InsertDepense(monthID, categorieID int64, montant float64, fichierID int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO fact_depenses_mensuelles (month_id, categorie_id, montant, fichier_id)
		 VALUES (?,?,?,?)`,
		monthID, categorieID, montant, fichierID,
	)
	if err != nil {
		return fmt.Errorf("insert depense: %w", err)
	}
	return nil
}

// MargeRow is one monthly product margin fact.
type MargeRow struct {
	MonthID   int64
	ProduitID int64
	CA        float64
	COGS      float64
	Marge     float64
	MargePct  *float64
}

// InsertMarge inserts one monthly margin fact.
func (t *Tx) InsertMarge(r MargeRow, fichierID int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO fact_marge_produit_mensuelle (month_id, produit_id, ca, cogs, marge, marge_pct, fichier_id)
		 VALUES (?,?,?,?,?,?,?)`,
		r.MonthID, r.ProduitID, r.CA, r.COGS, r.Marge, nullable(r.MargePct), fichierID,
	)
	if err != nil {
		return fmt.Errorf("insert marge: %w", err)
	}
	return nil
}

// ClientRow is one monthly client balance fact.
type ClientRow struct {
	MonthID      int64
	ClientID     int64
	EncoursDebut float64
	Facture      float64
	Regle        float64
	EncoursFin   float64
}

// InsertClientBalance inserts one monthly client balance fact.
func (t *Tx) InsertClientBalance(r ClientRow, fichierID int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO fact_clients_mensuelle
			(month_id, client_id, encours_debut, facture, regle, encours_fin, fichier_id)
		 VALUES (?,?,?,?,?,?,?)`,
		r.MonthID, r.ClientID, r.EncoursDebut, r.Facture, r.Regle, r.EncoursFin, fichierID,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// LedgerRow is one monthly bank or cash ledger fact.
type LedgerRow struct {
	MonthID       int64
	BanqueID      int64 // bank ledger only
	SoldeDebut    float64
	Encaissements float64
	Decaissements float64
	SoldeFin      float64
}

// InsertBanque inserts one monthly bank ledger fact.
func (t *Tx) InsertBanque(r LedgerRow, fichierID int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO fact_banque_mensuelle
			(month_id, banque_id, solde_debut, encaissements, decaissements, solde_fin, fichier_id)
		 VALUES (?,?,?,?,?,?,?)`,
		r.MonthID, r.BanqueID, r.SoldeDebut, r.Encaissements, r.Decaissements, r.SoldeFin, fichierID,
	)
	if err != nil {
		return fmt.Errorf("insert banque: %w", err)
	}
	return nil
}

// InsertCaisse inserts one monthly cash ledger fact.
func (t *Tx) InsertCaisse(r LedgerRow, fichierID int64) error {
	_, err := t.tx.Exec(
		`INSERT INTO fact_caisse_mensuelle
			(month_id, solde_debut, encaissements, decaissements, solde_fin, fichier_id)
		 VALUES (?,?,?,?,?,?)`,
		r.MonthID, r.SoldeDebut, r.Encaissements, r.Decaissements, r.SoldeFin, fichierID,
	)
	if err != nil {
		return fmt.Errorf("insert caisse: %w", err)
	}
	return nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
