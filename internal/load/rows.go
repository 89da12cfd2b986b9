package load

import (
	"LedgerSentinel/internal/filespec"
	"LedgerSentinel/internal/tabular"
	"LedgerSentinel/internal/warehouse"
)

// numPtr returns the parsed value of a cell, or nil when it is absent or
// not a number.
func numPtr(row map[string]string, col string) *float64 {
	v, ok := tabular.ParseNumber(row[col])
	if !ok {
		return nil
	}
	return &v
}

// numOr0 returns the parsed value of a cell, or 0 when it cannot be parsed.
func numOr0(row map[string]string, col string) float64 {
	v, ok := tabular.ParseNumber(row[col])
	if !ok {
		return 0
	}
	return v
}

// orDefault normalizes a dimension name, falling back when empty.
func orDefault(raw, fallback string) string {
	name := filespec.Canonicalize(raw)
	if name == "" {
		return fallback
	}
	return name
}

func loadVentes(t *warehouse.Tx, table *tabular.Table, fichierID int64) (int, error) {
	n := 0
	for _, row := range table.Rows {
		d, ok := tabular.ParseDate(row["date"])
		if !ok {
			continue // unusable row, not a file-level failure
		}
		dateID, err := t.EnsureDate(d)
		if err != nil {
			return n, err
		}
		produitID, err := t.EnsureProduit(orDefault(row["produit"], "inconnu"))
		if err != nil {
			return n, err
		}
		r := warehouse.VenteRow{
			DateID:       dateID,
			ProduitID:    produitID,
			Quantite:     numOr0(row, "quantite"),
			PrixUnitaire: numPtr(row, "prix_unitaire"),
			CA:           numPtr(row, "ca"),
		}
		if r.CA == nil && r.PrixUnitaire != nil {
			ca := r.Quantite * *r.PrixUnitaire
			r.CA = &ca
		}
		if err := t.InsertVente(r, fichierID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func loadAchats(t *warehouse.Tx, table *tabular.Table, fichierID int64) (int, error) {
	n := 0
	for _, row := range table.Rows {
		d, ok := tabular.ParseDate(row["date"])
		if !ok {
			continue
		}
		dateID, err := t.EnsureDate(d)
		if err != nil {
			return n, err
		}
		produitID, err := t.EnsureProduit(orDefault(row["produit"], "inconnu"))
		if err != nil {
			return n, err
		}
		r := warehouse.AchatRow{
			DateID:       dateID,
			ProduitID:    produitID,
			Quantite:     numOr0(row, "quantite"),
			CoutUnitaire: numPtr(row, "cout_unitaire"),
			CoutTotal:    numPtr(row, "cout_total"),
		}
		if r.CoutTotal == nil && r.CoutUnitaire != nil {
			total := r.Quantite * *r.CoutUnitaire
			r.CoutTotal = &total
		}
		if err := t.InsertAchat(r, fichierID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func loadStock(t *warehouse.Tx, table *tabular.Table, fichierID int64) (int, error) {
	n := 0
	for _, row := range table.Rows {
		d, ok := tabular.ParseDate(row["date"])
		if !ok {
			continue
		}
		dateID, err := t.EnsureDate(d)
		if err != nil {
			return n, err
		}
		produitID, err := t.EnsureProduit(orDefault(row["produit"], "inconnu"))
		if err != nil {
			return n, err
		}
		r := warehouse.StockRow{
			DateID:       dateID,
			ProduitID:    produitID,
			StockInitial: numOr0(row, "stock_initial"),
			Reception:    numOr0(row, "reception"),
			Vente:        numOr0(row, "vente"),
			Pertes:       numOr0(row, "pertes"),
			RegulSCDP:    numOr0(row, "regul_scdp"),
			StockFinal:   numOr0(row, "stock_final"),
		}
		if err := t.InsertStock(r, fichierID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func loadDepenses(t *warehouse.Tx, table *tabular.Table, monthID, fichierID int64) (int, error) {
	n := 0
	for _, row := range table.Rows {
		categorieID, err := t.EnsureCategorie(orDefault(row["categorie"], "autres"))
		if err != nil {
			return n, err
		}
		if err := t.InsertDepense(monthID, categorieID, numOr0(row, "montant"), fichierID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func loadMarge(t *warehouse.Tx, table *tabular.Table, monthID, fichierID int64) (int, error) {
	n := 0
	for _, row := range table.Rows {
		produitID, err := t.EnsureProduit(orDefault(row["produit"], "inconnu"))
		if err != nil {
			return n, err
		}
		r := warehouse.MargeRow{
			MonthID:   monthID,
			ProduitID: produitID,
			CA:        numOr0(row, "ca"),
			COGS:      numOr0(row, "cogs"),
		}
		if marge := numPtr(row, "marge"); marge != nil {
			r.Marge = *marge
		} else {
			r.Marge = r.CA - r.COGS
		}
		if pct := numPtr(row, "marge_pct"); pct != nil {
			r.MargePct = pct
		} else if r.CA != 0 {
			pct := r.Marge / r.CA * 100
			r.MargePct = &pct
		}
		if err := t.InsertMarge(r, fichierID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func loadClients(t *warehouse.Tx, table *tabular.Table, monthID, fichierID int64) (int, error) {
	n := 0
	for _, row := range table.Rows {
		clientID, err := t.EnsureClient(orDefault(row["client"], "inconnu"))
		if err != nil {
			return n, err
		}
		r := warehouse.ClientRow{
			MonthID:      monthID,
			ClientID:     clientID,
			EncoursDebut: numOr0(row, "encours_debut"),
			Facture:      numOr0(row, "facture"),
			Regle:        numOr0(row, "regle"),
			EncoursFin:   numOr0(row, "encours_fin"),
		}
		if err := t.InsertClientBalance(r, fichierID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func loadBanque(t *warehouse.Tx, table *tabular.Table, monthID, fichierID int64) (int, error) {
	n := 0
	for _, row := range table.Rows {
		banqueID, err := t.EnsureBanque(orDefault(row["banque"], "inconnue"))
		if err != nil {
			return n, err
		}
		r := warehouse.LedgerRow{
			MonthID:       monthID,
			BanqueID:      banqueID,
			SoldeDebut:    numOr0(row, "solde_debut"),
			Encaissements: numOr0(row, "encaissements"),
			Decaissements: numOr0(row, "decaissements"),
			SoldeFin:      numOr0(row, "solde_fin"),
		}
		if err := t.InsertBanque(r, fichierID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func loadCaisse(t *warehouse.Tx, table *tabular.Table, monthID, fichierID int64) (int, error) {
	n := 0
	for _, row := range table.Rows {
		r := warehouse.LedgerRow{
			MonthID:       monthID,
			SoldeDebut:    numOr0(row, "solde_debut"),
			Encaissements: numOr0(row, "encaissements"),
			Decaissements: numOr0(row, "decaissements"),
			SoldeFin:      numOr0(row, "solde_fin"),
		}
		if err := t.InsertCaisse(r, fichierID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
