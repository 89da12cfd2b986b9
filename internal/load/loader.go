// Package load materializes validated artifacts into the star schema.
// Loading is idempotent per artifact: facts scoped to the artifact's load
// record are deleted and rewritten inside one transaction.
package load

import (
	"fmt"
	"log"
	"path/filepath"

	"LedgerSentinel/internal/filespec"
	"LedgerSentinel/internal/model"
	"LedgerSentinel/internal/tabular"
	"LedgerSentinel/internal/warehouse"
)

// Loader (re)writes artifacts' fact rows into the warehouse.
type Loader struct {
	Store *warehouse.Store
	Dir   string // upload directory holding stored artifact content
}

// NewLoader creates a Loader reading artifact content from dir.
func NewLoader(store *warehouse.Store, dir string) *Loader {
	return &Loader{Store: store, Dir: dir}
}

// Counts tracks fact rows loaded per table.
type Counts map[string]int

func newCounts() Counts {
	return Counts{
		"ventes": 0, "achats": 0, "stock": 0, "depenses": 0,
		"marge": 0, "clients": 0, "banque": 0, "caisse": 0,
	}
}

// Add accumulates another count set.
func (c Counts) Add(other Counts) {
	for k, v := range other {
		c[k] += v
	}
}

// FileResult summarizes one loaded artifact inside a batch.
type FileResult struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename"`
	Type       string `json:"type_fichier"`
	RowsLoaded Counts `json:"rows_loaded"`
}

// Summary is the outcome of a batch load: per-table totals plus non-fatal
// per-artifact errors.
type Summary struct {
	Mois       string       `json:"mois"`
	Annee      int          `json:"annee"`
	TypeFilter string       `json:"type_filter,omitempty"`
	FilesCount int          `json:"files_count"`
	Files      []FileResult `json:"files"`
	RowsLoaded Counts       `json:"rows_loaded"`
	Errors     []string     `json:"errors"`
}

// LoadMonth loads every artifact of the period (optionally one type).
// A failure loading one artifact is recorded and does not stop the others.
func (l *Loader) LoadMonth(annee int, mois string, typeFilter string) (*Summary, error) {
	moisKey, err := filespec.MonthKey(mois)
	if err != nil {
		return nil, err
	}
	if typeFilter != "" {
		if _, err := filespec.Parse(typeFilter); err != nil {
			return nil, err
		}
	}

	artifacts, err := l.Store.ArtifactsForPeriod(moisKey, annee, typeFilter)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Mois:       moisKey,
		Annee:      annee,
		TypeFilter: typeFilter,
		FilesCount: len(artifacts),
		RowsLoaded: newCounts(),
	}

	for _, a := range artifacts {
		counts, err := l.LoadArtifact(a)
		if err != nil {
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("Fichier id=%d '%s': %v", a.ID, a.Filename, err))
			continue
		}
		summary.RowsLoaded.Add(counts)
		summary.Files = append(summary.Files, FileResult{
			ID: a.ID, Filename: a.Filename, Type: a.Type, RowsLoaded: counts,
		})
	}

	log.Printf("[INFO] load %s/%d: %d fichiers, %d erreurs",
		moisKey, annee, len(artifacts), len(summary.Errors))
	return summary, nil
}

// LoadArtifact (re)loads one persisted artifact. All of its writes commit
// together; on failure none are retained.
func (l *Loader) LoadArtifact(a model.Artifact) (Counts, error) {
	ft, err := filespec.Parse(a.Type)
	if err != nil {
		return nil, err
	}
	month, err := filespec.MonthNumber(a.Mois)
	if err != nil {
		return nil, err
	}

	table, err := tabular.ReadFile(filepath.Join(l.Dir, a.StoredName))
	if err != nil {
		return nil, err
	}
	if table.Empty() {
		return nil, fmt.Errorf("fichier vide ou non lisible")
	}

	headerMap := filespec.NormalizeHeaders(table.Headers, ft)
	normalized := table.Rename(headerMap)

	// Whole-file failure: a missing required field aborts the load.
	if missing := filespec.MissingRequired(normalized.Headers, ft); len(missing) > 0 {
		return nil, fmt.Errorf("colonne requise manquante (%s): %s", ft, missing[0])
	}

	counts := newCounts()
	err = l.Store.WithTx(func(t *warehouse.Tx) error {
		monthID, err := t.EnsureMonth(a.Annee, month)
		if err != nil {
			return err
		}
		fichierID, err := t.EnsureFichier(&a)
		if err != nil {
			return err
		}
		if err := t.DeleteFacts(ft, fichierID); err != nil {
			return err
		}

		var n int
		switch ft {
		case filespec.VentesJournalieres:
			n, err = loadVentes(t, normalized, fichierID)
			counts["ventes"] = n
		case filespec.AchatsJournaliers:
			n, err = loadAchats(t, normalized, fichierID)
			counts["achats"] = n
		case filespec.StockJournalier:
			n, err = loadStock(t, normalized, fichierID)
			counts["stock"] = n
		case filespec.DepensesMensuelles:
			n, err = loadDepenses(t, normalized, monthID, fichierID)
			counts["depenses"] = n
		case filespec.MargeProduitsMensuelle:
			n, err = loadMarge(t, normalized, monthID, fichierID)
			counts["marge"] = n
		case filespec.SituationClientsMensuelle:
			n, err = loadClients(t, normalized, monthID, fichierID)
			counts["clients"] = n
		case filespec.TransactionsBancaires:
			n, err = loadBanque(t, normalized, monthID, fichierID)
			counts["banque"] = n
		case filespec.SoldeCaisseMensuelle:
			n, err = loadCaisse(t, normalized, monthID, fichierID)
			counts["caisse"] = n
		default:
			return fmt.Errorf("type non géré: %s", ft)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
