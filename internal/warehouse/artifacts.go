package warehouse

import (
	"database/sql"
	"fmt"

	"LedgerSentinel/internal/model"
)

// DuplicateError reports that byte-identical content was already registered
// for the same (type, period).
type DuplicateError struct {
	ExistingID int64
	Type       string
	Mois       string
	Annee      int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("Fichier identique déjà traité (id=%d) pour %s %s/%d.",
		e.ExistingID, e.Type, e.Mois, e.Annee)
}

func findDuplicate(q queryer, typeFichier, mois string, annee int, hash string) (int64, bool, error) {
	var id int64
	err := q.QueryRow(
		`SELECT id FROM fichiers_excel
		 WHERE type_fichier = ? AND mois = ? AND annee = ? AND file_hash = ?
		 ORDER BY id ASC LIMIT 1`,
		typeFichier, mois, annee, hash,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup duplicate: %w", err)
	}
	return id, true, nil
}

// FindDuplicate returns the id of an existing artifact with the same
// (type, period, fingerprint), if any.
func (s *Store) FindDuplicate(typeFichier, mois string, annee int, hash string) (int64, bool, error) {
	return findDuplicate(s.db, typeFichier, mois, annee, hash)
}

// CreateArtifact registers an uploaded artifact after the dedup check.
// A byte-identical artifact for the same (type, period) yields a
// *DuplicateError naming the existing id; nothing is inserted.
func (t *Tx) CreateArtifact(a *model.Artifact) error {
	if id, dup, err := findDuplicate(t.tx, a.Type, a.Mois, a.Annee, a.FileHash); err != nil {
		return err
	} else if dup {
		return &DuplicateError{ExistingID: id, Type: a.Type, Mois: a.Mois, Annee: a.Annee}
	}
	if a.UploadDate.IsZero() {
		a.UploadDate = t.now()
	}
	res, err := t.tx.Exec(
		`INSERT INTO fichiers_excel
			(filename, nom_stocke, uploaded_by, upload_date, type_fichier, mois, annee, file_hash)
		 VALUES (?,?,?,?,?,?,?,?)`,
		a.Filename, a.StoredName, a.UploadedBy, a.UploadDate.Unix(),
		a.Type, a.Mois, a.Annee, a.FileHash,
	)
	if err != nil {
		return fmt.Errorf("insert artifact %q: %w", a.Filename, err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

func scanArtifact(row interface{ Scan(...any) error }) (model.Artifact, error) {
	var a model.Artifact
	var up int64
	err := row.Scan(&a.ID, &a.Filename, &a.StoredName, &a.UploadedBy, &up,
		&a.Type, &a.Mois, &a.Annee, &a.FileHash)
	if err != nil {
		return a, err
	}
	a.UploadDate = unixTime(up)
	return a, nil
}

const artifactCols = `id, filename, nom_stocke, uploaded_by, upload_date, type_fichier, mois, annee, file_hash`

// GetArtifact fetches one artifact by id.
func (s *Store) GetArtifact(id int64) (model.Artifact, error) {
	a, err := scanArtifact(s.db.QueryRow(
		`SELECT `+artifactCols+` FROM fichiers_excel WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return a, fmt.Errorf("artifact %d introuvable", id)
	}
	if err != nil {
		return a, fmt.Errorf("get artifact %d: %w", id, err)
	}
	return a, nil
}

// ArtifactsForPeriod lists artifacts for a period, oldest first, optionally
// filtered by file type.
func (s *Store) ArtifactsForPeriod(mois string, annee int, typeFilter string) ([]model.Artifact, error) {
	query := `SELECT ` + artifactCols + ` FROM fichiers_excel WHERE annee = ? AND mois = ?`
	args := []any{annee, mois}
	if typeFilter != "" {
		query += ` AND type_fichier = ?`
		args = append(args, typeFilter)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []model.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteArtifact removes an artifact, its load record and every fact row
// loaded from it, in one transaction.
func (s *Store) DeleteArtifact(id int64) error {
	return s.WithTx(func(t *Tx) error {
		var fichierID int64
		err := t.tx.QueryRow(`SELECT id FROM dim_fichier WHERE fichier_id = ?`, id).Scan(&fichierID)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("lookup dim_fichier: %w", err)
		}
		if err == nil {
			for _, table := range factTables {
				if _, err := t.tx.Exec(`DELETE FROM `+table+` WHERE fichier_id = ?`, fichierID); err != nil {
					return fmt.Errorf("delete %s for artifact %d: %w", table, id, err)
				}
			}
			if _, err := t.tx.Exec(`DELETE FROM dim_fichier WHERE id = ?`, fichierID); err != nil {
				return fmt.Errorf("delete dim_fichier: %w", err)
			}
		}
		if _, err := t.tx.Exec(`DELETE FROM fichiers_excel WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete artifact %d: %w", id, err)
		}
		return nil
	})
}
