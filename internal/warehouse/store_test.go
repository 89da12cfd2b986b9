package warehouse

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LedgerSentinel/internal/filespec"
	"LedgerSentinel/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "wh.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDimensions_StableIDs(t *testing.T) {
	s := openTestStore(t)

	var first, second int64
	err := s.WithTx(func(tx *Tx) error {
		var err error
		first, err = tx.EnsureProduit("super")
		return err
	})
	require.NoError(t, err)

	err = s.WithTx(func(tx *Tx) error {
		var err error
		second, err = tx.EnsureProduit("super")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, first, second, "get-or-create must return the same id")

	var monthA, monthB, dateA, dateB int64
	err = s.WithTx(func(tx *Tx) error {
		var err error
		if monthA, err = tx.EnsureMonth(2025, 1); err != nil {
			return err
		}
		if monthB, err = tx.EnsureMonth(2025, 1); err != nil {
			return err
		}
		d := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
		if dateA, err = tx.EnsureDate(d); err != nil {
			return err
		}
		dateB, err = tx.EnsureDate(d)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, monthA, monthB)
	assert.Equal(t, dateA, dateB)
}

func TestCreateArtifact_Dedup(t *testing.T) {
	s := openTestStore(t)

	a := model.Artifact{
		Filename: "ventes.csv", StoredName: "x_ventes.csv", UploadedBy: "comptable",
		Type: string(filespec.VentesJournalieres), Mois: "janvier", Annee: 2025,
		FileHash: "deadbeef",
	}
	require.NoError(t, s.WithTx(func(tx *Tx) error { return tx.CreateArtifact(&a) }))
	require.NotZero(t, a.ID)

	dup := a
	dup.ID = 0
	err := s.WithTx(func(tx *Tx) error { return tx.CreateArtifact(&dup) })
	require.Error(t, err)

	var dupErr *DuplicateError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, a.ID, dupErr.ExistingID)
	assert.Contains(t, dupErr.Error(), "déjà traité")

	// same hash, different period: accepted
	other := a
	other.ID = 0
	other.Mois = "fevrier"
	require.NoError(t, s.WithTx(func(tx *Tx) error { return tx.CreateArtifact(&other) }))
}

func TestEnsureFichier_ReusedOnReload(t *testing.T) {
	s := openTestStore(t)

	a := model.Artifact{
		ID: 42, Filename: "f.csv", StoredName: "sf.csv",
		Type: string(filespec.StockJournalier), Mois: "janvier", Annee: 2025,
	}
	var first, second int64
	require.NoError(t, s.WithTx(func(tx *Tx) error {
		var err error
		first, err = tx.EnsureFichier(&a)
		return err
	}))
	require.NoError(t, s.WithTx(func(tx *Tx) error {
		var err error
		second, err = tx.EnsureFichier(&a)
		return err
	}))
	assert.Equal(t, first, second)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	s := openTestStore(t)

	boom := errors.New("boom")
	err := s.WithTx(func(tx *Tx) error {
		if _, err := tx.EnsureProduit("gasoil"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// the insert must not have survived
	var id int64
	require.NoError(t, s.WithTx(func(tx *Tx) error {
		var err error
		id, err = tx.EnsureProduit("gasoil")
		return err
	}))
	var again int64
	require.NoError(t, s.WithTx(func(tx *Tx) error {
		var err error
		again, err = tx.EnsureProduit("gasoil")
		return err
	}))
	assert.Equal(t, id, again)
}

func TestUpdateAlertStatus_Transitions(t *testing.T) {
	s := openTestStore(t)

	alert := model.Alert{
		Severity: model.SeverityWarning, Audience: model.AudienceBoth,
		Title: "Trésorerie basse", SourceRule: "RECO_TREASURY",
	}
	require.NoError(t, s.WithTx(func(tx *Tx) error { return tx.InsertAlert(&alert) }))
	require.NotZero(t, alert.ID)

	require.NoError(t, s.UpdateAlertStatus(alert.ID, model.AlertAck))
	require.NoError(t, s.UpdateAlertStatus(alert.ID, model.AlertClosed))

	err := s.UpdateAlertStatus(alert.ID, model.AlertAck)
	require.Error(t, err, "closed is terminal")
	assert.Contains(t, err.Error(), "transition d'alerte invalide")

	err = s.UpdateAlertStatus(9999, model.AlertAck)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "introuvable")
}

func TestAnomaliesForMonth_SeverityThenRecency(t *testing.T) {
	s := openTestStore(t)

	var monthID int64
	require.NoError(t, s.WithTx(func(tx *Tx) error {
		var err error
		monthID, err = tx.EnsureMonth(2025, 1)
		return err
	}))

	insert := func(sev model.Severity) {
		a := model.Anomaly{
			Type: model.AnomalyVentes, Severity: sev,
			ObjectType: "produit", ObjectName: "super",
			MonthID: monthID, Message: "x",
		}
		require.NoError(t, s.WithTx(func(tx *Tx) error { return tx.InsertAnomaly(&a) }))
	}
	// 4 warnings then 3 criticals
	for i := 0; i < 4; i++ {
		insert(model.SeverityWarning)
	}
	for i := 0; i < 3; i++ {
		insert(model.SeverityCritical)
	}

	got, err := s.AnomaliesForMonth(monthID, 2025, 1, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 0; i < 3; i++ {
		assert.Equal(t, model.SeverityCritical, got[i].Severity, "criticals first")
	}
	assert.Equal(t, model.SeverityWarning, got[3].Severity)
	// recency descending within a severity
	assert.Greater(t, got[0].ID, got[1].ID)
	assert.Greater(t, got[3].ID, got[4].ID)
}

func TestDeleteArtifact_RemovesFacts(t *testing.T) {
	s := openTestStore(t)

	a := model.Artifact{
		Filename: "d.csv", StoredName: "sd.csv",
		Type: string(filespec.DepensesMensuelles), Mois: "janvier", Annee: 2025,
		FileHash: "h1",
	}
	require.NoError(t, s.WithTx(func(tx *Tx) error { return tx.CreateArtifact(&a) }))

	var monthID int64
	require.NoError(t, s.WithTx(func(tx *Tx) error {
		var err error
		if monthID, err = tx.EnsureMonth(2025, 1); err != nil {
			return err
		}
		fichierID, err := tx.EnsureFichier(&a)
		if err != nil {
			return err
		}
		catID, err := tx.EnsureCategorie("autres_achats")
		if err != nil {
			return err
		}
		return tx.InsertDepense(monthID, catID, 50000, fichierID)
	}))

	totals, err := s.ExpenseTotals(monthID)
	require.NoError(t, err)
	require.Len(t, totals, 1)

	require.NoError(t, s.DeleteArtifact(a.ID))

	totals, err = s.ExpenseTotals(monthID)
	require.NoError(t, err)
	assert.Empty(t, totals)

	_, err = s.GetArtifact(a.ID)
	require.Error(t, err)
}
