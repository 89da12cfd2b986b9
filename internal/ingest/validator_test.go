package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LedgerSentinel/internal/warehouse"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const ventesCSV = `Date,Produit,Qté,Prix Unitaire
2025-01-01,super,100,650
2025-01-02,gasoil,80,620
2025-01-03,Pétrole,50,500
`

func TestPreview_ValidSalesFile(t *testing.T) {
	path := writeCSV(t, "ventes.csv", ventesCSV)

	report, err := Preview(path, "", "", 0, nil, Options{})
	require.NoError(t, err)

	assert.True(t, report.OK, "errors: %v", report.Errors)
	assert.Equal(t, "ventes_journalieres", report.InferredType)
	assert.Equal(t, "ventes_journalieres", report.DeclaredType)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.MissingColumns)
	assert.Equal(t, 3, report.RowsCount)
	assert.Len(t, report.NormalizedPreview, 3)
	assert.Equal(t, "quantite", report.CanonicalHeaders["Qté"])
	assert.NotEmpty(t, report.ContentHash)
	assert.Zero(t, report.DuplicateOfID)
}

func TestPreview_DeclaredTypeWins(t *testing.T) {
	path := writeCSV(t, "achats.csv", "Date,Produit,Qté,Coût\n2025-01-01,super,10,6000\n")
	report, err := Preview(path, "achats_journaliers", "", 0, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "achats_journaliers", report.DeclaredType)
	assert.True(t, report.OK, "errors: %v", report.Errors)
}

func TestPreview_InvalidDeclaredFallsBackToInferred(t *testing.T) {
	path := writeCSV(t, "ventes.csv", ventesCSV)
	report, err := Preview(path, "type_bidon", "", 0, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "ventes_journalieres", report.DeclaredType)
}

func TestPreview_MissingColumns(t *testing.T) {
	path := writeCSV(t, "ventes.csv", "Date,Qté\n2025-01-01,100\n")
	report, err := Preview(path, "ventes_journalieres", "", 0, nil, Options{})
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Equal(t, []string{"produit"}, report.MissingColumns)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0], "Colonnes obligatoires manquantes")
}

func TestPreview_BadDomainValue(t *testing.T) {
	path := writeCSV(t, "ventes.csv", "Date,Produit,Qté,CA\n2025-01-01,kerosene,100,65000\n")
	report, err := Preview(path, "ventes_journalieres", "", 0, nil, Options{})
	require.NoError(t, err)
	assert.False(t, report.OK)
	found := false
	for _, e := range report.Errors {
		if strings.Contains(e, "kerosene") {
			found = true
		}
	}
	assert.True(t, found, "expected a domain error naming kerosene: %v", report.Errors)
}

func TestPreview_EmptyFile(t *testing.T) {
	path := writeCSV(t, "vide.csv", "")
	report, err := Preview(path, "", "", 0, nil, Options{})
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Equal(t, []string{"Fichier vide ou non lisible."}, report.Errors)
}

func TestPreview_UnresolvableType(t *testing.T) {
	path := writeCSV(t, "inconnu.csv", "foo,bar\n1,2\n")
	report, err := Preview(path, "", "", 0, nil, Options{})
	require.NoError(t, err)
	assert.False(t, report.OK)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0], "indéterminé")
}

func TestPreview_PreviewRowLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("Categorie,Montant\n")
	for i := 0; i < 10; i++ {
		b.WriteString("autres_achats,1000\n")
	}
	path := writeCSV(t, "dep.csv", b.String())

	report, err := Preview(path, "", "", 0, nil, Options{PreviewRows: 2})
	require.NoError(t, err)
	assert.Equal(t, 10, report.RowsCount)
	assert.Len(t, report.NormalizedPreview, 2)
}

func TestRegisterAndDuplicateDetection(t *testing.T) {
	store, err := warehouse.Open(filepath.Join(t.TempDir(), "wh.db"))
	require.NoError(t, err)
	defer store.Close()
	uploadDir := t.TempDir()

	src := writeCSV(t, "ventes.csv", ventesCSV)
	artifact, err := Register(store, src, "ventes.csv", "ventes_journalieres", "Janvier", 2025, "comptable", uploadDir)
	require.NoError(t, err)
	require.NotZero(t, artifact.ID)
	assert.Equal(t, "janvier", artifact.Mois)
	assert.FileExists(t, filepath.Join(uploadDir, artifact.StoredName))

	// validation now reports the duplicate
	report, err := Preview(src, "ventes_journalieres", "janvier", 2025, store, Options{})
	require.NoError(t, err)
	assert.Equal(t, artifact.ID, report.DuplicateOfID)

	// re-registering identical content for the same period is rejected
	_, err = Register(store, src, "ventes.csv", "ventes_journalieres", "janvier", 2025, "comptable", uploadDir)
	require.Error(t, err)
	var dupErr *warehouse.DuplicateError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, artifact.ID, dupErr.ExistingID)

	// same content, another period: fine
	_, err = Register(store, src, "ventes.csv", "ventes_journalieres", "février", 2025, "comptable", uploadDir)
	require.NoError(t, err)
}

func TestRegister_InvalidInputs(t *testing.T) {
	store, err := warehouse.Open(filepath.Join(t.TempDir(), "wh.db"))
	require.NoError(t, err)
	defer store.Close()

	src := writeCSV(t, "v.csv", ventesCSV)
	if _, err := Register(store, src, "v.csv", "type_bidon", "janvier", 2025, "x", t.TempDir()); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := Register(store, src, "v.csv", "ventes_journalieres", "janviery", 2025, "x", t.TempDir()); err == nil {
		t.Error("expected error for invalid month")
	}
}
