package load

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LedgerSentinel/internal/ingest"
	"LedgerSentinel/internal/warehouse"
)

func newTestLoader(t *testing.T) (*Loader, *warehouse.Store, string) {
	t.Helper()
	store, err := warehouse.Open(filepath.Join(t.TempDir(), "wh.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	dir := t.TempDir()
	return NewLoader(store, dir), store, dir
}

func registerCSV(t *testing.T, store *warehouse.Store, dir, name, typ, mois string, annee int, content string) int64 {
	t.Helper()
	src := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(src, []byte(content), 0o644))
	a, err := ingest.Register(store, src, name, typ, mois, annee, "comptable", dir)
	require.NoError(t, err)
	return a.ID
}

const ventesCSV = `Date,Produit,Qté,Prix Unitaire
2025-01-01,super,100,650
2025-01-02,super,120,650
pas une date,super,999,650
2025-01-03,gasoil,80,620
`

func TestLoadArtifact_SalesWithDerivedCA(t *testing.T) {
	loader, store, dir := newTestLoader(t)
	id := registerCSV(t, store, dir, "ventes.csv", "ventes_journalieres", "janvier", 2025, ventesCSV)

	a, err := store.GetArtifact(id)
	require.NoError(t, err)
	counts, err := loader.LoadArtifact(a)
	require.NoError(t, err)
	assert.Equal(t, 3, counts["ventes"], "the unparseable-date row is skipped")

	rows, err := store.SalesForMonth(2025, 1)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// ordered by product then date
	assert.Equal(t, "gasoil", rows[0].Produit)
	assert.Equal(t, "super", rows[1].Produit)
	assert.Equal(t, 100.0, rows[1].Quantite)

	// ca derived from quantite * prix_unitaire
	total, err := store.CATotalForMonth(2025, 1)
	require.NoError(t, err)
	assert.Equal(t, 100*650.0+120*650.0+80*620.0, total)
}

func TestLoadArtifact_ReloadIdempotent(t *testing.T) {
	loader, store, dir := newTestLoader(t)
	id := registerCSV(t, store, dir, "ventes.csv", "ventes_journalieres", "janvier", 2025, ventesCSV)

	a, err := store.GetArtifact(id)
	require.NoError(t, err)

	first, err := loader.LoadArtifact(a)
	require.NoError(t, err)
	second, err := loader.LoadArtifact(a)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	rows, err := store.SalesForMonth(2025, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 3, "reload must not duplicate fact rows")
}

func TestLoadArtifact_MissingRequiredColumnFailsWholeFile(t *testing.T) {
	loader, store, dir := newTestLoader(t)
	id := registerCSV(t, store, dir, "ventes.csv", "ventes_journalieres", "janvier", 2025,
		"Date,Qté\n2025-01-01,100\n")

	a, err := store.GetArtifact(id)
	require.NoError(t, err)
	_, err = loader.LoadArtifact(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produit")

	rows, err := store.SalesForMonth(2025, 1)
	require.NoError(t, err)
	assert.Empty(t, rows, "no partial rows on whole-file failure")
}

func TestLoadMonth_BatchIsolation(t *testing.T) {
	loader, store, dir := newTestLoader(t)
	registerCSV(t, store, dir, "ventes.csv", "ventes_journalieres", "janvier", 2025, ventesCSV)
	badID := registerCSV(t, store, dir, "stock.csv", "stock_journalier", "janvier", 2025,
		"Date,Produit\n2025-01-01,super\n")
	registerCSV(t, store, dir, "caisse.csv", "solde_caisse_mensuelle", "janvier", 2025,
		"Site,Solde Début,Encaissements,Décaissements,Solde Fin\nstation,50000,10000,5000,55000\n")

	summary, err := loader.LoadMonth(2025, "janvier", "")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.FilesCount)
	assert.Len(t, summary.Files, 2, "the failing file is excluded from successes")
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "stock.csv")
	assert.Contains(t, summary.Errors[0], "id="+strconv.FormatInt(badID, 10))

	assert.Equal(t, 3, summary.RowsLoaded["ventes"])
	assert.Equal(t, 1, summary.RowsLoaded["caisse"])
	assert.Equal(t, 0, summary.RowsLoaded["stock"])
}

func TestLoadMonth_InvalidMonth(t *testing.T) {
	loader, _, _ := newTestLoader(t)
	_, err := loader.LoadMonth(2025, "janviery", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mois invalide")
}

func TestLoadMonth_TypeFilter(t *testing.T) {
	loader, store, dir := newTestLoader(t)
	registerCSV(t, store, dir, "ventes.csv", "ventes_journalieres", "janvier", 2025, ventesCSV)
	registerCSV(t, store, dir, "dep.csv", "depenses_mensuelles", "janvier", 2025,
		"Categorie,Montant\nautres_achats,120000\n")

	summary, err := loader.LoadMonth(2025, "janvier", "depenses_mensuelles")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesCount)
	assert.Equal(t, 1, summary.RowsLoaded["depenses"])
	assert.Equal(t, 0, summary.RowsLoaded["ventes"])

	_, err = loader.LoadMonth(2025, "janvier", "type_bidon")
	require.Error(t, err)
}

func TestLoadArtifact_StockEquationColumns(t *testing.T) {
	loader, store, dir := newTestLoader(t)
	stockCSV := strings.Join([]string{
		"Date,Produit,SI,Réceptions,Sorties,Pertes,Régul,SF",
		"2025-01-01,super,1000,500,300,10,0,1190",
		"2025-01-02,super,1190,0,200,0,0,980",
	}, "\n")
	id := registerCSV(t, store, dir, "stock.csv", "stock_journalier", "janvier", 2025, stockCSV)

	a, err := store.GetArtifact(id)
	require.NoError(t, err)
	counts, err := loader.LoadArtifact(a)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["stock"])

	rows, err := store.StockForMonth(2025, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1000.0, rows[0].StockInitial)
	assert.Equal(t, 1190.0, rows[0].StockFinal)
	assert.Equal(t, 980.0, rows[1].StockFinal)
}
