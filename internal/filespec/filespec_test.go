package filespec

import (
	"strings"
	"testing"
)

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Ventes  Été", "Prix Unitaire (FCFA)", "  Stock_Final ", "déjà_canonique",
		"CA", "Régul SCDP",
	}
	for _, in := range inputs {
		once := Canonicalize(in)
		twice := Canonicalize(once)
		if once != twice {
			t.Errorf("Canonicalize(%q): once=%q twice=%q", in, once, twice)
		}
	}
}

func TestCanonicalize_AccentAndCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ventes  Été", "ventes_ete"},
		{"ventes_ete", "ventes_ete"},
		{"Prix Unitaire (FCFA)", "prix_unitaire_fcfa"},
		{"Régul. SCDP", "regul_scdp"},
		{"  Catégorie  ", "categorie"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Canonicalize(tt.in); got != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMonthNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"janvier", 1, true},
		{"Février", 2, true},
		{"fevrier", 2, true},
		{"AOÛT", 8, true},
		{"décembre", 12, true},
		{" mars ", 3, true},
		{"janviery", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := MonthNumber(tt.in)
		if tt.ok && err != nil {
			t.Errorf("MonthNumber(%q): unexpected error %v", tt.in, err)
			continue
		}
		if !tt.ok && err == nil {
			t.Errorf("MonthNumber(%q): expected error", tt.in)
			continue
		}
		if got != tt.want {
			t.Errorf("MonthNumber(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMonthKeyAndName(t *testing.T) {
	key, err := MonthKey("Février")
	if err != nil {
		t.Fatalf("MonthKey: %v", err)
	}
	if key != "fevrier" {
		t.Errorf("MonthKey(Février) = %q, want fevrier", key)
	}
	name, err := MonthName(8)
	if err != nil {
		t.Fatalf("MonthName: %v", err)
	}
	if name != "aout" {
		t.Errorf("MonthName(8) = %q, want aout", name)
	}
	if _, err := MonthName(13); err == nil {
		t.Error("MonthName(13): expected error")
	}
}

func TestResolveField_SynonymPrecedence(t *testing.T) {
	// type-specific override beats the global table
	if got := ResolveField("Coût", AchatsJournaliers); got != "cout_total" {
		t.Errorf("ResolveField(Coût, achats) = %q, want cout_total", got)
	}
	// global synonym
	if got := ResolveField("Qté", VentesJournalieres); got != "quantite" {
		t.Errorf("ResolveField(Qté) = %q, want quantite", got)
	}
	// identity fallthrough
	if got := ResolveField("colonne_inconnue", VentesJournalieres); got != "colonne_inconnue" {
		t.Errorf("ResolveField identity = %q", got)
	}
}

func TestGuessFileType_Deterministic(t *testing.T) {
	headers := []string{"Date", "Produit", "Qté", "Prix Unitaire"}
	first, ok := GuessFileType(headers)
	if !ok {
		t.Fatal("expected a type to be inferred")
	}
	if first != VentesJournalieres {
		t.Errorf("inferred %s, want %s", first, VentesJournalieres)
	}
	for i := 0; i < 20; i++ {
		got, ok := GuessFileType(headers)
		if !ok || got != first {
			t.Fatalf("iteration %d: got %s ok=%v, want stable %s", i, got, ok, first)
		}
	}
}

func TestGuessFileType_NoOverlap(t *testing.T) {
	if ft, ok := GuessFileType([]string{"foo", "bar", "baz"}); ok {
		t.Errorf("expected no inference, got %s", ft)
	}
	if _, ok := GuessFileType(nil); ok {
		t.Error("expected no inference for empty headers")
	}
}

func TestGuessFileType_Stock(t *testing.T) {
	headers := []string{"Date", "Produit", "SI", "Réceptions", "Sorties", "Pertes", "Régul", "SF"}
	ft, ok := GuessFileType(headers)
	if !ok || ft != StockJournalier {
		t.Fatalf("got %s ok=%v, want %s", ft, ok, StockJournalier)
	}
}

func TestValidateColumns(t *testing.T) {
	ok, errs := ValidateColumns([]string{"date", "produit", "quantite", "prix_unitaire"}, VentesJournalieres)
	if !ok || len(errs) != 0 {
		t.Fatalf("expected valid, got errs=%v", errs)
	}

	ok, errs = ValidateColumns([]string{"date", "quantite"}, VentesJournalieres)
	if ok {
		t.Fatal("expected invalid")
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if !strings.Contains(errs[0], "produit") {
		t.Errorf("missing-columns error should name produit: %s", errs[0])
	}
	if !strings.Contains(errs[1], "ca OU prix_unitaire") {
		t.Errorf("one-of error should list alternatives: %s", errs[1])
	}
}

func TestValidateAllowedValues(t *testing.T) {
	rows := []map[string]string{
		{"produit": "Super"},
		{"produit": "GASOIL"},
		{"produit": "Pétrole"},
	}
	ok, errs := ValidateAllowedValues(rows, VentesJournalieres, 50)
	if !ok || len(errs) != 0 {
		t.Fatalf("expected valid domain values, got %v", errs)
	}

	rows = append(rows, map[string]string{"produit": "kerosene"})
	ok, errs = ValidateAllowedValues(rows, VentesJournalieres, 50)
	if ok || len(errs) != 1 {
		t.Fatalf("expected one domain error, got ok=%v errs=%v", ok, errs)
	}
	if !strings.Contains(errs[0], "kerosene") || !strings.Contains(errs[0], "Attendu") {
		t.Errorf("unexpected error text: %s", errs[0])
	}
}

func TestValidateAllowedValues_SampleLimit(t *testing.T) {
	rows := []map[string]string{{"produit": "super"}}
	for i := 0; i < 60; i++ {
		rows = append(rows, map[string]string{"produit": "inconnu_hors_sample"})
	}
	// only the first row is sampled
	ok, _ := ValidateAllowedValues(rows, VentesJournalieres, 1)
	if !ok {
		t.Error("rows beyond the sample limit should not be validated")
	}
}

func TestMissingRequired(t *testing.T) {
	missing := MissingRequired([]string{"categorie"}, DepensesMensuelles)
	if len(missing) != 1 || missing[0] != "montant" {
		t.Errorf("MissingRequired = %v, want [montant]", missing)
	}
}

func TestParse(t *testing.T) {
	for _, ft := range All() {
		if _, err := Parse(string(ft)); err != nil {
			t.Errorf("Parse(%s): %v", ft, err)
		}
	}
	if _, err := Parse("type_bidon"); err == nil {
		t.Error("Parse(type_bidon): expected error")
	}
}
