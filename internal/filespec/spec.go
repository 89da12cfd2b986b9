// Package filespec is the static catalogue of recognized spreadsheet types:
// required columns, alternative column groups, field kinds and allowed value
// domains, plus header canonicalization and type inference.
package filespec

import (
	"fmt"
	"sort"
	"strings"
)

// FileType identifies one recognized spreadsheet layout.
type FileType string

const (
	DepensesMensuelles        FileType = "depenses_mensuelles"
	VentesJournalieres        FileType = "ventes_journalieres"
	AchatsJournaliers         FileType = "achats_journaliers"
	SituationClientsMensuelle FileType = "situation_clients_mensuelle"
	MargeProduitsMensuelle    FileType = "marge_produits_mensuelle"
	StockJournalier           FileType = "stock_journalier"
	TransactionsBancaires     FileType = "transactions_bancaires_mensuelles"
	SoldeCaisseMensuelle      FileType = "solde_caisse_mensuelle"
)

// All lists every registered type in declaration order. Type inference
// breaks score ties by this order; it is fixed and stable.
func All() []FileType {
	return []FileType{
		DepensesMensuelles,
		VentesJournalieres,
		AchatsJournaliers,
		SituationClientsMensuelle,
		MargeProduitsMensuelle,
		StockJournalier,
		TransactionsBancaires,
		SoldeCaisseMensuelle,
	}
}

// Parse validates a declared type identifier.
func Parse(s string) (FileType, error) {
	ft := FileType(s)
	if _, ok := registry[ft]; !ok {
		return "", fmt.Errorf("type_fichier inconnu: %q", s)
	}
	return ft, nil
}

// FieldKind is the logical kind used for value coercion at load time.
type FieldKind string

const (
	KindDate   FieldKind = "date"
	KindNumber FieldKind = "number"
	KindText   FieldKind = "text"
)

// Spec describes one file type's columns.
type Spec struct {
	Required []string
	// OneOf lists alternative groups; at least one member of each group
	// must be present.
	OneOf   [][]string
	Kinds   map[string]FieldKind
	Allowed map[string][]string
}

// Products and ExpenseCategories are the enumerated value domains.
var Products = []string{"super", "gasoil", "petrole", "gaz_butane", "lubrifiants", "gaz_bouteille"}

var ExpenseCategories = []string{
	"transport_et_logistique",
	"entretien_equipements",
	"frais_de_personnel",
	"autres_achats",
	"services_exterieures",
	"droit_timbre_enregistrement",
	"manquant_perte_coulage",
}

var registry = map[FileType]Spec{
	DepensesMensuelles: {
		Required: []string{"categorie", "montant"},
		Kinds:    map[string]FieldKind{"categorie": KindText, "montant": KindNumber},
		Allowed:  map[string][]string{"categorie": ExpenseCategories},
	},
	VentesJournalieres: {
		Required: []string{"date", "produit", "quantite"},
		OneOf:    [][]string{{"prix_unitaire", "ca"}},
		Kinds: map[string]FieldKind{
			"date": KindDate, "produit": KindText, "quantite": KindNumber,
			"prix_unitaire": KindNumber, "ca": KindNumber,
		},
		Allowed: map[string][]string{"produit": Products},
	},
	AchatsJournaliers: {
		Required: []string{"date", "produit", "quantite"},
		OneOf:    [][]string{{"cout_unitaire", "cout_total"}},
		Kinds: map[string]FieldKind{
			"date": KindDate, "produit": KindText, "quantite": KindNumber,
			"cout_unitaire": KindNumber, "cout_total": KindNumber,
		},
		Allowed: map[string][]string{"produit": Products},
	},
	SituationClientsMensuelle: {
		Required: []string{"client", "encours_debut", "facture", "regle", "encours_fin"},
		Kinds: map[string]FieldKind{
			"client": KindText, "encours_debut": KindNumber, "facture": KindNumber,
			"regle": KindNumber, "encours_fin": KindNumber,
		},
	},
	MargeProduitsMensuelle: {
		Required: []string{"produit", "ca"},
		OneOf:    [][]string{{"cogs", "marge"}},
		Kinds: map[string]FieldKind{
			"produit": KindText, "ca": KindNumber, "cogs": KindNumber,
			"marge": KindNumber, "marge_pct": KindNumber,
		},
		Allowed: map[string][]string{"produit": Products},
	},
	StockJournalier: {
		Required: []string{
			"date", "produit", "stock_initial", "reception",
			"vente", "pertes", "regul_scdp", "stock_final",
		},
		Kinds: map[string]FieldKind{
			"date": KindDate, "produit": KindText, "stock_initial": KindNumber,
			"reception": KindNumber, "vente": KindNumber, "pertes": KindNumber,
			"regul_scdp": KindNumber, "stock_final": KindNumber,
		},
		Allowed: map[string][]string{"produit": Products},
	},
	TransactionsBancaires: {
		Required: []string{"banque", "solde_debut", "encaissements", "decaissements", "solde_fin"},
		Kinds: map[string]FieldKind{
			"banque": KindText, "solde_debut": KindNumber, "encaissements": KindNumber,
			"decaissements": KindNumber, "solde_fin": KindNumber,
		},
	},
	SoldeCaisseMensuelle: {
		Required: []string{"site", "solde_debut", "encaissements", "decaissements", "solde_fin"},
		Kinds: map[string]FieldKind{
			"site": KindText, "solde_debut": KindNumber, "encaissements": KindNumber,
			"decaissements": KindNumber, "solde_fin": KindNumber,
		},
	},
}

// For returns the spec of a registered type.
func For(ft FileType) Spec { return registry[ft] }

// Kinds returns the field kind map of a type.
func Kinds(ft FileType) map[string]FieldKind { return registry[ft].Kinds }

// ColumnsOfInterest lists the canonical columns shown in previews and kept
// at load time, in display order.
func ColumnsOfInterest(ft FileType) []string {
	switch ft {
	case StockJournalier:
		return []string{"date", "produit", "stock_initial", "reception", "vente", "pertes", "regul_scdp", "stock_final"}
	case VentesJournalieres:
		return []string{"date", "produit", "quantite", "prix_unitaire", "ca"}
	case AchatsJournaliers:
		return []string{"date", "produit", "quantite", "cout_unitaire", "cout_total"}
	case DepensesMensuelles:
		return []string{"categorie", "montant"}
	case MargeProduitsMensuelle:
		return []string{"produit", "ca", "cogs", "marge", "marge_pct"}
	case SituationClientsMensuelle:
		return []string{"client", "encours_debut", "facture", "regle", "encours_fin"}
	case TransactionsBancaires:
		return []string{"banque", "solde_debut", "encaissements", "decaissements", "solde_fin"}
	case SoldeCaisseMensuelle:
		return []string{"site", "solde_debut", "encaissements", "decaissements", "solde_fin"}
	}
	return nil
}

// ValidateColumns checks required columns and alternative groups against
// the canonical header set. Error strings are user-facing (French).
func ValidateColumns(canonical []string, ft FileType) (bool, []string) {
	have := toSet(canonical)
	spec := registry[ft]

	var errs []string
	var missing []string
	for _, c := range spec.Required {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	sort.Strings(missing)
	if len(missing) > 0 {
		errs = append(errs, "Colonnes obligatoires manquantes: "+strings.Join(missing, ", "))
	}
	for _, g := range spec.OneOf {
		if !anyPresent(have, g) {
			alts := append([]string(nil), g...)
			sort.Strings(alts)
			errs = append(errs, "Au moins une des colonnes requises doit être présente: "+strings.Join(alts, " OU "))
		}
	}
	return len(errs) == 0, errs
}

// MissingRequired lists required columns absent from the canonical header set.
func MissingRequired(canonical []string, ft FileType) []string {
	have := toSet(canonical)
	var missing []string
	for _, c := range registry[ft].Required {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	sort.Strings(missing)
	return missing
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

func anyPresent(have map[string]bool, group []string) bool {
	for _, g := range group {
		if have[g] {
			return true
		}
	}
	return false
}

// ValidateAllowedValues checks enumerated-domain columns over a bounded row
// sample, case- and accent-insensitive. Up to 10 distinct invalid values are
// reported per column, plus an overflow count.
func ValidateAllowedValues(rows []map[string]string, ft FileType, sampleLimit int) (bool, []string) {
	allowed := registry[ft].Allowed
	if len(allowed) == 0 || len(rows) == 0 {
		return true, nil
	}
	if sampleLimit > 0 && len(rows) > sampleLimit {
		rows = rows[:sampleLimit]
	}

	cols := make([]string, 0, len(allowed))
	for c := range allowed {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	var errs []string
	for _, col := range cols {
		domain := make(map[string]bool, len(allowed[col]))
		for _, v := range allowed[col] {
			domain[Canonicalize(v)] = true
		}

		invalid := map[string]bool{}
		for _, r := range rows {
			raw, ok := r[col]
			if !ok {
				continue
			}
			v := Canonicalize(raw)
			if v != "" && !domain[v] {
				invalid[raw] = true
			}
		}
		if len(invalid) == 0 {
			continue
		}

		bad := make([]string, 0, len(invalid))
		for v := range invalid {
			bad = append(bad, v)
		}
		sort.Strings(bad)
		more := ""
		if len(bad) > 10 {
			more = fmt.Sprintf(" (+%d autres)", len(bad)-10)
			bad = bad[:10]
		}
		expected := append([]string(nil), allowed[col]...)
		sort.Strings(expected)
		errs = append(errs, fmt.Sprintf("Valeurs non reconnues pour '%s': %s%s. Attendu: %s",
			col, strings.Join(bad, ", "), more, strings.Join(expected, ", ")))
	}
	return len(errs) == 0, errs
}
