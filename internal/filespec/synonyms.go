package filespec

// commonSynonyms maps canonical tokens seen in the wild to the one canonical
// field name each spec uses. Type-specific tables override these.
var commonSynonyms = map[string]string{
	// general
	"dates":         "date",
	"jour":          "date",
	"journee":       "date",
	"produits":      "produit",
	"article":       "produit",
	"articles":      "produit",
	"client":        "client",
	"clients":       "client",
	"banque":        "banque",
	"banques":       "banque",
	"site":          "site",
	"point_de_vente": "site",
	"pdv":           "site",
	"caisse":        "site",

	// quantities / amounts
	"quantite":           "quantite",
	"quantites":          "quantite",
	"qte":                "quantite",
	"qt":                 "quantite",
	"prix":               "prix_unitaire",
	"prixu":              "prix_unitaire",
	"prix_unitaire_fcfa": "prix_unitaire",
	"prix_unt":           "prix_unitaire",
	"montant":            "montant",
	"montants":           "montant",
	"total":              "ca",
	"recette":            "ca",
	"chiffre_affaires":   "ca",
	"chiffre_d_affaires": "ca",
	"ca_total":           "ca",
	"cout_unitaire":      "cout_unitaire",
	"cout_unit":          "cout_unitaire",
	"cump":               "cout_unitaire",
	"cout_total":         "cout_total",
	"cout":               "cout_total",

	// stock
	"si":         "stock_initial",
	"stock_init": "stock_initial",
	"initial":    "stock_initial",
	"entree":     "reception",
	"entrees":    "reception",
	"receptions": "reception",
	"sortie":     "vente",
	"sorties":    "vente",
	"ventes":     "vente",
	"perte":      "pertes",
	"ajustement": "regul_scdp",
	"ajustements": "regul_scdp",
	"regul":      "regul_scdp",
	"sf":         "stock_final",
	"stock_fin":  "stock_final",

	// bank / cash
	"solde_debut":   "solde_debut",
	"solde_initial": "solde_debut",
	"solde_fin":     "solde_fin",
	"encaissement":  "encaissements",
	"credits":       "encaissements",
	"credit":        "encaissements",
	"debit":         "decaissements",
	"debits":        "decaissements",
	"decaissement":  "decaissements",

	// clients
	"solde_client_debut": "encours_debut",
	"encours_debut_mois": "encours_debut",
	"factures":           "facture",
	"facturation":        "facture",
	"reglement":          "regle",
	"reglements":         "regle",
	"paiement":           "regle",
	"paiements":          "regle",

	// margin
	"cout_revient":  "cogs",
	"cogs":          "cogs",
	"marge_pourcent": "marge_pct",
}

var typeSynonyms = map[FileType]map[string]string{
	VentesJournalieres: {
		"chiffre_affaire": "ca",
		"ventes_total":    "ca",
	},
	AchatsJournaliers: {
		"cout":       "cout_total",
		"prix_achat": "cout_unitaire",
	},
	StockJournalier: {
		"ajust":          "regul_scdp",
		"regularisation": "regul_scdp",
	},
	DepensesMensuelles: {
		"categorie_depense": "categorie",
		"rubrique":          "categorie",
		"libelle":           "categorie",
		"montant_fcfa":      "montant",
	},
	MargeProduitsMensuelle: {
		"marge_percent": "marge_pct",
	},
}

// ResolveField canonicalizes a raw header and resolves synonyms:
// type-specific first, then global, then identity.
func ResolveField(raw string, ft FileType) string {
	can := Canonicalize(raw)
	if m, ok := typeSynonyms[ft]; ok {
		if v, ok := m[can]; ok {
			return v
		}
	}
	if v, ok := commonSynonyms[can]; ok {
		return v
	}
	return can
}

// NormalizeHeaders maps every raw header to its canonical field name for
// the given type.
func NormalizeHeaders(headers []string, ft FileType) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h] = ResolveField(h, ft)
	}
	return out
}
