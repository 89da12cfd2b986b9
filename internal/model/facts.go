package model

import "time"

// Read-side row shapes handed to the rule engines. The warehouse store
// produces them; the rules consume them without touching the database.

// SalesDay is one product's sold quantity on one date.
type SalesDay struct {
	DateID   int64
	Date     time.Time
	Produit  string
	Quantite float64
}

// CategoryTotal is one expense category's total for a month.
type CategoryTotal struct {
	Categorie string
	Montant   float64
}

// StockDay carries the full daily stock equation for one product.
type StockDay struct {
	DateID       int64
	Date         time.Time
	Produit      string
	StockInitial float64
	Reception    float64
	Vente        float64
	Pertes       float64
	RegulSCDP    float64
	StockFinal   float64
}

// MarginRow is one product's monthly margin snapshot.
type MarginRow struct {
	Produit  string
	CA       float64
	Marge    float64
	MargePct float64
}

// BalanceRow is a monthly treasury ledger line (bank or cash).
type BalanceRow struct {
	Name          string
	SoldeDebut    float64
	Encaissements float64
	Decaissements float64
	SoldeFin      float64
}

// ClientBalance is one client's monthly receivables position.
type ClientBalance struct {
	Client       string
	EncoursDebut float64
	Facture      float64
	Regle        float64
	EncoursFin   float64
}

// CoverageRow feeds the restock recommendation: average daily sold quantity
// (over days with recorded sales) and the most recent reported stock on hand.
type CoverageRow struct {
	Produit       string
	AvgDailySales float64
	LastStockFin  float64
}
