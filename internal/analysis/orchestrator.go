// Package analysis runs the full rule pass for a period and composes the
// monthly summary.
package analysis

import (
	"fmt"
	"log"
	"sort"

	"LedgerSentinel/internal/config"
	"LedgerSentinel/internal/filespec"
	"LedgerSentinel/internal/model"
	"LedgerSentinel/internal/rules"
	"LedgerSentinel/internal/warehouse"
)

// Orchestrator persists what the rule engines produce.
type Orchestrator struct {
	Store  *warehouse.Store
	Engine *rules.Engine
}

// NewOrchestrator wires the store and a rule engine with the given thresholds.
func NewOrchestrator(store *warehouse.Store, th config.Thresholds) *Orchestrator {
	return &Orchestrator{Store: store, Engine: rules.NewEngine(store, th)}
}

// Result reports what one analysis run inserted.
type Result struct {
	OK       bool           `json:"ok"`
	Inserted int            `json:"inserted_anomalies"`
	Critical int            `json:"critical"`
	ByRule   map[string]int `json:"by_rule"`
}

// Run executes all anomaly and alert rules for the period and persists their
// output plus the synthesis banners in one transaction. Either everything
// commits or nothing does.
func (o *Orchestrator) Run(annee int, mois string) (*Result, error) {
	month, err := filespec.MonthNumber(mois)
	if err != nil {
		return nil, err
	}

	// The month row must exist before the engines scope queries to it.
	var monthID int64
	err = o.Store.WithTx(func(t *warehouse.Tx) error {
		monthID, err = t.EnsureMonth(annee, month)
		return err
	})
	if err != nil {
		return nil, err
	}

	buckets, err := o.Engine.Anomalies(annee, month, monthID)
	if err != nil {
		return nil, err
	}
	alerts, err := o.Engine.Alerts(annee, month, monthID)
	if err != nil {
		return nil, err
	}

	res := &Result{OK: true, ByRule: map[string]int{}}
	for family, list := range buckets {
		res.ByRule[family] = len(list)
		res.Inserted += len(list)
		for _, a := range list {
			if a.Severity == model.SeverityCritical {
				res.Critical++
			}
		}
	}

	err = o.Store.WithTx(func(t *warehouse.Tx) error {
		// Stable family order keeps insertion ids deterministic.
		families := make([]string, 0, len(buckets))
		for f := range buckets {
			families = append(families, f)
		}
		sort.Strings(families)
		for _, f := range families {
			for i := range buckets[f] {
				if err := t.InsertAnomaly(&buckets[f][i]); err != nil {
					return err
				}
			}
		}
		for i := range alerts {
			if err := t.InsertAlert(&alerts[i]); err != nil {
				return err
			}
		}

		if res.Inserted > 0 {
			banner := model.Alert{
				Severity:   model.SeverityWarning,
				Status:     model.AlertOpen,
				Audience:   model.AudienceBoth,
				Title:      fmt.Sprintf("Anomalies détectées pour %s %d", mois, annee),
				Body:       fmt.Sprintf("%d signalements au total ce mois.", res.Inserted),
				MonthID:    monthID,
				EntityType: "global",
				SourceRule: rules.RuleSummary,
			}
			if err := t.InsertAlert(&banner); err != nil {
				return err
			}
		}
		if res.Critical > 0 {
			banner := model.Alert{
				Severity:   model.SeverityCritical,
				Status:     model.AlertOpen,
				Audience:   model.AudienceDG,
				Title:      fmt.Sprintf("%d anomalies CRITIQUES", res.Critical),
				Body:       "Priorité : écarts de stock, réconciliations, pics de ventes.",
				MonthID:    monthID,
				EntityType: "global",
				SourceRule: rules.RuleCriticalSummary,
			}
			if err := t.InsertAlert(&banner); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] analysis %s/%d: %d anomalies (%d critiques), %d alertes",
		mois, annee, res.Inserted, res.Critical, len(alerts))
	return res, nil
}
