// Package scheduler runs the periodic load-and-analyze pass in watch mode.
// The core pipeline itself stays synchronous; this is the external trigger.
package scheduler

import (
	"fmt"
	"log"
	"time"

	"LedgerSentinel/internal/analysis"
	"LedgerSentinel/internal/filespec"
	"LedgerSentinel/internal/load"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the analysis cron task.
type Scheduler struct {
	Cron         *cron.Cron
	Loader       *load.Loader
	Orchestrator *analysis.Orchestrator

	now func() time.Time
}

// NewScheduler creates a Scheduler around the loader and orchestrator.
func NewScheduler(loader *load.Loader, orch *analysis.Orchestrator) *Scheduler {
	return &Scheduler{
		Cron:         cron.New(),
		Loader:       loader,
		Orchestrator: orch,
		now:          time.Now,
	}
}

// Register adds the periodic task under the given cron expression.
func (s *Scheduler) Register(cronExpr string) error {
	if _, err := s.Cron.AddFunc(cronExpr, s.analysisTask); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the analysis task immediately (manual trigger).
func (s *Scheduler) RunNow() {
	s.analysisTask()
}

// analysisTask reloads and re-analyzes the current calendar period. Tasks
// never overlap for the same period because cron runs them sequentially.
func (s *Scheduler) analysisTask() {
	t := s.now()
	mois, err := filespec.MonthName(int(t.Month()))
	if err != nil {
		log.Printf("[ERROR] analysis task: %v", err)
		return
	}
	annee := t.Year()

	summary, err := s.Loader.LoadMonth(annee, mois, "")
	if err != nil {
		log.Printf("[ERROR] load %s/%d: %v", mois, annee, err)
		return
	}
	for _, e := range summary.Errors {
		log.Printf("[WARN] load: %s", e)
	}

	res, err := s.Orchestrator.Run(annee, mois)
	if err != nil {
		log.Printf("[ERROR] analysis %s/%d: %v", mois, annee, err)
		return
	}
	log.Printf("[INFO] scheduled analysis done: %d anomalies (%d critiques)", res.Inserted, res.Critical)
}
