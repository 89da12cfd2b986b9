package warehouse

import (
	"database/sql"
	"fmt"

	"LedgerSentinel/internal/model"
)

// Anomaly and alert persistence plus the alert lifecycle.

// InsertAnomaly persists one anomaly candidate, stamping its creation time.
func (t *Tx) InsertAnomaly(a *model.Anomaly) error {
	a.CreatedAt = t.now()
	res, err := t.tx.Exec(
		`INSERT INTO anomalies
			(created_at, type, severity, object_type, object_name, date_id, month_id,
			 metric, value, threshold, message, fichier_id)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.CreatedAt.Unix(), string(a.Type), string(a.Severity),
		a.ObjectType, a.ObjectName, nullID(a.DateID), nullID(a.MonthID),
		a.Metric, a.Value, a.Threshold, a.Message, nullID(a.FichierID),
	)
	if err != nil {
		return fmt.Errorf("insert anomaly: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

// InsertAlert persists one alert, stamping its creation time. Status
// defaults to open.
func (t *Tx) InsertAlert(a *model.Alert) error {
	a.CreatedAt = t.now()
	if a.Status == "" {
		a.Status = model.AlertOpen
	}
	res, err := t.tx.Exec(
		`INSERT INTO alerts
			(created_at, severity, status, audience, title, body, month_id,
			 entity_type, entity_name, source_rule)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		a.CreatedAt.Unix(), string(a.Severity), string(a.Status), string(a.Audience),
		a.Title, a.Body, nullID(a.MonthID), a.EntityType, a.EntityName, a.SourceRule,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// UpdateAlertStatus applies a lifecycle transition (open->ack, open->closed,
// ack->closed). Any other transition is rejected.
func (s *Store) UpdateAlertStatus(id int64, to model.AlertStatus) error {
	return s.WithTx(func(t *Tx) error {
		var cur string
		err := t.tx.QueryRow(`SELECT status FROM alerts WHERE id = ?`, id).Scan(&cur)
		if err == sql.ErrNoRows {
			return fmt.Errorf("alerte %d introuvable", id)
		}
		if err != nil {
			return fmt.Errorf("lookup alert %d: %w", id, err)
		}
		from := model.AlertStatus(cur)
		if !from.CanTransition(to) {
			return fmt.Errorf("transition d'alerte invalide: %s -> %s", from, to)
		}
		if _, err := t.tx.Exec(`UPDATE alerts SET status = ? WHERE id = ?`, string(to), id); err != nil {
			return fmt.Errorf("update alert %d: %w", id, err)
		}
		return nil
	})
}

// AnomaliesForMonth returns anomalies scoped to the month (directly or via a
// date in the month), ordered by severity (critical first) then insertion
// recency descending, truncated to limit.
func (s *Store) AnomaliesForMonth(monthID int64, year, month, limit int) ([]model.Anomaly, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.created_at, a.type, a.severity,
		        COALESCE(a.object_type, ''), COALESCE(a.object_name, ''),
		        COALESCE(a.date_id, 0), COALESCE(a.month_id, 0),
		        COALESCE(a.metric, ''), COALESCE(a.value, 0), COALESCE(a.threshold, 0),
		        a.message, COALESCE(a.fichier_id, 0)
		 FROM anomalies a
		 LEFT JOIN dim_date d ON a.date_id = d.id
		 WHERE a.month_id = ? OR (d.year = ? AND d.month = ?)
		 ORDER BY CASE a.severity
		            WHEN 'critical' THEN 0
		            WHEN 'warning' THEN 1
		            ELSE 2
		          END,
		          a.id DESC
		 LIMIT ?`,
		monthID, year, month, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("anomalies for month: %w", err)
	}
	defer rows.Close()

	var out []model.Anomaly
	for rows.Next() {
		var a model.Anomaly
		var created int64
		var typ, sev string
		if err := rows.Scan(&a.ID, &created, &typ, &sev,
			&a.ObjectType, &a.ObjectName, &a.DateID, &a.MonthID,
			&a.Metric, &a.Value, &a.Threshold, &a.Message, &a.FichierID); err != nil {
			return nil, err
		}
		a.CreatedAt = unixTime(created)
		a.Type = model.AnomalyType(typ)
		a.Severity = model.Severity(sev)
		out = append(out, a)
	}
	return out, rows.Err()
}

// AlertsForMonth lists the month's alerts, newest first.
func (s *Store) AlertsForMonth(monthID int64) ([]model.Alert, error) {
	rows, err := s.db.Query(
		`SELECT id, created_at, severity, status, audience, title,
		        COALESCE(body, ''), COALESCE(month_id, 0),
		        COALESCE(entity_type, ''), COALESCE(entity_name, ''),
		        COALESCE(source_rule, '')
		 FROM alerts WHERE month_id = ? ORDER BY id DESC`,
		monthID,
	)
	if err != nil {
		return nil, fmt.Errorf("alerts for month: %w", err)
	}
	defer rows.Close()

	var out []model.Alert
	for rows.Next() {
		var a model.Alert
		var created int64
		var sev, status, aud string
		if err := rows.Scan(&a.ID, &created, &sev, &status, &aud, &a.Title,
			&a.Body, &a.MonthID, &a.EntityType, &a.EntityName, &a.SourceRule); err != nil {
			return nil, err
		}
		a.CreatedAt = unixTime(created)
		a.Severity = model.Severity(sev)
		a.Status = model.AlertStatus(status)
		a.Audience = model.Audience(aud)
		out = append(out, a)
	}
	return out, rows.Err()
}
