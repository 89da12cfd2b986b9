package model

import "time"

// Severity classifies how serious an anomaly or alert is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for sorting: critical first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Label returns the French display label used in summaries.
func (s Severity) Label() string {
	switch s {
	case SeverityCritical:
		return "CRITIQUE"
	case SeverityWarning:
		return "Avertissement"
	default:
		return "Info"
	}
}

// AnomalyType names the rule family that produced an anomaly.
type AnomalyType string

const (
	AnomalyVentes   AnomalyType = "ventes"
	AnomalyAchats   AnomalyType = "achats"
	AnomalyStock    AnomalyType = "stock"
	AnomalyDepenses AnomalyType = "depenses"
	AnomalyMarge    AnomalyType = "marge"
	AnomalyBanque   AnomalyType = "banque"
	AnomalyCaisse   AnomalyType = "caisse"
	AnomalyClients  AnomalyType = "clients"
)

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertOpen   AlertStatus = "open"
	AlertAck    AlertStatus = "ack"
	AlertClosed AlertStatus = "closed"
)

// CanTransition reports whether an alert may move from one status to another.
// Closed is terminal.
func (s AlertStatus) CanTransition(to AlertStatus) bool {
	switch s {
	case AlertOpen:
		return to == AlertAck || to == AlertClosed
	case AlertAck:
		return to == AlertClosed
	default:
		return false
	}
}

// Audience targets an alert at the accountant, management, or both.
type Audience string

const (
	AudienceComptable Audience = "comptable"
	AudienceDG        Audience = "dg"
	AudienceBoth      Audience = "both"
)

// Anomaly is one statistically or arithmetically detected irregularity.
// DateID / MonthID / FichierID use 0 for "not scoped".
type Anomaly struct {
	ID        int64
	CreatedAt time.Time

	Type     AnomalyType
	Severity Severity

	ObjectType string
	ObjectName string

	DateID  int64
	MonthID int64

	Metric    string
	Value     float64
	Threshold float64

	Message string

	FichierID int64
}

// Alert is a persisted, audience-targeted notification.
type Alert struct {
	ID        int64
	CreatedAt time.Time

	Severity Severity
	Status   AlertStatus
	Audience Audience

	Title string
	Body  string

	MonthID    int64
	EntityType string
	EntityName string

	SourceRule string
}

// Artifact is one uploaded tabular file and its metadata.
type Artifact struct {
	ID         int64
	Filename   string
	StoredName string
	UploadedBy string
	UploadDate time.Time
	Type       string // file type identifier, e.g. "ventes_journalieres"
	Mois       string // canonical French month name
	Annee      int
	FileHash   string // SHA-256 of the raw content
}
