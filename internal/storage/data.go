package storage

import "time"

// Persistence

// AuditRow is one record of the crawl's audit CSV: everything observed
// about a single fetched URL. Score fields are rendered with three
// decimal places; TsISO must already be UTC RFC3339 with a "Z" suffix.
type AuditRow struct {
	TsISO             string
	URL               string
	Status            string
	Depth             int
	Bytes             uint64
	Domain            string
	Superdomain       string
	DomainCountBefore int
	SuperCountBefore  int
	PageScore         float64
	SuperScore        float64
	TotalPriority     float64
	PriorityAtPop     float64
}

// NewAuditRow stamps ts as the row's UTC ISO-8601 timestamp.
func NewAuditRow(ts time.Time) AuditRow {
	return AuditRow{TsISO: ts.UTC().Format("2006-01-02T15:04:05Z")}
}
