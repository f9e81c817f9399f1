package domain

// AlertRecord is the per-pair memory of alerting for one profile.
// Owned exclusively by the alert state tracker; mutated only on record.
type AlertRecord struct {
	Profile     string
	Pair        PairID
	LastAlertAt int64 // Unix timestamp in milliseconds
	LastScore   float64
	AlertCount  int
	UpdatedAt   int64 // Unix timestamp in milliseconds
}

// AlertEvent is a finalized alert handed to the alert sink.
type AlertEvent struct {
	Pair      PairID      `json:"pair"`
	Profile   string      `json:"profile"`
	Snapshot  *Snapshot   `json:"snapshot"`
	Score     ScoreResult `json:"score"`
	Timestamp int64       `json:"timestamp"` // Unix timestamp in milliseconds
}
