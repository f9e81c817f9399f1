package domain

// Category is a coarse classification of a score.
type Category string

// Score categories: fixed cut points on the final score.
const (
	CategoryHighConfidence Category = "high-confidence" // score >= 80
	CategoryPromising      Category = "promising"       // score >= 55
	CategorySpeculative    Category = "speculative"
)

// ScoreResult is the scorer's output for one snapshot: a bounded score,
// the per-feature contributions and a coarse category.
type ScoreResult struct {
	Score    float64 // 0-100
	Features map[string]float64
	Category Category
}

// CategoryFor maps a final score to its category.
func CategoryFor(score float64) Category {
	switch {
	case score >= 80:
		return CategoryHighConfidence
	case score >= 55:
		return CategoryPromising
	default:
		return CategorySpeculative
	}
}
