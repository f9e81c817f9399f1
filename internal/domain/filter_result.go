package domain

// FilterResult is the outcome of running the filter chain on a snapshot.
// On failure FailedStage names the first failing stage (the chain
// short-circuits, so later stages are never evaluated).
type FilterResult struct {
	Pass        bool
	FailedStage string
}

// Passed is the result of a fully passing chain.
func Passed() FilterResult {
	return FilterResult{Pass: true}
}

// FailedAt marks a rejection at the named stage.
func FailedAt(stage string) FilterResult {
	return FilterResult{Pass: false, FailedStage: stage}
}
