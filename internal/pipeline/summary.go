package pipeline

import "time"

// Summary is the outcome of one source invocation: what was extracted,
// what was admitted past the dedup index, what was durably written, and
// what fell out along the way and why.
type Summary struct {
	Source string `json:"source"`

	// Extracted counts raw records produced by the extractor
	Extracted int `json:"extracted"`
	// Admitted counts rows that passed dedup and reached the writer
	Admitted int `json:"admitted"`
	// Written counts rows durably upserted into the warehouse
	Written int `json:"written"`
	// Duplicates counts rows rejected by the dedup index
	Duplicates int `json:"duplicates"`
	// Artifacts counts object-store uploads for row artifacts
	Artifacts int `json:"artifacts"`
	// Skipped maps drop reasons to counts for malformed records
	Skipped map[string]int `json:"skipped"`
	// FetchErrors counts pages or results lost to exhausted retries
	FetchErrors int `json:"fetch_errors"`

	Duration time.Duration `json:"duration"`
}

// SkippedTotal returns the total number of dropped records.
func (s *Summary) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

func newSummary(source string) *Summary {
	return &Summary{
		Source:  source,
		Skipped: make(map[string]int),
	}
}
