package pattern

// Comparison shows before/after deltas, such as on-time versus final scores.
type Comparison struct {
	Label   string           `json:"label"`
	Changes []ComparisonItem `json:"changes"`
}

// ComparisonItem is a single before/after delta.
type ComparisonItem struct {
	Label  string  `json:"label"`
	Before string  `json:"before"`
	After  string  `json:"after"`
	Change float64 `json:"change"`
	Unit   string  `json:"unit"`
}

func (c *Comparison) Type() PatternType { return PatternTypeComparison }
