package pattern

// Summary is the headline of a grading run.
type Summary struct {
	Label   string        `json:"label"`
	Scope   string        `json:"scope"` // e.g. "hw-1, latest run, 42 students"
	Metrics []SummaryItem `json:"metrics"`
}

// SummaryItem is a single metric in a summary.
type SummaryItem struct {
	Label string `json:"label"` // e.g. "Average", "Errors"
	Value string `json:"value"` // formatted value
	Kind  string `json:"kind"`  // KindSuccess, KindError, KindWarning or KindInfo
}

func (s *Summary) Type() PatternType { return PatternTypeSummary }
