package pattern

// Sparkline is a word-sized histogram drawn with Unicode blocks.
type Sparkline struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
	Legend string    `json:"legend"` // e.g. "0% .. 100%"
}

func (s *Sparkline) Type() PatternType { return PatternTypeSparkline }
