package pattern

// Warnings lists students whose results could not be computed.
type Warnings struct {
	Label string        `json:"label"`
	Items []WarningItem `json:"items"`
}

// WarningItem is one failed student.
type WarningItem struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`    // error kind, e.g. "no completed run"
	Message string `json:"message"` // full reason without the student prefix
}

func (w *Warnings) Type() PatternType { return PatternTypeWarnings }
