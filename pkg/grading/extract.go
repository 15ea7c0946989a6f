package grading

// StepIndex resolves step ids and step display names to definitions. Build
// it once per invocation and share it read-only.
type StepIndex struct {
	defs   []TestDefinition
	byID   map[string]int
	byName map[string]string
}

// NewStepIndex indexes defs by step id and by display name.
func NewStepIndex(defs []TestDefinition) *StepIndex {
	idx := &StepIndex{
		defs:   defs,
		byID:   make(map[string]int, len(defs)),
		byName: make(map[string]string, len(defs)),
	}
	for i, d := range defs {
		if _, dup := idx.byID[d.StepID]; !dup {
			idx.byID[d.StepID] = i
		}
		if _, dup := idx.byName[d.Name]; !dup {
			idx.byName[d.Name] = d.StepID
		}
	}
	return idx
}

// StepIDForName returns the step id declared for a step display name.
// The CI provider reports job steps by display name only.
func (x *StepIndex) StepIDForName(name string) (string, bool) {
	id, ok := x.byName[name]
	return id, ok
}

// TotalAvailable is the sum of MaxScore over all definitions.
func (x *StepIndex) TotalAvailable() float64 {
	var total float64
	for _, d := range x.defs {
		total += d.MaxScore
	}
	return total
}

// Extract scores run against the indexed definitions. A definition with no
// matching step scores 0; duplicate step ids resolve to the first step.
func (x *StepIndex) Extract(run WorkflowRun) ExtractedScore {
	conclusions := make(map[string]Conclusion, len(run.Steps))
	for _, step := range run.Steps {
		if _, seen := conclusions[step.StepID]; seen {
			continue
		}
		conclusions[step.StepID] = step.Conclusion
	}

	score := ExtractedScore{
		PerTest:        make(map[string]float64, len(x.defs)),
		TotalAvailable: x.TotalAvailable(),
		RunTimestamp:   run.Timestamp,
	}
	for _, d := range x.defs {
		var awarded float64
		if conclusions[d.StepID] == ConclusionSuccess {
			awarded = d.MaxScore
		}
		score.PerTest[d.StepID] = awarded
		score.TotalAwarded += awarded
	}
	return score
}

// Extract scores run against defs. Callers scoring many runs should build a
// StepIndex once instead.
func Extract(run WorkflowRun, defs []TestDefinition) ExtractedScore {
	return NewStepIndex(defs).Extract(run)
}
