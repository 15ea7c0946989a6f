package pattern

// TestTable lists every graded test with its pass rate across students.
type TestTable struct {
	Label   string          `json:"label"`
	Results []TestTableItem `json:"results"`
}

// Test statuses.
const (
	StatusPass  = "pass"  // every graded student passed
	StatusFail  = "fail"  // nobody passed
	StatusMixed = "mixed" // some passed
	StatusNone  = "none"  // no graded students
)

// TestTableItem is one test definition's outcome.
type TestTableItem struct {
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Passed   int     `json:"passed"`
	Graded   int     `json:"graded"`
	PassRate float64 `json:"pass_rate"` // percentage
	Points   string  `json:"points"`    // formatted max score
}

func (t *TestTable) Type() PatternType { return PatternTypeTestTable }
