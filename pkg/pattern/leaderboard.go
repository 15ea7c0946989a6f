package pattern

// Leaderboard ranks students by score.
type Leaderboard struct {
	Label      string            `json:"label"`
	MetricName string            `json:"metric_name"`
	Items      []LeaderboardItem `json:"items"`
	Direction  string            `json:"direction"`   // "highest" or "lowest"
	TotalCount int               `json:"total_count"` // total before truncation
	ShowRank   bool              `json:"show_rank"`
}

// LeaderboardItem is a single ranked entry.
type LeaderboardItem struct {
	Name    string  `json:"name"`
	Metric  string  `json:"metric"` // formatted value, e.g. "42.50%"
	Value   float64 `json:"value"`
	Rank    int     `json:"rank"`
	Context string  `json:"context,omitempty"` // e.g. relative run time
}

func (l *Leaderboard) Type() PatternType { return PatternTypeLeaderboard }
