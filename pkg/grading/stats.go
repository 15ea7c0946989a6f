package grading

import "sort"

// Stats summarises a result set. Students with errors are counted but
// excluded from the average and median.
type Stats struct {
	TotalStudents     int
	TotalTests        int
	StudentsProcessed int
	Errors            int
	AverageScore      float64 // percentage
	MedianScore       float64 // percentage
}

// ComputeStats calculates Stats over results for an assignment with the
// given number of test definitions.
func ComputeStats(results []StudentResult, totalTests int) Stats {
	stats := Stats{TotalStudents: len(results), TotalTests: totalTests}

	scores := make([]float64, 0, len(results))
	for _, r := range results {
		pct, ok := r.Percentage()
		if !ok {
			stats.Errors++
			continue
		}
		scores = append(scores, pct)
	}
	stats.StudentsProcessed = len(scores)
	if len(scores) == 0 {
		return stats
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	stats.AverageScore = sum / float64(len(scores))

	sort.Float64s(scores)
	mid := len(scores) / 2
	if len(scores)%2 == 0 {
		stats.MedianScore = (scores[mid-1] + scores[mid]) / 2
	} else {
		stats.MedianScore = scores[mid]
	}
	return stats
}
