package grading

// Combine applies the late-grading formula. Improvements made between the
// on-time and late runs earn (1 - penalty) credit; regressions earn nothing
// and never remove on-time credit. per-test values use the keys of onTime.
func Combine(onTime, late ExtractedScore, penalty float64) FinalScore {
	final := FinalScore{
		PerTest:        make(map[string]float64, len(onTime.PerTest)),
		TotalAvailable: onTime.TotalAvailable,
	}
	for id, base := range onTime.PerTest {
		final.PerTest[id] = base + lateCredit(base, late.PerTest[id], penalty)
	}
	final.FinalPoints = onTime.TotalAwarded + lateCredit(onTime.TotalAwarded, late.TotalAwarded, penalty)
	final.FinalPercentage = percentage(final.FinalPoints, final.TotalAvailable)
	return final
}

func lateCredit(onTime, late, penalty float64) float64 {
	gain := (late - onTime) * (1 - penalty)
	if gain < 0 {
		return 0
	}
	return gain
}
