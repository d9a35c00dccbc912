package missions

// Verdict maps a final score to the tier shown on the scorecard.
func Verdict(score float64) string {
	switch {
	case score >= 9:
		return "Grandmaster of the Galley!"
	case score >= 7.5:
		return "A Master of Shadows."
	case score >= 5:
		return "Acceptable Fate. But finish your greens."
	default:
		return "Disgraceful. The Buffet Gods are displeased."
	}
}
