package calculator

// Streaks returns the longest run of true values and the longest run of
// false values in seq.
func Streaks(seq []bool) (maxTrue, maxFalse int) {
	run := 0
	for i, v := range seq {
		if i > 0 && v == seq[i-1] {
			run++
		} else {
			run = 1
		}
		if v && run > maxTrue {
			maxTrue = run
		}
		if !v && run > maxFalse {
			maxFalse = run
		}
	}
	return maxTrue, maxFalse
}
