package survival

import (
	"errors"
	"fmt"
)

// ErrNoAdmissiblePairs is returned when no pair of rows can be ordered,
// for instance when every row is censored.
var ErrNoAdmissiblePairs = errors.New("no admissible pairs in the data")

// ConcordanceIndex computes Harrell's C. Scores follow the survival
// convention: a larger score predicts a longer time. A pair (i, j) is
// admissible when i has an event and j is still at risk after it, that is
// time[j] > time[i], or time[j] == time[i] with j censored. Tied scores
// count one half.
func ConcordanceIndex(time, score, status []float64) (float64, error) {
	n := len(time)
	if len(score) != n || len(status) != n {
		return 0, fmt.Errorf("length mismatch: %d times, %d scores, %d statuses", n, len(score), len(status))
	}

	var num, den float64
	for i := 0; i < n; i++ {
		if status[i] != 1 {
			continue
		}
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			if time[j] < time[i] || (time[j] == time[i] && status[j] == 1) {
				continue
			}
			den++
			switch {
			case score[i] < score[j]:
				num++
			case score[i] == score[j]:
				num += 0.5
			}
		}
	}

	if den == 0 {
		return 0, ErrNoAdmissiblePairs
	}
	return num / den, nil
}
