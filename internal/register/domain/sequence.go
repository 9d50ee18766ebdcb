package register

import (
	"fmt"
	"sort"
	"time"
)

// SequenceError reports a corrupted day numbering. It is a defect signal,
// distinct from any business discrepancy.
type SequenceError struct {
	Day        time.Time
	Duplicates []int
	Gaps       []int
	Unnumbered int
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("register: corrupted sequence for %s: duplicates=%v gaps=%v unnumbered=%d",
		e.Day.Format("2006-01-02"), e.Duplicates, e.Gaps, e.Unnumbered)
}

// CheckSequence verifies that the non-cancelled regular consultations of a
// day hold exactly the numbers {1..N}. Returns a *SequenceError otherwise.
func CheckSequence(dayStart time.Time, consultations []*Consultation) error {
	seen := make(map[int]int)
	unnumbered := 0
	n := 0
	for _, c := range consultations {
		if c == nil || c.IsCancelled() || c.Category() != CategoryRegular {
			continue
		}
		n++
		seq, ok := c.SequenceNumber()
		if !ok {
			unnumbered++
			continue
		}
		seen[seq]++
	}

	var duplicates []int
	for seq, count := range seen {
		if count > 1 {
			duplicates = append(duplicates, seq)
		}
	}
	var gaps []int
	for expect := 1; expect <= n; expect++ {
		if seen[expect] == 0 {
			gaps = append(gaps, expect)
		}
	}
	if len(duplicates) == 0 && len(gaps) == 0 && unnumbered == 0 {
		return nil
	}
	sort.Ints(duplicates)
	sort.Ints(gaps)
	return &SequenceError{Day: Day(dayStart), Duplicates: duplicates, Gaps: gaps, Unnumbered: unnumbered}
}
