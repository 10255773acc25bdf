package triage

import "sort"

// SortForDisplay returns a copy of vs ordered by urgency score, highest
// first, then by arrival. Equal keys keep their input order; vs itself is
// left untouched so the stored log order survives.
func SortForDisplay(vs []*Verdict) []*Verdict {
	return OrderForDisplay(vs, func(v *Verdict) *Verdict { return v })
}

// OrderForDisplay applies the display ordering to any record that carries a
// verdict.
func OrderForDisplay[T any](items []T, verdictOf func(T) *Verdict) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := verdictOf(out[i]), verdictOf(out[j])
		if a.UrgencyScore != b.UrgencyScore {
			return a.UrgencyScore > b.UrgencyScore
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}
