package testing

import "time"

// NonIncreasing reports whether every timestamp is not after the previous one
func NonIncreasing(ts []time.Time) bool {
	for i := 1; i < len(ts); i++ {
		if ts[i].After(ts[i-1]) {
			return false
		}
	}
	return true
}

// StrictlyDecreasing reports whether every timestamp is before the previous one
func StrictlyDecreasing(ts []time.Time) bool {
	for i := 1; i < len(ts); i++ {
		if !ts[i].Before(ts[i-1]) {
			return false
		}
	}
	return true
}

// Sorted reports whether ss is in byte order, descending when desc is set
func Sorted(ss []string, desc bool) bool {
	for i := 1; i < len(ss); i++ {
		if desc && ss[i] > ss[i-1] {
			return false
		}
		if !desc && ss[i] < ss[i-1] {
			return false
		}
	}
	return true
}
