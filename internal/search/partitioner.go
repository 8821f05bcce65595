// Package search implements the pure combinatorics shared by the manager's
// partitioner and the worker's candidate generator: mapping a maximum
// candidate length to a total combination count, slicing that count into
// fixed-size ranges, and mapping a global index back to a candidate
// string.
package search

import "fmt"

// AlphabetSize is the number of symbols in the fixed candidate alphabet
// ('a'..'z', '0'..'9').
const AlphabetSize = 36

// Range is one contiguous, half-open slice [Start, Start+Count) of the
// global index space.
type Range struct {
	Start uint64
	Count uint64
}

// TotalCombinations returns Σ_{L=1..maxLength} AlphabetSize^L, the number
// of non-empty strings of length at most maxLength over the alphabet.
func TotalCombinations(maxLength int) uint64 {
	var total uint64
	var power uint64 = 1
	for length := 1; length <= maxLength; length++ {
		power *= AlphabetSize
		total += power
	}
	return total
}

// Partition slices TotalCombinations(maxLength) into contiguous ranges of
// size taskSize, the last one possibly shorter. It is pure, deterministic
// and total over its valid domain: taskSize must be positive.
func Partition(maxLength int, taskSize uint64) ([]Range, error) {
	if taskSize == 0 {
		return nil, fmt.Errorf("search: taskSize must be positive, got %d", taskSize)
	}

	total := TotalCombinations(maxLength)
	ranges := make([]Range, 0, total/taskSize+1)

	for start := uint64(0); start < total; start += taskSize {
		count := taskSize
		if remaining := total - start; remaining < count {
			count = remaining
		}
		ranges = append(ranges, Range{Start: start, Count: count})
	}

	return ranges, nil
}
