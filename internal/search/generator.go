package search

import (
	"fmt"

	"github.com/antonlukisha/md5-cracker/internal/config"
)

// Generate is the inverse of Partition's indexing scheme: given a global
// index in [0, TotalCombinations(maxLength)), it produces the
// corresponding candidate string. Indices [0, 36) enumerate length-1
// strings in alphabet order, [36, 36+36^2) enumerate length-2 strings,
// and so on.
func Generate(index uint64, maxLength int) (string, error) {
	length := 1
	var totalPrev uint64
	var power uint64 = AlphabetSize

	for length <= maxLength {
		if index < totalPrev+power {
			break
		}
		totalPrev += power
		length++
		power *= AlphabetSize
	}

	if length > maxLength {
		return "", fmt.Errorf("search: index %d exceeds maximum combinations for length %d", index, maxLength)
	}

	remainder := index - totalPrev

	digits := make([]byte, length)
	for i := 0; i < length; i++ {
		charIndex := remainder % AlphabetSize
		remainder /= AlphabetSize
		digits[length-1-i] = config.Alphabet[charIndex]
	}

	return string(digits), nil
}

// Each iterates the candidate strings for [r.Start, r.Start+r.Count) over
// maxLength, calling fn for each. It stops and returns the first error
// fn or Generate produces.
func (r Range) Each(maxLength int, fn func(index uint64, candidate string) error) error {
	for i := uint64(0); i < r.Count; i++ {
		index := r.Start + i
		candidate, err := Generate(index, maxLength)
		if err != nil {
			return err
		}
		if err := fn(index, candidate); err != nil {
			return err
		}
	}
	return nil
}
