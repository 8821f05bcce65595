package search

import "testing"

func TestTotalCombinations(t *testing.T) {
	cases := []struct {
		maxLength int
		want      uint64
	}{
		{1, 36},
		{2, 36 + 36*36},
	}
	for _, c := range cases {
		if got := TotalCombinations(c.maxLength); got != c.want {
			t.Errorf("TotalCombinations(%d) = %d, want %d", c.maxLength, got, c.want)
		}
	}
}

func TestPartitionCoverage(t *testing.T) {
	for maxLength := 1; maxLength <= 8; maxLength++ {
		for _, taskSize := range []uint64{1, 7, 100, 100000, 1 << 20} {
			total := TotalCombinations(maxLength)
			ranges, err := Partition(maxLength, taskSize)
			if err != nil {
				t.Fatalf("Partition(%d, %d): %v", maxLength, taskSize, err)
			}

			var sum uint64
			var nextStart uint64
			for i, r := range ranges {
				if r.Start != nextStart {
					t.Fatalf("maxLength=%d taskSize=%d: range %d not contiguous: start=%d want=%d", maxLength, taskSize, i, r.Start, nextStart)
				}
				if r.Count == 0 {
					t.Fatalf("maxLength=%d taskSize=%d: range %d has zero count", maxLength, taskSize, i)
				}
				sum += r.Count
				nextStart = r.Start + r.Count
			}

			if sum != total {
				t.Fatalf("maxLength=%d taskSize=%d: ranges sum to %d, want %d", maxLength, taskSize, sum, total)
			}
		}
	}
}

func TestPartitionRejectsNonPositiveTaskSize(t *testing.T) {
	if _, err := Partition(4, 0); err == nil {
		t.Fatal("expected error for zero taskSize")
	}
}
