package batch

import (
	"testing"
)

func workItems(n int) []WorkItem {
	items := make([]WorkItem, n)
	for i := range items {
		items[i] = WorkItem{Index: i}
	}
	return items
}

func sizes(groups [][]WorkItem) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = len(g)
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSplit(t *testing.T) {
	tests := []struct {
		n, size int
		want    []int
	}{
		{7, 5, []int{5, 2}},
		{5, 3, []int{3, 2}},
		{10, 5, []int{5, 5}},
		{1, 5, []int{1}},
		{0, 5, []int{}},
		{3, 0, []int{1, 1, 1}},
	}
	for _, tt := range tests {
		got := sizes(split(workItems(tt.n), tt.size))
		if !equalInts(got, tt.want) {
			t.Errorf("split(%d, %d) sizes = %v, want %v", tt.n, tt.size, got, tt.want)
		}
	}
}

func TestSplitPreservesOrder(t *testing.T) {
	var flat []int
	for _, g := range split(workItems(11), 4) {
		for _, it := range g {
			flat = append(flat, it.Index)
		}
	}
	for i, idx := range flat {
		if idx != i {
			t.Fatalf("index %d at position %d", idx, i)
		}
	}
}

func TestSplitChunkCount(t *testing.T) {
	for n := 0; n <= 23; n++ {
		for b := 1; b <= 6; b++ {
			want := (n + b - 1) / b
			if got := len(split(workItems(n), b)); got != want {
				t.Errorf("split(%d, %d) produced %d chunks, want %d", n, b, got, want)
			}
		}
	}
}

func TestPercent(t *testing.T) {
	if got := percent(0, 0); got != 100 {
		t.Errorf("percent(0, 0) = %v, want 100", got)
	}
	if got := percent(1, 4); got != 25 {
		t.Errorf("percent(1, 4) = %v, want 25", got)
	}
}
