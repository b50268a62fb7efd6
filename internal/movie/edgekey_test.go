package movie

import (
	"reflect"
	"testing"
)

func TestEdgeKey(t *testing.T) {
	tests := []struct {
		indices []int
		want    string
	}{
		{nil, "[]"},
		{[]int{}, "[]"},
		{[]int{3}, "[3]"},
		{[]int{3, 4}, "[3, 4]"},
		{[]int{0, 1, 2, 10}, "[0, 1, 2, 10]"},
	}
	for _, tt := range tests {
		if got := EdgeKey(tt.indices); got != tt.want {
			t.Errorf("EdgeKey(%v) = %q, want %q", tt.indices, got, tt.want)
		}
	}
}

func TestParseEdgeKeyRoundTrip(t *testing.T) {
	cases := [][]int{{}, {0}, {3, 4}, {1, 22, 333}}
	for _, indices := range cases {
		key := EdgeKey(indices)
		got, ok := ParseEdgeKey(key)
		if !ok {
			t.Fatalf("ParseEdgeKey(%q) not ok", key)
		}
		if !reflect.DeepEqual(got, indices) {
			t.Errorf("round trip %v -> %q -> %v", indices, key, got)
		}
	}
}

func TestParseEdgeKeyMalformed(t *testing.T) {
	for _, key := range []string{"", "[", "]", "3, 4", "[a, b]", "[3 4]"} {
		if _, ok := ParseEdgeKey(key); ok {
			t.Errorf("ParseEdgeKey(%q) ok = true, want false", key)
		}
	}
}

func TestPairIndex(t *testing.T) {
	tests := []struct {
		key  string
		want int
	}{
		{"pair_0_1", 0},
		{"pair_3_4", 3},
		{"pair_12_13", 12},
		{"pair_7", 7},
		{"pair_x_y", -1},
		{"nonsense", -1},
		{"", -1},
		{"pair_-2_0", -1},
	}
	for _, tt := range tests {
		if got := PairIndex(tt.key); got != tt.want {
			t.Errorf("PairIndex(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}
