package movie

import (
	"strconv"
	"strings"
)

// EdgeKey renders a leaf-index list in the canonical string form used as a
// map key in pair solutions: "[a, b, c]" with a space after each comma.
// The backend prebakes keys in exactly this format, so it must be
// reproduced byte for byte.
func EdgeKey(indices []int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, idx := range indices {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(idx))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseEdgeKey inverts EdgeKey. Malformed input yields ok == false.
func ParseEdgeKey(key string) (indices []int, ok bool) {
	if len(key) < 2 || key[0] != '[' || key[len(key)-1] != ']' {
		return nil, false
	}
	body := key[1 : len(key)-1]
	if body == "" {
		return []int{}, true
	}
	parts := strings.Split(body, ",")
	indices = make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, false
		}
		indices = append(indices, n)
	}
	return indices, true
}

// PairIndex extracts the leading integer from a pair key such as
// "pair_3_4", returning -1 for malformed keys. The resolver relies only on
// this source index.
func PairIndex(pairKey string) int {
	rest, found := strings.CutPrefix(pairKey, "pair_")
	if !found {
		return -1
	}
	end := strings.IndexByte(rest, '_')
	if end < 0 {
		end = len(rest)
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil || n < 0 {
		return -1
	}
	return n
}
