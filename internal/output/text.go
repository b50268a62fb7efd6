// Package output holds small plain-text formatting helpers shared by the
// non-interactive commands.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Table accumulates rows and renders them with aligned columns. Column
// widths follow display width, so taxa names with wide runes line up.
type Table struct {
	w       io.Writer
	headers []string
	rows    [][]string
	widths  []int
}

func NewTable(w io.Writer, headers ...string) *Table {
	t := &Table{w: w, headers: headers, widths: make([]int, len(headers))}
	for i, h := range headers {
		t.widths[i] = runewidth.StringWidth(h)
	}
	return t
}

// AddRow appends one row. Extra cells beyond the header count are dropped.
func (t *Table) AddRow(cells ...string) {
	if len(cells) > len(t.headers) {
		cells = cells[:len(t.headers)]
	}
	for i, c := range cells {
		if w := runewidth.StringWidth(c); w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, cells)
}

// Render writes the headers, a separator, and every row.
func (t *Table) Render() {
	t.writeRow(t.headers)
	seps := make([]string, len(t.widths))
	for i, w := range t.widths {
		seps[i] = strings.Repeat("-", w)
	}
	t.writeRow(seps)
	for _, row := range t.rows {
		t.writeRow(row)
	}
}

func (t *Table) writeRow(cells []string) {
	parts := make([]string, len(t.headers))
	for i := range t.headers {
		c := ""
		if i < len(cells) {
			c = cells[i]
		}
		parts[i] = runewidth.FillRight(c, t.widths[i])
	}
	fmt.Fprintln(t.w, "  "+strings.TrimRight(strings.Join(parts, "  "), " "))
}

// Pluralize picks the singular or plural form for count.
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}
