package render

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/brancharchitect/phylomovie/internal/highlight"
	"github.com/brancharchitect/phylomovie/internal/movie"
	"github.com/brancharchitect/phylomovie/internal/tui/theme"
)

// Terminal renders cladograms as Unicode box art. The latest render is
// kept as a string for the viewer's View method. A terminal cannot morph
// branches continuously, so scrub frames snap to the nearer of the two
// trees and show the blend factor in the header.
type Terminal struct {
	mu        sync.Mutex
	params    Parameters
	leafIndex map[string]int
	view      string
	destroyed bool
	renders   int
}

// NewTerminal returns an empty terminal renderer.
func NewTerminal() *Terminal {
	return &Terminal{leafIndex: map[string]int{}}
}

func (t *Terminal) UpdateParameters(p Parameters) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return
	}
	t.params = p
	t.leafIndex = make(map[string]int, len(p.SortedLeaves))
	for i, name := range p.SortedLeaves {
		t.leafIndex[name] = i
	}
}

func (t *Terminal) RenderAllElements() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return fmt.Errorf("render tree: renderer destroyed")
	}
	if t.params.Tree == nil {
		t.view = ""
		return nil
	}
	t.view = t.drawLocked(t.params.Tree, "")
	t.renders++
	return nil
}

func (t *Terminal) RenderScrubFrame(from, to *movie.Node, timeFactor float64, opts ScrubOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return fmt.Errorf("render scrub frame: renderer destroyed")
	}
	tree := from
	near := opts.FromTreeIndex
	if timeFactor >= 0.5 {
		tree = to
		near = opts.ToTreeIndex
	}
	if tree == nil {
		return fmt.Errorf("render scrub frame: no tree for position %d", near)
	}
	header := ""
	if opts.ScrubMode && opts.FromTreeIndex != opts.ToTreeIndex {
		pal := theme.Current()
		header = lipgloss.NewStyle().Foreground(pal.Subtext).Render(
			fmt.Sprintf("tree %d to %d  blend %.2f", opts.FromTreeIndex, opts.ToTreeIndex, timeFactor))
	}
	t.view = t.drawLocked(tree, header)
	t.renders++
	return nil
}

// Destroy drops the drawing state. Render calls after Destroy fail.
func (t *Terminal) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.destroyed = true
	t.view = ""
}

// View returns the most recent render.
func (t *Terminal) View() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view
}

// RenderCount reports how many frames have been drawn.
func (t *Terminal) RenderCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.renders
}

func (t *Terminal) drawLocked(tree *movie.Node, header string) string {
	st := highlight.State{Marked: t.params.Marked, Pivot: t.params.Pivot}
	policy := t.params.Policy
	if policy == nil {
		p := highlight.NewPolicy()
		policy = &p
	}
	labelWidth := 0
	for _, name := range tree.Leaves() {
		if w := runewidth.StringWidth(name); w > labelWidth {
			labelWidth = w
		}
	}
	lines, _ := t.renderNode(tree, *policy, st, labelWidth)
	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		b.WriteString("\n")
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// renderNode draws the subtree rooted at n and returns its lines plus the
// row index the parent connector attaches to.
func (t *Terminal) renderNode(n *movie.Node, policy highlight.Policy, st highlight.State, labelWidth int) ([]string, int) {
	if n.IsLeaf() {
		style := policy.BranchStyle(highlight.Branch{
			TargetSplit:      t.splitOf(n),
			IsLeaf:           true,
			LeafName:         n.Name,
			SubtreeLeafNames: []string{n.Name},
		}, st)
		label := runewidth.FillRight(n.Name, labelWidth)
		return []string{t.styled(style, "── "+label)}, 0
	}

	var lines []string
	anchors := make([]int, 0, len(n.Children))
	childStyles := make([]highlight.Style, 0, len(n.Children))
	for _, c := range n.Children {
		block, anchor := t.renderNode(c, policy, st, labelWidth)
		anchors = append(anchors, len(lines)+anchor)
		lines = append(lines, block...)
		childStyles = append(childStyles, policy.BranchStyle(highlight.Branch{
			TargetSplit:      t.splitOf(c),
			IsLeaf:           c.IsLeaf(),
			LeafName:         c.Name,
			SubtreeLeafNames: c.Leaves(),
		}, st))
	}

	first, last := anchors[0], anchors[len(anchors)-1]
	mid := (first + last) / 2
	nodeStyle := policy.NodeStyle(highlight.NodeDesc{Split: t.splitOf(n)}, st)

	out := make([]string, len(lines))
	childAt := make(map[int]int, len(anchors))
	for i, a := range anchors {
		childAt[a] = i
	}
	for row, line := range lines {
		var prefix string
		var style highlight.Style
		if ci, ok := childAt[row]; ok {
			style = childStyles[ci]
			switch {
			case len(anchors) == 1:
				prefix = "──"
			case row == first:
				prefix = "┌─"
			case row == last:
				prefix = "└─"
			default:
				prefix = "├─"
			}
		} else {
			style = nodeStyle
			if row > first && row < last {
				prefix = "│ "
			} else {
				prefix = "  "
			}
		}
		out[row] = t.styled(style, prefix) + line
	}
	return out, mid
}

// splitOf returns the sorted leaf indices under n, resolved against the
// canonical leaf order. Unknown leaves are skipped.
func (t *Terminal) splitOf(n *movie.Node) []int {
	var split []int
	for _, name := range n.Leaves() {
		if idx, ok := t.leafIndex[name]; ok {
			split = append(split, idx)
		}
	}
	sort.Ints(split)
	return split
}

// styled maps a resolved element style onto lipgloss. Terminals have no
// opacity, so dimmed elements take the theme's dim color plus faint.
func (t *Terminal) styled(s highlight.Style, text string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color))
	if s.Opacity < 0.999 {
		style = style.Foreground(theme.Current().DimBranch).Faint(true)
	}
	return style.Render(text)
}
