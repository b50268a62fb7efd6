// Package render draws trees. The Renderer interface is what the scrub
// controller and the viewer drive; Terminal is the Unicode cladogram
// implementation.
package render

import (
	"github.com/brancharchitect/phylomovie/internal/highlight"
	"github.com/brancharchitect/phylomovie/internal/movie"
)

// Direction mirrors the store's navigation direction for scrub options.
type Direction string

// ScrubOptions accompany a scrub frame.
type ScrubOptions struct {
	ScrubMode      bool
	Direction      Direction
	FromTreeIndex  int
	ToTreeIndex    int
	RightTreeIndex int // comparison mode, -1 when unused
}

// Parameters is the full drawing state for discrete renders.
type Parameters struct {
	Tree         *movie.Node
	TreeIndex    int
	Marked       [][]int
	Pivot        []int
	SortedLeaves []string
	Policy       *highlight.Policy
	Monophyletic bool
	FontSize     int
	StrokeWidth  int
}

// Renderer is the drawing surface contract.
type Renderer interface {
	// UpdateParameters replaces the drawing state for the next discrete
	// render.
	UpdateParameters(p Parameters)
	// RenderAllElements draws the current tree in full.
	RenderAllElements() error
	// RenderScrubFrame draws an interpolation between two trees.
	RenderScrubFrame(from, to *movie.Node, timeFactor float64, opts ScrubOptions) error
	// Destroy releases the surface. Further calls are no-ops.
	Destroy()
}
