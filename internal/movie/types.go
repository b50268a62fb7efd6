// Package movie defines the typed data model for an interpolated tree
// sequence ("movie") and decodes the backend payload into it. All runtime
// type juggling happens here, once, at load time; every other package
// consumes the strictly-typed Payload.
package movie

// Phase classifies a position in the tree sequence. ORIGINAL marks anchor
// trees; the remaining phases are stages of the interpolation between two
// anchors.
type Phase string

const (
	PhaseOriginal Phase = "ORIGINAL"
	PhaseDown     Phase = "DOWN"
	PhaseCollapse Phase = "COLLAPSE"
	PhaseReorder  Phase = "REORDER"
	PhasePreSnap  Phase = "PRE_SNAP"
	PhaseSnap     Phase = "SNAP"
	PhaseUnknown  Phase = "UNKNOWN"
)

// IsAnchor reports whether the phase marks an anchor (original) tree.
func (p Phase) IsAnchor() bool { return p == PhaseOriginal }

// Node is one node of a renderable tree. Leaves have no children and a
// non-empty name.
type Node struct {
	Name     string  `json:"name"`
	Length   float64 `json:"length"`
	Children []*Node `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Leaves returns the leaf names in traversal order.
func (n *Node) Leaves() []string {
	if n == nil {
		return nil
	}
	if n.IsLeaf() {
		return []string{n.Name}
	}
	var out []string
	for _, c := range n.Children {
		out = append(out, c.Leaves()...)
	}
	return out
}

// TreeMetadata describes one position of the global tree sequence.
type TreeMetadata struct {
	Phase           Phase
	PairKey         string // "pair_i_j", empty for anchors without a pair
	StepInPair      int    // 1-based step inside the pair, 0 when absent
	GlobalTreeIndex int
	TreeName        string
	SourceTreeIndex int
}

// PairSolution bundles the per-pair interpolation solutions. Keys of the
// solution maps are canonical edge keys (see EdgeKey).
type PairSolution struct {
	// JumpingSubtreeSolutions maps an edge key to a per-local-step sequence
	// of groups of leaf-index lists describing the subtrees in motion.
	JumpingSubtreeSolutions map[string][][][]int

	// SolutionToSourceMap and SolutionToDestinationMap map edge keys to the
	// corresponding split in the source/destination anchor.
	SolutionToSourceMap      map[string][]int
	SolutionToDestinationMap map[string][]int

	// PivotEdgeSequence lists the pivot edge acted on at each local step;
	// entries may be nil.
	PivotEdgeSequence [][]int
}

// HasInterpolation reports whether the pair carries true interpolation.
// A pair with an empty solutions map is treated as zero-length even when
// metadata lists interpolated phases for it.
func (s PairSolution) HasInterpolation() bool {
	return len(s.JumpingSubtreeSolutions) > 0
}

// EventType discriminates timeline events.
type EventType string

const (
	EventOriginal   EventType = "original"
	EventSplitEvent EventType = "split_event"
)

// TimelineEvent is one entry of the split-change timeline. Original events
// place anchors; split events span a run of interpolated positions.
type TimelineEvent struct {
	Type        EventType
	GlobalIndex int    // original events: anchor position
	TreeIndex   int    // original events: ordinal among anchors
	Name        string // original events: display name

	PairKey         string // split events
	Split           []int
	StepRangeGlobal [2]int // inclusive global position range
	StepRangeLocal  [2]int
}

// Distances carries the per-pair distance series. Opaque to the core; the
// viewer displays them against the fractional distance index.
type Distances struct {
	RobinsonFoulds         []float64
	WeightedRobinsonFoulds []float64
}

// PairRange is an optional per-pair interpolation range hint.
type PairRange struct {
	PairKey string
	Start   int
	End     int
}

// MSA holds the multiple-sequence-alignment window parameters the viewer
// needs. Sequence content is optional.
type MSA struct {
	Sequences  map[string]string
	WindowSize int
	StepSize   int
}

// Payload is the fully-normalized input consumed by Store.Initialize.
type Payload struct {
	Trees             []*Node
	Metadata          []TreeMetadata
	PairSolutions     map[string]PairSolution
	PivotEdgeTracking [][]int   // length len(Trees); nil entries allowed
	SubtreeTracking   [][][]int // optional, length len(Trees) when present
	Timeline          []TimelineEvent
	Distances         Distances
	PairRanges        []PairRange
	MSA               MSA
	SortedLeaves      []string
	FileName          string
}

// TreeCount returns the number of positions in the sequence.
func (p *Payload) TreeCount() int {
	if p == nil {
		return 0
	}
	return len(p.Trees)
}
