package movie

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
)

// rawPayload mirrors the wire shape of the backend response, including the
// legacy field names older backends emit. It exists only as a decoding
// intermediate; Normalize turns it into a Payload.
type rawPayload struct {
	InterpolatedTrees []json.RawMessage `json:"interpolated_trees"`
	TreeList          []json.RawMessage `json:"tree_list"` // legacy alias

	TreeMetadata []rawMetadata `json:"tree_metadata"`

	TreePairSolutions map[string]rawSolution `json:"tree_pair_solutions"`

	PivotEdgeTracking   [][]int `json:"pivot_edge_tracking"`
	SplitChangeTracking [][]int `json:"split_change_tracking"` // legacy alias
	SEdgeTracker        [][]int `json:"s_edge_tracker"`        // legacy alias
	LatticeEdgeTracking [][]int `json:"lattice_edge_tracking"` // legacy alias

	SubtreeTracking [][][]int `json:"subtree_tracking"`

	SplitChangeTimeline []rawEvent `json:"split_change_timeline"`

	Distances struct {
		RobinsonFoulds         []float64 `json:"robinson_foulds"`
		WeightedRobinsonFoulds []float64 `json:"weighted_robinson_foulds"`
	} `json:"distances"`
	RFDList  []float64 `json:"rfd_list"`  // legacy alias
	WRFDList []float64 `json:"wrfd_list"` // legacy alias

	PairInterpolationRanges []rawRange `json:"pair_interpolation_ranges"`

	MSA struct {
		Sequences  map[string]string `json:"sequences"`
		WindowSize int               `json:"window_size"`
		StepSize   int               `json:"step_size"`
	} `json:"msa"`
	WindowSize     int `json:"window_size"`      // legacy alias
	WindowStepSize int `json:"window_step_size"` // legacy alias

	SortedLeaves []string `json:"sorted_leaves"`
	FileName     string   `json:"file_name"`
}

type rawMetadata struct {
	Phase           string `json:"phase"`
	PairKey         string `json:"pair_key"`
	TreePairKey     string `json:"tree_pair_key"` // legacy alias
	StepInPair      int    `json:"step_in_pair"`
	GlobalTreeIndex *int   `json:"global_tree_index"`
	TreeName        string `json:"tree_name"`
	SourceTreeIndex int    `json:"source_tree_index"`
}

type rawSolution struct {
	JumpingSubtreeSolutions map[string][][][]int `json:"jumping_subtree_solutions"`
	LatticeEdgeSolutions    map[string][][][]int `json:"lattice_edge_solutions"` // legacy alias

	SolutionToSourceMap      map[string][]int `json:"solution_to_source_map"`
	MappingOne               map[string][]int `json:"mapping_one"` // legacy alias
	SolutionToDestinationMap map[string][]int `json:"solution_to_destination_map"`
	MappingTwo               map[string][]int `json:"mapping_two"` // legacy alias

	PivotEdgeSequence [][]int `json:"pivot_edge_sequence"`
	SEdgeSequence     [][]int `json:"s_edge_sequence"` // legacy alias
}

type rawEvent struct {
	Type            string `json:"type"`
	GlobalIndex     int    `json:"global_index"`
	TreeIndex       int    `json:"tree_index"`
	Name            string `json:"name"`
	PairKey         string `json:"pair_key"`
	Split           []int  `json:"split"`
	StepRangeGlobal []int  `json:"step_range_global"`
	StepRangeLocal  []int  `json:"step_range_local"`
}

type rawRange struct {
	PairKey string `json:"pair_key"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// Load reads and normalizes a payload from r.
func Load(r io.Reader) (*Payload, error) {
	var raw rawPayload
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return normalize(&raw)
}

// LoadFile reads and normalizes a payload from a JSON file.
func LoadFile(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}
	defer f.Close()

	p, err := Load(f)
	if err != nil {
		return nil, err
	}
	if p.FileName == "" {
		p.FileName = path
	}
	return p, nil
}

// normalize produces a strictly-typed Payload. Missing core fields yield an
// empty-but-valid payload rather than an error; the viewer renders an empty
// timeline in that case.
func normalize(raw *rawPayload) (*Payload, error) {
	rawTrees := raw.InterpolatedTrees
	if len(rawTrees) == 0 {
		rawTrees = raw.TreeList
	}
	if len(rawTrees) == 0 || len(raw.TreeMetadata) == 0 {
		slog.Warn("payload missing interpolated_trees or tree_metadata, loading empty state",
			"trees", len(rawTrees), "metadata", len(raw.TreeMetadata))
		return &Payload{
			PairSolutions: map[string]PairSolution{},
			FileName:      raw.FileName,
			SortedLeaves:  raw.SortedLeaves,
		}, nil
	}

	p := &Payload{
		Trees:        make([]*Node, len(rawTrees)),
		SortedLeaves: raw.SortedLeaves,
		FileName:     raw.FileName,
	}

	// Tree decoding dominates load time for large movies; run it alongside
	// the metadata and solution normalization.
	var g errgroup.Group
	g.Go(func() error {
		for i, rt := range rawTrees {
			var n Node
			if err := json.Unmarshal(rt, &n); err != nil {
				return fmt.Errorf("decode tree %d: %w", i, err)
			}
			p.Trees[i] = &n
		}
		return nil
	})
	g.Go(func() error {
		n := len(rawTrees)
		p.Metadata = normalizeMetadata(raw.TreeMetadata, n)
		p.PairSolutions = normalizeSolutions(raw.TreePairSolutions)
		p.PivotEdgeTracking = normalizeTrack(raw, n)
		p.SubtreeTracking = raw.SubtreeTracking
		p.Timeline = normalizeTimeline(raw.SplitChangeTimeline)
		p.Distances = normalizeDistances(raw)
		for _, r := range raw.PairInterpolationRanges {
			p.PairRanges = append(p.PairRanges, PairRange{PairKey: r.PairKey, Start: r.Start, End: r.End})
		}
		p.MSA = MSA{
			Sequences:  raw.MSA.Sequences,
			WindowSize: firstPositive(raw.MSA.WindowSize, raw.WindowSize, 1),
			StepSize:   firstPositive(raw.MSA.StepSize, raw.WindowStepSize, 1),
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}

func normalizeMetadata(raw []rawMetadata, n int) []TreeMetadata {
	out := make([]TreeMetadata, n)
	for i := range out {
		if i >= len(raw) {
			out[i] = TreeMetadata{Phase: PhaseUnknown, GlobalTreeIndex: i}
			continue
		}
		rm := raw[i]
		pairKey := rm.PairKey
		if pairKey == "" {
			pairKey = rm.TreePairKey
		}
		gi := i
		if rm.GlobalTreeIndex != nil {
			gi = *rm.GlobalTreeIndex
		}
		out[i] = TreeMetadata{
			Phase:           normalizePhase(rm.Phase, rm.TreeName),
			PairKey:         pairKey,
			StepInPair:      rm.StepInPair,
			GlobalTreeIndex: gi,
			TreeName:        rm.TreeName,
			SourceTreeIndex: rm.SourceTreeIndex,
		}
	}
	return out
}

// normalizePhase maps wire phase strings (including the backend's
// "*_PHASE" spellings) onto Phase, falling back to name-based detection.
func normalizePhase(s, treeName string) Phase {
	s = strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "_PHASE")
	switch Phase(s) {
	case PhaseOriginal, PhaseDown, PhaseCollapse, PhaseReorder, PhasePreSnap, PhaseSnap:
		return Phase(s)
	}
	return phaseFromName(treeName)
}

// phaseFromName infers the interpolation phase from the generated tree
// name, matching the backend's naming scheme.
func phaseFromName(name string) Phase {
	switch {
	case strings.HasPrefix(name, "T"):
		return PhaseOriginal
	case strings.Contains(name, "_down_"):
		return PhaseDown
	case strings.Contains(name, "_reorder"):
		return PhaseReorder
	case strings.HasPrefix(name, "C"):
		return PhaseCollapse
	case strings.Contains(name, "_up_"):
		return PhasePreSnap
	case strings.Contains(name, "_ref_"):
		return PhaseSnap
	default:
		return PhaseUnknown
	}
}

func normalizeSolutions(raw map[string]rawSolution) map[string]PairSolution {
	out := make(map[string]PairSolution, len(raw))
	for key, rs := range raw {
		sol := PairSolution{
			JumpingSubtreeSolutions:  rs.JumpingSubtreeSolutions,
			SolutionToSourceMap:      rs.SolutionToSourceMap,
			SolutionToDestinationMap: rs.SolutionToDestinationMap,
			PivotEdgeSequence:        rs.PivotEdgeSequence,
		}
		if sol.JumpingSubtreeSolutions == nil {
			sol.JumpingSubtreeSolutions = rs.LatticeEdgeSolutions
		}
		if sol.SolutionToSourceMap == nil {
			sol.SolutionToSourceMap = rs.MappingOne
		}
		if sol.SolutionToDestinationMap == nil {
			sol.SolutionToDestinationMap = rs.MappingTwo
		}
		if sol.PivotEdgeSequence == nil {
			sol.PivotEdgeSequence = rs.SEdgeSequence
		}
		if sol.JumpingSubtreeSolutions == nil {
			sol.JumpingSubtreeSolutions = map[string][][][]int{}
		}
		out[key] = sol
	}
	return out
}

// normalizeTrack selects the pivot edge track, preferring the modern field
// name, and pads or truncates it to the sequence length.
func normalizeTrack(raw *rawPayload, n int) [][]int {
	track := raw.PivotEdgeTracking
	if track == nil {
		track = raw.SplitChangeTracking
	}
	if track == nil {
		track = raw.SEdgeTracker
	}
	if track == nil {
		track = raw.LatticeEdgeTracking
	}
	out := make([][]int, n)
	copy(out, track)
	return out
}

func normalizeTimeline(raw []rawEvent) []TimelineEvent {
	out := make([]TimelineEvent, 0, len(raw))
	for _, re := range raw {
		ev := TimelineEvent{
			Type:        EventType(re.Type),
			GlobalIndex: re.GlobalIndex,
			TreeIndex:   re.TreeIndex,
			Name:        re.Name,
			PairKey:     re.PairKey,
			Split:       re.Split,
		}
		if len(re.StepRangeGlobal) == 2 {
			ev.StepRangeGlobal = [2]int{re.StepRangeGlobal[0], re.StepRangeGlobal[1]}
		}
		if len(re.StepRangeLocal) == 2 {
			ev.StepRangeLocal = [2]int{re.StepRangeLocal[0], re.StepRangeLocal[1]}
		}
		out = append(out, ev)
	}
	return out
}

func normalizeDistances(raw *rawPayload) Distances {
	d := Distances{
		RobinsonFoulds:         raw.Distances.RobinsonFoulds,
		WeightedRobinsonFoulds: raw.Distances.WeightedRobinsonFoulds,
	}
	if d.RobinsonFoulds == nil {
		d.RobinsonFoulds = raw.RFDList
	}
	if d.WeightedRobinsonFoulds == nil {
		d.WeightedRobinsonFoulds = raw.WRFDList
	}
	return d
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 1
}
