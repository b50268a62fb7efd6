package highlight

// Branch describes a renderable branch for coloring. TargetSplit is the
// leaf-index set below the branch; LeafName is set for leaf branches.
type Branch struct {
	TargetSplit []int
	IsLeaf      bool
	LeafName    string
	// SubtreeLeafNames lists the leaf taxa under an internal branch, for
	// monophyletic coloring.
	SubtreeLeafNames []string
}

// NodeDesc describes a renderable node for coloring.
type NodeDesc struct {
	Split []int
	// PivotTerminal marks the source or destination node of the current
	// pivot; exempt from active-change dimming but not subtree dimming.
	PivotTerminal bool
}

// Style is a resolved element color with opacity.
type Style struct {
	Color   string // hex, e.g. "#ff0000"
	Opacity float64
}

// Default role colors; overridable through the policy fields.
const (
	DefaultPivotColor  = "#2196f3"
	DefaultMarkedColor = "#e53935"
	DefaultBaseColor   = "#9e9e9e"
	DefaultDimFactor   = 0.25
)

// Policy resolves element colors from highlight state by a fixed priority.
// It is a pure value: no timers, no scheduling state.
type Policy struct {
	PivotColor   string
	MarkedColor  string
	BaseColor    string
	DimFactor    float64
	Monophyletic bool
	Dimming      bool
	// TaxaColors maps leaf names to hex colors; absent names fall back to
	// BaseColor.
	TaxaColors map[string]string
}

// NewPolicy returns a policy with the default role colors.
func NewPolicy() Policy {
	return Policy{
		PivotColor:  DefaultPivotColor,
		MarkedColor: DefaultMarkedColor,
		BaseColor:   DefaultBaseColor,
		DimFactor:   DefaultDimFactor,
	}
}

// BranchStyle resolves the color of a branch. Priority: pivot equality,
// then marked-subtree containment, then the base color.
func (p Policy) BranchStyle(b Branch, st State) Style {
	if len(st.Pivot) > 0 && setEqual(b.TargetSplit, st.Pivot) {
		return Style{Color: p.PivotColor, Opacity: 1}
	}
	if subsetOfAny(b.TargetSplit, st.Marked) {
		return Style{Color: p.MarkedColor, Opacity: 1}
	}
	return Style{Color: p.baseBranchColor(b), Opacity: p.baseOpacity(st)}
}

// NodeStyle resolves the color of a node. Marked intersection wins over
// pivot equality; with an active pivot, nodes outside the pivot's subtree
// are dimmed.
func (p Policy) NodeStyle(n NodeDesc, st State) Style {
	if intersectsAny(n.Split, st.Marked) {
		return Style{Color: p.MarkedColor, Opacity: 1}
	}
	if len(st.Pivot) > 0 && setEqual(n.Split, st.Pivot) {
		return Style{Color: p.PivotColor, Opacity: 1}
	}
	if len(st.Pivot) > 0 {
		if isSubset(n.Split, st.Pivot) {
			return Style{Color: p.BaseColor, Opacity: 1}
		}
		if p.Dimming && !n.PivotTerminal {
			return Style{Color: p.BaseColor, Opacity: p.DimFactor}
		}
		// Pivot terminals skip active-change dimming but still take
		// subtree dimming.
		return Style{Color: p.BaseColor, Opacity: p.baseOpacity(st)}
	}
	return Style{Color: p.BaseColor, Opacity: p.baseOpacity(st)}
}

// baseOpacity applies subtree dimming: with marked subtrees active and
// dimming on, non-highlighted elements fade to the dim factor.
func (p Policy) baseOpacity(st State) float64 {
	if p.Dimming && len(st.Marked) > 0 {
		return p.DimFactor
	}
	return 1
}

func (p Policy) baseBranchColor(b Branch) string {
	if b.IsLeaf {
		if c, ok := p.TaxaColors[b.LeafName]; ok && c != "" {
			return c
		}
		return p.BaseColor
	}
	if p.Monophyletic {
		if c, ok := p.monophyleticColor(b.SubtreeLeafNames); ok {
			return c
		}
	}
	return p.BaseColor
}

// monophyleticColor returns the single non-default leaf color shared by
// every leaf under the branch, if there is exactly one.
func (p Policy) monophyleticColor(leafNames []string) (string, bool) {
	if len(leafNames) == 0 {
		return "", false
	}
	uniform := ""
	for _, name := range leafNames {
		c := p.TaxaColors[name]
		if c == "" || c == p.BaseColor {
			return "", false
		}
		if uniform == "" {
			uniform = c
		} else if c != uniform {
			return "", false
		}
	}
	return uniform, uniform != ""
}

// Set helpers over leaf-index lists. Order is irrelevant.

// setEqual treats empty sets as equal to nothing; an absent split never
// matches an absent pivot.
func setEqual(a, b []int) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	seen := make(map[int]struct{}, len(a))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	if len(seen) != len(b) {
		return false
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			return false
		}
	}
	return true
}

func isSubset(a, b []int) bool {
	if len(a) == 0 || len(a) > len(b) {
		return false
	}
	set := make(map[int]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	for _, v := range a {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

func subsetOfAny(a []int, groups [][]int) bool {
	for _, g := range groups {
		if isSubset(a, g) {
			return true
		}
	}
	return false
}

func intersectsAny(a []int, groups [][]int) bool {
	if len(a) == 0 {
		return false
	}
	set := make(map[int]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, g := range groups {
		for _, v := range g {
			if _, ok := set[v]; ok {
				return true
			}
		}
	}
	return false
}
