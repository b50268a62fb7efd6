// Package timeline owns the scrubber widget and the manager that keeps
// it in sync with the store.
package timeline

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	tl "github.com/brancharchitect/phylomovie/internal/timeline"
	"github.com/brancharchitect/phylomovie/internal/tui/theme"
)

// Scrubber is a one-line timeline track. Anchor segments draw as single
// tick cells; transition segments are heat-colored by how many leaves
// move in them.
type Scrubber struct {
	mu         sync.Mutex
	model      *tl.Model
	width      int
	customTime time.Duration
	selection  int
	destroyed  bool
}

// NewScrubber returns a widget with no model.
func NewScrubber() *Scrubber {
	return &Scrubber{width: 60, selection: -1}
}

// SetModel swaps the timeline the track renders.
func (s *Scrubber) SetModel(m *tl.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = m
	s.customTime = 0
	s.selection = -1
}

// SetWidth resizes the track.
func (s *Scrubber) SetWidth(w int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w > 0 {
		s.width = w
	}
}

// SetCustomTime moves the cursor.
func (s *Scrubber) SetCustomTime(t time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return
	}
	if t < 0 {
		t = 0
	}
	if t > s.model.Total() {
		t = s.model.Total()
	}
	s.customTime = t
}

// CustomTime returns the cursor position.
func (s *Scrubber) CustomTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customTime
}

// SetSelection highlights a segment.
func (s *Scrubber) SetSelection(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = i
}

// Selection returns the highlighted segment, -1 for none.
func (s *Scrubber) Selection() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// ProgressForColumn maps a track column to [0,1] timeline progress.
func (s *Scrubber) ProgressForColumn(col int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width <= 1 {
		return 0
	}
	if col < 0 {
		col = 0
	}
	if col > s.width-1 {
		col = s.width - 1
	}
	return float64(col) / float64(s.width-1)
}

// SegmentForColumn maps a track column to the segment it lands in, -1
// with no model.
func (s *Scrubber) SegmentForColumn(col int) int {
	s.mu.Lock()
	m := s.model
	width := s.width
	s.mu.Unlock()
	if m == nil || m.SegmentCount() == 0 || width <= 1 {
		return -1
	}
	if col < 0 {
		col = 0
	}
	if col > width-1 {
		col = width - 1
	}
	t := time.Duration(float64(col) / float64(width-1) * float64(m.Total()))
	return tl.SegmentIndexForTime(m, t)
}

// Destroy detaches the widget; View returns an empty track afterwards.
func (s *Scrubber) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	s.model = nil
}

// View renders the track with the cursor overlaid.
func (s *Scrubber) View() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed || s.model == nil || s.model.SegmentCount() == 0 || s.model.Total() == 0 || s.width < 2 {
		return ""
	}
	pal := theme.Current()
	minMoves, maxMoves := s.model.MoveScale()
	cold, _ := colorful.Hex(string(pal.Green))
	hot, _ := colorful.Hex(string(pal.Red))

	cursorCol := 0
	if s.model.Total() > 0 {
		cursorCol = int(float64(s.customTime) / float64(s.model.Total()) * float64(s.width-1))
	}

	var b strings.Builder
	for col := 0; col < s.width; col++ {
		t := time.Duration(float64(col) / float64(s.width-1) * float64(s.model.Total()))
		si := tl.SegmentIndexForTime(s.model, t)
		seg := &s.model.Segments()[si]

		glyph := "█"
		var color lipgloss.Color
		if seg.Kind == tl.SegmentAnchor {
			glyph = "┃"
			color = pal.Lavender
		} else {
			color = heatColor(cold, hot, seg.SubtreeMoves, minMoves, maxMoves)
		}
		style := lipgloss.NewStyle().Foreground(color)
		if si == s.selection {
			style = style.Underline(true)
		}
		if col == cursorCol {
			glyph = "◆"
			style = lipgloss.NewStyle().Foreground(pal.PivotEdge)
		}
		b.WriteString(style.Render(glyph))
	}
	return b.String()
}

// heatColor blends the cold and hot endpoints by where moves sits in the
// observed range.
func heatColor(cold, hot colorful.Color, moves, minMoves, maxMoves int) lipgloss.Color {
	t := 0.0
	if maxMoves > minMoves {
		t = float64(moves-minMoves) / float64(maxMoves-minMoves)
	}
	return lipgloss.Color(cold.BlendLuv(hot, t).Hex())
}
