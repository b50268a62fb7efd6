// Package viewer is the interactive terminal application: one bubbletea
// model wiring the store, renderer, timeline manager, playback clock,
// and MSA overlay together.
package viewer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/brancharchitect/phylomovie/internal/config"
	"github.com/brancharchitect/phylomovie/internal/highlight"
	"github.com/brancharchitect/phylomovie/internal/movie"
	"github.com/brancharchitect/phylomovie/internal/msa"
	"github.com/brancharchitect/phylomovie/internal/playback"
	"github.com/brancharchitect/phylomovie/internal/render"
	"github.com/brancharchitect/phylomovie/internal/scheduler"
	"github.com/brancharchitect/phylomovie/internal/scrub"
	"github.com/brancharchitect/phylomovie/internal/store"
	"github.com/brancharchitect/phylomovie/internal/tui/theme"
	tltui "github.com/brancharchitect/phylomovie/internal/tui/timeline"
)

const repaintInterval = 33 * time.Millisecond

// keyboard scrubbing moves this fraction of the timeline per press.
const scrubStep = 0.02

type tickMsg time.Time

// ReloadMsg swaps in a freshly loaded payload, used by --watch.
type ReloadMsg struct{ Payload *movie.Payload }

// Model is the viewer application.
type Model struct {
	store    *store.Store
	renderer *render.Terminal
	manager  *tltui.Manager
	clock    *playback.Clock
	sched    scheduler.Scheduler
	dispatch *msa.Dispatcher
	keys     KeyMap
	cfg      *config.Config

	width    int
	height   int
	showHelp bool
	showMSA  bool
	msaView  viewport.Model
	progBar  progress.Model

	kbScrubPos float64
	unsub      func()
}

// New assembles the viewer around an initialized store.
func New(st *store.Store, cfg *config.Config, sched scheduler.Scheduler) *Model {
	if cfg == nil {
		cfg = config.Default()
	}
	m := &Model{
		store:    st,
		renderer: render.NewTerminal(),
		clock:    playback.New(st, sched),
		sched:    sched,
		dispatch: msa.NewDispatcher(),
		keys:     DefaultKeyMap(),
		cfg:      cfg,
		msaView:  viewport.New(80, 10),
		progBar:  progress.New(progress.WithDefaultGradient()),
	}
	// The prepare hook pushes highlight state for the scrub frame's
	// primary tree into the renderer before the frame draws.
	prepare := scrub.WithPrepare(func(primary int) {
		m.updateRenderParams(m.store.State(), primary)
	})
	m.manager = tltui.NewManager(st, m.renderer, sched, prepare)
	m.unsub = st.Subscribe(m.onStoreChange)
	m.refresh(st.State())
	return m
}

// Dispatcher exposes the MSA event stream.
func (m *Model) Dispatch() *msa.Dispatcher { return m.dispatch }

func (m *Model) Init() tea.Cmd {
	if m.cfg.Playback.AutoPlay {
		m.clock.Start()
	}
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(repaintInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.manager.Widget().SetWidth(max(msg.Width-4, 10))
		m.msaView.Width = max(msg.Width-4, 10)
		m.msaView.Height = max(msg.Height/3, 4)
		m.progBar.Width = max(msg.Width-20, 10)
		return m, nil

	case ReloadMsg:
		m.clock.Stop()
		m.store.Initialize(msg.Payload)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.msaView, cmd = m.msaView.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Teardown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.ScrubLeft):
		m.keyScrub(-scrubStep)
	case key.Matches(msg, m.keys.ScrubRight):
		m.keyScrub(scrubStep)

	case key.Matches(msg, m.keys.PlayPause):
		if m.store.State().Playing {
			m.clock.Stop()
		} else {
			m.clock.Start()
		}

	case key.Matches(msg, m.keys.NextAnchor):
		m.jumpAnchor(1)
	case key.Matches(msg, m.keys.PrevAnchor):
		m.jumpAnchor(-1)

	case key.Matches(msg, m.keys.StepForward):
		m.store.GoToPosition(m.store.State().CurrentTreeIndex+1, store.DirectionForward)
	case key.Matches(msg, m.keys.StepBack):
		m.store.GoToPosition(m.store.State().CurrentTreeIndex-1, store.DirectionBackward)

	case key.Matches(msg, m.keys.Marked):
		m.store.ToggleMarkedSubtrees()
	case key.Matches(msg, m.keys.PivotEdges):
		m.store.TogglePivotEdges()
	case key.Matches(msg, m.keys.Dimming):
		m.store.ToggleDimming()
	case key.Matches(msg, m.keys.Monophyletic):
		m.store.ToggleMonophyletic()
	case key.Matches(msg, m.keys.Trails):
		m.store.ToggleTrails()
	case key.Matches(msg, m.keys.Camera):
		m.store.ToggleCamera()

	case key.Matches(msg, m.keys.Alignment):
		m.showMSA = !m.showMSA
		if m.showMSA {
			m.refreshMSA(m.store.State())
		}

	case key.Matches(msg, m.keys.SpeedUp):
		m.store.SetAnimationSpeed(m.store.State().AnimationSpeed*1.25, m.sched.Now())
	case key.Matches(msg, m.keys.SpeedDown):
		m.store.SetAnimationSpeed(m.store.State().AnimationSpeed/1.25, m.sched.Now())

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	}
	return m, nil
}

// keyScrub turns arrow presses into a drag. The drag has no explicit end
// from the keyboard; the controller's fallback timeout commits it.
func (m *Model) keyScrub(delta float64) {
	ctrl := m.manager.Controller()
	if !ctrl.Active() {
		if m.store.State().Playing {
			m.clock.Stop()
		}
		m.kbScrubPos = m.store.State().AnimationProgress
		m.manager.StartDrag(m.kbScrubPos)
	}
	m.kbScrubPos = clamp01(m.kbScrubPos + delta)
	m.manager.DragTo(m.kbScrubPos)
}

func (m *Model) jumpAnchor(dir int) {
	res := m.store.Resolver()
	if res == nil {
		return
	}
	cur := m.store.State().CurrentTreeIndex
	anchors := res.FullTreeIndices()
	if dir > 0 {
		for _, a := range anchors {
			if a > cur {
				m.store.GoToPosition(a, store.DirectionJump)
				return
			}
		}
	} else {
		for i := len(anchors) - 1; i >= 0; i-- {
			if anchors[i] < cur {
				m.store.GoToPosition(anchors[i], store.DirectionJump)
				return
			}
		}
	}
}

// onStoreChange re-renders the tree and refreshes the overlay after
// every state change; highlight state is already recomputed by the
// store before this runs.
func (m *Model) onStoreChange(state, prev store.State) {
	m.refresh(state)
}

func (m *Model) refresh(state store.State) {
	m.updateRenderParams(state, state.CurrentTreeIndex)
	if err := m.renderer.RenderAllElements(); err != nil {
		return
	}
	ev := msa.BuildEvent(m.store.Payload(), m.store.Resolver(), m.store.Highlight(), state.CurrentTreeIndex)
	m.dispatch.Dispatch(ev)
	if m.showMSA {
		m.refreshMSA(state)
	}
}

// updateRenderParams pushes the tree and highlight state for position
// idx into the renderer.
func (m *Model) updateRenderParams(state store.State, idx int) {
	payload := m.store.Payload()
	if payload == nil || idx < 0 || idx >= len(payload.Trees) {
		m.renderer.UpdateParameters(render.Parameters{})
		return
	}
	var hl highlight.State
	if engine := m.store.Highlight(); engine != nil {
		hl = engine.StateAt(idx)
	}
	policy := m.policy(state)
	params := render.Parameters{
		Tree:         payload.Trees[idx],
		TreeIndex:    idx,
		SortedLeaves: payload.SortedLeaves,
		Policy:       &policy,
		Monophyletic: state.Monophyletic,
	}
	if state.MarkedSubtreesEnabled {
		params.Marked = hl.Marked
	}
	if state.PivotEdgesEnabled {
		params.Pivot = hl.Pivot
	}
	m.renderer.UpdateParameters(params)
}

func (m *Model) policy(state store.State) highlight.Policy {
	p := highlight.NewPolicy()
	p.PivotColor = m.cfg.Highlight.PivotColor
	p.MarkedColor = m.cfg.Highlight.MarkedColor
	p.DimFactor = m.cfg.Highlight.DimFactor
	p.Monophyletic = state.Monophyletic
	p.Dimming = state.Dimming
	p.TaxaColors = state.ColorCategories
	return p
}

func (m *Model) refreshMSA(state store.State) {
	payload := m.store.Payload()
	if payload == nil || len(payload.MSA.Sequences) == 0 {
		m.msaView.SetContent("no alignment loaded")
		return
	}
	ev := msa.BuildEvent(payload, m.store.Resolver(), m.store.Highlight(), state.CurrentTreeIndex)
	pal := theme.Current()
	marked := lipgloss.NewStyle().Foreground(pal.MarkedSubtree)
	normal := lipgloss.NewStyle().Foreground(pal.Text)

	highlighted := make(map[string]bool, len(ev.HighlightedTaxa))
	for _, name := range ev.HighlightedTaxa {
		highlighted[name] = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "window %d/%d  columns %d-%d\n",
		ev.Window.Index+1, ev.Window.TotalWindows, ev.Window.Start+1, ev.Window.End+1)
	names := payload.SortedLeaves
	if len(names) == 0 {
		for name := range payload.MSA.Sequences {
			names = append(names, name)
		}
	}
	for _, name := range names {
		seq, ok := payload.MSA.Sequences[name]
		if !ok {
			continue
		}
		slice := sliceWindow(seq, ev.Window)
		style := normal
		if highlighted[name] {
			style = marked
		}
		b.WriteString(style.Render(fmt.Sprintf("%-12s %s", name, slice)))
		b.WriteString("\n")
	}
	m.msaView.SetContent(b.String())
}

func sliceWindow(seq string, w msa.WindowInfo) string {
	if w.End < 0 || w.Start >= len(seq) {
		return ""
	}
	end := w.End + 1
	if end > len(seq) {
		end = len(seq)
	}
	return seq[w.Start:end]
}

func (m *Model) View() string {
	pal := theme.Current()
	state := m.store.State()

	header := lipgloss.NewStyle().Foreground(pal.Primary).Bold(true).
		Render(titleLine(state))

	body := m.renderer.View()
	if body == "" {
		body = lipgloss.NewStyle().Foreground(pal.Overlay).Italic(true).
			Render("no trees loaded")
	}

	track := m.manager.Widget().View()
	prog := m.progBar.ViewAs(state.AnimationProgress)
	status := m.statusLine(state)

	sections := []string{header, body, track, prog, status}
	if m.showMSA {
		sections = append(sections, m.msaView.View())
	}
	if m.showHelp {
		sections = append(sections, m.helpText())
	}
	return strings.Join(sections, "\n\n")
}

func titleLine(state store.State) string {
	name := state.FileName
	if name == "" {
		name = "phylomovie"
	}
	return fmt.Sprintf("%s  tree %d/%d", name, state.CurrentTreeIndex+1, state.TreeCount)
}

func (m *Model) statusLine(state store.State) string {
	pal := theme.Current()
	mode := "paused"
	if state.Playing {
		mode = "playing"
	}
	c := state.Counters
	parts := []string{
		fmt.Sprintf("%s %.2fx", mode, state.AnimationSpeed),
		fmt.Sprintf("segment %d/%d", c.SegmentIndex+1, c.TotalSegments),
		fmt.Sprintf("step %d/%d", c.TreeInSegment, c.TreesInSegment),
	}
	if d := m.distanceReadout(state.CurrentTreeIndex); d != "" {
		parts = append(parts, d)
	}
	if state.Trails {
		parts = append(parts, "trails")
	}
	if state.CameraOrthographic {
		parts = append(parts, "ortho")
	}
	return lipgloss.NewStyle().Foreground(pal.Subtext).
		Render(strings.Join(parts, "  │  "))
}

// distanceReadout interpolates the Robinson-Foulds series at the current
// position's fractional distance index.
func (m *Model) distanceReadout(idx int) string {
	res := m.store.Resolver()
	payload := m.store.Payload()
	if res == nil || payload == nil || len(payload.Distances.RobinsonFoulds) == 0 {
		return ""
	}
	di := res.DistanceIndex(idx)
	rf := interpolate(payload.Distances.RobinsonFoulds, di)
	out := fmt.Sprintf("rf %.2f", rf)
	if len(payload.Distances.WeightedRobinsonFoulds) > 0 {
		out += fmt.Sprintf("  wrf %.2f", interpolate(payload.Distances.WeightedRobinsonFoulds, di))
	}
	return out
}

func interpolate(series []float64, di float64) float64 {
	if len(series) == 0 {
		return 0
	}
	if di <= 0 {
		return series[0]
	}
	if di >= float64(len(series)-1) {
		return series[len(series)-1]
	}
	lo := int(math.Floor(di))
	frac := di - float64(lo)
	return series[lo]*(1-frac) + series[lo+1]*frac
}

func (m *Model) helpText() string {
	pal := theme.Current()
	keys := []key.Binding{
		m.keys.ScrubLeft, m.keys.ScrubRight, m.keys.PlayPause,
		m.keys.NextAnchor, m.keys.PrevAnchor, m.keys.StepForward, m.keys.StepBack,
		m.keys.Marked, m.keys.PivotEdges, m.keys.Dimming, m.keys.Monophyletic,
		m.keys.Trails, m.keys.Camera,
		m.keys.Alignment, m.keys.SpeedUp, m.keys.SpeedDown, m.keys.Quit,
	}
	parts := make([]string, 0, len(keys))
	for _, b := range keys {
		h := b.Help()
		parts = append(parts, fmt.Sprintf("%s %s", h.Key, h.Desc))
	}
	text := strings.Join(parts, "  ·  ")
	width := m.width - 4
	if width < 20 {
		width = 78
	}
	return lipgloss.NewStyle().Foreground(pal.Overlay).
		Render(wordwrap.String(text, width))
}

// Teardown releases every collaborator. Safe to call twice.
func (m *Model) Teardown() {
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
	m.clock.Stop()
	m.manager.Teardown()
	m.renderer.Destroy()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
