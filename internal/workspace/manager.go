package workspace

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"nexus/internal/logging"
	"nexus/internal/types"
)

// Position pins a panel spec to explicit coordinates. (0,0) is a valid
// position; leaving PanelSpec.At nil asks for cascade placement instead.
type Position struct {
	X int
	Y int
}

// PanelSpec describes a panel to open. A nil At means "no explicit
// position": the panel is placed with a deterministic cascade offset from
// the last panel opened in the space. Zero Width/Height fall back to the
// configured defaults.
type PanelSpec struct {
	Kind      types.PanelKind
	Title     string
	At        *Position
	Width     int
	Height    int
	Pinned    bool
	Ephemeral bool
	Data      types.PanelPayload
}

// Manager drives panel lifecycle on top of the registry's state. All
// operations are synchronous, total functions over the current snapshot:
// they either fully apply or fully reject.
type Manager struct {
	reg *Registry
}

// NewManager creates a manager over the registry.
func NewManager(reg *Registry) *Manager {
	return &Manager{reg: reg}
}

// OpenPanel allocates a new panel in the space. The panel gets a fresh id
// and the next z-index from the space's monotonic counter, making it
// focused by construction.
func (m *Manager) OpenPanel(spaceID types.SpaceID, spec PanelSpec) (types.Panel, error) {
	if spec.Kind == "" {
		return types.Panel{}, types.Integrityf("panel kind required")
	}
	if spec.Data != nil && spec.Data.PayloadKind() != spec.Kind {
		return types.Panel{}, types.Integrityf("payload kind %q does not match panel kind %q", spec.Data.PayloadKind(), spec.Kind)
	}

	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.spaces[spaceID]
	if !ok {
		return types.Panel{}, types.NotFound("space", string(spaceID))
	}
	p := m.openLocked(sp, spec)
	logging.Panels("panel opened: %s (%s) in %s z=%d", p.ID, p.Kind, spaceID, p.ZIndex)
	return clonePanel(p), nil
}

// openLocked does the allocation; callers hold the registry lock.
func (m *Manager) openLocked(sp *types.Space, spec PanelSpec) *types.Panel {
	r := m.reg
	lim := r.limits

	var x, y int
	if spec.At != nil {
		x, y = spec.At.X, spec.At.Y
	} else {
		x, y = lim.OriginX, lim.OriginY
		if lastID, ok := r.lastOpened[sp.ID]; ok {
			if _, last, err := r.findPanelLocked(lastID); err == nil {
				x = last.X + lim.CascadeStep
				y = last.Y + lim.CascadeStep
			}
		}
	}
	w, h := spec.Width, spec.Height
	if w <= 0 {
		w = lim.DefaultWidth
	}
	if h <= 0 {
		h = lim.DefaultHeight
	}

	r.zCounter[sp.ID]++
	p := &types.Panel{
		ID:          uuid.NewString(),
		Kind:        spec.Kind,
		Title:       spec.Title,
		X:           x,
		Y:           y,
		Width:       w,
		Height:      h,
		IsPinned:    spec.Pinned,
		IsEphemeral: spec.Ephemeral,
		ZIndex:      r.zCounter[sp.ID],
		Data:        spec.Data,
	}
	sp.Panels = append(sp.Panels, p)
	r.panelSpace[p.ID] = sp.ID
	r.lastOpened[sp.ID] = p.ID
	return p
}

// Focus raises the panel to the top of its space. No-op when the panel is
// already topmost.
func (m *Manager) Focus(panelID string) error {
	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, p, err := r.findPanelLocked(panelID)
	if err != nil {
		return err
	}
	m.focusLocked(sp, p)
	return nil
}

func (m *Manager) focusLocked(sp *types.Space, p *types.Panel) {
	if p.ZIndex == maxZLocked(sp) {
		return
	}
	r := m.reg
	r.zCounter[sp.ID]++
	p.ZIndex = r.zCounter[sp.ID]
	logging.PanelsDebug("panel focused: %s z=%d", p.ID, p.ZIndex)
}

// Move repositions a panel. Minimized panels accept moves; the new position
// applies to the restored geometry.
func (m *Manager) Move(panelID string, x, y int) error {
	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	_, p, err := r.findPanelLocked(panelID)
	if err != nil {
		return err
	}
	p.X, p.Y = x, y
	return nil
}

// Resize changes a panel's size.
func (m *Manager) Resize(panelID string, w, h int) error {
	if w <= 0 || h <= 0 {
		return types.Integrityf("panel size must be positive, got %dx%d", w, h)
	}
	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	_, p, err := r.findPanelLocked(panelID)
	if err != nil {
		return err
	}
	p.Width, p.Height = w, h
	return nil
}

// Minimize collapses a panel.
func (m *Manager) Minimize(panelID string) error {
	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	_, p, err := r.findPanelLocked(panelID)
	if err != nil {
		return err
	}
	p.IsMinimized = true
	return nil
}

// Restore brings a minimized panel back and focuses it.
func (m *Manager) Restore(panelID string) error {
	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, p, err := r.findPanelLocked(panelID)
	if err != nil {
		return err
	}
	p.IsMinimized = false
	m.focusLocked(sp, p)
	return nil
}

// Pin exempts a panel from bulk clears and space teardown.
func (m *Manager) Pin(panelID string) error { return m.setPinned(panelID, true) }

// Unpin removes the exemption.
func (m *Manager) Unpin(panelID string) error { return m.setPinned(panelID, false) }

func (m *Manager) setPinned(panelID string, pinned bool) error {
	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	_, p, err := r.findPanelLocked(panelID)
	if err != nil {
		return err
	}
	p.IsPinned = pinned
	return nil
}

// MergeAsTab moves the source panel's content into the target panel's tab
// bar and deletes the source as a standalone panel. The newly added tab
// becomes active. A tab-less target first seeds its own content as a tab
// (carrying the panel's id), so the tab bar shows both surfaces and
// SplitTab can later collapse back to a plain panel.
func (m *Manager) MergeAsTab(sourceID, targetID string) error {
	if sourceID == targetID {
		return types.Conflictf("cannot merge panel %q into itself", sourceID)
	}
	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	srcSpace, src, err := r.findPanelLocked(sourceID)
	if err != nil {
		return err
	}
	tgtSpace, tgt, err := r.findPanelLocked(targetID)
	if err != nil {
		return err
	}
	if srcSpace.ID != tgtSpace.ID {
		return types.Conflictf("panels %q and %q are in different spaces (%s, %s)", sourceID, targetID, srcSpace.ID, tgtSpace.ID)
	}

	if len(tgt.Tabs) == 0 {
		tgt.Tabs = append(tgt.Tabs, types.Tab{ID: tgt.ID, Kind: tgt.Kind, Title: tgt.Title, Data: tgt.Data})
	}

	// A tab-less source is carried under its own panel id; the source panel
	// is deleted below, so the id stays unique and a later SplitTab can
	// address the tab by the original panel id.
	var carried []types.Tab
	if len(src.Tabs) == 0 {
		carried = []types.Tab{{ID: src.ID, Kind: src.Kind, Title: src.Title, Data: src.Data}}
	} else {
		carried = append([]types.Tab(nil), src.Tabs...)
	}
	tgt.Tabs = append(tgt.Tabs, carried...)
	tgt.ActiveTabID = carried[0].ID

	r.removePanelLocked(srcSpace, sourceID)
	logging.Panels("panel merged: %s -> %s (%d tabs)", sourceID, targetID, len(tgt.Tabs))
	return nil
}

// SplitTab extracts a tab back into its own standalone panel, cascade-offset
// from the origin panel and focused. The origin panel's own seeded tab
// cannot be split out; when it is the only tab left, the tab bar collapses.
func (m *Manager) SplitTab(panelID, tabID string) error {
	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	sp, p, err := r.findPanelLocked(panelID)
	if err != nil {
		return err
	}
	tab := p.TabByID(tabID)
	if tab == nil {
		return types.NotFound("tab", tabID)
	}
	if tab.ID == p.ID {
		return types.Conflictf("tab %q is the panel's own surface", tabID)
	}

	extracted := *tab
	for i := range p.Tabs {
		if p.Tabs[i].ID == tabID {
			p.Tabs = append(p.Tabs[:i], p.Tabs[i+1:]...)
			break
		}
	}
	if len(p.Tabs) == 1 && p.Tabs[0].ID == p.ID {
		p.Tabs = nil
		p.ActiveTabID = ""
	} else if p.ActiveTabID == tabID {
		p.ActiveTabID = p.Tabs[0].ID
	}

	lim := r.limits
	m.openLocked(sp, PanelSpec{
		Kind:   extracted.Kind,
		Title:  extracted.Title,
		At:     &Position{X: p.X + lim.CascadeStep, Y: p.Y + lim.CascadeStep},
		Width:  p.Width,
		Height: p.Height,
		Data:   extracted.Data,
	})
	logging.Panels("tab split: %s out of %s", tabID, panelID)
	return nil
}

// ClosePanel removes a panel from its space. A pinned panel refuses unless
// force is set. Removal is immediate: there is no soft-deleted state.
func (m *Manager) ClosePanel(panelID string, force bool) error {
	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, p, err := r.findPanelLocked(panelID)
	if err != nil {
		return err
	}
	if p.IsPinned && !force {
		return types.Conflictf("panel %q is pinned", panelID)
	}
	r.removePanelLocked(sp, panelID)
	logging.Panels("panel closed: %s", panelID)
	return nil
}

// CloseAll removes every panel in a space. Pinned panels survive unless
// force is set.
func (m *Manager) CloseAll(spaceID types.SpaceID, force bool) error {
	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.spaces[spaceID]
	if !ok {
		return types.NotFound("space", string(spaceID))
	}
	kept := sp.Panels[:0]
	for _, p := range sp.Panels {
		if p.IsPinned && !force {
			kept = append(kept, p)
			continue
		}
		delete(r.panelSpace, p.ID)
		if r.lastOpened[spaceID] == p.ID {
			delete(r.lastOpened, spaceID)
		}
	}
	sp.Panels = kept
	return nil
}

// Cascade re-lays a space's panels diagonally from the origin, restacking
// z-indexes in their current order.
func (m *Manager) Cascade(spaceID types.SpaceID) error {
	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.spaces[spaceID]
	if !ok {
		return types.NotFound("space", string(spaceID))
	}
	ordered := append([]*types.Panel(nil), sp.Panels...)
	sortPanelsByZ(ordered)
	lim := r.limits
	for i, p := range ordered {
		p.X = lim.OriginX + i*lim.CascadeStep
		p.Y = lim.OriginY + i*lim.CascadeStep
		r.zCounter[spaceID]++
		p.ZIndex = r.zCounter[spaceID]
		p.IsMinimized = false
	}
	return nil
}

// Tile arranges a space's non-minimized panels in a near-square grid with
// the configured gap, keeping each panel's size.
func (m *Manager) Tile(spaceID types.SpaceID) error {
	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.spaces[spaceID]
	if !ok {
		return types.NotFound("space", string(spaceID))
	}
	var visible []*types.Panel
	for _, p := range sp.Panels {
		if !p.IsMinimized {
			visible = append(visible, p)
		}
	}
	if len(visible) == 0 {
		return nil
	}
	sortPanelsByZ(visible)
	cols := int(math.Ceil(math.Sqrt(float64(len(visible)))))
	lim := r.limits
	for i, p := range visible {
		col, row := i%cols, i/cols
		p.X = lim.OriginX + col*(p.Width+lim.TileGap)
		p.Y = lim.OriginY + row*(p.Height+lim.TileGap)
	}
	return nil
}

// AdoptPanel installs an already-materialized panel (snapshot restore). The
// space's z-counter advances past the adopted z-index so future panels
// still stack above it.
func (m *Manager) AdoptPanel(spaceID types.SpaceID, p types.Panel) error {
	if p.ID == "" {
		return types.Integrityf("panel id required")
	}
	r := m.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.spaces[spaceID]
	if !ok {
		return types.NotFound("space", string(spaceID))
	}
	if _, exists := r.panelSpace[p.ID]; exists {
		return types.Conflictf("panel %q already exists", p.ID)
	}
	if len(p.Tabs) > 0 && p.TabByID(p.ActiveTabID) == nil {
		return types.Integrityf("panel %q active tab %q not among its tabs", p.ID, p.ActiveTabID)
	}
	cp := clonePanel(&p)
	sp.Panels = append(sp.Panels, &cp)
	r.panelSpace[p.ID] = spaceID
	if p.ZIndex > r.zCounter[spaceID] {
		r.zCounter[spaceID] = p.ZIndex
	}
	return nil
}

func sortPanelsByZ(panels []*types.Panel) {
	sort.Slice(panels, func(i, j int) bool { return panels[i].ZIndex < panels[j].ZIndex })
}
