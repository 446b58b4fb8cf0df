// Package workspace implements the windowing layer: the space registry
// (fixed workspace partitions plus the active-space pointer) and the panel
// manager (panel lifecycle, stacking, tabs). Layout state is disjoint from
// the entity store's content state, so the two layers never share a lock.
package workspace

import (
	"sort"
	"sync"

	"nexus/internal/logging"
	"nexus/internal/types"
)

// Limits holds the geometry tuning for panel placement.
type Limits struct {
	CascadeStep   int // offset applied between cascaded panels
	OriginX       int // first-panel position in an empty space
	OriginY       int
	DefaultWidth  int // panel size when the caller gives none
	DefaultHeight int
	TileGap       int // spacing between tiled panels
}

// DefaultLimits returns the placement tuning used when no config is loaded.
func DefaultLimits() Limits {
	return Limits{
		CascadeStep:   40,
		OriginX:       80,
		OriginY:       80,
		DefaultWidth:  480,
		DefaultHeight: 600,
		TileGap:       16,
	}
}

// spaceNames maps the fixed enumeration to display names.
var spaceNames = map[types.SpaceID]string{
	types.SpacePersonal:    "Personal",
	types.SpaceSocial:      "Social",
	types.SpaceStudio:      "Studio",
	types.SpaceCreator:     "Creator",
	types.SpaceGaming:      "Gaming",
	types.SpaceAI:          "AI",
	types.SpaceCityBrowser: "City Browser",
	types.SpaceDevGrid:     "Dev Grid",
	types.SpaceGovernance:  "Governance",
	types.SpaceEngineering: "Engineering",
}

// Registry owns the fixed set of spaces and the active-space pointer. Every
// space exists from construction, even when empty. The per-space z-counter
// is monotonic and never recycled: a reopened panel can never inherit a
// closed panel's stacking position.
type Registry struct {
	mu         sync.RWMutex
	spaces     map[types.SpaceID]*types.Space
	active     types.SpaceID
	zCounter   map[types.SpaceID]int
	lastOpened map[types.SpaceID]string     // panel id, for cascade placement
	panelSpace map[string]types.SpaceID     // panel id -> owning space
	limits     Limits
}

// NewRegistry creates a registry with all spaces pre-populated empty.
func NewRegistry(limits Limits) *Registry {
	r := &Registry{
		spaces:     make(map[types.SpaceID]*types.Space),
		active:     types.SpacePersonal,
		zCounter:   make(map[types.SpaceID]int),
		lastOpened: make(map[types.SpaceID]string),
		panelSpace: make(map[string]types.SpaceID),
		limits:     limits,
	}
	for _, id := range types.AllSpaceIDs() {
		r.spaces[id] = &types.Space{ID: id, Name: spaceNames[id]}
	}
	return r
}

// SetLimits replaces the placement tuning; picked up by the next placement
// operation. Existing panel geometry is untouched.
func (r *Registry) SetLimits(limits Limits) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits = limits
}

// SetBackground sets a space's background.
func (r *Registry) SetBackground(id types.SpaceID, background string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.spaces[id]
	if !ok {
		return types.NotFound("space", string(id))
	}
	sp.Background = background
	return nil
}

// ActiveSpaceID returns the active space.
func (r *Registry) ActiveSpaceID() types.SpaceID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// SwitchActiveSpace moves the active pointer. Ephemeral non-pinned panels
// of the space being left are cleared; pinned panels always survive.
func (r *Registry) SwitchActiveSpace(id types.SpaceID) error {
	if !id.Valid() {
		return types.NotFound("space", string(id))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id == r.active {
		return nil
	}

	leaving := r.spaces[r.active]
	kept := leaving.Panels[:0]
	for _, p := range leaving.Panels {
		if p.IsEphemeral && !p.IsPinned {
			delete(r.panelSpace, p.ID)
			if r.lastOpened[leaving.ID] == p.ID {
				delete(r.lastOpened, leaving.ID)
			}
			continue
		}
		kept = append(kept, p)
	}
	leaving.Panels = kept

	r.active = id
	logging.Spaces("active space: %s", id)
	return nil
}

// LayoutOf returns the space's panels ordered by ascending z-index; the
// caller renders low-to-high so the last panel is visually topmost. The
// returned panels are copies.
func (r *Registry) LayoutOf(id types.SpaceID) ([]types.Panel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sp, ok := r.spaces[id]
	if !ok {
		return nil, types.NotFound("space", string(id))
	}
	out := make([]types.Panel, 0, len(sp.Panels))
	for _, p := range sp.Panels {
		out = append(out, clonePanel(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out, nil
}

// SpaceByID returns a copy of the space with its panels in z order.
func (r *Registry) SpaceByID(id types.SpaceID) (types.Space, error) {
	panels, err := r.LayoutOf(id)
	if err != nil {
		return types.Space{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	sp := r.spaces[id]
	out := types.Space{ID: sp.ID, Name: sp.Name, Background: sp.Background}
	out.Panels = make([]*types.Panel, len(panels))
	for i := range panels {
		out.Panels[i] = &panels[i]
	}
	return out, nil
}

// ReferencesNode reports why a node is still referenced by layout state:
// any panel or tab whose payload targets the node directly, or targets one
// of the node's streams. streamOwner resolves a stream id to its owning
// node. Returns "" when nothing references the node.
func (r *Registry) ReferencesNode(nodeID string, streamOwner func(streamID string) (string, bool)) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := func(data types.PanelPayload) bool {
		if data == nil {
			return false
		}
		if data.NodeRef() == nodeID {
			return true
		}
		if sid := data.StreamRef(); sid != "" {
			if owner, ok := streamOwner(sid); ok && owner == nodeID {
				return true
			}
		}
		return false
	}

	for _, id := range types.AllSpaceIDs() {
		for _, p := range r.spaces[id].Panels {
			if targets(p.Data) {
				return "panel " + p.ID + " in space " + string(id)
			}
			for i := range p.Tabs {
				if targets(p.Tabs[i].Data) {
					return "tab " + p.Tabs[i].ID + " of panel " + p.ID + " in space " + string(id)
				}
			}
		}
	}
	return ""
}

// findPanelLocked resolves a panel id to its space and panel.
func (r *Registry) findPanelLocked(panelID string) (*types.Space, *types.Panel, error) {
	spaceID, ok := r.panelSpace[panelID]
	if !ok {
		return nil, nil, types.NotFound("panel", panelID)
	}
	sp := r.spaces[spaceID]
	for _, p := range sp.Panels {
		if p.ID == panelID {
			return sp, p, nil
		}
	}
	return nil, nil, types.NotFound("panel", panelID)
}

// maxZLocked returns the highest z-index currently present in a space.
func maxZLocked(sp *types.Space) int {
	max := 0
	for _, p := range sp.Panels {
		if p.ZIndex > max {
			max = p.ZIndex
		}
	}
	return max
}

// removePanelLocked detaches a panel from its space and drops its indexes.
func (r *Registry) removePanelLocked(sp *types.Space, panelID string) {
	for i, p := range sp.Panels {
		if p.ID == panelID {
			sp.Panels = append(sp.Panels[:i], sp.Panels[i+1:]...)
			break
		}
	}
	delete(r.panelSpace, panelID)
	if r.lastOpened[sp.ID] == panelID {
		delete(r.lastOpened, sp.ID)
	}
}

func clonePanel(p *types.Panel) types.Panel {
	cp := *p
	cp.Tabs = append([]types.Tab(nil), p.Tabs...)
	return cp
}
