// Package session provides the aggregate root of the nexus engine. External
// collaborators (auth, navigation, real-time feed, renderer) read and mutate
// through State and never touch the sub-stores directly, which is what keeps
// the integrity invariants enforceable in one place.
package session

import (
	"sync"

	"nexus/internal/config"
	"nexus/internal/entity"
	"nexus/internal/logging"
	"nexus/internal/types"
	"nexus/internal/workspace"
)

// State is one session's aggregate: the current user, the active node
// pointer, and the three sub-stores. One State per process; sub-stores are
// never shared across instances.
type State struct {
	mu           sync.RWMutex
	currentUser  *types.User
	activeNodeID string

	entities *entity.Store
	registry *workspace.Registry
	panels   *workspace.Manager
}

// New creates a session with all spaces pre-populated empty. The entity
// store's delete guard is wired back through the workspace layer so node
// deletion respects open panels.
func New(cfg *config.Config) *State {
	if cfg == nil {
		cfg = config.Default()
	}
	reg := workspace.NewRegistry(limitsFrom(cfg))
	s := &State{
		entities: entity.New(),
		registry: reg,
		panels:   workspace.NewManager(reg),
	}
	for id, sc := range cfg.Spaces {
		_ = reg.SetBackground(types.SpaceID(id), sc.Background)
	}
	s.entities.SetReferenceCheck(s.nodeReferences)
	logging.Session("session created, active space %s", reg.ActiveSpaceID())
	return s
}

func limitsFrom(cfg *config.Config) workspace.Limits {
	w := cfg.Workspace
	return workspace.Limits{
		CascadeStep:   w.CascadeStep,
		OriginX:       w.OriginX,
		OriginY:       w.OriginY,
		DefaultWidth:  w.DefaultWidth,
		DefaultHeight: w.DefaultHeight,
		TileGap:       w.TileGap,
	}
}

// ApplyConfig picks up tunable settings from a freshly loaded config (the
// config watcher's callback target). Entity and layout state are untouched.
func (s *State) ApplyConfig(cfg *config.Config) {
	s.registry.SetLimits(limitsFrom(cfg))
	for id, sc := range cfg.Spaces {
		_ = s.registry.SetBackground(types.SpaceID(id), sc.Background)
	}
}

// nodeReferences reports why a node cannot be deleted yet: the active-node
// pointer or any panel/tab still targeting it (directly or via a stream).
func (s *State) nodeReferences(nodeID string) string {
	s.mu.RLock()
	active := s.activeNodeID
	s.mu.RUnlock()
	if active == nodeID {
		return "active node pointer"
	}
	return s.registry.ReferencesNode(nodeID, func(streamID string) (string, bool) {
		st, err := s.entities.StreamByID(streamID)
		if err != nil {
			return "", false
		}
		return st.NodeID, true
	})
}

// =============================================================================
// SESSION POINTERS
// =============================================================================

// SetCurrentUser signs a user in (or out, with nil). A signed-in user is
// upserted into the entity store so their id resolves as a message author.
func (s *State) SetCurrentUser(u *types.User) error {
	if u == nil {
		s.mu.Lock()
		s.currentUser = nil
		s.mu.Unlock()
		logging.Session("current user cleared")
		return nil
	}
	if err := s.entities.UpsertUser(*u); err != nil {
		return err
	}
	cp := *u
	s.mu.Lock()
	s.currentUser = &cp
	s.mu.Unlock()
	logging.Session("current user: %s (%s)", u.ID, u.Username)
	return nil
}

// CurrentUser returns the signed-in user, or nil.
func (s *State) CurrentUser() *types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentUser == nil {
		return nil
	}
	cp := *s.currentUser
	return &cp
}

// SetActiveNode points the session at a node; "" clears the pointer. A
// non-empty id must resolve in the entity store.
func (s *State) SetActiveNode(nodeID string) error {
	if nodeID != "" {
		if _, err := s.entities.NodeByID(nodeID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.activeNodeID = nodeID
	s.mu.Unlock()
	logging.Session("active node: %q", nodeID)
	return nil
}

// ActiveNodeID returns the active node pointer, or "".
func (s *State) ActiveNodeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeNodeID
}

// =============================================================================
// ENTITY OPERATIONS
// =============================================================================

// UpsertUser inserts or replaces a user record.
func (s *State) UpsertUser(u types.User) error { return s.entities.UpsertUser(u) }

// UpsertNode inserts or replaces a node.
func (s *State) UpsertNode(n types.Node) error { return s.entities.UpsertNode(n) }

// UpsertStream inserts or replaces a stream within its node.
func (s *State) UpsertStream(st types.Stream) error { return s.entities.UpsertStream(st) }

// UpsertMessage inserts or replaces a message.
func (s *State) UpsertMessage(m types.Message) error { return s.entities.UpsertMessage(m) }

// UpsertModule inserts or replaces a bot module catalog entry.
func (s *State) UpsertModule(m types.BotModule) error { return s.entities.UpsertModule(m) }

// DeleteNode removes a node once nothing references it.
func (s *State) DeleteNode(nodeID string) error { return s.entities.DeleteNode(nodeID) }

// DeleteMessage removes a message that has no replies.
func (s *State) DeleteMessage(id string) error { return s.entities.DeleteMessage(id) }

// React toggles the current viewer's reaction on a message.
func (s *State) React(messageID, emoji, userID string) error {
	return s.entities.React(messageID, emoji, userID)
}

// Reads.

func (s *State) UserByID(id string) (types.User, error)     { return s.entities.UserByID(id) }
func (s *State) Users() []types.User                        { return s.entities.Users() }
func (s *State) NodeByID(id string) (types.Node, error)     { return s.entities.NodeByID(id) }
func (s *State) Nodes() []types.Node                        { return s.entities.Nodes() }
func (s *State) StreamByID(id string) (types.Stream, error) { return s.entities.StreamByID(id) }
func (s *State) Modules() []types.BotModule                 { return s.entities.Modules() }

// MessagesFor returns a stream's messages in render order.
func (s *State) MessagesFor(streamID string) ([]types.Message, error) {
	return s.entities.MessagesFor(streamID)
}

// MessageByID returns one message.
func (s *State) MessageByID(id string) (types.Message, error) {
	return s.entities.MessageByID(id)
}

// =============================================================================
// WORKSPACE OPERATIONS
// =============================================================================

func (s *State) OpenPanel(spaceID types.SpaceID, spec workspace.PanelSpec) (types.Panel, error) {
	return s.panels.OpenPanel(spaceID, spec)
}

func (s *State) Focus(panelID string) error          { return s.panels.Focus(panelID) }
func (s *State) Move(panelID string, x, y int) error { return s.panels.Move(panelID, x, y) }
func (s *State) Resize(panelID string, w, h int) error {
	return s.panels.Resize(panelID, w, h)
}
func (s *State) Minimize(panelID string) error { return s.panels.Minimize(panelID) }
func (s *State) Restore(panelID string) error  { return s.panels.Restore(panelID) }
func (s *State) Pin(panelID string) error      { return s.panels.Pin(panelID) }
func (s *State) Unpin(panelID string) error    { return s.panels.Unpin(panelID) }

func (s *State) MergeAsTab(sourceID, targetID string) error {
	return s.panels.MergeAsTab(sourceID, targetID)
}

func (s *State) SplitTab(panelID, tabID string) error {
	return s.panels.SplitTab(panelID, tabID)
}

func (s *State) ClosePanel(panelID string, force bool) error {
	return s.panels.ClosePanel(panelID, force)
}

func (s *State) CloseAll(spaceID types.SpaceID, force bool) error {
	return s.panels.CloseAll(spaceID, force)
}

func (s *State) Cascade(spaceID types.SpaceID) error { return s.panels.Cascade(spaceID) }
func (s *State) Tile(spaceID types.SpaceID) error    { return s.panels.Tile(spaceID) }

func (s *State) SwitchActiveSpace(id types.SpaceID) error {
	return s.registry.SwitchActiveSpace(id)
}

func (s *State) ActiveSpaceID() types.SpaceID { return s.registry.ActiveSpaceID() }

func (s *State) LayoutOf(id types.SpaceID) ([]types.Panel, error) {
	return s.registry.LayoutOf(id)
}

func (s *State) SpaceByID(id types.SpaceID) (types.Space, error) {
	return s.registry.SpaceByID(id)
}

// AdoptPanel installs an already-materialized panel; used by the snapshot
// collaborator when restoring a saved layout.
func (s *State) AdoptPanel(spaceID types.SpaceID, p types.Panel) error {
	return s.panels.AdoptPanel(spaceID, p)
}
