package types

// PanelKind enumerates the surface kinds a panel can host.
type PanelKind string

const (
	PanelChat               PanelKind = "chat"
	PanelFeed               PanelKind = "feed"
	PanelBotForge           PanelKind = "bot-forge"
	PanelStudio             PanelKind = "studio"
	PanelAI                 PanelKind = "ai"
	PanelProfile            PanelKind = "profile"
	PanelNotifications      PanelKind = "notifications"
	PanelNodeExplorer       PanelKind = "node-explorer"
	PanelCreator            PanelKind = "creator"
	PanelAssetLibrary       PanelKind = "asset-library"
	PanelCreatorTools       PanelKind = "creator-tools"
	PanelNeuralGraph        PanelKind = "neural-graph"
	PanelTacticalMap        PanelKind = "tactical-map"
	PanelCityBrowser        PanelKind = "city-browser"
	PanelDevGrid            PanelKind = "dev-grid"
	PanelTrustSafety        PanelKind = "trust-safety"
	PanelEngineeringConsole PanelKind = "engineering-console"
	PanelTeamDashboard      PanelKind = "team-dashboard"
)

// PanelPayload is the tagged content slot of a panel. Each panel kind that
// carries content defines its own payload type; StreamRef and NodeRef expose
// the entity the surface ultimately targets so reference checks (node
// deletion, data resolution) never need to type-switch.
type PanelPayload interface {
	PayloadKind() PanelKind
	StreamRef() string // id of the targeted stream, or ""
	NodeRef() string   // id of the targeted node, or ""
}

// ChatPayload targets one stream.
type ChatPayload struct {
	StreamID string
}

func (p ChatPayload) PayloadKind() PanelKind { return PanelChat }
func (p ChatPayload) StreamRef() string      { return p.StreamID }
func (p ChatPayload) NodeRef() string        { return "" }

// FeedPayload aggregates topics across streams.
type FeedPayload struct {
	TopicIDs []string
}

func (p FeedPayload) PayloadKind() PanelKind { return PanelFeed }
func (p FeedPayload) StreamRef() string      { return "" }
func (p FeedPayload) NodeRef() string        { return "" }

// BotForgePayload carries the modules being edited in the forge.
type BotForgePayload struct {
	ModuleIDs []string
}

func (p BotForgePayload) PayloadKind() PanelKind { return PanelBotForge }
func (p BotForgePayload) StreamRef() string      { return "" }
func (p BotForgePayload) NodeRef() string        { return "" }

// ProfilePayload targets one user.
type ProfilePayload struct {
	UserID string
}

func (p ProfilePayload) PayloadKind() PanelKind { return PanelProfile }
func (p ProfilePayload) StreamRef() string      { return "" }
func (p ProfilePayload) NodeRef() string        { return "" }

// NodeScopedPayload targets one node; used by the surfaces that render a
// whole node (explorer, neural graph, tactical map, dev grid, dashboard).
type NodeScopedPayload struct {
	Kind   PanelKind
	NodeID string
}

func (p NodeScopedPayload) PayloadKind() PanelKind { return p.Kind }
func (p NodeScopedPayload) StreamRef() string      { return "" }
func (p NodeScopedPayload) NodeRef() string        { return p.NodeID }

// NoPayload marks surfaces that are self-contained (notifications,
// city-browser, asset library, consoles).
type NoPayload struct {
	Kind PanelKind
}

func (p NoPayload) PayloadKind() PanelKind { return p.Kind }
func (p NoPayload) StreamRef() string      { return "" }
func (p NoPayload) NodeRef() string        { return "" }

// Tab is one tabbed surface nested inside a panel.
type Tab struct {
	ID    string
	Kind  PanelKind
	Title string
	Data  PanelPayload
}

// Panel is one visible or minimized UI surface. The panel with the highest
// ZIndex in its space is focused. A pinned panel survives bulk clears and
// space teardown; an ephemeral panel (transient preview) is dropped when its
// space is switched away from, unless pinned.
type Panel struct {
	ID          string
	Kind        PanelKind
	Title       string
	X           int
	Y           int
	Width       int
	Height      int
	IsMinimized bool
	IsPinned    bool
	IsEphemeral bool
	ZIndex      int
	Data        PanelPayload
	Tabs        []Tab
	ActiveTabID string
}

// TabByID returns the panel's tab with the given id, or nil.
func (p *Panel) TabByID(id string) *Tab {
	for i := range p.Tabs {
		if p.Tabs[i].ID == id {
			return &p.Tabs[i]
		}
	}
	return nil
}

// SpaceID enumerates the fixed workspace partitions.
type SpaceID string

const (
	SpacePersonal    SpaceID = "personal"
	SpaceSocial      SpaceID = "social"
	SpaceStudio      SpaceID = "studio"
	SpaceCreator     SpaceID = "creator"
	SpaceGaming      SpaceID = "gaming"
	SpaceAI          SpaceID = "ai"
	SpaceCityBrowser SpaceID = "city-browser"
	SpaceDevGrid     SpaceID = "dev-grid"
	SpaceGovernance  SpaceID = "governance"
	SpaceEngineering SpaceID = "engineering"
)

// AllSpaceIDs returns the fixed enumeration in its canonical order.
func AllSpaceIDs() []SpaceID {
	return []SpaceID{
		SpacePersonal, SpaceSocial, SpaceStudio, SpaceCreator, SpaceGaming,
		SpaceAI, SpaceCityBrowser, SpaceDevGrid, SpaceGovernance, SpaceEngineering,
	}
}

// Valid reports whether the id belongs to the fixed enumeration.
func (s SpaceID) Valid() bool {
	for _, id := range AllSpaceIDs() {
		if id == s {
			return true
		}
	}
	return false
}

// Space is a named workspace partition. A panel belongs to exactly one
// space at a time.
type Space struct {
	ID         SpaceID
	Name       string
	Panels     []*Panel
	Background string
}
