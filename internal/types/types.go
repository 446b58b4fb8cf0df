// Package types provides the shared data model for the nexus workspace
// engine. This package exists to break import cycles between entity,
// workspace, and session. Types in this package should be foundational data
// structures with no complex dependencies.
package types

import (
	"time"
)

// =============================================================================
// USERS
// =============================================================================

// UserStatus is a user's presence state.
type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusIdle    UserStatus = "idle"
	StatusDND     UserStatus = "dnd"
	StatusOffline UserStatus = "offline"
)

// GlobalRole is a user's platform-wide role.
type GlobalRole string

const (
	RoleAdmin GlobalRole = "Admin"
	RoleUser  GlobalRole = "User"
	RoleDev   GlobalRole = "Dev"
)

// CityRole is a user's role inside one Node ("City").
type CityRole string

const (
	CityRoleArchitect CityRole = "Architect"
	CityRoleFounder   CityRole = "Founder"
	CityRoleCitizen   CityRole = "Citizen"
	CityRoleVisitor   CityRole = "Visitor"
)

// User is an identity plus presence. CityRoles maps node id -> role and may
// only carry an entry for a node listed in Memberships.
type User struct {
	ID          string
	Name        string
	Username    string
	Avatar      string
	Status      UserStatus
	IsBot       bool
	RoleColor   string
	Badge       string
	GlobalRole  GlobalRole
	Memberships []string            // node ids the user has joined
	CityRoles   map[string]CityRole // node id -> role
}

// IsMemberOf reports whether the user has joined the given node.
func (u *User) IsMemberOf(nodeID string) bool {
	for _, id := range u.Memberships {
		if id == nodeID {
			return true
		}
	}
	return false
}

// =============================================================================
// MESSAGES
// =============================================================================

// MessageKind discriminates the content unit carried by a message.
type MessageKind string

const (
	MessageText            MessageKind = "text"
	MessageImage           MessageKind = "image"
	MessageVideo           MessageKind = "video"
	MessageVoice           MessageKind = "voice"
	MessageSystem          MessageKind = "system"
	MessageAI              MessageKind = "ai"
	MessageVoicePacket     MessageKind = "voice-packet"
	MessageInteractiveTask MessageKind = "interactive-task"
	MessageModuleUI        MessageKind = "module-ui"
)

// Reaction is one emoji reaction on a message. Users holds the ids of every
// user who reacted, which makes the toggle idempotent and lets a renderer
// derive the per-viewer flag.
type Reaction struct {
	Emoji string
	Users []string
}

// Count returns the number of users who reacted.
func (r *Reaction) Count() int { return len(r.Users) }

// By reports whether the given user has reacted.
func (r *Reaction) By(userID string) bool {
	for _, id := range r.Users {
		if id == userID {
			return true
		}
	}
	return false
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID   string
	URL  string
	Name string
	Type string
	Size int64
}

// Embed is a rich preview card on a message.
type Embed struct {
	Title       string
	Description string
	URL         string
	Color       string
	Image       string
	Footer      string
	Timestamp   string
}

// TaskStatus is the lifecycle state of an interactive task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

// InteractiveTask is the payload of an interactive-task message.
type InteractiveTask struct {
	ID         string
	Title      string
	AssigneeID string
	Status     TaskStatus
	Deadline   string
}

// VoicePacket is the payload of a voice-packet message.
type VoicePacket struct {
	ID       string
	Duration float64
	Waveform []float64
	AudioURL string
}

// ModuleUI is the payload of a module-ui message: a bot module rendering
// its own surface inline in a stream.
type ModuleUI struct {
	ModuleID  string
	Component string
	Props     map[string]any
}

// Topic is an AI-surfaced conversation topic within a stream.
type Topic struct {
	ID        string
	Title     string
	Summary   string
	Relevance float64 // 0-1
}

// Message is the atomic content unit of a Stream.
type Message struct {
	ID          string
	Content     string
	AuthorID    string
	StreamID    string
	Timestamp   time.Time
	Kind        MessageKind
	Edited      bool
	Reactions   []Reaction
	Attachments []Attachment
	Embeds      []Embed
	ReplyTo     string // id of the message being replied to, same stream
	MediaURL    string
	ThreadID    string // id of the thread root message
	ReplyCount  int    // maintained on the thread root only
	TopicID     string
	Task        *InteractiveTask
	Voice       *VoicePacket
	Module      *ModuleUI
}

// =============================================================================
// NODES, DISTRICTS, STREAMS
// =============================================================================

// NodeKind is the flavor of a top-level community container.
type NodeKind string

const (
	NodePersonal NodeKind = "personal"
	NodeSocial   NodeKind = "social"
	NodeCreative NodeKind = "creative"
	NodeStudio   NodeKind = "studio"
	NodeGaming   NodeKind = "gaming"
	NodeBusiness NodeKind = "business"
	NodeAIDriven NodeKind = "ai-driven"
	NodeCity     NodeKind = "city"
)

// CityCategory classifies a city node.
type CityCategory string

const (
	CategoryTactical   CityCategory = "Tactical"
	CategoryNeural     CityCategory = "Neural"
	CategoryCreative   CityCategory = "Creative"
	CategorySocial     CityCategory = "Social"
	CategoryIndustrial CityCategory = "Industrial"
)

// CityAtmosphere is a city's visual mood.
type CityAtmosphere string

const (
	AtmosphereCyberpunk   CityAtmosphere = "Cyberpunk"
	AtmosphereSolarpunk   CityAtmosphere = "Solarpunk"
	AtmosphereBrutalist   CityAtmosphere = "Brutalist"
	AtmosphereHolographic CityAtmosphere = "Holographic"
	AtmosphereMinimalist  CityAtmosphere = "Minimalist"
)

// CityStatus is a city's operational state.
type CityStatus string

const (
	CityStable     CityStatus = "Stable"
	CityCritical   CityStatus = "Critical"
	CityDeveloping CityStatus = "Developing"
	CityLocked     CityStatus = "Locked"
)

// StreamKind is the flavor of a channel/thread container.
type StreamKind string

const (
	StreamLivingThread   StreamKind = "living-thread"
	StreamMediaCanvas    StreamKind = "media-canvas"
	StreamBotWorkspace   StreamKind = "bot-workspace"
	StreamTimeline       StreamKind = "timeline"
	StreamProjectBoard   StreamKind = "project-board"
	StreamDistrictStream StreamKind = "district-stream"
	StreamVoice          StreamKind = "voice"
	StreamAnnouncement   StreamKind = "announcement"
	StreamText           StreamKind = "text"
)

// Stream is a channel/thread container within a Node.
type Stream struct {
	ID             string
	Name           string
	Kind           StreamKind
	NodeID         string
	Topic          string
	LastActivityAt time.Time
	Modules        []string // ids of active modules in this stream
	DistrictID     string   // set when the stream belongs to a district
}

// DistrictKind is the zoning flavor of a district.
type DistrictKind string

const (
	DistrictResidential DistrictKind = "residential"
	DistrictCommercial  DistrictKind = "commercial"
	DistrictIndustrial  DistrictKind = "industrial"
	DistrictCreative    DistrictKind = "creative"
	DistrictNeural      DistrictKind = "neural"
	DistrictTactical    DistrictKind = "tactical"
)

// District is a sub-zone of a Node grouping a subset of its streams.
type District struct {
	ID            string
	Name          string
	Kind          DistrictKind
	Description   string
	NodeID        string
	Streams       []string // stream ids, always a subset of the node's streams
	AIAssistantID string
	Occupancy     int
}

// DevGridPort is one typed input or output on a dev-grid node.
type DevGridPort struct {
	ID   string
	Type string
}

// DevGridNode is one node in a city's visual-scripting graph.
type DevGridNode struct {
	ID      string
	Type    string
	Name    string
	X       float64
	Y       float64
	Color   string
	Data    string
	Inputs  []DevGridPort
	Outputs []DevGridPort
}

// DevGridConnection wires an output port to an input port.
type DevGridConnection struct {
	From     string
	OutputID string
	To       string
	InputID  string
}

// CityRoleConfig is one role definition inside a city's logic config.
type CityRoleConfig struct {
	Name  string
	Color string
	Users int
	Perms []string
}

// CityPolicy is one toggleable governance policy.
type CityPolicy struct {
	ID     string
	Label  string
	Desc   string
	Icon   string
	Active bool
}

// CityLogic is a city's visual-scripting graph plus role/policy grants.
type CityLogic struct {
	Nodes       []DevGridNode
	Connections []DevGridConnection
	Roles       []CityRoleConfig
	Policies    []CityPolicy
}

// Node ("City") is a top-level community/workspace container. Districts
// partition, never extend, the node's stream set.
type Node struct {
	ID              string
	Name            string
	Kind            NodeKind
	Category        CityCategory
	Atmosphere      CityAtmosphere
	Status          CityStatus
	Population      int
	OwnerID         string
	Streams         []Stream
	ActiveModules   []string
	MemberCount     int
	Theme           string
	Districts       []District
	Icon            string
	HexColor        string
	OrbitingStreams []string
	X               float64 // spatial coordinate on the city grid
	Y               float64
	IsPulsing       bool // activity indicator
	Logic           *CityLogic
	Permissions     map[string]CityRole // user id -> node-scoped role grant
}

// StreamByID returns the node's stream with the given id, or nil.
func (n *Node) StreamByID(id string) *Stream {
	for i := range n.Streams {
		if n.Streams[i].ID == id {
			return &n.Streams[i]
		}
	}
	return nil
}

// DistrictByID returns the node's district with the given id, or nil.
func (n *Node) DistrictByID(id string) *District {
	for i := range n.Districts {
		if n.Districts[i].ID == id {
			return &n.Districts[i]
		}
	}
	return nil
}

// =============================================================================
// BOT MODULES
// =============================================================================

// BotModuleKind categorizes a bot module.
type BotModuleKind string

const (
	ModuleModeration  BotModuleKind = "moderation"
	ModuleMusic       BotModuleKind = "music"
	ModuleAIAssistant BotModuleKind = "ai-assistant"
	ModuleRoleManager BotModuleKind = "role-manager"
	ModuleSFX         BotModuleKind = "sfx"
	ModuleStudio      BotModuleKind = "studio"
	ModuleTask        BotModuleKind = "task"
	ModuleAnalytics   BotModuleKind = "analytics"
	ModuleCustom      BotModuleKind = "custom"
)

// BotModule is one installable module from the catalog.
type BotModule struct {
	ID          string
	Kind        BotModuleKind
	Name        string
	Description string
	Config      map[string]any
	Icon        string
}
