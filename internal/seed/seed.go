// Package seed provides the deterministic demo catalog: a small federation
// of city nodes with districts, streams, a message history, the bot module
// catalog, and the default panel layout for each space. The demo command and
// most integration-style tests start from this fixture.
package seed

import (
	"time"

	"nexus/internal/session"
	"nexus/internal/types"
	"nexus/internal/workspace"
)

// BaseTime anchors every seeded timestamp so that repeated runs produce the
// same ordering and the same snapshot bytes.
var BaseTime = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

// Users returns the seeded identities. User "1" is the signed-in founder.
func Users() []types.User {
	return []types.User{
		{
			ID:         "1",
			Name:       "Matthew",
			Username:   "matthew_founder",
			Avatar:     "https://i.pravatar.cc/150?u=1",
			Status:     types.StatusOnline,
			GlobalRole: types.RoleAdmin,
			RoleColor:  "#4B3FE2",
			Memberships: []string{
				"n1", "n2",
			},
			CityRoles: map[string]types.CityRole{
				"n1": types.CityRoleArchitect,
				"n2": types.CityRoleFounder,
			},
		},
		{
			ID:          "2",
			Name:        "AETHERYX",
			Username:    "aetheryx_core",
			Avatar:      "https://i.pravatar.cc/150?u=2",
			Status:      types.StatusOnline,
			IsBot:       true,
			Badge:       "AI",
			GlobalRole:  types.RoleDev,
			Memberships: []string{"n1", "n3"},
			CityRoles: map[string]types.CityRole{
				"n1": types.CityRoleFounder,
			},
		},
		{
			ID:          "3",
			Name:        "Nexus Bot",
			Username:    "nexus_bot",
			Avatar:      "https://i.pravatar.cc/150?u=3",
			Status:      types.StatusOnline,
			IsBot:       true,
			Badge:       "BOT",
			RoleColor:   "#8E24AA",
			GlobalRole:  types.RoleUser,
			Memberships: []string{"n1", "n4"},
		},
	}
}

// Modules returns the installable bot module catalog.
func Modules() []types.BotModule {
	return []types.BotModule{
		{ID: "m_mod", Kind: types.ModuleModeration, Name: "Aether Guard", Description: "Autonomous moderation and threat filtering.", Icon: "Shield"},
		{ID: "m_music", Kind: types.ModuleMusic, Name: "Sonic Weaver", Description: "Spatial audio streaming for voice districts.", Icon: "Music"},
		{ID: "m_ai", Kind: types.ModuleAIAssistant, Name: "AETHERYX Core", Description: "Deep-logic assistant for stream synthesis.", Icon: "Zap"},
		{ID: "m_task", Kind: types.ModuleTask, Name: "Nexus Flow", Description: "Interactive task orchestration.", Icon: "CheckSquare"},
		{ID: "m_analytics", Kind: types.ModuleAnalytics, Name: "Grid Insight", Description: "Live engagement analytics.", Icon: "BarChart"},
		{ID: "m_weather", Kind: types.ModuleCustom, Name: "Atmospheric Core", Description: "Ambient environment rendering.", Icon: "Cloud"},
		{ID: "m_terminal", Kind: types.ModuleCustom, Name: "Nexus Terminal", Description: "Inline command execution surface.", Icon: "Terminal"},
	}
}

// Nodes returns the four seeded city nodes with their streams, districts,
// and the VirtuaCity logic graph.
func Nodes() []types.Node {
	return []types.Node{
		{
			ID:          "n1",
			Name:        "VirtuaCity Nexus",
			Kind:        types.NodeCity,
			Category:    types.CategorySocial,
			Atmosphere:  types.AtmosphereHolographic,
			Status:      types.CityStable,
			Population:  12500,
			OwnerID:     "1",
			MemberCount: 1250,
			HexColor:    "#4B3FE2",
			X:           500,
			Y:           500,
			IsPulsing:   true,
			ActiveModules:   []string{"m_mod", "m_ai", "m_analytics"},
			OrbitingStreams: []string{"s1", "s2"},
			Streams: []types.Stream{
				{
					ID:             "s1",
					Name:           "Central Stream",
					Kind:           types.StreamLivingThread,
					NodeID:         "n1",
					Topic:          "The heart of the Nexus",
					LastActivityAt: BaseTime,
					Modules:        []string{"m_mod", "m_analytics"},
					DistrictID:     "d1",
				},
				{
					ID:             "s2",
					Name:           "Bot Forge",
					Kind:           types.StreamBotWorkspace,
					NodeID:         "n1",
					Topic:          "Build with AETHERYX",
					LastActivityAt: BaseTime,
					Modules:        []string{"m_ai", "m_terminal"},
					DistrictID:     "d2",
				},
			},
			Districts: []types.District{
				{ID: "d1", Name: "Neural Plaza", Kind: types.DistrictNeural, NodeID: "n1", Streams: []string{"s1"}, Occupancy: 85},
				{ID: "d2", Name: "Logic Foundry", Kind: types.DistrictIndustrial, NodeID: "n1", Streams: []string{"s2"}, Occupancy: 64},
			},
			Logic: &types.CityLogic{
				Nodes: []types.DevGridNode{
					{
						ID: "pn1", Type: "trigger", Name: "OnMessage", X: 50, Y: 150, Color: "#4B3FE2",
						Outputs: []types.DevGridPort{{ID: "out1", Type: "event"}},
					},
					{
						ID: "pn2", Type: "action", Name: "Aether Synthesis", X: 350, Y: 180, Color: "#E23F8E",
						Inputs:  []types.DevGridPort{{ID: "in1", Type: "event"}},
						Outputs: []types.DevGridPort{{ID: "out2", Type: "data"}},
					},
				},
				Connections: []types.DevGridConnection{
					{From: "pn1", OutputID: "out1", To: "pn2", InputID: "in1"},
				},
			},
			Permissions: map[string]types.CityRole{
				"1": types.CityRoleArchitect,
				"2": types.CityRoleFounder,
			},
		},
		{
			ID:          "n2",
			Name:        "Neon Citadel",
			Kind:        types.NodeCity,
			Category:    types.CategoryTactical,
			Atmosphere:  types.AtmosphereCyberpunk,
			Status:      types.CityCritical,
			Population:  45000,
			MemberCount: 85,
			HexColor:    "#E23F8E",
			X:           1200,
			Y:           300,
			ActiveModules: []string{"m_music", "m_task"},
			Streams: []types.Stream{
				{
					ID:             "s3",
					Name:           "Asset Canvas",
					Kind:           types.StreamMediaCanvas,
					NodeID:         "n2",
					Topic:          "Visual asset synchronization",
					LastActivityAt: BaseTime,
					Modules:        []string{"m_task"},
					DistrictID:     "d3",
				},
			},
			Districts: []types.District{
				{ID: "d3", Name: "Upper Sector", Kind: types.DistrictResidential, NodeID: "n2", Streams: []string{"s3"}, Occupancy: 92},
				{ID: "d4", Name: "The Breach", Kind: types.DistrictTactical, NodeID: "n2", Occupancy: 40},
			},
		},
		{
			ID:          "n3",
			Name:        "Aether Gardens",
			Kind:        types.NodeCity,
			Category:    types.CategoryCreative,
			Atmosphere:  types.AtmosphereSolarpunk,
			Status:      types.CityStable,
			Population:  8000,
			OwnerID:     "2",
			MemberCount: 120,
			HexColor:    "#3FE2C1",
			X:           200,
			Y:           200,
			ActiveModules: []string{"m_ai"},
			Districts: []types.District{
				{ID: "d5", Name: "Green Core", Kind: types.DistrictCreative, NodeID: "n3", Occupancy: 75},
			},
		},
		{
			ID:          "n4",
			Name:        "The Monolith",
			Kind:        types.NodeCity,
			Category:    types.CategoryIndustrial,
			Atmosphere:  types.AtmosphereBrutalist,
			Status:      types.CityLocked,
			Population:  200000,
			OwnerID:     "3",
			MemberCount: 500,
			HexColor:    "#E29E3F",
			X:           400,
			Y:           1000,
			ActiveModules: []string{"m_mod"},
			Districts: []types.District{
				{ID: "d6", Name: "Silo Alpha", Kind: types.DistrictIndustrial, NodeID: "n4", Streams: []string{}, Occupancy: 100},
			},
		},
	}
}

// Messages returns the seeded history for streams s1, s2, and s3, already in
// chronological order.
func Messages() []types.Message {
	return []types.Message{
		{
			ID:        "msg1",
			StreamID:  "s1",
			AuthorID:  "2",
			Kind:      types.MessageAI,
			Content:   "Nexus OS Initialized. Welcome to the professional dimension.",
			Timestamp: BaseTime.Add(-60 * time.Minute),
		},
		{
			ID:        "msg2",
			StreamID:  "s1",
			AuthorID:  "1",
			Kind:      types.MessageVoicePacket,
			Content:   "Voice briefing for today's deployment.",
			Timestamp: BaseTime.Add(-30 * time.Minute),
			Voice: &types.VoicePacket{
				ID:       "v1",
				Duration: 45,
				Waveform: demoWaveform(20),
			},
		},
		{
			ID:        "msg3",
			StreamID:  "s1",
			AuthorID:  "2",
			Kind:      types.MessageInteractiveTask,
			Content:   "Finalize the Nexus Core interface.",
			Timestamp: BaseTime.Add(-15 * time.Minute),
			Task: &types.InteractiveTask{
				ID:         "t1",
				Title:      "Integrate Aetheryx Logic",
				AssigneeID: "1",
				Status:     types.TaskInProgress,
				Deadline:   "Today at 5 PM",
			},
		},
		{
			ID:        "msg4",
			StreamID:  "s1",
			AuthorID:  "2",
			Kind:      types.MessageModuleUI,
			Content:   "Engagement telemetry for the last cycle.",
			Timestamp: BaseTime,
			Module:    &types.ModuleUI{ModuleID: "m_analytics", Component: "AnalyticsChart"},
		},
		{
			ID:        "msg5",
			StreamID:  "s1",
			AuthorID:  "3",
			Kind:      types.MessageModuleUI,
			Content:   "Atmospheric conditions nominal.",
			Timestamp: BaseTime,
			Module:    &types.ModuleUI{ModuleID: "m_weather", Component: "WeatherCore"},
		},
		{
			ID:        "msg_s2_1",
			StreamID:  "s2",
			AuthorID:  "2",
			Kind:      types.MessageAI,
			Content:   "Forge initialized. Awaiting logic sequences.",
			Timestamp: BaseTime,
		},
		{
			ID:        "msg_s2_2",
			StreamID:  "s2",
			AuthorID:  "2",
			Kind:      types.MessageModuleUI,
			Content:   "Executing system diagnostic...",
			Timestamp: BaseTime,
			Module:    &types.ModuleUI{ModuleID: "m_terminal", Component: "NexusTerminal"},
		},
		{
			ID:        "msg_s3_1",
			StreamID:  "s3",
			AuthorID:  "3",
			Kind:      types.MessageSystem,
			Content:   "Canvas ready for asset mapping.",
			Timestamp: BaseTime,
		},
		{
			ID:        "msg_s3_2",
			StreamID:  "s3",
			AuthorID:  "3",
			Kind:      types.MessageModuleUI,
			Content:   "Spatial audio stream active.",
			Timestamp: BaseTime,
			Module:    &types.ModuleUI{ModuleID: "m_music", Component: "MusicVisualizer"},
		},
	}
}

func at(x, y int) *workspace.Position {
	return &workspace.Position{X: x, Y: y}
}

// DefaultLayouts returns the initial panel set for every space. Specs are
// ordered bottom-to-top: the last spec opened in a space ends up focused.
func DefaultLayouts() map[types.SpaceID][]workspace.PanelSpec {
	return map[types.SpaceID][]workspace.PanelSpec{
		types.SpaceSocial: {
			{Kind: types.PanelNodeExplorer, Title: "Node Explorer", At: at(60, 160), Width: 320, Height: 550},
			{Kind: types.PanelChat, Title: "Data Stream // Central", At: at(420, 140), Width: 500, Height: 700, Data: types.ChatPayload{StreamID: "s1"}},
		},
		types.SpaceCityBrowser: {
			{Kind: types.PanelCityBrowser, Title: "City Directory // Global", At: at(60, 140), Width: 900, Height: 600},
		},
		types.SpaceStudio: {
			{Kind: types.PanelBotForge, Title: "AETHERYX Bot Forge", At: at(100, 100), Width: 400, Height: 500, Data: types.BotForgePayload{ModuleIDs: []string{"m_ai", "m_terminal"}}},
			{Kind: types.PanelChat, Title: "Project Stream", At: at(550, 100), Width: 600, Height: 700, Data: types.ChatPayload{StreamID: "s3"}},
		},
		types.SpaceCreator: {
			{Kind: types.PanelChat, Title: "Dev Log // Synthesis", At: at(920, 120), Width: 400, Height: 700, Data: types.ChatPayload{StreamID: "s2"}},
			{Kind: types.PanelAssetLibrary, Title: "Asset Library", At: at(60, 120), Width: 350, Height: 600},
			{Kind: types.PanelCreatorTools, Title: "Creator Tools", At: at(440, 120), Width: 450, Height: 500},
		},
		types.SpaceAI: {
			{Kind: types.PanelNeuralGraph, Title: "AETHERYX Core // Neural Graph", At: at(100, 100), Width: 500, Height: 600},
			{Kind: types.PanelChat, Title: "Neural Stream", At: at(650, 100), Width: 500, Height: 700, Data: types.ChatPayload{StreamID: "s2"}},
		},
		types.SpaceGaming: {
			{Kind: types.PanelChat, Title: "Tactical Stream", At: at(550, 100), Width: 600, Height: 800, Data: types.ChatPayload{StreamID: "s1"}},
			{Kind: types.PanelTacticalMap, Title: "Tactical Map // Sector 7", At: at(60, 100), Width: 450, Height: 600},
		},
		types.SpacePersonal: {
			{Kind: types.PanelChat, Title: "Personal Stream", At: at(580, 100), Width: 500, Height: 700, Data: types.ChatPayload{StreamID: "s3"}},
			{Kind: types.PanelProfile, Title: "Identity Core // Profile", At: at(100, 100), Width: 450, Height: 700, Data: types.ProfilePayload{UserID: "1"}},
		},
		types.SpaceDevGrid: {
			{Kind: types.PanelDevGrid, Title: "Dev Grid // Logic Builder", At: at(60, 140), Width: 1000, Height: 700},
		},
		types.SpaceGovernance: {
			{Kind: types.PanelTrustSafety, Title: "Trust & Safety Portal", At: at(60, 120), Width: 1000, Height: 750},
		},
		types.SpaceEngineering: {
			{Kind: types.PanelDevGrid, Title: "Infrastructure // Logic", At: at(580, 120), Width: 700, Height: 700},
			{Kind: types.PanelEngineeringConsole, Title: "System Diagnostics // Dev Console", At: at(60, 120), Width: 500, Height: 700},
		},
	}
}

// Apply loads the full demo catalog into the session: entities in dependency
// order, the signed-in user, the active node, and the default panel layout
// for every space. Apply is not idempotent for panels; call it on a fresh
// session only.
func Apply(st *session.State) error {
	for _, u := range Users() {
		if err := st.UpsertUser(u); err != nil {
			return err
		}
	}
	for _, m := range Modules() {
		if err := st.UpsertModule(m); err != nil {
			return err
		}
	}
	for _, n := range Nodes() {
		if err := st.UpsertNode(n); err != nil {
			return err
		}
	}
	for _, msg := range Messages() {
		if err := st.UpsertMessage(msg); err != nil {
			return err
		}
	}

	founder := Users()[0]
	if err := st.SetCurrentUser(&founder); err != nil {
		return err
	}
	if err := st.SetActiveNode("n1"); err != nil {
		return err
	}

	for spaceID, specs := range DefaultLayouts() {
		for _, spec := range specs {
			if _, err := st.OpenPanel(spaceID, spec); err != nil {
				return err
			}
		}
	}
	return nil
}

func demoWaveform(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		// deterministic pseudo-amplitude in (0.2, 1.0)
		w[i] = 0.2 + 0.8*float64((i*37)%100)/100
	}
	return w
}
