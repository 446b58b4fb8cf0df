package workspace

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nexus/internal/types"
)

func newTestManager() (*Registry, *Manager) {
	reg := NewRegistry(DefaultLimits())
	return reg, NewManager(reg)
}

func mustOpen(t *testing.T, m *Manager, space types.SpaceID, spec PanelSpec) types.Panel {
	t.Helper()
	p, err := m.OpenPanel(space, spec)
	if err != nil {
		t.Fatalf("OpenPanel(%s): %v", spec.Title, err)
	}
	return p
}

func layoutIDs(t *testing.T, reg *Registry, space types.SpaceID) []string {
	t.Helper()
	panels, err := reg.LayoutOf(space)
	if err != nil {
		t.Fatalf("LayoutOf(%s): %v", space, err)
	}
	ids := make([]string, 0, len(panels))
	for _, p := range panels {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestOpenPanel(t *testing.T) {
	reg, m := newTestManager()
	lim := DefaultLimits()

	p1 := mustOpen(t, m, types.SpacePersonal, PanelSpec{Kind: types.PanelChat, Title: "Chat", Data: types.ChatPayload{StreamID: "s1"}})
	if p1.X != lim.OriginX || p1.Y != lim.OriginY {
		t.Errorf("first cascade position = (%d,%d), want origin (%d,%d)", p1.X, p1.Y, lim.OriginX, lim.OriginY)
	}
	if p1.Width != lim.DefaultWidth || p1.Height != lim.DefaultHeight {
		t.Errorf("default size = %dx%d, want %dx%d", p1.Width, p1.Height, lim.DefaultWidth, lim.DefaultHeight)
	}
	if p1.ZIndex != 1 {
		t.Errorf("first z = %d, want 1", p1.ZIndex)
	}

	p2 := mustOpen(t, m, types.SpacePersonal, PanelSpec{Kind: types.PanelProfile, Title: "Profile", Data: types.ProfilePayload{UserID: "u1"}})
	if p2.X != p1.X+lim.CascadeStep || p2.Y != p1.Y+lim.CascadeStep {
		t.Errorf("cascade position = (%d,%d), want (%d,%d)", p2.X, p2.Y, p1.X+lim.CascadeStep, p1.Y+lim.CascadeStep)
	}
	if p2.ZIndex != 2 {
		t.Errorf("second z = %d, want 2", p2.ZIndex)
	}

	// Explicit positions are respected, including the origin corner.
	p3 := mustOpen(t, m, types.SpacePersonal, PanelSpec{Kind: types.PanelNotifications, Title: "Alerts", At: &Position{X: 0, Y: 300}})
	if p3.X != 0 || p3.Y != 300 {
		t.Errorf("explicit position = (%d,%d), want (0,300)", p3.X, p3.Y)
	}
	p4 := mustOpen(t, m, types.SpacePersonal, PanelSpec{Kind: types.PanelFeed, Title: "Corner", At: &Position{}})
	if p4.X != 0 || p4.Y != 0 {
		t.Errorf("explicit (0,0) = (%d,%d), want (0,0)", p4.X, p4.Y)
	}

	if _, err := m.OpenPanel("nowhere", PanelSpec{Kind: types.PanelChat}); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("unknown space error = %v, want not-found", err)
	}
	if _, err := m.OpenPanel(types.SpacePersonal, PanelSpec{}); !errors.Is(err, types.ErrIntegrity) {
		t.Errorf("missing kind error = %v, want integrity", err)
	}
	if _, err := m.OpenPanel(types.SpacePersonal, PanelSpec{Kind: types.PanelProfile, Data: types.ChatPayload{StreamID: "s1"}}); !errors.Is(err, types.ErrIntegrity) {
		t.Errorf("payload kind mismatch error = %v, want integrity", err)
	}

	_ = reg
}

func TestFocusRestacking(t *testing.T) {
	reg, m := newTestManager()
	p1 := mustOpen(t, m, types.SpaceSocial, PanelSpec{Kind: types.PanelChat, Title: "P1"})
	p2 := mustOpen(t, m, types.SpaceSocial, PanelSpec{Kind: types.PanelFeed, Title: "P2"})
	p3 := mustOpen(t, m, types.SpaceSocial, PanelSpec{Kind: types.PanelProfile, Title: "P3"})

	if err := m.Focus(p1.ID); err != nil {
		t.Fatalf("Focus: %v", err)
	}
	want := []string{p2.ID, p3.ID, p1.ID}
	if diff := cmp.Diff(want, layoutIDs(t, reg, types.SpaceSocial)); diff != "" {
		t.Errorf("stack after focus (-want +got):\n%s", diff)
	}

	// Focusing the topmost panel must not burn a z value.
	panels, _ := reg.LayoutOf(types.SpaceSocial)
	topZ := panels[len(panels)-1].ZIndex
	if err := m.Focus(p1.ID); err != nil {
		t.Fatalf("Focus topmost: %v", err)
	}
	panels, _ = reg.LayoutOf(types.SpaceSocial)
	if panels[len(panels)-1].ZIndex != topZ {
		t.Errorf("topmost z changed from %d to %d on redundant focus", topZ, panels[len(panels)-1].ZIndex)
	}

	// z values never recycle: a new panel stacks above everything prior.
	p4 := mustOpen(t, m, types.SpaceSocial, PanelSpec{Kind: types.PanelChat, Title: "P4"})
	if p4.ZIndex <= topZ {
		t.Errorf("new panel z %d not above prior max %d", p4.ZIndex, topZ)
	}
}

func TestMoveResizeMinimize(t *testing.T) {
	reg, m := newTestManager()
	p := mustOpen(t, m, types.SpaceStudio, PanelSpec{Kind: types.PanelBotForge, Title: "Forge"})

	if err := m.Move(p.ID, 10, 20); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if err := m.Resize(p.ID, 0, 100); !errors.Is(err, types.ErrIntegrity) {
		t.Errorf("zero-width resize error = %v, want integrity", err)
	}
	if err := m.Resize(p.ID, 320, 240); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := m.Minimize(p.ID); err != nil {
		t.Fatalf("Minimize: %v", err)
	}

	// Minimized panels still accept moves and resizes; the geometry applies
	// to the restored panel.
	if err := m.Move(p.ID, 30, 40); err != nil {
		t.Fatalf("Move while minimized: %v", err)
	}
	if err := m.Resize(p.ID, 640, 480); err != nil {
		t.Fatalf("Resize while minimized: %v", err)
	}

	panels, _ := reg.LayoutOf(types.SpaceStudio)
	got := panels[0]
	if got.X != 30 || got.Y != 40 || got.Width != 640 || got.Height != 480 || !got.IsMinimized {
		t.Errorf("unexpected panel state: %+v", got)
	}

	other := mustOpen(t, m, types.SpaceStudio, PanelSpec{Kind: types.PanelChat, Title: "Chat"})
	if err := m.Restore(p.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	panels, _ = reg.LayoutOf(types.SpaceStudio)
	top := panels[len(panels)-1]
	if top.ID != p.ID || top.IsMinimized {
		t.Errorf("restore did not focus the panel: top=%s minimized=%v", top.ID, top.IsMinimized)
	}
	_ = other
}

func TestMergeAndSplitRoundTrip(t *testing.T) {
	reg, m := newTestManager()
	chat := mustOpen(t, m, types.SpaceCreator, PanelSpec{Kind: types.PanelChat, Title: "Dev Log", Data: types.ChatPayload{StreamID: "s2"}})
	tools := mustOpen(t, m, types.SpaceCreator, PanelSpec{Kind: types.PanelCreatorTools, Title: "Tools"})

	if err := m.MergeAsTab(chat.ID, tools.ID); err != nil {
		t.Fatalf("MergeAsTab: %v", err)
	}

	panels, _ := reg.LayoutOf(types.SpaceCreator)
	if len(panels) != 1 {
		t.Fatalf("expected 1 panel after merge, got %d", len(panels))
	}
	merged := panels[0]
	if len(merged.Tabs) != 2 {
		t.Fatalf("expected 2 tabs, got %d", len(merged.Tabs))
	}
	if merged.Tabs[0].ID != merged.ID {
		t.Errorf("first tab should be the target's own surface")
	}
	if merged.Tabs[1].ID != chat.ID {
		t.Errorf("carried tab id = %q, want the source panel id %q", merged.Tabs[1].ID, chat.ID)
	}
	if merged.ActiveTabID != chat.ID {
		t.Errorf("carried tab should be active")
	}
	if diff := cmp.Diff(types.ChatPayload{StreamID: "s2"}, merged.Tabs[1].Data); diff != "" {
		t.Errorf("carried payload (-want +got):\n%s", diff)
	}

	// The tab stays addressable by the original panel id.
	if err := m.SplitTab(tools.ID, chat.ID); err != nil {
		t.Fatalf("SplitTab: %v", err)
	}
	panels, _ = reg.LayoutOf(types.SpaceCreator)
	if len(panels) != 2 {
		t.Fatalf("expected 2 panels after split, got %d", len(panels))
	}
	// The extracted chat is the focused panel and carries its payload back.
	split := panels[1]
	if split.Kind != types.PanelChat || split.Title != "Dev Log" {
		t.Errorf("split panel = %s %q", split.Kind, split.Title)
	}
	if diff := cmp.Diff(types.ChatPayload{StreamID: "s2"}, split.Data); diff != "" {
		t.Errorf("split payload (-want +got):\n%s", diff)
	}
	// The origin collapsed back to a plain panel.
	origin := panels[0]
	if len(origin.Tabs) != 0 || origin.ActiveTabID != "" {
		t.Errorf("origin did not collapse: tabs=%d active=%q", len(origin.Tabs), origin.ActiveTabID)
	}
}

func TestMergeGuards(t *testing.T) {
	_, m := newTestManager()
	a := mustOpen(t, m, types.SpaceGaming, PanelSpec{Kind: types.PanelChat, Title: "A"})
	b := mustOpen(t, m, types.SpaceAI, PanelSpec{Kind: types.PanelChat, Title: "B"})

	if err := m.MergeAsTab(a.ID, a.ID); !errors.Is(err, types.ErrConflict) {
		t.Errorf("self merge error = %v, want conflict", err)
	}
	if err := m.MergeAsTab(a.ID, b.ID); !errors.Is(err, types.ErrConflict) {
		t.Errorf("cross-space merge error = %v, want conflict", err)
	}
	if err := m.MergeAsTab(a.ID, "ghost"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("unknown target error = %v, want not-found", err)
	}
}

func TestSplitTabGuards(t *testing.T) {
	reg, m := newTestManager()
	a := mustOpen(t, m, types.SpaceGaming, PanelSpec{Kind: types.PanelChat, Title: "A"})
	b := mustOpen(t, m, types.SpaceGaming, PanelSpec{Kind: types.PanelTacticalMap, Title: "B"})
	if err := m.MergeAsTab(a.ID, b.ID); err != nil {
		t.Fatalf("MergeAsTab: %v", err)
	}

	if err := m.SplitTab(b.ID, b.ID); !errors.Is(err, types.ErrConflict) {
		t.Errorf("splitting the self tab error = %v, want conflict", err)
	}
	if err := m.SplitTab(b.ID, "ghost"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("unknown tab error = %v, want not-found", err)
	}
	_ = reg
}

func TestClosePinned(t *testing.T) {
	reg, m := newTestManager()
	p := mustOpen(t, m, types.SpaceGovernance, PanelSpec{Kind: types.PanelTrustSafety, Title: "Portal", Pinned: true})

	if err := m.ClosePanel(p.ID, false); !errors.Is(err, types.ErrConflict) {
		t.Errorf("pinned close error = %v, want conflict", err)
	}
	if got := layoutIDs(t, reg, types.SpaceGovernance); len(got) != 1 {
		t.Fatalf("pinned panel disappeared")
	}
	if err := m.ClosePanel(p.ID, true); err != nil {
		t.Fatalf("forced close: %v", err)
	}
	if got := layoutIDs(t, reg, types.SpaceGovernance); len(got) != 0 {
		t.Fatalf("forced close left %d panels", len(got))
	}
}

func TestCloseAllSparesPinned(t *testing.T) {
	reg, m := newTestManager()
	pinned := mustOpen(t, m, types.SpaceSocial, PanelSpec{Kind: types.PanelChat, Title: "Keep", Pinned: true})
	mustOpen(t, m, types.SpaceSocial, PanelSpec{Kind: types.PanelFeed, Title: "Drop"})

	if err := m.CloseAll(types.SpaceSocial, false); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	got := layoutIDs(t, reg, types.SpaceSocial)
	if diff := cmp.Diff([]string{pinned.ID}, got); diff != "" {
		t.Errorf("survivors (-want +got):\n%s", diff)
	}

	if err := m.CloseAll(types.SpaceSocial, true); err != nil {
		t.Fatalf("CloseAll force: %v", err)
	}
	if got := layoutIDs(t, reg, types.SpaceSocial); len(got) != 0 {
		t.Errorf("forced CloseAll left %d panels", len(got))
	}
}

func TestEphemeralClearedOnSpaceSwitch(t *testing.T) {
	reg, m := newTestManager()
	keep := mustOpen(t, m, types.SpacePersonal, PanelSpec{Kind: types.PanelProfile, Title: "Profile"})
	mustOpen(t, m, types.SpacePersonal, PanelSpec{Kind: types.PanelNotifications, Title: "Preview", Ephemeral: true})
	pinnedPreview := mustOpen(t, m, types.SpacePersonal, PanelSpec{Kind: types.PanelChat, Title: "Pinned preview", Ephemeral: true, Pinned: true})

	if err := reg.SwitchActiveSpace(types.SpaceSocial); err != nil {
		t.Fatalf("SwitchActiveSpace: %v", err)
	}
	got := layoutIDs(t, reg, types.SpacePersonal)
	want := []string{keep.ID, pinnedPreview.ID}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("panels after switch (-want +got):\n%s", diff)
	}
}

func TestCascadeAndTile(t *testing.T) {
	reg, m := newTestManager()
	lim := DefaultLimits()
	var panels []types.Panel
	for _, title := range []string{"A", "B", "C"} {
		panels = append(panels, mustOpen(t, m, types.SpaceEngineering, PanelSpec{Kind: types.PanelEngineeringConsole, Title: title, At: &Position{X: 500, Y: 500}}))
	}
	if err := m.Minimize(panels[1].ID); err != nil {
		t.Fatalf("Minimize: %v", err)
	}

	if err := m.Cascade(types.SpaceEngineering); err != nil {
		t.Fatalf("Cascade: %v", err)
	}
	laid, _ := reg.LayoutOf(types.SpaceEngineering)
	for i, p := range laid {
		wantX := lim.OriginX + i*lim.CascadeStep
		wantY := lim.OriginY + i*lim.CascadeStep
		if p.X != wantX || p.Y != wantY {
			t.Errorf("cascade[%d] = (%d,%d), want (%d,%d)", i, p.X, p.Y, wantX, wantY)
		}
		if p.IsMinimized {
			t.Errorf("cascade left panel %d minimized", i)
		}
		if i > 0 && laid[i].ZIndex <= laid[i-1].ZIndex {
			t.Errorf("cascade z not strictly increasing at %d", i)
		}
	}

	if err := m.Tile(types.SpaceEngineering); err != nil {
		t.Fatalf("Tile: %v", err)
	}
	laid, _ = reg.LayoutOf(types.SpaceEngineering)
	// 3 visible panels tile on a 2-column grid.
	wantPos := [][2]int{
		{lim.OriginX, lim.OriginY},
		{lim.OriginX + laid[1].Width + lim.TileGap, lim.OriginY},
		{lim.OriginX, lim.OriginY + laid[2].Height + lim.TileGap},
	}
	for i, p := range laid {
		if p.X != wantPos[i][0] || p.Y != wantPos[i][1] {
			t.Errorf("tile[%d] = (%d,%d), want (%d,%d)", i, p.X, p.Y, wantPos[i][0], wantPos[i][1])
		}
	}
}

func TestAdoptPanel(t *testing.T) {
	reg, m := newTestManager()
	adopted := types.Panel{
		ID:     "p-restored",
		Kind:   types.PanelChat,
		Title:  "Restored",
		X:      40,
		Y:      60,
		Width:  500,
		Height: 600,
		ZIndex: 50,
		Data:   types.ChatPayload{StreamID: "s1"},
	}
	if err := m.AdoptPanel(types.SpaceAI, adopted); err != nil {
		t.Fatalf("AdoptPanel: %v", err)
	}
	if err := m.AdoptPanel(types.SpaceAI, adopted); !errors.Is(err, types.ErrConflict) {
		t.Errorf("duplicate adopt error = %v, want conflict", err)
	}
	bad := adopted
	bad.ID = "p-bad"
	bad.Tabs = []types.Tab{{ID: "t1", Kind: types.PanelChat, Title: "Tab"}}
	bad.ActiveTabID = "ghost"
	if err := m.AdoptPanel(types.SpaceAI, bad); !errors.Is(err, types.ErrIntegrity) {
		t.Errorf("bad active tab error = %v, want integrity", err)
	}

	// The z-counter advances past the adopted index.
	next := mustOpen(t, m, types.SpaceAI, PanelSpec{Kind: types.PanelNeuralGraph, Title: "Graph"})
	if next.ZIndex <= 50 {
		t.Errorf("new panel z %d not above adopted z 50", next.ZIndex)
	}
	_ = reg
}
