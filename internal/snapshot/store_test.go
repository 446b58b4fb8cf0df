package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/seed"
	"nexus/internal/session"
	"nexus/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nexus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	src := session.New(nil)
	require.NoError(t, seed.Apply(src))

	// Mutate past the seed so the round trip covers tab groups and
	// space metadata, not just the defaults.
	panels, err := src.LayoutOf(types.SpacePersonal)
	require.NoError(t, err)
	require.Len(t, panels, 2)
	require.NoError(t, src.MergeAsTab(panels[0].ID, panels[1].ID))
	require.NoError(t, src.SwitchActiveSpace(types.SpaceStudio))

	store := openTestStore(t)
	require.NoError(t, store.Save(src))

	dst := session.New(nil)
	require.NoError(t, store.Load(dst))

	t.Run("entities", func(t *testing.T) {
		assert.Empty(t, cmp.Diff(src.Users(), dst.Users()))
		assert.Empty(t, cmp.Diff(src.Modules(), dst.Modules()))
		assert.Empty(t, cmp.Diff(src.Nodes(), dst.Nodes()))
	})

	t.Run("message order survives", func(t *testing.T) {
		for _, streamID := range []string{"s1", "s2", "s3"} {
			want, err := src.MessagesFor(streamID)
			require.NoError(t, err)
			got, err := dst.MessagesFor(streamID)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(want, got), streamID)
		}
	})

	t.Run("layouts survive per space", func(t *testing.T) {
		for _, spaceID := range types.AllSpaceIDs() {
			want, err := src.LayoutOf(spaceID)
			require.NoError(t, err)
			got, err := dst.LayoutOf(spaceID)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(want, got), string(spaceID))
		}
	})

	t.Run("session pointers survive", func(t *testing.T) {
		require.NotNil(t, dst.CurrentUser())
		assert.Equal(t, src.CurrentUser().ID, dst.CurrentUser().ID)
		assert.Equal(t, src.ActiveNodeID(), dst.ActiveNodeID())
		assert.Equal(t, types.SpaceStudio, dst.ActiveSpaceID())
	})
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	store := openTestStore(t)

	first := session.New(nil)
	require.NoError(t, seed.Apply(first))
	require.NoError(t, store.Save(first))

	second := session.New(nil)
	require.NoError(t, second.UpsertUser(types.User{ID: "u9", Name: "Drifter"}))
	require.NoError(t, store.Save(second))

	dst := session.New(nil)
	require.NoError(t, store.Load(dst))
	require.Len(t, dst.Users(), 1)
	assert.Equal(t, "u9", dst.Users()[0].ID)
	assert.Nil(t, dst.CurrentUser())
}

func TestLoadReopensAcrossStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nexus.db")

	src := session.New(nil)
	require.NoError(t, seed.Apply(src))

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(src))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	dst := session.New(nil)
	require.NoError(t, reopened.Load(dst))
	assert.Len(t, dst.Users(), 3)
	assert.Equal(t, "n1", dst.ActiveNodeID())
}

func TestPayloadCodec(t *testing.T) {
	payloads := []types.PanelPayload{
		nil,
		types.ChatPayload{StreamID: "s1"},
		types.FeedPayload{TopicIDs: []string{"t1", "t2"}},
		types.BotForgePayload{ModuleIDs: []string{"m_ai"}},
		types.ProfilePayload{UserID: "1"},
		types.NodeScopedPayload{Kind: types.PanelDevGrid, NodeID: "n2"},
		types.NoPayload{Kind: types.PanelCityBrowser},
	}
	for _, want := range payloads {
		raw, err := encodePayload(want)
		require.NoError(t, err)
		got, err := decodePayload(raw)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(want, got))
	}
}

func TestPanelCodecKeepsTabs(t *testing.T) {
	want := types.Panel{
		ID:          "p1",
		Kind:        types.PanelChat,
		Title:       "Central Stream",
		X:           80,
		Y:           120,
		Width:       480,
		Height:      600,
		IsPinned:    true,
		ZIndex:      7,
		Data:        types.ChatPayload{StreamID: "s1"},
		ActiveTabID: "p2",
		Tabs: []types.Tab{
			{ID: "p1", Kind: types.PanelChat, Title: "Central Stream", Data: types.ChatPayload{StreamID: "s1"}},
			{ID: "p2", Kind: types.PanelProfile, Title: "Profile", Data: types.ProfilePayload{UserID: "2"}},
		},
	}
	raw, err := encodePanel(want)
	require.NoError(t, err)
	got, err := decodePanel(raw)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, got))
}

func TestLoadFromEmptyStore(t *testing.T) {
	store := openTestStore(t)
	dst := session.New(nil)
	require.NoError(t, store.Load(dst))
	assert.Empty(t, dst.Users())
	assert.Nil(t, dst.CurrentUser())
}
