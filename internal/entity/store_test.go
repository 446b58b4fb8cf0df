package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/types"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newSeededStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	require.NoError(t, s.UpsertUser(types.User{ID: "u1", Name: "Matthew"}))
	require.NoError(t, s.UpsertUser(types.User{ID: "u2", Name: "AETHERYX", IsBot: true}))
	require.NoError(t, s.UpsertNode(types.Node{
		ID:   "n1",
		Name: "VirtuaCity",
		Streams: []types.Stream{
			{ID: "s1", Name: "Central Stream", DistrictID: "d1"},
			{ID: "s2", Name: "Bot Forge"},
		},
		Districts: []types.District{
			{ID: "d1", Name: "Neural Plaza", Streams: []string{"s1"}},
		},
	}))
	return s
}

func TestUpsertUser(t *testing.T) {
	s := New()

	t.Run("requires id", func(t *testing.T) {
		err := s.UpsertUser(types.User{Name: "nobody"})
		assert.ErrorIs(t, err, types.ErrIntegrity)
	})

	t.Run("city role requires membership", func(t *testing.T) {
		err := s.UpsertUser(types.User{
			ID:        "u9",
			CityRoles: map[string]types.CityRole{"n1": types.CityRoleArchitect},
		})
		assert.ErrorIs(t, err, types.ErrIntegrity)
		_, err = s.UserByID("u9")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("membership legitimizes role", func(t *testing.T) {
		err := s.UpsertUser(types.User{
			ID:          "u9",
			Memberships: []string{"n1"},
			CityRoles:   map[string]types.CityRole{"n1": types.CityRoleArchitect},
		})
		require.NoError(t, err)
		u, err := s.UserByID("u9")
		require.NoError(t, err)
		assert.Equal(t, types.CityRoleArchitect, u.CityRoles["n1"])
	})
}

func TestUpsertNode_Validation(t *testing.T) {
	t.Run("district referencing unknown stream leaves store unchanged", func(t *testing.T) {
		s := New()
		err := s.UpsertNode(types.Node{
			ID:        "n1",
			Streams:   []types.Stream{{ID: "s1"}},
			Districts: []types.District{{ID: "d1", Streams: []string{"s1", "ghost"}}},
		})
		assert.ErrorIs(t, err, types.ErrIntegrity)
		_, err = s.NodeByID("n1")
		assert.ErrorIs(t, err, types.ErrNotFound)
		_, err = s.StreamByID("s1")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("duplicate stream id within node", func(t *testing.T) {
		s := New()
		err := s.UpsertNode(types.Node{
			ID:      "n1",
			Streams: []types.Stream{{ID: "s1"}, {ID: "s1"}},
		})
		assert.ErrorIs(t, err, types.ErrIntegrity)
	})

	t.Run("stream district back-reference must be mutual", func(t *testing.T) {
		s := New()
		err := s.UpsertNode(types.Node{
			ID:        "n1",
			Streams:   []types.Stream{{ID: "s1", DistrictID: "d1"}},
			Districts: []types.District{{ID: "d1"}},
		})
		assert.ErrorIs(t, err, types.ErrIntegrity)
	})

	t.Run("stream id may not be claimed by a second node", func(t *testing.T) {
		s := newSeededStore(t)
		err := s.UpsertNode(types.Node{
			ID:      "n2",
			Streams: []types.Stream{{ID: "s1"}},
		})
		assert.ErrorIs(t, err, types.ErrIntegrity)
		_, err = s.NodeByID("n2")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("node ids are stamped onto streams and districts", func(t *testing.T) {
		s := newSeededStore(t)
		n, err := s.NodeByID("n1")
		require.NoError(t, err)
		for _, st := range n.Streams {
			assert.Equal(t, "n1", st.NodeID)
		}
		for _, d := range n.Districts {
			assert.Equal(t, "n1", d.NodeID)
		}
	})
}

func TestUpsertNode_ReplacementDropsRemovedStreamMessages(t *testing.T) {
	s := newSeededStore(t)
	require.NoError(t, s.UpsertMessage(types.Message{ID: "m1", StreamID: "s2", AuthorID: "u1", Timestamp: base}))

	n, err := s.NodeByID("n1")
	require.NoError(t, err)
	n.Streams = n.Streams[:1] // drop s2
	require.NoError(t, s.UpsertNode(n))

	_, err = s.StreamByID("s2")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.MessageByID("m1")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpsertStream(t *testing.T) {
	s := newSeededStore(t)

	t.Run("adds a stream to an existing node", func(t *testing.T) {
		require.NoError(t, s.UpsertStream(types.Stream{ID: "s3", NodeID: "n1", Name: "Asset Canvas"}))
		st, err := s.StreamByID("s3")
		require.NoError(t, err)
		assert.Equal(t, "Asset Canvas", st.Name)
	})

	t.Run("unknown node", func(t *testing.T) {
		err := s.UpsertStream(types.Stream{ID: "s9", NodeID: "missing"})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("district-breaking stream is rejected", func(t *testing.T) {
		err := s.UpsertStream(types.Stream{ID: "s4", NodeID: "n1", DistrictID: "d9"})
		assert.ErrorIs(t, err, types.ErrIntegrity)
		_, err = s.StreamByID("s4")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestUpsertMessage_Validation(t *testing.T) {
	s := newSeededStore(t)

	t.Run("unknown stream", func(t *testing.T) {
		err := s.UpsertMessage(types.Message{StreamID: "nope", AuthorID: "u1"})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("unknown author", func(t *testing.T) {
		err := s.UpsertMessage(types.Message{StreamID: "s1", AuthorID: "ghost"})
		assert.ErrorIs(t, err, types.ErrIntegrity)
	})

	t.Run("reply target must live in the same stream", func(t *testing.T) {
		require.NoError(t, s.UpsertMessage(types.Message{ID: "root", StreamID: "s1", AuthorID: "u1", Timestamp: base}))
		err := s.UpsertMessage(types.Message{ID: "bad", StreamID: "s2", AuthorID: "u1", ReplyTo: "root"})
		assert.ErrorIs(t, err, types.ErrIntegrity)
	})

	t.Run("a message cannot move streams", func(t *testing.T) {
		err := s.UpsertMessage(types.Message{ID: "root", StreamID: "s2", AuthorID: "u1"})
		assert.ErrorIs(t, err, types.ErrIntegrity)
	})

	t.Run("joining an unknown thread", func(t *testing.T) {
		err := s.UpsertMessage(types.Message{ID: "t1", StreamID: "s1", AuthorID: "u1", ThreadID: "ghost"})
		assert.ErrorIs(t, err, types.ErrIntegrity)
	})
}

func TestMessageOrdering(t *testing.T) {
	s := newSeededStore(t)

	// Insert out of chronological order; equal timestamps keep insertion order.
	require.NoError(t, s.UpsertMessage(types.Message{ID: "c", StreamID: "s1", AuthorID: "u1", Timestamp: base.Add(2 * time.Minute)}))
	require.NoError(t, s.UpsertMessage(types.Message{ID: "a", StreamID: "s1", AuthorID: "u1", Timestamp: base}))
	require.NoError(t, s.UpsertMessage(types.Message{ID: "b1", StreamID: "s1", AuthorID: "u1", Timestamp: base.Add(time.Minute)}))
	require.NoError(t, s.UpsertMessage(types.Message{ID: "b2", StreamID: "s1", AuthorID: "u2", Timestamp: base.Add(time.Minute)}))

	msgs, err := s.MessagesFor("s1")
	require.NoError(t, err)
	got := make([]string, 0, len(msgs))
	for _, m := range msgs {
		got = append(got, m.ID)
	}
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, got)

	t.Run("editing does not reshuffle equal timestamps", func(t *testing.T) {
		require.NoError(t, s.UpsertMessage(types.Message{ID: "b1", StreamID: "s1", AuthorID: "u1", Timestamp: base.Add(time.Minute), Content: "edited", Edited: true}))
		msgs, err := s.MessagesFor("s1")
		require.NoError(t, err)
		assert.Equal(t, "b1", msgs[1].ID)
		assert.Equal(t, "edited", msgs[1].Content)
	})

	t.Run("last activity tracks the newest timestamp", func(t *testing.T) {
		st, err := s.StreamByID("s1")
		require.NoError(t, err)
		assert.True(t, st.LastActivityAt.Equal(base.Add(2*time.Minute)))
	})
}

func TestThreadReplyCount(t *testing.T) {
	s := newSeededStore(t)
	require.NoError(t, s.UpsertMessage(types.Message{ID: "root", StreamID: "s1", AuthorID: "u1", Timestamp: base}))
	require.NoError(t, s.UpsertMessage(types.Message{ID: "r1", StreamID: "s1", AuthorID: "u2", ThreadID: "root", Timestamp: base.Add(time.Second)}))
	require.NoError(t, s.UpsertMessage(types.Message{ID: "r2", StreamID: "s1", AuthorID: "u1", ThreadID: "root", Timestamp: base.Add(2 * time.Second)}))

	root, err := s.MessageByID("root")
	require.NoError(t, err)
	assert.Equal(t, 2, root.ReplyCount)

	require.NoError(t, s.DeleteMessage("r2"))
	root, err = s.MessageByID("root")
	require.NoError(t, err)
	assert.Equal(t, 1, root.ReplyCount)
}

func TestThreadReplyCount_EditLeavesThread(t *testing.T) {
	s := newSeededStore(t)
	require.NoError(t, s.UpsertMessage(types.Message{ID: "root", StreamID: "s1", AuthorID: "u1", Timestamp: base}))
	require.NoError(t, s.UpsertMessage(types.Message{ID: "root2", StreamID: "s1", AuthorID: "u2", Timestamp: base.Add(time.Second)}))
	require.NoError(t, s.UpsertMessage(types.Message{ID: "r1", StreamID: "s1", AuthorID: "u2", ThreadID: "root", Timestamp: base.Add(2 * time.Second)}))

	// Editing the reply out of the thread drops the old root's count.
	require.NoError(t, s.UpsertMessage(types.Message{ID: "r1", StreamID: "s1", AuthorID: "u2", Timestamp: base.Add(2 * time.Second)}))
	root, err := s.MessageByID("root")
	require.NoError(t, err)
	assert.Equal(t, 0, root.ReplyCount)

	// Moving it into another thread recounts both roots.
	require.NoError(t, s.UpsertMessage(types.Message{ID: "r1", StreamID: "s1", AuthorID: "u2", ThreadID: "root2", Timestamp: base.Add(2 * time.Second)}))
	root, err = s.MessageByID("root")
	require.NoError(t, err)
	assert.Equal(t, 0, root.ReplyCount)
	root2, err := s.MessageByID("root2")
	require.NoError(t, err)
	assert.Equal(t, 1, root2.ReplyCount)

	// An edit that keeps the thread id keeps the count.
	require.NoError(t, s.UpsertMessage(types.Message{ID: "r1", StreamID: "s1", AuthorID: "u2", ThreadID: "root2", Content: "edited", Timestamp: base.Add(2 * time.Second)}))
	root2, err = s.MessageByID("root2")
	require.NoError(t, err)
	assert.Equal(t, 1, root2.ReplyCount)
}

func TestDeleteMessage_RepliedToRefuses(t *testing.T) {
	s := newSeededStore(t)
	require.NoError(t, s.UpsertMessage(types.Message{ID: "root", StreamID: "s1", AuthorID: "u1", Timestamp: base}))
	require.NoError(t, s.UpsertMessage(types.Message{ID: "child", StreamID: "s1", AuthorID: "u2", ReplyTo: "root", Timestamp: base.Add(time.Second)}))

	err := s.DeleteMessage("root")
	assert.ErrorIs(t, err, types.ErrConflict)

	require.NoError(t, s.DeleteMessage("child"))
	require.NoError(t, s.DeleteMessage("root"))
}

func TestReact(t *testing.T) {
	s := newSeededStore(t)
	require.NoError(t, s.UpsertMessage(types.Message{ID: "m1", StreamID: "s1", AuthorID: "u1", Timestamp: base}))

	t.Run("toggle on", func(t *testing.T) {
		require.NoError(t, s.React("m1", "🔥", "u1"))
		m, err := s.MessageByID("m1")
		require.NoError(t, err)
		require.Len(t, m.Reactions, 1)
		assert.Equal(t, 1, m.Reactions[0].Count())
		assert.True(t, m.Reactions[0].By("u1"))
	})

	t.Run("second user joins the same emoji", func(t *testing.T) {
		require.NoError(t, s.React("m1", "🔥", "u2"))
		m, err := s.MessageByID("m1")
		require.NoError(t, err)
		require.Len(t, m.Reactions, 1)
		assert.Equal(t, 2, m.Reactions[0].Count())
	})

	t.Run("toggle off removes only that user", func(t *testing.T) {
		require.NoError(t, s.React("m1", "🔥", "u1"))
		m, err := s.MessageByID("m1")
		require.NoError(t, err)
		require.Len(t, m.Reactions, 1)
		assert.False(t, m.Reactions[0].By("u1"))
		assert.True(t, m.Reactions[0].By("u2"))
	})

	t.Run("empty reactions disappear", func(t *testing.T) {
		require.NoError(t, s.React("m1", "🔥", "u2"))
		m, err := s.MessageByID("m1")
		require.NoError(t, err)
		assert.Empty(t, m.Reactions)
	})

	t.Run("unknown user", func(t *testing.T) {
		err := s.React("m1", "🔥", "ghost")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestDeleteNode(t *testing.T) {
	t.Run("reference check blocks deletion", func(t *testing.T) {
		s := newSeededStore(t)
		s.SetReferenceCheck(func(nodeID string) string {
			if nodeID == "n1" {
				return "open panel targets stream s1"
			}
			return ""
		})
		err := s.DeleteNode("n1")
		require.ErrorIs(t, err, types.ErrConflict)
		var conflict *types.ConflictError
		assert.True(t, errors.As(err, &conflict))

		_, err = s.NodeByID("n1")
		assert.NoError(t, err)
	})

	t.Run("deletion removes streams and messages", func(t *testing.T) {
		s := newSeededStore(t)
		require.NoError(t, s.UpsertMessage(types.Message{ID: "m1", StreamID: "s1", AuthorID: "u1", Timestamp: base}))
		require.NoError(t, s.DeleteNode("n1"))
		_, err := s.StreamByID("s1")
		assert.ErrorIs(t, err, types.ErrNotFound)
		_, err = s.MessageByID("m1")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("unknown node", func(t *testing.T) {
		s := New()
		assert.ErrorIs(t, s.DeleteNode("ghost"), types.ErrNotFound)
	})
}
