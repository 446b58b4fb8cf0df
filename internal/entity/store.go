// Package entity implements the entity store: users, nodes (with their
// districts and streams), messages, and the bot module catalog. Every
// mutation validates referential integrity before touching state, so a
// rejected call leaves the store exactly as it was.
package entity

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"nexus/internal/logging"
	"nexus/internal/types"
)

// ReferenceCheck reports why a node may not be deleted yet. It returns a
// human-readable reason when live references (open panels, the active node
// pointer) still target the node, or "" when deletion is allowed. The
// session facade installs this so the no-dangling-panel contract is enforced
// at the store boundary.
type ReferenceCheck func(nodeID string) string

// Store owns all content entities. Layout state (panels, spaces) lives in
// the workspace package; the two touch disjoint state and are safe to call
// interleaved.
type Store struct {
	mu sync.RWMutex

	users     map[string]*types.User
	userOrder []string

	nodes     map[string]*types.Node
	nodeOrder []string

	modules     map[string]*types.BotModule
	moduleOrder []string

	// streamIndex maps stream id -> owning node id. Rebuilt on node upsert.
	streamIndex map[string]string

	// messages holds the per-stream message lists, kept ordered by
	// (timestamp, insertion sequence). The sequence is monotonic and makes
	// equal-timestamp ordering stable.
	messages  map[string][]*types.Message
	msgStream map[string]string // message id -> stream id
	msgSeq    map[string]uint64
	nextSeq   uint64

	refCheck ReferenceCheck
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:       make(map[string]*types.User),
		nodes:       make(map[string]*types.Node),
		modules:     make(map[string]*types.BotModule),
		streamIndex: make(map[string]string),
		messages:    make(map[string][]*types.Message),
		msgStream:   make(map[string]string),
		msgSeq:      make(map[string]uint64),
	}
}

// SetReferenceCheck installs the callback consulted by DeleteNode.
func (s *Store) SetReferenceCheck(check ReferenceCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refCheck = check
}

// =============================================================================
// USERS
// =============================================================================

// UpsertUser inserts or replaces a user. A CityRoles entry is only legal for
// a node the user has joined.
func (s *Store) UpsertUser(u types.User) error {
	if u.ID == "" {
		return types.Integrityf("user id required")
	}
	for nodeID := range u.CityRoles {
		if !u.IsMemberOf(nodeID) {
			return types.Integrityf("user %q holds a city role for node %q without membership", u.ID, nodeID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		s.userOrder = append(s.userOrder, u.ID)
	}
	s.users[u.ID] = cloneUser(&u)
	logging.EntityDebug("user upserted: %s (%s)", u.ID, u.Username)
	return nil
}

// UserByID returns a copy of the user.
func (s *Store) UserByID(id string) (types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return types.User{}, types.NotFound("user", id)
	}
	return *cloneUser(u), nil
}

// Users returns all users in insertion order.
func (s *Store) Users() []types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, *cloneUser(s.users[id]))
	}
	return out
}

// =============================================================================
// NODES, DISTRICTS, STREAMS
// =============================================================================

// validateNode checks the internal hierarchy invariants of a node: streams
// carry the node's id, district stream lists are subsets of the node's
// stream set, and a stream's districtId back-reference is mutually
// consistent with the district's list.
func validateNode(n *types.Node) error {
	if n.ID == "" {
		return types.Integrityf("node id required")
	}
	streamIDs := make(map[string]bool, len(n.Streams))
	for i := range n.Streams {
		st := &n.Streams[i]
		if st.ID == "" {
			return types.Integrityf("node %q has a stream without an id", n.ID)
		}
		if streamIDs[st.ID] {
			return types.Integrityf("node %q lists stream %q twice", n.ID, st.ID)
		}
		streamIDs[st.ID] = true
		if st.NodeID != "" && st.NodeID != n.ID {
			return types.Integrityf("stream %q claims node %q inside node %q", st.ID, st.NodeID, n.ID)
		}
	}
	districtIDs := make(map[string]*types.District, len(n.Districts))
	for i := range n.Districts {
		d := &n.Districts[i]
		if d.NodeID != "" && d.NodeID != n.ID {
			return types.Integrityf("district %q claims node %q inside node %q", d.ID, d.NodeID, n.ID)
		}
		districtIDs[d.ID] = d
		for _, sid := range d.Streams {
			if !streamIDs[sid] {
				return types.Integrityf("district %q references stream %q not present in node %q", d.ID, sid, n.ID)
			}
		}
	}
	for i := range n.Streams {
		st := &n.Streams[i]
		if st.DistrictID == "" {
			continue
		}
		d, ok := districtIDs[st.DistrictID]
		if !ok {
			return types.Integrityf("stream %q references unknown district %q", st.ID, st.DistrictID)
		}
		listed := false
		for _, sid := range d.Streams {
			if sid == st.ID {
				listed = true
				break
			}
		}
		if !listed {
			return types.Integrityf("stream %q claims district %q which does not list it", st.ID, st.DistrictID)
		}
	}
	return nil
}

// UpsertNode inserts or replaces a node after validating its hierarchy.
// Messages belonging to streams that disappear in a replacement are dropped
// with the streams (they would otherwise dangle).
func (s *Store) UpsertNode(n types.Node) error {
	if err := validateNode(&n); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A stream id may not be claimed by a different node.
	for i := range n.Streams {
		if owner, ok := s.streamIndex[n.Streams[i].ID]; ok && owner != n.ID {
			return types.Integrityf("stream %q already belongs to node %q", n.Streams[i].ID, owner)
		}
	}

	clone := cloneNode(&n)
	for i := range clone.Streams {
		clone.Streams[i].NodeID = n.ID
	}
	for i := range clone.Districts {
		clone.Districts[i].NodeID = n.ID
	}

	if old, ok := s.nodes[n.ID]; ok {
		// Drop index entries and messages for streams removed by the
		// replacement.
		kept := make(map[string]bool, len(clone.Streams))
		for i := range clone.Streams {
			kept[clone.Streams[i].ID] = true
		}
		for i := range old.Streams {
			sid := old.Streams[i].ID
			if kept[sid] {
				continue
			}
			delete(s.streamIndex, sid)
			for _, m := range s.messages[sid] {
				delete(s.msgStream, m.ID)
				delete(s.msgSeq, m.ID)
			}
			delete(s.messages, sid)
		}
	} else {
		s.nodeOrder = append(s.nodeOrder, n.ID)
	}

	s.nodes[n.ID] = clone
	for i := range clone.Streams {
		s.streamIndex[clone.Streams[i].ID] = n.ID
	}
	logging.Entity("node upserted: %s (%d streams, %d districts)", n.ID, len(clone.Streams), len(clone.Districts))
	return nil
}

// UpsertStream inserts or replaces a single stream within its node. The
// modified node goes through full hierarchy validation, so a stream that
// would break district consistency is rejected without touching the node.
func (s *Store) UpsertStream(st types.Stream) error {
	if st.ID == "" {
		return types.Integrityf("stream id required")
	}
	if st.NodeID == "" {
		return types.Integrityf("stream %q has no node", st.ID)
	}

	s.mu.Lock()
	node, ok := s.nodes[st.NodeID]
	if !ok {
		s.mu.Unlock()
		return types.NotFound("node", st.NodeID)
	}
	next := cloneNode(node)
	s.mu.Unlock()

	replaced := false
	for i := range next.Streams {
		if next.Streams[i].ID == st.ID {
			next.Streams[i] = st
			replaced = true
			break
		}
	}
	if !replaced {
		next.Streams = append(next.Streams, st)
	}
	return s.UpsertNode(*next)
}

// NodeByID returns a copy of the node.
func (s *Store) NodeByID(id string) (types.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return types.Node{}, types.NotFound("node", id)
	}
	return *cloneNode(n), nil
}

// Nodes returns all nodes in insertion order.
func (s *Store) Nodes() []types.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, *cloneNode(s.nodes[id]))
	}
	return out
}

// StreamByID resolves a stream through the stream index.
func (s *Store) StreamByID(id string) (types.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.streamLocked(id)
	if err != nil {
		return types.Stream{}, err
	}
	return *st, nil
}

func (s *Store) streamLocked(id string) (*types.Stream, error) {
	nodeID, ok := s.streamIndex[id]
	if !ok {
		return nil, types.NotFound("stream", id)
	}
	st := s.nodes[nodeID].StreamByID(id)
	if st == nil {
		return nil, types.NotFound("stream", id)
	}
	return st, nil
}

// DeleteNode removes a node, its streams, and their messages. It refuses
// with a ConflictError while the installed reference check reports live
// references (open panels targeting the node, or the active-node pointer).
func (s *Store) DeleteNode(id string) error {
	s.mu.Lock()
	check := s.refCheck
	_, ok := s.nodes[id]
	s.mu.Unlock()
	if !ok {
		return types.NotFound("node", id)
	}

	// The check runs unlocked: it calls back into the workspace layer,
	// which holds its own lock.
	if check != nil {
		if reason := check(id); reason != "" {
			return types.Conflictf("node %q still referenced: %s", id, reason)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[id]
	if !ok {
		return types.NotFound("node", id)
	}
	for i := range node.Streams {
		sid := node.Streams[i].ID
		for _, m := range s.messages[sid] {
			delete(s.msgStream, m.ID)
			delete(s.msgSeq, m.ID)
		}
		delete(s.messages, sid)
		delete(s.streamIndex, sid)
	}
	delete(s.nodes, id)
	for i, nid := range s.nodeOrder {
		if nid == id {
			s.nodeOrder = append(s.nodeOrder[:i], s.nodeOrder[i+1:]...)
			break
		}
	}
	logging.Entity("node deleted: %s", id)
	return nil
}

// =============================================================================
// BOT MODULES
// =============================================================================

// UpsertModule inserts or replaces a catalog entry.
func (s *Store) UpsertModule(m types.BotModule) error {
	if m.ID == "" {
		return types.Integrityf("module id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[m.ID]; !ok {
		s.moduleOrder = append(s.moduleOrder, m.ID)
	}
	cp := m
	s.modules[m.ID] = &cp
	return nil
}

// ModuleByID returns a catalog entry.
func (s *Store) ModuleByID(id string) (types.BotModule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[id]
	if !ok {
		return types.BotModule{}, types.NotFound("module", id)
	}
	return *m, nil
}

// Modules returns the catalog in insertion order.
func (s *Store) Modules() []types.BotModule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.BotModule, 0, len(s.moduleOrder))
	for _, id := range s.moduleOrder {
		out = append(out, *s.modules[id])
	}
	return out
}

// =============================================================================
// MESSAGES
// =============================================================================

// UpsertMessage inserts or replaces a message. The author, stream, replyTo
// target (same stream), and thread root must all resolve before any state
// changes. Inserting bumps the owning stream's last-activity time and
// recounts the thread root's replies.
func (s *Store) UpsertMessage(m types.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	if m.Kind == "" {
		m.Kind = types.MessageText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.streamIndex[m.StreamID]; !ok {
		return types.NotFound("stream", m.StreamID)
	}
	if _, ok := s.users[m.AuthorID]; !ok {
		return types.Integrityf("message %q author %q does not resolve", m.ID, m.AuthorID)
	}
	if m.ReplyTo != "" {
		parentStream, ok := s.msgStream[m.ReplyTo]
		if !ok {
			return types.Integrityf("message %q replies to unknown message %q", m.ID, m.ReplyTo)
		}
		if parentStream != m.StreamID {
			return types.Integrityf("message %q replies across streams (%q -> %q)", m.ID, m.StreamID, parentStream)
		}
	}
	if m.ThreadID != "" && m.ThreadID != m.ID {
		rootStream, ok := s.msgStream[m.ThreadID]
		if !ok {
			return types.Integrityf("message %q joins unknown thread %q", m.ID, m.ThreadID)
		}
		if rootStream != m.StreamID {
			return types.Integrityf("message %q joins thread %q from another stream", m.ID, m.ThreadID)
		}
	}
	if existing, ok := s.msgStream[m.ID]; ok && existing != m.StreamID {
		return types.Integrityf("message %q cannot move from stream %q to %q", m.ID, existing, m.StreamID)
	}

	clone := cloneMessage(&m)
	list := s.messages[m.StreamID]
	var prevThreadID string
	if _, ok := s.msgStream[m.ID]; ok {
		for i, old := range list {
			if old.ID == m.ID {
				prevThreadID = old.ThreadID
				list[i] = clone
				break
			}
		}
	} else {
		s.nextSeq++
		s.msgSeq[m.ID] = s.nextSeq
		s.msgStream[m.ID] = m.StreamID
		list = append(list, clone)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Timestamp.Equal(list[j].Timestamp) {
			return list[i].Timestamp.Before(list[j].Timestamp)
		}
		return s.msgSeq[list[i].ID] < s.msgSeq[list[j].ID]
	})
	s.messages[m.StreamID] = list

	if st, err := s.streamLocked(m.StreamID); err == nil {
		if m.Timestamp.After(st.LastActivityAt) {
			st.LastActivityAt = m.Timestamp
		}
	}
	// An edit can leave one thread and join another; recount both roots.
	if prevThreadID != "" && prevThreadID != m.ThreadID {
		s.recountThreadLocked(m.StreamID, prevThreadID)
	}
	if m.ThreadID != "" {
		s.recountThreadLocked(m.StreamID, m.ThreadID)
	}
	logging.EntityDebug("message upserted: %s in stream %s", m.ID, m.StreamID)
	return nil
}

// recountThreadLocked recomputes ReplyCount on a thread root: the number of
// messages in the stream carrying the thread id, excluding the root itself.
func (s *Store) recountThreadLocked(streamID, threadID string) {
	var root *types.Message
	count := 0
	for _, m := range s.messages[streamID] {
		if m.ID == threadID {
			root = m
		} else if m.ThreadID == threadID {
			count++
		}
	}
	if root != nil {
		root.ReplyCount = count
	}
}

// DeleteMessage removes a message. It refuses while other messages still
// reply to it, so reply chains never dangle.
func (s *Store) DeleteMessage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	streamID, ok := s.msgStream[id]
	if !ok {
		return types.NotFound("message", id)
	}
	for _, m := range s.messages[streamID] {
		if m.ReplyTo == id {
			return types.Conflictf("message %q still has replies", id)
		}
	}

	list := s.messages[streamID]
	var threadID string
	for i, m := range list {
		if m.ID == id {
			threadID = m.ThreadID
			s.messages[streamID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	delete(s.msgStream, id)
	delete(s.msgSeq, id)
	if threadID != "" && threadID != id {
		s.recountThreadLocked(streamID, threadID)
	}
	return nil
}

// React toggles the (user, emoji) reaction on a message. Reacting twice
// with the same pair is a no-op on the second call, not a double increment.
func (s *Store) React(messageID, emoji, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	streamID, ok := s.msgStream[messageID]
	if !ok {
		return types.NotFound("message", messageID)
	}
	if _, ok := s.users[userID]; !ok {
		return types.NotFound("user", userID)
	}

	var msg *types.Message
	for _, m := range s.messages[streamID] {
		if m.ID == messageID {
			msg = m
			break
		}
	}
	if msg == nil {
		return types.NotFound("message", messageID)
	}

	for i := range msg.Reactions {
		r := &msg.Reactions[i]
		if r.Emoji != emoji {
			continue
		}
		for j, uid := range r.Users {
			if uid == userID {
				// Toggle off. Drop the reaction entirely when empty.
				r.Users = append(r.Users[:j], r.Users[j+1:]...)
				if len(r.Users) == 0 {
					msg.Reactions = append(msg.Reactions[:i], msg.Reactions[i+1:]...)
				}
				return nil
			}
		}
		r.Users = append(r.Users, userID)
		return nil
	}
	msg.Reactions = append(msg.Reactions, types.Reaction{Emoji: emoji, Users: []string{userID}})
	return nil
}

// MessagesFor returns the stream's messages ordered by timestamp, with
// insertion order breaking ties.
func (s *Store) MessagesFor(streamID string) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.streamIndex[streamID]; !ok {
		return nil, types.NotFound("stream", streamID)
	}
	list := s.messages[streamID]
	out := make([]types.Message, 0, len(list))
	for _, m := range list {
		out = append(out, *cloneMessage(m))
	}
	return out, nil
}

// MessageByID returns a single message.
func (s *Store) MessageByID(id string) (types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	streamID, ok := s.msgStream[id]
	if !ok {
		return types.Message{}, types.NotFound("message", id)
	}
	for _, m := range s.messages[streamID] {
		if m.ID == id {
			return *cloneMessage(m), nil
		}
	}
	return types.Message{}, types.NotFound("message", id)
}
