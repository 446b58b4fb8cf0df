// Package snapshot persists the full session aggregate to SQLite and
// restores it. The store is an external collaborator: it only talks to the
// facade, so every restored record passes the same integrity checks as a
// live write. Rows hold JSON blobs; ordering columns preserve message
// insertion order and panel stacking order across a round trip.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"nexus/internal/logging"
	"nexus/internal/session"
	"nexus/internal/types"
)

const schemaVersion = 1

// Store wraps the snapshot database.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open initializes the snapshot database at the given path, creating the
// parent directory and schema as needed.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entities (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (kind, id)
	);
	CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind, position);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		stream_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		data TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_stream ON messages(stream_id, position);

	CREATE TABLE IF NOT EXISTS panels (
		id TEXT PRIMARY KEY,
		space_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		data TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_panels_space ON panels(space_id, position);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create snapshot schema: %w", err)
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`,
		fmt.Sprintf("%d", schemaVersion))
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// Save replaces the stored snapshot with the session's current aggregate.
// The write is a single transaction: a failed save leaves the previous
// snapshot intact.
func (s *Store) Save(st *session.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"entities", "messages", "panels"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i, u := range st.Users() {
		if err := insertEntity(tx, "user", u.ID, i, u); err != nil {
			return err
		}
	}
	for i, m := range st.Modules() {
		if err := insertEntity(tx, "module", m.ID, i, m); err != nil {
			return err
		}
	}
	nodes := st.Nodes()
	for i, n := range nodes {
		if err := insertEntity(tx, "node", n.ID, i, n); err != nil {
			return err
		}
	}

	for _, n := range nodes {
		for _, stream := range n.Streams {
			msgs, err := st.MessagesFor(stream.ID)
			if err != nil {
				return fmt.Errorf("failed to read stream %s: %w", stream.ID, err)
			}
			for i, msg := range msgs {
				blob, err := json.Marshal(msg)
				if err != nil {
					return fmt.Errorf("failed to encode message %s: %w", msg.ID, err)
				}
				_, err = tx.Exec(`INSERT INTO messages (id, stream_id, position, data) VALUES (?, ?, ?, ?)`,
					msg.ID, stream.ID, i, string(blob))
				if err != nil {
					return fmt.Errorf("failed to store message %s: %w", msg.ID, err)
				}
			}
		}
	}

	for _, spaceID := range types.AllSpaceIDs() {
		panels, err := st.LayoutOf(spaceID)
		if err != nil {
			return fmt.Errorf("failed to read layout of %s: %w", spaceID, err)
		}
		for i, p := range panels {
			blob, err := encodePanel(p)
			if err != nil {
				return fmt.Errorf("failed to encode panel %s: %w", p.ID, err)
			}
			_, err = tx.Exec(`INSERT INTO panels (id, space_id, position, data) VALUES (?, ?, ?, ?)`,
				p.ID, string(spaceID), i, string(blob))
			if err != nil {
				return fmt.Errorf("failed to store panel %s: %w", p.ID, err)
			}
		}
	}

	var currentUserID string
	if u := st.CurrentUser(); u != nil {
		currentUserID = u.ID
	}
	meta := map[string]string{
		"current_user": currentUserID,
		"active_node":  st.ActiveNodeID(),
		"active_space": string(st.ActiveSpaceID()),
	}
	for k, v := range meta {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to store meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	logging.Snapshot("snapshot saved: %d nodes, path=%s", len(nodes), s.dbPath)
	return nil
}

// Load replays the stored snapshot into the session. The session should be
// freshly constructed; panels are adopted with their persisted ids and
// stacking order, and messages re-enter in their persisted insertion order.
func (s *Store) Load(st *session.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []types.User
	if err := s.readEntities("user", &users); err != nil {
		return err
	}
	for _, u := range users {
		if err := st.UpsertUser(u); err != nil {
			return fmt.Errorf("failed to restore user %s: %w", u.ID, err)
		}
	}

	var modules []types.BotModule
	if err := s.readEntities("module", &modules); err != nil {
		return err
	}
	for _, m := range modules {
		if err := st.UpsertModule(m); err != nil {
			return fmt.Errorf("failed to restore module %s: %w", m.ID, err)
		}
	}

	var nodes []types.Node
	if err := s.readEntities("node", &nodes); err != nil {
		return err
	}
	for _, n := range nodes {
		if err := st.UpsertNode(n); err != nil {
			return fmt.Errorf("failed to restore node %s: %w", n.ID, err)
		}
	}

	rows, err := s.db.Query(`SELECT data FROM messages ORDER BY stream_id, position`)
	if err != nil {
		return fmt.Errorf("failed to read messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return fmt.Errorf("failed to scan message: %w", err)
		}
		var msg types.Message
		if err := json.Unmarshal([]byte(blob), &msg); err != nil {
			return fmt.Errorf("failed to decode message: %w", err)
		}
		if err := st.UpsertMessage(msg); err != nil {
			return fmt.Errorf("failed to restore message %s: %w", msg.ID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate messages: %w", err)
	}

	if userID, ok := s.readMeta("current_user"); ok && userID != "" {
		u, err := st.UserByID(userID)
		if err != nil {
			return fmt.Errorf("failed to restore current user: %w", err)
		}
		if err := st.SetCurrentUser(&u); err != nil {
			return err
		}
	}
	if nodeID, ok := s.readMeta("active_node"); ok && nodeID != "" {
		if err := st.SetActiveNode(nodeID); err != nil {
			return fmt.Errorf("failed to restore active node: %w", err)
		}
	}
	if space, ok := s.readMeta("active_space"); ok && space != "" {
		if err := st.SwitchActiveSpace(types.SpaceID(space)); err != nil {
			return fmt.Errorf("failed to restore active space: %w", err)
		}
	}

	prows, err := s.db.Query(`SELECT space_id, data FROM panels ORDER BY space_id, position`)
	if err != nil {
		return fmt.Errorf("failed to read panels: %w", err)
	}
	defer prows.Close()
	restored := 0
	for prows.Next() {
		var spaceID, blob string
		if err := prows.Scan(&spaceID, &blob); err != nil {
			return fmt.Errorf("failed to scan panel: %w", err)
		}
		p, err := decodePanel([]byte(blob))
		if err != nil {
			return err
		}
		if err := st.AdoptPanel(types.SpaceID(spaceID), p); err != nil {
			return fmt.Errorf("failed to restore panel %s: %w", p.ID, err)
		}
		restored++
	}
	if err := prows.Err(); err != nil {
		return fmt.Errorf("failed to iterate panels: %w", err)
	}

	logging.Snapshot("snapshot loaded: %d nodes, %d panels", len(nodes), restored)
	return nil
}

func insertEntity(tx *sql.Tx, kind, id string, position int, v any) error {
	blob, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", kind, id, err)
	}
	_, err = tx.Exec(`INSERT INTO entities (kind, id, position, data) VALUES (?, ?, ?, ?)`,
		kind, id, position, string(blob))
	if err != nil {
		return fmt.Errorf("failed to store %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *Store) readEntities(kind string, out any) error {
	rows, err := s.db.Query(`SELECT data FROM entities WHERE kind = ? ORDER BY position`, kind)
	if err != nil {
		return fmt.Errorf("failed to read %s entities: %w", kind, err)
	}
	defer rows.Close()

	var blobs []json.RawMessage
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return fmt.Errorf("failed to scan %s entity: %w", kind, err)
		}
		blobs = append(blobs, json.RawMessage(blob))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate %s entities: %w", kind, err)
	}

	joined, err := json.Marshal(blobs)
	if err != nil {
		return fmt.Errorf("failed to assemble %s entities: %w", kind, err)
	}
	if err := json.Unmarshal(joined, out); err != nil {
		return fmt.Errorf("failed to decode %s entities: %w", kind, err)
	}
	return nil
}

func (s *Store) readMeta(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}
