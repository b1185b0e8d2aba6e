// Package persistence provides SQLite-based storage for agent state,
// mode history, and the event archive. Agent state is written at cycle
// boundaries and on shutdown; events stream in through the environment's
// sink, so the archive outlives the in-memory ring buffer.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/swarmsim/internal/controller"
	"github.com/talgya/swarmsim/internal/types"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		beliefs_json TEXT NOT NULL,
		desires_json TEXT NOT NULL,
		intentions_json TEXT NOT NULL,
		capabilities_json TEXT NOT NULL,
		cognitive_threshold REAL NOT NULL,
		success_rates_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS mode_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		complexity REAL NOT NULL,
		decided_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		ts INTEGER NOT NULL,
		type TEXT NOT NULL,
		source TEXT,
		payload_json TEXT
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	CREATE INDEX IF NOT EXISTS idx_mode_history_agent ON mode_history(agent_id, decided_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveAgentState upserts one agent's adaptive state.
func (db *DB) SaveAgentState(agentID string, state *controller.AgentState) error {
	beliefs, _ := json.Marshal(state.Beliefs)
	desires, _ := json.Marshal(state.Desires)
	intentions, _ := json.Marshal(state.Intentions)
	capabilities, _ := json.Marshal(state.Capabilities)
	rates, _ := json.Marshal(state.SuccessRates)

	_, err := db.conn.Exec(`INSERT INTO agents
		(id, beliefs_json, desires_json, intentions_json, capabilities_json,
		 cognitive_threshold, success_rates_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 beliefs_json=excluded.beliefs_json,
		 desires_json=excluded.desires_json,
		 intentions_json=excluded.intentions_json,
		 capabilities_json=excluded.capabilities_json,
		 cognitive_threshold=excluded.cognitive_threshold,
		 success_rates_json=excluded.success_rates_json,
		 updated_at=excluded.updated_at`,
		agentID, string(beliefs), string(desires), string(intentions),
		string(capabilities), state.CognitiveThreshold, string(rates),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save agent %s: %w", agentID, err)
	}
	return nil
}

// LoadAgentState restores one agent's state, or (nil, nil) if unknown.
func (db *DB) LoadAgentState(agentID string) (*controller.AgentState, error) {
	var row struct {
		Beliefs      string  `db:"beliefs_json"`
		Desires      string  `db:"desires_json"`
		Intentions   string  `db:"intentions_json"`
		Capabilities string  `db:"capabilities_json"`
		Threshold    float64 `db:"cognitive_threshold"`
		Rates        string  `db:"success_rates_json"`
	}
	err := db.conn.Get(&row, `SELECT beliefs_json, desires_json, intentions_json,
		capabilities_json, cognitive_threshold, success_rates_json
		FROM agents WHERE id = ?`, agentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load agent %s: %w", agentID, err)
	}

	state := controller.NewAgentState()
	state.CognitiveThreshold = row.Threshold
	// Stored JSON that fails to decode falls back to fresh defaults:
	// stale state must never keep an agent from starting.
	if err := json.Unmarshal([]byte(row.Beliefs), &state.Beliefs); err != nil {
		slog.Warn("discarding undecodable beliefs", "agent", agentID, "error", err)
	}
	json.Unmarshal([]byte(row.Desires), &state.Desires)
	json.Unmarshal([]byte(row.Intentions), &state.Intentions)
	json.Unmarshal([]byte(row.Capabilities), &state.Capabilities)
	json.Unmarshal([]byte(row.Rates), &state.SuccessRates)
	return state, nil
}

// SaveModeHistory appends mode decisions for one agent.
func (db *DB) SaveModeHistory(agentID string, entries []controller.ModeHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range entries {
		_, err := tx.Exec(`INSERT INTO mode_history (agent_id, mode, complexity, decided_at)
			VALUES (?, ?, ?, ?)`,
			agentID, string(e.Mode), e.Complexity, e.Timestamp.Unix())
		if err != nil {
			return fmt.Errorf("insert mode history for %s: %w", agentID, err)
		}
	}
	return tx.Commit()
}

// AppendEvent archives one event. Shaped to serve as the environment's
// event sink; failures are logged, not propagated, because the sink
// runs inside the environment's mutating section.
func (db *DB) AppendEvent(ev types.Event) {
	payload, _ := json.Marshal(ev.Payload)
	_, err := db.conn.Exec(`INSERT OR IGNORE INTO events (id, ts, type, source, payload_json)
		VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.Timestamp.Unix(), ev.Type, ev.Source, string(payload))
	if err != nil {
		slog.Warn("event archive write failed", "event", ev.ID, "error", err)
	}
}

// RecentEvents loads the newest n archived events, oldest first.
func (db *DB) RecentEvents(n int) ([]types.Event, error) {
	rows, err := db.conn.Queryx(`SELECT id, ts, type, source, payload_json
		FROM events ORDER BY ts DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []types.Event
	for rows.Next() {
		var id, typ, payload string
		var source sql.NullString
		var ts int64
		if err := rows.Scan(&id, &ts, &typ, &source, &payload); err != nil {
			return nil, err
		}
		ev := types.Event{ID: id, Timestamp: time.Unix(ts, 0), Type: typ, Source: source.String}
		if payload != "" && payload != "null" {
			json.Unmarshal([]byte(payload), &ev.Payload)
		}
		out = append(out, ev)
	}
	// Oldest first, matching the in-memory log's ordering.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

// SetMeta stores a key/value metadata pair.
func (db *DB) SetMeta(key, value string) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`,
		key, value)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}
