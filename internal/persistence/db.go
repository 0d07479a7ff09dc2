// Package persistence provides SQLite-based office state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/mini-office/internal/agents"
	"github.com/talgya/mini-office/internal/engine"
	"github.com/talgya/mini-office/internal/needs"
	"github.com/talgya/mini-office/internal/work"
	"github.com/talgya/mini-office/internal/world"
)

// Project states stored in the projects table.
const (
	projectActive = "active"
	projectQueued = "queued"
	projectDone   = "done"
)

// DB wraps a SQLite connection for office state persistence.
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
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL,
		pos_z REAL NOT NULL,
		yaw REAL NOT NULL,
		skill REAL NOT NULL,
		alive INTEGER NOT NULL,
		born_tick INTEGER NOT NULL,
		needs_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		complexity INTEGER NOT NULL,
		progress REAL NOT NULL,
		posted_tick INTEGER NOT NULL,
		finished_tick INTEGER NOT NULL,
		state TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seq INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		meta_json TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_projects_state ON projects(state);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// agentRow mirrors the agents table.
type agentRow struct {
	ID        uint64  `db:"id"`
	Name      string  `db:"name"`
	PosX      float64 `db:"pos_x"`
	PosY      float64 `db:"pos_y"`
	PosZ      float64 `db:"pos_z"`
	Yaw       float64 `db:"yaw"`
	Skill     float64 `db:"skill"`
	Alive     bool    `db:"alive"`
	BornTick  uint64  `db:"born_tick"`
	NeedsJSON string  `db:"needs_json"`
}

// projectRow mirrors the projects table.
type projectRow struct {
	ID           string  `db:"id"`
	Seq          int     `db:"seq"`
	Name         string  `db:"name"`
	Complexity   int     `db:"complexity"`
	Progress     float64 `db:"progress"`
	PostedTick   uint64  `db:"posted_tick"`
	FinishedTick uint64  `db:"finished_tick"`
	State        string  `db:"state"`
}

// SaveAgents writes all agents to the database (full replace).
func (db *DB) SaveAgents(agentList []*agents.Agent) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM agents"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO agents
		(id, name, pos_x, pos_y, pos_z, yaw, skill, alive, born_tick, needs_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range agentList {
		needsJSON, err := json.Marshal(a.NeedLevels())
		if err != nil {
			return fmt.Errorf("encode needs for agent %d: %w", a.ID, err)
		}

		alive := 0
		if a.Alive {
			alive = 1
		}

		_, err = stmt.Exec(
			a.ID, a.Name, a.Position.X, a.Position.Y, a.Position.Z, a.Yaw,
			a.Skill, alive, a.BornTick, string(needsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert agent %d: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// LoadAgents rebuilds saved agents through the spawner, which supplies their
// need models. Agents come back idle.
func (db *DB) LoadAgents(sp *agents.Spawner) ([]*agents.Agent, error) {
	var rows []agentRow
	if err := db.conn.Select(&rows, "SELECT * FROM agents ORDER BY id"); err != nil {
		return nil, fmt.Errorf("select agents: %w", err)
	}

	out := make([]*agents.Agent, 0, len(rows))
	for _, r := range rows {
		var levels map[string]needs.Level
		if err := json.Unmarshal([]byte(r.NeedsJSON), &levels); err != nil {
			return nil, fmt.Errorf("decode needs for agent %d: %w", r.ID, err)
		}
		a := sp.Restore(agents.AgentID(r.ID), r.Name, levels)
		a.Position = world.Vec3{X: r.PosX, Y: r.PosY, Z: r.PosZ}
		a.Yaw = r.Yaw
		a.Skill = r.Skill
		a.Alive = r.Alive
		a.BornTick = r.BornTick
		out = append(out, a)
	}
	return out, nil
}

// SaveBoard writes the work board's projects (full replace).
func (db *DB) SaveBoard(b *work.Board) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM projects"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO projects
		(id, seq, name, complexity, progress, posted_tick, finished_tick, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	seq := 0
	insert := func(p work.Project, state string) error {
		seq++
		_, err := stmt.Exec(p.ID.String(), seq, p.Name, p.Complexity, p.Progress, p.PostedTick, p.FinishedAt, state)
		if err != nil {
			return fmt.Errorf("insert project %s: %w", p.Name, err)
		}
		return nil
	}

	for _, p := range b.Completed() {
		if err := insert(p, projectDone); err != nil {
			return err
		}
	}
	if p, ok := b.Active(); ok {
		if err := insert(p, projectActive); err != nil {
			return err
		}
	}
	for _, p := range b.Queued() {
		if err := insert(p, projectQueued); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadBoard restores saved projects into b. It reports whether anything was
// found.
func (db *DB) LoadBoard(b *work.Board) (bool, error) {
	var rows []projectRow
	if err := db.conn.Select(&rows, "SELECT * FROM projects ORDER BY seq"); err != nil {
		return false, fmt.Errorf("select projects: %w", err)
	}
	if len(rows) == 0 {
		return false, nil
	}

	var active *work.Project
	var queued, done []work.Project
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return false, fmt.Errorf("project %q: %w", r.Name, err)
		}
		p := work.Project{
			ID:         id,
			Name:       r.Name,
			Complexity: r.Complexity,
			Progress:   r.Progress,
			PostedTick: r.PostedTick,
			FinishedAt: r.FinishedTick,
		}
		switch r.State {
		case projectActive:
			active = &p
		case projectQueued:
			queued = append(queued, p)
		default:
			done = append(done, p)
		}
	}
	b.Restore(active, queued, done)
	return true, nil
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		meta := []byte("{}")
		if len(e.Meta) > 0 {
			if meta, err = json.Marshal(e.Meta); err != nil {
				return fmt.Errorf("encode event meta: %w", err)
			}
		}
		_, err := tx.Exec(
			"INSERT INTO events (seq, tick, description, category, meta_json) VALUES (?, ?, ?, ?, ?)",
			e.Seq, e.Tick, e.Description, e.Category, string(meta),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in office metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// metaUint reads a numeric metadata value; a missing key is zero.
func (db *DB) metaUint(key string) (uint64, error) {
	v, err := db.GetMeta(key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

// LastTick returns the tick recorded by the last save.
func (db *DB) LastTick() (uint64, error) {
	return db.metaUint("last_tick")
}

// HasWorldState reports whether a previous save exists.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta("last_tick")
	return err == nil
}

// SaveWorldState performs a full save of all office state. Only events newer
// than the previous save are appended.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	savedSeq, err := db.metaUint("event_seq")
	if err != nil {
		return fmt.Errorf("read event seq: %w", err)
	}

	var (
		fresh   []engine.Event
		tick    uint64
		clock   float64
		seq     uint64
		saveErr error
	)
	// Agents are mutated by the tick; encode them under the read lock.
	sim.View(func(s *engine.Simulation) {
		for _, e := range s.Events {
			if e.Seq > savedSeq {
				fresh = append(fresh, e)
			}
		}
		tick, clock, seq = s.LastTick, s.Clock, s.EventSeq

		slog.Info("saving office state", "agents", len(s.Agents), "events", len(fresh))
		saveErr = db.SaveAgents(s.Agents)
	})
	if saveErr != nil {
		return fmt.Errorf("save agents: %w", saveErr)
	}
	if err := db.SaveBoard(sim.Board); err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	if err := db.SaveEvents(fresh); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("event_seq", strconv.FormatUint(seq, 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("clock", strconv.FormatFloat(clock, 'f', 3, 64)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("last_tick", strconv.FormatUint(tick, 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("office state saved", "tick", tick)
	return nil
}

// EventSeq returns the seq of the last saved event.
func (db *DB) EventSeq() (uint64, error) {
	return db.metaUint("event_seq")
}

// Clock returns the saved sim-clock in seconds.
func (db *DB) Clock() (float64, error) {
	v, err := db.GetMeta("clock")
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(v, 64)
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT seq, tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}
