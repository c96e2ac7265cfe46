package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/rahul/planwright/internal/plan"
)

// Revision kinds.
const (
	KindCreate = "create"
	KindModify = "modify"
	KindEdit   = "edit"
)

// Fixed width so timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Revision is one recorded write of a task's plan.
type Revision struct {
	ID          string
	Task        string
	Kind        string
	Instruction string
	Plan        *plan.Plan
	Timestamp   time.Time
}

// HistoryStore logs every sanitized plan written for a task.
type HistoryStore struct {
	DB *sql.DB
}

func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS revisions (
			id TEXT PRIMARY KEY,
			task TEXT NOT NULL,
			kind TEXT NOT NULL,
			instruction TEXT,
			plan_json TEXT NOT NULL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_revisions_task ON revisions (task, timestamp);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &HistoryStore{DB: db}, nil
}

func (h *HistoryStore) Close() error {
	return h.DB.Close()
}

// AddRevision records p as the latest revision of its task and returns the revision id.
func (h *HistoryStore) AddRevision(kind, instruction string, p *plan.Plan) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode plan: %w", err)
	}

	id := uuid.NewString()
	query := `INSERT INTO revisions (id, task, kind, instruction, plan_json, timestamp) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = h.DB.Exec(query, id, plan.Slug(p.Task), kind, instruction, string(data), time.Now().UTC().Format(timestampLayout))
	if err != nil {
		return "", err
	}
	return id, nil
}

// Revisions returns up to limit revisions of task, oldest first.
func (h *HistoryStore) Revisions(task string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT id, task, kind, instruction, plan_json, timestamp FROM revisions WHERE task = ? ORDER BY timestamp DESC, rowid DESC LIMIT ?`
	rows, err := h.DB.Query(query, plan.Slug(task), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var r Revision
		var planJSON, ts string
		var instruction sql.NullString
		if err := rows.Scan(&r.ID, &r.Task, &r.Kind, &instruction, &planJSON, &ts); err != nil {
			return nil, err
		}
		r.Instruction = instruction.String

		var p plan.Plan
		if err := json.Unmarshal([]byte(planJSON), &p); err != nil {
			return nil, fmt.Errorf("revision %s: %w", r.ID, err)
		}
		r.Plan = &p
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(revs)-1; i < j; i, j = i+1, j-1 {
		revs[i], revs[j] = revs[j], revs[i]
	}
	return revs, nil
}
