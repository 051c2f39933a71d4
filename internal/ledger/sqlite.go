package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

var ErrProjectNotFound = errors.New("project not found")

type Store struct {
	db *sql.DB
}

type ProjectRecord struct {
	ID              string
	Name            string
	Width           int
	Height          int
	BackgroundColor string
	Layers          []LayerRecord
	OwnerID         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type LayerRecord struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Visible bool           `json:"visible"`
	Opacity float64        `json:"opacity"`
	X       float64        `json:"x"`
	Y       float64        `json:"y"`
	Width   float64        `json:"width"`
	Height  float64        `json:"height"`
	Data    map[string]any `json:"data"`
	ZIndex  int            `json:"z_index"`
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS projects (
  project_id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  width INTEGER NOT NULL,
  height INTEGER NOT NULL,
  background_color TEXT NOT NULL DEFAULT '#ffffff',
  layers_json TEXT NOT NULL DEFAULT '[]',
  owner_id TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id);
CREATE TABLE IF NOT EXISTS chat_messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL,
  user_message TEXT NOT NULL,
  ai_response TEXT NOT NULL,
  ts TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session_ts ON chat_messages(session_id, ts);
CREATE TABLE IF NOT EXISTS files (
  file_id TEXT PRIMARY KEY,
  storage_key TEXT NOT NULL UNIQUE,
  original_name TEXT NOT NULL,
  mime_type TEXT NOT NULL,
  size_bytes INTEGER NOT NULL,
  sha256 TEXT NOT NULL,
  created_by TEXT NOT NULL,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_files_created_at ON files(created_at);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return s.initUserSchema(ctx)
}

func (s *Store) CreateProject(ctx context.Context, rec ProjectRecord) error {
	layersJSON, _ := json.Marshal(layersOrEmpty(rec.Layers))
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO projects(project_id, name, width, height, background_color, layers_json, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Width, rec.Height, rec.BackgroundColor, string(layersJSON), rec.OwnerID,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano), rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetProject(ctx context.Context, projectID string) (ProjectRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT project_id, name, width, height, background_color, layers_json, owner_id, created_at, updated_at
		 FROM projects WHERE project_id=?`,
		projectID,
	)
	rec, err := scanProjectRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProjectRecord{}, ErrProjectNotFound
		}
		return ProjectRecord{}, err
	}
	return rec, nil
}

func (s *Store) ListProjectsByOwner(ctx context.Context, ownerID string) ([]ProjectRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT project_id, name, width, height, background_color, layers_json, owner_id, created_at, updated_at
		 FROM projects WHERE owner_id=? ORDER BY created_at ASC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ProjectRecord{}
	for rows.Next() {
		var rec ProjectRecord
		var layersJSON, tsCreated, tsUpdated string
		if err := rows.Scan(
			&rec.ID, &rec.Name, &rec.Width, &rec.Height, &rec.BackgroundColor, &layersJSON, &rec.OwnerID, &tsCreated, &tsUpdated,
		); err != nil {
			return nil, err
		}
		rec.Layers = decodeLayers(layersJSON)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, tsCreated)
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, tsUpdated)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateProject rewrites the whole document. Concurrent writers race; the
// last write wins, matching the single-document consistency contract.
func (s *Store) UpdateProject(ctx context.Context, rec ProjectRecord) error {
	layersJSON, _ := json.Marshal(layersOrEmpty(rec.Layers))
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE projects SET name=?, width=?, height=?, background_color=?, layers_json=?, updated_at=?
		 WHERE project_id=?`,
		rec.Name, rec.Width, rec.Height, rec.BackgroundColor, string(layersJSON),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano), rec.ID,
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE project_id=?`, projectID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func scanProjectRow(row *sql.Row) (ProjectRecord, error) {
	var rec ProjectRecord
	var layersJSON, tsCreated, tsUpdated string
	if err := row.Scan(
		&rec.ID, &rec.Name, &rec.Width, &rec.Height, &rec.BackgroundColor, &layersJSON, &rec.OwnerID, &tsCreated, &tsUpdated,
	); err != nil {
		return ProjectRecord{}, err
	}
	rec.Layers = decodeLayers(layersJSON)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, tsCreated)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, tsUpdated)
	return rec, nil
}

func decodeLayers(v string) []LayerRecord {
	if v == "" {
		return []LayerRecord{}
	}
	var out []LayerRecord
	if err := json.Unmarshal([]byte(v), &out); err != nil || out == nil {
		return []LayerRecord{}
	}
	return out
}

func layersOrEmpty(layers []LayerRecord) []LayerRecord {
	if layers == nil {
		return []LayerRecord{}
	}
	return layers
}
