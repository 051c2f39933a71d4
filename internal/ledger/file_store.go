package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrFileNotFound = errors.New("file not found")

type FileRecord struct {
	FileID       string
	StorageKey   string
	OriginalName string
	MIMEType     string
	SizeBytes    int64
	SHA256       string
	CreatedBy    string
	CreatedAt    time.Time
}

func (s *Store) CreateFile(ctx context.Context, rec FileRecord) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO files(file_id, storage_key, original_name, mime_type, size_bytes, sha256, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FileID, rec.StorageKey, rec.OriginalName, rec.MIMEType, rec.SizeBytes, rec.SHA256,
		rec.CreatedBy, rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetFile(ctx context.Context, fileID string) (FileRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT file_id, storage_key, original_name, mime_type, size_bytes, sha256, created_by, created_at
		 FROM files WHERE file_id=?`,
		fileID,
	)
	var rec FileRecord
	var created string
	if err := row.Scan(
		&rec.FileID, &rec.StorageKey, &rec.OriginalName, &rec.MIMEType, &rec.SizeBytes, &rec.SHA256, &rec.CreatedBy, &created,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FileRecord{}, ErrFileNotFound
		}
		return FileRecord{}, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return rec, nil
}
