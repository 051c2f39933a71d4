package project

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pixelcraft/internal/collab"
	"pixelcraft/internal/ledger"

	"github.com/google/uuid"
)

var ErrFileTooLarge = errors.New("uploaded file exceeds max size")

type UploadImageRequest struct {
	Reader       io.Reader
	OriginalName string
	MIMEType     string
}

type UploadedLayer struct {
	Layer   Layer  `json:"layer"`
	Message string `json:"message"`
}

func (s *Service) SetFileStorage(dir string, maxUploadBytes int64) {
	dir = strings.TrimSpace(dir)
	if dir != "" {
		s.fileStoreDir = dir
	}
	if maxUploadBytes > 0 {
		s.maxUploadBytes = maxUploadBytes
	}
}

func (s *Service) MaxUploadBytes() int64 {
	if s.maxUploadBytes <= 0 {
		return 20 * 1024 * 1024
	}
	return s.maxUploadBytes
}

// UploadImage stores an uploaded image, appends it to the project as a
// new top layer carrying the image inline as a data URI, and broadcasts
// the resulting layer stack.
func (s *Service) UploadImage(ctx context.Context, actorID, projectID string, req UploadImageRequest) (UploadedLayer, error) {
	if req.Reader == nil {
		return UploadedLayer{}, fmt.Errorf("file stream is required")
	}
	mime := strings.ToLower(strings.TrimSpace(req.MIMEType))
	if err := s.policy.ValidateUploadMIME(mime); err != nil {
		return UploadedLayer{}, err
	}
	rec, err := s.loadOwned(ctx, actorID, projectID)
	if err != nil {
		return UploadedLayer{}, err
	}

	name := strings.TrimSpace(req.OriginalName)
	if name == "" {
		name = "upload.bin"
	}

	limit := s.MaxUploadBytes()
	var buf bytes.Buffer
	n, err := io.Copy(&buf, &io.LimitedReader{R: req.Reader, N: limit + 1})
	if err != nil {
		return UploadedLayer{}, err
	}
	if n > limit {
		return UploadedLayer{}, ErrFileTooLarge
	}

	fileID := uuid.NewString()
	if s.fileStoreDir != "" {
		if err := s.storeFile(ctx, fileID, name, mime, buf.Bytes(), actorID); err != nil {
			return UploadedLayer{}, err
		}
	}

	dataURI := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	layer := ledger.LayerRecord{
		ID:      uuid.NewString(),
		Name:    "Image Layer - " + name,
		Type:    "image",
		Visible: true,
		Opacity: 1.0,
		X:       0,
		Y:       0,
		Width:   300,
		Height:  200,
		Data: map[string]any{
			"src":      dataURI,
			"filename": name,
			"file_id":  fileID,
		},
		ZIndex: maxZIndex(rec.Layers) + 1,
	}

	rec.Layers = append(rec.Layers, layer)
	rec.UpdatedAt = time.Now().UTC()
	if err := s.ledger.UpdateProject(ctx, rec); err != nil {
		if errors.Is(err, ledger.ErrProjectNotFound) {
			return UploadedLayer{}, ErrNotFound
		}
		return UploadedLayer{}, err
	}

	s.hub.Publish(collab.Event{
		ProjectID: rec.ID,
		Type:      collab.TypeProjectUpdate,
		Data:      map[string]any{"layers": layersFromRecords(rec.Layers)},
		UserID:    actorID,
	})
	return UploadedLayer{
		Layer:   Layer(layer),
		Message: "Image uploaded successfully",
	}, nil
}

func (s *Service) storeFile(ctx context.Context, fileID, name, mime string, data []byte, createdBy string) error {
	if err := os.MkdirAll(s.fileStoreDir, 0o750); err != nil {
		return fmt.Errorf("prepare file store: %w", err)
	}
	storageKey := fileID + ".bin"
	targetPath := filepath.Join(s.fileStoreDir, storageKey)

	tmp, err := os.CreateTemp(s.fileStoreDir, "upload-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, writeErr := tmp.Write(data)
	if closeErr := tmp.Close(); closeErr != nil && writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return writeErr
	}
	if err := os.Rename(tmpPath, targetPath); err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	rec := ledger.FileRecord{
		FileID:       fileID,
		StorageKey:   storageKey,
		OriginalName: name,
		MIMEType:     mime,
		SizeBytes:    int64(len(data)),
		SHA256:       hex.EncodeToString(sum[:]),
		CreatedBy:    createdBy,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.ledger.CreateFile(ctx, rec); err != nil {
		_ = os.Remove(targetPath)
		return err
	}
	return nil
}
