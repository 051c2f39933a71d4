package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pixelcraft/internal/collab"
	"pixelcraft/internal/ledger"
	"pixelcraft/internal/policy"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("project not found")
	ErrNotOwner = errors.New("not the project owner")
)

const (
	defaultWidth           = 1920
	defaultHeight          = 1080
	defaultBackgroundColor = "#ffffff"
)

// Service owns project persistence and is the single write path for
// project documents. Every successful mutation is followed by a
// project_update broadcast to the project's live subscribers; the
// broadcast is best-effort and never rolls back the persisted write.
type Service struct {
	ledger *ledger.Store
	hub    *collab.Hub
	policy *policy.Policy

	fileStoreDir   string
	maxUploadBytes int64
}

func New(store *ledger.Store, hub *collab.Hub, pol *policy.Policy) *Service {
	return &Service{
		ledger: store,
		hub:    hub,
		policy: pol,
	}
}

func (s *Service) Create(ctx context.Context, ownerID string, req CreateRequest) (Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Project{}, fmt.Errorf("project name is required")
	}
	if req.Width == 0 {
		req.Width = defaultWidth
	}
	if req.Height == 0 {
		req.Height = defaultHeight
	}
	if strings.TrimSpace(req.BackgroundColor) == "" {
		req.BackgroundColor = defaultBackgroundColor
	}
	if err := s.policy.ValidateCanvas(policy.CanvasOptions{
		Width:           req.Width,
		Height:          req.Height,
		BackgroundColor: req.BackgroundColor,
	}); err != nil {
		return Project{}, err
	}

	now := time.Now().UTC()
	rec := ledger.ProjectRecord{
		ID:              uuid.NewString(),
		Name:            name,
		Width:           req.Width,
		Height:          req.Height,
		BackgroundColor: req.BackgroundColor,
		Layers:          []ledger.LayerRecord{},
		OwnerID:         ownerID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.ledger.CreateProject(ctx, rec); err != nil {
		return Project{}, err
	}
	return viewFromRecord(rec), nil
}

func (s *Service) List(ctx context.Context, ownerID string) ([]Project, error) {
	recs, err := s.ledger.ListProjectsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]Project, 0, len(recs))
	for _, rec := range recs {
		out = append(out, viewFromRecord(rec))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, actorID, projectID string) (Project, error) {
	rec, err := s.loadOwned(ctx, actorID, projectID)
	if err != nil {
		return Project{}, err
	}
	return viewFromRecord(rec), nil
}

// Update applies a partial patch to the project. On success the applied
// fields are broadcast as a project_update event tagged with the acting
// user's id.
func (s *Service) Update(ctx context.Context, actorID, projectID string, patch Patch) (Project, error) {
	rec, err := s.loadOwned(ctx, actorID, projectID)
	if err != nil {
		return Project{}, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return Project{}, fmt.Errorf("project name is required")
		}
		rec.Name = name
	}
	if patch.Width != nil {
		rec.Width = *patch.Width
	}
	if patch.Height != nil {
		rec.Height = *patch.Height
	}
	if patch.BackgroundColor != nil {
		rec.BackgroundColor = *patch.BackgroundColor
	}
	if err := s.policy.ValidateCanvas(policy.CanvasOptions{
		Width:           rec.Width,
		Height:          rec.Height,
		BackgroundColor: rec.BackgroundColor,
	}); err != nil {
		return Project{}, err
	}
	if patch.Layers != nil {
		for _, l := range *patch.Layers {
			if err := s.policy.ValidateLayer(l.Type, l.Opacity); err != nil {
				return Project{}, err
			}
		}
		rec.Layers = layersToRecords(*patch.Layers)
	}

	rec.UpdatedAt = time.Now().UTC()
	if err := s.ledger.UpdateProject(ctx, rec); err != nil {
		if errors.Is(err, ledger.ErrProjectNotFound) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}

	s.hub.Publish(collab.Event{
		ProjectID: rec.ID,
		Type:      collab.TypeProjectUpdate,
		Data:      patch.eventData(),
		UserID:    actorID,
	})
	return viewFromRecord(rec), nil
}

func (s *Service) Delete(ctx context.Context, actorID, projectID string) error {
	if _, err := s.loadOwned(ctx, actorID, projectID); err != nil {
		return err
	}
	if err := s.ledger.DeleteProject(ctx, projectID); err != nil {
		if errors.Is(err, ledger.ErrProjectNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// FilterResult is the acknowledgment for a filter request. Rendering
// happens client-side; the endpoints exist for API compatibility.
type FilterResult struct {
	Message string `json:"message"`
}

func (s *Service) ApplyBlur(ctx context.Context, actorID, projectID, layerID string, amount float64) (FilterResult, error) {
	if _, err := s.loadOwned(ctx, actorID, projectID); err != nil {
		return FilterResult{}, err
	}
	return FilterResult{Message: fmt.Sprintf("Blur filter applied to layer %s with amount %g", layerID, amount)}, nil
}

func (s *Service) ApplyBrightness(ctx context.Context, actorID, projectID, layerID string, value float64) (FilterResult, error) {
	if _, err := s.loadOwned(ctx, actorID, projectID); err != nil {
		return FilterResult{}, err
	}
	return FilterResult{Message: fmt.Sprintf("Brightness filter applied to layer %s with value %g", layerID, value)}, nil
}

type ExportResult struct {
	Project      Project `json:"project"`
	ExportFormat string  `json:"export_format"`
	Message      string  `json:"message"`
}

// Export returns the full document for client-side rendering.
func (s *Service) Export(ctx context.Context, actorID, projectID, format string) (ExportResult, error) {
	rec, err := s.loadOwned(ctx, actorID, projectID)
	if err != nil {
		return ExportResult{}, err
	}
	if format == "" {
		format = "png"
	}
	return ExportResult{
		Project:      viewFromRecord(rec),
		ExportFormat: format,
		Message:      "Project data ready for export",
	}, nil
}

func (s *Service) loadOwned(ctx context.Context, actorID, projectID string) (ledger.ProjectRecord, error) {
	rec, err := s.ledger.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, ledger.ErrProjectNotFound) {
			return ledger.ProjectRecord{}, ErrNotFound
		}
		return ledger.ProjectRecord{}, err
	}
	if rec.OwnerID != actorID {
		return ledger.ProjectRecord{}, ErrNotOwner
	}
	return rec, nil
}
