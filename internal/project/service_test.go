package project

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pixelcraft/internal/collab"
	"pixelcraft/internal/ledger"
	"pixelcraft/internal/policy"
)

func newTestService(t *testing.T) (*Service, *collab.Hub) {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "projects.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	hub := collab.NewHub(16)
	pol := policy.New(16384, []string{"image/png", "image/jpeg"})
	svc := New(store, hub, pol)
	svc.SetFileStorage(t.TempDir(), 1024*1024)
	return svc, hub
}

func mustCreate(t *testing.T, svc *Service, ownerID string) Project {
	t.Helper()
	p, err := svc.Create(context.Background(), ownerID, CreateRequest{Name: "Poster"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func recvEvent(t *testing.T, ch *collab.Channel) collab.Event {
	t.Helper()
	select {
	case ev, ok := <-ch.Events():
		if !ok {
			t.Fatalf("subscriber channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return collab.Event{}
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustCreate(t, svc, "u1")

	if p.Width != 1920 || p.Height != 1080 || p.BackgroundColor != "#ffffff" {
		t.Fatalf("defaults not applied: %#v", p)
	}
	if p.Layers == nil || len(p.Layers) != 0 {
		t.Fatalf("expected empty layer list, got %#v", p.Layers)
	}
	if p.ID == "" || p.OwnerID != "u1" {
		t.Fatalf("unexpected identity fields: %#v", p)
	}
}

func TestCreateRejectsOversizeCanvas(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), "u1", CreateRequest{Name: "Big", Width: 999999, Height: 10})
	if err == nil {
		t.Fatalf("expected canvas validation error")
	}
}

func TestUpdatePublishesPatchToSubscribers(t *testing.T) {
	svc, hub := newTestService(t)
	p := mustCreate(t, svc, "u1")

	ch := hub.Subscribe(p.ID)
	defer hub.Unsubscribe(ch)

	newName := "Renamed"
	got, err := svc.Update(context.Background(), "u1", p.ID, Patch{Name: &newName})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Renamed" {
		t.Fatalf("expected renamed project, got %q", got.Name)
	}
	if !got.UpdatedAt.After(p.UpdatedAt) && !got.UpdatedAt.Equal(p.UpdatedAt) {
		t.Fatalf("updated_at went backwards: %v -> %v", p.UpdatedAt, got.UpdatedAt)
	}

	ev := recvEvent(t, ch)
	if ev.Type != collab.TypeProjectUpdate || ev.UserID != "u1" {
		t.Fatalf("unexpected event: %#v", ev)
	}
	if ev.Data["name"] != "Renamed" {
		t.Fatalf("patch not carried in event data: %#v", ev.Data)
	}
	if _, present := ev.Data["width"]; present {
		t.Fatalf("unset patch fields must not appear in event data: %#v", ev.Data)
	}
}

func TestUpdateByNonOwnerPublishesNothing(t *testing.T) {
	svc, hub := newTestService(t)
	p := mustCreate(t, svc, "u1")

	ch := hub.Subscribe(p.ID)
	defer hub.Unsubscribe(ch)

	newName := "Hijacked"
	if _, err := svc.Update(context.Background(), "intruder", p.ID, Patch{Name: &newName}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	select {
	case ev := <-ch.Events():
		t.Fatalf("no event expected, got %#v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	got, err := svc.Get(context.Background(), "u1", p.ID)
	if err != nil || got.Name != "Poster" {
		t.Fatalf("project must be unchanged: %v %#v", err, got)
	}
}

func TestUpdateMissingProject(t *testing.T) {
	svc, _ := newTestService(t)
	newName := "X"
	if _, err := svc.Update(context.Background(), "u1", "ghost", Patch{Name: &newName}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateValidatesLayers(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustCreate(t, svc, "u1")

	bad := []Layer{{ID: "l1", Type: "video", Opacity: 0.5}}
	if _, err := svc.Update(context.Background(), "u1", p.ID, Patch{Layers: &bad}); err == nil {
		t.Fatalf("expected layer type validation error")
	}
	worse := []Layer{{ID: "l1", Type: "image", Opacity: 2}}
	if _, err := svc.Update(context.Background(), "u1", p.ID, Patch{Layers: &worse}); err == nil {
		t.Fatalf("expected opacity validation error")
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustCreate(t, svc, "u1")

	if _, err := svc.Get(context.Background(), "u2", p.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "u1", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustCreate(t, svc, "u1")

	if err := svc.Delete(context.Background(), "u2", p.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := svc.Delete(context.Background(), "u1", p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), "u1", p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUploadImageAppendsTopLayerAndBroadcasts(t *testing.T) {
	svc, hub := newTestService(t)
	p := mustCreate(t, svc, "u1")

	// Seed an existing layer with a high z_index; the upload must land above it.
	seed := []Layer{{ID: "l1", Name: "Base", Type: "shape", Visible: true, Opacity: 1, ZIndex: 7}}
	if _, err := svc.Update(context.Background(), "u1", p.ID, Patch{Layers: &seed}); err != nil {
		t.Fatalf("seed layers: %v", err)
	}

	ch := hub.Subscribe(p.ID)
	defer hub.Unsubscribe(ch)

	res, err := svc.UploadImage(context.Background(), "u1", p.ID, UploadImageRequest{
		Reader:       strings.NewReader("fake png bytes"),
		OriginalName: "cat.png",
		MIMEType:     "image/png",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Layer.Type != "image" || res.Layer.ZIndex != 8 {
		t.Fatalf("unexpected layer: %#v", res.Layer)
	}
	if !strings.HasPrefix(res.Layer.Data["src"].(string), "data:image/png;base64,") {
		t.Fatalf("expected data URI src, got %v", res.Layer.Data["src"])
	}
	if res.Layer.Name != "Image Layer - cat.png" {
		t.Fatalf("unexpected layer name %q", res.Layer.Name)
	}

	ev := recvEvent(t, ch)
	if ev.Type != collab.TypeProjectUpdate || ev.UserID != "u1" {
		t.Fatalf("unexpected event: %#v", ev)
	}
	if _, ok := ev.Data["layers"]; !ok {
		t.Fatalf("expected layers in event data: %#v", ev.Data)
	}

	got, err := svc.Get(context.Background(), "u1", p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(got.Layers))
	}
}

func TestUploadImageRejectsBadMIME(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustCreate(t, svc, "u1")

	_, err := svc.UploadImage(context.Background(), "u1", p.ID, UploadImageRequest{
		Reader:       strings.NewReader("x"),
		OriginalName: "a.tiff",
		MIMEType:     "image/tiff",
	})
	if err == nil {
		t.Fatalf("expected MIME validation error")
	}
}

func TestUploadImageTooLarge(t *testing.T) {
	svc, _ := newTestService(t)
	svc.SetFileStorage("", 8)
	p := mustCreate(t, svc, "u1")

	_, err := svc.UploadImage(context.Background(), "u1", p.ID, UploadImageRequest{
		Reader:       strings.NewReader("way more than eight bytes"),
		OriginalName: "big.png",
		MIMEType:     "image/png",
	})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestExportReturnsDocument(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustCreate(t, svc, "u1")

	res, err := svc.Export(context.Background(), "u1", p.ID, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.ExportFormat != "png" || res.Project.ID != p.ID {
		t.Fatalf("unexpected export result: %#v", res)
	}
}

func TestFiltersRequireOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	p := mustCreate(t, svc, "u1")

	if _, err := svc.ApplyBlur(context.Background(), "u2", p.ID, "l1", 5); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	res, err := svc.ApplyBrightness(context.Background(), "u1", p.ID, "l1", 1.2)
	if err != nil || res.Message == "" {
		t.Fatalf("brightness: %v %#v", err, res)
	}
}
