package policy

import "testing"

func TestValidateCanvas(t *testing.T) {
	p := New(4096, nil)

	if err := p.ValidateCanvas(CanvasOptions{Width: 1920, Height: 1080, BackgroundColor: "#ffffff"}); err != nil {
		t.Fatalf("expected valid canvas, got %v", err)
	}
	if err := p.ValidateCanvas(CanvasOptions{Width: 0, Height: 100}); err == nil {
		t.Fatalf("expected error for zero width")
	}
	if err := p.ValidateCanvas(CanvasOptions{Width: 100, Height: 5000}); err == nil {
		t.Fatalf("expected error for oversize height")
	}
	if err := p.ValidateCanvas(CanvasOptions{Width: 100, Height: 100, BackgroundColor: "red"}); err == nil {
		t.Fatalf("expected error for non-hex color")
	}
	if err := p.ValidateCanvas(CanvasOptions{Width: 100, Height: 100, BackgroundColor: ""}); err != nil {
		t.Fatalf("empty color should be allowed, got %v", err)
	}
}

func TestValidateLayer(t *testing.T) {
	p := New(0, nil)

	for _, typ := range []string{"image", "text", "shape", "brush", ""} {
		if err := p.ValidateLayer(typ, 0.5); err != nil {
			t.Fatalf("type %q: %v", typ, err)
		}
	}
	if err := p.ValidateLayer("video", 0.5); err == nil {
		t.Fatalf("expected error for unknown layer type")
	}
	if err := p.ValidateLayer("image", 1.5); err == nil {
		t.Fatalf("expected error for opacity above 1")
	}
	if err := p.ValidateLayer("image", -0.1); err == nil {
		t.Fatalf("expected error for negative opacity")
	}
}

func TestValidateUploadMIME(t *testing.T) {
	p := New(0, []string{"image/png", "image/jpeg"})

	if err := p.ValidateUploadMIME("image/png"); err != nil {
		t.Fatalf("png should pass: %v", err)
	}
	if err := p.ValidateUploadMIME(" IMAGE/JPEG "); err != nil {
		t.Fatalf("case/space normalization should pass: %v", err)
	}
	if err := p.ValidateUploadMIME("image/tiff"); err == nil {
		t.Fatalf("expected error for tiff")
	}
	if err := p.ValidateUploadMIME(""); err == nil {
		t.Fatalf("expected error for empty content type")
	}
}
