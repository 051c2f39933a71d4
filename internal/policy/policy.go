package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// Policy holds the validation limits applied at the REST boundary.
// Relay frames on the collaboration socket are deliberately not run
// through it; the relay forwards opaque payloads.
type Policy struct {
	MaxCanvasDim      int
	AllowedMIME       []string
	AllowedLayerTypes []string
}

type CanvasOptions struct {
	Width           int
	Height          int
	BackgroundColor string
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func New(maxCanvasDim int, allowedMIME []string) *Policy {
	if maxCanvasDim <= 0 {
		maxCanvasDim = 16384
	}
	return &Policy{
		MaxCanvasDim:      maxCanvasDim,
		AllowedMIME:       allowedMIME,
		AllowedLayerTypes: []string{"image", "text", "shape", "brush"},
	}
}

func (p *Policy) ValidateCanvas(opts CanvasOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("canvas dimensions must be positive")
	}
	if opts.Width > p.MaxCanvasDim || opts.Height > p.MaxCanvasDim {
		return fmt.Errorf("canvas dimensions exceed maximum %d", p.MaxCanvasDim)
	}
	if opts.BackgroundColor != "" && !hexColor.MatchString(opts.BackgroundColor) {
		return fmt.Errorf("invalid background color")
	}
	return nil
}

func (p *Policy) ValidateLayer(layerType string, opacity float64) error {
	if layerType != "" {
		ok := false
		for _, t := range p.AllowedLayerTypes {
			if layerType == t {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("invalid layer type %q", layerType)
		}
	}
	if opacity < 0 || opacity > 1 {
		return fmt.Errorf("opacity must be within [0, 1]")
	}
	return nil
}

func (p *Policy) ValidateUploadMIME(mime string) error {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" {
		return fmt.Errorf("content type is required")
	}
	for _, allowed := range p.AllowedMIME {
		if mime == allowed {
			return nil
		}
	}
	return fmt.Errorf("unsupported image type %q", mime)
}
