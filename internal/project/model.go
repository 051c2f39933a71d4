package project

import (
	"time"

	"pixelcraft/internal/ledger"
)

// Project is the API view of a canvas document.
type Project struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	BackgroundColor string    `json:"background_color"`
	Layers          []Layer   `json:"layers"`
	OwnerID         string    `json:"owner_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Layer struct {
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

type CreateRequest struct {
	Name            string `json:"name"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	BackgroundColor string `json:"background_color"`
}

// Patch is a partial project update. Nil fields are left untouched.
type Patch struct {
	Name            *string  `json:"name"`
	Width           *int     `json:"width"`
	Height          *int     `json:"height"`
	BackgroundColor *string  `json:"background_color"`
	Layers          *[]Layer `json:"layers"`
}

// eventData rebuilds the wire form of the patch for broadcast, carrying
// only the fields that were actually set.
func (p Patch) eventData() map[string]any {
	out := map[string]any{}
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.Width != nil {
		out["width"] = *p.Width
	}
	if p.Height != nil {
		out["height"] = *p.Height
	}
	if p.BackgroundColor != nil {
		out["background_color"] = *p.BackgroundColor
	}
	if p.Layers != nil {
		out["layers"] = *p.Layers
	}
	return out
}

func viewFromRecord(rec ledger.ProjectRecord) Project {
	return Project{
		ID:              rec.ID,
		Name:            rec.Name,
		Width:           rec.Width,
		Height:          rec.Height,
		BackgroundColor: rec.BackgroundColor,
		Layers:          layersFromRecords(rec.Layers),
		OwnerID:         rec.OwnerID,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

func layersFromRecords(recs []ledger.LayerRecord) []Layer {
	out := make([]Layer, 0, len(recs))
	for _, r := range recs {
		out = append(out, Layer(r))
	}
	return out
}

func layersToRecords(layers []Layer) []ledger.LayerRecord {
	out := make([]ledger.LayerRecord, 0, len(layers))
	for _, l := range layers {
		out = append(out, ledger.LayerRecord(l))
	}
	return out
}

// maxZIndex returns the highest z_index among layers, or -1 when empty,
// so appended layers always land on top.
func maxZIndex(layers []ledger.LayerRecord) int {
	max := -1
	for _, l := range layers {
		if l.ZIndex > max {
			max = l.ZIndex
		}
	}
	return max
}
