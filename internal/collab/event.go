package collab

const (
	TypeCursor        = "cursor"
	TypeLayerUpdate   = "layer_update"
	TypeToolChange    = "tool_change"
	TypeProjectUpdate = "project_update"
)

// Event is one collaboration message fanned out to every subscriber of a
// project. Type and Data are opaque to the hub: sessions relay whatever
// well-formed JSON arrives, and schema enforcement is left to consuming
// clients. UserID names the originator so clients can filter their own echo;
// the hub itself never filters.
type Event struct {
	ProjectID string         `json:"-"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	UserID    string         `json:"user_id"`
}
