package mcp

// SwitchSceneInput is the input for the switch_scene tool.
type SwitchSceneInput struct {
	SceneID string `json:"scene_id" jsonschema:"required,Scene id as returned by list_scenes"`
}

// SwitchSceneOutput is the output for the switch_scene tool.
type SwitchSceneOutput struct {
	SceneID string `json:"scene_id"`
}

// SceneEntry describes a single scene.
type SceneEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	GroupKey    string `json:"group_key"`
	Selected    bool   `json:"selected"`
	WindowCount int    `json:"window_count"`
}

// ListScenesOutput is the output for the list_scenes tool.
type ListScenesOutput struct {
	Scenes  []SceneEntry `json:"scenes"`
	Current string       `json:"current,omitempty"`
}

// WindowEntry describes a single window.
type WindowEntry struct {
	Handle  uint64 `json:"handle"`
	Title   string `json:"title"`
	Class   string `json:"class"`
	Process string `json:"process"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowEntry `json:"windows"`
}

// StatusOutput is the output for the get_status tool.
type StatusOutput struct {
	CurrentScene  string `json:"current_scene"`
	SceneCount    int    `json:"scene_count"`
	WindowCount   int    `json:"window_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// MoveWindowInput is the input for the move_window tool.
type MoveWindowInput struct {
	Handle      uint64 `json:"handle" jsonschema:"required,Window handle as returned by list_windows"`
	TargetScene string `json:"target_scene" jsonschema:"required,Scene id to move the window into"`
	SourceScene string `json:"source_scene,omitempty" jsonschema:"Optional scene id the window currently belongs to; resolved automatically when omitted"`
}

// SetIconsInput is the input for the set_desktop_icons tool.
type SetIconsInput struct {
	Visible bool `json:"visible" jsonschema:"Whether the desktop icon layer should be visible"`
}
