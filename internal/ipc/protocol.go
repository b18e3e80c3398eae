package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/sceneshift/sceneshift/internal/scene"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload      CommandType = "RELOAD"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandListScenes  CommandType = "LIST_SCENES"
	CommandListWindows CommandType = "LIST_WINDOWS"
	CommandSwitchScene CommandType = "SWITCH_SCENE"
	CommandDesktop     CommandType = "DESKTOP"
	CommandMoveWindow  CommandType = "MOVE_WINDOW"
	CommandToggleFloat CommandType = "TOGGLE_FLOAT"
	CommandSetIcons    CommandType = "SET_ICONS"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	CurrentScene  string `json:"current_scene"`
	SceneCount    int    `json:"scene_count"`
	WindowCount   int    `json:"window_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	DaemonRunning bool   `json:"daemon_running"`
}

// ScenesData represents the data returned by LIST_SCENES
type ScenesData struct {
	Scenes  []scene.Info `json:"scenes"`
	Current string       `json:"current,omitempty"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []scene.WindowInfo `json:"windows"`
}

// SwitchScenePayload represents the payload for SWITCH_SCENE
type SwitchScenePayload struct {
	SceneID string `json:"scene_id"`
}

// MoveWindowPayload represents the payload for MOVE_WINDOW. SourceScene is
// optional; when empty the daemon locates the window's scene itself.
type MoveWindowPayload struct {
	Handle      uint64 `json:"handle"`
	SourceScene string `json:"source_scene,omitempty"`
	TargetScene string `json:"target_scene"`
}

// SetIconsPayload represents the payload for SET_ICONS
type SetIconsPayload struct {
	Visible bool `json:"visible"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
