// Package mcp exposes the scene daemon to MCP clients over stdio. Every tool
// is a thin wrapper around the daemon's IPC surface; the MCP process itself
// holds no scene state.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sceneshift/sceneshift/internal/ipc"
)

const (
	ServerName    = "sceneshift"
	ServerVersion = "0.1.0"
)

// Daemon is the IPC surface the tools call. Implemented by *ipc.Client.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	ListScenes() (*ipc.ScenesData, error)
	ListWindows() (*ipc.WindowsData, error)
	SwitchScene(sceneID string) error
	Desktop() error
	MoveWindow(handle uint64, sourceScene, targetScene string) error
	ToggleFloat() error
	SetIcons(visible bool) error
}

// Server is the MCP server for scene control.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
}

// NewServer creates a new MCP server talking to the running daemon.
func NewServer(daemon Daemon) *Server {
	s := &Server{daemon: daemon}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Get daemon status: the active scene, scene and window counts, and uptime.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_scenes",
		Description: "List all scenes with their ids, titles and window counts. The current scene is marked selected.",
	}, s.handleListScenes)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List the windows of the current scene, or of every scene when the desktop view is active.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "switch_scene",
		Description: "Switch to a scene by id, hiding every other scene's windows.",
	}, s.handleSwitchScene)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "desktop",
		Description: "Drop to the desktop view: no scene active, desktop icons revealed.",
	}, s.handleDesktop)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_window",
		Description: "Move a window into another scene by handle. The source scene is resolved automatically unless given.",
	}, s.handleMoveWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_float",
		Description: "Toggle the focused window's scene participation. A floating window stays visible across every scene.",
	}, s.handleToggleFloat)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_desktop_icons",
		Description: "Show or hide the desktop icon layer directly.",
	}, s.handleSetIcons)
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, StatusOutput, error) {
	status, err := s.daemon.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		CurrentScene:  status.CurrentScene,
		SceneCount:    status.SceneCount,
		WindowCount:   status.WindowCount,
		UptimeSeconds: status.UptimeSeconds,
	}, nil
}

func (s *Server) handleListScenes(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, ListScenesOutput, error) {
	data, err := s.daemon.ListScenes()
	if err != nil {
		return nil, ListScenesOutput{}, err
	}
	out := ListScenesOutput{Current: data.Current}
	for _, sc := range data.Scenes {
		out.Scenes = append(out.Scenes, SceneEntry{
			ID:          sc.ID,
			Title:       sc.Title,
			GroupKey:    sc.GroupKey,
			Selected:    sc.Selected,
			WindowCount: len(sc.Windows),
		})
	}
	return nil, out, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	data, err := s.daemon.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	out := ListWindowsOutput{}
	for _, w := range data.Windows {
		out.Windows = append(out.Windows, WindowEntry{
			Handle:  uint64(w.Handle),
			Title:   w.Title,
			Class:   w.Class,
			Process: w.Process,
		})
	}
	return nil, out, nil
}

func (s *Server) handleSwitchScene(_ context.Context, _ *mcpsdk.CallToolRequest, args SwitchSceneInput) (*mcpsdk.CallToolResult, SwitchSceneOutput, error) {
	if err := s.daemon.SwitchScene(args.SceneID); err != nil {
		return nil, SwitchSceneOutput{}, err
	}
	return nil, SwitchSceneOutput{SceneID: args.SceneID}, nil
}

func (s *Server) handleDesktop(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.Desktop(); err != nil {
		return nil, nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "desktop view active"}},
	}, nil, nil
}

func (s *Server) handleMoveWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveWindowInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.MoveWindow(args.Handle, args.SourceScene, args.TargetScene); err != nil {
		return nil, nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "window moved"}},
	}, nil, nil
}

func (s *Server) handleToggleFloat(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.ToggleFloat(); err != nil {
		return nil, nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "float toggled"}},
	}, nil, nil
}

func (s *Server) handleSetIcons(_ context.Context, _ *mcpsdk.CallToolRequest, args SetIconsInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.SetIcons(args.Visible); err != nil {
		return nil, nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "desktop icons updated"}},
	}, nil, nil
}
