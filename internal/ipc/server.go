package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sceneshift/sceneshift/internal/platform"
	"github.com/sceneshift/sceneshift/internal/runtimepath"
	"github.com/sceneshift/sceneshift/internal/scene"
)

// Coordinator is the scene surface the server exposes over IPC.
type Coordinator interface {
	Scenes() []scene.Info
	Current() (scene.Info, bool)
	CurrentWindows() []scene.WindowInfo
	SwitchTo(id string) error
	SwitchToDesktop()
	MoveWindow(sourceID string, h platform.WindowHandle, targetID string) error
	MoveWindowTo(h platform.WindowHandle, targetID string) error
	SetDesktopIcons(visible bool) error
}

// Floater toggles the focused window's scene participation.
type Floater interface {
	ToggleFocusedFloat() error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	coord        Coordinator
	floater      Floater
	startTime    time.Time
	reloadChan   chan struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(coord Coordinator, floater Floater, reloadChan chan struct{}) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		coord:      coord,
		floater:    floater,
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListScenes:
		return s.handleListScenes()
	case CommandListWindows:
		return s.handleListWindows()
	case CommandSwitchScene:
		return s.handleSwitchScene(req.Payload)
	case CommandDesktop:
		return s.handleDesktop()
	case CommandMoveWindow:
		return s.handleMoveWindow(req.Payload)
	case CommandToggleFloat:
		return s.handleToggleFloat()
	case CommandSetIcons:
		return s.handleSetIcons(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleReload asks the daemon to reload its configuration
func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")

	// Notify the main daemon via channel (non-blocking)
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus() *Response {
	scenes := s.coord.Scenes()
	windowCount := 0
	for _, sc := range scenes {
		windowCount += len(sc.Windows)
	}
	currentTitle := ""
	if cur, ok := s.coord.Current(); ok {
		currentTitle = cur.Title
	}

	status := StatusData{
		CurrentScene:  currentTitle,
		SceneCount:    len(scenes),
		WindowCount:   windowCount,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleListScenes() *Response {
	data := ScenesData{Scenes: s.coord.Scenes()}
	if cur, ok := s.coord.Current(); ok {
		data.Current = cur.ID
	}

	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleListWindows() *Response {
	data := WindowsData{Windows: s.coord.CurrentWindows()}

	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleSwitchScene(payload json.RawMessage) *Response {
	var req SwitchScenePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid switch payload: %v", err))
	}
	if req.SceneID == "" {
		return NewErrorResponse("scene_id is required")
	}

	if err := s.coord.SwitchTo(req.SceneID); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to switch scene: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleDesktop() *Response {
	s.coord.SwitchToDesktop()

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleMoveWindow(payload json.RawMessage) *Response {
	var req MoveWindowPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid move payload: %v", err))
	}
	if req.Handle == 0 || req.TargetScene == "" {
		return NewErrorResponse("handle and target_scene are required")
	}

	h := platform.WindowHandle(req.Handle)
	var err error
	if req.SourceScene != "" {
		err = s.coord.MoveWindow(req.SourceScene, h, req.TargetScene)
	} else {
		err = s.coord.MoveWindowTo(h, req.TargetScene)
	}
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to move window: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleToggleFloat() *Response {
	if err := s.floater.ToggleFocusedFloat(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to toggle float: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleSetIcons(payload json.RawMessage) *Response {
	var req SetIconsPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid icons payload: %v", err))
	}

	if err := s.coord.SetDesktopIcons(req.Visible); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to set desktop icons: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
