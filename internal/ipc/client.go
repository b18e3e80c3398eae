package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/sceneshift/sceneshift/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}

	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	req := &Request{
		Command: CommandReload,
	}

	_, err := c.sendRequest(req)
	return err
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	req := &Request{
		Command: CommandGetStatus,
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// ListScenes retrieves all scenes and the current selection
func (c *Client) ListScenes() (*ScenesData, error) {
	req := &Request{
		Command: CommandListScenes,
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}

	var data ScenesData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse scenes data: %w", err)
	}

	return &data, nil
}

// ListWindows retrieves the windows of the current scene (or all scene
// windows when the desktop view is active)
func (c *Client) ListWindows() (*WindowsData, error) {
	req := &Request{
		Command: CommandListWindows,
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}

	var data WindowsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse windows data: %w", err)
	}

	return &data, nil
}

// SwitchScene activates the scene with the given id
func (c *Client) SwitchScene(sceneID string) error {
	payload, err := json.Marshal(SwitchScenePayload{SceneID: sceneID})
	if err != nil {
		return fmt.Errorf("failed to marshal switch payload: %w", err)
	}

	req := &Request{
		Command: CommandSwitchScene,
		Payload: payload,
	}

	_, err = c.sendRequest(req)
	return err
}

// Desktop drops to the desktop view
func (c *Client) Desktop() error {
	req := &Request{
		Command: CommandDesktop,
	}

	_, err := c.sendRequest(req)
	return err
}

// MoveWindow moves a window into the target scene. sourceScene may be empty.
func (c *Client) MoveWindow(handle uint64, sourceScene, targetScene string) error {
	payload, err := json.Marshal(MoveWindowPayload{
		Handle:      handle,
		SourceScene: sourceScene,
		TargetScene: targetScene,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal move payload: %w", err)
	}

	req := &Request{
		Command: CommandMoveWindow,
		Payload: payload,
	}

	_, err = c.sendRequest(req)
	return err
}

// ToggleFloat flips the focused window's scene participation
func (c *Client) ToggleFloat() error {
	req := &Request{
		Command: CommandToggleFloat,
	}

	_, err := c.sendRequest(req)
	return err
}

// SetIcons shows or hides the desktop icon layer
func (c *Client) SetIcons(visible bool) error {
	payload, err := json.Marshal(SetIconsPayload{Visible: visible})
	if err != nil {
		return fmt.Errorf("failed to marshal icons payload: %w", err)
	}

	req := &Request{
		Command: CommandSetIcons,
		Payload: payload,
	}

	_, err = c.sendRequest(req)
	return err
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
